package core

import (
	"encoding/json"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    int64
		wantErr bool
	}{
		{"dot separator", "12.34", 1234, false},
		{"comma separator", "12,34", 1234, false},
		{"integer", "1500", 150000, false},
		{"third decimal rounds half up", "12.345", 1235, false},
		{"whitespace trimmed", " 9.90 ", 990, false},
		{"empty", "", 0, true},
		{"negative rejected", "-5", 0, true},
		{"garbage", "12x", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseMoney(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got.Cents != tt.want {
				t.Errorf("ParseMoney(%q) = %d cents, want %d", tt.in, got.Cents, tt.want)
			}
		})
	}
}

func TestMoneyJSONRoundTrip(t *testing.T) {
	out, err := json.Marshal(Money{Cents: 123456})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != "1234.56" {
		t.Errorf("marshal = %s, want 1234.56", out)
	}

	tests := []struct {
		in   string
		want int64
	}{
		{"1234.56", 123456},
		{"1000", 100000},
		{`"99.90"`, 9990}, // older exports quote amounts
		{"0.1", 10},
		{"null", 0},
	}
	for _, tt := range tests {
		var m Money
		if err := json.Unmarshal([]byte(tt.in), &m); err != nil {
			t.Fatalf("unmarshal %s: %v", tt.in, err)
		}
		if m.Cents != tt.want {
			t.Errorf("unmarshal %s = %d cents, want %d", tt.in, m.Cents, tt.want)
		}
	}
}

func TestMoneyArithmetic(t *testing.T) {
	a := Money{Cents: 1500}
	b := Money{Cents: 2000}
	if got := a.Add(b).Cents; got != 3500 {
		t.Errorf("Add = %d, want 3500", got)
	}
	if got := a.Sub(b).Cents; got != -500 {
		t.Errorf("Sub = %d, want -500", got)
	}
	if !a.Sub(b).IsNegative() {
		t.Error("Sub result should be negative")
	}
	if got := (Money{Cents: 990}).String(); got != "9.90" {
		t.Errorf("String = %q, want 9.90", got)
	}
}
