package engine

import (
	"testing"

	"financaspro/internal/core"
)

func date(y, m, d int) core.Date { return core.NewDate(y, m, d) }

func TestResolveInvoiceDate(t *testing.T) {
	tests := []struct {
		name        string
		purchase    core.Date
		closingDay  int
		dueDay      int
		monthOffset int
		want        string
	}{
		{
			name:       "before closing day stays in current cycle",
			purchase:   date(2024, 3, 4),
			closingDay: 5, dueDay: 15,
			want: "2024-03-15",
		},
		{
			name:       "on closing day stays in current cycle",
			purchase:   date(2024, 3, 5),
			closingDay: 5, dueDay: 15,
			want: "2024-03-15",
		},
		{
			name:       "day after closing day moves to next cycle",
			purchase:   date(2024, 3, 6),
			closingDay: 5, dueDay: 15,
			want: "2024-04-15",
		},
		{
			name:       "due day before closing day is allowed",
			purchase:   date(2024, 3, 10),
			closingDay: 25, dueDay: 5,
			want: "2024-03-05",
		},
		{
			name:       "december purchase rolls into next year",
			purchase:   date(2024, 12, 20),
			closingDay: 5, dueDay: 15,
			want: "2025-01-15",
		},
		{
			name:       "offset advances whole cycles",
			purchase:   date(2024, 3, 10),
			closingDay: 5, dueDay: 15,
			monthOffset: 2,
			want:        "2024-06-15",
		},
		{
			name:       "due day 31 in a 30 day month rolls forward",
			purchase:   date(2024, 3, 20),
			closingDay: 25, dueDay: 31,
			want: "2024-03-31",
		},
		{
			name:       "due day 31 resolved into april lands on may 1st",
			purchase:   date(2024, 3, 26),
			closingDay: 25, dueDay: 31,
			want: "2024-05-01",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveInvoiceDate(tt.purchase, tt.closingDay, tt.dueDay, tt.monthOffset)
			if got.String() != tt.want {
				t.Errorf("ResolveInvoiceDate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveInvoiceDateMonotonicity(t *testing.T) {
	purchase := date(2024, 1, 28)
	prev := ResolveInvoiceDate(purchase, 10, 15, 0)
	for offset := 1; offset <= 24; offset++ {
		got := ResolveInvoiceDate(purchase, 10, 15, offset)
		wantYear, wantMonth := prev.Year(), prev.MonthInt()+1
		if wantMonth > 12 {
			wantMonth = 1
			wantYear++
		}
		if got.Year() != wantYear || got.MonthInt() != wantMonth {
			t.Fatalf("offset %d: got %s, want %04d-%02d", offset, got, wantYear, wantMonth)
		}
		prev = got
	}
}

func TestResolveInvoiceDateIsPure(t *testing.T) {
	purchase := date(2024, 6, 12)
	first := ResolveInvoiceDate(purchase, 5, 10, 3)
	for i := 0; i < 5; i++ {
		if got := ResolveInvoiceDate(purchase, 5, 10, 3); !got.Equal(first.Time) {
			t.Fatalf("call %d returned %s, want %s", i, got, first)
		}
	}
}
