package core

import (
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

// Date is a calendar day pinned to 12:00 UTC. The fixed noon anchor keeps
// day-of-month and month-add arithmetic stable across timezone boundaries.
type Date struct {
	time.Time
}

// NewDate builds a Date from calendar components. Out-of-range values roll
// forward by normal calendar arithmetic (month 13 becomes January of the
// next year, day 31 in a 30-day month becomes the 1st of the next month).
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 12, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// Today returns the current calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

// Day returns the day of the month.
func (d Date) Day() int { return d.Time.Day() }

// MonthInt returns the month as 1-12.
func (d Date) MonthInt() int { return int(d.Time.Month()) }

// Year returns the calendar year.
func (d Date) Year() int { return d.Time.Year() }

// Month returns the YYYY-MM key the date falls in.
func (d Date) Month() MonthKey {
	return MonthKey(d.Time.Format(monthLayout))
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Time.Format(dateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

// UnmarshalJSON parses a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MonthKey is a calendar month in literal YYYY-MM form. The empty key means
// "no month" (e.g. a fixed bill that was never paid).
type MonthKey string

// ParseMonthKey validates a YYYY-MM string.
func ParseMonthKey(s string) (MonthKey, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return "", ErrInvalidMonth
	}
	return MonthKey(t.Format(monthLayout)), nil
}

// MonthKeyOf returns the key for a given year and month.
func MonthKeyOf(year, month int) MonthKey {
	return NewDate(year, month, 1).Month()
}

// IsZero reports whether the key is empty.
func (m MonthKey) IsZero() bool { return m == "" }

// Contains reports whether the date falls inside this month. Month scoping
// is a plain string-prefix match on the date's YYYY-MM form.
func (m MonthKey) Contains(d Date) bool {
	return d.Month() == m
}

// Date returns noon of the given day inside this month; it assumes the key
// has been validated. Day overflow rolls forward.
func (m MonthKey) Date(day int) Date {
	t, _ := time.Parse(monthLayout, string(m))
	return NewDate(t.Year(), int(t.Month()), day)
}

// Days returns the number of days in the month, or 0 for an invalid key.
func (m MonthKey) Days() int {
	t, err := time.Parse(monthLayout, string(m))
	if err != nil {
		return 0
	}
	// day 0 of the next month is the last day of this one
	return time.Date(t.Year(), t.Month()+1, 0, 12, 0, 0, 0, time.UTC).Day()
}

func (m MonthKey) String() string { return string(m) }
