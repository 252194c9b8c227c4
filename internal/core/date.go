package core

import (
	"fmt"
	"time"
)

// DateLayout is the only accepted calendar date format.
const DateLayout = "2006-01-02"

// Date is a calendar day in YYYY-MM-DD form.
//
// Dates are compared as strings. The layout is fixed width so lexicographic
// order equals chronological order, and no time zone ever shifts a day.
type Date string

// ParseDate validates s as a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	if len(s) != len(DateLayout) {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, ErrInvalid)
	}
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", fmt.Errorf("date %q must be YYYY-MM-DD: %w", s, ErrInvalid)
	}
	return Date(s), nil
}

// NewDate builds a Date from its components.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar day of t in t's own location.
func DateOf(t time.Time) Date {
	return Date(t.Format(DateLayout))
}

// Today returns the current local calendar day.
func Today() Date {
	return DateOf(time.Now())
}

func (d Date) String() string { return string(d) }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d == "" }

// Validate reports whether d is a well formed date.
func (d Date) Validate() error {
	_, err := ParseDate(string(d))
	return err
}

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d < o }

// After reports whether d is strictly later than o.
func (d Date) After(o Date) bool { return d > o }

// Within reports whether d lies in the inclusive range [from, to].
// An empty bound is open.
func (d Date) Within(from, to Date) bool {
	if from != "" && d < from {
		return false
	}
	if to != "" && d > to {
		return false
	}
	return true
}

// Year returns the YYYY prefix.
func (d Date) Year() string {
	if len(d) < 4 {
		return ""
	}
	return string(d[:4])
}

// Month returns the YYYY-MM prefix.
func (d Date) Month() string {
	if len(d) < 7 {
		return ""
	}
	return string(d[:7])
}

// Time returns midnight UTC of the day. Only used for calendar arithmetic.
func (d Date) Time() time.Time {
	t, _ := time.Parse(DateLayout, string(d))
	return t
}

// AddDays shifts the date by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}
