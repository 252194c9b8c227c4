package core

import (
	"errors"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in string
		ok bool
	}{
		{"2024-01-15", true},
		{"2024-02-29", true},
		{"2023-02-29", false},
		{"2024-1-15", false},
		{"15/01/2024", false},
		{"2024-01-15T10:00:00Z", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			_, err := ParseDate(tt.in)
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestDateOrderingIsLexicographic(t *testing.T) {
	a, b := Date("2024-01-31"), Date("2024-02-01")
	if !a.Before(b) || !b.After(a) {
		t.Fatalf("expected %s before %s", a, b)
	}
	if !Date("2024-03-10").Within("2024-03-10", "2024-03-10") {
		t.Fatal("range bounds must be inclusive")
	}
	if !Date("2024-03-10").Within("", "") {
		t.Fatal("empty bounds must be open")
	}
	if Date("2024-03-11").Within("", "2024-03-10") {
		t.Fatal("date after upper bound matched")
	}
}

func TestDateParts(t *testing.T) {
	d := NewDate(2024, time.March, 5)
	if d != "2024-03-05" {
		t.Fatalf("NewDate = %s", d)
	}
	if d.Year() != "2024" || d.Month() != "2024-03" {
		t.Fatalf("Year/Month = %s/%s", d.Year(), d.Month())
	}
	if got := d.AddDays(27); got != "2024-04-01" {
		t.Fatalf("AddDays = %s", got)
	}
}
