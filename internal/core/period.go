package core

import (
	"fmt"
	"time"
)

// Period is the budget cadence.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
	Yearly  Period = "yearly"
	Custom  Period = "custom"
)

// Window computes the last day of a budget window from its first day.
// Each period has its own strategy.
type Window interface {
	End(start Date) Date
}

// DailyWindow covers the start day only.
type DailyWindow struct{}

func (DailyWindow) End(start Date) Date { return start }

// WeeklyWindow covers seven days.
type WeeklyWindow struct{}

func (WeeklyWindow) End(start Date) Date { return start.AddDays(6) }

// MonthlyWindow runs to the day before the same day next month. When the
// next month is shorter the window ends on its last day.
type MonthlyWindow struct{}

func (MonthlyWindow) End(start Date) Date {
	t := start.Time()
	next := time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	lastDay := time.Date(next.Year(), next.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
	day := t.Day()
	if day > lastDay {
		day = lastDay + 1
	}
	return DateOf(time.Date(next.Year(), next.Month(), day, 0, 0, 0, 0, time.UTC)).AddDays(-1)
}

// YearlyWindow runs to the day before the same date next year.
type YearlyWindow struct{}

func (YearlyWindow) End(start Date) Date {
	return DateOf(start.Time().AddDate(1, 0, 0)).AddDays(-1)
}

var windows = map[Period]Window{
	Daily:   DailyWindow{},
	Weekly:  WeeklyWindow{},
	Monthly: MonthlyWindow{},
	Yearly:  YearlyWindow{},
}

// WindowFor returns the window strategy of a period. Custom periods have
// none: their end date must be explicit.
func WindowFor(p Period) (Window, error) {
	w, ok := windows[p]
	if !ok {
		return nil, fmt.Errorf("period %q has no default window: %w", p, ErrInvalid)
	}
	return w, nil
}

// Valid reports whether p is a known period.
func (p Period) Valid() bool {
	_, ok := windows[p]
	return ok || p == Custom
}
