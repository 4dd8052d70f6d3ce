// Package period derives the accounting window that applies to a budget
// at a point in time. Windows are half-open [Start, End) date ranges at
// day granularity, anchored to the budget's start date.
package period

import (
	"time"

	apperrors "famfin/internal/errors"
	"famfin/internal/models"
)

// Window is a half-open [Start, End) range. A zero End means the window is
// unbounded above (open-ended custom budgets) and never rolls.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end,omitempty"`
}

// Bounded reports whether the window has an upper edge.
func (w Window) Bounded() bool {
	return !w.End.IsZero()
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if t.Before(w.Start) {
		return false
	}
	return !w.Bounded() || t.Before(w.End)
}

// Current returns the window of the given period kind, anchored at startDate,
// that applies at asOf. A reference time before the start date yields the
// first window; endDate is only meaningful for custom periods.
func Current(kind models.BudgetPeriod, startDate time.Time, endDate *time.Time, asOf time.Time) (Window, error) {
	start := dateOf(startDate)

	switch kind {
	case models.BudgetPeriodWeekly:
		return weeklyWindow(start, asOf), nil
	case models.BudgetPeriodMonthly:
		return rollingWindow(start, asOf, monthAnchor), nil
	case models.BudgetPeriodYearly:
		return rollingWindow(start, asOf, yearAnchor), nil
	case models.BudgetPeriodCustom:
		if endDate == nil {
			return Window{Start: start}, nil
		}
		end := dateOf(*endDate)
		if end.Before(start) {
			return Window{}, apperrors.WithMessage(apperrors.ErrInvalidPeriod, "custom period ends before it starts")
		}
		return Window{Start: start, End: end}, nil
	}
	return Window{}, apperrors.WithMessage(apperrors.ErrInvalidPeriod, "unknown period kind")
}

// weeklyWindow advances from the anchor by whole weeks until the 7-day
// window contains asOf, keeping the anchor's weekday.
func weeklyWindow(start, asOf time.Time) Window {
	weeks := 0
	if asOf.After(start) {
		weeks = int(asOf.Sub(start).Hours() / (24 * 7))
	}
	ws := start.AddDate(0, 0, weeks*7)
	for asOf.Before(ws) && weeks > 0 {
		weeks--
		ws = start.AddDate(0, 0, weeks*7)
	}
	for !asOf.Before(ws.AddDate(0, 0, 7)) {
		weeks++
		ws = start.AddDate(0, 0, weeks*7)
	}
	if asOf.Before(start) {
		ws = start
	}
	return Window{Start: ws, End: ws.AddDate(0, 0, 7)}
}

// anchorFunc returns the k-th boundary after the start date.
type anchorFunc func(start time.Time, k int) time.Time

// rollingWindow finds k such that [anchor(k), anchor(k+1)) contains asOf.
// Boundaries before the start date collapse to the first window.
func rollingWindow(start, asOf time.Time, anchor anchorFunc) Window {
	if asOf.Before(start) {
		return Window{Start: start, End: anchor(start, 1)}
	}
	k := 0
	for !asOf.Before(anchor(start, k+1)) {
		k++
	}
	return Window{Start: anchor(start, k), End: anchor(start, k+1)}
}

// monthAnchor returns the start date shifted by k calendar months. Months
// lacking the anchor day-of-month clamp to their last day, so a budget
// anchored on the 31st ends its February window on the 28th/29th.
func monthAnchor(start time.Time, k int) time.Time {
	first := time.Date(start.Year(), start.Month()+time.Month(k), 1, 0, 0, 0, 0, start.Location())
	day := start.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, start.Location())
}

// yearAnchor returns the start date shifted by k calendar years, clamping
// Feb 29 anchors to Feb 28 in non-leap years.
func yearAnchor(start time.Time, k int) time.Time {
	first := time.Date(start.Year()+k, start.Month(), 1, 0, 0, 0, 0, start.Location())
	day := start.Day()
	if last := daysIn(first); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, start.Location())
}

// daysIn returns the number of days in t's month.
func daysIn(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, t.Location()).Day()
}

// dateOf truncates t to midnight in its own location.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
