package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// PERIOD - Inclusive date range covered by a payslip or a calculation
// =============================================================================

type Period struct {
	Start Date
	End   Date
}

// Contains returns true if the date is within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.OnOrAfter(p.Start) && d.OnOrBefore(p.End)
}

// CalendarDays counts the days in the period, both ends included.
func (p Period) CalendarDays() int {
	return DaysBetween(p.Start, p.End) + 1
}

// Days enumerates every day in the period.
func (p Period) Days() []Date {
	var days []Date
	for current := p.Start; current.OnOrBefore(p.End); current = current.AddDays(1) {
		days = append(days, current)
	}
	return days
}

// Intersect clips the period to a validity window. The second return is
// false when they do not overlap. A nil windowEnd means open-ended.
func (p Period) Intersect(windowStart Date, windowEnd *Date) (Period, bool) {
	start := MaxDate(p.Start, windowStart)
	end := p.End
	if windowEnd != nil {
		end = MinDate(p.End, *windowEnd)
	}
	if start.AfterDay(end) {
		return Period{}, false
	}
	return Period{Start: start, End: end}, true
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// =============================================================================
// PERIOD LABEL - "2006-01" month identifier used on payslips
// =============================================================================

type PeriodLabel string

// LabelFor builds the month label containing the date.
func LabelFor(d Date) PeriodLabel {
	return PeriodLabel(d.Time.Format("2006-01"))
}

// Parse splits the label into year and month.
func (l PeriodLabel) Parse() (int, time.Month, error) {
	t, err := time.Parse("2006-01", string(l))
	if err != nil {
		return 0, 0, fmt.Errorf("parse period label %q: %w", string(l), err)
	}
	return t.Year(), t.Month(), nil
}

// Period expands the label to the full calendar month.
func (l PeriodLabel) Period() (Period, error) {
	year, month, err := l.Parse()
	if err != nil {
		return Period{}, err
	}
	return Period{Start: StartOfMonth(year, month), End: EndOfMonth(year, month)}, nil
}

// Previous returns the label of the prior month.
func (l PeriodLabel) Previous() PeriodLabel {
	year, month, err := l.Parse()
	if err != nil {
		return l
	}
	return LabelFor(StartOfMonth(year, month).AddMonths(-1))
}

// MonthsBetween returns the signed month distance from l to other.
func (l PeriodLabel) MonthsBetween(other PeriodLabel) int {
	y1, m1, err1 := l.Parse()
	y2, m2, err2 := other.Parse()
	if err1 != nil || err2 != nil {
		return 0
	}
	return (y2-y1)*12 + int(m2-m1)
}

// Before reports whether l identifies an earlier month than other.
func (l PeriodLabel) Before(other PeriodLabel) bool {
	return l.MonthsBetween(other) > 0
}
