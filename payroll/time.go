package payroll

import (
	"fmt"
	"time"
)

// =============================================================================
// DATE - Day-granular calendar date (payroll records are keyed by day)
// =============================================================================

type Date struct {
	Time time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DateFrom(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date { return DateFrom(time.Now().UTC()) }

// ParseDate accepts the "2006-01-02" form used across record snapshots.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return DateFrom(t), nil
}

// Comparison
func (d Date) BeforeDay(o Date) bool { return d.normalize().Before(o.normalize()) }
func (d Date) AfterDay(o Date) bool  { return d.normalize().After(o.normalize()) }
func (d Date) EqualDay(o Date) bool  { return d.normalize().Equal(o.normalize()) }
func (d Date) OnOrBefore(o Date) bool { return !d.AfterDay(o) }
func (d Date) OnOrAfter(o Date) bool  { return !d.BeforeDay(o) }

func (d Date) normalize() time.Time {
	return time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (d Date) AddDays(n int) Date   { return Date{Time: d.Time.AddDate(0, 0, n)} }
func (d Date) AddMonths(n int) Date { return Date{Time: d.Time.AddDate(0, n, 0)} }

// Properties
func (d Date) Year() int             { return d.Time.Year() }
func (d Date) Month() time.Month     { return d.Time.Month() }
func (d Date) Day() int              { return d.Time.Day() }
func (d Date) Weekday() time.Weekday { return d.Time.Weekday() }
func (d Date) IsZero() bool          { return d.Time.IsZero() }
func (d Date) IsWeekend() bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

func (d Date) String() string { return d.Time.Format("2006-01-02") }

// DaysBetween counts whole days from one date to another (positive when to
// is later).
func DaysBetween(from, to Date) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) Date { return NewDate(year, month, 1) }

func EndOfMonth(year int, month time.Month) Date {
	t := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	return Date{Time: t}
}

// MinDate/MaxDate clamp helpers used by window intersection.
func MinDate(a, b Date) Date {
	if a.BeforeDay(b) {
		return a
	}
	return b
}

func MaxDate(a, b Date) Date {
	if a.AfterDay(b) {
		return a
	}
	return b
}
