/*
calendar.go - Calendar resolver

PURPOSE:
  Resolves theoretical working hours, shift assignment and day
  classification for any (employee, date). The calendar is the denominator
  of the base hourly rate and the scaling source for predictions.

OVERLAP POLICY:
  Exactly one effective CalendarDay per (employee, date). When several
  writes exist for the same date (bulk import plus pattern application
  plus manual edit), the most recently written entry wins; on equal
  timestamps the more deliberate source wins (manual > pattern > import).

GAPS:
  With a configured default day the resolver falls back to it silently.
  With no default, hours fall back to DefaultDailyHours and the result
  carries a CalendarGapWarning - the gap is never silently zeroed.
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAY TYPES AND SHIFTS
// =============================================================================

type DayType string

const (
	DayWorking       DayType = "working"
	DayHoliday       DayType = "holiday"
	DayVacation      DayType = "vacation"
	DayLeave         DayType = "leave"
	DaySick          DayType = "sick"
	DayHolidayWorked DayType = "holiday_worked"
	DayTimeOffInLieu DayType = "time_off_in_lieu"
)

// CountsAsWorking reports whether the day contributes theoretical hours.
func (t DayType) CountsAsWorking() bool {
	return t == DayWorking || t == DayHolidayWorked
}

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
	ShiftNight     Shift = "night"
	ShiftSplit     Shift = "split"
	ShiftRotating  Shift = "rotating"
	ShiftNone      Shift = ""
)

// CalendarSource orders writes of equal timestamp: manual edits beat
// pattern application, which beats bulk imports.
type CalendarSource int

const (
	SourceImport CalendarSource = iota
	SourcePattern
	SourceManual
)

// DefaultDailyHours is the documented fallback when a date resolves to no
// calendar entry and no default day is configured.
var DefaultDailyHours = decimal.NewFromInt(8)

// =============================================================================
// CALENDAR DAY - One resolved day for one employee
// =============================================================================

type CalendarDay struct {
	EmployeeID       EmployeeID
	Date             Date
	Type             DayType
	Shift            Shift
	TheoreticalHours decimal.Decimal

	Source    CalendarSource
	WrittenAt Date
}

func (c CalendarDay) supersedes(o CalendarDay) bool {
	if c.WrittenAt.EqualDay(o.WrittenAt) {
		return c.Source > o.Source
	}
	return c.WrittenAt.AfterDay(o.WrittenAt)
}

// =============================================================================
// CALENDAR SNAPSHOT - Immutable per-batch view of all calendar entries
// =============================================================================

type calendarKey struct {
	employee EmployeeID
	date     string
}

// CalendarSnapshot is read-only for the duration of a batch. Build a new
// snapshot to apply calendar changes between batches.
type CalendarSnapshot struct {
	days       map[calendarKey]CalendarDay
	defaultDay *CalendarDay
}

// NewCalendarSnapshot resolves duplicate (employee, date) writes by the
// overlap policy and freezes the result.
func NewCalendarSnapshot(entries []CalendarDay) *CalendarSnapshot {
	s := &CalendarSnapshot{days: make(map[calendarKey]CalendarDay, len(entries))}
	for _, e := range entries {
		key := calendarKey{e.EmployeeID, e.Date.String()}
		if existing, ok := s.days[key]; !ok || e.supersedes(existing) {
			s.days[key] = e
		}
	}
	return s
}

// WithDefaultDay returns a copy of the snapshot that resolves gaps to the
// given day template instead of warning.
func (s *CalendarSnapshot) WithDefaultDay(d CalendarDay) *CalendarSnapshot {
	return &CalendarSnapshot{days: s.days, defaultDay: &d}
}

// ResolveDay returns the effective calendar day. The boolean reports
// whether an explicit or default entry existed; false means the fallback
// constant was used and the caller should record a CalendarGapWarning.
func (s *CalendarSnapshot) ResolveDay(id EmployeeID, d Date) (CalendarDay, bool) {
	if day, ok := s.days[calendarKey{id, d.String()}]; ok {
		return day, true
	}
	if s.defaultDay != nil {
		day := *s.defaultDay
		day.EmployeeID = id
		day.Date = d
		return day, true
	}
	// Documented fallback: weekdays count as working days of default hours.
	day := CalendarDay{EmployeeID: id, Date: d, Type: DayWorking, TheoreticalHours: DefaultDailyHours}
	if d.IsWeekend() {
		day.Type = DayHoliday
		day.TheoreticalHours = decimal.Zero
	}
	return day, false
}

// DayBreakdown is the per-day slice of a theoretical-hours total.
type DayBreakdown struct {
	Day   CalendarDay
	Hours decimal.Decimal
}

// TheoreticalHoursResult carries the total, its per-day breakdown and any
// gap warning produced by the fallback.
type TheoreticalHoursResult struct {
	Total    HourCount
	PerDay   []DayBreakdown
	GapDates []Date
	Warning  *CalendarGapWarning
}

// TheoreticalHours sums expected hours over the period. Only day types that
// count as working contribute.
func (s *CalendarSnapshot) TheoreticalHours(id EmployeeID, period Period) TheoreticalHoursResult {
	result := TheoreticalHoursResult{Total: HourCount{Value: decimal.Zero}}
	for _, d := range period.Days() {
		day, resolved := s.ResolveDay(id, d)
		if !resolved {
			result.GapDates = append(result.GapDates, d)
		}
		hours := decimal.Zero
		if day.Type.CountsAsWorking() {
			hours = day.TheoreticalHours
		}
		result.PerDay = append(result.PerDay, DayBreakdown{Day: day, Hours: hours})
		result.Total = result.Total.Add(HourCount{Value: hours})
	}
	if len(result.GapDates) > 0 {
		result.Warning = &CalendarGapWarning{
			EmployeeID: id,
			From:       result.GapDates[0],
			To:         result.GapDates[len(result.GapDates)-1],
		}
	}
	return result
}

// WorkingDays counts days classified as working in the period.
func (s *CalendarSnapshot) WorkingDays(id EmployeeID, period Period) int {
	count := 0
	for _, d := range period.Days() {
		if day, _ := s.ResolveDay(id, d); day.Type.CountsAsWorking() {
			count++
		}
	}
	return count
}

// NightShiftDays counts working days assigned to the night shift, used by
// the prediction engine to forecast the night premium quantity.
func (s *CalendarSnapshot) NightShiftDays(id EmployeeID, period Period) int {
	count := 0
	for _, d := range period.Days() {
		day, _ := s.ResolveDay(id, d)
		if day.Type.CountsAsWorking() && day.Shift == ShiftNight {
			count++
		}
	}
	return count
}

// Entries returns the resolved entries for an employee ordered by date,
// for persistence and display.
func (s *CalendarSnapshot) Entries(id EmployeeID) []CalendarDay {
	var out []CalendarDay
	for key, day := range s.days {
		if key.employee == id {
			out = append(out, day)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.BeforeDay(out[j].Date) })
	return out
}

// =============================================================================
// WEEKLY PATTERN - Template expanded into override writes
// =============================================================================

// PatternDay is the template for one weekday of a weekly pattern.
type PatternDay struct {
	Type  DayType
	Shift Shift
	Hours decimal.Decimal
}

// WeeklyPattern assigns day templates per weekday (time.Weekday indexed,
// Sunday = 0). Missing weekdays stay untouched.
type WeeklyPattern struct {
	Days map[int]PatternDay
}

// Apply expands the pattern over the date range into CalendarDay writes
// stamped as pattern-sourced so they supersede bulk imports.
func (p WeeklyPattern) Apply(id EmployeeID, period Period, writtenAt Date) []CalendarDay {
	var out []CalendarDay
	for _, d := range period.Days() {
		tmpl, ok := p.Days[int(d.Weekday())]
		if !ok {
			continue
		}
		out = append(out, CalendarDay{
			EmployeeID:       id,
			Date:             d,
			Type:             tmpl.Type,
			Shift:            tmpl.Shift,
			TheoreticalHours: tmpl.Hours,
			Source:           SourcePattern,
			WrittenAt:        writtenAt,
		})
	}
	return out
}
