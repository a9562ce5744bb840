/*
errors.go - Error and warning taxonomy for the payroll engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The engine distinguishes three families:

  1. Data-quality warnings - attached to results, never abort anything
  2. Missing-baseline errors - recoverable, partial results flagged incomplete
  3. Configuration errors - fatal for the single affected request only

PROPAGATION POLICY:
  Warnings are always carried on the result object; a batch of independent
  comparisons or predictions never fails because one input is malformed.
  Errors are scoped to the request that triggered them (see batch.go).

USAGE:
  if errors.Is(err, payroll.ErrMissingBaseline) {
      // keep the partial result, mark incomplete
  }
*/
package payroll

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingBaseline is returned when a retroactive or prediction request
	// references a period/employee combination with no historical data.
	ErrMissingBaseline = errors.New("missing baseline period data")

	// ErrInvalidConfiguration is returned when thresholds, alias tables or
	// increase definitions are structurally invalid.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrEmployeeNotFound is returned when a referenced employee has no
	// records in the supplied snapshot.
	ErrEmployeeNotFound = errors.New("employee not found in snapshot")

	// ErrPeriodNotFound is returned by stores when no payslip exists for
	// the requested (employee, label).
	ErrPeriodNotFound = errors.New("pay period not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingBaselineError reports which baseline was absent. Calculators return
// it together with a partial result rather than failing the whole batch.
type MissingBaselineError struct {
	EmployeeID EmployeeID
	Label      PeriodLabel
	Detail     string
}

func (e *MissingBaselineError) Error() string {
	return fmt.Sprintf("no baseline for employee %s period %s: %s", e.EmployeeID, e.Label, e.Detail)
}

func (e *MissingBaselineError) Unwrap() error { return ErrMissingBaseline }

// ConfigurationError reports a structurally invalid configuration input.
// It fails the single offending request; others in the batch proceed.
type ConfigurationError struct {
	Field  string
	Detail string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Detail)
}

func (e *ConfigurationError) Unwrap() error { return ErrInvalidConfiguration }

// =============================================================================
// WARNINGS - Values attached to results, never Go errors
// =============================================================================

type WarningCode string

const (
	WarnUnmappedConcept      WarningCode = "unmapped_concept"
	WarnNetMismatch          WarningCode = "net_mismatch"
	WarnQuantityRateMismatch WarningCode = "quantity_rate_mismatch"
	WarnBalanceMismatch      WarningCode = "balance_mismatch"
	WarnOverdraft            WarningCode = "overdraft"
	WarnCalendarGap          WarningCode = "calendar_gap"
	WarnHoursFromCalendar    WarningCode = "hours_from_calendar"
	WarnIncomplete           WarningCode = "incomplete_result"
)

// DataQualityWarning flags an inconsistency found in the input records.
// It is attached to the output and never dropped.
type DataQualityWarning struct {
	Code     WarningCode
	Period   PeriodLabel
	Concept  ConceptID
	Message  string
	Expected Money
	Actual   Money
}

func (w DataQualityWarning) String() string {
	if w.Concept != "" {
		return fmt.Sprintf("%s [%s/%s]: %s", w.Code, w.Period, w.Concept, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Period, w.Message)
}

// CalendarGapWarning flags a date range with no resolvable calendar entry
// and no configured default. Theoretical hours fall back to
// DefaultDailyHours and the result carries this warning.
type CalendarGapWarning struct {
	EmployeeID EmployeeID
	From       Date
	To         Date
}

func (w CalendarGapWarning) String() string {
	return fmt.Sprintf("calendar gap for %s: %s..%s (default hours assumed)", w.EmployeeID, w.From, w.To)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRequestError reports whether the error is scoped to a single request
// (as opposed to an engine defect).
func IsRequestError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrMissingBaseline) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrEmployeeNotFound) ||
		errors.Is(err, ErrPeriodNotFound)
}

// IsRecoverable reports whether a partial result accompanies the error.
func IsRecoverable(err error) bool {
	return errors.Is(err, ErrMissingBaseline)
}
