/*
rate.go - Hourly rate and bonus decomposer

PURPOSE:
  Derives the base and effective hourly rates for one payslip and
  reattributes each bonus line to a quantity × unit-rate breakdown.

  baseHourlyRate      = base-salary-classified earnings / theoretical hours
  effectiveHourlyRate = earnings minus exclusions / actual worked hours

  Actual hours come from time entries when any exist; the calendar is the
  fallback (flagged, not silent). Retroactive lines settle other periods
  and are excluded from the effective numerator.
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// CONFIGURATION
// =============================================================================

// RateConfig parametrizes the decomposition. Zero value uses the built-in
// classification sets from concept.go.
type RateConfig struct {
	// BaseConcepts overrides the base-salary-classified set.
	BaseConcepts map[ConceptID]bool

	// Exclusions are earnings left out of the effective numerator,
	// e.g. expense reimbursements.
	Exclusions map[ConceptID]bool
}

func (c RateConfig) baseConcepts() map[ConceptID]bool {
	if c.BaseConcepts != nil {
		return c.BaseConcepts
	}
	return BaseSalaryConcepts
}

func (c RateConfig) exclusions() map[ConceptID]bool {
	if c.Exclusions != nil {
		return c.Exclusions
	}
	return map[ConceptID]bool{ConceptExpenses: true}
}

// =============================================================================
// DECOMPOSITION RESULT
// =============================================================================

// PlusLine is one bonus reattributed to quantity × unitRate = amount.
type PlusLine struct {
	Concept  ConceptID
	Quantity decimal.Decimal
	UnitRate decimal.Decimal
	Amount   Money

	// RateRecomputed marks a unit rate derived from amount/quantity because
	// the source line carried no rate.
	RateRecomputed bool
}

type Decomposition struct {
	EmployeeID EmployeeID
	Label      PeriodLabel

	BaseHourlyRate      Money
	EffectiveHourlyRate Money

	TheoreticalHours HourCount
	ActualHours      HourCount

	PlusBreakdown []PlusLine
	Warnings      []DataQualityWarning
}

// =============================================================================
// DECOMPOSER
// =============================================================================

// Decompose computes both hourly rates and the bonus breakdown for one
// canonicalized payslip.
func Decompose(p PayPeriod, calendar *CalendarSnapshot, entries []TimeEntry, cfg RateConfig) (Decomposition, error) {
	period, err := p.Label.Period()
	if err != nil {
		return Decomposition{}, &ConfigurationError{Field: "period", Detail: err.Error()}
	}

	out := Decomposition{EmployeeID: p.EmployeeID, Label: p.Label}

	theoretical := calendar.TheoreticalHours(p.EmployeeID, period)
	out.TheoreticalHours = theoretical.Total
	if theoretical.Warning != nil {
		out.Warnings = append(out.Warnings, DataQualityWarning{
			Code:    WarnCalendarGap,
			Period:  p.Label,
			Message: theoretical.Warning.String(),
		})
	}

	// Base rate: base-salary-classified earnings over theoretical hours.
	baseTotal := Money{}
	for _, l := range p.Lines {
		if l.Kind == KindEarning && cfg.baseConcepts()[l.Concept] {
			baseTotal = baseTotal.Add(l.Amount)
		}
	}
	if out.TheoreticalHours.IsPositive() {
		out.BaseHourlyRate = baseTotal.Div(out.TheoreticalHours.Value)
	}

	// Effective rate: all earnings except exclusions and retroactive
	// settlements, over actual worked hours.
	effectiveTotal := Money{}
	for _, l := range p.Lines {
		if l.Kind != KindEarning || l.Retroactive || cfg.exclusions()[l.Concept] {
			continue
		}
		effectiveTotal = effectiveTotal.Add(l.Amount)
	}

	actual := WorkedHours(entries, period)
	if actual.IsZero() {
		// No time entries for the period: the calendar stands in.
		actual = out.TheoreticalHours
		out.Warnings = append(out.Warnings, DataQualityWarning{
			Code:    WarnHoursFromCalendar,
			Period:  p.Label,
			Message: "no time entries; actual hours taken from calendar",
		})
	}
	out.ActualHours = actual
	if actual.IsPositive() {
		out.EffectiveHourlyRate = effectiveTotal.Div(actual.Value)
	}

	out.PlusBreakdown, out.Warnings = decomposePluses(p, out.Warnings)
	return out, nil
}

// decomposePluses reattributes each bonus line. When only amount and
// quantity are known the unit rate is recomputed; a quantity×rate product
// that disagrees with the amount is flagged, never corrected.
func decomposePluses(p PayPeriod, warnings []DataQualityWarning) ([]PlusLine, []DataQualityWarning) {
	var out []PlusLine
	for _, l := range p.Lines {
		if l.Kind != KindEarning || !PlusConcepts[l.Concept] {
			continue
		}

		plus := PlusLine{Concept: l.Concept, Amount: l.Amount}
		switch {
		case l.Quantity != nil && l.UnitRate != nil:
			plus.Quantity = *l.Quantity
			plus.UnitRate = *l.UnitRate
			if w := l.CheckQuantityRate(); w != nil {
				w.Period = p.Label
				warnings = append(warnings, *w)
			}
		case l.Quantity != nil && !l.Quantity.IsZero():
			plus.Quantity = *l.Quantity
			plus.UnitRate = l.Amount.Value.Div(*l.Quantity)
			plus.RateRecomputed = true
		default:
			// Amount-only bonus: a single unit at the full amount.
			plus.Quantity = decimal.NewFromInt(1)
			plus.UnitRate = l.Amount.Value
			plus.RateRecomputed = true
		}
		out = append(out, plus)
	}
	return out, warnings
}
