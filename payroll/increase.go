/*
increase.go - Retroactive salary-increase calculator

PURPOSE:
  Applies salary-increase definitions with validity windows to historical
  payslips and computes the owed differential per period, prorated by
  calendar-day coverage (partial-month proration, never whole-period
  assumption).

STACKING POLICY:
  Multiple increases on the same concept compose multiplicatively in
  validity-window start-date order: finalFactor = Π(1 + pᵢ) over the
  increases whose window covers each day. Additive stacking is available
  as a configurable policy; the multiplicative default is a recorded
  policy decision, not an assumption baked into callers.

IDEMPOTENCE:
  The calculator is a pure function of its inputs. Historical payslips are
  never mutated; reapplying the same increase set yields identical deltas.
*/
package payroll

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// COMPOSITION POLICY
// =============================================================================

type CompositionPolicy string

const (
	// CompositionMultiplicative compounds factors: (1+a)(1+b).
	CompositionMultiplicative CompositionPolicy = "multiplicative"

	// CompositionAdditive sums percentages: 1+(a+b). Kept configurable
	// because collective agreements differ on stacking semantics.
	CompositionAdditive CompositionPolicy = "additive"
)

// ValidateIncrease rejects structurally invalid increase definitions.
func ValidateIncrease(inc SalaryIncrease) error {
	if inc.Percent.IsNegative() {
		return &ConfigurationError{Field: "increase.percent", Detail: "negative percentage"}
	}
	if inc.To != nil && inc.To.BeforeDay(inc.From) {
		return &ConfigurationError{Field: "increase.window", Detail: "end date before start date"}
	}
	if inc.Concept == "" {
		return &ConfigurationError{Field: "increase.concept", Detail: "missing target concept"}
	}
	return nil
}

// CompositeFactor composes every increase covering the date for the
// concept, in validity-window start-date order.
func CompositeFactor(increases []SalaryIncrease, concept ConceptID, d Date, policy CompositionPolicy) decimal.Decimal {
	var active []SalaryIncrease
	for _, inc := range increases {
		if inc.Concept == concept && inc.Covers(d) {
			active = append(active, inc)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].From.BeforeDay(active[j].From) })

	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)

	if policy == CompositionAdditive {
		sum := decimal.Zero
		for _, inc := range active {
			sum = sum.Add(inc.Percent)
		}
		return one.Add(sum.Div(hundred))
	}

	factor := one
	for _, inc := range active {
		factor = factor.Mul(inc.Factor())
	}
	return factor
}

// =============================================================================
// RETROACTIVE APPLICATION
// =============================================================================

// RetroRow is the correction for one period and one concept.
type RetroRow struct {
	Label           PeriodLabel
	Concept         ConceptID
	OriginalAmount  Money
	CorrectedAmount Money
	OwedDelta       Money

	// CoveredDays / PeriodDays expose the proration applied.
	CoveredDays int
	PeriodDays  int
}

// RetroResult aggregates corrections over all affected periods.
type RetroResult struct {
	Rows      []RetroRow
	TotalOwed Money

	// Incomplete marks a result missing data for some requested period.
	Incomplete bool
	Warnings   []DataQualityWarning
}

// ApplyRetroactive computes owed differentials for every affected period
// whose dates fall inside any increase window. Proration walks calendar
// days: each day covered by a window contributes its share of the period
// amount times (factor − 1).
//
// Returns a MissingBaselineError alongside a partial result when no
// affected periods were supplied; the partial result stays usable.
func ApplyRetroactive(increases []SalaryIncrease, affected []PayPeriod, policy CompositionPolicy) (RetroResult, error) {
	for _, inc := range increases {
		if err := ValidateIncrease(inc); err != nil {
			return RetroResult{}, err
		}
	}
	if len(affected) == 0 {
		return RetroResult{Incomplete: true}, &MissingBaselineError{Detail: "no affected periods supplied"}
	}

	concepts := targetedConcepts(increases)
	result := RetroResult{}

	for _, p := range affected {
		period, err := p.Label.Period()
		if err != nil {
			return RetroResult{}, &ConfigurationError{Field: "period", Detail: err.Error()}
		}

		for _, concept := range concepts {
			line := p.LineFor(concept)
			if line == nil {
				result.Incomplete = true
				result.Warnings = append(result.Warnings, DataQualityWarning{
					Code:    WarnIncomplete,
					Period:  p.Label,
					Concept: concept,
					Message: "period has no line for the targeted concept",
				})
				continue
			}

			row := prorateOverDays(*line, p.Label, period, increases, concept, policy)
			if row.CoveredDays == 0 {
				continue // window never touches this period
			}
			result.Rows = append(result.Rows, row)
			result.TotalOwed = result.TotalOwed.Add(row.OwedDelta)
		}
	}

	sort.Slice(result.Rows, func(i, j int) bool {
		if result.Rows[i].Label != result.Rows[j].Label {
			return result.Rows[i].Label < result.Rows[j].Label
		}
		return result.Rows[i].Concept < result.Rows[j].Concept
	})
	return result, nil
}

func targetedConcepts(increases []SalaryIncrease) []ConceptID {
	seen := make(map[ConceptID]bool)
	var out []ConceptID
	for _, inc := range increases {
		if !seen[inc.Concept] {
			seen[inc.Concept] = true
			out = append(out, inc.Concept)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// prorateOverDays distributes the period amount uniformly over calendar
// days and applies each day's composite factor. A window covering half the
// days therefore owes half the full-period delta.
func prorateOverDays(line ConceptLine, label PeriodLabel, period Period, increases []SalaryIncrease, concept ConceptID, policy CompositionPolicy) RetroRow {
	days := period.CalendarDays()
	daily := line.Amount.Div(decimal.NewFromInt(int64(days)))
	one := decimal.NewFromInt(1)

	owed := Money{}
	covered := 0
	for _, d := range period.Days() {
		factor := CompositeFactor(increases, concept, d, policy)
		if factor.Equal(one) {
			continue
		}
		covered++
		owed = owed.Add(daily.Mul(factor.Sub(one)))
	}

	return RetroRow{
		Label:           label,
		Concept:         concept,
		OriginalAmount:  line.Amount,
		CorrectedAmount: line.Amount.Add(owed),
		OwedDelta:       owed,
		CoveredDays:     covered,
		PeriodDays:      days,
	}
}
