/*
compare.go - Generic deviation comparator

PURPOSE:
  Diffs two keyed collections of canonicalized values and classifies the
  differences by configurable thresholds. The same primitive, parametrized
  by key function, drives payslip-concept comparison (key = concept id),
  balance comparison (key = balance type + year) and time-entry comparison
  (key = time category + date).

SYMMETRY INVARIANT:
  Compare(A,B) and Compare(B,A) yield exactly negated deltas, identical
  severities and swapped presence flags. Percent deltas are therefore
  computed against max(|A|,|B|), the only base symmetric in its arguments.

SEVERITY:
  minor        |percent| <  t1
  significant  t1 <= |percent| < t2
  critical     |percent| >= t2
  An absolute-amount floor keeps tiny percentage swings on near-zero bases
  out of the report. A concept present on one side only is never below
  significant - a disappearing concept must surface.
*/
package payroll

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// THRESHOLDS
// =============================================================================

// Thresholds configures severity classification. Percent bounds are
// expressed as percentages (5 means 5%).
type Thresholds struct {
	MinorBelow      decimal.Decimal // t1
	CriticalAtLeast decimal.Decimal // t2
	AbsoluteFloor   Money
}

// DefaultThresholds matches the published comparison defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinorBelow:      decimal.NewFromInt(5),
		CriticalAtLeast: decimal.NewFromInt(20),
		AbsoluteFloor:   NewMoney(1),
	}
}

// Validate rejects structurally invalid threshold sets.
func (t Thresholds) Validate() error {
	if t.MinorBelow.IsNegative() || t.CriticalAtLeast.IsNegative() {
		return &ConfigurationError{Field: "thresholds", Detail: "negative percent bound"}
	}
	if t.MinorBelow.GreaterThanOrEqual(t.CriticalAtLeast) {
		return &ConfigurationError{Field: "thresholds", Detail: "minor bound must be below critical bound"}
	}
	if t.AbsoluteFloor.IsNegative() {
		return &ConfigurationError{Field: "thresholds", Detail: "negative absolute floor"}
	}
	return nil
}

// =============================================================================
// DEVIATION RECORD
// =============================================================================

type Severity string

const (
	SeverityMinor       Severity = "minor"
	SeveritySignificant Severity = "significant"
	SeverityCritical    Severity = "critical"
)

type Presence string

const (
	PresenceBoth  Presence = "in-both"
	PresenceOnlyA Presence = "only-in-A"
	PresenceOnlyB Presence = "only-in-B"
)

// ComparableItem is one keyed value from either side of a comparison.
type ComparableItem struct {
	Key   string
	Value Money
}

// DeviationRecord is one classified difference. Delta is valueB − valueA;
// for one-sided keys the missing side counts as zero.
type DeviationRecord struct {
	Key          string
	ValueA       Money
	ValueB       Money
	Delta        Money
	PercentDelta decimal.Decimal
	Severity     Severity
	Presence     Presence
}

// =============================================================================
// COMPARATOR
// =============================================================================

// Compare diffs two keyed collections. Duplicate keys on one side are
// summed before diffing. Output is ordered by key for stable results.
func Compare(a, b []ComparableItem, thresholds Thresholds) ([]DeviationRecord, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}

	sumA := sumByKey(a)
	sumB := sumByKey(b)

	keys := make(map[string]bool, len(sumA)+len(sumB))
	for k := range sumA {
		keys[k] = true
	}
	for k := range sumB {
		keys[k] = true
	}

	var out []DeviationRecord
	for key := range keys {
		valueA, inA := sumA[key]
		valueB, inB := sumB[key]

		record := DeviationRecord{Key: key, ValueA: valueA, ValueB: valueB}
		switch {
		case inA && inB:
			record.Presence = PresenceBoth
		case inA:
			record.Presence = PresenceOnlyA
		default:
			record.Presence = PresenceOnlyB
		}

		record.Delta = valueB.Sub(valueA)
		record.PercentDelta = percentDelta(valueA, valueB, record.Delta)
		record.Severity = classify(record, thresholds)
		out = append(out, record)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func sumByKey(items []ComparableItem) map[string]Money {
	out := make(map[string]Money, len(items))
	for _, it := range items {
		out[it.Key] = out[it.Key].Add(it.Value)
	}
	return out
}

// percentDelta uses max(|A|,|B|) as base so that swapping arguments negates
// the result exactly.
func percentDelta(a, b, delta Money) decimal.Decimal {
	base := a.Abs().Value
	if b.Abs().Value.GreaterThan(base) {
		base = b.Abs().Value
	}
	if base.IsZero() {
		return decimal.Zero
	}
	return delta.Value.Div(base).Mul(decimal.NewFromInt(100))
}

func classify(r DeviationRecord, t Thresholds) Severity {
	oneSided := r.Presence != PresenceBoth

	// Below the absolute floor, percentage swings on near-zero bases are
	// noise - unless the concept appeared or disappeared entirely.
	if r.Delta.Abs().LessThan(t.AbsoluteFloor) && !oneSided {
		return SeverityMinor
	}

	abs := r.PercentDelta.Abs()
	severity := SeverityMinor
	switch {
	case abs.GreaterThanOrEqual(t.CriticalAtLeast):
		severity = SeverityCritical
	case abs.GreaterThanOrEqual(t.MinorBelow):
		severity = SeveritySignificant
	}

	if oneSided && severity == SeverityMinor {
		severity = SeveritySignificant
	}
	return severity
}

// =============================================================================
// KEY ADAPTERS - The three comparison families
// =============================================================================

// ConceptItems keys payslip lines by canonical concept id. Deduction
// amounts are kept positive; the kind is part of the key so an earning and
// a deduction under the same concept never cancel.
func ConceptItems(p PayPeriod) []ComparableItem {
	items := make([]ComparableItem, 0, len(p.Lines))
	for _, l := range p.Lines {
		items = append(items, ComparableItem{
			Key:   fmt.Sprintf("%s/%s", l.Kind, l.Concept),
			Value: l.Amount,
		})
	}
	return items
}

// BalanceItems keys balances by type and year, comparing the pending
// amount (the figure employees dispute).
func BalanceItems(balances []Balance) []ComparableItem {
	items := make([]ComparableItem, 0, len(balances))
	for _, b := range balances {
		items = append(items, ComparableItem{
			Key:   fmt.Sprintf("%s/%d", b.Type, b.Year),
			Value: Money{Value: b.Pending},
		})
	}
	return items
}

// TimeEntryItems keys entries by category and date, comparing hours.
func TimeEntryItems(entries []TimeEntry) []ComparableItem {
	items := make([]ComparableItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, ComparableItem{
			Key:   fmt.Sprintf("%s/%s", e.Category, e.Date),
			Value: Money{Value: e.Hours.Value},
		})
	}
	return items
}

// =============================================================================
// CROSS-EMPLOYEE COMPARISON AND CATEGORY BENCHMARK
// =============================================================================

// CategoryProfile is the published expectation for one professional
// category: a recommended base salary and the premiums the category must
// carry.
type CategoryProfile struct {
	Code              string
	RecommendedBase   Money
	MandatoryConcepts []ConceptID
}

// BenchmarkResult reports how a payslip measures against its category.
type BenchmarkResult struct {
	Category   string
	Deviations []DeviationRecord
	Missing    []ConceptID
}

// CompareAcrossEmployees diffs one employee's payslip against a reference
// employee's payslip for the same period, using concept keys.
func CompareAcrossEmployees(mine, reference PayPeriod, thresholds Thresholds) ([]DeviationRecord, error) {
	return Compare(ConceptItems(mine), ConceptItems(reference), thresholds)
}

// BenchmarkAgainstCategory checks the base salary against the category
// recommendation and reports mandatory premiums absent from the payslip.
func BenchmarkAgainstCategory(p PayPeriod, profile CategoryProfile, thresholds Thresholds) (BenchmarkResult, error) {
	result := BenchmarkResult{Category: profile.Code}

	base := Money{}
	if line := p.LineFor(ConceptBaseSalary); line != nil {
		base = line.Amount
	}
	deviations, err := Compare(
		[]ComparableItem{{Key: string(ConceptBaseSalary), Value: base}},
		[]ComparableItem{{Key: string(ConceptBaseSalary), Value: profile.RecommendedBase}},
		thresholds,
	)
	if err != nil {
		return BenchmarkResult{}, err
	}
	result.Deviations = deviations

	for _, id := range profile.MandatoryConcepts {
		if p.LineFor(id) == nil {
			result.Missing = append(result.Missing, id)
		}
	}
	return result, nil
}
