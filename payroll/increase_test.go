/*
increase_test.go - Executable specification of retroactive settlement

ORGANIZATION:
  1. Proration - partial-window coverage owes a proportional delta
  2. Composition - multiplicative vs additive stacking
  3. Idempotence - pure function of inputs
  4. Degradation - missing lines and missing periods
*/
package payroll_test

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

func pct(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func openIncrease(concept payroll.ConceptID, from payroll.Date, percent float64) payroll.SalaryIncrease {
	return payroll.SalaryIncrease{Concept: concept, From: from, Percent: pct(percent), Retroactive: true}
}

func salaryPeriod(label string, amount float64) payroll.PayPeriod {
	return payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      payroll.PeriodLabel(label),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, Amount: money(amount)},
		},
	}
}

// =============================================================================
// PRORATION
// =============================================================================

func TestRetroactive_HalfPeriodWindow_OwesHalfTheDelta(t *testing.T) {
	// GIVEN: A 300.00 base salary in a 30-day month and a +10% increase
	//        starting on the 16th
	// WHEN: Applying retroactively
	// THEN: The owed delta is exactly half the full-period delta
	//       (15 covered days × 10.00/day × 10% = 15.00)

	inc := openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.June, 16), 10)

	result, err := payroll.ApplyRetroactive(
		[]payroll.SalaryIncrease{inc},
		[]payroll.PayPeriod{salaryPeriod("2025-06", 300)},
		payroll.CompositionMultiplicative,
	)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(result.Rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(result.Rows))
	}

	row := result.Rows[0]
	if row.CoveredDays != 15 || row.PeriodDays != 30 {
		t.Errorf("coverage = %d/%d, want 15/30", row.CoveredDays, row.PeriodDays)
	}
	if !row.OwedDelta.WithinEpsilon(money(15)) {
		t.Errorf("owed = %s, want 15.00", row.OwedDelta)
	}
	if !result.TotalOwed.WithinEpsilon(money(15)) {
		t.Errorf("total = %s, want 15.00", result.TotalOwed)
	}
}

func TestRetroactive_WindowOutsidePeriod_ProducesNoRow(t *testing.T) {
	inc := openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.August, 1), 10)

	result, err := payroll.ApplyRetroactive(
		[]payroll.SalaryIncrease{inc},
		[]payroll.PayPeriod{salaryPeriod("2025-06", 300)},
		payroll.CompositionMultiplicative,
	)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(result.Rows) != 0 {
		t.Errorf("expected no rows for an uncovered period, got %d", len(result.Rows))
	}
}

// =============================================================================
// COMPOSITION
// =============================================================================

func TestCompositeFactor_MultiplicativeStacking(t *testing.T) {
	// Two full-window increases of 10% and 5% compound to 1.155.
	day := payroll.NewDate(2025, time.June, 10)
	increases := []payroll.SalaryIncrease{
		openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.January, 1), 10),
		openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.March, 1), 5),
	}

	factor := payroll.CompositeFactor(increases, payroll.ConceptBaseSalary, day, payroll.CompositionMultiplicative)
	if !factor.Equal(decimal.NewFromFloat(1.155)) {
		t.Errorf("factor = %s, want 1.155", factor)
	}
}

func TestCompositeFactor_AdditiveStacking(t *testing.T) {
	day := payroll.NewDate(2025, time.June, 10)
	increases := []payroll.SalaryIncrease{
		openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.January, 1), 10),
		openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.March, 1), 5),
	}

	factor := payroll.CompositeFactor(increases, payroll.ConceptBaseSalary, day, payroll.CompositionAdditive)
	if !factor.Equal(decimal.NewFromFloat(1.15)) {
		t.Errorf("factor = %s, want 1.15", factor)
	}
}

func TestCompositeFactor_OtherConceptUnaffected(t *testing.T) {
	day := payroll.NewDate(2025, time.June, 10)
	increases := []payroll.SalaryIncrease{
		openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.January, 1), 10),
	}

	factor := payroll.CompositeFactor(increases, payroll.ConceptSeniority, day, payroll.CompositionMultiplicative)
	if !factor.Equal(decimal.NewFromInt(1)) {
		t.Errorf("factor = %s, want 1 for an untargeted concept", factor)
	}
}

// =============================================================================
// IDEMPOTENCE
// =============================================================================

func TestRetroactive_Reapplication_YieldsIdenticalDeltas(t *testing.T) {
	// The calculator never mutates its inputs; applying twice must agree.
	inc := openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.June, 1), 7.5)
	periods := []payroll.PayPeriod{salaryPeriod("2025-06", 1500), salaryPeriod("2025-07", 1500)}

	first, err := payroll.ApplyRetroactive([]payroll.SalaryIncrease{inc}, periods, payroll.CompositionMultiplicative)
	if err != nil {
		t.Fatalf("first apply failed: %v", err)
	}
	second, err := payroll.ApplyRetroactive([]payroll.SalaryIncrease{inc}, periods, payroll.CompositionMultiplicative)
	if err != nil {
		t.Fatalf("second apply failed: %v", err)
	}

	if !first.TotalOwed.Equal(second.TotalOwed) {
		t.Errorf("totals diverged: %s vs %s", first.TotalOwed, second.TotalOwed)
	}
	if len(first.Rows) != len(second.Rows) {
		t.Fatalf("row counts diverged: %d vs %d", len(first.Rows), len(second.Rows))
	}
	for i := range first.Rows {
		if !first.Rows[i].OwedDelta.Equal(second.Rows[i].OwedDelta) {
			t.Errorf("row %d diverged: %s vs %s", i, first.Rows[i].OwedDelta, second.Rows[i].OwedDelta)
		}
	}
}

// =============================================================================
// DEGRADATION
// =============================================================================

func TestRetroactive_MissingConceptLine_FlagsIncomplete(t *testing.T) {
	// GIVEN: An increase on seniority but a payslip with no seniority line
	// WHEN: Applying
	// THEN: The result is marked incomplete with a warning, no error

	inc := openIncrease(payroll.ConceptSeniority, payroll.NewDate(2025, time.June, 1), 5)

	result, err := payroll.ApplyRetroactive(
		[]payroll.SalaryIncrease{inc},
		[]payroll.PayPeriod{salaryPeriod("2025-06", 300)},
		payroll.CompositionMultiplicative,
	)
	if err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if !result.Incomplete {
		t.Error("result should be marked incomplete")
	}
	if len(result.Warnings) != 1 || result.Warnings[0].Code != payroll.WarnIncomplete {
		t.Errorf("warnings = %+v, want one incomplete warning", result.Warnings)
	}
}

func TestRetroactive_NoAffectedPeriods_PartialResultWithBaselineError(t *testing.T) {
	inc := openIncrease(payroll.ConceptBaseSalary, payroll.NewDate(2025, time.June, 1), 5)

	result, err := payroll.ApplyRetroactive([]payroll.SalaryIncrease{inc}, nil, payroll.CompositionMultiplicative)
	if !errors.Is(err, payroll.ErrMissingBaseline) {
		t.Fatalf("expected ErrMissingBaseline, got %v", err)
	}
	if !result.Incomplete {
		t.Error("partial result should be marked incomplete")
	}
}

func TestValidateIncrease_RejectsBadDefinitions(t *testing.T) {
	from := payroll.NewDate(2025, time.June, 1)
	before := payroll.NewDate(2025, time.May, 1)

	cases := []struct {
		name string
		inc  payroll.SalaryIncrease
	}{
		{"negative percent", payroll.SalaryIncrease{Concept: payroll.ConceptBaseSalary, From: from, Percent: pct(-5)}},
		{"end before start", payroll.SalaryIncrease{Concept: payroll.ConceptBaseSalary, From: from, To: &before, Percent: pct(5)}},
		{"missing concept", payroll.SalaryIncrease{From: from, Percent: pct(5)}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := payroll.ValidateIncrease(tc.inc); !errors.Is(err, payroll.ErrInvalidConfiguration) {
				t.Errorf("expected ErrInvalidConfiguration, got %v", err)
			}
		})
	}
}
