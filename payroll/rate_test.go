/*
rate_test.go - Executable specification of the hourly-rate decomposer
*/
package payroll_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

func ratePeriod() payroll.PayPeriod {
	qty := decimal.NewFromInt(4)
	rate := decimal.NewFromInt(25)
	return payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      "2025-06",
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, Amount: money(1500)},
			{Concept: payroll.ConceptSeniority, Kind: payroll.KindEarning, Amount: money(100)},
			{Concept: payroll.ConceptNightPremium, Kind: payroll.KindEarning, Quantity: &qty, UnitRate: &rate, Amount: money(100)},
			{Concept: payroll.ConceptExpenses, Kind: payroll.KindEarning, Amount: money(200)},
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, Amount: money(50), Retroactive: true},
			{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, Amount: money(250)},
		},
	}
}

func rateCalendar(t *testing.T) *payroll.CalendarSnapshot {
	t.Helper()
	// 20 working days × 8h = 160 theoretical hours.
	return payroll.NewCalendarSnapshot(flatMonth(t, "emp-1", "2025-06", 20))
}

func TestDecompose_BaseRate_BaseConceptsOverTheoreticalHours(t *testing.T) {
	// GIVEN: 1600.00 of base-classified earnings over 160 theoretical hours
	// WHEN: Decomposing
	// THEN: The base hourly rate is 10.00; the retroactive base line is part
	//       of the base set but the expense reimbursement is not

	entries := []payroll.TimeEntry{
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(150)},
	}
	d, err := payroll.Decompose(ratePeriod(), rateCalendar(t), entries, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}

	if !d.TheoreticalHours.Equal(payroll.NewHours(160)) {
		t.Errorf("theoretical hours = %s, want 160", d.TheoreticalHours.Value)
	}
	// Base set: 1500 + 100 seniority + 50 retroactive base = 1650 over 160h.
	want := money(1650).Div(decimal.NewFromInt(160))
	if !d.BaseHourlyRate.WithinEpsilon(want) {
		t.Errorf("base rate = %s, want %s", d.BaseHourlyRate, want)
	}
}

func TestDecompose_EffectiveRate_ExcludesRetroactiveAndExpenses(t *testing.T) {
	// Effective numerator: 1500 + 100 + 100 = 1700 (no expenses, no
	// retroactive settlement), over the 150 actually worked hours.
	entries := []payroll.TimeEntry{
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(150)},
	}
	d, err := payroll.Decompose(ratePeriod(), rateCalendar(t), entries, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}

	if !d.ActualHours.Equal(payroll.NewHours(150)) {
		t.Errorf("actual hours = %s, want 150", d.ActualHours.Value)
	}
	want := money(1700).Div(decimal.NewFromInt(150))
	if !d.EffectiveHourlyRate.WithinEpsilon(want) {
		t.Errorf("effective rate = %s, want %s", d.EffectiveHourlyRate, want)
	}
}

func TestDecompose_NoTimeEntries_CalendarStandsInWithWarning(t *testing.T) {
	d, err := payroll.Decompose(ratePeriod(), rateCalendar(t), nil, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}

	if !d.ActualHours.Equal(d.TheoreticalHours) {
		t.Errorf("actual hours = %s, want the calendar's %s", d.ActualHours.Value, d.TheoreticalHours.Value)
	}
	found := false
	for _, w := range d.Warnings {
		if w.Code == payroll.WarnHoursFromCalendar {
			found = true
		}
	}
	if !found {
		t.Error("the calendar fallback must be flagged, never silent")
	}
}

func TestDecompose_RecalculationEntries_ExcludedFromActualHours(t *testing.T) {
	entries := []payroll.TimeEntry{
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(150)},
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 4), Category: payroll.TimeWorked, Hours: payroll.NewHours(12), Recalculation: true},
	}
	d, err := payroll.Decompose(ratePeriod(), rateCalendar(t), entries, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}
	if !d.ActualHours.Equal(payroll.NewHours(150)) {
		t.Errorf("actual hours = %s, recalculation entries must not count", d.ActualHours.Value)
	}
}

func TestDecompose_PlusBreakdown_RecomputesMissingRate(t *testing.T) {
	// GIVEN: A night premium with quantity and rate, and a transport plus
	//        with only an amount
	// WHEN: Decomposing
	// THEN: The transport plus is reattributed as one unit at the full
	//       amount and flagged as recomputed

	qty := decimal.NewFromInt(4)
	rate := decimal.NewFromInt(25)
	p := payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      "2025-06",
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptNightPremium, Kind: payroll.KindEarning, Quantity: &qty, UnitRate: &rate, Amount: money(100)},
			{Concept: payroll.ConceptTransportPlus, Kind: payroll.KindEarning, Amount: money(80)},
		},
	}

	d, err := payroll.Decompose(p, rateCalendar(t), nil, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}
	if len(d.PlusBreakdown) != 2 {
		t.Fatalf("expected 2 plus lines, got %d", len(d.PlusBreakdown))
	}
	for _, plus := range d.PlusBreakdown {
		switch plus.Concept {
		case payroll.ConceptNightPremium:
			if plus.RateRecomputed {
				t.Error("night premium carried a rate; must not be marked recomputed")
			}
		case payroll.ConceptTransportPlus:
			if !plus.RateRecomputed {
				t.Error("transport plus rate must be marked recomputed")
			}
			if !plus.Quantity.Equal(decimal.NewFromInt(1)) || !plus.UnitRate.Equal(decimal.NewFromInt(80)) {
				t.Errorf("transport plus = %s × %s, want 1 × 80", plus.Quantity, plus.UnitRate)
			}
		}
	}
}

func TestDecompose_QuantityRateMismatch_FlaggedNeverCorrected(t *testing.T) {
	qty := decimal.NewFromInt(4)
	rate := decimal.NewFromInt(25)
	p := payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      "2025-06",
		Lines: []payroll.ConceptLine{
			// 4 × 25 = 100, but the amount says 110.
			{Concept: payroll.ConceptNightPremium, Kind: payroll.KindEarning, Quantity: &qty, UnitRate: &rate, Amount: money(110)},
		},
	}

	d, err := payroll.Decompose(p, rateCalendar(t), nil, payroll.RateConfig{})
	if err != nil {
		t.Fatalf("decompose failed: %v", err)
	}

	found := false
	for _, w := range d.Warnings {
		if w.Code == payroll.WarnQuantityRateMismatch {
			found = true
		}
	}
	if !found {
		t.Error("quantity × rate mismatch must be flagged")
	}
	// The reported amount stays authoritative.
	if !d.PlusBreakdown[0].Amount.Equal(money(110)) {
		t.Errorf("amount = %s, the source amount must never be corrected", d.PlusBreakdown[0].Amount)
	}
}
