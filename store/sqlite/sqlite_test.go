package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_EmployeeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	e := payroll.Employee{
		ID:       "emp-1",
		Number:   "0042",
		Name:     "Ana",
		HireDate: payroll.NewDate(2020, time.March, 1),
		Categories: []payroll.CategoryChange{
			{Category: "AUX", EffectiveFrom: payroll.NewDate(2020, time.March, 1)},
			{Category: "TEC", EffectiveFrom: payroll.NewDate(2024, time.July, 1)},
		},
	}
	require.NoError(t, s.SaveEmployee(ctx, e))

	got, err := s.Employee(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", got.Name)
	require.Len(t, got.Categories, 2)
	assert.Equal(t, "TEC", got.CategoryAt(payroll.NewDate(2025, time.June, 1)))

	_, err = s.Employee(ctx, "ghost")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
}

func TestSQLite_SaveEmployee_UpsertsById(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	e := payroll.Employee{ID: "emp-1", Name: "Ana", HireDate: payroll.NewDate(2020, time.March, 1)}
	require.NoError(t, s.SaveEmployee(ctx, e))
	e.Name = "Ana María"
	require.NoError(t, s.SaveEmployee(ctx, e))

	all, err := s.Employees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Ana María", all[0].Name)
}

func TestSQLite_PeriodUpsert_ReimportReplaces(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	qty := decimal.NewFromInt(20)
	p := payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      "2025-06",
		IssueDate:  payroll.NewDate(2025, time.June, 30),
		GrossTotal: payroll.NewMoney(1580),
		NetTotal:   payroll.NewMoney(1340),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, RawLabel: "Salario Base", Quantity: &qty, Amount: payroll.NewMoney(1500)},
			{Concept: payroll.ConceptTransportPlus, Kind: payroll.KindEarning, Amount: payroll.NewMoney(80)},
			{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, Amount: payroll.NewMoney(240)},
		},
	}
	require.NoError(t, s.SavePeriod(ctx, p))

	p.GrossTotal = payroll.NewMoney(1600)
	require.NoError(t, s.SavePeriod(ctx, p))

	got, err := s.Period(ctx, "emp-1", "2025-06")
	require.NoError(t, err)
	assert.True(t, got.GrossTotal.Equal(payroll.NewMoney(1600)), "re-import must replace the record")
	require.Len(t, got.Lines, 3)
	require.NotNil(t, got.Lines[0].Quantity)
	assert.True(t, got.Lines[0].Quantity.Equal(qty))
	assert.Equal(t, "Salario Base", got.Lines[0].RawLabel)

	periods, err := s.Periods(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, periods, 1)

	_, err = s.Period(ctx, "emp-1", "2024-01")
	assert.ErrorIs(t, err, payroll.ErrPeriodNotFound)
}

func TestSQLite_Periods_OrderedByLabel(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, label := range []payroll.PeriodLabel{"2025-06", "2025-01", "2025-03"} {
		require.NoError(t, s.SavePeriod(ctx, payroll.PayPeriod{EmployeeID: "emp-1", Label: label}))
	}

	periods, err := s.Periods(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, periods, 3)
	assert.Equal(t, payroll.PeriodLabel("2025-01"), periods[0].Label)
	assert.Equal(t, payroll.PeriodLabel("2025-06"), periods[2].Label)
}

func TestSQLite_Balances_SaveReplacesPriorSet(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	first := []payroll.Balance{
		{EmployeeID: "emp-1", Type: payroll.BalanceVacation, Year: 2025,
			EvaluatedAt: payroll.NewDate(2025, time.June, 30),
			Entitlement: decimal.NewFromInt(22), Consumed: decimal.NewFromInt(5), Pending: decimal.NewFromInt(17),
			Unit: "days"},
		{EmployeeID: "emp-1", Type: payroll.BalanceBankedHours, Year: 2025,
			EvaluatedAt: payroll.NewDate(2025, time.June, 30),
			Entitlement: decimal.NewFromInt(10), Consumed: decimal.NewFromInt(14), Pending: decimal.NewFromInt(-4),
			Unit: "hours", OverdraftOK: true},
	}
	require.NoError(t, s.SaveBalances(ctx, "emp-1", first))

	second := first[:1]
	require.NoError(t, s.SaveBalances(ctx, "emp-1", second))

	got, err := s.Balances(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, got, 1, "a new balance set must replace the prior one")
	assert.Equal(t, payroll.BalanceVacation, got[0].Type)
	assert.True(t, got[0].Pending.Equal(decimal.NewFromInt(17)))
}

func TestSQLite_TimeEntries_FilteredByPeriod(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveTimeEntries(ctx, []payroll.TimeEntry{
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(8)},
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.June, 4), Category: payroll.TimeWorked, Hours: payroll.NewHours(8), Recalculation: true},
		{EmployeeID: "emp-1", Date: payroll.NewDate(2025, time.July, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(8)},
		{EmployeeID: "emp-2", Date: payroll.NewDate(2025, time.June, 3), Category: payroll.TimeWorked, Hours: payroll.NewHours(8)},
	}))

	period, err := payroll.PeriodLabel("2025-06").Period()
	require.NoError(t, err)

	entries, err := s.TimeEntries(ctx, "emp-1", period)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[1].Recalculation)
}

func TestSQLite_CalendarSnapshot_AppliesOverlapPolicy(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	day := payroll.NewDate(2025, time.June, 5)
	require.NoError(t, s.SaveCalendarDays(ctx, []payroll.CalendarDay{
		{EmployeeID: "emp-1", Date: day, Type: payroll.DayWorking, Shift: payroll.ShiftMorning,
			TheoreticalHours: decimal.NewFromInt(8),
			Source:           payroll.SourceImport, WrittenAt: payroll.NewDate(2025, time.May, 1)},
	}))
	require.NoError(t, s.SaveCalendarDays(ctx, []payroll.CalendarDay{
		{EmployeeID: "emp-1", Date: day, Type: payroll.DayVacation,
			Source: payroll.SourceManual, WrittenAt: payroll.NewDate(2025, time.May, 9)},
	}))

	days, err := s.CalendarDays(ctx, "emp-1")
	require.NoError(t, err)
	assert.Len(t, days, 2, "calendar writes are append-only")

	snapshot, err := s.CalendarSnapshot(ctx)
	require.NoError(t, err)
	resolved, ok := snapshot.ResolveDay("emp-1", day)
	require.True(t, ok)
	assert.Equal(t, payroll.DayVacation, resolved.Type)
}

func TestSQLite_IncreaseRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	to := payroll.NewDate(2025, time.December, 31)
	require.NoError(t, s.SaveIncrease(ctx, payroll.SalaryIncrease{
		Concept: payroll.ConceptBaseSalary,
		From:    payroll.NewDate(2025, time.June, 1),
		To:      &to,
		Percent: decimal.NewFromFloat(2.5),
	}))
	require.NoError(t, s.SaveIncrease(ctx, payroll.SalaryIncrease{
		Concept:     payroll.ConceptSeniority,
		From:        payroll.NewDate(2025, time.January, 1),
		Percent:     decimal.NewFromInt(5),
		Retroactive: true,
	}))

	increases, err := s.Increases(ctx)
	require.NoError(t, err)
	require.Len(t, increases, 2)
	assert.Equal(t, payroll.ConceptSeniority, increases[0].Concept, "ordered by start date")
	assert.Nil(t, increases[0].To)
	require.NotNil(t, increases[1].To)
	assert.True(t, increases[1].To.EqualDay(to))
	assert.True(t, increases[1].Percent.Equal(decimal.NewFromFloat(2.5)))
}

func TestSQLite_SaveIncrease_RejectsInvalidDefinitions(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	err := s.SaveIncrease(ctx, payroll.SalaryIncrease{
		From:    payroll.NewDate(2025, time.June, 1),
		Percent: decimal.NewFromInt(5),
		// missing concept
	})
	assert.ErrorIs(t, err, payroll.ErrInvalidConfiguration)

	increases, err := s.Increases(ctx)
	require.NoError(t, err)
	assert.Empty(t, increases, "invalid definitions must not be stored")
}

func TestSQLite_ExtraPaymentRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveExtraPayment(ctx, payroll.ExtraPayment{
		EmployeeID: "emp-1",
		Type:       payroll.ExtraJuly,
		Date:       payroll.NewDate(2025, time.July, 15),
		Gross:      payroll.NewMoney(1500),
		Net:        payroll.NewMoney(1260),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, Amount: payroll.NewMoney(1500)},
		},
	}))

	payments, err := s.ExtraPayments(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, payroll.ExtraJuly, payments[0].Type)
	require.Len(t, payments[0].Lines, 1)
	assert.True(t, payments[0].Lines[0].Amount.Equal(payroll.NewMoney(1500)))
}

func TestSQLite_PredictionRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	p := payroll.Prediction{
		ID:          "pred-1",
		EmployeeID:  "emp-1",
		TargetLabel: "2025-07",
		CreatedAt:   payroll.NewDate(2025, time.June, 20),
		Scenario:    payroll.DefaultScenario(),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, Amount: payroll.NewMoney(1500)},
		},
		GrossTotal: payroll.NewMoney(1500),
		NetTotal:   payroll.NewMoney(1260),
	}
	require.NoError(t, s.SavePrediction(ctx, p))

	// Same id overwrites.
	p.FromDefaults = true
	require.NoError(t, s.SavePrediction(ctx, p))

	preds, err := s.Predictions(ctx, "emp-1")
	require.NoError(t, err)
	require.Len(t, preds, 1)
	assert.True(t, preds[0].FromDefaults)
	assert.Equal(t, "default", preds[0].Scenario.Name)
	assert.True(t, preds[0].GrossTotal.Equal(payroll.NewMoney(1500)))
}

func TestSQLite_Reset_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	require.NoError(t, s.SaveEmployee(ctx, payroll.Employee{ID: "emp-1", Name: "Ana", HireDate: payroll.NewDate(2020, time.March, 1)}))
	require.NoError(t, s.SavePeriod(ctx, payroll.PayPeriod{EmployeeID: "emp-1", Label: "2025-06"}))

	require.NoError(t, s.Reset(ctx))

	_, err := s.Employee(ctx, "emp-1")
	assert.ErrorIs(t, err, payroll.ErrEmployeeNotFound)
	periods, err := s.Periods(ctx, "emp-1")
	require.NoError(t, err)
	assert.Empty(t, periods)
}
