/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with self-contained demo datasets so every engine can
  be exercised from the API without importing real payroll files.

AVAILABLE SCENARIOS:
  retro-increase:  Six months of stable payslips plus a retroactive
                   mid-March base-salary increase. Exercises the
                   comparator and the retroactive calculator.
  night-shift:     An employee moving onto night shifts in June, with
                   calendar and actual time entries. Exercises the
                   decomposer and hours-driven prediction scaling.
  new-hire:        An employee with no payslip history. Exercises the
                   from-defaults prediction fallback.

RESET BEHAVIOR:
  Loading a scenario wipes the store first when the implementation
  supports it (both the memory and the SQLite stores do).

USAGE VIA API:

	POST /api/scenarios/load
	{"id": "retro-increase"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler struct these loaders hang off
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "retro-increase",
		Name:        "Retroactive increase",
		Description: "Six stable months, then a base-salary increase effective mid-March with retroactive settlement.",
	},
	{
		ID:          "night-shift",
		Name:        "Night shift change",
		Description: "An employee moving onto night shifts in June, with calendar and recorded time.",
	},
	{
		ID:          "new-hire",
		Name:        "New hire",
		Description: "An employee with no payslip history; predictions fall back to configured defaults.",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	current := h.currentScenario
	h.mu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]string{"id": current})
}

// LoadScenario wipes the store and seeds the requested scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if resettable, ok := h.Store.(interface{ Reset(context.Context) error }); ok {
		if err := resettable.Reset(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
			return
		}
	}

	var err error
	switch req.ID {
	case "retro-increase":
		err = h.loadRetroIncrease(ctx)
	case "night-shift":
		err = h.loadNightShift(ctx)
	case "new-hire":
		err = h.loadNewHire(ctx)
	default:
		writeError(w, http.StatusNotFound, "Unknown scenario: "+req.ID, nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = req.ID
	h.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]string{"id": req.ID, "status": "loaded"})
}

// =============================================================================
// SCENARIO: RETROACTIVE INCREASE
// =============================================================================

func (h *Handler) loadRetroIncrease(ctx context.Context) error {
	emp := payroll.Employee{
		ID:       "carmen",
		Number:   "1001",
		Name:     "Carmen Vega",
		HireDate: payroll.NewDate(2019, time.February, 1),
		Categories: []payroll.CategoryChange{
			{Category: "TEC", EffectiveFrom: payroll.NewDate(2019, time.February, 1)},
		},
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	for month := time.January; month <= time.June; month++ {
		label := payroll.PeriodLabel(fmt.Sprintf("2025-%02d", month))
		p := payroll.PayPeriod{
			EmployeeID: emp.ID,
			Label:      label,
			IssueDate:  payroll.EndOfMonth(2025, month),
			GrossTotal: payroll.NewMoney(1595),
			NetTotal:   payroll.NewMoney(1340),
			Lines: []payroll.ConceptLine{
				{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, RawLabel: "Salario Base", Amount: payroll.NewMoney(1500)},
				{Concept: payroll.ConceptSeniority, Kind: payroll.KindEarning, RawLabel: "Antigüedad", Amount: payroll.NewMoney(15)},
				{Concept: payroll.ConceptTransportPlus, Kind: payroll.KindEarning, RawLabel: "Plus Transporte", Amount: payroll.NewMoney(80)},
				{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, RawLabel: "IRPF", Amount: payroll.NewMoney(255)},
			},
		}
		if err := h.Store.SavePeriod(ctx, p); err != nil {
			return err
		}
		if err := h.seedWorkingMonth(ctx, emp.ID, 2025, month); err != nil {
			return err
		}
	}

	if err := h.Store.SaveIncrease(ctx, payroll.SalaryIncrease{
		Concept:     payroll.ConceptBaseSalary,
		From:        payroll.NewDate(2025, time.March, 15),
		Percent:     decimal.NewFromInt(5),
		Retroactive: true,
	}); err != nil {
		return err
	}

	// Summer extra payment, withheld at the regular IRPF rate.
	if err := h.Store.SaveExtraPayment(ctx, payroll.ExtraPayment{
		EmployeeID: emp.ID,
		Type:       payroll.ExtraJuly,
		Date:       payroll.NewDate(2025, time.July, 15),
		Gross:      payroll.NewMoney(1500),
		Net:        payroll.NewMoney(1260),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptExtraPayment, Kind: payroll.KindEarning, RawLabel: "Paga Extraordinaria", Amount: payroll.NewMoney(1500)},
			{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, RawLabel: "Retención IRPF", Amount: payroll.NewMoney(240)},
		},
	}); err != nil {
		return err
	}

	return h.Store.SaveBalances(ctx, emp.ID, []payroll.Balance{
		{
			EmployeeID:  emp.ID,
			Type:        payroll.BalanceVacation,
			Year:        2025,
			EvaluatedAt: payroll.NewDate(2025, time.June, 30),
			Entitlement: decimal.NewFromInt(22),
			Consumed:    decimal.NewFromInt(5),
			Pending:     decimal.NewFromInt(17),
			Unit:        "days",
		},
	})
}

// =============================================================================
// SCENARIO: NIGHT SHIFT CHANGE
// =============================================================================

func (h *Handler) loadNightShift(ctx context.Context) error {
	emp := payroll.Employee{
		ID:       "diego",
		Number:   "1002",
		Name:     "Diego Romero",
		HireDate: payroll.NewDate(2021, time.September, 1),
		Categories: []payroll.CategoryChange{
			{Category: "AUX", EffectiveFrom: payroll.NewDate(2021, time.September, 1)},
		},
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}

	// May: day shifts, no premium.
	may := payroll.PayPeriod{
		EmployeeID: emp.ID,
		Label:      "2025-05",
		IssueDate:  payroll.EndOfMonth(2025, time.May),
		GrossTotal: payroll.NewMoney(1480),
		NetTotal:   payroll.NewMoney(1245),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, RawLabel: "Salario Base", Amount: payroll.NewMoney(1400)},
			{Concept: payroll.ConceptTransportPlus, Kind: payroll.KindEarning, RawLabel: "Plus Transporte", Amount: payroll.NewMoney(80)},
			{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, RawLabel: "IRPF", Amount: payroll.NewMoney(235)},
		},
	}
	if err := h.Store.SavePeriod(ctx, may); err != nil {
		return err
	}
	if err := h.seedWorkingMonth(ctx, emp.ID, 2025, time.May); err != nil {
		return err
	}

	// June: night shifts with the corresponding premium.
	nightQty := decimal.NewFromInt(12)
	nightRate := decimal.NewFromInt(25)
	june := payroll.PayPeriod{
		EmployeeID: emp.ID,
		Label:      "2025-06",
		IssueDate:  payroll.EndOfMonth(2025, time.June),
		GrossTotal: payroll.NewMoney(1780),
		NetTotal:   payroll.NewMoney(1495),
		Lines: []payroll.ConceptLine{
			{Concept: payroll.ConceptBaseSalary, Kind: payroll.KindEarning, RawLabel: "Salario Base", Amount: payroll.NewMoney(1400)},
			{Concept: payroll.ConceptNightPremium, Kind: payroll.KindEarning, RawLabel: "Plus Nocturnidad", Quantity: &nightQty, UnitRate: &nightRate, Amount: payroll.NewMoney(300)},
			{Concept: payroll.ConceptTransportPlus, Kind: payroll.KindEarning, RawLabel: "Plus Transporte", Amount: payroll.NewMoney(80)},
			{Concept: payroll.ConceptIncomeTax, Kind: payroll.KindDeduction, RawLabel: "IRPF", Amount: payroll.NewMoney(285)},
		},
	}
	if err := h.Store.SavePeriod(ctx, june); err != nil {
		return err
	}

	// June calendar: weekday nights.
	var days []payroll.CalendarDay
	var entries []payroll.TimeEntry
	for d := 1; d <= 30; d++ {
		date := payroll.NewDate(2025, time.June, d)
		if date.IsWeekend() {
			days = append(days, payroll.CalendarDay{
				EmployeeID: emp.ID, Date: date, Type: payroll.DayHoliday,
				Source: payroll.SourceImport, WrittenAt: payroll.NewDate(2025, time.May, 25),
			})
			continue
		}
		days = append(days, payroll.CalendarDay{
			EmployeeID: emp.ID, Date: date, Type: payroll.DayWorking, Shift: payroll.ShiftNight,
			TheoreticalHours: decimal.NewFromInt(8),
			Source:           payroll.SourceImport, WrittenAt: payroll.NewDate(2025, time.May, 25),
		})
		entries = append(entries, payroll.TimeEntry{
			EmployeeID: emp.ID, Date: date, Category: payroll.TimeNight, Hours: payroll.NewHours(8),
		})
	}
	if err := h.Store.SaveCalendarDays(ctx, days); err != nil {
		return err
	}
	return h.Store.SaveTimeEntries(ctx, entries)
}

// =============================================================================
// SCENARIO: NEW HIRE
// =============================================================================

func (h *Handler) loadNewHire(ctx context.Context) error {
	emp := payroll.Employee{
		ID:       "elena",
		Number:   "1003",
		Name:     "Elena Fuentes",
		HireDate: payroll.NewDate(2025, time.June, 1),
		Categories: []payroll.CategoryChange{
			{Category: "AUX", EffectiveFrom: payroll.NewDate(2025, time.June, 1)},
		},
	}
	if err := h.Store.SaveEmployee(ctx, emp); err != nil {
		return err
	}
	// Calendar only. No payslip history: predictions must synthesize
	// from defaults.
	return h.seedWorkingMonth(ctx, emp.ID, 2025, time.June)
}

// =============================================================================
// SEEDING HELPERS
// =============================================================================

// seedWorkingMonth writes a standard weekday calendar (8h mornings) for
// one month.
func (h *Handler) seedWorkingMonth(ctx context.Context, id payroll.EmployeeID, year int, month time.Month) error {
	start := payroll.StartOfMonth(year, month)
	end := payroll.EndOfMonth(year, month)

	var days []payroll.CalendarDay
	for d := start; !d.AfterDay(end); d = d.AddDays(1) {
		day := payroll.CalendarDay{
			EmployeeID: id,
			Date:       d,
			Source:     payroll.SourceImport,
			WrittenAt:  start,
		}
		if d.IsWeekend() {
			day.Type = payroll.DayHoliday
		} else {
			day.Type = payroll.DayWorking
			day.Shift = payroll.ShiftMorning
			day.TheoreticalHours = decimal.NewFromInt(8)
		}
		days = append(days, day)
	}
	return h.Store.SaveCalendarDays(ctx, days)
}
