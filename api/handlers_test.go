/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Payslip import with canonicalization and net checking
- Period comparison
- Prediction with and without baseline
- Retroactive runs against seeded scenarios
- Configuration loading
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/payroll/store"
)

func newTestRouter() http.Handler {
	router, _ := newTestRouterHandler()
	return router
}

func newTestRouterHandler() (http.Handler, *Handler) {
	h := NewHandler(store.NewMemory(), nil)
	return NewRouter(h), h
}

// seedFlatMonth writes a calendar month whose first workingDays days are
// 8h working days and the rest holidays, so hour totals are controlled
// exactly regardless of weekday layout.
func seedFlatMonth(t *testing.T, h *Handler, id payroll.EmployeeID, year int, month time.Month, workingDays int) {
	t.Helper()
	end := payroll.EndOfMonth(year, month)
	var days []payroll.CalendarDay
	for d := 1; d <= end.Day(); d++ {
		day := payroll.CalendarDay{
			EmployeeID: id,
			Date:       payroll.NewDate(year, month, d),
			Source:     payroll.SourceImport,
			WrittenAt:  payroll.NewDate(year, month, 1),
		}
		if d <= workingDays {
			day.Type = payroll.DayWorking
			day.TheoreticalHours = decimal.NewFromInt(8)
		} else {
			day.Type = payroll.DayHoliday
		}
		days = append(days, day)
	}
	if err := h.Store.SaveCalendarDays(context.Background(), days); err != nil {
		t.Fatalf("seed calendar: %v", err)
	}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return out
}

func createTestEmployee(t *testing.T, router http.Handler, id string) {
	t.Helper()
	rec := doRequest(t, router, http.MethodPost, "/api/employees", CreateEmployeeRequest{
		ID:       id,
		Name:     "Test User",
		HireDate: "2020-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create employee: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func importTestPeriod(t *testing.T, router http.Handler, id, label, base, tax, net string) {
	t.Helper()
	gross := base
	rec := doRequest(t, router, http.MethodPost, "/api/employees/"+id+"/periods", ImportPeriodRequest{
		Label:      label,
		GrossTotal: gross,
		NetTotal:   net,
		Lines: []LineDTO{
			{RawLabel: "Salario Base", Amount: base},
			{RawLabel: "Retencion IRPF", Amount: tax},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("import period: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestGetEmployee_NotFound(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodGet, "/api/employees/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestImportPeriod_CanonicalizesRawLabels(t *testing.T) {
	// GIVEN: A payslip with raw Spanish labels and no concept ids
	// WHEN: Importing it
	// THEN: Lines come back canonicalized, and the declared net is checked

	router := newTestRouter()
	createTestEmployee(t, router, "emp-1")

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/periods", ImportPeriodRequest{
		Label:      "2025-06",
		GrossTotal: "1500.00",
		NetTotal:   "1100.00", // computed net is 1260: mismatch flag expected
		Lines: []LineDTO{
			{RawLabel: "Salario Base", Amount: "1500.00"},
			{RawLabel: "Retencion IRPF", Amount: "240.00"},
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[PeriodDTO](t, rec)
	if dto.Lines[0].Concept != "base_salary" || dto.Lines[0].Kind != "earning" {
		t.Errorf("line 0 = %+v, want canonicalized base salary earning", dto.Lines[0])
	}
	if dto.Lines[1].Concept != "income_tax_withholding" || dto.Lines[1].Kind != "deduction" {
		t.Errorf("line 1 = %+v, want canonicalized income tax deduction", dto.Lines[1])
	}

	foundNetMismatch := false
	for _, w := range dto.Warnings {
		if w.Code == "net_mismatch" {
			foundNetMismatch = true
		}
	}
	if !foundNetMismatch {
		t.Errorf("warnings = %+v, want a net mismatch flag", dto.Warnings)
	}
}

func TestComparePeriods_ReportsDeviations(t *testing.T) {
	// GIVEN: Two imported months where base salary moved 1500 -> 1650
	// WHEN: Comparing them
	// THEN: The base salary deviation is classified significant

	router := newTestRouter()
	createTestEmployee(t, router, "emp-1")
	importTestPeriod(t, router, "emp-1", "2025-05", "1500.00", "240.00", "1260.00")
	importTestPeriod(t, router, "emp-1", "2025-06", "1650.00", "264.00", "1386.00")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/emp-1/compare?a=2025-05&b=2025-06", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[ComparisonDTO](t, rec)
	var found *DeviationDTO
	for i := range dto.Deviations {
		if dto.Deviations[i].Key == "earning/base_salary" {
			found = &dto.Deviations[i]
		}
	}
	if found == nil {
		t.Fatalf("deviations = %+v, want an earning/base_salary record", dto.Deviations)
	}
	if found.Delta != "150.00" {
		t.Errorf("delta = %s, want 150.00", found.Delta)
	}
	if found.Severity != "significant" {
		t.Errorf("severity = %s, want significant (about 9%%)", found.Severity)
	}
}

func TestComparePeriods_MissingLabelIs404(t *testing.T) {
	router := newTestRouter()
	createTestEmployee(t, router, "emp-1")
	importTestPeriod(t, router, "emp-1", "2025-05", "1500.00", "240.00", "1260.00")

	rec := doRequest(t, router, http.MethodGet, "/api/employees/emp-1/compare?a=2025-05&b=2024-01", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestCreatePrediction_NoBaselineFallsBackToDefaults(t *testing.T) {
	// GIVEN: An employee with no payslip history
	// WHEN: Forecasting next month
	// THEN: 201 with a from-defaults forecast, not an error

	router := newTestRouter()
	createTestEmployee(t, router, "emp-1")

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/predictions", PredictRequest{
		TargetLabel: "2025-07",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[PredictionDTO](t, rec)
	if !dto.FromDefaults {
		t.Error("expected a from-defaults forecast")
	}
	if dto.ID == "" || dto.TargetLabel != "2025-07" {
		t.Errorf("prediction = %+v, want a stamped id and target", dto)
	}

	// The forecast is stored.
	rec = doRequest(t, router, http.MethodGet, "/api/employees/emp-1/predictions", nil)
	stored := decode[[]PredictionDTO](t, rec)
	if len(stored) != 1 {
		t.Errorf("stored predictions = %d, want 1", len(stored))
	}
}

func TestCreatePrediction_WithHistoryReproducesBaseline(t *testing.T) {
	router, h := newTestRouterHandler()
	createTestEmployee(t, router, "emp-1")
	importTestPeriod(t, router, "emp-1", "2025-06", "1500.00", "240.00", "1260.00")
	// Equal theoretical hours in both months: the forecast must reproduce
	// the baseline exactly.
	seedFlatMonth(t, h, "emp-1", 2025, time.June, 20)
	seedFlatMonth(t, h, "emp-1", 2025, time.July, 20)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/predictions", PredictRequest{
		TargetLabel: "2025-07",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[PredictionDTO](t, rec)
	if dto.FromDefaults {
		t.Error("a baseline exists, from_defaults must be false")
	}
	if dto.GrossTotal != "1500.00" {
		t.Errorf("gross = %s, want the baseline 1500.00 (equal hours, no increases)", dto.GrossTotal)
	}
}

func TestCreatePrediction_InjectsScheduledExtraPayment(t *testing.T) {
	// GIVEN: A stable baseline and a configured July extra payment
	// WHEN: Forecasting July
	// THEN: The forecast carries the extra payment line on top of the baseline

	router, h := newTestRouterHandler()
	createTestEmployee(t, router, "emp-1")
	importTestPeriod(t, router, "emp-1", "2025-06", "1500.00", "240.00", "1260.00")
	seedFlatMonth(t, h, "emp-1", 2025, time.June, 20)
	seedFlatMonth(t, h, "emp-1", 2025, time.July, 20)

	rec := doRequest(t, router, http.MethodPut, "/api/config", map[string]any{
		"extra_payments": []map[string]any{
			{"type": "july", "month": 7, "amount": 1000},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("config status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/predictions", PredictRequest{
		TargetLabel: "2025-07",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[PredictionDTO](t, rec)
	if dto.GrossTotal != "2500.00" {
		t.Errorf("gross = %s, want 2500.00 (1500 baseline + 1000 extra)", dto.GrossTotal)
	}
	found := false
	for _, l := range dto.Lines {
		if l.Concept == "extra_payment" && l.Amount == "1000.00" {
			found = true
		}
	}
	if !found {
		t.Errorf("lines = %+v, want an extra_payment line of 1000.00", dto.Lines)
	}
}

func TestRunScenarios_ComparesAgainstFirst(t *testing.T) {
	// GIVEN: One stable month and two scenarios (status quo, +10% base raise)
	// WHEN: Sweeping them over next month
	// THEN: The second outcome carries deviations versus the first

	router, h := newTestRouterHandler()
	createTestEmployee(t, router, "emp-1")
	importTestPeriod(t, router, "emp-1", "2025-06", "1500.00", "240.00", "1260.00")
	seedFlatMonth(t, h, "emp-1", 2025, time.June, 20)
	seedFlatMonth(t, h, "emp-1", 2025, time.July, 20)

	rec := doRequest(t, router, http.MethodPost, "/api/employees/emp-1/scenarios", ScenarioRunRequest{
		TargetLabel: "2025-07",
		Scenarios: []ScenarioRequest{
			{Name: "status-quo"},
			{Name: "raise-10", HypotheticalIncreases: []IncreaseDTO{
				{Concept: "base_salary", From: "2025-07-01", Percent: "10"},
			}},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}

	outcomes := decode[[]ScenarioOutcomeDTO](t, rec)
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	if outcomes[1].Prediction == nil || len(outcomes[1].VsFirst) == 0 {
		t.Fatalf("second outcome = %+v, want a prediction with vs_first deltas", outcomes[1])
	}

	for _, d := range outcomes[1].VsFirst {
		if d.Key == "earning/base_salary" && d.Delta != "150.00" {
			t.Errorf("base salary delta = %s, want 150.00", d.Delta)
		}
	}
}

func TestScenarioLoad_RetroIncreaseEndToEnd(t *testing.T) {
	// GIVEN: The retro-increase demo scenario
	// WHEN: Running the retroactive calculator over all stored periods
	// THEN: Corrections exist and the owed total is positive

	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPost, "/api/scenarios/load", map[string]string{"id": "retro-increase"})
	if rec.Code != http.StatusOK {
		t.Fatalf("load scenario: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/api/employees/carmen/retroactive", RetroRequest{})
	if rec.Code != http.StatusOK {
		t.Fatalf("retroactive: status %d, body %s", rec.Code, rec.Body.String())
	}

	dto := decode[RetroResultDTO](t, rec)
	if len(dto.Rows) == 0 {
		t.Fatal("expected correction rows for the covered months")
	}
	if dto.TotalOwed == "0.00" {
		t.Errorf("total owed = %s, want a positive differential", dto.TotalOwed)
	}
	for _, row := range dto.Rows {
		if row.Label == "2025-02" {
			t.Errorf("row %+v precedes the increase window", row)
		}
	}
}

func TestLoadConfig_InvalidDocumentIs400(t *testing.T) {
	router := newTestRouter()

	rec := doRequest(t, router, http.MethodPut, "/api/config", map[string]any{
		"composition_policy": "geometric",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestLoadConfig_SwapsTaxonomy(t *testing.T) {
	// GIVEN: A config adding an alias for an otherwise unmapped label
	// WHEN: Importing a payslip using that label
	// THEN: The line canonicalizes through the new alias

	router := newTestRouter()
	createTestEmployee(t, router, "emp-1")

	rec := doRequest(t, router, http.MethodPut, "/api/config", map[string]any{
		"taxonomy_version": 2,
		"aliases": []map[string]string{
			{"raw": "Plus Especial Noche", "concept": "night_premium", "kind": "earning"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("load config: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doRequest(t, router, http.MethodPost, "/api/employees/emp-1/periods", ImportPeriodRequest{
		Label:      "2025-06",
		GrossTotal: "100.00",
		NetTotal:   "100.00",
		Lines:      []LineDTO{{RawLabel: "Plus Especial Noche", Amount: "100.00"}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("import: status %d, body %s", rec.Code, rec.Body.String())
	}
	dto := decode[PeriodDTO](t, rec)
	if dto.Lines[0].Concept != "night_premium" {
		t.Errorf("concept = %s, want night_premium via the loaded alias", dto.Lines[0].Concept)
	}
}
