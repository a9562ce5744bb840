/*
handlers.go - HTTP API handlers for the payroll engine

PURPOSE:
  Exposes the comparison, retroactive-correction and prediction engines
  via REST API. Handles HTTP request/response, JSON serialization, and
  delegates to domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees                 List all employees
    POST   /api/employees                 Create employee
    GET    /api/employees/{id}            Get employee details
    GET    /api/employees/{id}/balances   Balances with consistency findings
    GET    /api/employees/{id}/calendar   Calendar writes
    POST   /api/employees/{id}/calendar   Import calendar days
    POST   /api/employees/{id}/time-entries  Import actual time

  Payslips:
    GET    /api/employees/{id}/periods            List payslips
    POST   /api/employees/{id}/periods            Import payslip (canonicalized)
    GET    /api/employees/{id}/periods/{label}    Get one payslip
    GET    /api/employees/{id}/periods/{label}/decomposition  Hourly rates
    GET    /api/employees/{id}/periods/{label}/benchmark      Category check

  Engines:
    GET    /api/employees/{id}/compare      Compare two periods (?a=&b=)
    GET    /api/compare                     Compare two employees, same period
    POST   /api/employees/{id}/retroactive  Retroactive corrections
    POST   /api/employees/{id}/predictions  Forecast a future period
    GET    /api/employees/{id}/predictions  Stored forecasts
    POST   /api/employees/{id}/scenarios    What-if scenario sweep

  Configuration:
    POST   /api/increases                 Register a salary increase
    GET    /api/increases                 List increases
    PUT    /api/config                    Load engine configuration JSON

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: record persistence (payroll.Store)
  - Config: validated engine configuration (taxonomy, thresholds, policy)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Employee or period not found
  - 500: Internal errors
  A missing prediction baseline is NOT an error: the forecast falls back
  to configured defaults and is returned with from_defaults set.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/factory"
	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store payroll.Store

	mu  sync.RWMutex
	cfg *factory.EngineConfig

	// Track currently loaded demo scenario
	currentScenario string
}

// NewHandler creates a new handler with the given store and configuration.
// A nil config gets the built-in defaults.
func NewHandler(store payroll.Store, cfg *factory.EngineConfig) *Handler {
	if cfg == nil {
		cfg, _ = factory.NewConfigFactory().Parse(`{}`)
	}
	return &Handler{Store: store, cfg: cfg}
}

func (h *Handler) config() *factory.EngineConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListEmployees returns all employees.
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Store.Employees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list employees", err)
		return
	}

	dtos := make([]EmployeeDTO, len(employees))
	for i, e := range employees {
		dtos[i] = toEmployeeDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns a single employee.
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	emp, err := h.Store.Employee(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(emp))
}

// CreateEmployee creates a new employee.
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	var req CreateEmployeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}

	hireDate, err := payroll.ParseDate(req.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid hire_date format (use YYYY-MM-DD)", err)
		return
	}

	emp := payroll.Employee{
		ID:         payroll.EmployeeID(req.ID),
		Number:     req.Number,
		Name:       req.Name,
		CostCenter: req.CostCenter,
		HireDate:   hireDate,
	}
	for _, c := range req.Categories {
		from, err := payroll.ParseDate(c.EffectiveFrom)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid category effective_from", err)
			return
		}
		emp.Categories = append(emp.Categories, payroll.CategoryChange{
			Category:      c.Category,
			EffectiveFrom: from,
		})
	}

	if err := h.Store.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// PAYSLIP HANDLERS
// =============================================================================

// ImportPeriod imports one payslip. Lines are canonicalized against the
// active taxonomy; data-quality findings come back with the response but
// never block the import.
func (h *Handler) ImportPeriod(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req ImportPeriodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	period := payroll.PayPeriod{
		EmployeeID: id,
		Label:      payroll.PeriodLabel(req.Label),
		GrossTotal: payroll.MustParseMoney(req.GrossTotal),
		NetTotal:   payroll.MustParseMoney(req.NetTotal),
	}
	if _, err := period.Label.Period(); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid label (use YYYY-MM)", err)
		return
	}
	if req.IssueDate != "" {
		issue, err := payroll.ParseDate(req.IssueDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid issue_date", err)
			return
		}
		period.IssueDate = issue
	}
	for _, l := range req.Lines {
		line, err := parseLine(l)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid line", err)
			return
		}
		period.Lines = append(period.Lines, line)
	}

	canonical, warnings := h.config().Taxonomy.CanonicalizePeriod(period)
	if w2 := canonical.CheckNet(); w2 != nil {
		warnings = append(warnings, *w2)
	}

	if err := h.Store.SavePeriod(r.Context(), canonical); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save period", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPeriodDTO(canonical, warnings))
}

// ListPeriods returns every stored payslip for the employee.
func (h *Handler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	periods, err := h.Store.Periods(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list periods", err)
		return
	}
	dtos := make([]PeriodDTO, len(periods))
	for i, p := range periods {
		dtos[i] = toPeriodDTO(p, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPeriod returns one payslip.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	label := payroll.PeriodLabel(chi.URLParam(r, "label"))

	period, err := h.Store.Period(r.Context(), id, label)
	if err != nil {
		writeDomainError(w, "Failed to get period", err)
		return
	}
	writeJSON(w, http.StatusOK, toPeriodDTO(period, nil))
}

// =============================================================================
// BALANCE AND CALENDAR HANDLERS
// =============================================================================

// GetBalances returns the employee's balances with consistency findings.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	balances, err := h.Store.Balances(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get balances", err)
		return
	}

	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = BalanceDTO{
			Type:        string(b.Type),
			Year:        b.Year,
			EvaluatedAt: b.EvaluatedAt.String(),
			Entitlement: b.Entitlement.String(),
			Consumed:    b.Consumed.String(),
			Pending:     b.Pending.String(),
			Unit:        b.Unit,
			OverdraftOK: b.OverdraftOK,
			Warnings:    toWarningDTOs(b.Check()),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCalendar returns every calendar write for the employee.
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	days, err := h.Store.CalendarDays(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to get calendar", err)
		return
	}

	dtos := make([]CalendarDayDTO, len(days))
	for i, d := range days {
		dtos[i] = CalendarDayDTO{
			Date:             d.Date.String(),
			Type:             string(d.Type),
			Shift:            string(d.Shift),
			TheoreticalHours: d.TheoreticalHours.String(),
			Source:           sourceName(d.Source),
			WrittenAt:        d.WrittenAt.String(),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ImportCalendar appends calendar writes for the employee. Overlapping
// writes are kept; the snapshot's overlap policy picks the effective one.
func (h *Handler) ImportCalendar(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req []CalendarDayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	days := make([]payroll.CalendarDay, 0, len(req))
	for _, dto := range req {
		day, err := parseCalendarDay(id, dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid calendar day", err)
			return
		}
		days = append(days, day)
	}

	if err := h.Store.SaveCalendarDays(r.Context(), days); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save calendar", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": len(days)})
}

// ImportTimeEntries imports actual recorded time for the employee.
func (h *Handler) ImportTimeEntries(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req []struct {
		Date          string `json:"date"`
		Category      string `json:"category"`
		Hours         string `json:"hours"`
		Recalculation bool   `json:"recalculation,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entries := make([]payroll.TimeEntry, 0, len(req))
	for _, dto := range req {
		date, err := payroll.ParseDate(dto.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		hours, err := decimal.NewFromString(dto.Hours)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hours", err)
			return
		}
		entries = append(entries, payroll.TimeEntry{
			EmployeeID:    id,
			Date:          date,
			Category:      payroll.TimeCategory(dto.Category),
			Hours:         payroll.HoursFromDecimal(hours),
			Recalculation: dto.Recalculation,
		})
	}

	if err := h.Store.SaveTimeEntries(r.Context(), entries); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save time entries", err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int{"imported": len(entries)})
}

// =============================================================================
// COMPARISON HANDLERS
// =============================================================================

// ComparePeriods diffs two stored payslips of one employee, concept by
// concept. Query parameters a and b are period labels.
func (h *Handler) ComparePeriods(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	labelA := payroll.PeriodLabel(r.URL.Query().Get("a"))
	labelB := payroll.PeriodLabel(r.URL.Query().Get("b"))
	if labelA == "" || labelB == "" {
		writeError(w, http.StatusBadRequest, "Query parameters a and b are required", nil)
		return
	}

	ctx := r.Context()
	periodA, err := h.Store.Period(ctx, id, labelA)
	if err != nil {
		writeDomainError(w, "Failed to load period A", err)
		return
	}
	periodB, err := h.Store.Period(ctx, id, labelB)
	if err != nil {
		writeDomainError(w, "Failed to load period B", err)
		return
	}

	records, err := payroll.Compare(
		payroll.ConceptItems(periodA),
		payroll.ConceptItems(periodB),
		h.config().Thresholds,
	)
	if err != nil {
		writeDomainError(w, "Comparison failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ComparisonDTO{
		EmployeeID: string(id),
		LabelA:     string(labelA),
		LabelB:     string(labelB),
		Deviations: toDeviationDTOs(records),
	})
}

// CompareEmployees diffs the same period across two employees. Query
// parameters: employee_a, employee_b, label.
func (h *Handler) CompareEmployees(w http.ResponseWriter, r *http.Request) {
	idA := payroll.EmployeeID(r.URL.Query().Get("employee_a"))
	idB := payroll.EmployeeID(r.URL.Query().Get("employee_b"))
	label := payroll.PeriodLabel(r.URL.Query().Get("label"))
	if idA == "" || idB == "" || label == "" {
		writeError(w, http.StatusBadRequest, "employee_a, employee_b and label are required", nil)
		return
	}

	ctx := r.Context()
	mine, err := h.Store.Period(ctx, idA, label)
	if err != nil {
		writeDomainError(w, "Failed to load employee A period", err)
		return
	}
	reference, err := h.Store.Period(ctx, idB, label)
	if err != nil {
		writeDomainError(w, "Failed to load employee B period", err)
		return
	}

	records, err := payroll.CompareAcrossEmployees(mine, reference, h.config().Thresholds)
	if err != nil {
		writeDomainError(w, "Comparison failed", err)
		return
	}

	writeJSON(w, http.StatusOK, ComparisonDTO{
		EmployeeID: string(idA),
		LabelA:     string(label),
		LabelB:     string(label),
		Deviations: toDeviationDTOs(records),
	})
}

// Benchmark checks one payslip against its professional category profile.
func (h *Handler) Benchmark(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	label := payroll.PeriodLabel(chi.URLParam(r, "label"))

	ctx := r.Context()
	emp, err := h.Store.Employee(ctx, id)
	if err != nil {
		writeDomainError(w, "Failed to get employee", err)
		return
	}
	period, err := h.Store.Period(ctx, id, label)
	if err != nil {
		writeDomainError(w, "Failed to get period", err)
		return
	}

	bounds, err := label.Period()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid label", err)
		return
	}
	category := emp.CategoryAt(bounds.End)
	profile, ok := h.config().CategoryProfiles[category]
	if !ok {
		writeError(w, http.StatusNotFound, "No profile configured for category "+category, nil)
		return
	}

	result, err := payroll.BenchmarkAgainstCategory(period, profile, h.config().Thresholds)
	if err != nil {
		writeDomainError(w, "Benchmark failed", err)
		return
	}

	missing := make([]string, len(result.Missing))
	for i, c := range result.Missing {
		missing[i] = string(c)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"category":   result.Category,
		"deviations": toDeviationDTOs(result.Deviations),
		"missing":    missing,
	})
}

// =============================================================================
// DECOMPOSITION HANDLER
// =============================================================================

// Decompose computes base and effective hourly rates plus the bonus
// breakdown for one stored payslip.
func (h *Handler) Decompose(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))
	label := payroll.PeriodLabel(chi.URLParam(r, "label"))

	ctx := r.Context()
	period, err := h.Store.Period(ctx, id, label)
	if err != nil {
		writeDomainError(w, "Failed to get period", err)
		return
	}
	bounds, err := label.Period()
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid label", err)
		return
	}
	entries, err := h.Store.TimeEntries(ctx, id, bounds)
	if err != nil {
		writeDomainError(w, "Failed to load time entries", err)
		return
	}
	snapshot, err := h.Store.CalendarSnapshot(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load calendar", err)
		return
	}

	decomposition, err := payroll.Decompose(period, snapshot, entries, payroll.RateConfig{})
	if err != nil {
		writeDomainError(w, "Decomposition failed", err)
		return
	}

	dto := DecompositionDTO{
		EmployeeID:          string(decomposition.EmployeeID),
		Label:               string(decomposition.Label),
		BaseHourlyRate:      decomposition.BaseHourlyRate.Value.StringFixed(4),
		EffectiveHourlyRate: decomposition.EffectiveHourlyRate.Value.StringFixed(4),
		TheoreticalHours:    decomposition.TheoreticalHours.Value.String(),
		ActualHours:         decomposition.ActualHours.Value.String(),
		Warnings:            toWarningDTOs(decomposition.Warnings),
	}
	for _, p := range decomposition.PlusBreakdown {
		dto.PlusBreakdown = append(dto.PlusBreakdown, PlusLineDTO{
			Concept:        string(p.Concept),
			Quantity:       p.Quantity.String(),
			UnitRate:       p.UnitRate.StringFixed(4),
			Amount:         p.Amount.Value.StringFixed(2),
			RateRecomputed: p.RateRecomputed,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// INCREASE AND RETROACTIVE HANDLERS
// =============================================================================

// CreateIncrease registers a salary-increase definition.
func (h *Handler) CreateIncrease(w http.ResponseWriter, r *http.Request) {
	var req IncreaseDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	inc, err := parseIncrease(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid increase", err)
		return
	}
	if err := h.Store.SaveIncrease(r.Context(), inc); err != nil {
		writeDomainError(w, "Failed to save increase", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// ListIncreases returns every registered increase.
func (h *Handler) ListIncreases(w http.ResponseWriter, r *http.Request) {
	increases, err := h.Store.Increases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list increases", err)
		return
	}

	dtos := make([]IncreaseDTO, len(increases))
	for i, inc := range increases {
		dto := IncreaseDTO{
			Concept:     string(inc.Concept),
			From:        inc.From.String(),
			Percent:     inc.Percent.String(),
			Retroactive: inc.Retroactive,
		}
		if inc.To != nil {
			to := inc.To.String()
			dto.To = &to
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunRetroactive computes owed differentials for the employee across the
// requested periods. With no labels in the body, every stored period is
// considered; periods outside all increase windows contribute nothing.
func (h *Handler) RunRetroactive(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req RetroRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	ctx := r.Context()
	increases, err := h.Store.Increases(ctx)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load increases", err)
		return
	}

	var affected []payroll.PayPeriod
	if len(req.Labels) == 0 {
		affected, err = h.Store.Periods(ctx, id)
		if err != nil {
			writeDomainError(w, "Failed to load periods", err)
			return
		}
	} else {
		for _, label := range req.Labels {
			p, err := h.Store.Period(ctx, id, payroll.PeriodLabel(label))
			if err != nil {
				writeDomainError(w, "Failed to load period "+label, err)
				return
			}
			affected = append(affected, p)
		}
	}

	result, err := payroll.ApplyRetroactive(increases, affected, h.config().CompositionPolicy)
	if err != nil && !payroll.IsRecoverable(err) {
		writeDomainError(w, "Retroactive calculation failed", err)
		return
	}

	dto := RetroResultDTO{
		EmployeeID: string(id),
		TotalOwed:  result.TotalOwed.Value.StringFixed(2),
		Incomplete: result.Incomplete,
		Warnings:   toWarningDTOs(result.Warnings),
	}
	for _, row := range result.Rows {
		dto.Rows = append(dto.Rows, RetroRowDTO{
			Label:           string(row.Label),
			Concept:         string(row.Concept),
			OriginalAmount:  row.OriginalAmount.Value.StringFixed(2),
			CorrectedAmount: row.CorrectedAmount.Value.StringFixed(2),
			OwedDelta:       row.OwedDelta.Value.StringFixed(2),
			CoveredDays:     row.CoveredDays,
			PeriodDays:      row.PeriodDays,
		})
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// PREDICTION HANDLERS
// =============================================================================

// CreatePrediction forecasts one future period and stores the result.
// A missing baseline falls back to configured defaults; the response
// carries from_defaults instead of failing.
func (h *Handler) CreatePrediction(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req PredictRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	input, err := h.buildPredictInput(r, id, payroll.PeriodLabel(req.TargetLabel), req.Scenario)
	if err != nil {
		writeDomainError(w, "Failed to assemble prediction input", err)
		return
	}

	prediction, err := payroll.Predict(input)
	if err != nil && !payroll.IsRecoverable(err) {
		writeDomainError(w, "Prediction failed", err)
		return
	}

	if err := h.Store.SavePrediction(r.Context(), prediction); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to store prediction", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPredictionDTO(prediction))
}

// ListPredictions returns stored forecasts for the employee.
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	predictions, err := h.Store.Predictions(r.Context(), id)
	if err != nil {
		writeDomainError(w, "Failed to list predictions", err)
		return
	}
	dtos := make([]PredictionDTO, len(predictions))
	for i, p := range predictions {
		dtos[i] = toPredictionDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// RunScenarios sweeps several what-if parameter sets over one target
// period. Every outcome after the first is also compared against the
// first, so clients can render "versus baseline scenario" deltas.
func (h *Handler) RunScenarios(w http.ResponseWriter, r *http.Request) {
	id := payroll.EmployeeID(chi.URLParam(r, "id"))

	var req ScenarioRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Scenarios) == 0 {
		writeError(w, http.StatusBadRequest, "At least one scenario is required", nil)
		return
	}

	input, err := h.buildPredictInput(r, id, payroll.PeriodLabel(req.TargetLabel), nil)
	if err != nil {
		writeDomainError(w, "Failed to assemble prediction input", err)
		return
	}

	scenarios := make([]payroll.ScenarioParams, 0, len(req.Scenarios))
	for _, s := range req.Scenarios {
		params, err := h.scenarioParams(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid scenario "+s.Name, err)
			return
		}
		scenarios = append(scenarios, params)
	}

	outcomes := payroll.RunScenarios(input, scenarios)
	thresholds := h.config().Thresholds

	dtos := make([]ScenarioOutcomeDTO, len(outcomes))
	for i, o := range outcomes {
		dto := ScenarioOutcomeDTO{Scenario: o.Scenario.Name}
		if o.Err != nil && !payroll.IsRecoverable(o.Err) {
			dto.Error = o.Err.Error()
			dtos[i] = dto
			continue
		}
		p := toPredictionDTO(o.Prediction)
		dto.Prediction = &p
		if i > 0 && dtos[0].Prediction != nil {
			records, err := payroll.CompareScenarios(outcomes[0], o, thresholds)
			if err == nil {
				dto.VsFirst = toDeviationDTOs(records)
			}
		}
		dtos[i] = dto
	}
	writeJSON(w, http.StatusOK, dtos)
}

// buildPredictInput assembles everything a forecast needs from the store.
func (h *Handler) buildPredictInput(r *http.Request, id payroll.EmployeeID, target payroll.PeriodLabel, scenario *ScenarioRequest) (payroll.PredictInput, error) {
	ctx := r.Context()

	emp, err := h.Store.Employee(ctx, id)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	historical, err := h.Store.Periods(ctx, id)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	snapshot, err := h.Store.CalendarSnapshot(ctx)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	increases, err := h.Store.Increases(ctx)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	extras, err := h.Store.ExtraPayments(ctx, id)
	if err != nil {
		return payroll.PredictInput{}, err
	}
	extras = h.mergeScheduledExtras(extras, id, target)

	params := h.config().ScenarioDefaults
	if scenario != nil {
		params, err = h.scenarioParams(*scenario)
		if err != nil {
			return payroll.PredictInput{}, err
		}
	}

	return payroll.PredictInput{
		Employee:      emp,
		TargetLabel:   target,
		Historical:    historical,
		Calendar:      snapshot,
		Increases:     increases,
		ExtraPayments: extras,
		Scenario:      params,
	}, nil
}

// mergeScheduledExtras appends the payments the configuration schedules for
// the target year. Stored payments win over schedule entries of the same
// type and date.
func (h *Handler) mergeScheduledExtras(stored []payroll.ExtraPayment, id payroll.EmployeeID, target payroll.PeriodLabel) []payroll.ExtraPayment {
	year, _, err := target.Parse()
	if err != nil {
		return stored
	}
	out := stored
	for _, ep := range h.config().ScheduledExtraPayments(id, year) {
		known := false
		for _, s := range stored {
			if s.Type == ep.Type && s.Date.EqualDay(ep.Date) {
				known = true
				break
			}
		}
		if !known {
			out = append(out, ep)
		}
	}
	return out
}

// scenarioParams builds one what-if parameter set on top of the
// configured defaults.
func (h *Handler) scenarioParams(req ScenarioRequest) (payroll.ScenarioParams, error) {
	params := h.config().ScenarioDefaults
	params.Name = req.Name
	params.HypotheticalIncreases = nil
	for _, dto := range req.HypotheticalIncreases {
		inc, err := parseIncrease(dto)
		if err != nil {
			return payroll.ScenarioParams{}, err
		}
		params.HypotheticalIncreases = append(params.HypotheticalIncreases, inc)
	}
	return params, nil
}

// =============================================================================
// CONFIGURATION HANDLER
// =============================================================================

// LoadConfig replaces the engine configuration from a JSON document.
// The document is fully validated before anything is swapped.
func (h *Handler) LoadConfig(w http.ResponseWriter, r *http.Request) {
	var cj factory.ConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&cj); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	cfg, err := factory.NewConfigFactory().FromJSON(cj)
	if err != nil {
		writeDomainError(w, "Invalid configuration", err)
		return
	}

	h.mu.Lock()
	h.cfg = cfg
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"taxonomy_version":   cfg.Taxonomy.Version(),
		"composition_policy": string(cfg.CompositionPolicy),
		"increases":          len(cfg.Increases),
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func parseCalendarDay(id payroll.EmployeeID, dto CalendarDayDTO) (payroll.CalendarDay, error) {
	day := payroll.CalendarDay{
		EmployeeID: id,
		Type:       payroll.DayType(dto.Type),
		Shift:      payroll.Shift(dto.Shift),
		Source:     sourceFromName(dto.Source),
	}
	date, err := payroll.ParseDate(dto.Date)
	if err != nil {
		return payroll.CalendarDay{}, &payroll.ConfigurationError{Field: "date", Detail: err.Error()}
	}
	day.Date = date
	if dto.TheoreticalHours != "" {
		hours, err := decimal.NewFromString(dto.TheoreticalHours)
		if err != nil {
			return payroll.CalendarDay{}, &payroll.ConfigurationError{Field: "theoretical_hours", Detail: err.Error()}
		}
		day.TheoreticalHours = hours
	}
	if dto.WrittenAt != "" {
		written, err := payroll.ParseDate(dto.WrittenAt)
		if err != nil {
			return payroll.CalendarDay{}, &payroll.ConfigurationError{Field: "written_at", Detail: err.Error()}
		}
		day.WrittenAt = written
	} else {
		day.WrittenAt = payroll.Today()
	}
	return day, nil
}

func sourceName(s payroll.CalendarSource) string {
	switch s {
	case payroll.SourceManual:
		return "manual"
	case payroll.SourcePattern:
		return "pattern"
	default:
		return "import"
	}
}

func sourceFromName(name string) payroll.CalendarSource {
	switch name {
	case "manual":
		return payroll.SourceManual
	case "pattern":
		return payroll.SourcePattern
	default:
		return payroll.SourceImport
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP status codes.
func writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, payroll.ErrEmployeeNotFound), errors.Is(err, payroll.ErrPeriodNotFound):
		writeError(w, http.StatusNotFound, message, err)
	case payroll.IsRequestError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
