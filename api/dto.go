/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY ENCODING:
  All amounts cross the wire as decimal strings ("1500.00"), never floats.
  Float64 JSON numbers lose cents; payroll clients do not forgive that.

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/config.go: ConfigJSON for the engine configuration endpoint
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// EmployeeDTO represents an employee in API responses.
type EmployeeDTO struct {
	ID         string              `json:"id"`
	Number     string              `json:"number,omitempty"`
	Name       string              `json:"name"`
	CostCenter string              `json:"cost_center,omitempty"`
	HireDate   string              `json:"hire_date"`
	Categories []CategoryChangeDTO `json:"categories,omitempty"`
}

// CategoryChangeDTO is one effective-dated professional category change.
type CategoryChangeDTO struct {
	Category      string `json:"category"`
	EffectiveFrom string `json:"effective_from"`
}

// CreateEmployeeRequest is the request to create an employee.
type CreateEmployeeRequest struct {
	ID         string              `json:"id"`
	Number     string              `json:"number,omitempty"`
	Name       string              `json:"name"`
	CostCenter string              `json:"cost_center,omitempty"`
	HireDate   string              `json:"hire_date"`
	Categories []CategoryChangeDTO `json:"categories,omitempty"`
}

// LineDTO is one payslip concept line. Quantity and unit_rate are optional;
// many concepts carry only an amount.
type LineDTO struct {
	Concept     string  `json:"concept,omitempty"`
	Kind        string  `json:"kind,omitempty"`
	RawLabel    string  `json:"raw_label,omitempty"`
	Quantity    *string `json:"quantity,omitempty"`
	UnitRate    *string `json:"unit_rate,omitempty"`
	Amount      string  `json:"amount"`
	Retroactive bool    `json:"retroactive,omitempty"`
}

// ImportPeriodRequest is one payslip to import. Lines arrive with raw
// labels; the server canonicalizes them against the active taxonomy.
type ImportPeriodRequest struct {
	Label      string    `json:"label"`
	IssueDate  string    `json:"issue_date,omitempty"`
	GrossTotal string    `json:"gross_total"`
	NetTotal   string    `json:"net_total"`
	Lines      []LineDTO `json:"lines"`
}

// PeriodDTO represents a canonicalized payslip in API responses.
type PeriodDTO struct {
	EmployeeID string       `json:"employee_id"`
	Label      string       `json:"label"`
	IssueDate  string       `json:"issue_date,omitempty"`
	GrossTotal string       `json:"gross_total"`
	NetTotal   string       `json:"net_total"`
	Lines      []LineDTO    `json:"lines"`
	Warnings   []WarningDTO `json:"warnings,omitempty"`
}

// WarningDTO is one data-quality finding attached to a result.
type WarningDTO struct {
	Code     string `json:"code"`
	Period   string `json:"period,omitempty"`
	Concept  string `json:"concept,omitempty"`
	Message  string `json:"message"`
	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`
}

// DeviationDTO is one classified difference between two compared sides.
type DeviationDTO struct {
	Key          string `json:"key"`
	ValueA       string `json:"value_a"`
	ValueB       string `json:"value_b"`
	Delta        string `json:"delta"`
	PercentDelta string `json:"percent_delta"`
	Severity     string `json:"severity"`
	Presence     string `json:"presence"`
}

// ComparisonDTO is the response of a period-to-period comparison.
type ComparisonDTO struct {
	EmployeeID string         `json:"employee_id"`
	LabelA     string         `json:"label_a"`
	LabelB     string         `json:"label_b"`
	Deviations []DeviationDTO `json:"deviations"`
}

// PlusLineDTO is one bonus reattributed to quantity × unit rate.
type PlusLineDTO struct {
	Concept        string `json:"concept"`
	Quantity       string `json:"quantity"`
	UnitRate       string `json:"unit_rate"`
	Amount         string `json:"amount"`
	RateRecomputed bool   `json:"rate_recomputed,omitempty"`
}

// DecompositionDTO is the hourly-rate decomposition of one payslip.
type DecompositionDTO struct {
	EmployeeID          string        `json:"employee_id"`
	Label               string        `json:"label"`
	BaseHourlyRate      string        `json:"base_hourly_rate"`
	EffectiveHourlyRate string        `json:"effective_hourly_rate"`
	TheoreticalHours    string        `json:"theoretical_hours"`
	ActualHours         string        `json:"actual_hours"`
	PlusBreakdown       []PlusLineDTO `json:"plus_breakdown,omitempty"`
	Warnings            []WarningDTO  `json:"warnings,omitempty"`
}

// RetroRequest asks for retroactive corrections over stored payslips.
// Empty labels means every stored period intersecting an increase window.
type RetroRequest struct {
	Labels []string `json:"labels,omitempty"`
}

// RetroRowDTO is the correction for one period and one concept.
type RetroRowDTO struct {
	Label           string `json:"label"`
	Concept         string `json:"concept"`
	OriginalAmount  string `json:"original_amount"`
	CorrectedAmount string `json:"corrected_amount"`
	OwedDelta       string `json:"owed_delta"`
	CoveredDays     int    `json:"covered_days"`
	PeriodDays      int    `json:"period_days"`
}

// RetroResultDTO aggregates corrections over all affected periods.
type RetroResultDTO struct {
	EmployeeID string        `json:"employee_id"`
	Rows       []RetroRowDTO `json:"rows"`
	TotalOwed  string        `json:"total_owed"`
	Incomplete bool          `json:"incomplete,omitempty"`
	Warnings   []WarningDTO  `json:"warnings,omitempty"`
}

// IncreaseDTO is one salary-increase definition.
type IncreaseDTO struct {
	Concept     string  `json:"concept"`
	From        string  `json:"from"`
	To          *string `json:"to,omitempty"`
	Percent     string  `json:"percent"`
	Retroactive bool    `json:"retroactive,omitempty"`
}

// PredictRequest asks for a forecast of one future period.
type PredictRequest struct {
	TargetLabel string `json:"target_label"`

	// Scenario overrides the configured defaults when present.
	Scenario *ScenarioRequest `json:"scenario,omitempty"`
}

// ScenarioRequest is one named what-if parameter set.
type ScenarioRequest struct {
	Name                  string        `json:"name"`
	HypotheticalIncreases []IncreaseDTO `json:"hypothetical_increases,omitempty"`
}

// PredictionDTO is one stored or freshly computed forecast.
type PredictionDTO struct {
	ID           string       `json:"id"`
	EmployeeID   string       `json:"employee_id"`
	TargetLabel  string       `json:"target_label"`
	CreatedAt    string       `json:"created_at"`
	Scenario     string       `json:"scenario"`
	Lines        []LineDTO    `json:"lines"`
	GrossTotal   string       `json:"gross_total"`
	NetTotal     string       `json:"net_total"`
	FromDefaults bool         `json:"from_defaults,omitempty"`
	Warnings     []WarningDTO `json:"warnings,omitempty"`
}

// ScenarioRunRequest sweeps several what-if scenarios over one target.
type ScenarioRunRequest struct {
	TargetLabel string            `json:"target_label"`
	Scenarios   []ScenarioRequest `json:"scenarios"`
}

// ScenarioOutcomeDTO is one scenario's forecast, or its error.
type ScenarioOutcomeDTO struct {
	Scenario   string         `json:"scenario"`
	Prediction *PredictionDTO `json:"prediction,omitempty"`
	Error      string         `json:"error,omitempty"`

	// VsFirst compares this outcome against the first scenario in the run.
	VsFirst []DeviationDTO `json:"vs_first,omitempty"`
}

// BalanceDTO is one entitlement tally with its consistency findings.
type BalanceDTO struct {
	Type        string       `json:"type"`
	Year        int          `json:"year"`
	EvaluatedAt string       `json:"evaluated_at"`
	Entitlement string       `json:"entitlement"`
	Consumed    string       `json:"consumed"`
	Pending     string       `json:"pending"`
	Unit        string       `json:"unit,omitempty"`
	OverdraftOK bool         `json:"overdraft_ok,omitempty"`
	Warnings    []WarningDTO `json:"warnings,omitempty"`
}

// CalendarDayDTO is one calendar write.
type CalendarDayDTO struct {
	Date             string `json:"date"`
	Type             string `json:"type"`
	Shift            string `json:"shift,omitempty"`
	TheoreticalHours string `json:"theoretical_hours"`
	Source           string `json:"source"`
	WrittenAt        string `json:"written_at"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toEmployeeDTO(e payroll.Employee) EmployeeDTO {
	dto := EmployeeDTO{
		ID:         string(e.ID),
		Number:     e.Number,
		Name:       e.Name,
		CostCenter: e.CostCenter,
		HireDate:   e.HireDate.String(),
	}
	for _, c := range e.Categories {
		dto.Categories = append(dto.Categories, CategoryChangeDTO{
			Category:      c.Category,
			EffectiveFrom: c.EffectiveFrom.String(),
		})
	}
	return dto
}

func toLineDTO(l payroll.ConceptLine) LineDTO {
	dto := LineDTO{
		Concept:     string(l.Concept),
		Kind:        string(l.Kind),
		RawLabel:    l.RawLabel,
		Amount:      l.Amount.Value.StringFixed(2),
		Retroactive: l.Retroactive,
	}
	if l.Quantity != nil {
		q := l.Quantity.String()
		dto.Quantity = &q
	}
	if l.UnitRate != nil {
		r := l.UnitRate.String()
		dto.UnitRate = &r
	}
	return dto
}

func toLineDTOs(lines []payroll.ConceptLine) []LineDTO {
	dtos := make([]LineDTO, len(lines))
	for i, l := range lines {
		dtos[i] = toLineDTO(l)
	}
	return dtos
}

func toWarningDTO(w payroll.DataQualityWarning) WarningDTO {
	dto := WarningDTO{
		Code:    string(w.Code),
		Period:  string(w.Period),
		Concept: string(w.Concept),
		Message: w.Message,
	}
	if !w.Expected.IsZero() || !w.Actual.IsZero() {
		dto.Expected = w.Expected.Value.StringFixed(2)
		dto.Actual = w.Actual.Value.StringFixed(2)
	}
	return dto
}

func toWarningDTOs(warnings []payroll.DataQualityWarning) []WarningDTO {
	if len(warnings) == 0 {
		return nil
	}
	dtos := make([]WarningDTO, len(warnings))
	for i, w := range warnings {
		dtos[i] = toWarningDTO(w)
	}
	return dtos
}

func toDeviationDTOs(records []payroll.DeviationRecord) []DeviationDTO {
	dtos := make([]DeviationDTO, len(records))
	for i, d := range records {
		dtos[i] = DeviationDTO{
			Key:          d.Key,
			ValueA:       d.ValueA.Value.StringFixed(2),
			ValueB:       d.ValueB.Value.StringFixed(2),
			Delta:        d.Delta.Value.StringFixed(2),
			PercentDelta: d.PercentDelta.StringFixed(2),
			Severity:     string(d.Severity),
			Presence:     string(d.Presence),
		}
	}
	return dtos
}

func toPredictionDTO(p payroll.Prediction) PredictionDTO {
	return PredictionDTO{
		ID:           p.ID,
		EmployeeID:   string(p.EmployeeID),
		TargetLabel:  string(p.TargetLabel),
		CreatedAt:    p.CreatedAt.String(),
		Scenario:     p.Scenario.Name,
		Lines:        toLineDTOs(p.Lines),
		GrossTotal:   p.GrossTotal.Value.StringFixed(2),
		NetTotal:     p.NetTotal.Value.StringFixed(2),
		FromDefaults: p.FromDefaults,
		Warnings:     toWarningDTOs(p.Warnings),
	}
}

func toPeriodDTO(p payroll.PayPeriod, warnings []payroll.DataQualityWarning) PeriodDTO {
	dto := PeriodDTO{
		EmployeeID: string(p.EmployeeID),
		Label:      string(p.Label),
		GrossTotal: p.GrossTotal.Value.StringFixed(2),
		NetTotal:   p.NetTotal.Value.StringFixed(2),
		Lines:      toLineDTOs(p.Lines),
		Warnings:   toWarningDTOs(warnings),
	}
	if !p.IssueDate.Time.IsZero() {
		dto.IssueDate = p.IssueDate.String()
	}
	return dto
}

func parseIncrease(dto IncreaseDTO) (payroll.SalaryIncrease, error) {
	inc := payroll.SalaryIncrease{
		Concept:     payroll.ConceptID(dto.Concept),
		Retroactive: dto.Retroactive,
	}
	from, err := payroll.ParseDate(dto.From)
	if err != nil {
		return payroll.SalaryIncrease{}, &payroll.ConfigurationError{Field: "from", Detail: err.Error()}
	}
	inc.From = from
	if dto.To != nil {
		to, err := payroll.ParseDate(*dto.To)
		if err != nil {
			return payroll.SalaryIncrease{}, &payroll.ConfigurationError{Field: "to", Detail: err.Error()}
		}
		inc.To = &to
	}
	percent, err := decimal.NewFromString(dto.Percent)
	if err != nil {
		return payroll.SalaryIncrease{}, &payroll.ConfigurationError{Field: "percent", Detail: err.Error()}
	}
	inc.Percent = percent
	return inc, nil
}

func parseLine(dto LineDTO) (payroll.ConceptLine, error) {
	line := payroll.ConceptLine{
		Concept:     payroll.ConceptID(dto.Concept),
		Kind:        payroll.ConceptKind(dto.Kind),
		RawLabel:    dto.RawLabel,
		Retroactive: dto.Retroactive,
	}
	amount, err := decimal.NewFromString(dto.Amount)
	if err != nil {
		return payroll.ConceptLine{}, &payroll.ConfigurationError{Field: "amount", Detail: err.Error()}
	}
	line.Amount = payroll.MoneyFromDecimal(amount)
	if dto.Quantity != nil {
		q, err := decimal.NewFromString(*dto.Quantity)
		if err != nil {
			return payroll.ConceptLine{}, &payroll.ConfigurationError{Field: "quantity", Detail: err.Error()}
		}
		line.Quantity = &q
	}
	if dto.UnitRate != nil {
		r, err := decimal.NewFromString(*dto.UnitRate)
		if err != nil {
			return payroll.ConceptLine{}, &payroll.ConfigurationError{Field: "unit_rate", Detail: err.Error()}
		}
		line.UnitRate = &r
	}
	return line, nil
}
