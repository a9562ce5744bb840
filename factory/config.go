/*
Package factory provides JSON to Go engine-configuration conversion.

PURPOSE:
  Converts JSON configuration documents into the typed settings the
  payroll engines consume: comparison thresholds, concept alias tables,
  salary-increase definitions, extra-payment schedules, category profiles
  and scenario defaults. This enables configuration without code changes -
  an administrator edits JSON, the factory produces the Go structs.

WHY JSON?
  - Non-developers can adjust thresholds and alias tables
  - Version control for configuration documents
  - Database storage of per-deployment configs

JSON SCHEMA:
  {
    "taxonomy_version": 3,
    "aliases": [
      {"raw": "Trab.Cont.Comunes", "concept": "ss_common_contingencies", "kind": "deduction"}
    ],
    "thresholds": {"minor_below": 5, "critical_at_least": 20, "absolute_floor": 1.0},
    "composition_policy": "multiplicative",
    "increases": [
      {"concept": "base_salary", "from": "2025-01-01", "to": "2025-12-31",
       "percent": 2.5, "retroactive": true}
    ],
    "extra_payments": [
      {"type": "july", "month": 7, "day": 15}
    ],
    "category_profiles": [
      {"code": "TEC", "recommended_base": 1600,
       "mandatory_concepts": ["night_premium"]}
    ],
    "scenario_defaults": {
      "default_base_salary": 1500, "seniority_percent": 1,
      "income_tax_percent": 16, "worker_ss_percent": 6.35
    }
  }

KEY FEATURES:
  - Validates structure and value ranges up front
  - Sets the published defaults for anything omitted
  - Every rejection is a payroll.ConfigurationError naming the field

USAGE:
  factory := NewConfigFactory()
  cfg, err := factory.Parse(jsonDocument)
  if err != nil { ... }
  records, err := payroll.Compare(a, b, cfg.Thresholds)

SEE ALSO:
  - payroll/compare.go: Thresholds consumer
  - payroll/concept.go: Taxonomy consumer
  - payroll/increase.go: increase and composition-policy consumers
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/payroll-engine/payroll"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// ConfigJSON is the JSON representation of a full engine configuration.
type ConfigJSON struct {
	TaxonomyVersion   int                   `json:"taxonomy_version"`
	Aliases           []AliasJSON           `json:"aliases,omitempty"`
	Thresholds        *ThresholdsJSON       `json:"thresholds,omitempty"`
	CompositionPolicy string                `json:"composition_policy,omitempty"`
	Increases         []IncreaseJSON        `json:"increases,omitempty"`
	ExtraPayments     []ExtraScheduleJSON   `json:"extra_payments,omitempty"`
	CategoryProfiles  []CategoryProfileJSON `json:"category_profiles,omitempty"`
	ScenarioDefaults  *ScenarioJSON         `json:"scenario_defaults,omitempty"`
}

type AliasJSON struct {
	Raw     string `json:"raw"`
	Concept string `json:"concept"`
	Kind    string `json:"kind,omitempty"`
}

type ThresholdsJSON struct {
	MinorBelow      float64 `json:"minor_below"`
	CriticalAtLeast float64 `json:"critical_at_least"`
	AbsoluteFloor   float64 `json:"absolute_floor"`
}

type IncreaseJSON struct {
	Concept     string  `json:"concept"`
	From        string  `json:"from"`
	To          string  `json:"to,omitempty"`
	Percent     float64 `json:"percent"`
	Retroactive bool    `json:"retroactive,omitempty"`
}

// ExtraScheduleJSON schedules one annual extra payment. Gross is the base
// amount; profit_percent and agreement_factor scale it for the
// profit-share and collective-agreement payment types.
type ExtraScheduleJSON struct {
	Type               string  `json:"type"` // january, profit_share, july, agreement
	Month              int     `json:"month"`
	Day                int     `json:"day"`
	Amount             float64 `json:"amount"`
	ProfitPercent      float64 `json:"profit_percent,omitempty"`
	AgreementFactor    float64 `json:"agreement_factor,omitempty"`
	WithholdingPercent float64 `json:"withholding_percent,omitempty"`
}

type CategoryProfileJSON struct {
	Code              string   `json:"code"`
	RecommendedBase   float64  `json:"recommended_base"`
	MandatoryConcepts []string `json:"mandatory_concepts,omitempty"`
}

type ScenarioJSON struct {
	DefaultBaseSalary float64 `json:"default_base_salary,omitempty"`
	SeniorityPercent  float64 `json:"seniority_percent,omitempty"`
	IncomeTaxPercent  float64 `json:"income_tax_percent,omitempty"`
	WorkerSSPercent   float64 `json:"worker_ss_percent,omitempty"`
}

// =============================================================================
// ENGINE CONFIG - The parsed, validated result
// =============================================================================

// ExtraSchedule places one extra payment type in the year and carries the
// inputs of its gross formula.
type ExtraSchedule struct {
	Type        payroll.ExtraPaymentType
	Month       time.Month
	Day         int
	Amount      payroll.Money
	Scale       decimal.Decimal // profit percent or agreement factor, 1 when unused
	Withholding decimal.Decimal // percentage deducted at source
}

// Date returns the scheduled payment date for a given year.
func (s ExtraSchedule) Date(year int) payroll.Date {
	return payroll.NewDate(year, s.Month, s.Day)
}

// Gross applies the schedule's scale to its base amount.
func (s ExtraSchedule) Gross() payroll.Money {
	return payroll.MoneyFromDecimal(s.Amount.Value.Mul(s.Scale).Round(2))
}

// EngineConfig bundles every setting the engines consume.
type EngineConfig struct {
	Taxonomy          *payroll.Taxonomy
	Thresholds        payroll.Thresholds
	CompositionPolicy payroll.CompositionPolicy
	Increases         []payroll.SalaryIncrease
	ExtraPayments     []ExtraSchedule
	CategoryProfiles  map[string]payroll.CategoryProfile
	ScenarioDefaults  payroll.ScenarioParams
}

// =============================================================================
// CONFIG FACTORY
// =============================================================================

type ConfigFactory struct{}

func NewConfigFactory() *ConfigFactory {
	return &ConfigFactory{}
}

// Parse parses a JSON document into a validated EngineConfig.
func (f *ConfigFactory) Parse(jsonStr string) (*EngineConfig, error) {
	var cj ConfigJSON
	if err := json.Unmarshal([]byte(jsonStr), &cj); err != nil {
		return nil, &payroll.ConfigurationError{Field: "document", Detail: err.Error()}
	}
	return f.FromJSON(cj)
}

// FromJSON converts and validates ConfigJSON.
func (f *ConfigFactory) FromJSON(cj ConfigJSON) (*EngineConfig, error) {
	cfg := &EngineConfig{
		CompositionPolicy: payroll.CompositionMultiplicative,
		CategoryProfiles:  make(map[string]payroll.CategoryProfile),
		ScenarioDefaults:  payroll.DefaultScenario(),
	}

	aliases, err := parseAliases(cj.Aliases)
	if err != nil {
		return nil, err
	}
	cfg.Taxonomy = payroll.NewTaxonomy(cj.TaxonomyVersion, aliases)

	cfg.Thresholds = parseThresholds(cj.Thresholds)
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}

	switch cj.CompositionPolicy {
	case "", "multiplicative":
	case "additive":
		cfg.CompositionPolicy = payroll.CompositionAdditive
	default:
		return nil, &payroll.ConfigurationError{
			Field:  "composition_policy",
			Detail: fmt.Sprintf("unknown policy %q", cj.CompositionPolicy),
		}
	}

	for i, ij := range cj.Increases {
		inc, err := parseIncrease(ij)
		if err != nil {
			return nil, &payroll.ConfigurationError{
				Field:  fmt.Sprintf("increases[%d]", i),
				Detail: err.Error(),
			}
		}
		if err := payroll.ValidateIncrease(inc); err != nil {
			return nil, err
		}
		cfg.Increases = append(cfg.Increases, inc)
	}

	for i, ej := range cj.ExtraPayments {
		schedule, err := parseExtraSchedule(ej)
		if err != nil {
			return nil, &payroll.ConfigurationError{
				Field:  fmt.Sprintf("extra_payments[%d]", i),
				Detail: err.Error(),
			}
		}
		cfg.ExtraPayments = append(cfg.ExtraPayments, schedule)
	}

	for _, pj := range cj.CategoryProfiles {
		if pj.Code == "" {
			return nil, &payroll.ConfigurationError{Field: "category_profiles", Detail: "missing code"}
		}
		profile := payroll.CategoryProfile{
			Code:            pj.Code,
			RecommendedBase: payroll.NewMoney(pj.RecommendedBase),
		}
		for _, c := range pj.MandatoryConcepts {
			profile.MandatoryConcepts = append(profile.MandatoryConcepts, payroll.ConceptID(c))
		}
		cfg.CategoryProfiles[pj.Code] = profile
	}

	if cj.ScenarioDefaults != nil {
		applyScenarioDefaults(&cfg.ScenarioDefaults, *cj.ScenarioDefaults)
	}
	cfg.ScenarioDefaults.Policy = cfg.CompositionPolicy

	return cfg, nil
}

// ScheduledExtraPayments expands the schedule into concrete payments for an
// employee and year. Each payment carries one gross earning line and, when
// the schedule withholds at source, one deduction line.
func (c *EngineConfig) ScheduledExtraPayments(id payroll.EmployeeID, year int) []payroll.ExtraPayment {
	out := make([]payroll.ExtraPayment, 0, len(c.ExtraPayments))
	for _, s := range c.ExtraPayments {
		gross := s.Gross()
		lines := []payroll.ConceptLine{{
			Concept:  payroll.ConceptExtraPayment,
			Kind:     payroll.KindEarning,
			RawLabel: "Paga Extraordinaria",
			Amount:   gross,
		}}
		net := gross
		if s.Withholding.IsPositive() {
			withheld := payroll.MoneyFromDecimal(
				gross.Value.Mul(s.Withholding).Div(decimal.NewFromInt(100)).Round(2))
			lines = append(lines, payroll.ConceptLine{
				Concept:  payroll.ConceptIncomeTax,
				Kind:     payroll.KindDeduction,
				RawLabel: "Retención IRPF",
				Amount:   withheld,
			})
			net = gross.Sub(withheld)
		}
		out = append(out, payroll.ExtraPayment{
			EmployeeID: id,
			Type:       s.Type,
			Date:       s.Date(year),
			Gross:      gross,
			Net:        net,
			Lines:      lines,
		})
	}
	return out
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseAliases(ajs []AliasJSON) ([]payroll.Alias, error) {
	var out []payroll.Alias
	for i, aj := range ajs {
		if aj.Raw == "" || aj.Concept == "" {
			return nil, &payroll.ConfigurationError{
				Field:  fmt.Sprintf("aliases[%d]", i),
				Detail: "raw label and concept are both required",
			}
		}
		out = append(out, payroll.Alias{
			Raw:  aj.Raw,
			ID:   payroll.ConceptID(aj.Concept),
			Kind: parseKind(aj.Kind),
		})
	}
	return out, nil
}

func parseKind(s string) payroll.ConceptKind {
	switch s {
	case "deduction":
		return payroll.KindDeduction
	case "informational":
		return payroll.KindInformational
	default:
		return payroll.KindEarning
	}
}

func parseThresholds(tj *ThresholdsJSON) payroll.Thresholds {
	if tj == nil {
		return payroll.DefaultThresholds()
	}
	return payroll.Thresholds{
		MinorBelow:      decimal.NewFromFloat(tj.MinorBelow),
		CriticalAtLeast: decimal.NewFromFloat(tj.CriticalAtLeast),
		AbsoluteFloor:   payroll.NewMoney(tj.AbsoluteFloor),
	}
}

func parseIncrease(ij IncreaseJSON) (payroll.SalaryIncrease, error) {
	from, err := payroll.ParseDate(ij.From)
	if err != nil {
		return payroll.SalaryIncrease{}, err
	}
	inc := payroll.SalaryIncrease{
		Concept:     payroll.ConceptID(ij.Concept),
		From:        from,
		Percent:     decimal.NewFromFloat(ij.Percent),
		Retroactive: ij.Retroactive,
	}
	if ij.To != "" {
		to, err := payroll.ParseDate(ij.To)
		if err != nil {
			return payroll.SalaryIncrease{}, err
		}
		inc.To = &to
	}
	return inc, nil
}

func parseExtraSchedule(ej ExtraScheduleJSON) (ExtraSchedule, error) {
	var typ payroll.ExtraPaymentType
	scale := decimal.NewFromInt(1)
	switch ej.Type {
	case "january":
		typ = payroll.ExtraJanuary
	case "profit_share":
		typ = payroll.ExtraProfit
		if ej.ProfitPercent <= 0 {
			return ExtraSchedule{}, fmt.Errorf("profit_share requires a positive profit_percent")
		}
		scale = decimal.NewFromFloat(ej.ProfitPercent).Div(decimal.NewFromInt(100))
	case "july":
		typ = payroll.ExtraJuly
	case "agreement":
		typ = payroll.ExtraAgreement
		if ej.AgreementFactor <= 0 {
			return ExtraSchedule{}, fmt.Errorf("agreement requires a positive agreement_factor")
		}
		scale = decimal.NewFromFloat(ej.AgreementFactor)
	default:
		return ExtraSchedule{}, fmt.Errorf("unknown extra payment type %q", ej.Type)
	}
	if ej.Month < 1 || ej.Month > 12 {
		return ExtraSchedule{}, fmt.Errorf("month %d out of range", ej.Month)
	}
	day := ej.Day
	if day == 0 {
		day = 15 // extra payments are customarily issued on the 15th
	}
	if day < 1 || day > 28 {
		return ExtraSchedule{}, fmt.Errorf("day %d out of range", ej.Day)
	}
	if ej.Amount <= 0 {
		return ExtraSchedule{}, fmt.Errorf("amount must be positive")
	}
	if ej.WithholdingPercent < 0 || ej.WithholdingPercent >= 100 {
		return ExtraSchedule{}, fmt.Errorf("withholding_percent %v out of range", ej.WithholdingPercent)
	}
	return ExtraSchedule{
		Type:        typ,
		Month:       time.Month(ej.Month),
		Day:         day,
		Amount:      payroll.NewMoney(ej.Amount),
		Scale:       scale,
		Withholding: decimal.NewFromFloat(ej.WithholdingPercent),
	}, nil
}

func applyScenarioDefaults(params *payroll.ScenarioParams, sj ScenarioJSON) {
	if sj.DefaultBaseSalary > 0 {
		params.DefaultBaseSalary = payroll.NewMoney(sj.DefaultBaseSalary)
	}
	if sj.SeniorityPercent > 0 {
		params.SeniorityPercent = decimal.NewFromFloat(sj.SeniorityPercent)
	}
	if sj.IncomeTaxPercent > 0 {
		params.IncomeTaxPercent = decimal.NewFromFloat(sj.IncomeTaxPercent)
	}
	if sj.WorkerSSPercent > 0 {
		params.WorkerSSPercent = decimal.NewFromFloat(sj.WorkerSSPercent)
	}
}
