/*
predict.go - Prediction engine

PURPOSE:
  Synthesizes a forecast payslip for a target period from historical data,
  the calendar resolver, active salary increases and scheduled extra
  payments, under a configurable scenario.

ALGORITHM:
  1. Select the most recent comparable historical payslip
  2. Scale calendar-dependent earning lines by the ratio of target-period
     theoretical hours to baseline-period theoretical hours
  3. Compose increases active in the target period (no proration - this is
     prospective, not retroactive)
  4. Recompute deduction lines from the scaled earning base
  5. Inject any extra payment scheduled in the target period

  With no usable baseline the engine degrades to configuration defaults
  and flags the prediction, returning a MissingBaselineError alongside
  the partial result.

  Predictions never mutate historical payslips; they are derived,
  disposable artifacts carrying the scenario parameters that produced
  them.
*/
package payroll

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// SCENARIO PARAMETERS
// =============================================================================

// ScenarioParams fixes every knob a prediction depends on, so the result
// is reproducible from the Prediction record alone.
type ScenarioParams struct {
	Name   string
	Policy CompositionPolicy

	// HypotheticalIncreases are what-if raises layered on top of the
	// active ones (ScenarioSimulator sweeps these).
	HypotheticalIncreases []SalaryIncrease

	// CalendarScaled marks concepts whose amounts follow theoretical
	// hours. Nil uses the built-in default.
	CalendarScaled map[ConceptID]bool

	// Defaults used only when no baseline payslip exists.
	DefaultBaseSalary Money
	SeniorityPercent  decimal.Decimal
	IncomeTaxPercent  decimal.Decimal
	WorkerSSPercent   decimal.Decimal
}

// DefaultScenario carries the published default rates: IRPF 16%, worker
// social security 6.35% (4.70 common + 1.55 unemployment + 0.10 training).
func DefaultScenario() ScenarioParams {
	return ScenarioParams{
		Name:              "default",
		Policy:            CompositionMultiplicative,
		DefaultBaseSalary: NewMoney(1500),
		SeniorityPercent:  decimal.NewFromInt(1),
		IncomeTaxPercent:  decimal.NewFromInt(16),
		WorkerSSPercent:   decimal.NewFromFloat(6.35),
	}
}

func (s ScenarioParams) calendarScaled() map[ConceptID]bool {
	if s.CalendarScaled != nil {
		return s.CalendarScaled
	}
	return map[ConceptID]bool{
		ConceptBaseSalary:    true,
		ConceptSeniority:     true,
		ConceptPersonalComp:  true,
		ConceptNightPremium:  true,
		ConceptHolidayWorked: true,
	}
}

// =============================================================================
// PREDICTION INPUT
// =============================================================================

type PredictInput struct {
	Employee    Employee
	TargetLabel PeriodLabel

	Historical    []PayPeriod
	Calendar      *CalendarSnapshot
	Increases     []SalaryIncrease
	ExtraPayments []ExtraPayment

	Scenario ScenarioParams
}

// =============================================================================
// PREDICTOR
// =============================================================================

// Predict synthesizes the target period's concept set. Historical inputs
// are read-only; the returned Prediction owns all of its lines.
func Predict(in PredictInput) (Prediction, error) {
	targetPeriod, err := in.TargetLabel.Period()
	if err != nil {
		return Prediction{}, &ConfigurationError{Field: "target_label", Detail: err.Error()}
	}
	for _, inc := range append(append([]SalaryIncrease{}, in.Increases...), in.Scenario.HypotheticalIncreases...) {
		if err := ValidateIncrease(inc); err != nil {
			return Prediction{}, err
		}
	}

	pred := Prediction{
		ID:          uuid.NewString(),
		EmployeeID:  in.Employee.ID,
		TargetLabel: in.TargetLabel,
		CreatedAt:   Today(),
		Scenario:    in.Scenario,
	}

	baseline := selectBaseline(in.Historical, in.TargetLabel)
	if baseline == nil {
		pred = synthesizeFromDefaults(pred, in, targetPeriod)
		return pred, &MissingBaselineError{
			EmployeeID: in.Employee.ID,
			Label:      in.TargetLabel,
			Detail:     "no prior payslip; synthesized from configuration defaults",
		}
	}

	baselinePeriod, err := baseline.Label.Period()
	if err != nil {
		return Prediction{}, &ConfigurationError{Field: "baseline_label", Detail: err.Error()}
	}

	targetHours := in.Calendar.TheoreticalHours(in.Employee.ID, targetPeriod)
	baselineHours := in.Calendar.TheoreticalHours(in.Employee.ID, baselinePeriod)
	for _, w := range []*CalendarGapWarning{targetHours.Warning, baselineHours.Warning} {
		if w != nil {
			pred.Warnings = append(pred.Warnings, DataQualityWarning{
				Code: WarnCalendarGap, Period: in.TargetLabel, Message: w.String(),
			})
		}
	}

	ratio := decimal.NewFromInt(1)
	if baselineHours.Total.IsPositive() {
		ratio = targetHours.Total.Value.Div(baselineHours.Total.Value)
	}

	increases := append(append([]SalaryIncrease{}, in.Increases...), in.Scenario.HypotheticalIncreases...)
	pred.Lines = forecastLines(*baseline, ratio, targetPeriod, increases, in.Scenario)

	// Inject extra payments falling in the target period.
	for _, ep := range in.ExtraPayments {
		if ep.EmployeeID == in.Employee.ID && targetPeriod.Contains(ep.Date) {
			pred.Lines = append(pred.Lines, ep.Lines...)
		}
	}

	pred.GrossTotal, pred.NetTotal = totals(pred.Lines)
	return pred, nil
}

// selectBaseline picks the most recent payslip strictly before the target
// label.
func selectBaseline(historical []PayPeriod, target PeriodLabel) *PayPeriod {
	var best *PayPeriod
	for i := range historical {
		p := &historical[i]
		if !p.Label.Before(target) {
			continue
		}
		if best == nil || best.Label.Before(p.Label) {
			best = p
		}
	}
	return best
}

// forecastLines builds the synthesized concept set from a baseline.
func forecastLines(baseline PayPeriod, hoursRatio decimal.Decimal, targetPeriod Period, increases []SalaryIncrease, scenario ScenarioParams) []ConceptLine {
	scaledSet := scenario.calendarScaled()

	var earnings []ConceptLine
	baselineEarningTotal := Money{}
	newEarningTotal := Money{}

	for _, l := range baseline.Lines {
		if l.Kind != KindEarning {
			continue
		}
		baselineEarningTotal = baselineEarningTotal.Add(l.Amount)

		out := l
		if scaledSet[l.Concept] {
			out.Amount = out.Amount.Mul(hoursRatio)
			if l.Quantity != nil {
				q := l.Quantity.Mul(hoursRatio)
				out.Quantity = &q
			}
		}

		factor := activeFactor(increases, l.Concept, targetPeriod, scenario.Policy)
		if !factor.Equal(decimal.NewFromInt(1)) {
			out.Amount = out.Amount.Mul(factor)
			if l.UnitRate != nil {
				r := l.UnitRate.Mul(factor)
				out.UnitRate = &r
			}
		}

		newEarningTotal = newEarningTotal.Add(out.Amount)
		earnings = append(earnings, out)
	}

	// Deductions keep their baseline share of the earning base, so a
	// payslip forecast with unchanged hours and no raises reproduces the
	// baseline exactly.
	var deductions []ConceptLine
	for _, l := range baseline.Lines {
		if l.Kind != KindDeduction {
			continue
		}
		out := l
		if !baselineEarningTotal.IsZero() && !newEarningTotal.Equal(baselineEarningTotal) {
			share := l.Amount.Value.Div(baselineEarningTotal.Value)
			out.Amount = Money{Value: newEarningTotal.Value.Mul(share)}
		}
		deductions = append(deductions, out)
	}

	// Informational lines carry over untouched.
	var info []ConceptLine
	for _, l := range baseline.Lines {
		if l.Kind == KindInformational {
			info = append(info, l)
		}
	}

	lines := append(earnings, deductions...)
	return append(lines, info...)
}

// activeFactor composes increases whose window intersects the target
// period. No proration: prospective application uses the full factor.
func activeFactor(increases []SalaryIncrease, concept ConceptID, target Period, policy CompositionPolicy) decimal.Decimal {
	var active []SalaryIncrease
	for _, inc := range increases {
		if inc.Concept != concept {
			continue
		}
		if _, ok := target.Intersect(inc.From, inc.To); ok {
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

// synthesizeFromDefaults builds a prediction with no baseline: base salary
// and seniority from scenario defaults, deductions at the published rates.
func synthesizeFromDefaults(pred Prediction, in PredictInput, targetPeriod Period) Prediction {
	scenario := in.Scenario
	pred.FromDefaults = true
	pred.Warnings = append(pred.Warnings, DataQualityWarning{
		Code:    WarnIncomplete,
		Period:  in.TargetLabel,
		Message: "no baseline payslip; forecast built from defaults",
	})

	hundred := decimal.NewFromInt(100)
	workingDays := decimal.NewFromInt(int64(in.Calendar.WorkingDays(in.Employee.ID, targetPeriod)))

	base := scenario.DefaultBaseSalary
	factor := activeFactor(append(append([]SalaryIncrease{}, in.Increases...), scenario.HypotheticalIncreases...), ConceptBaseSalary, targetPeriod, scenario.Policy)
	base = base.Mul(factor)
	seniority := base.Mul(scenario.SeniorityPercent.Div(hundred))

	var baseRate, seniorityRate *decimal.Decimal
	if workingDays.IsPositive() {
		br := base.Value.Div(workingDays)
		sr := seniority.Value.Div(workingDays)
		baseRate, seniorityRate = &br, &sr
	}

	pred.Lines = []ConceptLine{
		{Concept: ConceptBaseSalary, Kind: KindEarning, Quantity: &workingDays, UnitRate: baseRate, Amount: base},
		{Concept: ConceptSeniority, Kind: KindEarning, Quantity: &workingDays, UnitRate: seniorityRate, Amount: seniority},
	}

	gross := base.Add(seniority)
	irpf := gross.Mul(scenario.IncomeTaxPercent.Div(hundred))
	ssCommon := gross.Mul(decimal.NewFromFloat(0.047))
	ssUnemployment := gross.Mul(decimal.NewFromFloat(0.0155))
	ssTraining := gross.Mul(decimal.NewFromFloat(0.001))

	pred.Lines = append(pred.Lines,
		ConceptLine{Concept: ConceptIncomeTax, Kind: KindDeduction, Amount: irpf},
		ConceptLine{Concept: ConceptSSCommon, Kind: KindDeduction, Amount: ssCommon},
		ConceptLine{Concept: ConceptSSUnemployment, Kind: KindDeduction, Amount: ssUnemployment},
		ConceptLine{Concept: ConceptSSTraining, Kind: KindDeduction, Amount: ssTraining},
	)

	pred.GrossTotal, pred.NetTotal = totals(pred.Lines)
	return pred
}

func totals(lines []ConceptLine) (gross, net Money) {
	for _, l := range lines {
		switch l.Kind {
		case KindEarning:
			gross = gross.Add(l.Amount)
			net = net.Add(l.Amount)
		case KindDeduction:
			net = net.Sub(l.Amount)
		}
	}
	return gross, net
}
