/*
scenario.go - What-if scenario sweeps

PURPOSE:
  Runs the prediction engine across a set of alternate scenario parameter
  sets (hypothetical raises, additive vs multiplicative stacking, changed
  deduction rates) and pairs each outcome with the scenario that produced
  it, so outcomes can be compared side by side with the same comparator
  that diffs real payslips.
*/
package payroll

// ScenarioOutcome pairs one scenario with its forecast. A failed scenario
// keeps its error without aborting the sweep.
type ScenarioOutcome struct {
	Scenario   ScenarioParams
	Prediction Prediction
	Err        error
}

// RunScenarios forecasts the same target under each scenario. Outcomes are
// returned in input order. A MissingBaselineError still carries a usable
// partial prediction; any other error leaves the zero prediction.
func RunScenarios(base PredictInput, scenarios []ScenarioParams) []ScenarioOutcome {
	out := make([]ScenarioOutcome, 0, len(scenarios))
	for _, sc := range scenarios {
		in := base
		in.Scenario = sc
		pred, err := Predict(in)
		out = append(out, ScenarioOutcome{Scenario: sc, Prediction: pred, Err: err})
	}
	return out
}

// PredictionItems keys forecast lines the same way ConceptItems keys
// payslip lines, so predictions diff against real payslips and against
// each other.
func PredictionItems(p Prediction) []ComparableItem {
	return ConceptItems(PayPeriod{EmployeeID: p.EmployeeID, Label: p.TargetLabel, Lines: p.Lines})
}

// CompareScenarios diffs two scenario outcomes concept by concept.
func CompareScenarios(a, b ScenarioOutcome, thresholds Thresholds) ([]DeviationRecord, error) {
	return Compare(PredictionItems(a.Prediction), PredictionItems(b.Prediction), thresholds)
}

// ComparePredictionToActual diffs a forecast against the payslip that was
// eventually issued for the same period.
func ComparePredictionToActual(pred Prediction, actual PayPeriod, thresholds Thresholds) ([]DeviationRecord, error) {
	return Compare(PredictionItems(pred), ConceptItems(actual), thresholds)
}
