/*
Package payroll provides the core comparison, retroactive-correction and
prediction engine for recurring payroll records.

PURPOSE:
  This package contains the domain types and algorithms for reconciling
  payslips, time-tracking entries and leave balances across periods:
  deviation detection, hourly-rate decomposition, retroactive increase
  settlement and calendar-driven payslip forecasting.

KEY CONCEPTS IN THIS FILE (types.go):
  - Money/HourCount: decimal quantities (never float64 for currency)
  - PayPeriod/ConceptLine: one issued payslip and its earning/deduction lines
  - Balance: entitlement/consumed/pending tally of vacation or banked hours
  - TimeEntry: actual recorded time, as opposed to calendar theory
  - SalaryIncrease: a windowed percentage raise, possibly retroactive
  - ExtraPayment: an annual extra payslip (compared like a PayPeriod)
  - Prediction: a synthesized future payslip, derived and disposable

DESIGN PRINCIPLES:
  1. Snapshots in, values out: the engine never owns persistence and never
     mutates historical records. Corrections and forecasts are new values.
  2. Precision: decimal.Decimal everywhere money or hours appear.
  3. Warnings over failures: inconsistent data degrades to an attached
     DataQualityWarning, it does not abort a batch (see errors.go).

SEE ALSO:
  - concept.go:  canonical concept taxonomy (the join key for comparisons)
  - calendar.go: theoretical hours and day classification
  - compare.go:  the generic deviation comparator
  - increase.go: retroactive increase settlement
  - predict.go:  the forecast engine
*/
package payroll

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Currency amount backed by decimal
// =============================================================================

// Epsilon is the tolerance used for every reconciliation check on currency
// amounts (net totals, quantity×rate products).
var Epsilon = decimal.NewFromFloat(0.01)

type Money struct {
	Value decimal.Decimal
}

func NewMoney(v float64) Money            { return Money{Value: decimal.NewFromFloat(v)} }
func NewMoneyFromInt(v int) Money         { return Money{Value: decimal.NewFromInt(int64(v))} }
func MoneyFromDecimal(d decimal.Decimal) Money { return Money{Value: d} }

func MustParseMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{Value: decimal.Zero}
	}
	return Money{Value: d}
}

func (m Money) Add(o Money) Money              { return Money{Value: m.Value.Add(o.Value)} }
func (m Money) Sub(o Money) Money              { return Money{Value: m.Value.Sub(o.Value)} }
func (m Money) Mul(s decimal.Decimal) Money    { return Money{Value: m.Value.Mul(s)} }
func (m Money) Div(s decimal.Decimal) Money    { return Money{Value: m.Value.Div(s)} }
func (m Money) Neg() Money                     { return Money{Value: m.Value.Neg()} }
func (m Money) Abs() Money                     { return Money{Value: m.Value.Abs()} }
func (m Money) IsZero() bool                   { return m.Value.IsZero() }
func (m Money) IsNegative() bool               { return m.Value.IsNegative() }
func (m Money) Equal(o Money) bool             { return m.Value.Equal(o.Value) }
func (m Money) GreaterThan(o Money) bool       { return m.Value.GreaterThan(o.Value) }
func (m Money) LessThan(o Money) bool          { return m.Value.LessThan(o.Value) }

// WithinEpsilon reports whether two amounts agree up to the reconciliation
// tolerance.
func (m Money) WithinEpsilon(o Money) bool {
	return m.Value.Sub(o.Value).Abs().LessThanOrEqual(Epsilon)
}

func (m Money) String() string { return m.Value.StringFixed(2) }

// =============================================================================
// HOUR COUNT - Time quantity backed by decimal
// =============================================================================

type HourCount struct {
	Value decimal.Decimal
}

func NewHours(v float64) HourCount               { return HourCount{Value: decimal.NewFromFloat(v)} }
func HoursFromDecimal(d decimal.Decimal) HourCount { return HourCount{Value: d} }

func (h HourCount) Add(o HourCount) HourCount { return HourCount{Value: h.Value.Add(o.Value)} }
func (h HourCount) Sub(o HourCount) HourCount { return HourCount{Value: h.Value.Sub(o.Value)} }
func (h HourCount) IsZero() bool              { return h.Value.IsZero() }
func (h HourCount) IsPositive() bool          { return h.Value.IsPositive() }
func (h HourCount) Equal(o HourCount) bool    { return h.Value.Equal(o.Value) }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type ConceptID string
type BalanceType string
type TimeCategory string

// Balance types recovered from payroll balance statements.
const (
	BalanceVacation    BalanceType = "vacation"
	BalanceProduction  BalanceType = "production_credits"
	BalanceBankedHours BalanceType = "banked_hours"
)

// Time categories for TimeEntry records.
const (
	TimeWorked   TimeCategory = "worked"
	TimeNight    TimeCategory = "night"
	TimeOvertime TimeCategory = "overtime"
	TimeAbsence  TimeCategory = "absence"
)

// =============================================================================
// EMPLOYEE - Aggregate root for all records
// =============================================================================

// CategoryChange records an effective-dated professional category.
type CategoryChange struct {
	Category      string
	EffectiveFrom Date
}

type Employee struct {
	ID         EmployeeID
	Number     string
	Name       string
	CostCenter string
	HireDate   Date

	// Category history, ordered by EffectiveFrom ascending.
	Categories []CategoryChange
}

// CategoryAt returns the professional category effective on the given date,
// or the empty string when the date predates every change.
func (e Employee) CategoryAt(d Date) string {
	category := ""
	for _, c := range e.Categories {
		if c.EffectiveFrom.AfterDay(d) {
			break
		}
		category = c.Category
	}
	return category
}

// =============================================================================
// CONCEPT LINE - One earning or deduction entry within a payslip
// =============================================================================

type ConceptKind string

const (
	KindEarning       ConceptKind = "earning"
	KindDeduction     ConceptKind = "deduction"
	KindInformational ConceptKind = "informational"
)

type ConceptLine struct {
	Concept ConceptID
	Kind    ConceptKind

	// RawLabel preserves the source label before canonicalization.
	RawLabel string

	// Quantity and UnitRate are nullable: many concepts carry only an amount.
	Quantity *decimal.Decimal
	UnitRate *decimal.Decimal
	Amount   Money

	// Retroactive marks a line that settles a prior period.
	Retroactive bool
}

// CheckQuantityRate verifies quantity×unitRate against the line amount when
// both factors are present. A mismatch is reported, never corrected.
func (l ConceptLine) CheckQuantityRate() *DataQualityWarning {
	if l.Quantity == nil || l.UnitRate == nil {
		return nil
	}
	product := Money{Value: l.Quantity.Mul(*l.UnitRate)}
	if product.WithinEpsilon(l.Amount) {
		return nil
	}
	return &DataQualityWarning{
		Code:    WarnQuantityRateMismatch,
		Concept: l.Concept,
		Message: "quantity × unit rate disagrees with line amount",
		Expected: product,
		Actual:   l.Amount,
	}
}

// =============================================================================
// PAY PERIOD - One issued payslip
// =============================================================================

type PayPeriod struct {
	EmployeeID EmployeeID

	// Label is the period identifier in "2006-01" form.
	Label PeriodLabel

	IssueDate  Date
	GrossTotal Money
	NetTotal   Money
	Lines      []ConceptLine
}

// EarningTotal sums earning lines; informational lines never count.
func (p PayPeriod) EarningTotal() Money {
	total := Money{}
	for _, l := range p.Lines {
		if l.Kind == KindEarning {
			total = total.Add(l.Amount)
		}
	}
	return total
}

func (p PayPeriod) DeductionTotal() Money {
	total := Money{}
	for _, l := range p.Lines {
		if l.Kind == KindDeduction {
			total = total.Add(l.Amount)
		}
	}
	return total
}

// LineFor returns the first line for the concept, or nil.
func (p PayPeriod) LineFor(id ConceptID) *ConceptLine {
	for i := range p.Lines {
		if p.Lines[i].Concept == id {
			return &p.Lines[i]
		}
	}
	return nil
}

// CheckNet verifies the payslip invariant
// sum(earnings) − sum(deductions) == declared net, within Epsilon.
// Violation is a data-quality flag, not a hard failure.
func (p PayPeriod) CheckNet() *DataQualityWarning {
	computed := p.EarningTotal().Sub(p.DeductionTotal())
	if computed.WithinEpsilon(p.NetTotal) {
		return nil
	}
	return &DataQualityWarning{
		Code:     WarnNetMismatch,
		Period:   p.Label,
		Message:  "earnings minus deductions disagrees with declared net",
		Expected: computed,
		Actual:   p.NetTotal,
	}
}

// Warnings runs every per-period data-quality check.
func (p PayPeriod) Warnings() []DataQualityWarning {
	var out []DataQualityWarning
	if w := p.CheckNet(); w != nil {
		out = append(out, *w)
	}
	for _, l := range p.Lines {
		if w := l.CheckQuantityRate(); w != nil {
			w.Period = p.Label
			out = append(out, *w)
		}
	}
	return out
}

// =============================================================================
// BALANCE - Entitlement/consumed/pending tally as of an evaluation date
// =============================================================================

type Balance struct {
	EmployeeID  EmployeeID
	Type        BalanceType
	Year        int
	EvaluatedAt Date
	Entitlement decimal.Decimal
	Consumed    decimal.Decimal
	Pending     decimal.Decimal
	Unit        string

	// OverdraftOK marks a balance explicitly allowed to go negative
	// (e.g. borrowed banked hours).
	OverdraftOK bool
}

// Check verifies pending = entitlement − consumed and pending ≥ 0 unless the
// balance is an overdraft exception.
func (b Balance) Check() []DataQualityWarning {
	var out []DataQualityWarning
	expected := b.Entitlement.Sub(b.Consumed)
	if expected.Sub(b.Pending).Abs().GreaterThan(Epsilon) {
		out = append(out, DataQualityWarning{
			Code:     WarnBalanceMismatch,
			Message:  "pending disagrees with entitlement minus consumed",
			Expected: Money{Value: expected},
			Actual:   Money{Value: b.Pending},
		})
	}
	if b.Pending.IsNegative() && !b.OverdraftOK {
		out = append(out, DataQualityWarning{
			Code:    WarnOverdraft,
			Message: "pending balance is negative without an overdraft exception",
			Actual:  Money{Value: b.Pending},
		})
	}
	return out
}

// =============================================================================
// TIME ENTRY - Actual recorded time
// =============================================================================

type TimeEntry struct {
	EmployeeID EmployeeID
	Date       Date
	Category   TimeCategory
	Hours      HourCount

	// Recalculation marks an entry correcting a prior period.
	Recalculation bool
}

// WorkedHours sums entries that count as time actually worked. Recalculation
// entries settle earlier periods and are excluded.
func WorkedHours(entries []TimeEntry, period Period) HourCount {
	total := HourCount{}
	for _, e := range entries {
		if e.Recalculation || e.Category == TimeAbsence {
			continue
		}
		if period.Contains(e.Date) {
			total = total.Add(e.Hours)
		}
	}
	return total
}

// =============================================================================
// SALARY INCREASE - Windowed percentage raise
// =============================================================================

type SalaryIncrease struct {
	Concept ConceptID

	// Validity window [From, To]. A nil To means open-ended.
	From Date
	To   *Date

	// Percent is the raise expressed as a percentage, e.g. 5 for +5%.
	Percent decimal.Decimal

	Retroactive bool
}

// Covers reports whether the increase window contains the date.
func (s SalaryIncrease) Covers(d Date) bool {
	if d.BeforeDay(s.From) {
		return false
	}
	return s.To == nil || !d.AfterDay(*s.To)
}

// Factor returns 1 + percent/100.
func (s SalaryIncrease) Factor() decimal.Decimal {
	one := decimal.NewFromInt(1)
	hundred := decimal.NewFromInt(100)
	return one.Add(s.Percent.Div(hundred))
}

// =============================================================================
// EXTRA PAYMENT - Annual extra payslip
// =============================================================================

type ExtraPaymentType string

const (
	ExtraJanuary   ExtraPaymentType = "january"
	ExtraProfit    ExtraPaymentType = "profit_share"
	ExtraJuly      ExtraPaymentType = "july"
	ExtraAgreement ExtraPaymentType = "agreement"
)

type ExtraPayment struct {
	EmployeeID EmployeeID
	Type       ExtraPaymentType
	Date       Date
	Gross      Money
	Net        Money
	Lines      []ConceptLine
}

// AsPayPeriod presents the extra payment as a specialized payslip so the
// comparator can treat both uniformly.
func (e ExtraPayment) AsPayPeriod() PayPeriod {
	return PayPeriod{
		EmployeeID: e.EmployeeID,
		Label:      LabelFor(e.Date),
		IssueDate:  e.Date,
		GrossTotal: e.Gross,
		NetTotal:   e.Net,
		Lines:      e.Lines,
	}
}

// =============================================================================
// PREDICTION - Synthesized future payslip (derived, disposable)
// =============================================================================

type Prediction struct {
	ID          string
	EmployeeID  EmployeeID
	TargetLabel PeriodLabel
	CreatedAt   Date

	// Scenario records the parameters used, for reproducibility.
	Scenario ScenarioParams

	Lines      []ConceptLine
	GrossTotal Money
	NetTotal   Money

	// FromDefaults marks a prediction synthesized without a usable baseline.
	FromDefaults bool

	Warnings []DataQualityWarning
}
