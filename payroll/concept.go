/*
concept.go - Concept taxonomy and canonicalizer

PURPOSE:
  Maps free-form concept labels (varying spelling, casing and diacritics
  across source payslips) to stable canonical concept identifiers and a
  kind tag. Canonical ids are the join key for every cross-period and
  cross-employee comparison, which is why canonicalization is a standalone
  prerequisite and not inline comparator logic.

MATCHING ORDER:
  1. Exact lookup against the built-in canonical set
  2. Folded lookup (lowercase, diacritics stripped, whitespace collapsed)
  3. Configured alias table (also folded)
  4. ConceptUnmapped + DataQualityWarning - never a failure

IMMUTABILITY:
  A Taxonomy is an immutable snapshot. Alias updates produce a new snapshot
  version between batches; nothing mutates mid-batch.
*/
package payroll

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// =============================================================================
// CANONICAL CONCEPT SET
// =============================================================================

const (
	ConceptBaseSalary      ConceptID = "base_salary"
	ConceptSeniority       ConceptID = "seniority"
	ConceptPersonalComp    ConceptID = "personal_complement"
	ConceptNightPremium    ConceptID = "night_premium"
	ConceptTransportPlus   ConceptID = "transport_plus"
	ConceptAvailability    ConceptID = "availability_plus"
	ConceptSpecialization  ConceptID = "specialization_plus"
	ConceptResponsibility  ConceptID = "responsibility_plus"
	ConceptAttendancePlus  ConceptID = "attendance_plus"
	ConceptObjectivesPlus  ConceptID = "objectives_plus"
	ConceptHolidayWorked   ConceptID = "holiday_worked"
	ConceptOvertime        ConceptID = "overtime"
	ConceptExpenses        ConceptID = "expense_reimbursement"
	ConceptExtraPayment    ConceptID = "extra_payment"
	ConceptIncomeTax       ConceptID = "income_tax_withholding"
	ConceptSSCommon        ConceptID = "ss_common_contingencies"
	ConceptSSUnemployment  ConceptID = "ss_unemployment"
	ConceptSSTraining      ConceptID = "ss_training"
	ConceptUnmapped        ConceptID = "unmapped"
)

// builtins maps folded source labels to canonical ids, seeded from the
// labels observed on real payslips.
var builtins = map[string]struct {
	ID   ConceptID
	Kind ConceptKind
}{
	"salario":                  {ConceptBaseSalary, KindEarning},
	"salario base":             {ConceptBaseSalary, KindEarning},
	"antiguedad":               {ConceptSeniority, KindEarning},
	"complemento personal":     {ConceptPersonalComp, KindEarning},
	"nocturnidad":              {ConceptNightPremium, KindEarning},
	"plus nocturnidad":         {ConceptNightPremium, KindEarning},
	"plus transporte":          {ConceptTransportPlus, KindEarning},
	"plus disponibilidad":      {ConceptAvailability, KindEarning},
	"plus especializacion":     {ConceptSpecialization, KindEarning},
	"plus responsabilidad":     {ConceptResponsibility, KindEarning},
	"plus asistencia":          {ConceptAttendancePlus, KindEarning},
	"plus objetivos":           {ConceptObjectivesPlus, KindEarning},
	"festivo trabajado":        {ConceptHolidayWorked, KindEarning},
	"horas extras":             {ConceptOvertime, KindEarning},
	"paga extra":               {ConceptExtraPayment, KindEarning},
	"paga extraordinaria":     {ConceptExtraPayment, KindEarning},
	"dietas":                   {ConceptExpenses, KindInformational},
	"gastos":                   {ConceptExpenses, KindInformational},
	"retencion a cta. irpf":    {ConceptIncomeTax, KindDeduction},
	"retencion irpf":           {ConceptIncomeTax, KindDeduction},
	"trab.cont.comunes":        {ConceptSSCommon, KindDeduction},
	"trab.desempleo":           {ConceptSSUnemployment, KindDeduction},
	"trab.formac.profesional":  {ConceptSSTraining, KindDeduction},
}

// BaseSalaryConcepts is the base-salary-classified set used as the base
// hourly-rate numerator.
var BaseSalaryConcepts = map[ConceptID]bool{
	ConceptBaseSalary:   true,
	ConceptSeniority:    true,
	ConceptPersonalComp: true,
}

// PlusConcepts marks bonus/premium concepts for the quantity×rate breakdown.
var PlusConcepts = map[ConceptID]bool{
	ConceptNightPremium:   true,
	ConceptTransportPlus:  true,
	ConceptAvailability:   true,
	ConceptSpecialization: true,
	ConceptResponsibility: true,
	ConceptAttendancePlus: true,
	ConceptObjectivesPlus: true,
	ConceptHolidayWorked:  true,
	ConceptOvertime:       true,
}

// =============================================================================
// TAXONOMY - Immutable canonicalization snapshot
// =============================================================================

// Alias maps one raw label variant to a canonical concept.
type Alias struct {
	Raw  string
	ID   ConceptID
	Kind ConceptKind
}

// Taxonomy canonicalizes raw labels. Safe for concurrent readers; build a
// new snapshot to change aliases.
type Taxonomy struct {
	version int
	aliases map[string]Alias
}

// NewTaxonomy builds a snapshot from a versioned alias table. Aliases may
// shadow built-in folded labels.
func NewTaxonomy(version int, aliases []Alias) *Taxonomy {
	t := &Taxonomy{version: version, aliases: make(map[string]Alias, len(aliases))}
	for _, a := range aliases {
		t.aliases[foldLabel(a.Raw)] = a
	}
	return t
}

func (t *Taxonomy) Version() int { return t.version }

// Canonicalize resolves a raw label to (conceptID, kind). Total and
// deterministic: unknown labels map to ConceptUnmapped with a warning
// instead of failing.
func (t *Taxonomy) Canonicalize(rawLabel string) (ConceptID, ConceptKind, *DataQualityWarning) {
	folded := foldLabel(rawLabel)

	if a, ok := t.aliases[folded]; ok {
		return a.ID, a.Kind, nil
	}
	if b, ok := builtins[folded]; ok {
		return b.ID, b.Kind, nil
	}

	return ConceptUnmapped, KindInformational, &DataQualityWarning{
		Code:    WarnUnmappedConcept,
		Concept: ConceptUnmapped,
		Message: "no canonical mapping for label " + strings.TrimSpace(rawLabel),
	}
}

// CanonicalizeLine rewrites a concept line in place with its canonical id,
// returning a warning for unmapped labels.
func (t *Taxonomy) CanonicalizeLine(line *ConceptLine) *DataQualityWarning {
	id, kind, warn := t.Canonicalize(line.RawLabel)
	line.Concept = id
	if line.Kind == "" {
		line.Kind = kind
	}
	return warn
}

// CanonicalizePeriod canonicalizes every line of a payslip, collecting
// warnings. The input period is copied, not mutated.
func (t *Taxonomy) CanonicalizePeriod(p PayPeriod) (PayPeriod, []DataQualityWarning) {
	out := p
	out.Lines = make([]ConceptLine, len(p.Lines))
	copy(out.Lines, p.Lines)

	var warnings []DataQualityWarning
	for i := range out.Lines {
		if w := t.CanonicalizeLine(&out.Lines[i]); w != nil {
			w.Period = p.Label
			warnings = append(warnings, *w)
		}
	}
	return out, warnings
}

// =============================================================================
// LABEL FOLDING
// =============================================================================

var diacriticStripper = transform.Chain(
	norm.NFD,
	runes.Remove(runes.In(unicode.Mn)),
	norm.NFC,
)

// foldLabel lowercases, strips diacritics and collapses whitespace so that
// "Antigüedad", "ANTIGUEDAD " and "antiguedad" all meet.
func foldLabel(raw string) string {
	stripped, _, err := transform.String(diacriticStripper, raw)
	if err != nil {
		stripped = raw
	}
	lower := strings.ToLower(stripped)
	return strings.Join(strings.Fields(lower), " ")
}
