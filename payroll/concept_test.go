/*
concept_test.go - Executable specification of label canonicalization
*/
package payroll_test

import (
	"testing"

	"github.com/warp/payroll-engine/payroll"
)

func TestTaxonomy_BuiltinLabels_FoldAccentsCaseAndWhitespace(t *testing.T) {
	// "Antigüedad", "ANTIGUEDAD " and "antiguedad" must all meet on the
	// seniority concept.
	tax := payroll.NewTaxonomy(1, nil)

	for _, raw := range []string{"Antigüedad", "ANTIGUEDAD ", "antiguedad", "  antigüedad  "} {
		id, kind, warn := tax.Canonicalize(raw)
		if id != payroll.ConceptSeniority {
			t.Errorf("%q resolved to %s, want seniority", raw, id)
		}
		if kind != payroll.KindEarning {
			t.Errorf("%q kind = %s, want earning", raw, kind)
		}
		if warn != nil {
			t.Errorf("%q produced a warning: %v", raw, warn)
		}
	}
}

func TestTaxonomy_UnknownLabel_MapsToUnmappedWithWarning(t *testing.T) {
	// Canonicalization is total: unknown labels never fail.
	tax := payroll.NewTaxonomy(1, nil)

	id, _, warn := tax.Canonicalize("Plus Marciano")
	if id != payroll.ConceptUnmapped {
		t.Errorf("id = %s, want unmapped", id)
	}
	if warn == nil || warn.Code != payroll.WarnUnmappedConcept {
		t.Fatalf("expected an unmapped-concept warning, got %v", warn)
	}
}

func TestTaxonomy_Alias_ShadowsBuiltin(t *testing.T) {
	// A configured alias may redirect a label the builtin table already
	// knows; the snapshot honors the alias.
	tax := payroll.NewTaxonomy(2, []payroll.Alias{
		{Raw: "Antigüedad", ID: payroll.ConceptPersonalComp, Kind: payroll.KindEarning},
	})

	id, _, _ := tax.Canonicalize("antiguedad")
	if id != payroll.ConceptPersonalComp {
		t.Errorf("id = %s, alias must shadow the builtin mapping", id)
	}
	if tax.Version() != 2 {
		t.Errorf("version = %d, want 2", tax.Version())
	}
}

func TestTaxonomy_Determinism_SameInputSameOutput(t *testing.T) {
	tax := payroll.NewTaxonomy(1, nil)
	first, _, _ := tax.Canonicalize("salario")
	for i := 0; i < 100; i++ {
		id, _, _ := tax.Canonicalize("salario")
		if id != first {
			t.Fatalf("canonicalization diverged on run %d: %s vs %s", i, id, first)
		}
	}
}

func TestCanonicalizePeriod_CopiesInputAndCollectsWarnings(t *testing.T) {
	// GIVEN: A payslip with one known and one unknown label
	// WHEN: Canonicalizing
	// THEN: The input is untouched, the copy is canonical, one warning

	tax := payroll.NewTaxonomy(1, nil)
	original := payroll.PayPeriod{
		EmployeeID: "emp-1",
		Label:      "2025-06",
		Lines: []payroll.ConceptLine{
			{RawLabel: "Salario", Kind: payroll.KindEarning, Amount: money(1500)},
			{RawLabel: "Plus Marciano", Amount: money(10)},
		},
	}

	canonical, warnings := tax.CanonicalizePeriod(original)

	if original.Lines[0].Concept != "" {
		t.Error("input payslip was mutated")
	}
	if canonical.Lines[0].Concept != payroll.ConceptBaseSalary {
		t.Errorf("line 0 = %s, want base salary", canonical.Lines[0].Concept)
	}
	if canonical.Lines[1].Concept != payroll.ConceptUnmapped {
		t.Errorf("line 1 = %s, want unmapped", canonical.Lines[1].Concept)
	}
	if len(warnings) != 1 || warnings[0].Period != original.Label {
		t.Errorf("warnings = %+v, want one stamped with the period label", warnings)
	}
}
