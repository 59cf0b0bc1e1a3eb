package diag

import (
	"testing"

	"carbide/internal/source"
)

func TestBagCap(t *testing.T) {
	b := NewBag(2)
	if !b.Add(Diagnostic{Code: SynInfo}) || !b.Add(Diagnostic{Code: SynInfo}) {
		t.Fatalf("adds under cap must succeed")
	}
	if b.Add(Diagnostic{Code: SynInfo}) {
		t.Fatalf("add over cap must be dropped")
	}
}

func TestBagSortAndDedup(t *testing.T) {
	b := NewBag(10)
	sp := source.Span{File: 1, Start: 5, End: 6}
	b.Add(Diagnostic{Code: TmplArityMismatch, Severity: SevError, Primary: source.Span{File: 1, Start: 9, End: 10}})
	b.Add(Diagnostic{Code: TmplConstraintFailed, Severity: SevError, Primary: sp})
	b.Add(Diagnostic{Code: TmplConstraintFailed, Severity: SevError, Primary: sp})
	b.Sort()
	b.Dedup()
	if b.Len() != 2 {
		t.Fatalf("expected 2 after dedup, got %d", b.Len())
	}
	if b.Items()[0].Code != TmplConstraintFailed {
		t.Fatalf("sort order wrong: %v", b.Items()[0].Code)
	}
}

func TestReportBuilderEmitOnce(t *testing.T) {
	bag := NewBag(10)
	rb := ReportError(BagReporter{Bag: bag}, TmplNoViableCandidate, source.Span{}, "no viable candidate").
		WithSuggestion("check the argument types")
	rb.Emit()
	rb.Emit()
	if bag.Len() != 1 {
		t.Fatalf("emit must fire once, got %d", bag.Len())
	}
	if bag.Items()[0].Suggestion == "" {
		t.Fatalf("suggestion lost")
	}
}
