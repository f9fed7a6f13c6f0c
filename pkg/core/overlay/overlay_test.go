package overlay

import (
	"os"
	"path/filepath"
	"testing"

	"focusrecon/pkg/models"
)

func mustID(t *testing.T, s string) models.DocumentID {
	t.Helper()
	id, err := models.ParseDocumentID(s)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func sampleRows() []models.LineItemRow {
	return []models.LineItemRow{
		{Name: "Receivables", Amount: 1030000000},
		{Name: "Customers", Amount: 13482000000},
		{Name: "Total assets", Amount: 14512000000},
	}
}

func TestApplyReplaceValue(t *testing.T) {
	r := NewRegistry()
	r.Add("318336-2018-03-01",
		Correction{Op: OpReplaceValue, Match: 13482000000, Value: 13482000111},
	)

	got := r.Apply(mustID(t, "318336-2018-03-01"), StagePreReconcile, sampleRows())
	if got[1].Amount != 13482000111 {
		t.Errorf("amount = %v, want nudged value", got[1].Amount)
	}
	// rules never leak across documents
	other := r.Apply(mustID(t, "318336-2019-03-01"), StagePreReconcile, sampleRows())
	if other[1].Amount != 13482000000 {
		t.Errorf("unrelated document modified: %v", other[1].Amount)
	}
}

func TestApplyInsertRowIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Add("356628-2006-03-02",
		Correction{Op: OpInsertRow, Index: 0, Name: "Cash", Value: 32494000},
	)
	id := mustID(t, "356628-2006-03-02")

	once := r.Apply(id, StagePreReconcile, sampleRows())
	if len(once) != 4 || once[0].Name != "Cash" {
		t.Fatalf("insert failed: %v", once)
	}
	twice := r.Apply(id, StagePreReconcile, once)
	if len(twice) != 4 {
		t.Errorf("re-apply inserted again: %d rows", len(twice))
	}
}

func TestApplyDropRowGuarded(t *testing.T) {
	r := NewRegistry()
	r.Add("72267-2012-03-15",
		Correction{Op: OpDropRow, Index: 1, Name: "Customers"},
	)
	id := mustID(t, "72267-2012-03-15")

	once := r.Apply(id, StagePreReconcile, sampleRows())
	if len(once) != 2 || once[1].Name != "Total assets" {
		t.Fatalf("drop failed: %v", once)
	}
	// the guard name no longer matches whatever shifted into index 1
	twice := r.Apply(id, StagePreReconcile, once)
	if len(twice) != 2 {
		t.Errorf("re-apply dropped again: %d rows", len(twice))
	}
}

func TestApplyDropValue(t *testing.T) {
	r := NewRegistry()
	r.Add("895502-2002-02-28",
		Correction{Op: OpDropValue, Match: 13482000000},
	)
	got := r.Apply(mustID(t, "895502-2002-02-28"), StagePreReconcile, sampleRows())
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
}

func TestApplyStageFilter(t *testing.T) {
	r := NewRegistry()
	r.Add("318336-2018-03-01",
		Correction{Op: OpReplaceValue, Stage: StagePostReconcile, Match: 13482000000, Value: 1},
	)
	got := r.Apply(mustID(t, "318336-2018-03-01"), StagePreReconcile, sampleRows())
	if got[1].Amount != 13482000000 {
		t.Errorf("post-reconcile rule fired at pre-reconcile stage")
	}
}

func TestScaleOverride(t *testing.T) {
	r := NewRegistry()
	r.Add("867626-2013-02-28", Correction{Op: OpForceScale, Scale: 0.001})

	if s, ok := r.ScaleOverride(mustID(t, "867626-2013-02-28")); !ok || s != 0.001 {
		t.Errorf("ScaleOverride = (%v, %v), want (0.001, true)", s, ok)
	}
	if _, ok := r.ScaleOverride(mustID(t, "867626-2014-02-28")); ok {
		t.Error("unexpected override for unrelated document")
	}
}

func TestLoadRuleFile(t *testing.T) {
	content := `{
  // nudge one amount, force a scale
  318336-2005-03-01: [
    { op: "replace_value", match: 1171000000, value: 1171000111 }
  ]
  890203-2020-03-02: [
    { op: "force_scale", scale: 1000 }
  ]
}`
	path := filepath.Join(t.TempDir(), "exceptions.hjson")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if r.Len() != 2 {
		t.Fatalf("expected rules for 2 documents, got %d", r.Len())
	}

	got := r.Apply(mustID(t, "318336-2005-03-01"), StagePreReconcile,
		[]models.LineItemRow{{Name: "Commercial paper", Amount: 1171000000}})
	if got[0].Amount != 1171000111 {
		t.Errorf("loaded rule not applied: %v", got[0].Amount)
	}
	if s, ok := r.ScaleOverride(mustID(t, "890203-2020-03-02")); !ok || s != 1000 {
		t.Errorf("ScaleOverride = (%v, %v), want (1000, true)", s, ok)
	}
}
