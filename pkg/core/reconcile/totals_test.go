package reconcile

import (
	"math"
	"testing"

	"focusrecon/pkg/models"
)

func rows(pairs ...any) []models.LineItemRow {
	out := make([]models.LineItemRow, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, models.LineItemRow{
			Name:   pairs[i].(string),
			Amount: pairs[i+1].(float64),
		})
	}
	return out
}

func TestReconcileVerifiedTotal(t *testing.T) {
	res := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
		"Total assets", 30.0,
	))
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 30 {
		t.Errorf("total = %v, want 30", res.Total)
	}
	if len(res.Rows) != 2 {
		t.Errorf("surviving rows = %d, want 2 (total row stripped)", len(res.Rows))
	}
}

func TestReconcileScaleRestatedTotal(t *testing.T) {
	// total restated one power of ten off: the multiple check recovers
	// it and the backward sum becomes canonical
	res := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
		"Total assets", 300.0,
	))
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 30 {
		t.Errorf("total = %v, want backward sum 30", res.Total)
	}
	if len(res.Rows) != 2 {
		t.Errorf("surviving rows = %d, want 2", len(res.Rows))
	}
}

func TestReconcileTenfoldTotalWithFractionalSum(t *testing.T) {
	// a fractional backward sum at a tenfold restatement has no digit
	// substring to fall back on; the power-of-ten test alone must fire
	res := ReconcileTotals(rows(
		"Cash", 1.5,
		"Receivables", 1.6,
		"Total assets", 31.0,
	))
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 3.1 {
		t.Errorf("total = %v, want backward sum 3.1", res.Total)
	}
	if len(res.Rows) != 2 {
		t.Errorf("surviving rows = %d, want 2", len(res.Rows))
	}
}

func TestReconcileSkipsMissingAmountsInWindow(t *testing.T) {
	// a row whose value never parsed still occupies its window slot but
	// contributes nothing to the backward sum
	res := ReconcileTotals([]models.LineItemRow{
		{Name: "Cash", Amount: 10},
		{Name: "Goodwill", Amount: math.NaN()},
		{Name: "Receivables", Amount: 20},
		{Name: "Total assets", Amount: 30},
	})
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 30 {
		t.Errorf("total = %v, want 30", res.Total)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("surviving rows = %d, want 3", len(res.Rows))
	}
	if !res.Rows[1].Missing() {
		t.Errorf("expected the unparsed row to survive as missing, got %v", res.Rows[1].Amount)
	}
}

func TestReconcileUnverifiedTotalKept(t *testing.T) {
	// more than 1% off: the row is retained and flagged, never
	// silently dropped
	res := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
		"Total assets", 37.0,
	))
	if res.Flag != FlagUnverified {
		t.Fatalf("flag = %d, want unverified", res.Flag)
	}
	if res.Total != 37 {
		t.Errorf("total = %v, want reported 37", res.Total)
	}
	if len(res.Rows) != 3 {
		t.Errorf("surviving rows = %d, want all 3 kept", len(res.Rows))
	}
}

func TestReconcileNoKeyword(t *testing.T) {
	res := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
	))
	if res.Flag != FlagNoKeyword {
		t.Fatalf("flag = %d, want no-keyword", res.Flag)
	}
	if !math.IsNaN(res.Total) {
		t.Errorf("total = %v, want NaN", res.Total)
	}
}

func TestReconcileSubtotalAndGrandTotal(t *testing.T) {
	// a subtotal and the grand total both reconcile away; the window
	// for the grand total skips the already-dropped subtotal
	res := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
		"Subtotal", 30.0,
		"Securities owned", 70.0,
		"Total assets", 100.0,
	))
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 100 {
		t.Errorf("total = %v, want 100", res.Total)
	}
	if len(res.Rows) != 3 {
		t.Errorf("surviving rows = %d, want 3 elemental rows", len(res.Rows))
	}
	for _, row := range res.Rows {
		if row.Name == "Subtotal" || row.Name == "Total assets" {
			t.Errorf("derived row %q survived", row.Name)
		}
	}
}

func TestReconcileLiabilityEquityTotal(t *testing.T) {
	res := ReconcileTotals(rows(
		"Payables to customers", 500000.0,
		"Stockholder's equity", 379361.0,
		"Total liabilities and stockholder's equity", 879361.0,
	))
	if res.Flag != FlagVerified {
		t.Fatalf("flag = %d, want verified", res.Flag)
	}
	if res.Total != 879361 {
		t.Errorf("total = %v, want 879361", res.Total)
	}
}

func TestReconcileIdempotent(t *testing.T) {
	first := ReconcileTotals(rows(
		"Cash", 10.0,
		"Receivables", 20.0,
		"Subtotal", 30.0,
		"Securities owned", 70.0,
		"Total assets", 100.0,
	))
	second := ReconcileTotals(first.Rows)
	if len(second.Rows) != len(first.Rows) {
		t.Fatalf("second pass dropped rows: %d -> %d", len(first.Rows), len(second.Rows))
	}
}

func TestIsTotalName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Total assets", true},
		{"TOTAL ASSETS", true},
		{"Total assets (note 4)", true},
		{"Total liabilities and stockholder's equity", true},
		{"Total liabilities and partners' capital", true},
		{"Liabilities subordinated to claims of general creditors", false},
		{"Cash and cash equivalents", false},
		{"Total assets pledged as collateral", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTotalName(tt.name); got != tt.want {
				t.Errorf("isTotalName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestMultipleCheck(t *testing.T) {
	tests := []struct {
		name  string
		x1    float64
		x2    float64
		canon float64
		want  bool
	}{
		{"Power of ten", 745.2322, 7452322, 7452322, true},
		{"Tenfold down with decimals", 31, 3.1, 3.1, true},
		{"Hundredfold down with decimals", 432, 4.32, 4.32, true},
		{"Dropped leading digit", 174182935, 74182935, 74182935, true},
		{"Unrelated values", 100, 37, 100, false},
		{"Zero guarded", 0, 100, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			canon, ok := multipleCheck(tt.x1, tt.x2)
			if ok != tt.want || canon != tt.canon {
				t.Errorf("multipleCheck(%v, %v) = (%v, %v), want (%v, %v)", tt.x1, tt.x2, canon, ok, tt.canon, tt.want)
			}
		})
	}
}

func TestEpsilonError(t *testing.T) {
	tests := []struct {
		name string
		x1   float64
		x2   float64
		want bool
	}{
		{"Single digit misread within tolerance", 879361, 879351, true},
		{"Single digit but over tolerance", 179361, 979361, false},
		{"Two digits differ", 879361, 879344, false},
		{"Different lengths", 879361, 79361, false},
		{"Zero guarded", 0, 879361, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := epsilonError(tt.x1, tt.x2, models.MismatchTolerance); got != tt.want {
				t.Errorf("epsilonError(%v, %v) = %v, want %v", tt.x1, tt.x2, got, tt.want)
			}
		})
	}
}
