package export

import (
	"encoding/csv"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"focusrecon/pkg/models"
)

func sampleRecords() []*models.StructuredRecord {
	return []*models.StructuredRecord{
		{
			RunID:      "run-1",
			EntityID:   "87634",
			EntityName: "Example Securities Inc",
			FilingDate: "2013-03-01",
			FiscalYear: 2012,
			Categories: map[models.CanonicalCategory]float64{
				"Cash":         1000,
				"Total assets": 1500,
			},
			Assets:    models.SideVerdict{Verdict: models.VerdictPerfectMatch, RelativeError: 0, Total: 1500},
			Liability: models.SideVerdict{Verdict: models.VerdictNotFound, RelativeError: math.NaN(), Total: math.NaN()},
		},
		{
			RunID:      "run-1",
			EntityID:   "91154",
			FilingDate: "2013-03-04",
			FiscalYear: 2012,
			Categories: map[models.CanonicalCategory]float64{
				"Cash":              200,
				"Total liabilities": 180,
			},
			Assets:    models.SideVerdict{Verdict: models.VerdictGrossMismatch, RelativeError: 0.25, Total: 800},
			Liability: models.SideVerdict{Verdict: models.VerdictBoundedMatch, RelativeError: 0.002, Total: 180},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.csv")
	if err := WriteCSV(path, sampleRecords()); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header + 2 rows, got %d rows", len(rows))
	}

	header := rows[0]
	wantPrefix := []string{"CIK", "Name", "Filing Date", "Fiscal Year", "Cash", "Total assets", "Total liabilities"}
	for i, col := range wantPrefix {
		if header[i] != col {
			t.Errorf("header[%d] = %q, want %q", i, header[i], col)
		}
	}

	first := rows[1]
	if first[0] != "87634" || first[4] != "1000" || first[5] != "1500" {
		t.Errorf("unexpected first row: %v", first)
	}
	// categories absent from a record stay blank, as do NaN totals
	if first[6] != "" {
		t.Errorf("expected blank Total liabilities for first row, got %q", first[6])
	}
	if got := first[len(first)-3]; got != "" {
		t.Errorf("expected blank liability total for NOT_FOUND side, got %q", got)
	}
}

func TestColumnOrderSortedDistinct(t *testing.T) {
	cats := columnOrder(sampleRecords())
	want := []string{"Cash", "Total assets", "Total liabilities"}
	if len(cats) != len(want) {
		t.Fatalf("columnOrder = %v, want %v", cats, want)
	}
	for i := range want {
		if cats[i] != want[i] {
			t.Errorf("columnOrder[%d] = %q, want %q", i, cats[i], want[i])
		}
	}
}

func TestWriteReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.md")
	summary := RunSummary{
		RunID:     "run-1",
		Started:   time.Now().Add(-time.Minute),
		Documents: 4,
		NoTable:   1,
		Failed:    1,
		Records:   2,
	}
	if err := WriteReport(path, summary, sampleRecords()); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	report := string(data)

	for _, want := range []string{
		"# Reconciliation Run run-1",
		"## Verdicts",
		"## Needs attention",
		"| 91154 | 2012 | 25.00% | 0.20% |",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

func TestWriteXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "records.xlsx")
	if err := WriteXLSX(path, sampleRecords()); err != nil {
		t.Fatalf("WriteXLSX: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Size() == 0 {
		t.Error("xlsx file is empty")
	}
}
