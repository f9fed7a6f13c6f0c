package export

import (
	"fmt"
	"log"
	"math"
	"os"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/text"

	"focusrecon/pkg/models"
)

// ==================== AUDIT REPORT ====================

// RunSummary carries the per-run counters the audit report prints.
type RunSummary struct {
	RunID      string
	Started    time.Time
	Documents  int
	NoTable    int
	Duplicates int
	Failed     int
	Records    int
}

// WriteReport renders a markdown audit report for one run: totals, verdict
// distribution, and the documents needing manual attention.
func WriteReport(path string, summary RunSummary, records []*models.StructuredRecord) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# Reconciliation Run %s\n\n", summary.RunID)
	fmt.Fprintf(&b, "Started %s, finished %s.\n\n", summary.Started.Format(time.RFC3339), time.Now().Format(time.RFC3339))

	b.WriteString("## Totals\n\n")
	fmt.Fprintf(&b, "| Documents | No table | Duplicates | Failed | Records |\n")
	fmt.Fprintf(&b, "|---|---|---|---|---|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d |\n\n", summary.Documents, summary.NoTable, summary.Duplicates, summary.Failed, summary.Records)

	b.WriteString("## Verdicts\n\n")
	b.WriteString("| Verdict | Asset side | Liability side |\n|---|---|---|\n")
	for _, v := range []models.Verdict{models.VerdictPerfectMatch, models.VerdictBoundedMatch, models.VerdictGrossMismatch, models.VerdictNotFound} {
		a, l := 0, 0
		for _, rec := range records {
			if rec.Assets.Verdict == v {
				a++
			}
			if rec.Liability.Verdict == v {
				l++
			}
		}
		fmt.Fprintf(&b, "| %s | %d | %d |\n", v, a, l)
	}
	b.WriteString("\n")

	var attention []*models.StructuredRecord
	for _, rec := range records {
		if rec.Assets.Verdict == models.VerdictGrossMismatch || rec.Liability.Verdict == models.VerdictGrossMismatch {
			attention = append(attention, rec)
		}
	}
	if len(attention) > 0 {
		b.WriteString("## Needs attention\n\n")
		b.WriteString("| CIK | Fiscal year | Asset error | Liability error |\n|---|---|---|---|\n")
		for _, rec := range attention {
			fmt.Fprintf(&b, "| %s | %d | %s | %s |\n", rec.EntityID, rec.FiscalYear,
				pctOrDash(rec.Assets.RelativeError), pctOrDash(rec.Liability.RelativeError))
		}
		b.WriteString("\n")
	}

	report := b.String()
	if !validMarkdown(report) {
		return fmt.Errorf("generated report failed markdown validation")
	}
	if err := os.WriteFile(path, []byte(report), 0o644); err != nil {
		return fmt.Errorf("failed to write report %s: %w", path, err)
	}
	log.Printf("[Export] Wrote audit report to %s", path)
	return nil
}

func pctOrDash(v float64) string {
	if math.IsNaN(v) {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

// validMarkdown checks the report parses. Goldmark is permissive, so this
// is a basic structural guard.
func validMarkdown(input string) bool {
	parser := goldmark.DefaultParser()
	reader := text.NewReader([]byte(input))
	return parser.Parse(reader) != nil
}
