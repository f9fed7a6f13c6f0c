// Package reconcile strips redundant total and subtotal rows from a
// normalized balance-sheet side using a backward-sum scan, and reports how
// well the reported total agrees with the elemental rows.
package reconcile

import (
	"log"
	"math"
	"regexp"
	"strconv"
	"strings"

	"focusrecon/pkg/models"
)

// ==================== TOTAL ROW FLAGS ====================

// TotalFlag describes whether a reported total row was found and verified
// on one side of the balance sheet.
type TotalFlag int

const (
	// FlagUnverified: a total keyword was seen but its backward sum
	// never matched.
	FlagUnverified TotalFlag = 0
	// FlagVerified: a total keyword was seen and its backward sum
	// matched, so the row was stripped and its amount is canonical.
	FlagVerified TotalFlag = 1
	// FlagNoKeyword: no total keyword appeared on this side at all.
	FlagNoKeyword TotalFlag = 2
)

// Result is the cleaned row sequence for one balance-sheet side plus the
// reconciliation outcome.
type Result struct {
	Rows  []models.LineItemRow
	Flag  TotalFlag
	Total float64
}

// ==================== TOTAL NAME PATTERNS ====================

var (
	// "Total assets", optionally parenthesized or at the line's end
	assetTotalPattern = regexp.MustCompile(`(?i)total assets$|^total assets\(|^total assets \(`)

	// the liability & equity total mentions both halves; tested as two
	// independent containment checks
	liabilityTokenPattern = regexp.MustCompile(`(?i)liability|liabilities`)
	equityTokenPattern    = regexp.MustCompile(`(?i)equity|deficit|capital`)
)

// isTotalName reports whether a line-item name is a reported grand total.
func isTotalName(name string) bool {
	if assetTotalPattern.MatchString(name) {
		return true
	}
	return liabilityTokenPattern.MatchString(name) && equityTokenPattern.MatchString(name)
}

// ==================== MATCH TESTS ====================

// floatString renders an amount the way the match tests compare digits.
func floatString(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}

// multipleCheck tests whether the backward sum x2 restates the row value
// x1 at a different order of magnitude. Two OCR failure modes qualify: the
// ratio is an exact power of ten (a misplaced decimal, e.g. 745.2322 vs
// 7452322), or the sum's digit string is the value's digit string missing
// exactly one leading digit (e.g. 74182935 vs 174182935). On a match the
// backward sum is the trustworthy figure and becomes canonical.
func multipleCheck(x1, x2 float64) (float64, bool) {
	if x1 == 0 || x2 == 0 {
		return x1, false
	}

	// Log10 lands one ulp off an integer for some downward ratios
	// (Log10(0.1) = -0.9999999999999999), so integrality is tested
	// within a tolerance rather than exactly.
	l := math.Log10(x2 / x1)
	if r := math.Round(l); !math.IsInf(l, 0) && math.Abs(l-r) < 1e-9 {
		return x2, true
	}

	s1, s2 := floatString(x1), floatString(x2)
	if len(s2) == len(s1)-1 && strings.Contains(s1, s2) {
		return x2, true
	}
	return x1, false
}

// epsilonError tests for a single misread character: the two decimal
// strings have equal length, differ in exactly one position, and the
// relative difference stays within tol.
func epsilonError(x1, x2, tol float64) bool {
	if x1 == 0 || x2 == 0 {
		return false
	}

	s1, s2 := floatString(x1), floatString(x2)
	if len(s1) != len(s2) {
		return false
	}
	changes := 0
	for i := range s1 {
		if s1[i] != s2[i] {
			changes++
		}
	}
	if changes != 1 {
		return false
	}
	return math.Abs((x1-x2)/x1) <= tol
}

// ==================== BACKWARD-SUM RECONCILIATION ====================

// ReconcileTotals scans one balance-sheet side top to bottom. For each row
// it grows a backward-sum window over the surviving rows above; when the
// window sum matches the row's value the row is a derived total and is
// dropped. Match precedence is fixed for reproducibility: exact equality,
// then order-of-magnitude restatement, then single-character misread
// within tolerance. A matched row carrying a total keyword verifies the
// side and its reconciled amount becomes the canonical total.
func ReconcileTotals(rows []models.LineItemRow) *Result {
	alive := make([]bool, len(rows))
	for i := range alive {
		alive[i] = true
	}

	flag := FlagNoKeyword
	total := math.NaN()

	for i, row := range rows {
		isTotal := isTotalName(row.Name)
		if isTotal {
			flag = FlagUnverified
			total = row.Amount
		}

		item1 := row.Amount
		for j := 0; j < i; j++ {
			// window of original positions (i-j-1 .. i-1), summed
			// over rows still alive; missing amounts contribute
			// nothing but keep the window occupied
			sum := 0.0
			empty := true
			for k := i - j - 1; k <= i-1; k++ {
				if alive[k] {
					empty = false
					if !math.IsNaN(rows[k].Amount) {
						sum += rows[k].Amount
					}
				}
			}
			if empty {
				continue
			}

			exact := item1 == sum
			canonical, multiple := multipleCheck(item1, sum)
			epsilon := epsilonError(item1, sum, models.MismatchTolerance)

			if exact || multiple || epsilon {
				alive[i] = false
				if isTotal {
					flag = FlagVerified
					total = canonical
				}
				log.Printf("[TotalsReconciler] Dropped derived total %q (window %d, row %.2f, sum %.2f)", row.Name, j+1, item1, sum)
				break
			}
		}
	}

	var out []models.LineItemRow
	for i, row := range rows {
		if alive[i] {
			out = append(out, row)
		}
	}
	return &Result{Rows: out, Flag: flag, Total: total}
}
