// Package normalize repairs noisy OCR table output: cell-level numeric
// parsing, document unit-scale inference, and structural row repairs for
// column-merge and row-merge artifacts.
package normalize

import (
	"math"
	"strconv"
	"strings"
)

// ==================== CELL TEXT NORMALIZATION ====================

// NormalizeCell converts one raw OCR cell string to a numeric amount.
// Accounting parentheses mean negative, "I"/"l" are misread "1"s, and
// everything that is not a digit, sign, or decimal point is stripped.
// Unparseable cells come back as NaN, never as an error.
func NormalizeCell(raw string) float64 {
	if len(raw) == 0 {
		return math.NaN()
	}

	// accounting convention: (1,234) is a loss
	if raw[0] == '(' {
		raw = "-" + raw
	}

	raw = strings.ReplaceAll(raw, "I", "1")
	raw = strings.ReplaceAll(raw, "l", "1")

	// keep digits, "." and "-" only; a "-" survives only in the lead
	// position; only the last "." survives (earlier dots are misread
	// thousands separators)
	var b strings.Builder
	first := true
	for _, r := range raw {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			first = false
		case r == '-':
			if first {
				b.WriteRune(r)
				first = false
			}
		case r == '.':
			b.WriteRune(r)
			first = false
		}
	}
	s := b.String()
	if i := strings.LastIndex(s, "."); i >= 0 {
		s = strings.Replace(s[:i], ".", "", -1) + s[i:]
	}

	// a fraction longer than two digits is a misplaced thousands
	// separator, not a true decimal (e.g. 432.2884 -> 4322884)
	if dot := strings.Index(s, "."); dot >= 0 && len(s)-dot-1 > 2 {
		s = strings.Replace(s, ".", "", 1)
	}

	if s == "-" || s == "." {
		return 0.0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// NormalizeCells applies NormalizeCell element-wise, preserving order.
func NormalizeCells(raw []string) []float64 {
	out := make([]float64, len(raw))
	for i, s := range raw {
		out[i] = NormalizeCell(s)
	}
	return out
}

// IsNumericCell reports whether a raw cell carries a parseable amount.
func IsNumericCell(raw string) bool {
	return !math.IsNaN(NormalizeCell(raw))
}
