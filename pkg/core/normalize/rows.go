package normalize

import (
	"log"
	"regexp"
	"strings"

	"focusrecon/pkg/core/ocr"
	"focusrecon/pkg/models"
)

// ==================== ROW REPAIRS ====================

// RawRow is a balance-sheet row before numeric conversion: a line-item
// name plus one or more raw value cells.
type RawRow struct {
	Name   string
	Values []string
}

// Value returns the first value cell, or "" for a bare header row.
func (r RawRow) Value() string {
	if len(r.Values) == 0 {
		return ""
	}
	return r.Values[0]
}

// GridToRows converts an OCR cell grid into rows of (name, values...),
// dropping rows whose name cell is empty. The first column is always the
// line-item name; everything after is a value column.
func GridToRows(cells [][]string) []RawRow {
	var rows []RawRow
	for _, row := range cells {
		if len(row) == 0 || strings.TrimSpace(row[0]) == "" {
			continue
		}
		rows = append(rows, RawRow{Name: row[0], Values: append([]string(nil), row[1:]...)})
	}
	return rows
}

// subSchedulePattern flags the caption introducing a consolidated-entity
// sub-schedule appended below the balance sheet proper. Everything at and
// below that caption duplicates figures already counted.
var subSchedulePattern = regexp.MustCompile(`(?i)\(a\) The follow`)

// TruncateSubSchedule drops the trailing sub-schedule block, if any.
func TruncateSubSchedule(rows []RawRow) []RawRow {
	for i, row := range rows {
		if subSchedulePattern.MatchString(row.Name) {
			return rows[:i]
		}
	}
	return rows
}

// CollapseColumns repairs the column-merge artifact where one value column
// bleeds into two. For each row the first populated value column wins; a
// row with both value cells empty borrows the second value of the row
// below it when that row has both cells populated. Rows with no
// recoverable value are dropped.
func CollapseColumns(rows []RawRow) []RawRow {
	var out []RawRow
	for i, row := range rows {
		col1, col2 := "", ""
		if len(row.Values) > 0 {
			col1 = row.Values[0]
		}
		if len(row.Values) > 1 {
			col2 = row.Values[1]
		}

		switch {
		case IsNumericCell(col1):
			out = append(out, RawRow{Name: row.Name, Values: []string{col1}})
		case IsNumericCell(col2):
			out = append(out, RawRow{Name: row.Name, Values: []string{col2}})
		case col1 == "" && col2 == "":
			if i+1 < len(rows) {
				next := rows[i+1]
				if len(next.Values) > 1 && next.Values[0] != "" && next.Values[1] != "" {
					out = append(out, RawRow{Name: row.Name, Values: []string{next.Values[1]}})
				}
			}
		}
	}
	return out
}

// currencyToken reports whether a whitespace token is a bare currency
// marker ("$", or the "S" it is commonly misread as).
func currencyToken(tok string) bool {
	return tok == "$" || tok == "S"
}

// valueTokens splits a raw value cell on spaces and drops currency markers.
func valueTokens(cell string) []string {
	var out []string
	for _, tok := range strings.Split(cell, " ") {
		if tok == "" || currencyToken(tok) {
			continue
		}
		out = append(out, tok)
	}
	return out
}

// SplitMergedRows repairs the row-merge artifact where two physical rows
// collapse into one cell ("Securities Held Total Assets" against
// "$ 9,112,943 13,151,663"). The document's recovered text lines act as the
// dictionary of known line-item names: every multi-character line contained
// in the merged name contributes one sub-name, in text order. Sub-names and
// value tokens are then aligned positionally. A row that cannot be aligned
// is left unsplit.
func SplitMergedRows(rows []RawRow, lines []ocr.TextLine) []RawRow {
	var out []RawRow
	for _, row := range rows {
		vals := valueTokens(row.Value())
		if len(vals) < 2 {
			out = append(out, row)
			continue
		}

		names := containedLineItems(row.Name, lines)
		aligned, ok := alignSplit(names, vals)
		if !ok {
			log.Printf("[RowNormalizer] Unrecoverable row merge %q, leaving unsplit", row.Name)
			out = append(out, row)
			continue
		}
		out = append(out, aligned...)
	}
	return out
}

// containedLineItems collects the recovered text lines whose text appears
// inside the merged name field, preserving document order. Single-character
// lines are noise and excluded.
func containedLineItems(name string, lines []ocr.TextLine) []string {
	var found []string
	for _, line := range lines {
		if len(line.Text) <= 1 {
			continue
		}
		if strings.Contains(name, line.Text) {
			found = append(found, line.Text)
		}
	}
	return found
}

// alignSplit pairs sub-names with value tokens. Equal counts pair 1:1;
// surplus names drop from the front (headers bleed into the merged cell
// ahead of the true names); exactly one surplus value drops the first
// value. Anything else is unrecoverable.
func alignSplit(names, vals []string) ([]RawRow, bool) {
	switch n := len(names) - len(vals); {
	case n == 0:
	case n > 0:
		names = names[n:]
	case n == -1:
		vals = vals[1:]
	default:
		return nil, false
	}
	if len(names) == 0 {
		return nil, false
	}

	out := make([]RawRow, len(names))
	for i := range names {
		out[i] = RawRow{Name: names[i], Values: []string{vals[i]}}
	}
	return out, true
}

// ToLineItems converts repaired raw rows into numeric line items, applying
// the document unit scale. Unparseable values become missing (NaN) rows
// rather than being dropped: their names still carry category information
// for the structurer.
func ToLineItems(rows []RawRow, scale float64) []models.LineItemRow {
	out := make([]models.LineItemRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.LineItemRow{Name: row.Name, Amount: NormalizeCell(row.Value()) * scale})
	}
	return out
}
