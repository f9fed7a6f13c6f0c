// Package assemble locates and stitches the balance-sheet tables inside a
// document's OCR output. Filings frequently split the sheet across pages,
// print the two sides in separate tables, or in rare layouts list
// liabilities before assets; the assembler is a small state machine that
// handles all three.
package assemble

import (
	"log"
	"regexp"
	"strings"

	"focusrecon/pkg/core/ocr"
)

// ==================== FRAGMENT DETECTION ====================

var (
	// asset side: a row starting with "Cash" or mentioning assets
	assetPattern = regexp.MustCompile(`(?i)^cash|asset`)
	// liability & equity side
	liabilityPattern = regexp.MustCompile(`(?i)liabilities|liability`)
)

// fragment is one OCR table that passed the balance-sheet test.
type fragment struct {
	grid         [][]string
	hasAsset     bool
	hasLiability bool
}

// dropEmptyColumns removes columns with no populated cell. Detectors pad
// grids with phantom columns that would otherwise fail the width test.
func dropEmptyColumns(cells [][]string) [][]string {
	width := 0
	for _, row := range cells {
		if len(row) > width {
			width = len(row)
		}
	}
	keep := make([]bool, width)
	for _, row := range cells {
		for j, cell := range row {
			if strings.TrimSpace(cell) != "" {
				keep[j] = true
			}
		}
	}

	out := make([][]string, len(cells))
	for i, row := range cells {
		var slim []string
		for j := 0; j < width; j++ {
			if !keep[j] {
				continue
			}
			if j < len(row) {
				slim = append(slim, row[j])
			} else {
				slim = append(slim, "")
			}
		}
		out[i] = slim
	}
	return out
}

// classify tests one OCR table against the balance-sheet assumptions:
// two or three columns, an asset or cash row in the top half, at least one
// currency marker anywhere (screens out tables of contents). Returns nil
// when the table is not a balance-sheet fragment.
func classify(t ocr.Table) *fragment {
	grid := dropEmptyColumns(t.Cells)

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	if width < 2 || width > 3 {
		return nil
	}

	firstAsset := -1
	hasAsset, hasLiability, hasDollar := false, false, false
	for i, row := range grid {
		name := row[0]
		if assetPattern.MatchString(name) {
			hasAsset = true
			if firstAsset < 0 {
				firstAsset = i
			}
		}
		if liabilityPattern.MatchString(name) {
			hasLiability = true
		}
		for _, cell := range row {
			if strings.Contains(cell, "$") || strings.HasPrefix(cell, "S ") {
				hasDollar = true
			}
		}
	}

	// the cash/asset header belongs near the top of a real balance sheet
	if firstAsset >= 0 && 2*firstAsset >= len(grid) {
		return nil
	}
	if !hasAsset && !hasLiability {
		return nil
	}
	if !hasDollar {
		return nil
	}
	return &fragment{grid: grid, hasAsset: hasAsset, hasLiability: hasLiability}
}

// ==================== STITCHING STATE MACHINE ====================

// State tracks which half of a split balance sheet has been confirmed so
// far while walking a document's tables in page order.
type State int

const (
	// Scanning: no one-sided fragment confirmed yet.
	Scanning State = iota
	// AssetOnlySeen: an asset-side fragment appeared with no liability
	// rows; the matching liability table must follow immediately.
	AssetOnlySeen
	// LiabilityOnlySeen: the liability side appeared first; the asset
	// table must follow immediately and the stitch order reverses.
	LiabilityOnlySeen
	// Done: both sides confirmed.
	Done
)

// Assembly is the stitched balance-sheet grid for one document plus the
// pages it was found on.
type Assembly struct {
	Grid  [][]string
	Pages []int
}

// Assembler walks (page, table) OCR results for a single document and
// accumulates balance-sheet fragments until both sides are confirmed.
type Assembler struct {
	state     State
	fragments [][][]string
	pages     []int
	// tables seen since the one-sided fragment was confirmed; the
	// other side must arrive in the very next table or the split
	// hypothesis is abandoned
	sinceSplit int
	result     *Assembly
}

// NewAssembler returns an assembler in the Scanning state.
func NewAssembler() *Assembler {
	return &Assembler{state: Scanning}
}

// State exposes the current stitching state, primarily for audit logging.
func (a *Assembler) State() State { return a.state }

// Step feeds one OCR table. Returns true once assembly is complete;
// further calls are no-ops.
func (a *Assembler) Step(page int, t ocr.Table) bool {
	if a.state == Done {
		return true
	}

	frag := classify(t)
	if frag != nil {
		a.fragments = append(a.fragments, frag.grid)
		if len(a.pages) == 0 || a.pages[len(a.pages)-1] != page {
			a.pages = append(a.pages, page)
		}

		next, reversed := transition(a.state, frag, a.sinceSplit)
		if next != a.state {
			if next == AssetOnlySeen {
				log.Printf("[TableAssembler] Balance sheet split across tables, awaiting liability side")
			}
			if next == LiabilityOnlySeen {
				log.Printf("[TableAssembler] Liability side read before asset side")
			}
			a.sinceSplit = 0
			a.state = next
		}
		if a.state == Done {
			if reversed {
				reverse(a.fragments)
			}
			a.result = &Assembly{Grid: concat(a.fragments), Pages: a.pages}
			return true
		}
	}

	a.sinceSplit++
	return false
}

// transition is the pure state-transition function. reversed reports that
// the liability side preceded the asset side, so fragment order flips.
func transition(s State, frag *fragment, sinceSplit int) (next State, reversed bool) {
	switch s {
	case Scanning:
		switch {
		case frag.hasAsset && frag.hasLiability:
			return Done, false
		case frag.hasAsset:
			return AssetOnlySeen, false
		case frag.hasLiability:
			return LiabilityOnlySeen, false
		}
	case AssetOnlySeen:
		if frag.hasLiability && (frag.hasAsset || sinceSplit == 1) {
			return Done, false
		}
	case LiabilityOnlySeen:
		if frag.hasAsset && frag.hasLiability {
			return Done, false
		}
		if frag.hasAsset && sinceSplit == 1 {
			return Done, true
		}
	}
	return s, false
}

// Result returns the stitched assembly. ok is false when the document
// produced no complete balance sheet, an expected outcome for
// non-conforming filings.
func (a *Assembler) Result() (*Assembly, bool) {
	if a.result == nil {
		return nil, false
	}
	return a.result, true
}

// Assemble runs the state machine over a whole document.
func Assemble(doc *ocr.Document) (*Assembly, bool) {
	asm := NewAssembler()
	for _, t := range doc.Tables {
		if asm.Step(t.Page, t) {
			break
		}
	}
	res, ok := asm.Result()
	if !ok {
		log.Printf("[TableAssembler] No balance sheet found in %s", doc.ID.String())
	}
	return res, ok
}

func reverse(frags [][][]string) {
	for i, j := 0, len(frags)-1; i < j; i, j = i+1, j-1 {
		frags[i], frags[j] = frags[j], frags[i]
	}
}

func concat(frags [][][]string) [][]string {
	var out [][]string
	for _, f := range frags {
		out = append(out, f...)
	}
	return out
}
