package assemble

import (
	"regexp"

	"focusrecon/pkg/models"
)

// ==================== SIDE BISECTION ====================

var (
	assetTermPattern     = regexp.MustCompile(`(?i)assets`)
	liabilityTermPattern = regexp.MustCompile(`(?i)liability|liabilities`)
)

// SplitSides bisects an ordered row sequence into the asset side and the
// liability & equity side. Standard statement orientation puts assets
// first: the cut falls after the last "assets" row, provided it precedes
// the last liability row. Documents missing either side return ok=false.
func SplitSides(rows []models.LineItemRow) (assets, liabilities []models.LineItemRow, ok bool) {
	cut1 := 0
	cut2 := len(rows)

	assetIdx, liableIdx := 0, 0
	lastMatchedEither := false
	for i, row := range rows {
		m1 := assetTermPattern.MatchString(row.Name)
		m2 := liabilityTermPattern.MatchString(row.Name)
		if m1 {
			assetIdx = i + 1
		}
		if m2 {
			liableIdx = i + 1
		}
		// only commit the cut while assets still precede liabilities;
		// guards against layouts where a stray asset term appears
		// inside the liability block
		if assetIdx != 0 && liableIdx != 0 && assetIdx < liableIdx {
			cut1 = assetIdx
			cut2 = liableIdx
		}
		lastMatchedEither = m1 || m2
	}

	// a lone asset block still anchors the cut
	if assetIdx != 0 && liableIdx == 0 {
		cut1 = assetIdx
	}

	// when the final row is not itself a total row, the liability side
	// runs to the end rather than stopping at the last matched total
	if !lastMatchedEither {
		cut2 = len(rows)
	}

	assets = rows[:cut1]
	liabilities = rows[cut1:cut2]
	if len(assets) == 0 || len(liabilities) == 0 {
		return nil, nil, false
	}
	return assets, liabilities, true
}
