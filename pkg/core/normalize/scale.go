package normalize

import (
	"log"
	"strings"

	"focusrecon/pkg/core/ocr"
	"focusrecon/pkg/models"
)

// ==================== UNIT SCALE RESOLUTION ====================

// scaleNames maps unit captions to multipliers, in fixed probe order.
// The first caption fuzzily matched in the page text wins.
var scaleNames = []struct {
	name  string
	scale float64
}{
	{"thousands", 1e3},
	{"hundreds", 1e2},
	{"millions", 1e6},
	{"billions", 1e9},
}

// fuzzyMatchThreshold is the minimum similarity ratio (0-100) for a word
// token to count as a scale caption.
const fuzzyMatchThreshold = 90

// ScaleCarry is the unit scale resolved for the previously processed
// document. Multi-page filings state "amounts in thousands" once, so the
// scale carries over to later documents of the same entity. Carry order is
// the caller's document order; callers must fold documents sequentially.
type ScaleCarry struct {
	EntityID string
	Scale    float64
}

// ResolveScale infers the multiplicative unit scale for one document from
// its recovered page text. Falls back to the previous document's scale when
// both share an entity, otherwise 1.
func ResolveScale(id models.DocumentID, lines []ocr.TextLine, prev ScaleCarry) float64 {
	for _, line := range lines {
		tokens := strings.Split(strings.ToLower(line.Text), " ")
		for _, sn := range scaleNames {
			for _, tok := range tokens {
				if similarityRatio(sn.name, tok) >= fuzzyMatchThreshold {
					return sn.scale
				}
			}
		}
	}

	if prev.EntityID == id.EntityID && prev.Scale != 0 {
		log.Printf("[ScaleResolver] No unit caption in %s, carrying scale %.0f from prior filing", id.String(), prev.Scale)
		return prev.Scale
	}

	return 1
}

// similarityRatio is the classic token similarity score on a 0-100 scale:
// 100 * (len(a)+len(b)-distance) / (len(a)+len(b)), with distance counting
// Levenshtein edits weighted 2 for substitutions.
func similarityRatio(a, b string) int {
	la, lb := len(a), len(b)
	if la+lb == 0 {
		return 100
	}
	dist := editDistance(a, b)
	return 100 * (la + lb - dist) / (la + lb)
}

// editDistance computes Levenshtein distance with substitution cost 2, so
// a substitution scores the same as the delete+insert pair it replaces.
func editDistance(a, b string) int {
	la, lb := len(a), len(b)
	prev := make([]int, lb+1)
	curr := make([]int, lb+1)
	for j := 0; j <= lb; j++ {
		prev[j] = j
	}
	for i := 1; i <= la; i++ {
		curr[0] = i
		for j := 1; j <= lb; j++ {
			cost := 2
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = min3(prev[j]+1, curr[j-1]+1, prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[lb]
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}
