// Package classify maps raw balance-sheet line-item names to canonical
// accounting categories. The engine treats the classifier as an injected
// capability: a static keyword map for offline runs, or an LLM-backed
// classifier when an API key is configured.
package classify

import (
	"context"

	"focusrecon/pkg/models"
)

// Classification is one classifier decision: the canonical category and
// the classifier's confidence in it (0.0-1.0).
type Classification struct {
	Category   models.CanonicalCategory `json:"category"`
	Confidence float64                  `json:"confidence"`
}

// Classifier assigns a canonical category to a raw line-item name. The
// side narrows the category vocabulary: asset names and liability names
// use disjoint label sets. Implementations are expected to be safe for
// concurrent use.
type Classifier interface {
	Classify(ctx context.Context, side models.Side, name string) (Classification, error)
}
