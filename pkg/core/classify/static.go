package classify

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strings"

	yaml "gopkg.in/yaml.v2"

	"focusrecon/pkg/models"
)

// ==================== CATEGORY MAP ====================

// categorySpec is one canonical category's match rules in the YAML file.
type categorySpec struct {
	Name     string   `yaml:"name"`
	Keywords []string `yaml:"keywords"`
	Exact    []string `yaml:"exact,omitempty"`
}

// mapFile mirrors configs/categories.yaml.
type mapFile struct {
	Assets      []categorySpec `yaml:"assets"`
	Liabilities []categorySpec `yaml:"liabilities"`
	Fallback    string         `yaml:"fallback"`
}

// CategoryMap holds the category vocabulary per side plus the static match
// rules. It also feeds the LLM classifiers their allowed label sets.
type CategoryMap struct {
	assets      []categorySpec
	liabilities []categorySpec
	fallback    models.CanonicalCategory

	// exact name -> category, per side, lowercased; these mirror the
	// hand-labelled training set and always win over keyword scoring
	assetExact     map[string]models.CanonicalCategory
	liabilityExact map[string]models.CanonicalCategory
}

// LoadCategoryMap reads the category vocabulary from a YAML file.
func LoadCategoryMap(path string) (*CategoryMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read category map %s: %w", path, err)
	}

	var mf mapFile
	if err := yaml.Unmarshal(data, &mf); err != nil {
		return nil, fmt.Errorf("failed to parse category map %s: %w", path, err)
	}
	if len(mf.Assets) == 0 || len(mf.Liabilities) == 0 {
		return nil, fmt.Errorf("category map %s: both asset and liability categories are required", path)
	}

	cm := &CategoryMap{
		assets:         mf.Assets,
		liabilities:    mf.Liabilities,
		fallback:       models.CanonicalCategory(mf.Fallback),
		assetExact:     exactIndex(mf.Assets),
		liabilityExact: exactIndex(mf.Liabilities),
	}
	if cm.fallback == "" {
		cm.fallback = "Other"
	}
	log.Printf("[Classifier] Loaded %d asset and %d liability categories from %s", len(mf.Assets), len(mf.Liabilities), path)
	return cm, nil
}

func exactIndex(specs []categorySpec) map[string]models.CanonicalCategory {
	idx := map[string]models.CanonicalCategory{}
	for _, spec := range specs {
		for _, name := range spec.Exact {
			idx[strings.ToLower(name)] = models.CanonicalCategory(spec.Name)
		}
	}
	return idx
}

// Categories lists the canonical labels for one side, in file order.
func (cm *CategoryMap) Categories(side models.Side) []models.CanonicalCategory {
	var out []models.CanonicalCategory
	for _, spec := range cm.specs(side) {
		out = append(out, models.CanonicalCategory(spec.Name))
	}
	return out
}

func (cm *CategoryMap) specs(side models.Side) []categorySpec {
	if side == models.SideLiabilityEquity {
		return cm.liabilities
	}
	return cm.assets
}

func (cm *CategoryMap) exact(side models.Side) map[string]models.CanonicalCategory {
	if side == models.SideLiabilityEquity {
		return cm.liabilityExact
	}
	return cm.assetExact
}

// ==================== STATIC CLASSIFIER ====================

// StaticClassifier scores line-item names against the category map's
// keyword rules. An exact (hand-labelled) match wins outright; otherwise
// the category owning the longest matched keyword wins, with confidence
// proportional to how much of the name the keywords cover.
type StaticClassifier struct {
	cm *CategoryMap
}

// NewStaticClassifier builds a classifier over a loaded category map.
func NewStaticClassifier(cm *CategoryMap) *StaticClassifier {
	return &StaticClassifier{cm: cm}
}

// Classify never fails: unmatched names land in the fallback category with
// zero confidence.
func (s *StaticClassifier) Classify(ctx context.Context, side models.Side, name string) (Classification, error) {
	lower := strings.ToLower(strings.TrimSpace(name))

	if cat, ok := s.cm.exact(side)[lower]; ok {
		return Classification{Category: cat, Confidence: 1.0}, nil
	}

	type scored struct {
		cat   models.CanonicalCategory
		score int
	}
	var hits []scored
	for _, spec := range s.cm.specs(side) {
		best := 0
		for _, kw := range spec.Keywords {
			if strings.Contains(lower, strings.ToLower(kw)) && len(kw) > best {
				best = len(kw)
			}
		}
		if best > 0 {
			hits = append(hits, scored{cat: models.CanonicalCategory(spec.Name), score: best})
		}
	}
	if len(hits) == 0 {
		return Classification{Category: s.cm.fallback, Confidence: 0}, nil
	}

	// ties break by file order, which sort.SliceStable preserves
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	conf := float64(hits[0].score) / float64(len(lower))
	if conf > 1 {
		conf = 1
	}
	return Classification{Category: hits[0].cat, Confidence: conf}, nil
}
