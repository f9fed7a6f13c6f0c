// Package structurer turns cleaned per-document row sequences into flat
// categorized records: every line-item name is classified into a canonical
// category, same-category amounts are summed, and the categorized sum is
// checked against the reconciled total for a verdict.
package structurer

import (
	"context"
	"fmt"
	"log"
	"math"

	"focusrecon/pkg/core/classify"
	"focusrecon/pkg/core/reconcile"
	"focusrecon/pkg/models"
)

// Reported-total categories are excluded from reconstruction sums; they
// restate the figure being checked rather than contributing to it.
const (
	CategoryTotalAssets          models.CanonicalCategory = "Total assets"
	CategoryTotalLiabilities     models.CanonicalCategory = "Total liabilities"
	CategoryTotalEquity          models.CanonicalCategory = "Total equity"
	CategoryTotalLiabilityEquity models.CanonicalCategory = "Total liabilities and equity"
)

// Input is one document's cleaned sides plus run metadata.
type Input struct {
	ID         models.DocumentID
	EntityName string
	RunID      string
	Assets     *reconcile.Result
	Liability  *reconcile.Result
}

// Structurer classifies and aggregates cleaned rows via an injected
// classifier.
type Structurer struct {
	clf classify.Classifier
}

// New builds a structurer over a classifier.
func New(clf classify.Classifier) *Structurer {
	return &Structurer{clf: clf}
}

// categorize sums same-category amounts for one side. A category whose
// member rows are all missing stays missing rather than collapsing to zero.
func (s *Structurer) categorize(ctx context.Context, side models.Side, rows []models.LineItemRow) (map[models.CanonicalCategory]float64, error) {
	sums := map[models.CanonicalCategory]float64{}
	seen := map[models.CanonicalCategory]bool{}

	for _, row := range rows {
		cl, err := s.clf.Classify(ctx, side, row.Name)
		if err != nil {
			return nil, fmt.Errorf("classifier failed on %q: %w", row.Name, err)
		}
		if row.Missing() {
			if !seen[cl.Category] {
				sums[cl.Category] = math.NaN()
			}
			continue
		}
		if !seen[cl.Category] || math.IsNaN(sums[cl.Category]) {
			sums[cl.Category] = 0
		}
		seen[cl.Category] = true
		sums[cl.Category] += row.Amount
	}
	return sums, nil
}

// relativeError is |reconstructed-reported| / reported, NaN when the
// reported total is unknown.
func relativeError(reconstructed, reported float64) float64 {
	if math.IsNaN(reported) || math.IsNaN(reconstructed) || reported == 0 {
		return math.NaN()
	}
	return math.Abs((reconstructed - reported) / reported)
}

// sumExcluding adds every category amount except the reported-total
// columns, skipping missing groups.
func sumExcluding(cats map[models.CanonicalCategory]float64, exclude ...models.CanonicalCategory) float64 {
	total := 0.0
	for cat, v := range cats {
		if math.IsNaN(v) {
			continue
		}
		skip := false
		for _, ex := range exclude {
			if cat == ex {
				skip = true
				break
			}
		}
		if !skip {
			total += v
		}
	}
	return total
}

// assetVerdict checks the single asset-side reconstruction.
func assetVerdict(cats map[models.CanonicalCategory]float64, res *reconcile.Result) models.SideVerdict {
	reconstructed := sumExcluding(cats, CategoryTotalAssets)
	relErr := relativeError(reconstructed, res.Total)
	return models.SideVerdict{Verdict: models.VerdictFor(relErr), RelativeError: relErr, Total: res.Total}
}

// liabilityVerdict checks four reconstruction variants for the liability &
// equity side. Whether "total liabilities" and "total equity" sub-lines are
// already included among elemental rows is ambiguous per filing, so each
// combination is tried and the smallest relative error wins; ties keep the
// earliest variant.
func liabilityVerdict(cats map[models.CanonicalCategory]float64, res *reconcile.Result) models.SideVerdict {
	full := sumExcluding(cats, CategoryTotalLiabilityEquity)
	tl := categoryValue(cats, CategoryTotalLiabilities)
	te := categoryValue(cats, CategoryTotalEquity)

	variants := []float64{
		full,
		full - tl,
		full - te,
		full - tl - te,
	}

	best := math.NaN()
	for _, v := range variants {
		relErr := relativeError(v, res.Total)
		if math.IsNaN(relErr) {
			continue
		}
		if math.IsNaN(best) || relErr < best {
			best = relErr
		}
	}
	return models.SideVerdict{Verdict: models.VerdictFor(best), RelativeError: best, Total: res.Total}
}

func categoryValue(cats map[models.CanonicalCategory]float64, cat models.CanonicalCategory) float64 {
	if v, ok := cats[cat]; ok && !math.IsNaN(v) {
		return v
	}
	return 0
}

// Build assembles the structured record for one document.
func (s *Structurer) Build(ctx context.Context, in Input) (*models.StructuredRecord, error) {
	assetCats, err := s.categorize(ctx, models.SideAsset, in.Assets.Rows)
	if err != nil {
		return nil, err
	}
	liabilityCats, err := s.categorize(ctx, models.SideLiabilityEquity, in.Liability.Rows)
	if err != nil {
		return nil, err
	}

	categories := make(map[models.CanonicalCategory]float64, len(assetCats)+len(liabilityCats))
	for cat, v := range assetCats {
		categories[cat] = v
	}
	for cat, v := range liabilityCats {
		if existing, ok := categories[cat]; ok && !math.IsNaN(existing) && !math.IsNaN(v) {
			categories[cat] = existing + v
		} else {
			categories[cat] = v
		}
	}

	rec := &models.StructuredRecord{
		RunID:      in.RunID,
		EntityID:   in.ID.EntityID,
		EntityName: in.EntityName,
		FilingDate: in.ID.FilingDate(),
		FiscalYear: in.ID.FiscalYear(),
		Categories: categories,
		Assets:     assetVerdict(assetCats, in.Assets),
		Liability:  liabilityVerdict(liabilityCats, in.Liability),
	}
	log.Printf("[Structurer] %s: assets %s (%.4f), liabilities %s (%.4f)",
		in.ID.String(), rec.Assets.Verdict, rec.Assets.RelativeError,
		rec.Liability.Verdict, rec.Liability.RelativeError)
	return rec, nil
}

// ==================== DEDUPLICATION ====================

// Deduper keeps only the first-seen record per (entity, fiscal year).
// Amended filings restate the same year; the first occurrence in run order
// wins.
type Deduper struct {
	seen map[string]bool
}

// NewDeduper builds an empty deduper.
func NewDeduper() *Deduper {
	return &Deduper{seen: map[string]bool{}}
}

// Admit reports whether the record is the first for its key and marks the
// key taken.
func (d *Deduper) Admit(rec *models.StructuredRecord) bool {
	key := rec.Key()
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}
