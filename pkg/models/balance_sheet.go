package models

import (
	"math"
	"strconv"
)

// =============================================================================
// BALANCE SHEET TABLES - Ordered line items per document side
// =============================================================================

// Side tags which half of the balance sheet a table belongs to.
type Side string

const (
	SideAsset           Side = "ASSET"
	SideLiabilityEquity Side = "LIABILITY_EQUITY"
	SideUnknown         Side = "UNKNOWN"
)

// LineItemRow is one (name, amount) row of a reconstructed balance sheet.
// Amount is NaN when the cell could not be read as a number; order encodes
// document layout order and matters for reconciliation.
type LineItemRow struct {
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// Missing reports whether the row carries no readable numeric value.
func (r LineItemRow) Missing() bool {
	return math.IsNaN(r.Amount)
}

// BalanceSheetTable is the ordered row sequence for one side of one
// document's balance sheet. It may concatenate rows from several physically
// separate OCR tables stitched by the assembler.
type BalanceSheetTable struct {
	Side Side          `json:"side"`
	Rows []LineItemRow `json:"rows"`
}

// =============================================================================
// RECONCILIATION VERDICTS
// =============================================================================

// Verdict describes how well a reconstructed total agrees with a reported one.
type Verdict string

const (
	VerdictPerfectMatch  Verdict = "PERFECT_MATCH"
	VerdictBoundedMatch  Verdict = "BOUNDED_MATCH"
	VerdictGrossMismatch Verdict = "GROSS_MISMATCH"
	VerdictNotFound      Verdict = "NOT_FOUND"
)

// MismatchTolerance is the relative error below which a reconstructed total
// is still considered a match.
const MismatchTolerance = 0.01

// VerdictFor buckets a relative error magnitude.
func VerdictFor(relErr float64) Verdict {
	switch {
	case math.IsNaN(relErr):
		return VerdictNotFound
	case relErr == 0:
		return VerdictPerfectMatch
	case relErr < MismatchTolerance:
		return VerdictBoundedMatch
	default:
		return VerdictGrossMismatch
	}
}

// SideVerdict is the reconciliation outcome attached to one table side.
type SideVerdict struct {
	Verdict       Verdict `json:"verdict"`
	RelativeError float64 `json:"relative_error"` // NaN when no total was found
	Total         float64 `json:"total"`          // canonical total, NaN when unknown
}

// =============================================================================
// STRUCTURED RECORDS - One row per (document, fiscal year)
// =============================================================================

// CanonicalCategory is a standardized accounting label assigned to a raw
// line-item name by the external classifier.
type CanonicalCategory string

// StructuredRecord is the flat, categorized output for one document.
// Immutable once built; amended filings for the same (entity, fiscal year)
// keep only the first-seen instance.
type StructuredRecord struct {
	RunID      string                        `json:"run_id"`
	EntityID   string                        `json:"entity_id"`
	EntityName string                        `json:"entity_name,omitempty"`
	FilingDate string                        `json:"filing_date"`
	FiscalYear int                           `json:"fiscal_year"`
	Categories map[CanonicalCategory]float64 `json:"categories"`
	Assets     SideVerdict                   `json:"assets"`
	Liability  SideVerdict                   `json:"liability_equity"`
}

// Key identifies the deduplication unit for amended filings.
func (r *StructuredRecord) Key() string {
	return r.EntityID + "|" + strconv.Itoa(r.FiscalYear)
}
