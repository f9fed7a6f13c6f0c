package ocr

import (
	"context"

	"focusrecon/pkg/models"
)

// ==================== OCR DOCUMENT MODEL ====================

// TextLine is a single line of recognized text with its detection confidence
// (0-100) as reported by the OCR backend.
type TextLine struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// Table is one detected table region. Cells is row-major; rows may be ragged
// when the detector dropped trailing cells.
type Table struct {
	Page  int        `json:"page"`
	Cells [][]string `json:"cells"`
}

// Rows returns the number of rows in the table.
func (t *Table) Rows() int { return len(t.Cells) }

// Cols returns the widest row width. Detectors occasionally emit ragged rows,
// so per-row widths can be smaller.
func (t *Table) Cols() int {
	max := 0
	for _, row := range t.Cells {
		if len(row) > max {
			max = len(row)
		}
	}
	return max
}

// Document is the full OCR output for one filing: every detected table in
// page order, plus the raw text lines used for row-repair lookups.
type Document struct {
	ID     models.DocumentID `json:"id"`
	Tables []Table           `json:"tables"`
	Lines  []TextLine        `json:"lines"`
}

// Source yields OCR documents for processing. Implementations may read from
// disk, object storage, or a live OCR service.
type Source interface {
	// List enumerates the document IDs available from this source.
	List(ctx context.Context) ([]models.DocumentID, error)
	// Fetch loads the full OCR output for one document.
	Fetch(ctx context.Context, id models.DocumentID) (*Document, error)
}
