// Package export writes structured records out as CSV, XLSX, and a
// markdown audit report.
package export

import (
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"sort"
	"strconv"

	"focusrecon/pkg/models"
)

// columnOrder fixes the export layout: identity columns first, then
// category columns sorted by name, then the verdict columns.
func columnOrder(records []*models.StructuredRecord) []string {
	seen := map[string]bool{}
	var cats []string
	for _, rec := range records {
		for cat := range rec.Categories {
			if !seen[string(cat)] {
				seen[string(cat)] = true
				cats = append(cats, string(cat))
			}
		}
	}
	sort.Strings(cats)
	return cats
}

func formatAmount(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func recordRow(rec *models.StructuredRecord, cats []string) []string {
	row := []string{
		rec.EntityID,
		rec.EntityName,
		rec.FilingDate,
		strconv.Itoa(rec.FiscalYear),
	}
	for _, cat := range cats {
		v, ok := rec.Categories[models.CanonicalCategory(cat)]
		if !ok {
			row = append(row, "")
			continue
		}
		row = append(row, formatAmount(v))
	}
	row = append(row,
		formatAmount(rec.Assets.Total),
		string(rec.Assets.Verdict),
		formatAmount(rec.Assets.RelativeError),
		formatAmount(rec.Liability.Total),
		string(rec.Liability.Verdict),
		formatAmount(rec.Liability.RelativeError),
	)
	return row
}

func headerRow(cats []string) []string {
	header := []string{"CIK", "Name", "Filing Date", "Fiscal Year"}
	header = append(header, cats...)
	header = append(header,
		"Total assets (reported)", "Asset verdict", "Asset relative error",
		"Total liabilities & equity (reported)", "Liability verdict", "Liability relative error",
	)
	return header
}

// WriteCSV writes all records to one CSV file.
func WriteCSV(path string, records []*models.StructuredRecord) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV %s: %w", path, err)
	}
	defer f.Close()

	cats := columnOrder(records)
	w := csv.NewWriter(f)
	if err := w.Write(headerRow(cats)); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, rec := range records {
		if err := w.Write(recordRow(rec, cats)); err != nil {
			return fmt.Errorf("failed to write CSV row for %s: %w", rec.EntityID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	log.Printf("[Export] Wrote %d records to %s", len(records), path)
	return nil
}
