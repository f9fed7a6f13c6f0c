package export

import (
	"fmt"
	"log"
	"math"

	"github.com/xuri/excelize/v2"

	"focusrecon/pkg/models"
)

const sheetName = "Balance Sheets"

// WriteXLSX writes all records to one spreadsheet with a frozen header
// row. Missing amounts stay as blank cells rather than zeros.
func WriteXLSX(path string, records []*models.StructuredRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		return fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("failed to drop default sheet: %w", err)
	}

	cats := columnOrder(records)
	for col, name := range headerRow(cats) {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return fmt.Errorf("failed to address header cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, name); err != nil {
			return fmt.Errorf("failed to write header cell: %w", err)
		}
	}

	for i, rec := range records {
		cells := recordCells(rec, cats)
		for col, v := range cells {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return fmt.Errorf("failed to address cell: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return fmt.Errorf("failed to write cell for %s: %w", rec.EntityID, err)
			}
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return fmt.Errorf("failed to freeze header: %w", err)
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	log.Printf("[Export] Wrote %d records to %s", len(records), path)
	return nil
}

// recordCells renders one record as typed cell values; nil means blank.
func recordCells(rec *models.StructuredRecord, cats []string) []any {
	cells := []any{rec.EntityID, rec.EntityName, rec.FilingDate, rec.FiscalYear}
	for _, cat := range cats {
		v, ok := rec.Categories[models.CanonicalCategory(cat)]
		if !ok || math.IsNaN(v) {
			cells = append(cells, nil)
			continue
		}
		cells = append(cells, v)
	}
	cells = append(cells,
		numOrNil(rec.Assets.Total), string(rec.Assets.Verdict), numOrNil(rec.Assets.RelativeError),
		numOrNil(rec.Liability.Total), string(rec.Liability.Verdict), numOrNil(rec.Liability.RelativeError),
	)
	return cells
}

func numOrNil(v float64) any {
	if math.IsNaN(v) {
		return nil
	}
	return v
}
