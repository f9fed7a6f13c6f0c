// Package models defines the shared data model for the FOCUS-report
// balance-sheet reconstruction engine.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// =============================================================================
// DOCUMENT IDENTIFIER - {entity-id}-{filing-year}-{filing-month}-{filing-day}
// =============================================================================

// DocumentID identifies one filed report for one broker-dealer.
// The canonical string form is "887767-2013-03-21".
type DocumentID struct {
	EntityID string `json:"entity_id"` // SEC CIK number, digits only
	Year     int    `json:"year"`      // filing year
	Month    int    `json:"month"`
	Day      int    `json:"day"`
}

// ParseDocumentID parses the canonical identifier form. A trailing file
// extension (".json", ".csv") is tolerated since identifiers double as
// object-store keys.
func ParseDocumentID(s string) (DocumentID, error) {
	base := s
	if idx := strings.LastIndex(base, "/"); idx >= 0 {
		base = base[idx+1:]
	}
	if idx := strings.Index(base, "."); idx >= 0 {
		base = base[:idx]
	}

	parts := strings.Split(base, "-")
	if len(parts) != 4 {
		return DocumentID{}, fmt.Errorf("malformed document id %q: want entity-year-month-day", s)
	}
	if parts[0] == "" {
		return DocumentID{}, fmt.Errorf("malformed document id %q: empty entity id", s)
	}

	nums := make([]int, 3)
	for i, p := range parts[1:] {
		n, err := strconv.Atoi(p)
		if err != nil {
			return DocumentID{}, fmt.Errorf("malformed document id %q: %w", s, err)
		}
		nums[i] = n
	}

	return DocumentID{EntityID: parts[0], Year: nums[0], Month: nums[1], Day: nums[2]}, nil
}

// String renders the canonical identifier form.
func (d DocumentID) String() string {
	return fmt.Sprintf("%s-%04d-%02d-%02d", d.EntityID, d.Year, d.Month, d.Day)
}

// FilingDate returns the ISO filing date, e.g. "2013-03-21".
func (d DocumentID) FilingDate() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

// FiscalYear returns the fiscal year the balance sheet covers. Annual
// filings report the prior calendar year.
func (d DocumentID) FiscalYear() int {
	return d.Year - 1
}

// SameEntity reports whether two identifiers share the entity prefix.
// Unit-scale carry-over is only valid within one entity's run of filings.
func (d DocumentID) SameEntity(other DocumentID) bool {
	return d.EntityID != "" && d.EntityID == other.EntityID
}
