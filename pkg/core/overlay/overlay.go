// Package overlay applies hand-maintained corrections for specific known-bad
// documents. OCR occasionally drops a table's top rows, misreads one digit,
// or fools the reconciliation pass; those cases are recorded as declarative
// rules keyed by document identifier and applied by a single generic
// interpreter, keeping document-specific knowledge out of the engine.
package overlay

import (
	"fmt"
	"log"
	"os"

	hjson "github.com/hjson/hjson-go/v4"

	"focusrecon/pkg/models"
)

// ==================== RULE MODEL ====================

// Op identifies a correction operation.
type Op string

const (
	// OpReplaceValue rewrites every row amount equal to Match with
	// Value.
	OpReplaceValue Op = "replace_value"
	// OpDropValue removes every row whose amount equals Match.
	OpDropValue Op = "drop_value"
	// OpInsertRow inserts a (name, amount) row at Index.
	OpInsertRow Op = "insert_row"
	// OpDropRow removes the row at Index, guarded by Name when set.
	OpDropRow Op = "drop_row"
	// OpForceScale overrides the document's resolved unit scale with a
	// corrective multiplier.
	OpForceScale Op = "force_scale"
)

// Stage selects when a correction runs relative to total reconciliation.
type Stage string

const (
	StagePreReconcile  Stage = "pre_reconcile"
	StagePostReconcile Stage = "post_reconcile"
)

// Correction is one declarative fix for one document.
type Correction struct {
	Op     Op      `json:"op"`
	Stage  Stage   `json:"stage,omitempty"`
	Name   string  `json:"name,omitempty"`
	Index  int     `json:"index,omitempty"`
	Match  float64 `json:"match,omitempty"`
	Value  float64 `json:"value,omitempty"`
	Scale  float64 `json:"scale,omitempty"`
	Reason string  `json:"reason,omitempty"`
}

// stage defaults to pre-reconcile, matching the common case of fixing the
// input before the backward-sum scan runs.
func (c *Correction) stage() Stage {
	if c.Stage == "" {
		return StagePreReconcile
	}
	return c.Stage
}

// Registry holds all corrections keyed by document identifier.
type Registry struct {
	rules map[string][]Correction
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{rules: map[string][]Correction{}}
}

// Load reads a correction table from an HJSON file. The format tolerates
// comments, which the rule file uses heavily to record why each document
// needs hand attention.
func Load(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read exception rules %s: %w", path, err)
	}

	var rules map[string][]Correction
	if err := hjson.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("failed to parse exception rules %s: %w", path, err)
	}

	log.Printf("[ExceptionOverlay] Loaded corrections for %d documents from %s", len(rules), path)
	return &Registry{rules: rules}, nil
}

// Add registers corrections for one document, appending to any already
// present.
func (r *Registry) Add(id string, corrections ...Correction) {
	r.rules[id] = append(r.rules[id], corrections...)
}

// Len reports how many documents carry corrections.
func (r *Registry) Len() int { return len(r.rules) }

// ==================== INTERPRETER ====================

// ScaleOverride returns the corrective scale multiplier for a document, or
// (1, false) when none applies.
func (r *Registry) ScaleOverride(id models.DocumentID) (float64, bool) {
	for _, c := range r.rules[id.String()] {
		if c.Op == OpForceScale && c.Scale != 0 {
			return c.Scale, true
		}
	}
	return 1, false
}

// Apply runs the row corrections registered for id at the given stage.
// Rules for other identifiers never fire, and re-applying the same stage
// to already-corrected rows is a no-op.
func (r *Registry) Apply(id models.DocumentID, stage Stage, rows []models.LineItemRow) []models.LineItemRow {
	corrections := r.rules[id.String()]
	if len(corrections) == 0 {
		return rows
	}

	out := append([]models.LineItemRow(nil), rows...)
	for _, c := range corrections {
		if c.stage() != stage {
			continue
		}
		switch c.Op {
		case OpReplaceValue:
			out = replaceValue(out, c.Match, c.Value)
		case OpDropValue:
			out = dropValue(out, c.Match)
		case OpInsertRow:
			out = insertRow(out, c)
		case OpDropRow:
			out = dropRow(out, c)
		case OpForceScale:
			// handled at scale resolution, not here
		default:
			log.Printf("[ExceptionOverlay] Unknown op %q for %s, skipping", c.Op, id.String())
		}
	}
	return out
}

func replaceValue(rows []models.LineItemRow, match, value float64) []models.LineItemRow {
	for i := range rows {
		if rows[i].Amount == match {
			rows[i].Amount = value
		}
	}
	return rows
}

func dropValue(rows []models.LineItemRow, match float64) []models.LineItemRow {
	var out []models.LineItemRow
	for _, row := range rows {
		if row.Amount != match {
			out = append(out, row)
		}
	}
	return out
}

func insertRow(rows []models.LineItemRow, c Correction) []models.LineItemRow {
	// idempotence: an identical row already present means the
	// correction has been applied
	for _, row := range rows {
		if row.Name == c.Name && row.Amount == c.Value {
			return rows
		}
	}

	idx := c.Index
	if idx < 0 || idx > len(rows) {
		idx = len(rows)
	}
	out := make([]models.LineItemRow, 0, len(rows)+1)
	out = append(out, rows[:idx]...)
	out = append(out, models.LineItemRow{Name: c.Name, Amount: c.Value})
	out = append(out, rows[idx:]...)
	return out
}

func dropRow(rows []models.LineItemRow, c Correction) []models.LineItemRow {
	if c.Index < 0 || c.Index >= len(rows) {
		return rows
	}
	// the name guard keeps the drop idempotent: once the row is gone,
	// whatever shifted into its place no longer matches
	if c.Name != "" && rows[c.Index].Name != c.Name {
		return rows
	}
	out := make([]models.LineItemRow, 0, len(rows)-1)
	out = append(out, rows[:c.Index]...)
	out = append(out, rows[c.Index+1:]...)
	return out
}
