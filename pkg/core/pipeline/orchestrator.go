// Package pipeline orchestrates a full reconstruction run. Documents are
// stitched and normalized in a sequential pass first, because unit-scale
// carry-over depends on document order; reconciliation, classification, and
// storage then run concurrently per document, and records are deduplicated
// and persisted back in original order so amended-filing handling stays
// deterministic.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"focusrecon/pkg/core/assemble"
	"focusrecon/pkg/core/normalize"
	"focusrecon/pkg/core/ocr"
	"focusrecon/pkg/core/overlay"
	"focusrecon/pkg/core/reconcile"
	"focusrecon/pkg/core/store"
	"focusrecon/pkg/core/structurer"
	"focusrecon/pkg/core/worker"
	"focusrecon/pkg/models"
)

// Status classifies the outcome of one document within a run.
type Status string

const (
	StatusStored    Status = "STORED"
	StatusDuplicate Status = "DUPLICATE"
	StatusNoTable   Status = "NO_TABLE"
	StatusFailed    Status = "FAILED"
)

// DocumentOutcome records what happened to a single document.
type DocumentOutcome struct {
	ID     models.DocumentID
	Status Status
	Record *models.StructuredRecord
	Err    error
}

// Summary is the aggregate result of one run.
type Summary struct {
	RunID      string
	Started    time.Time
	Elapsed    time.Duration
	Documents  int
	NoTable    int
	Duplicates int
	Failed     int
	Stored     int
	Outcomes   []DocumentOutcome
	Records    []*models.StructuredRecord
}

// Orchestrator manages the end-to-end data flow:
// Source -> Assembler -> Normalizer -> Reconciler -> Structurer -> Storage
type Orchestrator struct {
	source   ocr.Source
	overlays *overlay.Registry
	builder  *structurer.Structurer
	repo     store.RecordRepository
	workers  int
}

// NewOrchestrator creates an orchestrator with all required dependencies.
// A nil overlay registry disables document-specific corrections.
func NewOrchestrator(source ocr.Source, overlays *overlay.Registry, builder *structurer.Structurer, repo store.RecordRepository, workers int) *Orchestrator {
	if overlays == nil {
		overlays = overlay.NewRegistry()
	}
	if workers <= 0 {
		workers = 4
	}
	return &Orchestrator{
		source:   source,
		overlays: overlays,
		builder:  builder,
		repo:     repo,
		workers:  workers,
	}
}

// preparedDoc is one document after the sequential normalization pass.
// index is its position in the source listing, which decides dedup order.
type preparedDoc struct {
	index int
	id    models.DocumentID
	rows  []models.LineItemRow
}

// Run processes every document the source lists and returns the run summary.
func (o *Orchestrator) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString(), Started: time.Now()}

	ids, err := o.source.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	summary.Documents = len(ids)
	log.Printf("[Pipeline] Run %s: %d documents queued", summary.RunID, len(ids))

	prepared, skipped := o.prepare(ctx, ids)

	jobs := make([]worker.Job, len(prepared))
	for i, p := range prepared {
		jobs[i] = &documentJob{orch: o, runID: summary.RunID, doc: p}
	}
	results := worker.Run(ctx, o.workers, jobs)

	byIndex := make(map[int]DocumentOutcome, len(results))
	for _, r := range results {
		jr := r.(*jobResult)
		byIndex[jr.index] = jr.outcome
	}

	// dedupe and persist in source order so the first filing of an
	// amended (entity, fiscal year) pair always wins
	dedupe := structurer.NewDeduper()
	summary.Outcomes = skipped
	for _, p := range prepared {
		out, ok := byIndex[p.index]
		if !ok {
			out = DocumentOutcome{ID: p.id, Status: StatusFailed, Err: ctx.Err()}
		}
		if out.Status != StatusFailed && out.Record != nil {
			out = o.persist(ctx, dedupe, out)
		}
		if out.Status == StatusStored && out.Record != nil {
			summary.Records = append(summary.Records, out.Record)
		}
		summary.Outcomes = append(summary.Outcomes, out)
	}

	for _, out := range summary.Outcomes {
		switch out.Status {
		case StatusStored:
			summary.Stored++
		case StatusDuplicate:
			summary.Duplicates++
		case StatusNoTable:
			summary.NoTable++
		case StatusFailed:
			summary.Failed++
		}
	}

	summary.Elapsed = time.Since(summary.Started)
	log.Printf("[Pipeline] Run %s complete in %v: %d stored, %d duplicates, %d without a balance sheet, %d failed",
		summary.RunID, summary.Elapsed.Round(time.Millisecond),
		summary.Stored, summary.Duplicates, summary.NoTable, summary.Failed)
	return summary, nil
}

// prepare runs the order-dependent half of the pipeline: fetch, stitch,
// repair rows, and resolve the unit scale with entity carry-over.
func (o *Orchestrator) prepare(ctx context.Context, ids []models.DocumentID) ([]*preparedDoc, []DocumentOutcome) {
	var prepared []*preparedDoc
	var skipped []DocumentOutcome
	var carry normalize.ScaleCarry

	for i, id := range ids {
		if ctx.Err() != nil {
			skipped = append(skipped, DocumentOutcome{ID: id, Status: StatusFailed, Err: ctx.Err()})
			continue
		}

		doc, err := o.source.Fetch(ctx, id)
		if err != nil {
			log.Printf("[Pipeline] %s: fetch failed: %v", id.String(), err)
			skipped = append(skipped, DocumentOutcome{ID: id, Status: StatusFailed, Err: err})
			continue
		}

		asm, ok := assemble.Assemble(doc)
		if !ok {
			skipped = append(skipped, DocumentOutcome{ID: id, Status: StatusNoTable})
			continue
		}

		rows := normalize.GridToRows(asm.Grid)
		rows = normalize.TruncateSubSchedule(rows)
		if rowWidth(rows) > 1 {
			rows = normalize.CollapseColumns(rows)
		}
		rows = normalize.SplitMergedRows(rows, doc.Lines)

		scale := normalize.ResolveScale(id, doc.Lines, carry)
		carry = normalize.ScaleCarry{EntityID: id.EntityID, Scale: scale}
		if f, ok := o.overlays.ScaleOverride(id); ok {
			log.Printf("[Pipeline] %s: applying scale correction %g", id.String(), f)
			scale *= f
		}

		items := normalize.ToLineItems(rows, scale)
		if len(items) == 0 {
			skipped = append(skipped, DocumentOutcome{ID: id, Status: StatusNoTable})
			continue
		}
		prepared = append(prepared, &preparedDoc{index: i, id: id, rows: items})
	}
	return prepared, skipped
}

// process runs the order-independent half for one document.
func (o *Orchestrator) process(ctx context.Context, runID string, p *preparedDoc) (*models.StructuredRecord, error) {
	rows := o.overlays.Apply(p.id, overlay.StagePreReconcile, p.rows)

	assets, liabilities, ok := assemble.SplitSides(rows)
	if !ok {
		return nil, fmt.Errorf("could not locate the asset/liability boundary")
	}

	assetRes := reconcile.ReconcileTotals(assets)
	liabilityRes := reconcile.ReconcileTotals(liabilities)
	assetRes.Rows = o.overlays.Apply(p.id, overlay.StagePostReconcile, assetRes.Rows)
	liabilityRes.Rows = o.overlays.Apply(p.id, overlay.StagePostReconcile, liabilityRes.Rows)

	return o.builder.Build(ctx, structurer.Input{
		ID:        p.id,
		RunID:     runID,
		Assets:    assetRes,
		Liability: liabilityRes,
	})
}

// persist applies in-run deduplication then writes through the repository,
// which enforces the same first-wins rule across runs.
func (o *Orchestrator) persist(ctx context.Context, dedupe *structurer.Deduper, out DocumentOutcome) DocumentOutcome {
	if !dedupe.Admit(out.Record) {
		log.Printf("[Pipeline] %s: duplicate fiscal year, keeping earlier filing", out.ID.String())
		out.Status = StatusDuplicate
		return out
	}
	stored, err := o.repo.Save(ctx, out.Record)
	if err != nil {
		out.Status = StatusFailed
		out.Err = fmt.Errorf("failed to store record: %w", err)
		return out
	}
	if !stored {
		out.Status = StatusDuplicate
		return out
	}
	out.Status = StatusStored
	return out
}

func rowWidth(rows []normalize.RawRow) int {
	max := 0
	for _, r := range rows {
		if len(r.Values) > max {
			max = len(r.Values)
		}
	}
	return max
}

// ==================== WORKER JOBS ====================

type documentJob struct {
	orch  *Orchestrator
	runID string
	doc   *preparedDoc
}

type jobResult struct {
	index   int
	outcome DocumentOutcome
}

func (r *jobResult) Err() error { return r.outcome.Err }

func (j *documentJob) Execute(ctx context.Context) worker.Result {
	out := DocumentOutcome{ID: j.doc.id}
	rec, err := j.orch.process(ctx, j.runID, j.doc)
	if err != nil {
		log.Printf("[Pipeline] %s: %v", j.doc.id.String(), err)
		out.Status = StatusFailed
		out.Err = err
	} else {
		out.Status = StatusStored
		out.Record = rec
	}
	return &jobResult{index: j.doc.index, outcome: out}
}
