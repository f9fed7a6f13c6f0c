package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"focusrecon/pkg/models"
)

// RecordRepository persists structured balance-sheet records. Save reports
// whether the record was newly inserted; amended filings for an already
// stored (entity, fiscal year) are ignored, keeping the first-seen
// instance.
type RecordRepository interface {
	Save(ctx context.Context, rec *models.StructuredRecord) (bool, error)
	LoadByEntity(ctx context.Context, entityID string) ([]*models.StructuredRecord, error)
}

// ==================== POSTGRES REPOSITORY ====================

// RecordRepo stores records in Postgres with the category map as JSONB.
type RecordRepo struct{}

// NewRecordRepo creates a new repository instance.
func NewRecordRepo() *RecordRepo {
	return &RecordRepo{}
}

// Save inserts one record. ON CONFLICT DO NOTHING implements first-seen
// deduplication at the store level, so concurrent runs agree with the
// in-process deduper.
func (r *RecordRepo) Save(ctx context.Context, rec *models.StructuredRecord) (bool, error) {
	pool := GetPool()
	if pool == nil {
		return false, fmt.Errorf("database pool not initialized")
	}

	jsonData, err := json.Marshal(rec)
	if err != nil {
		return false, fmt.Errorf("failed to marshal record: %w", err)
	}

	query := `
		INSERT INTO balance_sheet_records (entity_id, fiscal_year, entity_name, filing_date, run_id, record_json, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (entity_id, fiscal_year) DO NOTHING;
	`

	tag, err := pool.Exec(ctx, query, rec.EntityID, rec.FiscalYear, rec.EntityName, rec.FilingDate, rec.RunID, jsonData, time.Now())
	if err != nil {
		return false, fmt.Errorf("failed to save record for %s/%d: %w", rec.EntityID, rec.FiscalYear, err)
	}
	return tag.RowsAffected() > 0, nil
}

// LoadByEntity retrieves all stored records for one entity in fiscal-year
// order.
func (r *RecordRepo) LoadByEntity(ctx context.Context, entityID string) ([]*models.StructuredRecord, error) {
	pool := GetPool()
	if pool == nil {
		return nil, fmt.Errorf("database pool not initialized")
	}

	query := `SELECT record_json FROM balance_sheet_records WHERE entity_id = $1 ORDER BY fiscal_year`

	rows, err := pool.Query(ctx, query, entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to load records for %s: %w", entityID, err)
	}
	defer rows.Close()

	var out []*models.StructuredRecord
	for rows.Next() {
		var jsonData []byte
		if err := rows.Scan(&jsonData); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		var rec models.StructuredRecord
		if err := json.Unmarshal(jsonData, &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	return out, nil
}

// ==================== IN-MEMORY REPOSITORY ====================

// MemoryRepo is a map-backed repository for tests and runs without a
// configured database.
type MemoryRepo struct {
	mu      sync.Mutex
	records map[string]*models.StructuredRecord
	order   []string
}

// NewMemoryRepo creates an empty in-memory repository.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{records: map[string]*models.StructuredRecord{}}
}

func (m *MemoryRepo) Save(ctx context.Context, rec *models.StructuredRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := rec.Key()
	if _, exists := m.records[key]; exists {
		return false, nil
	}
	m.records[key] = rec
	m.order = append(m.order, key)
	return true, nil
}

func (m *MemoryRepo) LoadByEntity(ctx context.Context, entityID string) ([]*models.StructuredRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.StructuredRecord
	for _, key := range m.order {
		if rec := m.records[key]; rec.EntityID == entityID {
			out = append(out, rec)
		}
	}
	return out, nil
}

// All returns every stored record in insertion order.
func (m *MemoryRepo) All() []*models.StructuredRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.StructuredRecord, 0, len(m.order))
	for _, key := range m.order {
		out = append(out, m.records[key])
	}
	return out
}
