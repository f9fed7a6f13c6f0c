package ocr

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"

	"focusrecon/pkg/models"
)

// ==================== FILESYSTEM SOURCE ====================

// FSSource reads OCR output dumped to disk as one JSON file per filing,
// named <entity>-<yyyy>-<mm>-<dd>.json. OCR exporters occasionally emit
// truncated or otherwise malformed JSON; Fetch repairs those payloads
// before giving up.
type FSSource struct {
	root string
}

// NewFSSource creates a source rooted at dir.
func NewFSSource(dir string) *FSSource {
	return &FSSource{root: dir}
}

// rawDocument mirrors the exporter payload, which does not embed the
// document ID (the filename carries it).
type rawDocument struct {
	Tables []Table    `json:"tables"`
	Lines  []TextLine `json:"lines"`
}

// List enumerates documents by scanning the root directory for parseable
// filenames. Files that do not look like filing IDs are skipped with a log
// line rather than failing the run.
func (s *FSSource) List(ctx context.Context) ([]models.DocumentID, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("failed to scan OCR directory %s: %w", s.root, err)
	}

	var ids []models.DocumentID
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		id, err := models.ParseDocumentID(entry.Name())
		if err != nil {
			log.Printf("[OCRSource] Skipping %s: %v", entry.Name(), err)
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	log.Printf("[OCRSource] Found %d OCR documents in %s", len(ids), s.root)
	return ids, nil
}

// Fetch loads and decodes one document. Malformed JSON is passed through
// json-repair before the decode is retried.
func (s *FSSource) Fetch(ctx context.Context, id models.DocumentID) (*Document, error) {
	path := filepath.Join(s.root, id.String()+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read OCR file for %s: %w", id.String(), err)
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		repaired, repErr := jsonrepair.RepairJSON(string(data))
		if repErr != nil {
			return nil, fmt.Errorf("failed to repair OCR JSON for %s: %w", id.String(), repErr)
		}
		if err := json.Unmarshal([]byte(repaired), &raw); err != nil {
			return nil, fmt.Errorf("failed to decode OCR JSON for %s: %w", id.String(), err)
		}
		log.Printf("[OCRSource] Repaired malformed OCR JSON for %s", id.String())
	}

	return &Document{ID: id, Tables: raw.Tables, Lines: raw.Lines}, nil
}
