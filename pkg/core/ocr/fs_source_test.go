package ocr

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"focusrecon/pkg/models"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestListSkipsUnparseableNamesAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "91154-2013-03-04.json", "{}")
	writeFile(t, dir, "87634-2013-03-01.json", "{}")
	writeFile(t, dir, "notes.txt", "ignore me")
	writeFile(t, dir, "readme.json", "{}")

	ids, err := NewFSSource(dir).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("got %d ids, want 2", len(ids))
	}
	if ids[0].String() != "87634-2013-03-01" || ids[1].String() != "91154-2013-03-04" {
		t.Errorf("ids out of order: %v, %v", ids[0], ids[1])
	}
}

func TestFetchDecodesDocument(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "87634-2013-03-01.json", `{
		"tables": [{"page": 2, "cells": [["Cash", "$ 100"]]}],
		"lines": [{"text": "In thousands", "confidence": 97.5}]
	}`)

	src := NewFSSource(dir)
	ids, err := src.List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	doc, err := src.Fetch(context.Background(), ids[0])
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(doc.Tables) != 1 || doc.Tables[0].Page != 2 {
		t.Fatalf("unexpected tables: %+v", doc.Tables)
	}
	if doc.Tables[0].Cells[0][1] != "$ 100" {
		t.Errorf("cell = %q, want %q", doc.Tables[0].Cells[0][1], "$ 100")
	}
	if len(doc.Lines) != 1 || doc.Lines[0].Confidence != 97.5 {
		t.Errorf("unexpected lines: %+v", doc.Lines)
	}
}

func TestFetchRepairsTruncatedJSON(t *testing.T) {
	dir := t.TempDir()
	// truncated export: missing closing braces
	writeFile(t, dir, "91154-2014-02-28.json", `{"tables": [{"page": 1, "cells": [["Cash", "5"]]}], "lines": [`)

	src := NewFSSource(dir)
	id, _ := src.List(context.Background())
	doc, err := src.Fetch(context.Background(), id[0])
	if err != nil {
		t.Fatalf("Fetch on truncated payload: %v", err)
	}
	if len(doc.Tables) != 1 {
		t.Fatalf("got %d tables after repair, want 1", len(doc.Tables))
	}
}

func TestFetchMissingFile(t *testing.T) {
	src := NewFSSource(t.TempDir())
	id, err := models.ParseDocumentID("1146184-2021-02-25")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := src.Fetch(context.Background(), id); err == nil {
		t.Error("expected an error for a missing document")
	}
}
