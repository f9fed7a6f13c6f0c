package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"focusrecon/pkg/core/classify"
	"focusrecon/pkg/core/export"
	"focusrecon/pkg/core/ocr"
	"focusrecon/pkg/core/overlay"
	"focusrecon/pkg/core/pipeline"
	"focusrecon/pkg/core/store"
	"focusrecon/pkg/core/structurer"
)

var (
	inputDir       string
	exceptionsPath string
	categoriesPath string
	classifierName string
	classifierRPS  float64
	modelName      string
	storeBackend   string
	workers        int
	runTimeout     time.Duration
	outCSV         string
	outXLSX        string
	outReport      string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process every OCR document in a directory",
	Long: `Run executes the full reconstruction pipeline over a directory of OCR
output files named <cik>-<year>-<month>-<day>.json.

Example:
  focusrecon run --input ./ocr-output --csv records.csv
  focusrecon run --input ./ocr-output --classifier gemini --store postgres`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&inputDir, "input", "", "directory of OCR documents (required)")
	runCmd.Flags().StringVar(&exceptionsPath, "exceptions", "configs/exceptions.hjson", "document correction rules (HJSON)")
	runCmd.Flags().StringVar(&categoriesPath, "categories", "configs/categories.yaml", "canonical category map (YAML)")
	runCmd.Flags().StringVar(&classifierName, "classifier", "static", "line-item classifier (static, gemini, openai)")
	runCmd.Flags().StringVar(&modelName, "model", "", "classifier model override")
	runCmd.Flags().Float64Var(&classifierRPS, "classifier-rps", 5, "classifier API requests per second")
	runCmd.Flags().StringVar(&storeBackend, "store", "memory", "record store (memory, postgres)")
	runCmd.Flags().IntVar(&workers, "workers", 4, "concurrent reconciliation workers")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Hour, "overall run timeout")
	runCmd.Flags().StringVar(&outCSV, "csv", "", "write records to a CSV file")
	runCmd.Flags().StringVar(&outXLSX, "xlsx", "", "write records to an Excel workbook")
	runCmd.Flags().StringVar(&outReport, "report", "", "write a markdown audit report")
	_ = runCmd.MarkFlagRequired("input")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	overlays, err := loadOverlays(exceptionsPath)
	if err != nil {
		return err
	}

	clf, _, err := classify.New(ctx, classify.Config{
		Provider:       classifierName,
		Model:          modelName,
		CategoriesPath: categoriesPath,
		RequestsPerSec: classifierRPS,
	})
	if err != nil {
		return fmt.Errorf("failed to build classifier: %w", err)
	}

	var repo store.RecordRepository
	switch storeBackend {
	case "postgres":
		if err := store.InitDB(ctx); err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		repo = store.NewRecordRepo()
		defer store.Close()
	case "memory":
		repo = store.NewMemoryRepo()
	default:
		return fmt.Errorf("unknown store backend %q", storeBackend)
	}

	orch := pipeline.NewOrchestrator(ocr.NewFSSource(inputDir), overlays, structurer.New(clf), repo, workers)
	summary, err := orch.Run(ctx)
	if err != nil {
		return fmt.Errorf("run failed: %w", err)
	}

	if verbose {
		for _, out := range summary.Outcomes {
			fmt.Fprintf(os.Stderr, "%s  %s\n", out.ID.String(), out.Status)
		}
	}

	if outCSV != "" {
		if err := export.WriteCSV(outCSV, summary.Records); err != nil {
			return err
		}
	}
	if outXLSX != "" {
		if err := export.WriteXLSX(outXLSX, summary.Records); err != nil {
			return err
		}
	}
	if outReport != "" {
		rs := export.RunSummary{
			RunID:      summary.RunID,
			Started:    summary.Started,
			Documents:  summary.Documents,
			NoTable:    summary.NoTable,
			Duplicates: summary.Duplicates,
			Failed:     summary.Failed,
			Records:    summary.Stored,
		}
		if err := export.WriteReport(outReport, rs, summary.Records); err != nil {
			return err
		}
	}

	fmt.Printf("Run %s: %d documents, %d stored, %d duplicates, %d without a balance sheet, %d failed (%v)\n",
		summary.RunID, summary.Documents, summary.Stored, summary.Duplicates,
		summary.NoTable, summary.Failed, summary.Elapsed.Round(time.Millisecond))
	return nil
}

// loadOverlays reads the correction rules; a missing file just disables
// document-specific fixes.
func loadOverlays(path string) (*overlay.Registry, error) {
	if path == "" {
		return overlay.NewRegistry(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "No correction rules at %s, continuing without\n", path)
		return overlay.NewRegistry(), nil
	}
	reg, err := overlay.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load correction rules: %w", err)
	}
	return reg, nil
}
