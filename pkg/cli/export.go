package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"focusrecon/pkg/core/export"
	"focusrecon/pkg/core/store"
	"focusrecon/pkg/models"
)

var (
	expCSV     string
	expXLSX    string
	expTimeout time.Duration
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export <entity-id>...",
	Short: "Export stored records for one or more broker-dealers",
	Long: `Export reads previously stored balance-sheet records from the database
and writes them to CSV and/or an Excel workbook.

Example:
  focusrecon export 87634 91154 --csv brokers.csv
  focusrecon export 1146184 --xlsx brokers.xlsx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&expCSV, "csv", "records.csv", "output CSV path")
	exportCmd.Flags().StringVar(&expXLSX, "xlsx", "", "output Excel path (optional)")
	exportCmd.Flags().DurationVar(&expTimeout, "timeout", 5*time.Minute, "overall export timeout")
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), expTimeout)
	defer cancel()

	if err := store.InitDB(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer store.Close()
	repo := store.NewRecordRepo()

	var records []*models.StructuredRecord
	for _, entityID := range args {
		recs, err := repo.LoadByEntity(ctx, entityID)
		if err != nil {
			return fmt.Errorf("failed to load records for %s: %w", entityID, err)
		}
		if len(recs) == 0 {
			fmt.Printf("No stored records for %s\n", entityID)
		}
		records = append(records, recs...)
	}
	if len(records) == 0 {
		return fmt.Errorf("nothing to export")
	}

	if expCSV != "" {
		if err := export.WriteCSV(expCSV, records); err != nil {
			return err
		}
	}
	if expXLSX != "" {
		if err := export.WriteXLSX(expXLSX, records); err != nil {
			return err
		}
	}

	fmt.Printf("Exported %d records for %d broker-dealers\n", len(records), len(args))
	return nil
}
