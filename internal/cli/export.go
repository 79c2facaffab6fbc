package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/raphaelgruber/beethoven-go/internal/client"
	"github.com/spf13/cobra"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "Recordings"

var (
	exportStatus   string
	exportEmployee string
	exportLimit    int
)

var exportCmd = &cobra.Command{
	Use:   "export <file.xlsx>",
	Short: "Export recordings and their scores to a spreadsheet",
	Long: `Export recordings with scores and analyses to an Excel workbook.

Examples:
  beethoven export results.xlsx
  beethoven export done.xlsx --status done
  beethoven export teacher-7.xlsx --employee t-7`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportStatus, "status", "s", "", "export only recordings with this status")
	exportCmd.Flags().StringVarP(&exportEmployee, "employee", "e", "", "export only this employee's recordings")
	exportCmd.Flags().IntVarP(&exportLimit, "limit", "n", 1000, "maximum number of recordings")
}

func runExport(cmd *cobra.Command, args []string) error {
	recs, err := apiClient.ListRecordings(context.Background(), client.ListOptions{
		Status:     exportStatus,
		EmployeeID: exportEmployee,
		Limit:      exportLimit,
	})
	if err != nil {
		return fmt.Errorf("list recordings: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("No recordings to export.")
		return nil
	}

	if err := writeRecordingsXLSX(args[0], recs); err != nil {
		return err
	}
	fmt.Printf("Exported %d recordings to %s\n", len(recs), args[0])
	return nil
}

var exportHeader = []any{
	"ID", "Client", "Employee", "Role", "Status", "Score", "Created", "Updated", "Analysis", "Transcription",
}

// writeRecordingsXLSX writes one row per recording below a bold header row.
func writeRecordingsXLSX(path string, recs []client.Recording) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if err := f.SetSheetRow(exportSheet, "A1", &exportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	if err := f.SetCellStyle(exportSheet, "A1", "J1", bold); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for i, r := range recs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []any{
			r.ID,
			r.ClientID,
			r.EmployeeID,
			r.EmployeeRole,
			r.Status,
			optionalInt(r.Score),
			r.CreatedAt.Format(time.DateTime),
			optionalTime(r.UpdatedAt),
			optionalString(r.Analysis),
			optionalString(r.Transcription),
		}
		if err := f.SetSheetRow(exportSheet, cell, &row); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
		if verbose {
			fmt.Printf("  %s %s\n", r.ID, r.Status)
		}
	}

	for col, width := range map[string]float64{"A": 38, "I": 80, "J": 80} {
		if err := f.SetColWidth(exportSheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func optionalInt(v *int) any {
	if v == nil {
		return ""
	}
	return *v
}

func optionalString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

func optionalTime(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.Format(time.DateTime)
}
