package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mass-balance-reports/internal/app"
)

var (
	reportID           string
	reportOutput       string
	reportHistoryLimit int
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render the full mass balance workbook for a calculation",
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportHistoryLimit < 0 {
			return fmt.Errorf("--history-limit must not be negative")
		}
		return getApp().Report(cmd.Context(), app.ReportOptions{
			CalculationID: reportID,
			OutputPath:    reportOutput,
			HistoryLimit:  reportHistoryLimit,
		})
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportID, "id", "", "Calculation ID (defaults to the latest)")
	reportCmd.Flags().StringVarP(&reportOutput, "output", "o", "", "Workbook path (defaults to a timestamped file in report.output_dir)")
	reportCmd.Flags().IntVar(&reportHistoryLimit, "history-limit", 0, "History rows to include (defaults to config)")
}
