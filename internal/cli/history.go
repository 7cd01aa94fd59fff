package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mass-balance-reports/internal/app"
)

var (
	historyOutput  string
	historyLimit   int
	historyAnalyst string
	historyStress  string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Render the calculation history workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		if historyLimit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		return getApp().History(cmd.Context(), app.HistoryOptions{
			OutputPath: historyOutput,
			Limit:      historyLimit,
			Analyst:    historyAnalyst,
			Stress:     historyStress,
		})
	},
}

func init() {
	historyCmd.Flags().StringVarP(&historyOutput, "output", "o", "", "Workbook path (defaults to a timestamped file in report.output_dir)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum rows (defaults to config)")
	historyCmd.Flags().StringVar(&historyAnalyst, "analyst", "", "Only calculations whose analyst name contains this text")
	historyCmd.Flags().StringVar(&historyStress, "stress", "", "Only calculations under this stress condition")
}
