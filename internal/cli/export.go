package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"mass-balance-reports/internal/app"
)

var (
	exportPNGPath   string
	exportCSVPath   string
	exportLimit     int
	exportMaxPoints int
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export calculation history as CSV and/or PNG trend chart",
	RunE: func(cmd *cobra.Command, args []string) error {
		if exportLimit < 0 || exportMaxPoints < 0 {
			return fmt.Errorf("--limit and --max-points must not be negative")
		}
		return getApp().Export(cmd.Context(), app.ExportOptions{
			PNGPath:   exportPNGPath,
			CSVPath:   exportCSVPath,
			Limit:     exportLimit,
			MaxPoints: exportMaxPoints,
		})
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportPNGPath, "png", "", "Path to write PNG chart")
	exportCmd.Flags().StringVar(&exportCSVPath, "csv", "", "Path to write CSV data")
	exportCmd.Flags().IntVar(&exportLimit, "limit", 0, "Calculations to load (defaults to report.history_limit)")
	exportCmd.Flags().IntVar(&exportMaxPoints, "max-points", 0, "Downsample to at most this many points (0 keeps all)")
}
