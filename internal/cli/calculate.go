package cli

import (
	"github.com/spf13/cobra"

	"mass-balance-reports/internal/app"
	"mass-balance-reports/internal/massbalance"
)

var (
	calcMeasurement massbalance.Measurement
	calcStress      string
	calcOutput      string
	calcNotify      bool
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Evaluate an ad-hoc measurement without a database",
	RunE: func(cmd *cobra.Command, args []string) error {
		stress, err := massbalance.ParseStressCondition(calcStress)
		if err != nil {
			return err
		}
		m := calcMeasurement
		m.Stress = stress

		return getApp().Calculate(cmd.Context(), app.CalculateOptions{
			Measurement: m,
			OutputPath:  calcOutput,
			Notify:      calcNotify,
		})
	},
}

func init() {
	f := calculateCmd.Flags()
	f.Float64Var(&calcMeasurement.InitialAPI, "initial-api", 0, "Initial API assay (%)")
	f.Float64Var(&calcMeasurement.StressedAPI, "stressed-api", 0, "Stressed API assay (%)")
	f.Float64Var(&calcMeasurement.InitialDegradant, "initial-deg", 0, "Initial total degradants (%)")
	f.Float64Var(&calcMeasurement.StressedDegradant, "stressed-deg", 0, "Stressed total degradants (%)")
	f.Float64Var(&calcMeasurement.ParentMW, "parent-mw", 0, "Parent molecular weight (g/mol, 0 if unknown)")
	f.Float64Var(&calcMeasurement.DegradantMW, "degradant-mw", 0, "Degradant molecular weight (g/mol, 0 if unknown)")
	f.Float64Var(&calcMeasurement.RRF, "rrf", 0, "Relative response factor (0 if unknown)")
	f.StringVar(&calcMeasurement.SampleID, "sample-id", "", "Sample identifier")
	f.StringVar(&calcMeasurement.Analyst, "analyst", "", "Analyst name")
	f.StringVar(&calcStress, "stress", string(massbalance.StressThermal), "Stress condition (Acid, Base, Oxidative, Thermal, Photolytic)")
	f.StringVarP(&calcOutput, "output", "o", "", "Also render a workbook to this path")
	f.BoolVar(&calcNotify, "notify", false, "Push an alert when the status is alertable")

	_ = calculateCmd.MarkFlagRequired("initial-api")
	_ = calculateCmd.MarkFlagRequired("stressed-api")
	_ = calculateCmd.MarkFlagRequired("stressed-deg")
}
