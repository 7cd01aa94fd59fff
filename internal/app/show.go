package app

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/service"
	"mass-balance-reports/internal/storage"
)

// Show prints recent calculations with their re-evaluated verdicts.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	return a.withService(ctx, func(svc *service.Service, src storage.CalculationSource) error {
		total, err := src.CountCalculations(ctx)
		if err != nil {
			return err
		}
		records, err := src.ListRecentCalculations(ctx, opts.Limit, storage.HistoryFilter{})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Fprintln(a.Out, "no calculations found")
			return nil
		}

		writer := tabwriter.NewWriter(a.Out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Time (UTC)\tID\tSample\tStress\tMethod\tResult%\tCIMB%\tCIMB Risk\tStatus")
		for _, entry := range svc.EvaluateAll(records) {
			res := entry.Result
			cimb := res.Assessment(massbalance.MethodCIMB)
			fmt.Fprintf(
				writer,
				"%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				entry.Timestamp.UTC().Format(time.RFC3339),
				entry.ShortID(),
				sanitizeInline(res.Measurement.SampleID),
				res.Measurement.Stress,
				res.Recommendation.Method,
				pct(res.Recommendation.Value),
				pct(cimb.Value),
				cimb.Risk,
				res.Recommendation.Status,
			)
		}
		if err := writer.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "\nshowing %d of %d calculations\n", len(records), total)
		return nil
	})
}
