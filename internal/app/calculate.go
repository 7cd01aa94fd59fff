package app

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/report"
	"mass-balance-reports/internal/service"
)

// Calculate evaluates a measurement given on the command line. It needs no database.
func (a *App) Calculate(ctx context.Context, opts CalculateOptions) error {
	svc := service.New(a.Config, nil, nil, a.newNotifier(), a.Logger)
	entry := report.Entry{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Result:    svc.Calculator().Evaluate(opts.Measurement),
	}

	if err := printResult(a.Out, entry); err != nil {
		return err
	}

	if opts.OutputPath != "" {
		f, err := svc.Renderer().RenderFull(entry, []report.Entry{entry})
		if err != nil {
			return fmt.Errorf("render report: %w", err)
		}
		if err := report.Save(f, opts.OutputPath); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "\nReport written to %s\n", opts.OutputPath)
	}

	if opts.Notify {
		svc.Notify(ctx, entry, opts.OutputPath)
	}

	a.Logger.Debug().Str("calculation_id", entry.ID).Msg("ad-hoc calculation evaluated")
	return nil
}

func pct(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func factor(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(4)
}

// printResult writes the method table and verdict of one evaluated calculation.
func printResult(w io.Writer, entry report.Entry) error {
	res := entry.Result
	m := res.Measurement

	fmt.Fprintf(w, "Calculation %s | Sample %s | %s stress | Analyst %s\n", entry.ID, m.SampleID, m.Stress, m.Analyst)
	fmt.Fprintf(w, "λ=%s ω=%s S=%s Degradation=%s%%\n\n", factor(res.Factors.Lambda), factor(res.Factors.Omega), factor(res.Factors.S), pct(res.DegradationPct))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "Method\tResult%\tLower CI\tUpper CI\tRisk")
	for _, method := range massbalance.AllMethods {
		a := res.Assessment(method)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", method, pct(a.Value), pct(a.Lower), pct(a.Upper), a.Risk)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	rec := res.Recommendation
	fmt.Fprintf(w, "\nRecommended: %s = %s%% -> %s\n", rec.Method, pct(rec.Value), rec.Status)
	fmt.Fprintf(w, "Confidence index: %s\n", pct(res.ConfidenceIndex))
	fmt.Fprintf(w, "Diagnostic: %s\n", sanitizeInline(res.Diagnostic.Message))
	if res.Diagnostic.Rationale != "" {
		fmt.Fprintf(w, "Rationale: %s\n", sanitizeInline(res.Diagnostic.Rationale))
	}
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
