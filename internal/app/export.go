package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/report"
	"mass-balance-reports/internal/service"
	"mass-balance-reports/internal/storage"
)

// Export renders calculation history as CSV and/or a PNG trend chart.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("at least one of --csv or --png must be provided")
	}

	return a.withService(ctx, func(svc *service.Service, src storage.CalculationSource) error {
		records, err := src.ListRecentCalculations(ctx, a.Config.ResolveHistoryLimit(opts.Limit), storage.HistoryFilter{})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			a.Logger.Info().Msg("no calculations found for export")
			return nil
		}

		entries := chronological(svc.EvaluateAll(records))
		exported := downsampleEntries(entries, opts.MaxPoints)
		a.Logger.Info().Int("total", len(entries)).Int("exported", len(exported)).Msg("exporting calculations")

		if opts.CSVPath != "" {
			if err := writeEntriesCSV(opts.CSVPath, exported); err != nil {
				return err
			}
		}

		if opts.PNGPath != "" {
			if len(exported) < 2 {
				a.Logger.Warn().Int("points", len(exported)).Str("path", opts.PNGPath).Msg("skipping trend chart; needs at least two calculations")
				return nil
			}
			if err := writeEntriesPNG(opts.PNGPath, exported); err != nil {
				return err
			}
		}

		return nil
	})
}

// chronological reverses a newest-first listing.
func chronological(entries []report.Entry) []report.Entry {
	out := make([]report.Entry, len(entries))
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out
}

func downsampleEntries(entries []report.Entry, max int) []report.Entry {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	if max == 1 {
		return entries[len(entries)-1:]
	}

	result := make([]report.Entry, 0, max)
	step := float64(len(entries)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(entries) {
			idx = len(entries) - 1
		}
		result = append(result, entries[idx])
	}
	return result
}

var csvHeader = []string{
	"calc_id", "timestamp", "sample_id", "analyst", "stress",
	"initial_api", "stressed_api", "initial_degradants", "stressed_degradants",
	"parent_mw", "degradant_mw", "rrf",
	"lambda", "omega", "s",
	"smb", "amb", "rmb", "lk_imb", "cimb", "cimb_risk",
	"degradation_pct", "method", "value", "status",
}

func writeEntriesCSV(path string, entries []report.Entry) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	return encodeEntriesCSV(file, entries)
}

func encodeEntriesCSV(w io.Writer, entries []report.Entry) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(csvHeader); err != nil {
		return err
	}

	for _, entry := range entries {
		res := entry.Result
		m := res.Measurement
		record := []string{
			entry.ID,
			entry.Timestamp.UTC().Format(time.RFC3339),
			m.SampleID,
			m.Analyst,
			string(m.Stress),
			pct(m.InitialAPI),
			pct(m.StressedAPI),
			pct(m.InitialDegradant),
			pct(m.StressedDegradant),
			pct(m.ParentMW),
			pct(m.DegradantMW),
			factor(m.RRF),
			factor(res.Factors.Lambda),
			factor(res.Factors.Omega),
			factor(res.Factors.S),
			pct(res.Methods.SMB),
			pct(res.Methods.AMB),
			pct(res.Methods.RMB),
			pct(res.Methods.LKIMB),
			pct(res.Methods.CIMB),
			string(res.Assessment(massbalance.MethodCIMB).Risk),
			pct(res.DegradationPct),
			string(res.Recommendation.Method),
			pct(res.Recommendation.Value),
			string(res.Recommendation.Status),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

// writeEntriesPNG renders in memory so a failed chart leaves no file behind.
func writeEntriesPNG(path string, entries []report.Entry) error {
	var buf bytes.Buffer
	if err := report.TrendPNG(&buf, entries); err != nil {
		return err
	}
	if err := ensureDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
