package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mass-balance-reports/internal/config"
	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/report"
)

func seedDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mass_balance.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE calculations (
        id TEXT PRIMARY KEY, timestamp TEXT, sample_id TEXT, analyst_name TEXT, stress_type TEXT,
        initial_api REAL, stressed_api REAL, initial_degradants REAL, stressed_degradants REAL,
        degradant_mw REAL, parent_mw REAL, rrf REAL)`)
	require.NoError(t, err)

	rows := [][]any{
		{"0f8fad5b-d9cb-469f-a165-70867728950e", "2026-01-12T09:00:00Z", "VAL-001", "A. Singla", "Base", 98.0, 82.5, 0.5, 4.9, 250.0, 500.0, 0.8},
		{"7c9e6679-7425-40de-944b-e07fc1f90ae7", "2026-01-10T09:00:00Z", "VAL-000", "B. Rao", "Thermal", 100.0, 99.0, 0.1, 1.0, nil, nil, nil},
	}
	for _, row := range rows {
		_, err := db.Exec(`INSERT INTO calculations VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, row...)
		require.NoError(t, err)
	}
	return path
}

func newTestApp(t *testing.T, dsn string) (*App, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	cfg := &config.Config{
		Database:  config.DatabaseConfig{Driver: "sqlite", DSN: dsn},
		Report:    config.ReportConfig{OutputDir: t.TempDir(), HistoryLimit: 100, TrendPoints: 10, Title: "QC"},
		Policy:    massbalance.DefaultPolicy(),
		Scheduler: config.SchedulerConfig{Interval: time.Hour},
	}
	return &App{Config: cfg, Logger: zerolog.Nop(), Out: &out}, &out
}

func TestReportLatest(t *testing.T) {
	a, out := newTestApp(t, seedDatabase(t))
	path := filepath.Join(t.TempDir(), "out", "report.xlsx")

	require.NoError(t, a.Report(context.Background(), ReportOptions{OutputPath: path}))

	_, err := os.Stat(path)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "Sample VAL-001")
	assert.Contains(t, out.String(), "Recommended: RMB = 28.39% -> OOS")
	assert.Contains(t, out.String(), "Report written to "+path)
}

func TestReportMissingCalculation(t *testing.T) {
	a, _ := newTestApp(t, seedDatabase(t))

	err := a.Report(context.Background(), ReportOptions{CalculationID: "does-not-exist"})
	require.ErrorIs(t, err, ErrNoCalculationData)
	assert.Equal(t, "no calculation data found", err.Error())
}

func TestReportMissingDatabase(t *testing.T) {
	a, _ := newTestApp(t, filepath.Join(t.TempDir(), "absent.db"))

	err := a.Report(context.Background(), ReportOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database not found")
}

func TestHistoryRejectsUnknownStress(t *testing.T) {
	a, _ := newTestApp(t, seedDatabase(t))
	assert.Error(t, a.History(context.Background(), HistoryOptions{Stress: "Humidity"}))
}

func TestHistoryFiltered(t *testing.T) {
	a, out := newTestApp(t, seedDatabase(t))
	path := filepath.Join(t.TempDir(), "history.xlsx")

	require.NoError(t, a.History(context.Background(), HistoryOptions{OutputPath: path, Stress: "thermal"}))
	assert.Contains(t, out.String(), "History (1 calculations) written to "+path)
}

func TestCalculateWithoutDatabase(t *testing.T) {
	a, out := newTestApp(t, "")
	path := filepath.Join(t.TempDir(), "adhoc.xlsx")

	err := a.Calculate(context.Background(), CalculateOptions{
		Measurement: massbalance.Measurement{
			SampleID: "ADHOC-1", Stress: massbalance.StressBase,
			InitialAPI: 98, StressedAPI: 82.5, InitialDegradant: 0.5, StressedDegradant: 4.9,
			ParentMW: 500, DegradantMW: 250, RRF: 0.8,
		},
		OutputPath: path,
	})
	require.NoError(t, err)

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
	text := out.String()
	assert.Contains(t, text, "λ=1.2500 ω=0.5000 S=2.0720 Degradation=15.82%")
	assert.Contains(t, text, "CIMB")
	assert.Contains(t, text, "Confidence index: 84.19")
}

func TestShow(t *testing.T) {
	a, out := newTestApp(t, seedDatabase(t))

	require.NoError(t, a.Show(context.Background(), ShowOptions{Limit: 1}))
	assert.Contains(t, out.String(), "0f8fad5b")
	assert.NotContains(t, out.String(), "7c9e6679")
	assert.Contains(t, out.String(), "showing 1 of 2 calculations")
}

func TestExportCSV(t *testing.T) {
	a, _ := newTestApp(t, seedDatabase(t))
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "export", "history.csv")
	pngPath := filepath.Join(dir, "export", "trend.png")

	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: csvPath, PNGPath: pngPath}))

	file, err := os.Open(csvPath)
	require.NoError(t, err)
	defer file.Close()
	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)

	require.Len(t, records, 3)
	assert.Equal(t, csvHeader, records[0])
	// oldest first
	assert.Equal(t, "VAL-000", records[1][2])
	assert.Equal(t, "VAL-001", records[2][2])
	assert.Equal(t, "OOS", records[2][len(csvHeader)-1])

	info, err := os.Stat(pngPath)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(0))
}

func TestExportSkipsChartForSinglePoint(t *testing.T) {
	a, _ := newTestApp(t, seedDatabase(t))
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "history.csv")
	pngPath := filepath.Join(dir, "trend.png")

	require.NoError(t, a.Export(context.Background(), ExportOptions{CSVPath: csvPath, PNGPath: pngPath, MaxPoints: 1}))

	_, err := os.Stat(csvPath)
	require.NoError(t, err)
	_, err = os.Stat(pngPath)
	assert.True(t, os.IsNotExist(err), "no chart file expected, got %v", err)
}

func TestWriteEntriesPNGLeavesNoFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trend.png")

	err := writeEntriesPNG(path, []report.Entry{{ID: "only"}})
	require.ErrorIs(t, err, report.ErrTooFewPoints)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestWriteEntriesPNGSameTimestamp(t *testing.T) {
	calc := massbalance.NewCalculator(massbalance.DefaultPolicy())
	ts := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC)
	m := massbalance.Measurement{Stress: massbalance.StressThermal, InitialAPI: 100, StressedAPI: 96, StressedDegradant: 3}
	other := m
	other.StressedAPI = 92
	path := filepath.Join(t.TempDir(), "trend.png")

	require.NoError(t, writeEntriesPNG(path, []report.Entry{
		{ID: "a", Timestamp: ts, Result: calc.Evaluate(m)},
		{ID: "b", Timestamp: ts, Result: calc.Evaluate(other)},
	}))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("\x89PNG")))
}

func TestExportRequiresTarget(t *testing.T) {
	a, _ := newTestApp(t, seedDatabase(t))
	assert.Error(t, a.Export(context.Background(), ExportOptions{}))
}

func TestDownsampleEntries(t *testing.T) {
	entries := make([]report.Entry, 10)
	for i := range entries {
		entries[i] = report.Entry{ID: string(rune('a' + i))}
	}

	got := downsampleEntries(entries, 4)
	require.Len(t, got, 4)
	assert.Equal(t, "a", got[0].ID)
	assert.Equal(t, "j", got[3].ID)

	assert.Len(t, downsampleEntries(entries, 0), 10)
	assert.Len(t, downsampleEntries(entries, 20), 10)
	assert.Equal(t, "j", downsampleEntries(entries, 1)[0].ID)
}

func TestChronological(t *testing.T) {
	got := chronological([]report.Entry{{ID: "new"}, {ID: "mid"}, {ID: "old"}})
	assert.Equal(t, []string{"old", "mid", "new"}, []string{got[0].ID, got[1].ID, got[2].ID})
}
