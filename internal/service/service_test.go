package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mass-balance-reports/internal/alerting"
	"mass-balance-reports/internal/config"
	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/storage"
)

type fakeSource struct {
	records  []storage.CalculationRecord
	filters  []storage.HistoryFilter
	lockFree bool
	locks    int
}

func (f *fakeSource) LatestCalculation(context.Context) (storage.CalculationRecord, error) {
	if len(f.records) == 0 {
		return storage.CalculationRecord{}, storage.ErrNoData
	}
	return f.records[0], nil
}

func (f *fakeSource) GetCalculation(_ context.Context, id string) (storage.CalculationRecord, error) {
	for _, rec := range f.records {
		if rec.ID == id {
			return rec, nil
		}
	}
	return storage.CalculationRecord{}, storage.ErrNoData
}

func (f *fakeSource) ListRecentCalculations(_ context.Context, limit int, filter storage.HistoryFilter) ([]storage.CalculationRecord, error) {
	f.filters = append(f.filters, filter)
	if limit > len(f.records) {
		limit = len(f.records)
	}
	return f.records[:limit], nil
}

func (f *fakeSource) CountCalculations(context.Context) (int64, error) {
	return int64(len(f.records)), nil
}

func (f *fakeSource) Close() {}

// lockingSource adds advisory locking to fakeSource.
type lockingSource struct {
	*fakeSource
}

func (l lockingSource) TryAdvisoryLock(context.Context, int64) (func(), bool, error) {
	l.locks++
	return func() {}, l.lockFree, nil
}

type recordingNotifier struct {
	notes []alerting.Notification
	err   error
}

func (r *recordingNotifier) Notify(_ context.Context, note alerting.Notification) error {
	if r.err != nil {
		return r.err
	}
	r.notes = append(r.notes, note)
	return nil
}

func testConfig(dir string) *config.Config {
	return &config.Config{
		Report: config.ReportConfig{OutputDir: dir, HistoryLimit: 50, TrendPoints: 10, Title: "QC"},
		Policy: massbalance.DefaultPolicy(),
		Scheduler: config.SchedulerConfig{
			Interval:        time.Hour,
			AdvisoryLockKey: 42,
		},
		Alerting: config.AlertingConfig{
			Enabled:  true,
			Statuses: []string{"alert", "oos"},
			Channels: []string{"telegram"},
		},
	}
}

func fixtureRecords() []storage.CalculationRecord {
	oos := massbalance.Measurement{
		SampleID: "VAL-2026-001", Analyst: "A. Singla", Stress: massbalance.StressBase,
		InitialAPI: 98, StressedAPI: 82.5, InitialDegradant: 0.5, StressedDegradant: 4.9,
		ParentMW: 500, DegradantMW: 250, RRF: 0.8,
	}
	pass := massbalance.Measurement{
		SampleID: "VAL-2026-000", Analyst: "R. Mehta", Stress: massbalance.StressThermal,
		InitialAPI: 100, StressedAPI: 99, InitialDegradant: 0.1, StressedDegradant: 1.0,
	}
	return []storage.CalculationRecord{
		{ID: "11111111-aaaa", Timestamp: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC), Measurement: oos},
		{ID: "22222222-bbbb", Timestamp: time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC), Measurement: pass},
	}
}

func TestGenerateLatestNotifiesOnce(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{records: fixtureRecords()}
	notifier := &recordingNotifier{}
	svc := New(testConfig(dir), nil, src, notifier, zerolog.Nop())
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC) }

	out, err := svc.Generate(context.Background(), GenerateOptions{})
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "mass_balance_report_20260314_100000.xlsx"), out.Path)
	_, statErr := os.Stat(out.Path)
	require.NoError(t, statErr)
	assert.Equal(t, "11111111-aaaa", out.Current.ID)
	assert.Len(t, out.History, 2)
	assert.Equal(t, massbalance.StatusOOS, out.Current.Result.Recommendation.Status)

	require.Len(t, notifier.notes, 1)
	note := notifier.notes[0]
	assert.Equal(t, "OOS", note.Status)
	assert.Equal(t, "RMB", note.Method)
	assert.Equal(t, "HIGH", note.CIMBRisk)
	assert.Equal(t, out.Path, note.ReportPath)

	_, err = svc.Generate(context.Background(), GenerateOptions{OutputPath: filepath.Join(dir, "again.xlsx")})
	require.NoError(t, err)
	assert.Len(t, notifier.notes, 1, "same calculation must not be notified twice")
}

func TestGenerateByIDPassDoesNotNotify(t *testing.T) {
	dir := t.TempDir()
	notifier := &recordingNotifier{}
	svc := New(testConfig(dir), nil, &fakeSource{records: fixtureRecords()}, notifier, zerolog.Nop())

	out, err := svc.Generate(context.Background(), GenerateOptions{CalculationID: "22222222-bbbb", OutputPath: filepath.Join(dir, "pass.xlsx")})
	require.NoError(t, err)
	assert.Equal(t, massbalance.StatusPass, out.Current.Result.Recommendation.Status)
	assert.Empty(t, notifier.notes)
}

func TestGenerateRetriesFailedNotification(t *testing.T) {
	dir := t.TempDir()
	notifier := &recordingNotifier{err: errors.New("telegram down")}
	svc := New(testConfig(dir), nil, &fakeSource{records: fixtureRecords()}, notifier, zerolog.Nop())

	_, err := svc.Generate(context.Background(), GenerateOptions{OutputPath: filepath.Join(dir, "a.xlsx")})
	require.NoError(t, err, "notification failure must not fail the render")

	notifier.err = nil
	_, err = svc.Generate(context.Background(), GenerateOptions{OutputPath: filepath.Join(dir, "b.xlsx")})
	require.NoError(t, err)
	assert.Len(t, notifier.notes, 1)
}

func TestGenerateMissingData(t *testing.T) {
	svc := New(testConfig(t.TempDir()), nil, &fakeSource{}, nil, zerolog.Nop())

	_, err := svc.Generate(context.Background(), GenerateOptions{})
	assert.ErrorIs(t, err, storage.ErrNoData)

	_, err = svc.Generate(context.Background(), GenerateOptions{CalculationID: "missing"})
	assert.ErrorIs(t, err, storage.ErrNoData)

	assert.NoError(t, svc.ProcessTick(context.Background(), time.Now()), "empty store is not a tick failure")
}

func TestGenerateHistoryPassesFilter(t *testing.T) {
	dir := t.TempDir()
	src := &fakeSource{records: fixtureRecords()}
	svc := New(testConfig(dir), nil, src, nil, zerolog.Nop())

	filter := storage.HistoryFilter{Analyst: "Singla", Stress: massbalance.StressBase}
	path, entries, err := svc.GenerateHistory(context.Background(), HistoryOptions{Limit: 1, Filter: filter})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, filter, src.filters[len(src.filters)-1])
	_, statErr := os.Stat(path)
	require.NoError(t, statErr)
}

func TestProcessTickRespectsAdvisoryLock(t *testing.T) {
	dir := t.TempDir()
	src := lockingSource{&fakeSource{records: fixtureRecords()}}
	svc := New(testConfig(dir), nil, src, nil, zerolog.Nop())
	slot := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	require.NoError(t, svc.ProcessTick(context.Background(), slot))
	_, err := os.Stat(ReportPath(dir, slot))
	assert.True(t, os.IsNotExist(err), "lock held elsewhere should skip rendering")

	src.lockFree = true
	require.NoError(t, svc.ProcessTick(context.Background(), slot))
	_, err = os.Stat(ReportPath(dir, slot))
	assert.NoError(t, err)
	assert.Equal(t, 2, src.locks)
}

func TestRunWithoutScheduler(t *testing.T) {
	svc := New(testConfig(t.TempDir()), nil, &fakeSource{}, nil, zerolog.Nop())
	assert.Error(t, svc.Run(context.Background()))
}

func TestGenerateWithoutSource(t *testing.T) {
	svc := New(testConfig(t.TempDir()), nil, nil, nil, zerolog.Nop())
	_, err := svc.Generate(context.Background(), GenerateOptions{})
	assert.ErrorIs(t, err, storage.ErrNotConfigured)
}
