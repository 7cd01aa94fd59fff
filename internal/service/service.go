package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"mass-balance-reports/internal/alerting"
	"mass-balance-reports/internal/config"
	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/report"
	"mass-balance-reports/internal/scheduler"
	"mass-balance-reports/internal/storage"
)

const fileStampLayout = "20060102_150405"

// Service orchestrates loading, evaluation, rendering and alerting.
type Service struct {
	scheduler *scheduler.Scheduler
	source    storage.CalculationSource
	calc      *massbalance.Calculator
	renderer  *report.Renderer
	notifier  alerting.Notifier
	logger    zerolog.Logger

	outputDir    string
	historyLimit int
	alertsOn     bool
	alertOn      map[massbalance.Status]bool
	channels     []string
	locker       storage.AdvisoryLocker
	lockKey      int64
	now          func() time.Time

	mu       sync.Mutex
	notified map[string]bool
}

// New constructs the report service. sched and notifier may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, source storage.CalculationSource, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	alertOn := make(map[massbalance.Status]bool, len(cfg.Alerting.Statuses))
	for _, st := range cfg.Alerting.Statuses {
		alertOn[massbalance.Status(strings.ToUpper(st))] = true
	}

	var locker storage.AdvisoryLocker
	if l, ok := source.(storage.AdvisoryLocker); ok {
		locker = l
	}

	return &Service{
		scheduler: sched,
		source:    source,
		calc:      massbalance.NewCalculator(cfg.Policy),
		renderer: report.NewRenderer(cfg.Policy, report.Options{
			Title:       cfg.Report.Title,
			TrendPoints: cfg.Report.TrendPoints,
		}),
		notifier:     notifier,
		logger:       logger.With().Str("component", "service").Logger(),
		outputDir:    cfg.Report.OutputDir,
		historyLimit: cfg.Report.HistoryLimit,
		alertsOn:     cfg.Alerting.Enabled,
		alertOn:      alertOn,
		channels:     cfg.Alerting.Channels,
		locker:       locker,
		lockKey:      cfg.Scheduler.AdvisoryLockKey,
		now:          func() time.Time { return time.Now().UTC() },
		notified:     make(map[string]bool),
	}
}

// Calculator exposes the policy-bound calculator.
func (s *Service) Calculator() *massbalance.Calculator {
	return s.calc
}

// Renderer exposes the workbook renderer.
func (s *Service) Renderer() *report.Renderer {
	return s.renderer
}

// Evaluate re-runs the calculator over a stored record.
func (s *Service) Evaluate(rec storage.CalculationRecord) report.Entry {
	return report.Entry{ID: rec.ID, Timestamp: rec.Timestamp, Result: s.calc.Evaluate(rec.Measurement)}
}

// EvaluateAll evaluates records in order.
func (s *Service) EvaluateAll(recs []storage.CalculationRecord) []report.Entry {
	entries := make([]report.Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, s.Evaluate(rec))
	}
	return entries
}

// GenerateOptions selects the calculation and output of a full report.
type GenerateOptions struct {
	CalculationID string
	OutputPath    string
	HistoryLimit  int
}

// Generated describes a rendered workbook.
type Generated struct {
	Path    string
	Current report.Entry
	History []report.Entry
}

// Generate renders the full workbook for one calculation, the latest by default.
func (s *Service) Generate(ctx context.Context, opts GenerateOptions) (Generated, error) {
	if s.source == nil {
		return Generated{}, storage.ErrNotConfigured
	}

	var (
		rec storage.CalculationRecord
		err error
	)
	if opts.CalculationID != "" {
		rec, err = s.source.GetCalculation(ctx, opts.CalculationID)
	} else {
		rec, err = s.source.LatestCalculation(ctx)
	}
	if err != nil {
		return Generated{}, fmt.Errorf("load calculation: %w", err)
	}

	limit := opts.HistoryLimit
	if limit <= 0 {
		limit = s.historyLimit
	}
	records, err := s.source.ListRecentCalculations(ctx, limit, storage.HistoryFilter{})
	if err != nil {
		return Generated{}, fmt.Errorf("load history: %w", err)
	}

	out := Generated{
		Path:    opts.OutputPath,
		Current: s.Evaluate(rec),
		History: s.EvaluateAll(records),
	}
	if out.Path == "" {
		out.Path = ReportPath(s.outputDir, s.now())
	}

	f, err := s.renderer.RenderFull(out.Current, out.History)
	if err != nil {
		return Generated{}, fmt.Errorf("render report: %w", err)
	}
	if err := report.Save(f, out.Path); err != nil {
		return Generated{}, err
	}

	res := out.Current.Result
	s.logger.Info().
		Str("calculation_id", rec.ID).
		Str("sample_id", res.Measurement.SampleID).
		Str("method", string(res.Recommendation.Method)).
		Float64("value", massbalance.Round(res.Recommendation.Value, 2)).
		Str("status", string(res.Recommendation.Status)).
		Int("history", len(out.History)).
		Str("path", out.Path).
		Msg("report generated")

	s.Notify(ctx, out.Current, out.Path)
	return out, nil
}

// HistoryOptions selects the rows of a history workbook.
type HistoryOptions struct {
	OutputPath string
	Limit      int
	Filter     storage.HistoryFilter
}

// GenerateHistory renders the history-only workbook.
func (s *Service) GenerateHistory(ctx context.Context, opts HistoryOptions) (string, []report.Entry, error) {
	if s.source == nil {
		return "", nil, storage.ErrNotConfigured
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = s.historyLimit
	}
	records, err := s.source.ListRecentCalculations(ctx, limit, opts.Filter)
	if err != nil {
		return "", nil, fmt.Errorf("load history: %w", err)
	}
	entries := s.EvaluateAll(records)

	path := opts.OutputPath
	if path == "" {
		path = HistoryPath(s.outputDir, s.now())
	}
	f, err := s.renderer.RenderHistory(entries)
	if err != nil {
		return "", nil, fmt.Errorf("render history: %w", err)
	}
	if err := report.Save(f, path); err != nil {
		return "", nil, err
	}

	s.logger.Info().Int("rows", len(entries)).Str("path", path).Msg("history generated")
	return path, entries, nil
}

// Run begins scheduled regeneration.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.ProcessTick)
}

// ProcessTick renders a fresh report for the latest calculation.
func (s *Service) ProcessTick(ctx context.Context, slot time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("slot", slot).Msg("skip slot because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	_, err = s.Generate(ctx, GenerateOptions{OutputPath: ReportPath(s.outputDir, slot)})
	if errors.Is(err, storage.ErrNoData) {
		s.logger.Warn().Time("slot", slot).Msg("no calculation data found; nothing to render")
		return nil
	}
	return err
}

// Notify pushes an alert for entry when its status is alertable. Each calculation
// is notified at most once per process; failed sends are retried on the next call.
func (s *Service) Notify(ctx context.Context, entry report.Entry, path string) {
	res := entry.Result
	status := res.Recommendation.Status
	if !s.alertsOn || s.notifier == nil || !s.alertOn[status] {
		return
	}

	s.mu.Lock()
	seen := s.notified[entry.ID]
	s.mu.Unlock()
	if seen {
		return
	}

	cimb := res.Assessment(massbalance.MethodCIMB)
	note := alerting.Notification{
		CalculationID: entry.ID,
		GeneratedAt:   s.now(),
		SampleID:      res.Measurement.SampleID,
		Analyst:       res.Measurement.Analyst,
		Stress:        string(res.Measurement.Stress),
		Method:        string(res.Recommendation.Method),
		Value:         decimal.NewFromFloat(res.Recommendation.Value),
		Status:        string(status),
		CIMB:          decimal.NewFromFloat(cimb.Value),
		CIMBRisk:      string(cimb.Risk),
		Degradation:   decimal.NewFromFloat(res.DegradationPct),
		Diagnostic:    res.Diagnostic.Message,
		ReportPath:    path,
		Channels:      s.channels,
	}
	if err := s.notifier.Notify(ctx, note); err != nil {
		s.logger.Error().Err(err).Str("calculation_id", entry.ID).Msg("failed to dispatch alert")
		return
	}

	s.mu.Lock()
	s.notified[entry.ID] = true
	s.mu.Unlock()
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}

// ReportPath names a full workbook generated at t.
func ReportPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("mass_balance_report_%s.xlsx", t.UTC().Format(fileStampLayout)))
}

// HistoryPath names a history workbook generated at t.
func HistoryPath(dir string, t time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("calculation_history_%s.xlsx", t.UTC().Format(fileStampLayout)))
}
