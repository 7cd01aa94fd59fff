package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"mass-balance-reports/internal/alerting"
	"mass-balance-reports/internal/config"
	"mass-balance-reports/internal/massbalance"
	"mass-balance-reports/internal/scheduler"
	"mass-balance-reports/internal/service"
	"mass-balance-reports/internal/storage"
)

// ErrNoCalculationData is returned when the store holds no matching calculation.
var ErrNoCalculationData = errors.New("no calculation data found")

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
	Out    io.Writer
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger(), Out: os.Stdout}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Enabled && a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, 10*time.Second, a.Logger)
	}
	return nil
}

func (a *App) openSource(ctx context.Context) (storage.CalculationSource, error) {
	src, err := storage.Open(ctx, a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("open calculation store: %w", err)
	}
	return src, nil
}

// withService opens the store, builds a one-shot service and closes the store afterwards.
func (a *App) withService(ctx context.Context, fn func(*service.Service, storage.CalculationSource) error) error {
	src, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	svc := service.New(a.Config, nil, src, a.newNotifier(), a.Logger)
	return noData(fn(svc, src))
}

func noData(err error) error {
	if errors.Is(err, storage.ErrNoData) {
		return ErrNoCalculationData
	}
	return err
}

// Report renders the full workbook.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	return a.withService(ctx, func(svc *service.Service, _ storage.CalculationSource) error {
		out, err := svc.Generate(ctx, service.GenerateOptions{
			CalculationID: opts.CalculationID,
			OutputPath:    opts.OutputPath,
			HistoryLimit:  a.Config.ResolveHistoryLimit(opts.HistoryLimit),
		})
		if err != nil {
			return err
		}
		if err := printResult(a.Out, out.Current); err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "\nReport written to %s\n", out.Path)
		return nil
	})
}

// History renders the history-only workbook.
func (a *App) History(ctx context.Context, opts HistoryOptions) error {
	filter := storage.HistoryFilter{Analyst: opts.Analyst}
	if opts.Stress != "" {
		stress, err := massbalance.ParseStressCondition(opts.Stress)
		if err != nil {
			return err
		}
		filter.Stress = stress
	}

	return a.withService(ctx, func(svc *service.Service, _ storage.CalculationSource) error {
		path, entries, err := svc.GenerateHistory(ctx, service.HistoryOptions{
			OutputPath: opts.OutputPath,
			Limit:      a.Config.ResolveHistoryLimit(opts.Limit),
			Filter:     filter,
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(a.Out, "History (%d calculations) written to %s\n", len(entries), path)
		return nil
	})
}

// Run executes the long-running report service.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	src, err := a.openSource(ctx)
	if err != nil {
		return err
	}
	defer src.Close()

	if _, ok := src.(storage.AdvisoryLocker); !ok {
		a.Logger.Info().Str("driver", a.Config.Database.Driver).Msg("advisory locking unavailable; run a single instance")
	}

	sched := scheduler.New(scheduler.Options{
		Interval:     a.Config.Scheduler.Interval,
		AlignToStart: a.Config.Scheduler.AlignToSlot,
		StartupDelay: a.Config.Scheduler.StartupDelay,
		RunOnStart:   a.Config.Scheduler.RunOnStart,
	}, a.Logger)

	svc := service.New(a.Config, sched, src, a.newNotifier(), a.Logger)

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Str("output_dir", a.Config.Report.OutputDir).Msg("starting report service")
	err = svc.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("report service stopped")
	return nil
}

// ReportOptions configure the report command.
type ReportOptions struct {
	CalculationID string
	OutputPath    string
	HistoryLimit  int
}

// HistoryOptions configure the history command.
type HistoryOptions struct {
	OutputPath string
	Limit      int
	Analyst    string
	Stress     string
}

// CalculateOptions hold an ad-hoc measurement.
type CalculateOptions struct {
	Measurement massbalance.Measurement
	OutputPath  string
	Notify      bool
}

// ExportOptions hold parameters for exporting calculation history.
type ExportOptions struct {
	PNGPath   string
	CSVPath   string
	Limit     int
	MaxPoints int
}

// ShowOptions configure the show command.
type ShowOptions struct {
	Limit int
}
