package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"mass-balance-reports/internal/logging"
	"mass-balance-reports/internal/massbalance"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig          `mapstructure:"app"`
	Logging   logging.Config     `mapstructure:"logging"`
	Database  DatabaseConfig     `mapstructure:"database"`
	Report    ReportConfig       `mapstructure:"report"`
	Policy    massbalance.Policy `mapstructure:"policy"`
	Scheduler SchedulerConfig    `mapstructure:"scheduler"`
	Alerting  AlertingConfig     `mapstructure:"alerting"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig selects and tunes the calculation store.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// ReportConfig governs workbook output.
type ReportConfig struct {
	OutputDir    string `mapstructure:"output_dir"`
	HistoryLimit int    `mapstructure:"history_limit"`
	TrendPoints  int    `mapstructure:"trend_points"`
	Title        string `mapstructure:"title"`
}

// SchedulerConfig governs scheduled report regeneration.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToSlot     bool          `mapstructure:"align_to_slot"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
	RunOnStart      bool          `mapstructure:"run_on_start"`
}

// AlertingConfig defines which results are pushed and where.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Statuses []string       `mapstructure:"statuses"`
	Channels []string       `mapstructure:"channels"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram bot channel.
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("MASSBALANCE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "massbalance")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "mass_balance.db")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", "30m")

	v.SetDefault("report.output_dir", "reports")
	v.SetDefault("report.history_limit", 100)
	v.SetDefault("report.trend_points", 10)
	v.SetDefault("report.title", "Mass Balance Calculator")

	p := massbalance.DefaultPolicy()
	v.SetDefault("policy.risk.low_min", p.Risk.LowMin)
	v.SetDefault("policy.risk.low_max", p.Risk.LowMax)
	v.SetDefault("policy.risk.moderate_min", p.Risk.ModerateMin)
	v.SetDefault("policy.risk.moderate_max", p.Risk.ModerateMax)
	v.SetDefault("policy.recommend.low_degradation", p.Recommend.LowDegradation)
	v.SetDefault("policy.recommend.ratio_min", p.Recommend.RatioMin)
	v.SetDefault("policy.recommend.ratio_max", p.Recommend.RatioMax)
	v.SetDefault("policy.recommend.high_degradation", p.Recommend.HighDegradation)
	v.SetDefault("policy.status.pass_min", p.Status.PassMin)
	v.SetDefault("policy.status.alert_min", p.Status.AlertMin)
	v.SetDefault("policy.interval.model", p.Interval.Model)
	v.SetDefault("policy.interval.rsd", p.Interval.RSD)
	v.SetDefault("policy.interval.uncertainty", p.Interval.Uncertainty)
	v.SetDefault("policy.interval.multiplier", p.Interval.Multiplier)
	v.SetDefault("policy.stoichiometry.hydrolysis_mass", p.Stoichiometry.HydrolysisMass)
	v.SetDefault("policy.stoichiometry.oxidation_mass", p.Stoichiometry.OxidationMass)
	v.SetDefault("policy.stoichiometry.fallback", p.Stoichiometry.Fallback)
	v.SetDefault("policy.diagnostic.amb_floor", p.Diagnostic.AMBFloor)
	v.SetDefault("policy.diagnostic.uv_silent_lambda", p.Diagnostic.UVSilentLambda)
	v.SetDefault("policy.diagnostic.analytical_error", p.Diagnostic.AnalyticalError)

	v.SetDefault("scheduler.interval", "1h")
	v.SetDefault("scheduler.align_to_slot", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x4d42414c))
	v.SetDefault("scheduler.startup_delay", "0s")
	v.SetDefault("scheduler.run_on_start", true)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.statuses", []string{string(massbalance.StatusAlert), string(massbalance.StatusOOS)})
	v.SetDefault("alerting.channels", []string{"telegram"})
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Report.HistoryLimit <= 0 {
		return fmt.Errorf("report.history_limit must be greater than zero")
	}
	if c.Report.TrendPoints <= 0 {
		return fmt.Errorf("report.trend_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if err := c.Policy.Validate(); err != nil {
		return err
	}
	for _, s := range c.Alerting.Statuses {
		switch massbalance.Status(strings.ToUpper(s)) {
		case massbalance.StatusPass, massbalance.StatusAlert, massbalance.StatusOOS:
		default:
			return fmt.Errorf("alerting.statuses: unknown status %q", s)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// ResolveHistoryLimit returns either the CLI override or config default.
func (c *Config) ResolveHistoryLimit(override int) int {
	if override > 0 {
		return override
	}
	return c.Report.HistoryLimit
}
