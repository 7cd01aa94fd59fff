package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mass-balance-reports/internal/massbalance"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: qc\n"))
	if err != nil {
		t.Fatalf("load defaults: %v", err)
	}
	if cfg.App.Name != "qc" {
		t.Fatalf("app.name from file not applied")
	}
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != "mass_balance.db" {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.Policy != massbalance.DefaultPolicy() {
		t.Fatalf("policy defaults should match DefaultPolicy: %+v", cfg.Policy)
	}
	if cfg.Scheduler.Interval != time.Hour {
		t.Fatalf("scheduler.interval default = %s", cfg.Scheduler.Interval)
	}
	if len(cfg.Alerting.Statuses) != 2 {
		t.Fatalf("alerting.statuses default = %v", cfg.Alerting.Statuses)
	}
	if cfg.ResolveHistoryLimit(0) != 100 || cfg.ResolveHistoryLimit(7) != 7 {
		t.Fatalf("history limit resolution incorrect")
	}
}

func TestLoadPolicyOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
policy:
  interval:
    model: absolute
    uncertainty: 2.5
    multiplier: 2.0
  stoichiometry:
    fallback: omega
  status:
    pass_min: 97
scheduler:
  interval: 15m
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Policy.Interval.Model != massbalance.IntervalAbsolute {
		t.Fatalf("interval model override ignored")
	}
	if cfg.Policy.Stoichiometry.Fallback != massbalance.FallbackOmega {
		t.Fatalf("fallback override ignored")
	}
	if cfg.Policy.Status.PassMin != 97 || cfg.Policy.Status.AlertMin != 90 {
		t.Fatalf("status policy = %+v", cfg.Policy.Status)
	}
	if cfg.Scheduler.Interval != 15*time.Minute {
		t.Fatalf("interval = %s", cfg.Scheduler.Interval)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MASSBALANCE_DATABASE_DRIVER", "postgres")
	t.Setenv("MASSBALANCE_DATABASE_DSN", "postgres://qc@localhost/qc")
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Driver != "postgres" || !strings.HasPrefix(cfg.Database.DSN, "postgres://") {
		t.Fatalf("env overrides not applied: %+v", cfg.Database)
	}
}

func TestLoadRejectsInvalidPolicy(t *testing.T) {
	_, err := Load(writeConfig(t, `
policy:
  risk:
    low_min: 90
`))
	if err == nil {
		t.Fatal("inverted risk bands should be rejected")
	}
}

func TestValidateAlerting(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	cfg.Alerting.Statuses = []string{"BROKEN"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("unknown alert status should be rejected")
	}

	cfg.Alerting.Statuses = []string{"oos"}
	cfg.Alerting.Telegram.Enabled = true
	if err := cfg.Validate(); err == nil {
		t.Fatal("telegram without token should be rejected")
	}

	cfg.Alerting.Telegram.BotToken = "token"
	cfg.Alerting.Telegram.ChatID = "chat"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid alerting rejected: %v", err)
	}
}
