package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"mass-balance-reports/internal/massbalance"
)

// newPostgresStore seeds a throwaway schema on the database named by
// MASSBALANCE_TEST_PG_DSN and returns a Store bound to it.
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("MASSBALANCE_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("MASSBALANCE_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	schema := fmt.Sprintf("massbalance_test_%d", time.Now().UnixNano())

	admin, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(admin.Close)
	if _, err := admin.Exec(ctx, "CREATE SCHEMA "+schema); err != nil {
		t.Fatalf("create schema: %v", err)
	}
	t.Cleanup(func() {
		_, _ = admin.Exec(context.Background(), "DROP SCHEMA "+schema+" CASCADE")
	})

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		t.Fatalf("parse dsn: %v", err)
	}
	cfg.ConnConfig.RuntimeParams["search_path"] = schema
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		t.Fatalf("connect schema pool: %v", err)
	}
	store := NewStore(pool)
	t.Cleanup(store.Close)

	_, err = pool.Exec(ctx, `CREATE TABLE calculations (
        id TEXT PRIMARY KEY,
        timestamp TIMESTAMPTZ,
        sample_id TEXT,
        analyst_name TEXT,
        stress_type TEXT,
        initial_api DOUBLE PRECISION,
        stressed_api DOUBLE PRECISION,
        initial_degradants DOUBLE PRECISION,
        stressed_degradants DOUBLE PRECISION,
        degradant_mw DOUBLE PRECISION,
        parent_mw DOUBLE PRECISION,
        rrf DOUBLE PRECISION)`)
	if err != nil {
		t.Fatalf("create table: %v", err)
	}

	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	rows := [][]any{
		{"11111111-aaaa-4aaa-8aaa-000000000001", base, "PG-001", "A. Singla", "Base", 98.0, 82.5, 0.5, 4.9, 250.0, 500.0, 0.8},
		{"22222222-bbbb-4bbb-8bbb-000000000002", base.Add(time.Hour), "PG-002", "B. Rao", "thermal", 100.0, 99.0, 0.1, 1.0, nil, nil, nil},
	}
	for _, row := range rows {
		if _, err := pool.Exec(ctx, `INSERT INTO calculations VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`, row...); err != nil {
			t.Fatalf("insert: %v", err)
		}
	}
	return store
}

func TestPostgresStoreQueries(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()

	latest, err := store.LatestCalculation(ctx)
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.Measurement.SampleID != "PG-002" || latest.Measurement.Stress != massbalance.StressThermal {
		t.Fatalf("unexpected latest: %+v", latest)
	}

	rec, err := store.GetCalculation(ctx, "11111111-aaaa-4aaa-8aaa-000000000001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.Measurement.RRF != 0.8 || !rec.Timestamp.Equal(time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if _, err := store.GetCalculation(ctx, "missing"); !errors.Is(err, ErrNoData) {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	filtered, err := store.ListRecentCalculations(ctx, 10, HistoryFilter{Analyst: "Singla"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(filtered) != 1 || filtered[0].Measurement.SampleID != "PG-001" {
		t.Fatalf("unexpected filtered list: %+v", filtered)
	}

	count, err := store.CountCalculations(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
}

func TestPostgresAdvisoryLock(t *testing.T) {
	store := newPostgresStore(t)
	ctx := context.Background()
	key := time.Now().UnixNano()

	unlock, acquired, err := store.TryAdvisoryLock(ctx, key)
	if err != nil || !acquired {
		t.Fatalf("first lock: acquired=%v err=%v", acquired, err)
	}

	if _, again, err := store.TryAdvisoryLock(ctx, key); err != nil || again {
		t.Fatalf("second lock should be refused: acquired=%v err=%v", again, err)
	}

	unlock()
	relock, acquired, err := store.TryAdvisoryLock(ctx, key)
	if err != nil || !acquired {
		t.Fatalf("lock after release: acquired=%v err=%v", acquired, err)
	}
	relock()
}
