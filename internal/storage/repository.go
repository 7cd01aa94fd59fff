package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"mass-balance-reports/internal/massbalance"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
	// ErrNoData indicates no calculation matched the request.
	ErrNoData = errors.New("storage: no calculation data found")
)

const (
	calculationColumns = `id,
        timestamp,
        sample_id,
        analyst_name,
        stress_type,
        initial_api,
        stressed_api,
        initial_degradants,
        stressed_degradants,
        degradant_mw,
        parent_mw,
        rrf`

	countCalculationsSQL = `SELECT COUNT(*) FROM calculations;`

	tryAdvisoryLockSQL = `SELECT pg_try_advisory_lock($1);`
	advisoryUnlockSQL  = `SELECT pg_advisory_unlock($1);`
)

// CalculationSource is the read-only view over stored calculations.
type CalculationSource interface {
	LatestCalculation(ctx context.Context) (CalculationRecord, error)
	GetCalculation(ctx context.Context, id string) (CalculationRecord, error)
	ListRecentCalculations(ctx context.Context, limit int, filter HistoryFilter) ([]CalculationRecord, error)
	CountCalculations(ctx context.Context) (int64, error)
	Close()
}

// AdvisoryLocker exposes advisory lock helpers.
type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (unlock func(), acquired bool, err error)
}

// placeholder renders the n-th (1-based) bind parameter for a dialect.
type placeholder func(n int) string

func dollarPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func questionPlaceholder(int) string { return "?" }

func selectByIDSQL(ph placeholder) string {
	return fmt.Sprintf("SELECT %s FROM calculations WHERE id = %s;", calculationColumns, ph(1))
}

func listRecentSQL(ph placeholder, limit int, filter HistoryFilter) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)
	b.WriteString("SELECT ")
	b.WriteString(calculationColumns)
	b.WriteString(" FROM calculations WHERE 1=1")

	if filter.Analyst != "" {
		args = append(args, "%"+filter.Analyst+"%")
		fmt.Fprintf(&b, " AND analyst_name LIKE %s", ph(len(args)))
	}
	if filter.Stress != "" {
		args = append(args, string(filter.Stress.Normalize()))
		fmt.Fprintf(&b, " AND stress_type = %s", ph(len(args)))
	}

	args = append(args, limit)
	fmt.Fprintf(&b, " ORDER BY timestamp DESC LIMIT %s;", ph(len(args)))
	return b.String(), args
}

// Store reads calculations from PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// TryAdvisoryLock attempts to acquire a postgres advisory lock and returns a release func.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, false, err
	}

	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire connection: %w", err)
	}

	var acquired bool
	if err := conn.QueryRow(ctx, tryAdvisoryLockSQL, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock: %w", err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		ctxUnlock, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_, _ = conn.Exec(ctxUnlock, advisoryUnlockSQL, key)
		conn.Release()
	}
	return unlock, true, nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// LatestCalculation returns the most recent calculation.
func (s *Store) LatestCalculation(ctx context.Context) (CalculationRecord, error) {
	records, err := s.ListRecentCalculations(ctx, 1, HistoryFilter{})
	if err != nil {
		return CalculationRecord{}, err
	}
	if len(records) == 0 {
		return CalculationRecord{}, ErrNoData
	}
	return records[0], nil
}

// GetCalculation returns a calculation by ID.
func (s *Store) GetCalculation(ctx context.Context, id string) (CalculationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return CalculationRecord{}, err
	}

	rec, err := scanCalculation(pool.QueryRow(ctx, selectByIDSQL(dollarPlaceholder), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CalculationRecord{}, ErrNoData
	}
	if err != nil {
		return CalculationRecord{}, fmt.Errorf("get calculation: %w", err)
	}
	return rec, nil
}

// ListRecentCalculations lists calculations by descending timestamp.
func (s *Store) ListRecentCalculations(ctx context.Context, limit int, filter HistoryFilter) ([]CalculationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	query, args := listRecentSQL(dollarPlaceholder, limit, filter)
	rows, queryErr := pool.Query(ctx, query, args...)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent calculations: %w", queryErr)
	}
	defer rows.Close()

	records := make([]CalculationRecord, 0, limit)
	for rows.Next() {
		rec, scanErr := scanCalculation(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return records, nil
}

// CountCalculations counts stored calculations.
func (s *Store) CountCalculations(ctx context.Context) (int64, error) {
	pool, err := s.getPool()
	if err != nil {
		return 0, err
	}
	var count int64
	if scanErr := pool.QueryRow(ctx, countCalculationsSQL).Scan(&count); scanErr != nil {
		return 0, fmt.Errorf("count calculations: %w", scanErr)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (CalculationRecord, error) {
	var (
		id          string
		rawTS       any
		sampleID    sql.NullString
		analyst     sql.NullString
		stress      sql.NullString
		initialAPI  sql.NullFloat64
		stressedAPI sql.NullFloat64
		initialDeg  sql.NullFloat64
		stressedDeg sql.NullFloat64
		degMW       sql.NullFloat64
		parentMW    sql.NullFloat64
		rrf         sql.NullFloat64
	)

	if err := row.Scan(
		&id,
		&rawTS,
		&sampleID,
		&analyst,
		&stress,
		&initialAPI,
		&stressedAPI,
		&initialDeg,
		&stressedDeg,
		&degMW,
		&parentMW,
		&rrf,
	); err != nil {
		return CalculationRecord{}, err
	}

	ts, err := parseTimestamp(rawTS)
	if err != nil {
		return CalculationRecord{}, fmt.Errorf("parse timestamp of %s: %w", id, err)
	}

	return CalculationRecord{
		ID:        id,
		Timestamp: ts,
		Measurement: massbalance.Measurement{
			SampleID:          sampleID.String,
			Analyst:           analyst.String,
			Stress:            massbalance.StressCondition(stress.String).Normalize(),
			InitialAPI:        initialAPI.Float64,
			StressedAPI:       stressedAPI.Float64,
			InitialDegradant:  initialDeg.Float64,
			StressedDegradant: stressedDeg.Float64,
			ParentMW:          parentMW.Float64,
			DegradantMW:       degMW.Float64,
			RRF:               rrf.Float64,
		},
	}, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

func parseTimestamp(raw any) (time.Time, error) {
	switch v := raw.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return v.UTC(), nil
	case []byte:
		return parseTimestamp(string(v))
	case string:
		for _, layout := range timestampLayouts {
			if ts, err := time.Parse(layout, v); err == nil {
				return ts.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", raw)
	}
}

var _ CalculationSource = (*Store)(nil)
var _ AdvisoryLocker = (*Store)(nil)
