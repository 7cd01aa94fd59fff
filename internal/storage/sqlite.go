package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteStore reads calculations from the SQLite database written by the lab backend.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens an existing database file. It never creates one.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	file := strings.TrimPrefix(path, "sqlite://")
	if _, err := os.Stat(file); err != nil {
		return nil, fmt.Errorf("database not found at %s: %w", file, err)
	}

	db, err := sql.Open("sqlite", file)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

func (s *SQLiteStore) getDB() (*sql.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	return s.db, nil
}

// LatestCalculation returns the most recent calculation.
func (s *SQLiteStore) LatestCalculation(ctx context.Context) (CalculationRecord, error) {
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
func (s *SQLiteStore) GetCalculation(ctx context.Context, id string) (CalculationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return CalculationRecord{}, err
	}

	rec, err := scanCalculation(db.QueryRowContext(ctx, selectByIDSQL(questionPlaceholder), id))
	if errors.Is(err, sql.ErrNoRows) {
		return CalculationRecord{}, ErrNoData
	}
	if err != nil {
		return CalculationRecord{}, fmt.Errorf("get calculation: %w", err)
	}
	return rec, nil
}

// ListRecentCalculations lists calculations by descending timestamp.
func (s *SQLiteStore) ListRecentCalculations(ctx context.Context, limit int, filter HistoryFilter) ([]CalculationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}

	query, args := listRecentSQL(questionPlaceholder, limit, filter)
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list recent calculations: %w", err)
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
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// CountCalculations counts stored calculations.
func (s *SQLiteStore) CountCalculations(ctx context.Context) (int64, error) {
	db, err := s.getDB()
	if err != nil {
		return 0, err
	}
	var count int64
	if err := db.QueryRowContext(ctx, countCalculationsSQL).Scan(&count); err != nil {
		return 0, fmt.Errorf("count calculations: %w", err)
	}
	return count, nil
}

var _ CalculationSource = (*SQLiteStore)(nil)
