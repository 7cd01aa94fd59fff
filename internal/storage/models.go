package storage

import (
	"time"

	"mass-balance-reports/internal/massbalance"
)

// CalculationRecord is one row of the calculations table.
type CalculationRecord struct {
	ID          string
	Timestamp   time.Time
	Measurement massbalance.Measurement
}

// HistoryFilter narrows history listings.
type HistoryFilter struct {
	Analyst string
	Stress  massbalance.StressCondition
}
