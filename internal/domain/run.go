package domain

import "time"

// RunRecord captures one backtest run for persistence and reproducibility.
// Corresponds to the backtest_runs table.
type RunRecord struct {
	RunID     string // deterministic hash of config + input fingerprint
	SignalID  string // identifier of the signal that drove the run
	CreatedAt time.Time

	// Config echo
	EntryThreshold     float64
	ExitThreshold      float64
	PositionSize       float64
	TransactionCostBps float64
	MaxHoldingDays     *int
	DV01PerMillion     float64

	// Input summary
	StartDate      time.Time
	EndDate        time.Time
	Steps          int
	MissingSignals int // NaN signal steps observed during the walk

	// Outcome summary
	TradeCount int
	TotalPnL   float64

	// Derived statistics, NaN where undefined
	Metrics PerformanceMetrics
}
