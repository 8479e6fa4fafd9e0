package reporting

import "time"

// Report summarizes a set of persisted backtest runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SignalCount int
	RunCount    int

	// Data Summary
	DataSummary DataSummary

	// One row per run (sorted by signal_id, created_at, run_id)
	Runs []RunRow

	// Per-signal rollup (sorted by signal_id)
	SignalSummary []SignalSummaryRow

	// Entry-threshold sensitivity per signal (sorted by signal_id, entry)
	ThresholdSensitivity []ThresholdSensitivityRow
}

// DataSummary describes the run population.
type DataSummary struct {
	TotalRuns      int
	TotalTrades    int
	DateRangeStart time.Time // earliest backtest start across runs
	DateRangeEnd   time.Time // latest backtest end across runs
}

// RunRow represents one run in the run table.
type RunRow struct {
	RunID          string // full 64-char hash; renderers may truncate
	SignalID       string
	EntryThreshold float64
	ExitThreshold  float64
	CostBps        float64
	MaxHoldingDays *int // nil = unbounded
	Steps          int
	TradeCount     int
	TotalPnL       float64
	SharpeRatio    float64
	MaxDrawdown    float64
	HitRate        float64
}

// SignalSummaryRow aggregates all runs of one signal.
type SignalSummaryRow struct {
	SignalID      string
	Runs          int
	BestSharpe    float64 // NaN when no run has a defined Sharpe
	BestRunID     string  // run achieving BestSharpe, empty when none
	MeanTotalPnL  float64
	WorstDrawdown float64
}

// ThresholdSensitivityRow aggregates runs of one signal sharing an entry
// threshold, exposing how the signal's economics move with the trigger.
type ThresholdSensitivityRow struct {
	SignalID       string
	EntryThreshold float64
	Runs           int
	MeanSharpe     float64 // over runs with a defined Sharpe; NaN when none
	MeanTotalPnL   float64
	MeanTradeCount float64
}
