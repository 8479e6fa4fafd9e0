// Package engine converts a continuous signal series into discrete positions
// and simulates daily mark-to-market P&L.
//
// The whole computation is one forward pass per component over in-memory
// series: position state machine, then P&L accumulation. Both are pure and
// deterministic; running twice on identical inputs yields identical output.
// The engine holds no state between runs, so callers are free to map it over
// many configs in parallel.
package engine

import (
	"fmt"

	"cdx-overlay-lab/internal/domain"
)

// Summary captures run-level facts for logging and persistence.
type Summary struct {
	StartDate      string // ISO date of the first step, empty when no steps
	EndDate        string
	Steps          int
	MissingSignals int
	TradeCount     int // flat -> non-flat entries
	TotalPnL       float64
}

// Result holds the complete backtest output. Immutable once returned.
type Result struct {
	Positions []domain.PositionRecord
	PnL       []domain.PnLRecord
	Summary   Summary
}

// Run executes a backtest over a signal series and a spread series sharing
// an identical, strictly increasing time index. Alignment is the caller's
// responsibility; mismatched inputs fail before the walk begins.
//
// Empty input produces an empty result, not an error. Missing (NaN) signal
// values are tolerated per the hold-position policy and counted in the
// summary; missing spread values are a precondition violation.
func Run(signal, spread []domain.SeriesPoint, cfg domain.BacktestConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backtest config: %w", err)
	}
	if err := validateAlignment(signal, spread); err != nil {
		return nil, err
	}

	positions, missing := walkPositions(signal, spread, cfg)
	pnl := accumulatePnL(positions, cfg)

	summary := Summary{
		Steps:          len(positions),
		MissingSignals: missing,
		TradeCount:     countEntries(positions),
	}
	if len(positions) > 0 {
		summary.StartDate = positions[0].Date.Format("2006-01-02")
		summary.EndDate = positions[len(positions)-1].Date.Format("2006-01-02")
		summary.TotalPnL = pnl[len(pnl)-1].CumulativePnL
	}

	return &Result{
		Positions: positions,
		PnL:       pnl,
		Summary:   summary,
	}, nil
}

// validateAlignment enforces the shared-index precondition: equal length,
// pairwise-identical timestamps, strictly increasing, no missing spreads.
func validateAlignment(signal, spread []domain.SeriesPoint) error {
	if len(signal) != len(spread) {
		return fmt.Errorf("%w: signal=%d spread=%d", ErrLengthMismatch, len(signal), len(spread))
	}
	for i := range signal {
		if !signal[i].Date.Equal(spread[i].Date) {
			return fmt.Errorf("%w: step %d signal=%s spread=%s",
				ErrIndexMismatch, i,
				signal[i].Date.Format("2006-01-02"),
				spread[i].Date.Format("2006-01-02"))
		}
		if i > 0 && !signal[i].Date.After(signal[i-1].Date) {
			return fmt.Errorf("%w: step %d (%s) does not advance past step %d (%s)",
				ErrNonMonotonicIndex, i,
				signal[i].Date.Format("2006-01-02"), i-1,
				signal[i-1].Date.Format("2006-01-02"))
		}
		if domain.IsMissing(spread[i].Value) {
			return fmt.Errorf("%w: step %d (%s)", ErrMissingReference, i,
				spread[i].Date.Format("2006-01-02"))
		}
	}
	return nil
}

// countEntries counts flat -> non-flat transitions in the position series.
func countEntries(positions []domain.PositionRecord) int {
	n := 0
	prev := domain.PositionFlat
	for _, p := range positions {
		if prev == domain.PositionFlat && p.Position != domain.PositionFlat {
			n++
		}
		prev = p.Position
	}
	return n
}
