package domain

import (
	"errors"
	"fmt"
)

// Config validation errors.
var (
	ErrThresholdOrder   = errors.New("entry_threshold must be greater than exit_threshold")
	ErrNegativeExit     = errors.New("exit_threshold must be non-negative")
	ErrNonPositiveSize  = errors.New("position_size must be positive")
	ErrNegativeCost     = errors.New("transaction_cost_bps must be non-negative")
	ErrNonPositiveHold  = errors.New("max_holding_days must be positive when set")
	ErrNonPositiveDV01  = errors.New("dv01_per_million must be positive")
	ErrNonPositiveEntry = errors.New("entry_threshold must be positive")
)

// BacktestConfig holds backtest parameters and trading constraints.
// Construct once, validate eagerly, never mutate. The engine refuses to run
// with a config that has not passed Validate.
//
// entry_threshold > exit_threshold creates hysteresis so a noisy signal
// crossing a single level does not oscillate in and out of positions.
type BacktestConfig struct {
	// EntryThreshold is the composite signal level above which (in absolute
	// value) a position is entered.
	EntryThreshold float64

	// ExitThreshold is the absolute signal level below which an open
	// position is closed. Must be strictly less than EntryThreshold.
	ExitThreshold float64

	// PositionSize is the notional size in millions (10.0 = $10MM).
	PositionSize float64

	// TransactionCostBps is the cost in basis points charged once per
	// position change (entry or exit).
	TransactionCostBps float64

	// MaxHoldingDays forces an exit after this many days in a position.
	// nil means no time limit.
	MaxHoldingDays *int

	// DV01PerMillion is the P&L sensitivity per $1MM notional per basis
	// point of spread move. Typical CDX IG 5Y: ~4500-5000.
	DV01PerMillion float64
}

// DefaultBacktestConfig returns the pilot parameter set.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		EntryThreshold:     1.5,
		ExitThreshold:      0.75,
		PositionSize:       10.0,
		TransactionCostBps: 1.0,
		MaxHoldingDays:     nil,
		DV01PerMillion:     4750.0,
	}
}

// Validate checks parameter constraints. Returns the first violation found.
func (c BacktestConfig) Validate() error {
	if c.EntryThreshold <= 0 {
		return fmt.Errorf("%w: got %v", ErrNonPositiveEntry, c.EntryThreshold)
	}
	if c.ExitThreshold < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeExit, c.ExitThreshold)
	}
	if c.EntryThreshold <= c.ExitThreshold {
		return fmt.Errorf("%w: entry=%v exit=%v", ErrThresholdOrder, c.EntryThreshold, c.ExitThreshold)
	}
	if c.PositionSize <= 0 {
		return fmt.Errorf("%w: got %v", ErrNonPositiveSize, c.PositionSize)
	}
	if c.TransactionCostBps < 0 {
		return fmt.Errorf("%w: got %v", ErrNegativeCost, c.TransactionCostBps)
	}
	if c.MaxHoldingDays != nil && *c.MaxHoldingDays <= 0 {
		return fmt.Errorf("%w: got %d", ErrNonPositiveHold, *c.MaxHoldingDays)
	}
	if c.DV01PerMillion <= 0 {
		return fmt.Errorf("%w: got %v", ErrNonPositiveDV01, c.DV01PerMillion)
	}
	return nil
}
