package domain

import (
	"errors"
	"fmt"
)

// Signal configuration errors.
var (
	ErrNonPositiveLookback = errors.New("lookback must be positive")
	ErrBadMinPeriods       = errors.New("min_periods must be in [1, lookback]")
	ErrWeightsSum          = errors.New("aggregator weights must sum to 1.0")
	ErrNonPositiveWeight   = errors.New("aggregator weights must be non-negative")
)

// Signal name constants for the closed registry.
const (
	SignalCDXETFBasis    = "cdx_etf_basis"
	SignalCDXVIXGap      = "cdx_vix_gap"
	SignalSpreadMomentum = "spread_momentum"
)

// Dataset keys signals may require.
const (
	DatasetCDX = "cdx"
	DatasetETF = "etf"
	DatasetVIX = "vix"
)

// SignalConfig parameterizes individual signal computation.
type SignalConfig struct {
	Lookback   int // rolling window size for normalization
	MinPeriods int // minimum valid observations inside the window
}

// DefaultSignalConfig returns the pilot window settings.
func DefaultSignalConfig() SignalConfig {
	return SignalConfig{Lookback: 20, MinPeriods: 10}
}

// Validate checks window constraints.
func (c SignalConfig) Validate() error {
	if c.Lookback <= 0 {
		return fmt.Errorf("%w: got %d", ErrNonPositiveLookback, c.Lookback)
	}
	if c.MinPeriods <= 0 || c.MinPeriods > c.Lookback {
		return fmt.Errorf("%w: min_periods=%d lookback=%d", ErrBadMinPeriods, c.MinPeriods, c.Lookback)
	}
	return nil
}

// AggregatorConfig weights the pilot signals into a composite score.
// All inputs are z-score normalized, so weights are directly comparable.
type AggregatorConfig struct {
	BasisWeight    float64
	VIXGapWeight   float64
	MomentumWeight float64
}

// DefaultAggregatorConfig returns the pilot weighting.
func DefaultAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{BasisWeight: 0.35, VIXGapWeight: 0.35, MomentumWeight: 0.30}
}

// Validate requires non-negative weights summing to 1.0 within tolerance.
func (c AggregatorConfig) Validate() error {
	for _, w := range []float64{c.BasisWeight, c.VIXGapWeight, c.MomentumWeight} {
		if w < 0 {
			return fmt.Errorf("%w: got %v", ErrNonPositiveWeight, w)
		}
	}
	total := c.BasisWeight + c.VIXGapWeight + c.MomentumWeight
	if total < 0.99 || total > 1.01 {
		return fmt.Errorf("%w: got %.3f", ErrWeightsSum, total)
	}
	return nil
}
