// Package signals computes the tactical overlay's z-score signals from
// raw market series and combines them into a composite positioning score.
//
// All signals follow the same sign convention: positive values favor long
// credit risk (sell protection), negative values favor short credit risk.
// Outputs are aligned to the CDX date index; steps without enough trailing
// observations carry NaN, which the downstream engine treats as "no new
// information".
package signals

import (
	"fmt"

	"cdx-overlay-lab/internal/domain"
)

// ComputeCDXETFBasis measures flow-driven mispricing between CDX spreads
// and ETF-implied spreads as a rolling z-score of the raw basis. Positive
// values mean CDX is cheap relative to the ETF.
//
// The ETF series is forward-filled onto the CDX date index, so the two
// inputs need not share calendars. ETF closes are assumed to be in
// spread-equivalent units already.
func ComputeCDXETFBasis(cdx, etf []domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cdx-etf basis: %w", err)
	}

	etfValues := reindexFFill(cdx, etf)
	raw := make([]float64, len(cdx))
	for i := range cdx {
		raw[i] = cdx[i].Value - etfValues[i]
	}

	mean := rollingMean(raw, cfg.Lookback, cfg.MinPeriods)
	std := rollingStddev(raw, cfg.Lookback, cfg.MinPeriods)

	out := make([]domain.SeriesPoint, len(cdx))
	for i := range cdx {
		out[i] = domain.SeriesPoint{
			Date:  cdx[i].Date,
			Value: (raw[i] - mean[i]) / std[i],
		}
	}
	return out, nil
}

// ComputeCDXVIXGap measures cross-asset risk sentiment divergence: each
// series' deviation from its own rolling mean, differenced and normalized
// by the gap's rolling deviation. Positive values mean credit stress is
// outpacing equity stress.
func ComputeCDXVIXGap(cdx, vix []domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("cdx-vix gap: %w", err)
	}

	cdxValues := make([]float64, len(cdx))
	for i := range cdx {
		cdxValues[i] = cdx[i].Value
	}
	vixValues := reindexFFill(cdx, vix)

	cdxMean := rollingMean(cdxValues, cfg.Lookback, cfg.MinPeriods)
	vixMean := rollingMean(vixValues, cfg.Lookback, cfg.MinPeriods)

	gap := make([]float64, len(cdx))
	for i := range gap {
		gap[i] = (cdxValues[i] - cdxMean[i]) - (vixValues[i] - vixMean[i])
	}
	std := rollingStddev(gap, cfg.Lookback, cfg.MinPeriods)

	out := make([]domain.SeriesPoint, len(cdx))
	for i := range cdx {
		out[i] = domain.SeriesPoint{Date: cdx[i].Date, Value: gap[i] / std[i]}
	}
	return out, nil
}

// ComputeSpreadMomentum measures volatility-adjusted spread momentum over
// the lookback horizon. The change is negated so that tightening spreads
// produce a positive (long credit) signal.
func ComputeSpreadMomentum(cdx []domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("spread momentum: %w", err)
	}

	values := make([]float64, len(cdx))
	for i := range cdx {
		values[i] = cdx[i].Value
	}

	change := lagDiff(values, cfg.Lookback)
	std := rollingStddev(values, cfg.Lookback, cfg.MinPeriods)

	out := make([]domain.SeriesPoint, len(cdx))
	for i := range cdx {
		out[i] = domain.SeriesPoint{Date: cdx[i].Date, Value: -change[i] / std[i]}
	}
	return out, nil
}
