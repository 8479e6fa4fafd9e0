package marketdata

import (
	"math"
	"math/rand"
	"time"

	"cdx-overlay-lab/internal/domain"
)

// SampleConfig parameterizes synthetic market data generation.
type SampleConfig struct {
	StartDate time.Time
	Periods   int
	Seed      int64
}

// DefaultSampleConfig covers one trading year of daily observations.
func DefaultSampleConfig() SampleConfig {
	return SampleConfig{
		StartDate: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Periods:   252,
		Seed:      42,
	}
}

// GenerateCDXSample produces a mean-reverting synthetic CDX spread series
// in basis points, floored at 1bp. Deterministic for a given seed.
func GenerateCDXSample(cfg SampleConfig, baseSpread, volatility float64) []domain.SeriesPoint {
	rng := rand.New(rand.NewSource(cfg.Seed))
	const meanReversionSpeed = 0.1

	out := make([]domain.SeriesPoint, cfg.Periods)
	level := baseSpread
	for i := 0; i < cfg.Periods; i++ {
		if i > 0 {
			drift := meanReversionSpeed * (baseSpread - level)
			level = math.Max(1.0, level+drift+rng.NormFloat64()*volatility)
		}
		out[i] = domain.SeriesPoint{Date: cfg.StartDate.AddDate(0, 0, i), Value: level}
	}
	return out
}

// GenerateVIXSample produces a mean-reverting synthetic VIX series with
// occasional stress spikes, floored at 8.
func GenerateVIXSample(cfg SampleConfig, baseVIX, volatility float64) []domain.SeriesPoint {
	rng := rand.New(rand.NewSource(cfg.Seed))
	const meanReversionSpeed = 0.15

	out := make([]domain.SeriesPoint, cfg.Periods)
	level := baseVIX
	for i := 0; i < cfg.Periods; i++ {
		if i > 0 {
			spike := 0.0
			if rng.Float64() < 0.05 {
				spike = 5 + rng.Float64()*10
			}
			drift := meanReversionSpeed * (baseVIX - level)
			level = math.Max(8.0, level+drift+rng.NormFloat64()*volatility+spike)
		}
		out[i] = domain.SeriesPoint{Date: cfg.StartDate.AddDate(0, 0, i), Value: level}
	}
	return out
}

// GenerateETFSample produces a synthetic credit ETF price series via
// geometric Brownian motion with a small positive drift.
func GenerateETFSample(cfg SampleConfig, basePrice, volatility float64) []domain.SeriesPoint {
	rng := rand.New(rand.NewSource(cfg.Seed))

	out := make([]domain.SeriesPoint, cfg.Periods)
	logPrice := math.Log(basePrice)
	for i := 0; i < cfg.Periods; i++ {
		logPrice += 0.0001 + rng.NormFloat64()*volatility/basePrice
		out[i] = domain.SeriesPoint{Date: cfg.StartDate.AddDate(0, 0, i), Value: math.Exp(logPrice)}
	}
	return out
}

// GenerateMarketData produces the full keyed dataset the signal registry
// consumes, with all three instruments on the same daily calendar.
func GenerateMarketData(cfg SampleConfig) map[string][]domain.SeriesPoint {
	return map[string][]domain.SeriesPoint{
		domain.DatasetCDX: GenerateCDXSample(cfg, 100.0, 5.0),
		domain.DatasetETF: GenerateETFSample(SampleConfig{StartDate: cfg.StartDate, Periods: cfg.Periods, Seed: cfg.Seed + 1}, 80.0, 0.5),
		domain.DatasetVIX: GenerateVIXSample(SampleConfig{StartDate: cfg.StartDate, Periods: cfg.Periods, Seed: cfg.Seed + 2}, 15.0, 2.0),
	}
}
