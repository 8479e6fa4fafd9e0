package signals

import (
	"errors"
	"fmt"

	"cdx-overlay-lab/internal/domain"
)

// ErrSeriesMismatch reports component signal series that do not share an
// index and therefore cannot be combined.
var ErrSeriesMismatch = errors.New("signal series are not aligned")

// Aggregate combines the three component signals into a weighted composite
// positioning score on their shared index. The composite is not
// re-normalized, so its scale stays in z-score units; a NaN in any
// component makes that step's composite NaN.
func Aggregate(basis, vixGap, momentum []domain.SeriesPoint, cfg domain.AggregatorConfig) ([]domain.SeriesPoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("aggregate signals: %w", err)
	}
	if len(basis) != len(vixGap) || len(basis) != len(momentum) {
		return nil, fmt.Errorf("aggregate signals: lengths %d/%d/%d: %w",
			len(basis), len(vixGap), len(momentum), ErrSeriesMismatch)
	}

	out := make([]domain.SeriesPoint, len(basis))
	for i := range basis {
		if !basis[i].Date.Equal(vixGap[i].Date) || !basis[i].Date.Equal(momentum[i].Date) {
			return nil, fmt.Errorf("aggregate signals: index differs at step %d: %w", i, ErrSeriesMismatch)
		}
		out[i] = domain.SeriesPoint{
			Date: basis[i].Date,
			Value: basis[i].Value*cfg.BasisWeight +
				vixGap[i].Value*cfg.VIXGapWeight +
				momentum[i].Value*cfg.MomentumWeight,
		}
	}
	return out, nil
}
