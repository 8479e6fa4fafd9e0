// Package marketdata loads, validates, aligns, and synthesizes the raw
// market series consumed by the signal and backtest layers.
package marketdata

import (
	"errors"
	"fmt"

	"cdx-overlay-lab/internal/domain"
)

var (
	ErrEmptySeries   = errors.New("series is empty")
	ErrUnsortedDates = errors.New("series dates not strictly ascending")
	ErrDuplicateDate = errors.New("duplicate date in series")
	ErrMissingValue  = errors.New("missing value in market series")
	ErrOutOfBounds   = errors.New("value outside valid range")
)

// Bounds is the sanity range for one instrument type.
type Bounds struct {
	Min float64
	Max float64
}

// Sanity ranges per instrument. Spreads and ETF prices cap at extreme
// but representable levels; VIX caps at extreme-stress territory.
var (
	SpreadBounds = Bounds{Min: 0, Max: 10000}
	VIXBounds    = Bounds{Min: 0, Max: 200}
	PriceBounds  = Bounds{Min: 0, Max: 10000}
)

// ValidateSeries checks a raw market series for structural and
// business-rule violations: emptiness, out-of-order or duplicate dates,
// missing observations, and values outside the instrument's sanity range.
// Raw market series carry gaps as absent dates, never as NaN rows.
func ValidateSeries(points []domain.SeriesPoint, bounds Bounds) error {
	if len(points) == 0 {
		return ErrEmptySeries
	}
	for i, p := range points {
		if i > 0 {
			switch {
			case p.Date.Equal(points[i-1].Date):
				return fmt.Errorf("date %s at row %d: %w", p.Date.Format("2006-01-02"), i, ErrDuplicateDate)
			case p.Date.Before(points[i-1].Date):
				return fmt.Errorf("date %s at row %d: %w", p.Date.Format("2006-01-02"), i, ErrUnsortedDates)
			}
		}
		if domain.IsMissing(p.Value) {
			return fmt.Errorf("row %d (%s): %w", i, p.Date.Format("2006-01-02"), ErrMissingValue)
		}
		if p.Value < bounds.Min || p.Value > bounds.Max {
			return fmt.Errorf("row %d: %v outside [%v, %v]: %w", i, p.Value, bounds.Min, bounds.Max, ErrOutOfBounds)
		}
	}
	return nil
}
