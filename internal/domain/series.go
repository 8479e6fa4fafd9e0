package domain

import (
	"math"
	"time"
)

// SeriesPoint is one observation in a daily time series.
// Value may be NaN to represent a missing observation.
type SeriesPoint struct {
	Date  time.Time
	Value float64
}

// NaN returns the canonical missing-value sentinel.
func NaN() float64 {
	return math.NaN()
}

// IsMissing reports whether v represents a missing observation.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}
