package signals

import (
	"math"

	"cdx-overlay-lab/internal/domain"
)

// rollingMean computes the trailing-window mean ending at each step. A
// window covers the last lookback positions including the current one;
// NaN observations are skipped, and the result is NaN until at least
// minPeriods non-NaN observations are in the window.
func rollingMean(values []float64, lookback, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		sum, count := windowSum(values, i, lookback)
		if count < minPeriods {
			out[i] = math.NaN()
			continue
		}
		out[i] = sum / float64(count)
	}
	return out
}

// rollingStddev computes the trailing-window sample standard deviation
// (n-1 denominator) with the same window and minimum-observation rules as
// rollingMean. A window with fewer than two observations has no defined
// sample deviation and yields NaN regardless of minPeriods.
func rollingStddev(values []float64, lookback, minPeriods int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		sum, count := windowSum(values, i, lookback)
		if count < minPeriods || count < 2 {
			out[i] = math.NaN()
			continue
		}
		mean := sum / float64(count)
		sumSq := 0.0
		for j := windowStart(i, lookback); j <= i; j++ {
			if math.IsNaN(values[j]) {
				continue
			}
			d := values[j] - mean
			sumSq += d * d
		}
		out[i] = math.Sqrt(sumSq / float64(count-1))
	}
	return out
}

// lagDiff computes values[i] - values[i-lag], NaN where the lagged
// observation does not exist or either operand is NaN.
func lagDiff(values []float64, lag int) []float64 {
	out := make([]float64, len(values))
	for i := range values {
		if i < lag {
			out[i] = math.NaN()
			continue
		}
		out[i] = values[i] - values[i-lag]
	}
	return out
}

func windowStart(i, lookback int) int {
	if start := i - lookback + 1; start > 0 {
		return start
	}
	return 0
}

func windowSum(values []float64, i, lookback int) (sum float64, count int) {
	for j := windowStart(i, lookback); j <= i; j++ {
		if math.IsNaN(values[j]) {
			continue
		}
		sum += values[j]
		count++
	}
	return sum, count
}

// reindexFFill projects src onto the given date index, carrying the most
// recent src observation forward. Dates before the first src observation
// map to NaN. Both inputs must be sorted by date ascending.
func reindexFFill(index []domain.SeriesPoint, src []domain.SeriesPoint) []float64 {
	out := make([]float64, len(index))
	last := math.NaN()
	j := 0
	for i := range index {
		for j < len(src) && !src[j].Date.After(index[i].Date) {
			if !domain.IsMissing(src[j].Value) {
				last = src[j].Value
			}
			j++
		}
		out[i] = last
	}
	return out
}
