package marketdata

import (
	"cdx-overlay-lab/internal/domain"
)

// Align inner-joins a signal series and a reference (spread) series on
// their date index, producing the equal-length, identically indexed pair
// the backtest engine requires. Dates present in only one series are
// dropped, as are dates where the reference value is missing; a missing
// signal value survives the join because the engine has an explicit
// hold-position policy for it.
//
// Both inputs must be sorted by date ascending.
func Align(signal, spread []domain.SeriesPoint) (alignedSignal, alignedSpread []domain.SeriesPoint) {
	i, j := 0, 0
	for i < len(signal) && j < len(spread) {
		switch {
		case signal[i].Date.Before(spread[j].Date):
			i++
		case spread[j].Date.Before(signal[i].Date):
			j++
		default:
			if !domain.IsMissing(spread[j].Value) {
				alignedSignal = append(alignedSignal, signal[i])
				alignedSpread = append(alignedSpread, spread[j])
			}
			i++
			j++
		}
	}
	return alignedSignal, alignedSpread
}
