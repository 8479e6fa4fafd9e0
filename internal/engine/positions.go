package engine

import (
	"math"

	"cdx-overlay-lab/internal/domain"
)

// walkPositions runs the position state machine over the aligned series.
// Single forward pass, no look-ahead: the position recorded at step t
// depends only on signal values at steps <= t.
//
// Rules, applied per step when the signal resolves to a value:
//   - flat: enter long when signal > entry threshold, short when
//     signal < -entry threshold. Ties are not triggers.
//   - held: exit to flat when |signal| < exit threshold, or when the
//     holding-period limit is reached; otherwise increment days held.
//
// A missing (NaN) signal carries no new information: the position is held
// unchanged and days held still advances.
//
// Returns the per-step records (position after each step's update) and the
// count of missing-signal steps observed.
func walkPositions(signal, spread []domain.SeriesPoint, cfg domain.BacktestConfig) ([]domain.PositionRecord, int) {
	records := make([]domain.PositionRecord, 0, len(signal))

	current := domain.PositionFlat
	daysHeld := 0
	missing := 0

	for i := range signal {
		s := signal[i].Value

		switch {
		case domain.IsMissing(s):
			missing++
			if current != domain.PositionFlat {
				daysHeld++
			}

		case current == domain.PositionFlat:
			if s > cfg.EntryThreshold {
				current = domain.PositionLong
				daysHeld = 1
			} else if s < -cfg.EntryThreshold {
				current = domain.PositionShort
				daysHeld = 1
			}

		default:
			exitSignal := math.Abs(s) < cfg.ExitThreshold
			exitTime := cfg.MaxHoldingDays != nil && daysHeld >= *cfg.MaxHoldingDays
			if exitSignal || exitTime {
				current = domain.PositionFlat
				daysHeld = 0
			} else {
				daysHeld++
			}
		}

		records = append(records, domain.PositionRecord{
			Date:     signal[i].Date,
			Signal:   s,
			Position: current,
			DaysHeld: daysHeld,
			Spread:   spread[i].Value,
		})
	}

	return records, missing
}
