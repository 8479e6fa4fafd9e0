package domain

import "time"

// Trade is a round trip derived from the position series: a maximal
// contiguous run of non-flat position with constant sign, bounded by
// transitions to and from flat. Not stored by the engine; reconstructed
// by the metrics calculator.
type Trade struct {
	Direction Position // PositionLong or PositionShort
	EntryDate time.Time
	ExitDate  time.Time // date of the step the position returned to flat

	// NetPnL sums net P&L from the entry step through the exit step
	// inclusive, so the exit-day move and exit cost belong to the trade.
	NetPnL float64

	// HoldingDays is the run length of the non-flat position.
	HoldingDays int

	// Open marks a trade still held at the end of the series. Open trades
	// are excluded from completed-trade statistics.
	Open bool
}
