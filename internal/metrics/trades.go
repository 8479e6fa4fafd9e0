package metrics

import (
	"cdx-overlay-lab/internal/domain"
)

// ExtractTrades reconstructs round-trip trades from the per-step position
// and P&L histories. A trade is a maximal run of non-flat position with
// constant sign, bounded by transitions to and from flat.
//
// The step on which the position returns to flat is counted into the
// closing trade: its spread P&L belongs to the position held entering the
// step and its transaction cost is the exit cost. This keeps the sum of
// trade P&Ls equal to the total P&L of the run.
//
// A position still held at the last step yields a trade with Open set;
// callers decide whether to include it in aggregate statistics.
func ExtractTrades(positions []domain.PositionRecord, pnl []domain.PnLRecord) []domain.Trade {
	var trades []domain.Trade
	var current *domain.Trade

	for i := range positions {
		pos := positions[i].Position

		if current == nil {
			if pos == domain.PositionFlat {
				continue
			}
			current = &domain.Trade{
				Direction:   pos,
				EntryDate:   positions[i].Date,
				NetPnL:      pnl[i].NetPnL,
				HoldingDays: positions[i].DaysHeld,
			}
			continue
		}

		current.NetPnL += pnl[i].NetPnL

		switch {
		case pos == domain.PositionFlat:
			current.ExitDate = positions[i].Date
			trades = append(trades, *current)
			current = nil
		case pos != current.Direction:
			// Direct reversal: the step's P&L and cost close the old
			// trade, the new one starts clean.
			current.ExitDate = positions[i].Date
			trades = append(trades, *current)
			current = &domain.Trade{
				Direction:   pos,
				EntryDate:   positions[i].Date,
				HoldingDays: positions[i].DaysHeld,
			}
		default:
			current.HoldingDays = positions[i].DaysHeld
		}
	}

	if current != nil {
		current.ExitDate = positions[len(positions)-1].Date
		current.Open = true
		trades = append(trades, *current)
	}
	return trades
}
