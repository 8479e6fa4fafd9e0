package engine

import (
	"cdx-overlay-lab/internal/domain"
)

// costPerBpPerMillion converts a basis-point transaction cost on a $1MM
// notional into dollars: 1bp x $1MM = $100.
const costPerBpPerMillion = 100.0

// accumulatePnL computes per-step P&L from the completed position walk.
//
// The spread move over [t-1, t] is attributed to the position held entering
// step t, i.e. the position decided at t-1. This captures the exit-day move:
// the day a position closes, the P&L from holding it through that day still
// belongs to the trade. The first step has no prior level to diff against,
// so its spread P&L is zero regardless of position.
//
// Sign convention: long credit risk (+1, protection sold) profits when the
// spread tightens, so
//
//	spread_pnl = -position_before x delta x dv01 x size
//
// Transaction costs are charged once per position change (entry or exit),
// flat per transition, never scaled by holding period.
func accumulatePnL(positions []domain.PositionRecord, cfg domain.BacktestConfig) []domain.PnLRecord {
	records := make([]domain.PnLRecord, 0, len(positions))

	prev := domain.PositionFlat
	cumulative := 0.0

	for i, p := range positions {
		var delta float64
		if i > 0 {
			delta = p.Spread - positions[i-1].Spread
		}

		var spreadPnL float64
		if prev != domain.PositionFlat {
			spreadPnL = -float64(prev) * delta * cfg.DV01PerMillion * cfg.PositionSize
		}

		var cost float64
		if p.Position != prev {
			cost = cfg.TransactionCostBps * cfg.PositionSize * costPerBpPerMillion
		}

		net := spreadPnL - cost
		cumulative += net

		records = append(records, domain.PnLRecord{
			Date:            p.Date,
			SpreadPnL:       spreadPnL,
			TransactionCost: cost,
			NetPnL:          net,
			CumulativePnL:   cumulative,
		})

		prev = p.Position
	}

	return records
}
