package domain

import "time"

// Position is the discrete overlay position at a step.
type Position int

// Position constants. Long credit risk means protection sold: the position
// profits when the index spread tightens.
const (
	PositionShort Position = -1
	PositionFlat  Position = 0
	PositionLong  Position = 1
)

// PositionRecord is the per-step position state after that step's update.
type PositionRecord struct {
	Date     time.Time
	Signal   float64 // input signal value, NaN when missing
	Position Position
	DaysHeld int     // consecutive steps in the current non-flat position
	Spread   float64 // reference spread level, carried for P&L
}

// PnLRecord is the per-step P&L breakdown aligned to PositionRecord.
type PnLRecord struct {
	Date            time.Time
	SpreadPnL       float64 // mark-to-market P&L from the spread move
	TransactionCost float64 // nonzero only on position changes
	NetPnL          float64 // SpreadPnL - TransactionCost
	CumulativePnL   float64 // running sum of NetPnL
}
