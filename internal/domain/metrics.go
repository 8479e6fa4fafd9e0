package domain

import (
	"encoding/json"
	"math"
)

// PerformanceMetrics holds summary statistics for one backtest run.
//
// Ratios use 252 trading days per year and a zero risk-free rate, and are
// computed on daily net P&L in dollars, not on percentage returns: this is
// an overlay strategy marked against a notional, not an equity curve.
//
// Undefined statistics are NaN, never an error: Sharpe with zero variance,
// Calmar with zero drawdown, hit rate with zero completed trades, win/loss
// ratio with no losing trades. Callers distinguish "no trades" from "failed
// computation" by the NaN sentinels plus TradeCount.
type PerformanceMetrics struct {
	SharpeRatio          float64
	SortinoRatio         float64
	MaxDrawdown          float64 // peak-to-trough decline, >= 0
	CalmarRatio          float64
	TotalReturn          float64 // final cumulative P&L
	AnnualizedReturn     float64
	AnnualizedVolatility float64

	// Completed-trade statistics. An open trade at series end is excluded
	// and surfaced via OpenTradeAtEnd.
	HitRate        float64
	AvgWin         float64
	AvgLoss        float64 // negative by construction
	WinLossRatio   float64
	TradeCount     int
	AvgHoldingDays float64

	OpenTradeAtEnd bool
	OpenTradePnL   float64 // 0 when no open trade
}

// MarshalJSON renders NaN sentinels as null; encoding/json rejects NaN.
func (m PerformanceMetrics) MarshalJSON() ([]byte, error) {
	opt := func(v float64) *float64 {
		if math.IsNaN(v) {
			return nil
		}
		return &v
	}
	return json.Marshal(struct {
		SharpeRatio          *float64 `json:"sharpe_ratio"`
		SortinoRatio         *float64 `json:"sortino_ratio"`
		MaxDrawdown          *float64 `json:"max_drawdown"`
		CalmarRatio          *float64 `json:"calmar_ratio"`
		TotalReturn          *float64 `json:"total_return"`
		AnnualizedReturn     *float64 `json:"annualized_return"`
		AnnualizedVolatility *float64 `json:"annualized_volatility"`
		HitRate              *float64 `json:"hit_rate"`
		AvgWin               *float64 `json:"avg_win"`
		AvgLoss              *float64 `json:"avg_loss"`
		WinLossRatio         *float64 `json:"win_loss_ratio"`
		TradeCount           int      `json:"trade_count"`
		AvgHoldingDays       *float64 `json:"avg_holding_days"`
		OpenTradeAtEnd       bool     `json:"open_trade_at_end"`
		OpenTradePnL         float64  `json:"open_trade_pnl"`
	}{
		SharpeRatio:          opt(m.SharpeRatio),
		SortinoRatio:         opt(m.SortinoRatio),
		MaxDrawdown:          opt(m.MaxDrawdown),
		CalmarRatio:          opt(m.CalmarRatio),
		TotalReturn:          opt(m.TotalReturn),
		AnnualizedReturn:     opt(m.AnnualizedReturn),
		AnnualizedVolatility: opt(m.AnnualizedVolatility),
		HitRate:              opt(m.HitRate),
		AvgWin:               opt(m.AvgWin),
		AvgLoss:              opt(m.AvgLoss),
		WinLossRatio:         opt(m.WinLossRatio),
		TradeCount:           m.TradeCount,
		AvgHoldingDays:       opt(m.AvgHoldingDays),
		OpenTradeAtEnd:       m.OpenTradeAtEnd,
		OpenTradePnL:         m.OpenTradePnL,
	})
}
