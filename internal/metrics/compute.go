// Package metrics derives risk-adjusted performance statistics from
// finished backtest position and P&L histories.
//
// All ratios operate on daily net P&L in currency units, not percentage
// returns, with a 252-day year and zero risk-free rate. Ratios that are
// undefined for the given history (zero variance, no trades, no drawdown)
// are reported as NaN so callers can tell "degenerate input" apart from
// "a computation failed".
package metrics

import (
	"math"

	"cdx-overlay-lab/internal/domain"
)

const tradingDaysPerYear = 252.0

// ComputePerformance calculates the full statistics set for one backtest
// run. positions and pnl must be the aligned per-step outputs of the
// engine; an empty history yields NaN ratios and zero counts.
func ComputePerformance(positions []domain.PositionRecord, pnl []domain.PnLRecord) domain.PerformanceMetrics {
	nan := math.NaN()
	m := domain.PerformanceMetrics{
		SharpeRatio:          nan,
		SortinoRatio:         nan,
		MaxDrawdown:          0,
		CalmarRatio:          nan,
		AnnualizedReturn:     nan,
		AnnualizedVolatility: nan,
		HitRate:              nan,
		AvgWin:               nan,
		AvgLoss:              nan,
		WinLossRatio:         nan,
		AvgHoldingDays:       nan,
	}
	if len(pnl) == 0 {
		return m
	}

	daily := make([]float64, len(pnl))
	for i, r := range pnl {
		daily[i] = r.NetPnL
	}

	mean := computeMean(daily)
	std := computeSampleStddev(daily, mean)

	m.TotalReturn = pnl[len(pnl)-1].CumulativePnL
	m.AnnualizedReturn = mean * tradingDaysPerYear
	if !math.IsNaN(std) {
		m.AnnualizedVolatility = std * math.Sqrt(tradingDaysPerYear)
	}
	if !math.IsNaN(std) && std > 0 {
		m.SharpeRatio = mean / std * math.Sqrt(tradingDaysPerYear)
	}
	m.SortinoRatio = computeSortino(daily, mean)

	m.MaxDrawdown = computeMaxDrawdown(pnl)
	if m.MaxDrawdown > 0 {
		m.CalmarRatio = m.AnnualizedReturn / m.MaxDrawdown
	}

	fillTradeStats(&m, ExtractTrades(positions, pnl))
	return m
}

// fillTradeStats derives trade-level statistics over completed trades.
// An open trade at the end of the history is excluded from counts and
// ratios and surfaced separately via OpenTradeAtEnd / OpenTradePnL.
func fillTradeStats(m *domain.PerformanceMetrics, trades []domain.Trade) {
	var winSum, lossSum, holdingSum float64
	var wins, losses, completed int
	for _, t := range trades {
		if t.Open {
			m.OpenTradeAtEnd = true
			m.OpenTradePnL = t.NetPnL
			continue
		}
		completed++
		holdingSum += float64(t.HoldingDays)
		switch {
		case t.NetPnL > 0:
			wins++
			winSum += t.NetPnL
		case t.NetPnL < 0:
			losses++
			lossSum += t.NetPnL
		}
	}

	m.TradeCount = completed
	if completed == 0 {
		return
	}
	m.HitRate = float64(wins) / float64(completed)
	m.AvgHoldingDays = holdingSum / float64(completed)
	if wins > 0 {
		m.AvgWin = winSum / float64(wins)
	}
	if losses > 0 {
		m.AvgLoss = lossSum / float64(losses)
	}
	if wins > 0 && losses > 0 {
		m.WinLossRatio = math.Abs(m.AvgWin / m.AvgLoss)
	}
}

// computeSortino annualizes mean daily P&L over the sample standard
// deviation of the negative days only. NaN when fewer than two negative
// days exist or the downside has no variance.
func computeSortino(daily []float64, mean float64) float64 {
	var downside []float64
	for _, v := range daily {
		if v < 0 {
			downside = append(downside, v)
		}
	}
	downsideStd := computeSampleStddev(downside, computeMean(downside))
	if math.IsNaN(downsideStd) || downsideStd == 0 {
		return math.NaN()
	}
	return mean / downsideStd * math.Sqrt(tradingDaysPerYear)
}

// computeMaxDrawdown is the largest peak-to-trough decline of the
// cumulative P&L curve, reported as a non-negative magnitude.
func computeMaxDrawdown(pnl []domain.PnLRecord) float64 {
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, r := range pnl {
		if r.CumulativePnL > peak {
			peak = r.CumulativePnL
		}
		if dd := peak - r.CumulativePnL; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}

func computeMean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// computeSampleStddev uses the n-1 denominator. NaN for fewer than two
// samples.
func computeSampleStddev(values []float64, mean float64) float64 {
	n := len(values)
	if n < 2 {
		return math.NaN()
	}
	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}
