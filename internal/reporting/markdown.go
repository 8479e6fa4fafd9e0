package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Signals: %d | Runs: %d\n\n", r.SignalCount, r.RunCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.DataSummary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Date Range Start | %s |\n", formatDate(r.DataSummary.DateRangeStart)))
	sb.WriteString(fmt.Sprintf("| Date Range End | %s |\n", formatDate(r.DataSummary.DateRangeEnd)))
	sb.WriteString("\n")

	// Signal Summary
	sb.WriteString("## Signal Summary\n\n")
	if len(r.SignalSummary) > 0 {
		sb.WriteString("| Signal | Runs | Best Sharpe | Best Run | Mean PnL | Worst MaxDD |\n")
		sb.WriteString("|--------|------|-------------|----------|----------|-------------|\n")
		for _, s := range r.SignalSummary {
			sb.WriteString(fmt.Sprintf("| %s | %d | %.4f | %s | %.2f | %.2f |\n",
				s.SignalID, s.Runs, s.BestSharpe, shortRunID(s.BestRunID),
				s.MeanTotalPnL, s.WorstDrawdown))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	// Threshold Sensitivity
	sb.WriteString("## Entry Threshold Sensitivity\n\n")
	if len(r.ThresholdSensitivity) > 0 {
		sb.WriteString("| Signal | Entry | Runs | Mean Sharpe | Mean PnL | Mean Trades |\n")
		sb.WriteString("|--------|-------|------|-------------|----------|-------------|\n")
		for _, s := range r.ThresholdSensitivity {
			sb.WriteString(fmt.Sprintf("| %s | %.2f | %d | %.4f | %.2f | %.1f |\n",
				s.SignalID, s.EntryThreshold, s.Runs,
				s.MeanSharpe, s.MeanTotalPnL, s.MeanTradeCount))
		}
	} else {
		sb.WriteString("No sensitivity data available.\n")
	}
	sb.WriteString("\n")

	// Runs
	sb.WriteString("## Runs\n\n")
	if len(r.Runs) > 0 {
		sb.WriteString("| Run | Signal | Entry | Exit | Cost bps | Max Hold | Steps | Trades | Total PnL | Sharpe | MaxDD | Hit Rate |\n")
		sb.WriteString("|-----|--------|-------|------|----------|----------|-------|--------|-----------|--------|-------|----------|\n")
		for _, run := range r.Runs {
			sb.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %s | %d | %d | %.2f | %.4f | %.2f | %.4f |\n",
				shortRunID(run.RunID), run.SignalID,
				run.EntryThreshold, run.ExitThreshold, run.CostBps,
				formatMaxHold(run.MaxHoldingDays),
				run.Steps, run.TradeCount, run.TotalPnL,
				run.SharpeRatio, run.MaxDrawdown, run.HitRate))
		}
	} else {
		sb.WriteString("No runs available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}

// shortRunID truncates a 64-char run hash to a readable prefix.
func shortRunID(runID string) string {
	if len(runID) > 12 {
		return runID[:12]
	}
	return runID
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}

func formatMaxHold(days *int) string {
	if days == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *days)
}
