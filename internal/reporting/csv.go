package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders run rows as CSV string. NaN metrics render as "NaN",
// which both pandas and clickhouse-local read back as null-like floats.
func RenderCSV(runs []RunRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,signal_id,entry_threshold,exit_threshold,transaction_cost_bps,")
	sb.WriteString("max_holding_days,steps,trade_count,total_pnl,")
	sb.WriteString("sharpe_ratio,max_drawdown,hit_rate\n")

	// Rows
	for _, run := range runs {
		maxHold := ""
		if run.MaxHoldingDays != nil {
			maxHold = fmt.Sprintf("%d", *run.MaxHoldingDays)
		}
		sb.WriteString(fmt.Sprintf("%s,%s,%g,%g,%g,%s,%d,%d,%.6f,%.6f,%.6f,%.6f\n",
			run.RunID,
			run.SignalID,
			run.EntryThreshold,
			run.ExitThreshold,
			run.CostBps,
			maxHold,
			run.Steps,
			run.TradeCount,
			run.TotalPnL,
			run.SharpeRatio,
			run.MaxDrawdown,
			run.HitRate,
		))
	}

	return sb.String()
}
