package reporting

import (
	"context"
	"math"
	"sort"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// Generator produces reports from stored runs.
type Generator struct {
	runStore storage.RunStore
	now      func() time.Time // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator.
func NewGenerator(runStore storage.RunStore) *Generator {
	return &Generator{
		runStore: runStore,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report over every stored run.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.runStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	signalSet := make(map[string]struct{})
	for _, run := range runs {
		signalSet[run.SignalID] = struct{}{}
	}

	return &Report{
		GeneratedAt:          g.now(),
		SignalCount:          len(signalSet),
		RunCount:             len(runs),
		DataSummary:          generateDataSummary(runs),
		Runs:                 generateRunRows(runs),
		SignalSummary:        generateSignalSummary(runs),
		ThresholdSensitivity: generateThresholdSensitivity(runs),
	}, nil
}

// generateDataSummary computes population-level facts.
func generateDataSummary(runs []*domain.RunRecord) DataSummary {
	summary := DataSummary{TotalRuns: len(runs)}
	for i, run := range runs {
		summary.TotalTrades += run.TradeCount
		if i == 0 || run.StartDate.Before(summary.DateRangeStart) {
			summary.DateRangeStart = run.StartDate
		}
		if i == 0 || run.EndDate.After(summary.DateRangeEnd) {
			summary.DateRangeEnd = run.EndDate
		}
	}
	return summary
}

// generateRunRows builds sorted per-run rows.
func generateRunRows(runs []*domain.RunRecord) []RunRow {
	rows := make([]RunRow, len(runs))
	for i, run := range runs {
		rows[i] = RunRow{
			RunID:          run.RunID,
			SignalID:       run.SignalID,
			EntryThreshold: run.EntryThreshold,
			ExitThreshold:  run.ExitThreshold,
			CostBps:        run.TransactionCostBps,
			MaxHoldingDays: run.MaxHoldingDays,
			Steps:          run.Steps,
			TradeCount:     run.TradeCount,
			TotalPnL:       run.TotalPnL,
			SharpeRatio:    run.Metrics.SharpeRatio,
			MaxDrawdown:    run.Metrics.MaxDrawdown,
			HitRate:        run.Metrics.HitRate,
		}
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SignalID != rows[j].SignalID {
			return rows[i].SignalID < rows[j].SignalID
		}
		return rows[i].RunID < rows[j].RunID
	})
	return rows
}

// generateSignalSummary rolls runs up by signal.
func generateSignalSummary(runs []*domain.RunRecord) []SignalSummaryRow {
	groups := make(map[string][]*domain.RunRecord)
	for _, run := range runs {
		groups[run.SignalID] = append(groups[run.SignalID], run)
	}

	rows := make([]SignalSummaryRow, 0, len(groups))
	for signalID, group := range groups {
		row := SignalSummaryRow{
			SignalID:   signalID,
			Runs:       len(group),
			BestSharpe: math.NaN(),
		}

		var pnlSum float64
		for _, run := range group {
			pnlSum += run.TotalPnL
			if run.Metrics.MaxDrawdown > row.WorstDrawdown {
				row.WorstDrawdown = run.Metrics.MaxDrawdown
			}
			sharpe := run.Metrics.SharpeRatio
			if !math.IsNaN(sharpe) && (math.IsNaN(row.BestSharpe) || sharpe > row.BestSharpe) {
				row.BestSharpe = sharpe
				row.BestRunID = run.RunID
			}
		}
		row.MeanTotalPnL = pnlSum / float64(len(group))

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].SignalID < rows[j].SignalID
	})
	return rows
}

// generateThresholdSensitivity groups runs by (signal_id, entry_threshold).
func generateThresholdSensitivity(runs []*domain.RunRecord) []ThresholdSensitivityRow {
	type key struct {
		SignalID string
		Entry    float64
	}
	groups := make(map[key][]*domain.RunRecord)
	for _, run := range runs {
		k := key{SignalID: run.SignalID, Entry: run.EntryThreshold}
		groups[k] = append(groups[k], run)
	}

	rows := make([]ThresholdSensitivityRow, 0, len(groups))
	for k, group := range groups {
		row := ThresholdSensitivityRow{
			SignalID:       k.SignalID,
			EntryThreshold: k.Entry,
			Runs:           len(group),
			MeanSharpe:     math.NaN(),
		}

		var pnlSum, tradeSum, sharpeSum float64
		var sharpeCount int
		for _, run := range group {
			pnlSum += run.TotalPnL
			tradeSum += float64(run.TradeCount)
			if !math.IsNaN(run.Metrics.SharpeRatio) {
				sharpeSum += run.Metrics.SharpeRatio
				sharpeCount++
			}
		}
		row.MeanTotalPnL = pnlSum / float64(len(group))
		row.MeanTradeCount = tradeSum / float64(len(group))
		if sharpeCount > 0 {
			row.MeanSharpe = sharpeSum / float64(sharpeCount)
		}

		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].SignalID != rows[j].SignalID {
			return rows[i].SignalID < rows[j].SignalID
		}
		return rows[i].EntryThreshold < rows[j].EntryThreshold
	})
	return rows
}
