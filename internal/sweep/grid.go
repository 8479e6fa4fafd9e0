package sweep

import "cdx-overlay-lab/internal/domain"

// Grid describes the parameter space of a sweep. Each slice axis is
// combined with every other; an empty axis falls back to the default
// config's value for that parameter. MaxHoldingDays uses 0 for "no cap".
type Grid struct {
	EntryThresholds     []float64
	ExitThresholds      []float64
	TransactionCostsBps []float64
	MaxHoldingDays      []int

	// Fixed across the grid. Zero values fall back to defaults.
	PositionSize   float64
	DV01PerMillion float64
}

// Expand produces one config per grid cell, dropping combinations that
// fail validation (e.g. exit >= entry). The order is deterministic:
// entry, then exit, then cost, then holding cap.
func (g Grid) Expand() []domain.BacktestConfig {
	base := domain.DefaultBacktestConfig()
	if g.PositionSize > 0 {
		base.PositionSize = g.PositionSize
	}
	if g.DV01PerMillion > 0 {
		base.DV01PerMillion = g.DV01PerMillion
	}

	entries := orDefault(g.EntryThresholds, base.EntryThreshold)
	exits := orDefault(g.ExitThresholds, base.ExitThreshold)
	costs := orDefault(g.TransactionCostsBps, base.TransactionCostBps)
	holds := g.MaxHoldingDays
	if len(holds) == 0 {
		holds = []int{0}
	}

	configs := make([]domain.BacktestConfig, 0, len(entries)*len(exits)*len(costs)*len(holds))
	for _, entry := range entries {
		for _, exit := range exits {
			for _, cost := range costs {
				for _, hold := range holds {
					cfg := base
					cfg.EntryThreshold = entry
					cfg.ExitThreshold = exit
					cfg.TransactionCostBps = cost
					cfg.MaxHoldingDays = nil
					if hold > 0 {
						h := hold
						cfg.MaxHoldingDays = &h
					}
					if cfg.Validate() != nil {
						continue
					}
					configs = append(configs, cfg)
				}
			}
		}
	}
	return configs
}

func orDefault(axis []float64, fallback float64) []float64 {
	if len(axis) == 0 {
		return []float64{fallback}
	}
	return axis
}
