// Package sweep maps the backtest engine over a grid of configurations.
// The engine itself is a pure function, so cells run on a bounded worker
// pool; results come back in grid order regardless of completion order.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/engine"
	"cdx-overlay-lab/internal/idhash"
	"cdx-overlay-lab/internal/metrics"
	"cdx-overlay-lab/internal/storage"
)

// Runner executes a parameter sweep over one signal/spread pair.
type Runner struct {
	runStore storage.RunStore
	workers  int
	verbose  bool
	now      func() time.Time
}

// Options for creating Runner.
type Options struct {
	// RunStore receives one record per cell. Nil disables persistence.
	RunStore storage.RunStore

	// Workers bounds concurrent cells. Values < 1 mean sequential.
	Workers int

	Verbose bool

	// Now overrides the record timestamp source, for tests.
	Now func() time.Time
}

// NewRunner creates a new sweep runner.
func NewRunner(opts Options) *Runner {
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Runner{
		runStore: opts.RunStore,
		workers:  workers,
		verbose:  opts.Verbose,
		now:      now,
	}
}

// CellResult holds the outcome of one grid cell.
type CellResult struct {
	Config  domain.BacktestConfig
	RunID   string
	Summary engine.Summary
	Metrics domain.PerformanceMetrics
}

// Result aggregates a full sweep.
type Result struct {
	Cells     []CellResult
	Persisted int
	Skipped   int // duplicate run IDs already in the store
	Errors    []string
}

// Run expands the grid and backtests every cell against the given series.
// The input series are shared read-only across workers. Cell failures abort
// the sweep: a config that passed Expand's validation can only fail on bad
// input, which would fail every cell the same way.
func (r *Runner) Run(ctx context.Context, signalID string, signal, spread []domain.SeriesPoint, grid Grid) (*Result, error) {
	configs := grid.Expand()
	r.log("expanded grid to %d configs", len(configs))

	result := &Result{Cells: make([]CellResult, len(configs))}
	if len(configs) == 0 {
		return result, nil
	}

	if err := r.runCells(ctx, signalID, signal, spread, configs, result.Cells); err != nil {
		return nil, err
	}

	if r.runStore != nil {
		r.persist(ctx, signalID, result)
	}

	return result, nil
}

// runCells fans the configs out over the worker pool. Each worker writes
// into its own slice slot, so no result synchronization is needed.
func (r *Runner) runCells(ctx context.Context, signalID string, signal, spread []domain.SeriesPoint, configs []domain.BacktestConfig, cells []CellResult) error {
	jobs := make(chan int)
	done := make(chan struct{})

	var once sync.Once
	var firstErr error
	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			close(done)
		})
	}

	var wg sync.WaitGroup
	for w := 0; w < r.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				cell, err := runCell(signalID, signal, spread, configs[i])
				if err != nil {
					fail(fmt.Errorf("cell %d: %w", i, err))
					return
				}
				cells[i] = cell
			}
		}()
	}

feed:
	for i := range configs {
		if err := ctx.Err(); err != nil {
			fail(err)
			break feed
		}
		select {
		case jobs <- i:
		case <-ctx.Done():
			fail(ctx.Err())
			break feed
		case <-done:
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	return firstErr
}

// runCell backtests a single config and derives its metrics and run ID.
func runCell(signalID string, signal, spread []domain.SeriesPoint, cfg domain.BacktestConfig) (CellResult, error) {
	res, err := engine.Run(signal, spread, cfg)
	if err != nil {
		return CellResult{}, err
	}

	return CellResult{
		Config:  cfg,
		RunID:   idhash.ComputeRunID(signalID, res.Summary.StartDate, res.Summary.EndDate, res.Summary.Steps, cfg),
		Summary: res.Summary,
		Metrics: metrics.ComputePerformance(res.Positions, res.PnL),
	}, nil
}

// persist writes one run record per cell, skipping runs the store has
// already seen. Persistence errors are collected, not fatal: a sweep's
// computed results remain useful even when the store is unavailable.
func (r *Runner) persist(ctx context.Context, signalID string, result *Result) {
	for i := range result.Cells {
		record := buildRunRecord(signalID, &result.Cells[i], r.now())
		if err := r.runStore.Insert(ctx, record); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				result.Skipped++
				continue
			}
			result.Errors = append(result.Errors, fmt.Sprintf("persist run %s: %v", record.RunID, err))
			continue
		}
		result.Persisted++
	}
	r.log("persisted %d runs (%d duplicates skipped, %d errors)",
		result.Persisted, result.Skipped, len(result.Errors))
}

// buildRunRecord flattens a cell into the persistence shape.
func buildRunRecord(signalID string, cell *CellResult, createdAt time.Time) *domain.RunRecord {
	start, _ := time.Parse("2006-01-02", cell.Summary.StartDate)
	end, _ := time.Parse("2006-01-02", cell.Summary.EndDate)

	return &domain.RunRecord{
		RunID:     cell.RunID,
		SignalID:  signalID,
		CreatedAt: createdAt,

		EntryThreshold:     cell.Config.EntryThreshold,
		ExitThreshold:      cell.Config.ExitThreshold,
		PositionSize:       cell.Config.PositionSize,
		TransactionCostBps: cell.Config.TransactionCostBps,
		MaxHoldingDays:     cell.Config.MaxHoldingDays,
		DV01PerMillion:     cell.Config.DV01PerMillion,

		StartDate:      start,
		EndDate:        end,
		Steps:          cell.Summary.Steps,
		MissingSignals: cell.Summary.MissingSignals,

		TradeCount: cell.Metrics.TradeCount,
		TotalPnL:   cell.Summary.TotalPnL,

		Metrics: cell.Metrics,
	}
}

func (r *Runner) log(format string, args ...interface{}) {
	if r.verbose {
		log.Printf("[sweep] "+format, args...)
	}
}
