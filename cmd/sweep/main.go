package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/marketdata"
	"cdx-overlay-lab/internal/observability"
	"cdx-overlay-lab/internal/signals"
	"cdx-overlay-lab/internal/storage"
	"cdx-overlay-lab/internal/storage/memory"
	pgstore "cdx-overlay-lab/internal/storage/postgres"
	"cdx-overlay-lab/internal/sweep"
)

func main() {
	// Parse flags
	signalName := flag.String("signal", "", "Signal: cdx_etf_basis, cdx_vix_gap, spread_momentum (required)")

	// Data source
	useSample := flag.Bool("sample", false, "Use deterministic synthetic market data")
	samplePeriods := flag.Int("sample-periods", 252, "Number of sample periods")
	sampleSeed := flag.Int64("seed", 42, "Sample data seed")
	cdxCSV := flag.String("cdx-csv", "", "CSV file with CDX spread series (date,value)")
	etfCSV := flag.String("etf-csv", "", "CSV file with credit ETF price series")
	vixCSV := flag.String("vix-csv", "", "CSV file with VIX level series")

	// Grid axes, comma-separated
	entries := flag.String("entries", "1.0,1.5,2.0", "Entry thresholds")
	exits := flag.String("exits", "0.5,0.75", "Exit thresholds")
	costs := flag.String("costs-bps", "1.0", "Transaction costs in basis points")
	holds := flag.String("max-hold-days", "0", "Max holding day caps, 0 = unbounded")

	// Fixed parameters
	size := flag.Float64("size", 10.0, "Position size in millions of notional")
	dv01 := flag.Float64("dv01", 4750.0, "DV01 per million notional")
	lookback := flag.Int("lookback", 20, "Rolling window length")
	minPeriods := flag.Int("min-periods", 10, "Minimum observations before a window is valid")

	// Execution
	workers := flag.Int("workers", runtime.NumCPU(), "Concurrent sweep workers")
	verbose := flag.Bool("verbose", false, "Verbose progress logging")

	// Storage and output
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for run persistence")
	persistResult := flag.Bool("persist", false, "Persist run records to storage")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	topN := flag.Int("top", 10, "Number of top cells to print (text output)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[sweep] ", log.LstdFlags)

	if *signalName == "" {
		logger.Fatal("--signal is required")
	}
	*signalName = strings.ToLower(*signalName)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Parse grid axes
	grid, err := buildGrid(*entries, *exits, *costs, *holds, *size, *dv01)
	if err != nil {
		logger.Fatalf("invalid grid: %v", err)
	}

	// Load market data and compute the signal once; every cell shares it.
	data, err := loadMarketData(*useSample, *samplePeriods, *sampleSeed, *cdxCSV, *etfCSV, *vixCSV)
	if err != nil {
		logger.Fatalf("load market data: %v", err)
	}

	registry := signals.NewRegistry()
	signalSeries, err := registry.Compute(*signalName, data, domain.SignalConfig{
		Lookback:   *lookback,
		MinPeriods: *minPeriods,
	})
	if err != nil {
		logger.Fatalf("compute signal: %v", err)
	}
	alignedSignal, alignedSpread := marketdata.Align(signalSeries, data[domain.DatasetCDX])

	// Wire persistence
	var runStore storage.RunStore
	if *persistResult {
		if *postgresDSN != "" {
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()
			runStore = pgstore.NewRunStore(pool)
		} else {
			logger.Print("no --postgres-dsn given, persisting to in-memory store (discarded on exit)")
			runStore = memory.NewRunStore()
		}
	}

	runner := sweep.NewRunner(sweep.Options{
		RunStore: runStore,
		Workers:  *workers,
		Verbose:  *verbose,
	})

	logger.Printf("Sweeping signal=%s steps=%d workers=%d", *signalName, len(alignedSignal), *workers)

	started := time.Now()
	result, err := runner.Run(ctx, *signalName, alignedSignal, alignedSpread, grid)
	if err != nil {
		observability.RecordSweep(0, "error", time.Since(started).Seconds())
		logger.Fatalf("sweep failed: %v", err)
	}
	observability.RecordSweep(len(result.Cells), "ok", time.Since(started).Seconds())

	logger.Printf("Swept %d cells in %s (%d persisted, %d duplicates)",
		len(result.Cells), time.Since(started).Round(time.Millisecond), result.Persisted, result.Skipped)
	for _, e := range result.Errors {
		logger.Printf("persist error: %s", e)
	}

	// Output
	if *outputJSON {
		encoded, _ := json.MarshalIndent(result.Cells, "", "  ")
		fmt.Println(string(encoded))
		return
	}
	printTopCells(result.Cells, *topN)
}

// buildGrid parses the comma-separated axis flags.
func buildGrid(entries, exits, costs, holds string, size, dv01 float64) (sweep.Grid, error) {
	entryVals, err := parseFloats(entries)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("--entries: %w", err)
	}
	exitVals, err := parseFloats(exits)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("--exits: %w", err)
	}
	costVals, err := parseFloats(costs)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("--costs-bps: %w", err)
	}
	holdVals, err := parseInts(holds)
	if err != nil {
		return sweep.Grid{}, fmt.Errorf("--max-hold-days: %w", err)
	}

	return sweep.Grid{
		EntryThresholds:     entryVals,
		ExitThresholds:      exitVals,
		TransactionCostsBps: costVals,
		MaxHoldingDays:      holdVals,
		PositionSize:        size,
		DV01PerMillion:      dv01,
	}, nil
}

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func parseInts(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	vals := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("parse %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

// loadMarketData reads the three input series from CSV files or generates
// synthetic data, and bounds-checks every series before use.
func loadMarketData(useSample bool, periods int, seed int64, cdxPath, etfPath, vixPath string) (map[string][]domain.SeriesPoint, error) {
	var data map[string][]domain.SeriesPoint

	if useSample {
		sampleCfg := marketdata.DefaultSampleConfig()
		sampleCfg.Periods = periods
		sampleCfg.Seed = seed
		data = marketdata.GenerateMarketData(sampleCfg)
	} else {
		if cdxPath == "" || etfPath == "" || vixPath == "" {
			return nil, fmt.Errorf("--cdx-csv, --etf-csv and --vix-csv are required without --sample")
		}
		data = make(map[string][]domain.SeriesPoint, 3)
		for _, src := range []struct {
			key  string
			path string
		}{
			{domain.DatasetCDX, cdxPath},
			{domain.DatasetETF, etfPath},
			{domain.DatasetVIX, vixPath},
		} {
			f, err := os.Open(src.path)
			if err != nil {
				return nil, fmt.Errorf("open %s: %w", src.path, err)
			}
			points, err := marketdata.ReadSeriesCSV(f)
			f.Close()
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", src.path, err)
			}
			data[src.key] = points
		}
	}

	for key, bounds := range map[string]marketdata.Bounds{
		domain.DatasetCDX: marketdata.SpreadBounds,
		domain.DatasetETF: marketdata.PriceBounds,
		domain.DatasetVIX: marketdata.VIXBounds,
	} {
		if err := marketdata.ValidateSeries(data[key], bounds); err != nil {
			return nil, fmt.Errorf("validate %s series: %w", key, err)
		}
	}

	return data, nil
}

// printTopCells prints the best cells by Sharpe, NaN Sharpes last.
func printTopCells(cells []sweep.CellResult, topN int) {
	ranked := make([]sweep.CellResult, len(cells))
	copy(ranked, cells)
	sort.SliceStable(ranked, func(i, j int) bool {
		si, sj := ranked[i].Metrics.SharpeRatio, ranked[j].Metrics.SharpeRatio
		if math.IsNaN(si) {
			return false
		}
		if math.IsNaN(sj) {
			return true
		}
		return si > sj
	})

	if topN > len(ranked) {
		topN = len(ranked)
	}

	fmt.Println()
	fmt.Printf("=== Top %d Cells by Sharpe ===\n", topN)
	fmt.Printf("%-8s %-6s %-9s %-9s %7s %7s %12s %9s\n",
		"entry", "exit", "cost_bps", "max_hold", "trades", "hit", "total_pnl", "sharpe")
	for _, cell := range ranked[:topN] {
		maxHold := "-"
		if cell.Config.MaxHoldingDays != nil {
			maxHold = strconv.Itoa(*cell.Config.MaxHoldingDays)
		}
		fmt.Printf("%-8.2f %-6.2f %-9.2f %-9s %7d %7.3f %12.2f %9.4f\n",
			cell.Config.EntryThreshold,
			cell.Config.ExitThreshold,
			cell.Config.TransactionCostBps,
			maxHold,
			cell.Metrics.TradeCount,
			cell.Metrics.HitRate,
			cell.Summary.TotalPnL,
			cell.Metrics.SharpeRatio,
		)
	}
}
