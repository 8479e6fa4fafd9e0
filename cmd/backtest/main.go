package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/engine"
	"cdx-overlay-lab/internal/idhash"
	"cdx-overlay-lab/internal/marketdata"
	"cdx-overlay-lab/internal/metrics"
	"cdx-overlay-lab/internal/observability"
	"cdx-overlay-lab/internal/signals"
	"cdx-overlay-lab/internal/storage"
	chstore "cdx-overlay-lab/internal/storage/clickhouse"
	"cdx-overlay-lab/internal/storage/memory"
	pgstore "cdx-overlay-lab/internal/storage/postgres"
)

// signalAggregate runs the weighted combination of all registry signals.
const signalAggregate = "aggregate"

func main() {
	// Parse flags
	signalName := flag.String("signal", "", "Signal: cdx_etf_basis, cdx_vix_gap, spread_momentum, aggregate (required)")

	// Data source
	useSample := flag.Bool("sample", false, "Use deterministic synthetic market data")
	samplePeriods := flag.Int("sample-periods", 252, "Number of sample periods")
	sampleSeed := flag.Int64("seed", 42, "Sample data seed")
	cdxCSV := flag.String("cdx-csv", "", "CSV file with CDX spread series (date,value)")
	etfCSV := flag.String("etf-csv", "", "CSV file with credit ETF price series")
	vixCSV := flag.String("vix-csv", "", "CSV file with VIX level series")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string for stored series")
	cdxDataset := flag.String("cdx-dataset", "", "Dataset ID of the stored CDX series")
	etfDataset := flag.String("etf-dataset", "", "Dataset ID of the stored ETF series")
	vixDataset := flag.String("vix-dataset", "", "Dataset ID of the stored VIX series")

	// Backtest parameters
	entry := flag.Float64("entry", 1.5, "Entry threshold (signal z-score)")
	exit := flag.Float64("exit", 0.75, "Exit threshold")
	size := flag.Float64("size", 10.0, "Position size in millions of notional")
	costBps := flag.Float64("cost-bps", 1.0, "Transaction cost in basis points")
	maxHold := flag.Int("max-hold-days", 0, "Max holding days, 0 = unbounded")
	dv01 := flag.Float64("dv01", 4750.0, "DV01 per million notional")

	// Signal parameters
	lookback := flag.Int("lookback", 20, "Rolling window length")
	minPeriods := flag.Int("min-periods", 10, "Minimum observations before a window is valid")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string for run persistence")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist run record to storage")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
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

	// Build configs
	cfg := domain.BacktestConfig{
		EntryThreshold:     *entry,
		ExitThreshold:      *exit,
		PositionSize:       *size,
		TransactionCostBps: *costBps,
		DV01PerMillion:     *dv01,
	}
	if *maxHold > 0 {
		cfg.MaxHoldingDays = maxHold
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	sigCfg := domain.SignalConfig{Lookback: *lookback, MinPeriods: *minPeriods}

	// Load market data
	data, err := loadMarketData(ctx, dataSource{
		useSample:     *useSample,
		samplePeriods: *samplePeriods,
		sampleSeed:    *sampleSeed,
		csvPaths:      map[string]string{domain.DatasetCDX: *cdxCSV, domain.DatasetETF: *etfCSV, domain.DatasetVIX: *vixCSV},
		clickhouseDSN: *clickhouseDSN,
		datasetIDs:    map[string]string{domain.DatasetCDX: *cdxDataset, domain.DatasetETF: *etfDataset, domain.DatasetVIX: *vixDataset},
	})
	if err != nil {
		logger.Fatalf("load market data: %v", err)
	}

	// Compute the signal series
	signalSeries, err := computeSignal(*signalName, data, sigCfg)
	if err != nil {
		logger.Fatalf("compute signal: %v", err)
	}

	// Align signal with the CDX spread and run
	alignedSignal, alignedSpread := marketdata.Align(signalSeries, data[domain.DatasetCDX])

	logger.Printf("Running backtest: signal=%s steps=%d entry=%.2f exit=%.2f",
		*signalName, len(alignedSignal), cfg.EntryThreshold, cfg.ExitThreshold)

	started := time.Now()
	result, err := engine.Run(alignedSignal, alignedSpread, cfg)
	if err != nil {
		observability.RecordBacktestRun("error", time.Since(started).Seconds())
		logger.Fatalf("backtest failed: %v", err)
	}
	perf := metrics.ComputePerformance(result.Positions, result.PnL)
	observability.RecordBacktestRun("ok", time.Since(started).Seconds())

	runID := idhash.ComputeRunID(*signalName, result.Summary.StartDate, result.Summary.EndDate, result.Summary.Steps, cfg)

	// Persist run record
	if *persistResult {
		var runStore storage.RunStore = memory.NewRunStore()
		if *postgresDSN != "" {
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()
			runStore = pgstore.NewRunStore(pool)
		} else {
			logger.Print("no --postgres-dsn given, persisting to in-memory store (discarded on exit)")
		}

		record := buildRunRecord(runID, *signalName, cfg, result, perf)
		if err := runStore.Insert(ctx, record); err != nil {
			logger.Fatalf("persist run: %v", err)
		}
		logger.Printf("Persisted run %s", runID[:12])
	}

	// Output result
	if *outputJSON {
		out := runOutput{
			RunID:    runID,
			SignalID: *signalName,
			Summary:  result.Summary,
			Metrics:  perf,
		}
		encoded, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(encoded))
	} else {
		printResult(runID, *signalName, result, perf)
	}
}

// runOutput is the JSON shape of a single run.
type runOutput struct {
	RunID    string                    `json:"run_id"`
	SignalID string                    `json:"signal_id"`
	Summary  engine.Summary            `json:"summary"`
	Metrics  domain.PerformanceMetrics `json:"metrics"`
}

// dataSource selects where the three input series come from: synthetic
// sample, CSV files, or the stored series in ClickHouse.
type dataSource struct {
	useSample     bool
	samplePeriods int
	sampleSeed    int64
	csvPaths      map[string]string
	clickhouseDSN string
	datasetIDs    map[string]string
}

// loadMarketData resolves the configured source and bounds-checks every
// series before use.
func loadMarketData(ctx context.Context, src dataSource) (map[string][]domain.SeriesPoint, error) {
	var data map[string][]domain.SeriesPoint
	var err error

	switch {
	case src.useSample:
		sampleCfg := marketdata.DefaultSampleConfig()
		sampleCfg.Periods = src.samplePeriods
		sampleCfg.Seed = src.sampleSeed
		data = marketdata.GenerateMarketData(sampleCfg)

	case src.clickhouseDSN != "":
		data, err = loadStoredSeries(ctx, src.clickhouseDSN, src.datasetIDs)
		if err != nil {
			return nil, err
		}

	default:
		data = make(map[string][]domain.SeriesPoint, 3)
		for key, path := range src.csvPaths {
			if path == "" {
				return nil, fmt.Errorf("--cdx-csv, --etf-csv and --vix-csv are required without --sample or --clickhouse-dsn")
			}
			points, err := readCSVFile(path)
			if err != nil {
				return nil, fmt.Errorf("read %s: %w", path, err)
			}
			data[key] = points
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

// loadStoredSeries reads the three datasets from the clickhouse series store.
func loadStoredSeries(ctx context.Context, dsn string, datasetIDs map[string]string) (map[string][]domain.SeriesPoint, error) {
	conn, err := chstore.NewConn(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()

	store := chstore.NewSeriesStore(conn)
	data := make(map[string][]domain.SeriesPoint, len(datasetIDs))
	for key, datasetID := range datasetIDs {
		if datasetID == "" {
			return nil, fmt.Errorf("--%s-dataset is required with --clickhouse-dsn", key)
		}
		points, err := store.GetByDatasetID(ctx, datasetID)
		if err != nil {
			return nil, fmt.Errorf("load dataset %s: %w", datasetID, err)
		}
		if len(points) == 0 {
			return nil, fmt.Errorf("dataset %s (%s) has no stored points", datasetID, key)
		}
		data[key] = points
	}
	return data, nil
}

func readCSVFile(path string) ([]domain.SeriesPoint, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return marketdata.ReadSeriesCSV(f)
}

// computeSignal resolves a registry signal or the weighted aggregate.
func computeSignal(name string, data map[string][]domain.SeriesPoint, cfg domain.SignalConfig) ([]domain.SeriesPoint, error) {
	registry := signals.NewRegistry()

	if name != signalAggregate {
		return registry.Compute(name, data, cfg)
	}

	all, err := registry.ComputeAll(data, cfg)
	if err != nil {
		return nil, err
	}
	return signals.Aggregate(
		all[domain.SignalCDXETFBasis],
		all[domain.SignalCDXVIXGap],
		all[domain.SignalSpreadMomentum],
		domain.DefaultAggregatorConfig(),
	)
}

// buildRunRecord flattens a run into the persistence shape.
func buildRunRecord(runID, signalID string, cfg domain.BacktestConfig, result *engine.Result, perf domain.PerformanceMetrics) *domain.RunRecord {
	start, _ := time.Parse("2006-01-02", result.Summary.StartDate)
	end, _ := time.Parse("2006-01-02", result.Summary.EndDate)

	return &domain.RunRecord{
		RunID:     runID,
		SignalID:  signalID,
		CreatedAt: time.Now().UTC(),

		EntryThreshold:     cfg.EntryThreshold,
		ExitThreshold:      cfg.ExitThreshold,
		PositionSize:       cfg.PositionSize,
		TransactionCostBps: cfg.TransactionCostBps,
		MaxHoldingDays:     cfg.MaxHoldingDays,
		DV01PerMillion:     cfg.DV01PerMillion,

		StartDate:      start,
		EndDate:        end,
		Steps:          result.Summary.Steps,
		MissingSignals: result.Summary.MissingSignals,

		TradeCount: perf.TradeCount,
		TotalPnL:   result.Summary.TotalPnL,

		Metrics: perf,
	}
}

// printResult outputs a human-readable run summary.
func printResult(runID, signalID string, result *engine.Result, perf domain.PerformanceMetrics) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", runID)
	fmt.Printf("Signal:             %s\n", signalID)
	fmt.Printf("Date Range:         %s to %s\n", result.Summary.StartDate, result.Summary.EndDate)
	fmt.Printf("Steps:              %d (%d missing signals)\n", result.Summary.Steps, result.Summary.MissingSignals)
	fmt.Println()

	fmt.Println("P&L:")
	fmt.Printf("  Total:            %.2f\n", result.Summary.TotalPnL)
	fmt.Printf("  Annualized:       %.2f\n", perf.AnnualizedReturn)
	fmt.Printf("  Volatility:       %.2f\n", perf.AnnualizedVolatility)
	fmt.Printf("  Max Drawdown:     %.2f\n", perf.MaxDrawdown)
	fmt.Println()

	fmt.Println("Ratios:")
	fmt.Printf("  Sharpe:           %.4f\n", perf.SharpeRatio)
	fmt.Printf("  Sortino:          %.4f\n", perf.SortinoRatio)
	fmt.Printf("  Calmar:           %.4f\n", perf.CalmarRatio)
	fmt.Println()

	fmt.Println("Trades:")
	fmt.Printf("  Completed:        %d\n", perf.TradeCount)
	fmt.Printf("  Hit Rate:         %.4f\n", perf.HitRate)
	fmt.Printf("  Avg Win:          %.2f\n", perf.AvgWin)
	fmt.Printf("  Avg Loss:         %.2f\n", perf.AvgLoss)
	fmt.Printf("  Win/Loss Ratio:   %.4f\n", perf.WinLossRatio)
	fmt.Printf("  Avg Holding Days: %.1f\n", perf.AvgHoldingDays)
	if perf.OpenTradeAtEnd {
		fmt.Printf("  Open at End:      yes (P&L %.2f)\n", perf.OpenTradePnL)
	}
}
