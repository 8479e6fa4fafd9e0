package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/idhash"
	"cdx-overlay-lab/internal/marketdata"
	"cdx-overlay-lab/internal/observability"
	"cdx-overlay-lab/internal/storage"
	chstore "cdx-overlay-lab/internal/storage/clickhouse"
	"cdx-overlay-lab/internal/storage/memory"
	"cdx-overlay-lab/internal/storage/migrations"
	pgstore "cdx-overlay-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "live", "Ingestion mode: live or csv")
	wsEndpoint := flag.String("ws-endpoint", "", "Market data WebSocket endpoint")
	instruments := flag.String("instruments", "CDX_IG_5Y", "Comma-separated instruments to subscribe")
	tenor := flag.String("tenor", "5Y", "Instrument tenor for dataset registration")
	source := flag.String("source", "stream", "Data source label for dataset registration")
	csvPath := flag.String("csv", "", "CSV file to import (csv mode)")
	flushInterval := flag.Duration("flush-interval", 1*time.Minute, "Quote buffer flush interval")

	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (dataset registry)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (series store)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of databases")
	migrate := flag.Bool("migrate", false, "Apply embedded schema migrations on startup")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Set up stores
	seriesStore, datasetStore, closeStores, err := createStores(ctx, *useMemory, *migrate, *postgresDSN, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer closeStores()

	// Run based on mode
	switch *mode {
	case "live":
		err = runLive(ctx, logger, *wsEndpoint, splitInstruments(*instruments), *tenor, *source, *flushInterval, seriesStore, datasetStore)
	case "csv":
		err = runCSVImport(ctx, logger, *csvPath, splitInstruments(*instruments), *tenor, *source, seriesStore, datasetStore)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Error: %v", err)
	}
	logger.Println("Shutdown complete")
}

// createStores wires the series store (clickhouse) and dataset registry
// (postgres), or memory equivalents.
func createStores(ctx context.Context, useMemory, migrate bool, postgresDSN, clickhouseDSN string) (storage.SeriesStore, storage.DatasetStore, func(), error) {
	if useMemory {
		return memory.NewSeriesStore(), memory.NewDatasetStore(), func() {}, nil
	}

	if postgresDSN == "" || clickhouseDSN == "" {
		return nil, nil, nil, fmt.Errorf("--postgres-dsn and --clickhouse-dsn are required (use --use-memory for in-memory storage)")
	}

	pool, err := pgstore.NewPool(ctx, postgresDSN)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if migrate {
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("postgres migrations: %w", err)
		}
	}

	var conn *chstore.Conn
	if migrate {
		conn, err = migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	} else {
		conn, err = chstore.NewConn(ctx, clickhouseDSN)
	}
	if err != nil {
		pool.Close()
		return nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	closeStores := func() {
		conn.Close()
		pool.Close()
	}
	return chstore.NewSeriesStore(conn), pgstore.NewDatasetStore(pool), closeStores, nil
}

// registerDatasets inserts one registry entry per instrument, tolerating
// entries registered by a previous run.
func registerDatasets(ctx context.Context, datasetStore storage.DatasetStore, instruments []string, tenor, source string, now time.Time) (map[string]string, error) {
	ids := make(map[string]string, len(instruments))
	for _, instrument := range instruments {
		id := idhash.ComputeDatasetID(instrument, tenor, source)
		ids[instrument] = id

		err := datasetStore.Insert(ctx, &domain.DatasetEntry{
			DatasetID:    id,
			Instrument:   instrument,
			Tenor:        tenor,
			Source:       source,
			RegisteredAt: now,
		})
		if err != nil && !errors.Is(err, storage.ErrDuplicateKey) {
			return nil, fmt.Errorf("register dataset %s: %w", instrument, err)
		}
	}
	return ids, nil
}

// runLive consumes the quote stream and flushes buffered daily observations
// to the series store on an interval. The last quote seen for a given
// instrument and day wins; earlier intraday quotes are superseded in place.
func runLive(ctx context.Context, logger *log.Logger, wsEndpoint string, instruments []string, tenor, source string, flushInterval time.Duration, seriesStore storage.SeriesStore, datasetStore storage.DatasetStore) error {
	if wsEndpoint == "" {
		return fmt.Errorf("--ws-endpoint is required for live mode")
	}
	if len(instruments) == 0 {
		return fmt.Errorf("--instruments is required for live mode")
	}

	datasetIDs, err := registerDatasets(ctx, datasetStore, instruments, tenor, source, time.Now().UTC())
	if err != nil {
		return err
	}

	stream, err := marketdata.OpenQuoteStream(ctx, wsEndpoint, nil)
	if err != nil {
		return fmt.Errorf("open quote stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Subscribe(instruments); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	logger.Printf("Subscribed to %v", instruments)

	// Per-dataset pending points, one slot per UTC day.
	pending := make(map[string]map[time.Time]float64)
	pendingCount := 0

	flush := func() {
		for datasetID, days := range pending {
			if len(days) == 0 {
				continue
			}
			points := make([]domain.SeriesPoint, 0, len(days))
			for day, value := range days {
				points = append(points, domain.SeriesPoint{Date: day, Value: value})
			}
			if err := seriesStore.InsertBulk(ctx, datasetID, points); err != nil {
				if errors.Is(err, storage.ErrDuplicateKey) {
					// A day already stored by an earlier flush; drop the batch.
					logger.Printf("flush %s: %d points overlap stored days, dropped", datasetID, len(points))
				} else {
					observability.RecordIngestError("flush")
					logger.Printf("flush %s failed: %v", datasetID, err)
					continue // keep the buffer for retry
				}
			} else {
				observability.RecordQuotesStored(len(points))
				observability.DefaultMetrics.LastSuccessfulIngestion.SetToCurrentTime()
				logger.Printf("Flushed %d points to %s", len(points), datasetID)
			}
			pendingCount -= len(days)
			delete(pending, datasetID)
		}
		observability.UpdatePendingQuotes(pendingCount)
	}

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	logger.Println("Starting live ingestion...")
	for {
		select {
		case <-ctx.Done():
			flush()
			return ctx.Err()

		case <-ticker.C:
			flush()

		case quote, ok := <-stream.Quotes():
			if !ok {
				flush()
				return fmt.Errorf("quote stream closed")
			}
			datasetID, known := datasetIDs[quote.Instrument]
			if !known {
				observability.RecordIngestError("unknown_instrument")
				continue
			}
			observability.RecordQuoteReceived(quote.Instrument)

			day := quote.Timestamp.UTC().Truncate(24 * time.Hour)
			if pending[datasetID] == nil {
				pending[datasetID] = make(map[time.Time]float64)
			}
			if _, exists := pending[datasetID][day]; !exists {
				pendingCount++
			}
			pending[datasetID][day] = quote.Spread
			observability.UpdatePendingQuotes(pendingCount)
		}
	}
}

// runCSVImport loads one CSV series into the store under the first
// instrument's dataset.
func runCSVImport(ctx context.Context, logger *log.Logger, csvPath string, instruments []string, tenor, source string, seriesStore storage.SeriesStore, datasetStore storage.DatasetStore) error {
	if csvPath == "" {
		return fmt.Errorf("--csv is required for csv mode")
	}
	if len(instruments) != 1 {
		return fmt.Errorf("csv mode imports exactly one instrument, got %d", len(instruments))
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("open %s: %w", csvPath, err)
	}
	defer f.Close()

	points, err := marketdata.ReadSeriesCSV(f)
	if err != nil {
		return fmt.Errorf("read %s: %w", csvPath, err)
	}

	datasetIDs, err := registerDatasets(ctx, datasetStore, instruments, tenor, source, time.Now().UTC())
	if err != nil {
		return err
	}
	datasetID := datasetIDs[instruments[0]]

	if err := seriesStore.InsertBulk(ctx, datasetID, points); err != nil {
		observability.RecordIngestError("csv_import")
		return fmt.Errorf("insert %d points: %w", len(points), err)
	}
	observability.RecordQuotesStored(len(points))

	logger.Printf("Imported %d points from %s into dataset %s", len(points), csvPath, datasetID[:12])
	return nil
}

func splitInstruments(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
