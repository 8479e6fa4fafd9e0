package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// RunStore implements storage.RunStore using PostgreSQL.
type RunStore struct {
	pool *Pool
}

// NewRunStore creates a new RunStore.
func NewRunStore(pool *Pool) *RunStore {
	return &RunStore{pool: pool}
}

// Compile-time interface check.
var _ storage.RunStore = (*RunStore)(nil)

const runColumns = `
	run_id, signal_id, created_at,
	entry_threshold, exit_threshold, position_size, transaction_cost_bps,
	max_holding_days, dv01_per_million,
	start_date, end_date, steps, missing_signals,
	trade_count, total_pnl,
	sharpe_ratio, sortino_ratio, max_drawdown, calmar_ratio,
	total_return, annualized_return, annualized_volatility,
	hit_rate, avg_win, avg_loss, win_loss_ratio, avg_holding_days,
	open_trade_at_end, open_trade_pnl
`

// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
func (s *RunStore) Insert(ctx context.Context, r *domain.RunRecord) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO backtest_runs (` + runColumns + `) VALUES (
			$1, $2, $3,
			$4, $5, $6, $7,
			$8, $9,
			$10, $11, $12, $13,
			$14, $15,
			$16, $17, $18, $19,
			$20, $21, $22,
			$23, $24, $25, $26, $27,
			$28, $29
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.SignalID, r.CreatedAt,
		r.EntryThreshold, r.ExitThreshold, r.PositionSize, r.TransactionCostBps,
		r.MaxHoldingDays, r.DV01PerMillion,
		r.StartDate, r.EndDate, r.Steps, r.MissingSignals,
		r.TradeCount, r.TotalPnL,
		r.Metrics.SharpeRatio, r.Metrics.SortinoRatio, r.Metrics.MaxDrawdown, r.Metrics.CalmarRatio,
		r.Metrics.TotalReturn, r.Metrics.AnnualizedReturn, r.Metrics.AnnualizedVolatility,
		r.Metrics.HitRate, r.Metrics.AvgWin, r.Metrics.AvgLoss, r.Metrics.WinLossRatio, r.Metrics.AvgHoldingDays,
		r.Metrics.OpenTradeAtEnd, r.Metrics.OpenTradePnL,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert backtest run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
func (s *RunStore) GetByID(ctx context.Context, runID string) (*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanRun(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get backtest run by id: %w", err)
	}
	return r, nil
}

// GetBySignal retrieves all runs for a signal, ordered by created_at ASC.
func (s *RunStore) GetBySignal(ctx context.Context, signalID string) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs WHERE signal_id = $1 ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query, signalID)
	if err != nil {
		return nil, fmt.Errorf("query runs by signal: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

// GetAll retrieves all runs, ordered by created_at ASC.
func (s *RunStore) GetAll(ctx context.Context) ([]*domain.RunRecord, error) {
	query := `SELECT ` + runColumns + ` FROM backtest_runs ORDER BY created_at ASC, run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all runs: %w", err)
	}
	defer rows.Close()

	return scanRuns(rows)
}

func scanRuns(rows pgx.Rows) ([]*domain.RunRecord, error) {
	var result []*domain.RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan backtest run: %w", err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate backtest runs: %w", err)
	}
	return result, nil
}

func scanRun(row pgx.Row) (*domain.RunRecord, error) {
	var r domain.RunRecord
	err := row.Scan(
		&r.RunID, &r.SignalID, &r.CreatedAt,
		&r.EntryThreshold, &r.ExitThreshold, &r.PositionSize, &r.TransactionCostBps,
		&r.MaxHoldingDays, &r.DV01PerMillion,
		&r.StartDate, &r.EndDate, &r.Steps, &r.MissingSignals,
		&r.TradeCount, &r.TotalPnL,
		&r.Metrics.SharpeRatio, &r.Metrics.SortinoRatio, &r.Metrics.MaxDrawdown, &r.Metrics.CalmarRatio,
		&r.Metrics.TotalReturn, &r.Metrics.AnnualizedReturn, &r.Metrics.AnnualizedVolatility,
		&r.Metrics.HitRate, &r.Metrics.AvgWin, &r.Metrics.AvgLoss, &r.Metrics.WinLossRatio, &r.Metrics.AvgHoldingDays,
		&r.Metrics.OpenTradeAtEnd, &r.Metrics.OpenTradePnL,
	)
	if err != nil {
		return nil, err
	}
	r.Metrics.TradeCount = r.TradeCount
	return &r, nil
}
