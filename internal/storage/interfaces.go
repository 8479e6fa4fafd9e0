package storage

import (
	"context"
	"time"

	"cdx-overlay-lab/internal/domain"
)

// RunStore provides access to backtest_runs storage.
type RunStore interface {
	// Insert adds a new run. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.RunRecord) error

	// GetByID retrieves a run by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, runID string) (*domain.RunRecord, error)

	// GetBySignal retrieves all runs for a signal, ordered by created_at ASC.
	GetBySignal(ctx context.Context, signalID string) ([]*domain.RunRecord, error)

	// GetAll retrieves all runs, ordered by created_at ASC.
	GetAll(ctx context.Context) ([]*domain.RunRecord, error)
}

// DatasetStore provides access to the datasets registry.
type DatasetStore interface {
	// Insert registers a new dataset. Returns ErrDuplicateKey if dataset_id exists.
	Insert(ctx context.Context, e *domain.DatasetEntry) error

	// GetByID retrieves an entry by dataset ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, datasetID string) (*domain.DatasetEntry, error)

	// GetAll retrieves all registered datasets, ordered by instrument ASC.
	GetAll(ctx context.Context) ([]*domain.DatasetEntry, error)
}

// SeriesStore provides access to market series observations.
type SeriesStore interface {
	// InsertBulk adds observations for a dataset. Fails the entire batch
	// on any duplicate (dataset_id, date).
	InsertBulk(ctx context.Context, datasetID string, points []domain.SeriesPoint) error

	// GetByDatasetID retrieves all observations for a dataset, ordered by date ASC.
	GetByDatasetID(ctx context.Context, datasetID string) ([]domain.SeriesPoint, error)

	// GetByDateRange retrieves observations within [start, end] inclusive,
	// ordered by date ASC.
	GetByDateRange(ctx context.Context, datasetID string, start, end time.Time) ([]domain.SeriesPoint, error)
}
