package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// DatasetStore implements storage.DatasetStore using PostgreSQL.
type DatasetStore struct {
	pool *Pool
}

// NewDatasetStore creates a new DatasetStore.
func NewDatasetStore(pool *Pool) *DatasetStore {
	return &DatasetStore{pool: pool}
}

// Compile-time interface check.
var _ storage.DatasetStore = (*DatasetStore)(nil)

const datasetColumns = `
	dataset_id, instrument, tenor, source,
	registered_at, start_date, end_date, row_count, last_updated
`

// Insert registers a new dataset. Returns ErrDuplicateKey if dataset_id exists.
func (s *DatasetStore) Insert(ctx context.Context, e *domain.DatasetEntry) error {
	if e == nil || e.DatasetID == "" {
		return storage.ErrInvalidInput
	}

	query := `
		INSERT INTO datasets (` + datasetColumns + `) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := s.pool.Exec(ctx, query,
		e.DatasetID, e.Instrument, e.Tenor, e.Source,
		e.RegisteredAt, e.StartDate, e.EndDate, e.RowCount, e.LastUpdated,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

// GetByID retrieves an entry by dataset ID. Returns ErrNotFound if not exists.
func (s *DatasetStore) GetByID(ctx context.Context, datasetID string) (*domain.DatasetEntry, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets WHERE dataset_id = $1`

	row := s.pool.QueryRow(ctx, query, datasetID)
	e, err := scanDataset(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get dataset by id: %w", err)
	}
	return e, nil
}

// GetAll retrieves all registered datasets, ordered by instrument ASC.
func (s *DatasetStore) GetAll(ctx context.Context) ([]*domain.DatasetEntry, error) {
	query := `SELECT ` + datasetColumns + ` FROM datasets ORDER BY instrument ASC, dataset_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query all datasets: %w", err)
	}
	defer rows.Close()

	var result []*domain.DatasetEntry
	for rows.Next() {
		e, err := scanDataset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate datasets: %w", err)
	}
	return result, nil
}

func scanDataset(row pgx.Row) (*domain.DatasetEntry, error) {
	var e domain.DatasetEntry
	err := row.Scan(
		&e.DatasetID, &e.Instrument, &e.Tenor, &e.Source,
		&e.RegisteredAt, &e.StartDate, &e.EndDate, &e.RowCount, &e.LastUpdated,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
