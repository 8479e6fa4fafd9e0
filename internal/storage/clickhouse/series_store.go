package clickhouse

import (
	"context"
	"fmt"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// SeriesStore implements storage.SeriesStore using ClickHouse.
//
// MergeTree does not enforce uniqueness, so InsertBulk checks for existing
// (dataset_id, date) rows before writing. Single-writer ingestion is
// assumed; concurrent writers could still race past the check.
type SeriesStore struct {
	conn *Conn
}

// NewSeriesStore creates a new SeriesStore.
func NewSeriesStore(conn *Conn) *SeriesStore {
	return &SeriesStore{conn: conn}
}

// Compile-time interface check.
var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertBulk adds observations for a dataset. Fails the entire batch on
// any duplicate (dataset_id, date).
func (s *SeriesStore) InsertBulk(ctx context.Context, datasetID string, points []domain.SeriesPoint) error {
	if datasetID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	seen := make(map[time.Time]struct{}, len(points))
	dates := make([]time.Time, 0, len(points))
	for _, p := range points {
		key := p.Date.UTC().Truncate(24 * time.Hour)
		if _, ok := seen[key]; ok {
			return storage.ErrDuplicateKey
		}
		seen[key] = struct{}{}
		dates = append(dates, key)
	}

	var existing uint64
	query := `SELECT count() FROM market_series WHERE dataset_id = ? AND date IN (?)`
	if err := s.conn.QueryRow(ctx, query, datasetID, dates).Scan(&existing); err != nil {
		return fmt.Errorf("check existing series rows: %w", err)
	}
	if existing > 0 {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx, "INSERT INTO market_series (dataset_id, date, value)")
	if err != nil {
		return fmt.Errorf("prepare series batch: %w", err)
	}
	for i, p := range points {
		if err := batch.Append(datasetID, dates[i], p.Value); err != nil {
			return fmt.Errorf("append series row: %w", err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send series batch: %w", err)
	}
	return nil
}

// GetByDatasetID retrieves all observations for a dataset, ordered by date ASC.
func (s *SeriesStore) GetByDatasetID(ctx context.Context, datasetID string) ([]domain.SeriesPoint, error) {
	query := `SELECT date, value FROM market_series WHERE dataset_id = ? ORDER BY date ASC`
	return s.queryPoints(ctx, query, datasetID)
}

// GetByDateRange retrieves observations within [start, end] inclusive,
// ordered by date ASC.
func (s *SeriesStore) GetByDateRange(ctx context.Context, datasetID string, start, end time.Time) ([]domain.SeriesPoint, error) {
	query := `
		SELECT date, value FROM market_series
		WHERE dataset_id = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`
	return s.queryPoints(ctx, query, datasetID, start.UTC(), end.UTC())
}

func (s *SeriesStore) queryPoints(ctx context.Context, query string, args ...any) ([]domain.SeriesPoint, error) {
	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query market series: %w", err)
	}
	defer rows.Close()

	var result []domain.SeriesPoint
	for rows.Next() {
		var p domain.SeriesPoint
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan series row: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate series rows: %w", err)
	}
	return result, nil
}
