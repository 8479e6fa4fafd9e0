package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// SeriesStore is an in-memory implementation of storage.SeriesStore.
type SeriesStore struct {
	mu   sync.RWMutex
	data map[string]map[time.Time]float64 // dataset_id -> date -> value
}

// NewSeriesStore creates a new in-memory series store.
func NewSeriesStore() *SeriesStore {
	return &SeriesStore{data: make(map[string]map[time.Time]float64)}
}

var _ storage.SeriesStore = (*SeriesStore)(nil)

// InsertBulk adds observations for a dataset. Fails the entire batch on
// any duplicate (dataset_id, date).
func (s *SeriesStore) InsertBulk(_ context.Context, datasetID string, points []domain.SeriesPoint) error {
	if datasetID == "" {
		return storage.ErrInvalidInput
	}
	if len(points) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing := s.data[datasetID]

	// First pass: reject existing and intra-batch duplicates.
	batchKeys := make(map[time.Time]struct{}, len(points))
	for _, p := range points {
		key := p.Date.UTC()
		if _, ok := existing[key]; ok {
			return storage.ErrDuplicateKey
		}
		if _, ok := batchKeys[key]; ok {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	if existing == nil {
		existing = make(map[time.Time]float64, len(points))
		s.data[datasetID] = existing
	}
	for _, p := range points {
		existing[p.Date.UTC()] = p.Value
	}
	return nil
}

// GetByDatasetID retrieves all observations for a dataset, ordered by date ASC.
func (s *SeriesStore) GetByDatasetID(_ context.Context, datasetID string) ([]domain.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(datasetID, func(time.Time) bool { return true }), nil
}

// GetByDateRange retrieves observations within [start, end] inclusive,
// ordered by date ASC.
func (s *SeriesStore) GetByDateRange(_ context.Context, datasetID string, start, end time.Time) ([]domain.SeriesPoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collect(datasetID, func(d time.Time) bool {
		return !d.Before(start) && !d.After(end)
	}), nil
}

func (s *SeriesStore) collect(datasetID string, keep func(time.Time) bool) []domain.SeriesPoint {
	var result []domain.SeriesPoint
	for date, value := range s.data[datasetID] {
		if keep(date) {
			result = append(result, domain.SeriesPoint{Date: date, Value: value})
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Date.Before(result[j].Date)
	})
	return result
}
