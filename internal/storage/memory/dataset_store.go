package memory

import (
	"context"
	"sort"
	"sync"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

// DatasetStore is an in-memory implementation of storage.DatasetStore.
type DatasetStore struct {
	mu   sync.RWMutex
	data map[string]*domain.DatasetEntry // keyed by dataset_id
}

// NewDatasetStore creates a new in-memory dataset registry.
func NewDatasetStore() *DatasetStore {
	return &DatasetStore{data: make(map[string]*domain.DatasetEntry)}
}

var _ storage.DatasetStore = (*DatasetStore)(nil)

// Insert registers a new dataset. Returns ErrDuplicateKey if dataset_id exists.
func (s *DatasetStore) Insert(_ context.Context, e *domain.DatasetEntry) error {
	if e == nil || e.DatasetID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[e.DatasetID]; exists {
		return storage.ErrDuplicateKey
	}

	copy := *e
	s.data[e.DatasetID] = &copy
	return nil
}

// GetByID retrieves an entry by dataset ID. Returns ErrNotFound if not exists.
func (s *DatasetStore) GetByID(_ context.Context, datasetID string) (*domain.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[datasetID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	copy := *e
	return &copy, nil
}

// GetAll retrieves all registered datasets, ordered by instrument ASC.
func (s *DatasetStore) GetAll(_ context.Context) ([]*domain.DatasetEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.DatasetEntry, 0, len(s.data))
	for _, e := range s.data {
		copy := *e
		result = append(result, &copy)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Instrument != result[j].Instrument {
			return result[i].Instrument < result[j].Instrument
		}
		return result[i].DatasetID < result[j].DatasetID
	})
	return result, nil
}
