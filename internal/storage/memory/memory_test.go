package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
)

func sampleRun(runID, signalID string, createdAt time.Time) *domain.RunRecord {
	return &domain.RunRecord{
		RunID:          runID,
		SignalID:       signalID,
		CreatedAt:      createdAt,
		EntryThreshold: 1.5,
		ExitThreshold:  0.75,
		PositionSize:   10,
		DV01PerMillion: 4750,
		Steps:          252,
		TradeCount:     3,
		TotalPnL:       1234.5,
	}
}

func TestRunStore_InsertAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore()
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	run := sampleRun("run-1", "cdx_etf_basis", now)
	if err := s.Insert(ctx, run); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := s.Insert(ctx, run); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got err %v, want %v", err, storage.ErrDuplicateKey)
	}
	if err := s.Insert(ctx, &domain.RunRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got err %v, want %v", err, storage.ErrInvalidInput)
	}
	if err := s.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got err %v, want %v", err, storage.ErrInvalidInput)
	}

	got, err := s.GetByID(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SignalID != "cdx_etf_basis" || got.TotalPnL != 1234.5 {
		t.Errorf("got %+v", got)
	}

	// Stored record is isolated from caller mutation.
	got.TotalPnL = -1
	again, _ := s.GetByID(ctx, "run-1")
	if again.TotalPnL != 1234.5 {
		t.Error("store leaked a mutable reference")
	}

	if _, err := s.GetByID(ctx, "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got err %v, want %v", err, storage.ErrNotFound)
	}
}

func TestRunStore_GetBySignalOrdering(t *testing.T) {
	ctx := context.Background()
	s := NewRunStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	s.Insert(ctx, sampleRun("run-b", "spread_momentum", base.Add(2*time.Hour)))
	s.Insert(ctx, sampleRun("run-a", "spread_momentum", base))
	s.Insert(ctx, sampleRun("run-c", "cdx_vix_gap", base.Add(time.Hour)))

	runs, err := s.GetBySignal(ctx, "spread_momentum")
	if err != nil {
		t.Fatalf("GetBySignal: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("got %d runs, want 2", len(runs))
	}
	if runs[0].RunID != "run-a" || runs[1].RunID != "run-b" {
		t.Errorf("runs out of order: %s, %s", runs[0].RunID, runs[1].RunID)
	}

	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d runs, want 3", len(all))
	}
	if all[0].RunID != "run-a" || all[1].RunID != "run-c" || all[2].RunID != "run-b" {
		t.Errorf("GetAll out of order: %s, %s, %s", all[0].RunID, all[1].RunID, all[2].RunID)
	}
}

func TestDatasetStore(t *testing.T) {
	ctx := context.Background()
	s := NewDatasetStore()
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	entry := &domain.DatasetEntry{
		DatasetID:    "ds-1",
		Instrument:   "CDX_IG",
		Tenor:        "5Y",
		Source:       "synthetic",
		RegisteredAt: now,
		RowCount:     252,
	}
	if err := s.Insert(ctx, entry); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, entry); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got err %v, want %v", err, storage.ErrDuplicateKey)
	}
	if err := s.Insert(ctx, &domain.DatasetEntry{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got err %v, want %v", err, storage.ErrInvalidInput)
	}

	got, err := s.GetByID(ctx, "ds-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Instrument != "CDX_IG" || got.RowCount != 252 {
		t.Errorf("got %+v", got)
	}
	if _, err := s.GetByID(ctx, "nope"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("got err %v, want %v", err, storage.ErrNotFound)
	}

	s.Insert(ctx, &domain.DatasetEntry{DatasetID: "ds-0", Instrument: "VIX"})
	all, err := s.GetAll(ctx)
	if err != nil {
		t.Fatalf("GetAll: %v", err)
	}
	if len(all) != 2 || all[0].Instrument != "CDX_IG" || all[1].Instrument != "VIX" {
		t.Errorf("GetAll ordering wrong: %+v", all)
	}
}

func TestSeriesStore(t *testing.T) {
	ctx := context.Background()
	s := NewSeriesStore()
	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	points := []domain.SeriesPoint{
		{Date: base, Value: 100},
		{Date: base.AddDate(0, 0, 1), Value: 101},
		{Date: base.AddDate(0, 0, 2), Value: 99},
	}
	if err := s.InsertBulk(ctx, "ds-1", points); err != nil {
		t.Fatalf("InsertBulk: %v", err)
	}

	// Whole-batch rejection on overlap with stored data.
	overlap := []domain.SeriesPoint{
		{Date: base.AddDate(0, 0, 3), Value: 98},
		{Date: base, Value: 97},
	}
	if err := s.InsertBulk(ctx, "ds-1", overlap); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got err %v, want %v", err, storage.ErrDuplicateKey)
	}
	got, _ := s.GetByDatasetID(ctx, "ds-1")
	if len(got) != 3 {
		t.Fatalf("partial batch applied: %d rows, want 3", len(got))
	}

	// Intra-batch duplicates also rejected.
	dup := []domain.SeriesPoint{
		{Date: base.AddDate(0, 0, 5), Value: 1},
		{Date: base.AddDate(0, 0, 5), Value: 2},
	}
	if err := s.InsertBulk(ctx, "ds-1", dup); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("got err %v, want %v", err, storage.ErrDuplicateKey)
	}

	if err := s.InsertBulk(ctx, "", points); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("got err %v, want %v", err, storage.ErrInvalidInput)
	}

	for i := 1; i < len(got); i++ {
		if !got[i-1].Date.Before(got[i].Date) {
			t.Fatal("series not ordered by date")
		}
	}

	ranged, err := s.GetByDateRange(ctx, "ds-1", base.AddDate(0, 0, 1), base.AddDate(0, 0, 2))
	if err != nil {
		t.Fatalf("GetByDateRange: %v", err)
	}
	if len(ranged) != 2 || ranged[0].Value != 101 || ranged[1].Value != 99 {
		t.Errorf("range query wrong: %+v", ranged)
	}

	empty, err := s.GetByDatasetID(ctx, "unknown")
	if err != nil {
		t.Fatalf("GetByDatasetID: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("got %d rows for unknown dataset, want 0", len(empty))
	}
}
