package clickhouse_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"cdx-overlay-lab/internal/domain"
	"cdx-overlay-lab/internal/storage"
	chstore "cdx-overlay-lab/internal/storage/clickhouse"
	"cdx-overlay-lab/internal/storage/migrations"
)

// setupTestDB creates a ClickHouse container and applies the embedded
// migrations. Returns a cleanup function that must be called when done.
func setupTestDB(t *testing.T) (*chstore.Conn, func()) {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "clickhouse/clickhouse-server:24.1-alpine",
		ExposedPorts: []string{"9000/tcp", "8123/tcp"},
		WaitingFor: wait.ForAll(
			wait.ForLog("Application: Ready for connections").
				WithStartupTimeout(60*time.Second),
			wait.ForListeningPort("9000/tcp"),
		),
		Env: map[string]string{
			"CLICKHOUSE_DB":       "test",
			"CLICKHOUSE_USER":     "default",
			"CLICKHOUSE_PASSWORD": "",
		},
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "9000")
	require.NoError(t, err)

	dsn := fmt.Sprintf("clickhouse://%s:%s/test", host, port.Port())

	conn, err := migrations.RunClickhouseMigrations(ctx, dsn)
	require.NoError(t, err, "failed to apply clickhouse migrations")

	cleanup := func() {
		conn.Close()
		_ = container.Terminate(ctx)
	}

	return conn, cleanup
}

func day(i int) time.Time {
	return time.Date(2024, 8, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func TestSeriesStore_InsertAndQuery(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewSeriesStore(conn)

	points := []domain.SeriesPoint{
		{Date: day(0), Value: 100.5},
		{Date: day(1), Value: 101.25},
		{Date: day(2), Value: 99.75},
	}
	require.NoError(t, store.InsertBulk(ctx, "ds-cdx", points))

	got, err := store.GetByDatasetID(ctx, "ds-cdx")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i := range points {
		assert.True(t, points[i].Date.Equal(got[i].Date), "date %d", i)
		assert.InDelta(t, points[i].Value, got[i].Value, 1e-9, "value %d", i)
	}

	ranged, err := store.GetByDateRange(ctx, "ds-cdx", day(1), day(2))
	require.NoError(t, err)
	require.Len(t, ranged, 2)
	assert.InDelta(t, 101.25, ranged[0].Value, 1e-9)
	assert.InDelta(t, 99.75, ranged[1].Value, 1e-9)
}

func TestSeriesStore_DuplicateRejection(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewSeriesStore(conn)

	require.NoError(t, store.InsertBulk(ctx, "ds-dup", []domain.SeriesPoint{
		{Date: day(0), Value: 100},
	}))

	// Overlap with stored rows.
	err := store.InsertBulk(ctx, "ds-dup", []domain.SeriesPoint{
		{Date: day(0), Value: 101},
		{Date: day(1), Value: 102},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// Intra-batch duplicate.
	err = store.InsertBulk(ctx, "ds-dup", []domain.SeriesPoint{
		{Date: day(5), Value: 1},
		{Date: day(5), Value: 2},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The failed batches must not have written anything.
	got, err := store.GetByDatasetID(ctx, "ds-dup")
	require.NoError(t, err)
	assert.Len(t, got, 1)

	// Same dates under a different dataset are fine.
	require.NoError(t, store.InsertBulk(ctx, "ds-other", []domain.SeriesPoint{
		{Date: day(0), Value: 15},
	}))
}

func TestSeriesStore_InvalidInputAndEmpty(t *testing.T) {
	conn, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := chstore.NewSeriesStore(conn)

	assert.ErrorIs(t, store.InsertBulk(ctx, "", []domain.SeriesPoint{{Date: day(0), Value: 1}}), storage.ErrInvalidInput)
	assert.NoError(t, store.InsertBulk(ctx, "ds-empty", nil))

	got, err := store.GetByDatasetID(ctx, "ds-unknown")
	require.NoError(t, err)
	assert.Empty(t, got)
}
