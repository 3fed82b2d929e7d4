package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/tokyo-appraiser/internal/common"
	"github.com/Veraticus/tokyo-appraiser/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteStorage {
	t.Helper()
	store, err := NewSQLiteStorage(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func testRun(id string, day int) *model.TrainingRun {
	run := model.NewTrainingRun(id, time.Date(2024, 1, day, 9, 30, 0, 0, time.UTC), 8123456, 12.3456, 60000, 3000)
	return &run
}

func TestMigrate(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, ExpectedSchemaVersion, version)

	// Migrating again is a no-op.
	require.NoError(t, store.Migrate(ctx))
}

func TestAppendAndListRuns(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	for i, id := range []string{"a", "b", "c"} {
		require.NoError(t, store.AppendRun(ctx, testRun(id, i+1)))
	}

	all, err := store.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].ID)
	assert.Equal(t, "c", all[2].ID)
	assert.Equal(t, *testRun("a", 1), all[0])

	recent, err := store.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, []string{"b", "c"}, []string{recent[0].ID, recent[1].ID})

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, "c", latest.ID)

	n, err := store.CountRuns(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = store.ListRuns(ctx, -1)
	assert.ErrorIs(t, err, ErrInvalidRunLimit)
}

func TestLatestRun_Empty(t *testing.T) {
	store := createTestStorage(t)
	_, err := store.LatestRun(context.Background())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestAppendRun_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	tests := []struct {
		mutate func(*model.TrainingRun)
		name   string
	}{
		{name: "missing id", mutate: func(r *model.TrainingRun) { r.ID = "" }},
		{name: "missing time", mutate: func(r *model.TrainingRun) { r.RunAt = time.Time{} }},
		{name: "negative mae", mutate: func(r *model.TrainingRun) { r.MAE = -1 }},
		{name: "no validation rows", mutate: func(r *model.TrainingRun) { r.ValidationRows = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			run := testRun("x", 1)
			tt.mutate(run)
			assert.ErrorIs(t, store.AppendRun(ctx, run), ErrInvalidRun)
		})
	}

	assert.ErrorIs(t, store.AppendRun(ctx, nil), ErrNilParameter)
}

func TestAppendRun_DuplicateID(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	require.NoError(t, store.AppendRun(ctx, testRun("dup", 1)))
	assert.ErrorIs(t, store.AppendRun(ctx, testRun("dup", 2)), ErrDuplicateRunID)
}

func TestHistoryIsAppendOnly(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRun(ctx, testRun("keep", 1)))

	_, err := store.db.ExecContext(ctx, `UPDATE training_runs SET mae = 0`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "append-only")

	_, err = store.db.ExecContext(ctx, `DELETE FROM training_runs`)
	require.Error(t, err)

	latest, err := store.LatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, 8123456.0, latest.MAE)
}

func TestNewSQLiteStorage_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history.db")
	store, err := NewSQLiteStorage(path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	require.NoError(t, store.Migrate(context.Background()))
	assert.Equal(t, path, store.Path())

	_, err = NewSQLiteStorage("  ")
	assert.ErrorIs(t, err, ErrEmptyString)
}
