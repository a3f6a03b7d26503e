package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/procaudit-cli/internal/core/domain"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCallCache_MissThenHit(t *testing.T) {
	s := testStore(t)
	cache := s.CallCache()

	_, err := cache.Get(context.Background(), "abc:ocr")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)

	require.NoError(t, cache.Put(context.Background(), "abc:ocr", []byte("payload")))

	got, err := cache.Get(context.Background(), "abc:ocr")
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), got)
}

func TestCallCache_PutReplaces(t *testing.T) {
	s := testStore(t)
	cache := s.CallCache()

	require.NoError(t, cache.Put(context.Background(), "k", []byte("old")))
	require.NoError(t, cache.Put(context.Background(), "k", []byte("new")))

	got, err := cache.Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), got)
}

func TestCallCache_SurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	s, err := NewStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.CallCache().Put(context.Background(), "k", []byte("v")))
	require.NoError(t, s.Close())

	reopened, err := NewStore(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.CallCache().Get(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), got)
}

func TestCheckpointStore(t *testing.T) {
	s := testStore(t)
	cp := s.CheckpointStore()

	done, err := cp.Done(context.Background(), "file-hash", "extract")
	require.NoError(t, err)
	assert.False(t, done)

	require.NoError(t, cp.Mark(context.Background(), "file-hash", "extract"))

	done, err = cp.Done(context.Background(), "file-hash", "extract")
	require.NoError(t, err)
	assert.True(t, done)

	// Other stages of the same key stay incomplete.
	done, err = cp.Done(context.Background(), "file-hash", "classify")
	require.NoError(t, err)
	assert.False(t, done)

	// Marking twice is idempotent.
	assert.NoError(t, cp.Mark(context.Background(), "file-hash", "extract"))
}

func TestRuns_SaveGetList(t *testing.T) {
	s := testStore(t)

	older := &domain.AuditResult{
		RunID:      "run-1",
		Root:       "/audits/siteA",
		StartedAt:  time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 5, 1, 9, 30, 0, 0, time.UTC),
		Findings: []domain.Finding{
			{Category: domain.CategoryConsistency, Kind: domain.FindingQuantityMismatch},
		},
	}
	newer := &domain.AuditResult{
		RunID:      "run-2",
		Root:       "/audits/siteA",
		StartedAt:  time.Date(2025, 5, 2, 9, 0, 0, 0, time.UTC),
		FinishedAt: time.Date(2025, 5, 2, 9, 15, 0, 0, time.UTC),
	}

	require.NoError(t, s.SaveRun(context.Background(), older))
	require.NoError(t, s.SaveRun(context.Background(), newer))

	got, err := s.GetRun(context.Background(), "run-1")
	require.NoError(t, err)
	assert.Equal(t, older.Root, got.Root)
	require.Len(t, got.Findings, 1)
	assert.Equal(t, domain.FindingQuantityMismatch, got.Findings[0].Kind)

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-2", runs[0].RunID)
	assert.Equal(t, "run-1", runs[1].RunID)
}

func TestGetRun_NotFound(t *testing.T) {
	s := testStore(t)
	_, err := s.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveRun_RequiresID(t *testing.T) {
	s := testStore(t)
	err := s.SaveRun(context.Background(), &domain.AuditResult{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClearCache(t *testing.T) {
	s := testStore(t)
	cache := s.CallCache()
	require.NoError(t, cache.Put(context.Background(), "a", []byte("1")))
	require.NoError(t, cache.Put(context.Background(), "b", []byte("2")))

	count, err := s.CacheStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	cleared, err := s.ClearCache(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, cleared)

	_, err = cache.Get(context.Background(), "a")
	assert.ErrorIs(t, err, domain.ErrCacheMiss)
}

func TestMigrate_IdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		s, err := NewStore(dir)
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
}
