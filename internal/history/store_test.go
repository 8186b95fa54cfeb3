package history

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acadrec/devstack/pkg/stack"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	store, err := NewStore(filepath.Join(t.TempDir(), "devstack"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func record(startedAt time.Time, outcome stack.RunOutcome, failedStep string) stack.RunRecord {
	return stack.RunRecord{
		ID:         uuid.New().String(),
		StartedAt:  startedAt,
		FinishedAt: startedAt.Add(30 * time.Second),
		Outcome:    outcome,
		FailedStep: failedStep,
		Services:   []string{"app", "db"},
	}
}

func TestStore(t *testing.T) {
	t.Run("SaveAndReadBack", func(t *testing.T) {
		store := newTestStore(t)

		started := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
		saved := record(started, stack.RunFailed, "build")
		saved.Error = "exit status 1"
		require.NoError(t, store.Save(saved))

		records, err := store.Recent(10)
		require.NoError(t, err)
		require.Len(t, records, 1)

		got := records[0]
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, started, got.StartedAt)
		assert.Equal(t, stack.RunFailed, got.Outcome)
		assert.Equal(t, "build", got.FailedStep)
		assert.Equal(t, "exit status 1", got.Error)
		assert.Equal(t, []string{"app", "db"}, got.Services)
	})

	t.Run("RecentOrdersNewestFirst", func(t *testing.T) {
		store := newTestStore(t)

		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Save(record(base.Add(time.Duration(i)*time.Minute), stack.RunSucceeded, "")))
		}

		records, err := store.Recent(3)
		require.NoError(t, err)
		require.Len(t, records, 3)
		assert.True(t, records[0].StartedAt.After(records[1].StartedAt))
		assert.True(t, records[1].StartedAt.After(records[2].StartedAt))
	})

	t.Run("EmptyStoreReturnsNothing", func(t *testing.T) {
		store := newTestStore(t)

		records, err := store.Recent(10)
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("ReopenSeesPreviousRuns", func(t *testing.T) {
		logger := logrus.New()
		logger.SetOutput(io.Discard)
		dir := filepath.Join(t.TempDir(), "devstack")

		store, err := NewStore(dir, logger)
		require.NoError(t, err)
		require.NoError(t, store.Save(record(time.Now().UTC(), stack.RunSucceeded, "")))
		require.NoError(t, store.Close())

		reopened, err := NewStore(dir, logger)
		require.NoError(t, err)
		defer reopened.Close()

		records, err := reopened.Recent(10)
		require.NoError(t, err)
		assert.Len(t, records, 1)
	})
}
