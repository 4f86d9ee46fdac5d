package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairbook/core/internal/adapters/docstore"
	"github.com/pairbook/core/internal/adapters/repository"
	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

func newLedgerService() *LedgerService {
	store := docstore.NewMemory()
	return NewLedgerService(
		repository.NewTaskPageRepository(store),
		repository.NewArchiveRepository(store),
		logger.NewNop(),
	)
}

func TestLoadOrCreatePage(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects a malformed date", func(t *testing.T) {
		svc := newLedgerService()
		_, err := svc.LoadOrCreatePage(ctx, "p1", "29-08-2026", "alex")
		assert.ErrorIs(t, err, entities.ErrInvalidDate)
	})

	t.Run("first view with no prior day yields an empty page", func(t *testing.T) {
		svc := newLedgerService()
		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.Equal(t, "2026-08-29", page.Date)
		assert.Empty(t, page.SharedTasks)
		assert.Contains(t, page.UserTasks, "alex")
	})

	t.Run("first view carries over yesterday's incomplete tasks", func(t *testing.T) {
		svc := newLedgerService()

		_, err := svc.AddTask(ctx, "p1", "2026-08-28", entities.ListShared, "alex", "plan trip")
		require.NoError(t, err)
		done, err := svc.AddTask(ctx, "p1", "2026-08-28", entities.ListShared, "alex", "water plants")
		require.NoError(t, err)
		_, err = svc.AddTask(ctx, "p1", "2026-08-28", entities.ListPersonal, "alex", "call mom")
		require.NoError(t, err)
		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-28", entities.ListShared, "", done.ID))

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)

		require.Len(t, page.SharedTasks, 1)
		assert.Equal(t, "plan trip", page.SharedTasks[0].Text)
		require.Len(t, page.UserTasks["alex"], 1)
		assert.Equal(t, "call mom", page.UserTasks["alex"][0].Text)
	})

	t.Run("completed tasks never reappear on later views", func(t *testing.T) {
		svc := newLedgerService()

		task, err := svc.AddTask(ctx, "p1", "2026-08-28", entities.ListShared, "alex", "one-off chore")
		require.NoError(t, err)
		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-28", entities.ListShared, "", task.ID))

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.Empty(t, page.SharedTasks)

		// Second view reads the stored page rather than carrying over again.
		page, err = svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "sam")
		require.NoError(t, err)
		assert.Empty(t, page.SharedTasks)
	})

	t.Run("existing page wins over carry-over", func(t *testing.T) {
		svc := newLedgerService()

		_, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "already here")
		require.NoError(t, err)
		_, err = svc.AddTask(ctx, "p1", "2026-08-28", entities.ListShared, "alex", "from yesterday")
		require.NoError(t, err)

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		require.Len(t, page.SharedTasks, 1)
		assert.Equal(t, "already here", page.SharedTasks[0].Text)
	})

	t.Run("pages are scoped per pairing", func(t *testing.T) {
		svc := newLedgerService()

		_, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "ours")
		require.NoError(t, err)

		page, err := svc.LoadOrCreatePage(ctx, "p2", "2026-08-29", "jo")
		require.NoError(t, err)
		assert.Empty(t, page.SharedTasks)
	})
}

func TestAddTask(t *testing.T) {
	ctx := context.Background()

	t.Run("whitespace-only text is a silent no-op", func(t *testing.T) {
		svc := newLedgerService()
		task, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "   ")
		require.NoError(t, err)
		assert.Nil(t, task)

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.Empty(t, page.SharedTasks)
	})

	t.Run("invalid list kind", func(t *testing.T) {
		svc := newLedgerService()
		_, err := svc.AddTask(ctx, "p1", "2026-08-29", "secret", "alex", "x")
		assert.ErrorIs(t, err, entities.ErrInvalidListKind)
	})

	t.Run("personal add does not clobber the partner's list", func(t *testing.T) {
		svc := newLedgerService()

		_, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListPersonal, "alex", "mine")
		require.NoError(t, err)
		_, err = svc.AddTask(ctx, "p1", "2026-08-29", entities.ListPersonal, "sam", "theirs")
		require.NoError(t, err)

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		require.Len(t, page.UserTasks["alex"], 1)
		require.Len(t, page.UserTasks["sam"], 1)
	})

	t.Run("ids are distinct under rapid adds", func(t *testing.T) {
		svc := newLedgerService()
		seen := map[int64]bool{}
		for i := 0; i < 20; i++ {
			task, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "chore")
			require.NoError(t, err)
			assert.False(t, seen[task.ID])
			seen[task.ID] = true
		}
	})
}

func TestToggleTask(t *testing.T) {
	ctx := context.Background()

	t.Run("round-trips done", func(t *testing.T) {
		svc := newLedgerService()
		task, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "x")
		require.NoError(t, err)

		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-29", entities.ListShared, "", task.ID))
		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.True(t, page.SharedTasks[0].Done)

		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-29", entities.ListShared, "", task.ID))
		page, err = svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.False(t, page.SharedTasks[0].Done)
	})

	t.Run("unknown task id is a no-op", func(t *testing.T) {
		svc := newLedgerService()
		_, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "x")
		require.NoError(t, err)
		assert.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-29", entities.ListShared, "", 424242))
	})

	t.Run("missing page", func(t *testing.T) {
		svc := newLedgerService()
		err := svc.ToggleTask(ctx, "p1", "2026-08-29", entities.ListShared, "", 1)
		assert.ErrorIs(t, err, entities.ErrPageNotFound)
	})
}

func TestTearOffPage(t *testing.T) {
	ctx := context.Background()

	t.Run("archives a snapshot and clears the live lists", func(t *testing.T) {
		svc := newLedgerService()

		shared, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "dinner")
		require.NoError(t, err)
		_, err = svc.AddTask(ctx, "p1", "2026-08-29", entities.ListPersonal, "alex", "journal")
		require.NoError(t, err)
		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-29", entities.ListShared, "", shared.ID))

		archived, err := svc.TearOffPage(ctx, "p1", "2026-08-29")
		require.NoError(t, err)
		assert.NotEmpty(t, archived.ID)
		assert.Equal(t, "2026-08-29", archived.Date)
		require.Len(t, archived.SharedTasks, 1)
		assert.True(t, archived.SharedTasks[0].Done)
		require.Len(t, archived.UserTasks["alex"], 1)
		assert.WithinDuration(t, time.Now().UTC(), archived.CompletedAt, 5*time.Second)

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.Empty(t, page.SharedTasks)
		assert.Contains(t, page.UserTasks, "alex")
		assert.Empty(t, page.UserTasks["alex"])
	})

	t.Run("missing page", func(t *testing.T) {
		svc := newLedgerService()
		_, err := svc.TearOffPage(ctx, "p1", "2026-08-29")
		assert.ErrorIs(t, err, entities.ErrPageNotFound)
	})

	t.Run("repeat tear-offs produce independent archive entries", func(t *testing.T) {
		svc := newLedgerService()

		_, err := svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "first round")
		require.NoError(t, err)
		first, err := svc.TearOffPage(ctx, "p1", "2026-08-29")
		require.NoError(t, err)

		_, err = svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "second round")
		require.NoError(t, err)
		second, err := svc.TearOffPage(ctx, "p1", "2026-08-29")
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)

		entries, err := svc.ListArchive(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, entries, 2)
		// Newest tear-off first.
		assert.Equal(t, "second round", entries[0].SharedTasks[0].Text)
	})
}

func TestRestoreTask(t *testing.T) {
	ctx := context.Background()

	t.Run("restored task is brand new and incomplete", func(t *testing.T) {
		svc := newLedgerService()

		original, err := svc.AddTask(ctx, "p1", "2026-08-28", entities.ListShared, "alex", "date night")
		require.NoError(t, err)
		require.NoError(t, svc.ToggleTask(ctx, "p1", "2026-08-28", entities.ListShared, "", original.ID))
		archived, err := svc.TearOffPage(ctx, "p1", "2026-08-28")
		require.NoError(t, err)

		restored, err := svc.RestoreTask(ctx, "p1", "2026-08-29", "alex",
			archived.SharedTasks[0], entities.ListShared, "")
		require.NoError(t, err)

		assert.NotEqual(t, original.ID, restored.ID)
		assert.Equal(t, "date night", restored.Text)
		assert.False(t, restored.Done)

		// The archive entry is never touched by a restore.
		entries, err := svc.ListArchive(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, entries, 1)
		require.Len(t, entries[0].SharedTasks, 1)
		assert.Equal(t, original.ID, entries[0].SharedTasks[0].ID)
		assert.True(t, entries[0].SharedTasks[0].Done)
	})

	t.Run("restoring twice yields two independent tasks", func(t *testing.T) {
		svc := newLedgerService()
		archivedTask := entities.Task{ID: 1000, Text: "picnic", Done: true}

		first, err := svc.RestoreTask(ctx, "p1", "2026-08-29", "alex", archivedTask, entities.ListShared, "")
		require.NoError(t, err)
		second, err := svc.RestoreTask(ctx, "p1", "2026-08-29", "alex", archivedTask, entities.ListShared, "")
		require.NoError(t, err)

		assert.NotEqual(t, first.ID, second.ID)
		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		assert.Len(t, page.SharedTasks, 2)
	})

	t.Run("restores into a departed member's personal list", func(t *testing.T) {
		svc := newLedgerService()
		archivedTask := entities.Task{ID: 1000, Text: "their chore", Done: false}

		_, err := svc.RestoreTask(ctx, "p1", "2026-08-29", "alex", archivedTask, entities.ListPersonal, "ghost")
		require.NoError(t, err)

		page, err := svc.LoadOrCreatePage(ctx, "p1", "2026-08-29", "alex")
		require.NoError(t, err)
		require.Len(t, page.UserTasks["ghost"], 1)
		assert.Equal(t, "their chore", page.UserTasks["ghost"][0].Text)
	})
}

func TestWatchPage(t *testing.T) {
	ctx := context.Background()

	t.Run("initial snapshot then change notifications", func(t *testing.T) {
		svc := newLedgerService()

		var snapshots []*entities.TaskPage
		cancel, err := svc.WatchPage(ctx, "p1", "2026-08-29", "alex", func(page *entities.TaskPage) {
			snapshots = append(snapshots, page)
		})
		require.NoError(t, err)
		defer cancel()

		require.NotEmpty(t, snapshots)
		assert.Equal(t, "2026-08-29", snapshots[0].Date)

		_, err = svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "new task")
		require.NoError(t, err)

		last := snapshots[len(snapshots)-1]
		require.Len(t, last.SharedTasks, 1)
		assert.Equal(t, "new task", last.SharedTasks[0].Text)
	})

	t.Run("cancel stops delivery", func(t *testing.T) {
		svc := newLedgerService()

		var count int
		cancel, err := svc.WatchPage(ctx, "p1", "2026-08-29", "alex", func(*entities.TaskPage) {
			count++
		})
		require.NoError(t, err)
		cancel()

		before := count
		_, err = svc.AddTask(ctx, "p1", "2026-08-29", entities.ListShared, "alex", "unseen")
		require.NoError(t, err)
		assert.Equal(t, before, count)
	})
}
