package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairbook/core/internal/adapters/docstore"
	"github.com/pairbook/core/internal/adapters/repository"
	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

func newEventService() (*EventService, *LedgerService) {
	store := docstore.NewMemory()
	ledger := NewLedgerService(
		repository.NewTaskPageRepository(store),
		repository.NewArchiveRepository(store),
		logger.NewNop(),
	)
	events := NewEventService(repository.NewEventRepository(store), ledger, logger.NewNop())
	return events, ledger
}

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("creates with defaults", func(t *testing.T) {
		svc, _ := newEventService()
		event, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{
			Date:  "2026-09-12",
			Title: "First date anniversary",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, event.ID)
		assert.Equal(t, entities.EventTypeAnniversary, event.Type)
	})

	t.Run("rejects a malformed date", func(t *testing.T) {
		svc, _ := newEventService()
		_, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{Date: "next tuesday", Title: "x"})
		assert.ErrorIs(t, err, entities.ErrInvalidDate)
	})

	t.Run("rejects an unknown type", func(t *testing.T) {
		svc, _ := newEventService()
		_, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{Date: "2026-09-12", Title: "x", Type: "party"})
		assert.ErrorIs(t, err, entities.ErrInvalidEventType)
	})
}

func TestUpdateEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService()

	event, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{Date: "2026-09-12", Title: "Dinner"})
	require.NoError(t, err)

	t.Run("patches only the provided fields", func(t *testing.T) {
		title := "Dinner at eight"
		updated, err := svc.UpdateEvent(ctx, "p1", event.ID, UpdateEventRequest{Title: &title})
		require.NoError(t, err)
		assert.Equal(t, "Dinner at eight", updated.Title)
		assert.Equal(t, "2026-09-12", updated.Date)

		stored, err := svc.ListEvents(ctx, "p1")
		require.NoError(t, err)
		require.Len(t, stored, 1)
		assert.Equal(t, "Dinner at eight", stored[0].Title)
	})

	t.Run("rejects an invalid new date", func(t *testing.T) {
		bad := "soon"
		_, err := svc.UpdateEvent(ctx, "p1", event.ID, UpdateEventRequest{Date: &bad})
		assert.ErrorIs(t, err, entities.ErrInvalidDate)
	})

	t.Run("unknown event", func(t *testing.T) {
		title := "x"
		_, err := svc.UpdateEvent(ctx, "p1", "missing", UpdateEventRequest{Title: &title})
		assert.ErrorIs(t, err, entities.ErrEventNotFound)
	})
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newEventService()

	event, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{Date: "2026-09-12", Title: "Dinner"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteEvent(ctx, "p1", event.ID))

	events, err := svc.ListEvents(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, svc.DeleteEvent(ctx, "p1", event.ID), entities.ErrEventNotFound)
}

func TestAddEventToTasks(t *testing.T) {
	ctx := context.Background()

	t.Run("pushes the title onto the shared list of the event date", func(t *testing.T) {
		svc, ledger := newEventService()
		event, err := svc.CreateEvent(ctx, "p1", CreateEventRequest{Date: "2026-09-12", Title: "Anniversary dinner"})
		require.NoError(t, err)

		task, err := svc.AddEventToTasks(ctx, "p1", event.ID, "alex")
		require.NoError(t, err)
		require.NotNil(t, task)
		assert.Equal(t, "Anniversary dinner", task.Text)

		page, err := ledger.LoadOrCreatePage(ctx, "p1", "2026-09-12", "alex")
		require.NoError(t, err)
		require.Len(t, page.SharedTasks, 1)
		assert.Equal(t, "Anniversary dinner", page.SharedTasks[0].Text)
	})

	t.Run("unknown event", func(t *testing.T) {
		svc, _ := newEventService()
		_, err := svc.AddEventToTasks(ctx, "p1", "missing", "alex")
		assert.ErrorIs(t, err, entities.ErrEventNotFound)
	})
}
