package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/ports"
)

// Collection path conventions. Every pairing-scoped collection lives under
// the pairing's document path.
const pairingsCollection = "pairings"

func pagesCollection(pairingID string) string {
	return pairingsCollection + "/" + pairingID + "/dailyTasks"
}

func historyCollection(pairingID string) string {
	return pairingsCollection + "/" + pairingID + "/taskHistory"
}

func eventsCollection(pairingID string) string {
	return pairingsCollection + "/" + pairingID + "/events"
}

func postsCollection(pairingID string) string {
	return pairingsCollection + "/" + pairingID + "/posts"
}

// TaskPageRepositoryImpl implements the TaskPageRepository interface over
// a document store. Pages are keyed by their ISO date.
type TaskPageRepositoryImpl struct {
	store ports.DocStore
}

// NewTaskPageRepository creates a new task page repository.
func NewTaskPageRepository(store ports.DocStore) ports.TaskPageRepository {
	return &TaskPageRepositoryImpl{store: store}
}

func (r *TaskPageRepositoryImpl) Get(ctx context.Context, pairingID, date string) (*entities.TaskPage, error) {
	data, err := r.store.Get(ctx, pagesCollection(pairingID), date)
	if err == entities.ErrDocumentNotFound {
		return nil, entities.ErrPageNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get task page: %w", err)
	}

	var page entities.TaskPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("unmarshal task page: %w", err)
	}
	return &page, nil
}

func (r *TaskPageRepositoryImpl) Create(ctx context.Context, pairingID string, page *entities.TaskPage) (bool, error) {
	created, err := r.store.Create(ctx, pagesCollection(pairingID), page.Date, page)
	if err != nil {
		return false, fmt.Errorf("create task page: %w", err)
	}
	return created, nil
}

func (r *TaskPageRepositoryImpl) SetSharedTasks(ctx context.Context, pairingID, date string, tasks []entities.Task) error {
	err := r.store.Update(ctx, pagesCollection(pairingID), date, map[string]any{
		"sharedTasks": tasks,
	})
	if err != nil {
		return fmt.Errorf("set shared tasks: %w", err)
	}
	return nil
}

func (r *TaskPageRepositoryImpl) SetUserTasks(ctx context.Context, pairingID, date, userID string, tasks []entities.Task) error {
	// Dotted path: replace only this user's list so a concurrent write to
	// the partner's list is not clobbered.
	err := r.store.Update(ctx, pagesCollection(pairingID), date, map[string]any{
		"userTasks." + userID: tasks,
	})
	if err != nil {
		return fmt.Errorf("set user tasks: %w", err)
	}
	return nil
}

func (r *TaskPageRepositoryImpl) ResetLists(ctx context.Context, pairingID, date string, shared []entities.Task, users map[string][]entities.Task) error {
	err := r.store.Update(ctx, pagesCollection(pairingID), date, map[string]any{
		"sharedTasks": shared,
		"userTasks":   users,
	})
	if err != nil {
		return fmt.Errorf("reset task lists: %w", err)
	}
	return nil
}

func (r *TaskPageRepositoryImpl) Watch(ctx context.Context, pairingID, date string, fn func(*entities.TaskPage)) (func(), error) {
	return r.store.Subscribe(ctx, pagesCollection(pairingID), date, func(doc json.RawMessage) {
		if doc == nil {
			fn(nil)
			return
		}
		var page entities.TaskPage
		if err := json.Unmarshal(doc, &page); err != nil {
			// A malformed snapshot is dropped rather than delivered torn.
			return
		}
		fn(&page)
	})
}
