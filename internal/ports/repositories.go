package ports

import (
	"context"

	"github.com/pairbook/core/internal/domain/entities"
)

// TaskPageRepository defines data operations on live daily task pages.
// Mutations are field-granular: a write touches either the shared list or
// a single user's personal list, never the whole page, so concurrent edits
// by the two partners to different lists do not clobber each other.
type TaskPageRepository interface {
	Get(ctx context.Context, pairingID, date string) (*entities.TaskPage, error)
	// Create persists a page only if none exists for the date yet; it
	// reports whether this call won the creation.
	Create(ctx context.Context, pairingID string, page *entities.TaskPage) (bool, error)
	SetSharedTasks(ctx context.Context, pairingID, date string, tasks []entities.Task) error
	SetUserTasks(ctx context.Context, pairingID, date, userID string, tasks []entities.Task) error
	// ResetLists replaces the shared list and the whole personal-list map
	// in one write (the tear-off reset).
	ResetLists(ctx context.Context, pairingID, date string, shared []entities.Task, users map[string][]entities.Task) error
	// Watch streams full page snapshots: once immediately, then on every
	// change. A nil page means the document is gone.
	Watch(ctx context.Context, pairingID, date string, fn func(*entities.TaskPage)) (func(), error)
}

// ArchiveRepository defines operations on the append-only tear-off history.
type ArchiveRepository interface {
	Add(ctx context.Context, pairingID string, page *entities.ArchivedPage) (string, error)
	// List returns all archived pages ordered by completedAt descending.
	List(ctx context.Context, pairingID string) ([]*entities.ArchivedPage, error)
}

// PairingRepository defines operations on pairing membership documents.
type PairingRepository interface {
	Create(ctx context.Context, pairing *entities.Pairing) error
	Get(ctx context.Context, id string) (*entities.Pairing, error)
	FindByCode(ctx context.Context, code string) (*entities.Pairing, error)
	SetMembership(ctx context.Context, id string, members []string, code *string) error
}

// EventRepository defines operations on calendar events.
type EventRepository interface {
	Add(ctx context.Context, pairingID string, event *entities.Event) (string, error)
	Get(ctx context.Context, pairingID, id string) (*entities.Event, error)
	// Update merge-patches the mutable fields (date, title, description,
	// type), leaving createdAt untouched.
	Update(ctx context.Context, pairingID string, event *entities.Event) error
	Delete(ctx context.Context, pairingID, id string) error
	// List returns all events ordered by createdAt ascending.
	List(ctx context.Context, pairingID string) ([]*entities.Event, error)
}

// PostRepository defines operations on memory-wall posts.
type PostRepository interface {
	Add(ctx context.Context, pairingID string, post *entities.Post) (string, error)
	Get(ctx context.Context, pairingID, id string) (*entities.Post, error)
	SetLikes(ctx context.Context, pairingID, id string, likes int, likedBy []string) error
	Delete(ctx context.Context, pairingID, id string) error
	// List returns all posts ordered by createdAt descending.
	List(ctx context.Context, pairingID string) ([]*entities.Post, error)
}
