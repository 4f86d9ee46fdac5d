package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/ports"
)

// ArchiveRepositoryImpl implements the ArchiveRepository interface over a
// document store. History keys are server-assigned; entries are write-once.
type ArchiveRepositoryImpl struct {
	store ports.DocStore
}

// NewArchiveRepository creates a new archive repository.
func NewArchiveRepository(store ports.DocStore) ports.ArchiveRepository {
	return &ArchiveRepositoryImpl{store: store}
}

func (r *ArchiveRepositoryImpl) Add(ctx context.Context, pairingID string, page *entities.ArchivedPage) (string, error) {
	key, err := r.store.Add(ctx, historyCollection(pairingID), page)
	if err != nil {
		return "", fmt.Errorf("add archived page: %w", err)
	}
	return key, nil
}

func (r *ArchiveRepositoryImpl) List(ctx context.Context, pairingID string) ([]*entities.ArchivedPage, error) {
	records, err := r.store.Query(ctx, historyCollection(pairingID), ports.Query{
		OrderBy:    "completedAt",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list archived pages: %w", err)
	}

	pages := make([]*entities.ArchivedPage, 0, len(records))
	for _, rec := range records {
		var page entities.ArchivedPage
		if err := json.Unmarshal(rec.Data, &page); err != nil {
			return nil, fmt.Errorf("unmarshal archived page: %w", err)
		}
		page.ID = rec.Key
		pages = append(pages, &page)
	}
	return pages, nil
}

// EventRepositoryImpl implements the EventRepository interface over a
// document store.
type EventRepositoryImpl struct {
	store ports.DocStore
}

// NewEventRepository creates a new event repository.
func NewEventRepository(store ports.DocStore) ports.EventRepository {
	return &EventRepositoryImpl{store: store}
}

func (r *EventRepositoryImpl) Add(ctx context.Context, pairingID string, event *entities.Event) (string, error) {
	key, err := r.store.Add(ctx, eventsCollection(pairingID), event)
	if err != nil {
		return "", fmt.Errorf("add event: %w", err)
	}
	return key, nil
}

func (r *EventRepositoryImpl) Get(ctx context.Context, pairingID, id string) (*entities.Event, error) {
	data, err := r.store.Get(ctx, eventsCollection(pairingID), id)
	if err == entities.ErrDocumentNotFound {
		return nil, entities.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}

	var event entities.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}
	event.ID = id
	return &event, nil
}

func (r *EventRepositoryImpl) Update(ctx context.Context, pairingID string, event *entities.Event) error {
	err := r.store.Update(ctx, eventsCollection(pairingID), event.ID, map[string]any{
		"date":        event.Date,
		"title":       event.Title,
		"description": event.Description,
		"type":        event.Type,
	})
	if err == entities.ErrDocumentNotFound {
		return entities.ErrEventNotFound
	}
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return nil
}

func (r *EventRepositoryImpl) Delete(ctx context.Context, pairingID, id string) error {
	if err := r.store.Delete(ctx, eventsCollection(pairingID), id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

func (r *EventRepositoryImpl) List(ctx context.Context, pairingID string) ([]*entities.Event, error) {
	records, err := r.store.Query(ctx, eventsCollection(pairingID), ports.Query{
		OrderBy: "createdAt",
	})
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	events := make([]*entities.Event, 0, len(records))
	for _, rec := range records {
		var event entities.Event
		if err := json.Unmarshal(rec.Data, &event); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		event.ID = rec.Key
		events = append(events, &event)
	}
	return events, nil
}

// PostRepositoryImpl implements the PostRepository interface over a
// document store.
type PostRepositoryImpl struct {
	store ports.DocStore
}

// NewPostRepository creates a new post repository.
func NewPostRepository(store ports.DocStore) ports.PostRepository {
	return &PostRepositoryImpl{store: store}
}

func (r *PostRepositoryImpl) Add(ctx context.Context, pairingID string, post *entities.Post) (string, error) {
	key, err := r.store.Add(ctx, postsCollection(pairingID), post)
	if err != nil {
		return "", fmt.Errorf("add post: %w", err)
	}
	return key, nil
}

func (r *PostRepositoryImpl) Get(ctx context.Context, pairingID, id string) (*entities.Post, error) {
	data, err := r.store.Get(ctx, postsCollection(pairingID), id)
	if err == entities.ErrDocumentNotFound {
		return nil, entities.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	var post entities.Post
	if err := json.Unmarshal(data, &post); err != nil {
		return nil, fmt.Errorf("unmarshal post: %w", err)
	}
	post.ID = id
	return &post, nil
}

func (r *PostRepositoryImpl) SetLikes(ctx context.Context, pairingID, id string, likes int, likedBy []string) error {
	err := r.store.Update(ctx, postsCollection(pairingID), id, map[string]any{
		"likes":   likes,
		"likedBy": likedBy,
	})
	if err == entities.ErrDocumentNotFound {
		return entities.ErrPostNotFound
	}
	if err != nil {
		return fmt.Errorf("set post likes: %w", err)
	}
	return nil
}

func (r *PostRepositoryImpl) Delete(ctx context.Context, pairingID, id string) error {
	if err := r.store.Delete(ctx, postsCollection(pairingID), id); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return nil
}

func (r *PostRepositoryImpl) List(ctx context.Context, pairingID string) ([]*entities.Post, error) {
	records, err := r.store.Query(ctx, postsCollection(pairingID), ports.Query{
		OrderBy:    "createdAt",
		Descending: true,
	})
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	posts := make([]*entities.Post, 0, len(records))
	for _, rec := range records {
		var post entities.Post
		if err := json.Unmarshal(rec.Data, &post); err != nil {
			return nil, fmt.Errorf("unmarshal post: %w", err)
		}
		post.ID = rec.Key
		posts = append(posts, &post)
	}
	return posts, nil
}
