package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
	"github.com/pairbook/core/internal/ports"
)

// CreateEventRequest carries the fields for a new calendar event.
type CreateEventRequest struct {
	Date        string `json:"date" validate:"required"`
	Title       string `json:"title" validate:"required"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// UpdateEventRequest carries a partial event edit; nil fields are left
// unchanged.
type UpdateEventRequest struct {
	Date        *string `json:"date"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Type        *string `json:"type"`
}

// EventService handles calendar events and their hand-off into the daily
// task ledger.
type EventService struct {
	events ports.EventRepository
	ledger *LedgerService
	logger *logger.Logger
}

// NewEventService creates a new event service.
func NewEventService(events ports.EventRepository, ledger *LedgerService, logger *logger.Logger) *EventService {
	return &EventService{
		events: events,
		ledger: ledger,
		logger: logger,
	}
}

// CreateEvent creates a calendar event on a date.
func (s *EventService) CreateEvent(ctx context.Context, pairingID string, req CreateEventRequest) (*entities.Event, error) {
	if _, err := parseDate(req.Date); err != nil {
		return nil, err
	}

	eventType := entities.EventType(req.Type)
	if req.Type == "" {
		eventType = entities.EventTypeAnniversary
	}
	if !eventType.IsValid() {
		return nil, entities.ErrInvalidEventType
	}

	event := &entities.Event{
		Date:        req.Date,
		Title:       req.Title,
		Description: req.Description,
		Type:        eventType,
		CreatedAt:   time.Now().UTC(),
	}

	id, err := s.events.Add(ctx, pairingID, event)
	if err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	event.ID = id

	s.logger.Info("Event created", "pairing_id", pairingID, "event_id", id, "date", event.Date)

	return event, nil
}

// UpdateEvent merge-patches an event's mutable fields.
func (s *EventService) UpdateEvent(ctx context.Context, pairingID, id string, req UpdateEventRequest) (*entities.Event, error) {
	event, err := s.events.Get(ctx, pairingID, id)
	if err != nil {
		return nil, err
	}

	if req.Date != nil {
		if _, err := parseDate(*req.Date); err != nil {
			return nil, err
		}
		event.Date = *req.Date
	}
	if req.Title != nil {
		event.Title = *req.Title
	}
	if req.Description != nil {
		event.Description = *req.Description
	}
	if req.Type != nil {
		eventType := entities.EventType(*req.Type)
		if !eventType.IsValid() {
			return nil, entities.ErrInvalidEventType
		}
		event.Type = eventType
	}

	if err := s.events.Update(ctx, pairingID, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// DeleteEvent removes an event.
func (s *EventService) DeleteEvent(ctx context.Context, pairingID, id string) error {
	if _, err := s.events.Get(ctx, pairingID, id); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, pairingID, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// ListEvents returns all events for the pairing in creation order.
func (s *EventService) ListEvents(ctx context.Context, pairingID string) ([]*entities.Event, error) {
	events, err := s.events.List(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// AddEventToTasks pushes an event's title onto the shared list of the
// event date's task page. The page is lazily created through the ledger,
// so carry-over applies as on any first view of that date.
func (s *EventService) AddEventToTasks(ctx context.Context, pairingID, eventID, requestingUserID string) (*entities.Task, error) {
	event, err := s.events.Get(ctx, pairingID, eventID)
	if err != nil {
		return nil, err
	}

	task, err := s.ledger.AddTask(ctx, pairingID, event.Date, entities.ListShared, requestingUserID, event.Title)
	if err != nil {
		return nil, fmt.Errorf("add event to tasks: %w", err)
	}

	s.logger.Info("Event added to tasks",
		"pairing_id", pairingID,
		"event_id", eventID,
		"date", event.Date,
	)

	return task, nil
}
