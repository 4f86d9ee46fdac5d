package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

// EventHandler handles calendar event requests
type EventHandler struct {
	eventService *services.EventService
	logger       *logger.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *services.EventService, logger *logger.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// CreateEvent handles event creation
func (h *EventHandler) CreateEvent(c echo.Context) error {
	var req services.CreateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	event, err := h.eventService.CreateEvent(c.Request().Context(), pairingIDFromContext(c), req)
	if err != nil {
		h.logger.Error("Create event failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, event)
}

// ListEvents handles listing the pairing's events
func (h *EventHandler) ListEvents(c echo.Context) error {
	events, err := h.eventService.ListEvents(c.Request().Context(), pairingIDFromContext(c))
	if err != nil {
		h.logger.Error("List events failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, events)
}

// UpdateEvent handles a partial event edit
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	var req services.UpdateEventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	event, err := h.eventService.UpdateEvent(c.Request().Context(), pairingIDFromContext(c), c.Param("id"), req)
	if err != nil {
		h.logger.Error("Update event failed", "error", err, "event_id", c.Param("id"))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, event)
}

// DeleteEvent handles event deletion
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	err := h.eventService.DeleteEvent(c.Request().Context(), pairingIDFromContext(c), c.Param("id"))
	if err != nil {
		h.logger.Error("Delete event failed", "error", err, "event_id", c.Param("id"))
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// AddEventToTasks handles pushing an event onto that date's task page
func (h *EventHandler) AddEventToTasks(c echo.Context) error {
	task, err := h.eventService.AddEventToTasks(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("id"),
		userIDFromContext(c),
	)
	if err != nil {
		h.logger.Error("Add event to tasks failed", "error", err, "event_id", c.Param("id"))
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, task)
}
