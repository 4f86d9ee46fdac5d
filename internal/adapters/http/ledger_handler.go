package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

// LedgerHandler handles daily task ledger requests
type LedgerHandler struct {
	ledgerService *services.LedgerService
	logger        *logger.Logger
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledgerService *services.LedgerService, logger *logger.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledgerService: ledgerService,
		logger:        logger,
	}
}

// AddTaskRequest adds a task to one list of a date's page.
type AddTaskRequest struct {
	List string `json:"list" validate:"required,oneof=shared personal"`
	Text string `json:"text"`
}

// ToggleTaskRequest flips done on one task. OwnerID is only meaningful
// for the personal list and defaults to the caller.
type ToggleTaskRequest struct {
	List    string `json:"list" validate:"required,oneof=shared personal"`
	TaskID  int64  `json:"task_id" validate:"required"`
	OwnerID string `json:"owner_id"`
}

// RestoreTaskRequest brings an archived task back onto a date's page.
type RestoreTaskRequest struct {
	Date    string        `json:"date" validate:"required"`
	List    string        `json:"list" validate:"required,oneof=shared personal"`
	OwnerID string        `json:"owner_id"`
	Task    entities.Task `json:"task"`
}

// GetPage handles viewing a date's page, lazily creating it with
// carry-over on first view
func (h *LedgerHandler) GetPage(c echo.Context) error {
	page, err := h.ledgerService.LoadOrCreatePage(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("date"),
		userIDFromContext(c),
	)
	if err != nil {
		h.logger.Error("Load task page failed", "error", err, "date", c.Param("date"))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

// AddTask handles appending a task to a page
func (h *LedgerHandler) AddTask(c echo.Context) error {
	var req AddTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.ledgerService.AddTask(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("date"),
		entities.ListKind(req.List),
		userIDFromContext(c),
		req.Text,
	)
	if err != nil {
		h.logger.Error("Add task failed", "error", err, "date", c.Param("date"))
		return httpError(err)
	}
	if task == nil {
		// Whitespace-only text: rejected locally, nothing changed.
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, task)
}

// ToggleTask handles flipping done on a task
func (h *LedgerHandler) ToggleTask(c echo.Context) error {
	var req ToggleTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ownerID := req.OwnerID
	if ownerID == "" {
		ownerID = userIDFromContext(c)
	}

	err := h.ledgerService.ToggleTask(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("date"),
		entities.ListKind(req.List),
		ownerID,
		req.TaskID,
	)
	if err != nil {
		h.logger.Error("Toggle task failed", "error", err, "date", c.Param("date"), "task_id", req.TaskID)
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// TearOffPage handles archiving a page and clearing its lists
func (h *LedgerHandler) TearOffPage(c echo.Context) error {
	archived, err := h.ledgerService.TearOffPage(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("date"),
	)
	if err != nil {
		h.logger.Error("Tear off failed", "error", err, "date", c.Param("date"))
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, archived)
}

// ListArchive handles listing torn-off pages, newest first
func (h *LedgerHandler) ListArchive(c echo.Context) error {
	pages, err := h.ledgerService.ListArchive(c.Request().Context(), pairingIDFromContext(c))
	if err != nil {
		h.logger.Error("List archive failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pages)
}

// RestoreTask handles restoring an archived task onto a live page
func (h *LedgerHandler) RestoreTask(c echo.Context) error {
	var req RestoreTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.ledgerService.RestoreTask(
		c.Request().Context(),
		pairingIDFromContext(c),
		req.Date,
		userIDFromContext(c),
		req.Task,
		entities.ListKind(req.List),
		req.OwnerID,
	)
	if err != nil {
		h.logger.Error("Restore task failed", "error", err, "date", req.Date)
		return httpError(err)
	}
	if task == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusCreated, task)
}

// WatchPage streams live page snapshots over server-sent events. The
// subscription is cancelled when the client disconnects.
func (h *LedgerHandler) WatchPage(c echo.Context) error {
	snapshots := make(chan *entities.TaskPage, 16)
	deliver := func(page *entities.TaskPage) {
		for {
			select {
			case snapshots <- page:
				return
			default:
				// Slow consumer: drop the oldest snapshot, the newest
				// full state supersedes it anyway.
				select {
				case <-snapshots:
				default:
				}
			}
		}
	}

	cancel, err := h.ledgerService.WatchPage(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("date"),
		userIDFromContext(c),
		deliver,
	)
	if err != nil {
		h.logger.Error("Watch page failed", "error", err, "date", c.Param("date"))
		return httpError(err)
	}
	defer cancel()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	resp.Flush()

	for {
		select {
		case <-c.Request().Context().Done():
			return nil
		case page := <-snapshots:
			data, err := json.Marshal(page)
			if err != nil {
				continue
			}
			fmt.Fprintf(resp, "data: %s\n\n", data)
			resp.Flush()
		}
	}
}
