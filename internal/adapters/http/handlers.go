package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

// Context keys populated by the pairing-token middleware.
const (
	ContextUserID    = "user_id"
	ContextPairingID = "pairing_id"
)

func userIDFromContext(c echo.Context) string {
	if id, ok := c.Get(ContextUserID).(string); ok {
		return id
	}
	return ""
}

func pairingIDFromContext(c echo.Context) string {
	if id, ok := c.Get(ContextPairingID).(string); ok {
		return id
	}
	return ""
}

// httpError maps domain errors onto HTTP status codes. Storage failures
// become a retryable 503 so a loading client never mistakes them for an
// authoritative empty result.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, entities.ErrStorageUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Storage unavailable, please retry")
	case errors.Is(err, entities.ErrPageNotFound),
		errors.Is(err, entities.ErrPairingNotFound),
		errors.Is(err, entities.ErrEventNotFound),
		errors.Is(err, entities.ErrPostNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, entities.ErrInvalidDate),
		errors.Is(err, entities.ErrInvalidListKind),
		errors.Is(err, entities.ErrInvalidEventType),
		errors.Is(err, entities.ErrInvalidPairingCode):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, entities.ErrPairingFull),
		errors.Is(err, entities.ErrAlreadyMember):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "Internal server error")
	}
}

// Shared response types
type MessageResponse struct {
	Message string `json:"message"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PairingHandler handles pairing lifecycle requests
type PairingHandler struct {
	pairingService *services.PairingService
	tokenService   *services.TokenService
	logger         *logger.Logger
}

// NewPairingHandler creates a new pairing handler
func NewPairingHandler(pairingService *services.PairingService, tokenService *services.TokenService, logger *logger.Logger) *PairingHandler {
	return &PairingHandler{
		pairingService: pairingService,
		tokenService:   tokenService,
		logger:         logger,
	}
}

// CreatePairingRequest identifies the user opening a new pairing space.
type CreatePairingRequest struct {
	UserID string `json:"user_id" validate:"required"`
}

// JoinPairingRequest identifies the user joining and the code they hold.
type JoinPairingRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Code   string `json:"code" validate:"required"`
}

// PairingResponse returns the pairing together with the bearer token the
// client uses on all pairing-scoped routes.
type PairingResponse struct {
	Pairing *entities.Pairing `json:"pairing"`
	Token   string            `json:"token"`
}

// CreatePairing handles opening a new pairing space
func (h *PairingHandler) CreatePairing(c echo.Context) error {
	var req CreatePairingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pairing, err := h.pairingService.Create(c.Request().Context(), req.UserID)
	if err != nil {
		h.logger.Error("Create pairing failed", "error", err, "user_id", req.UserID)
		return httpError(err)
	}

	token, err := h.tokenService.Issue(req.UserID, pairing.ID)
	if err != nil {
		h.logger.Error("Issue pairing token failed", "error", err, "pairing_id", pairing.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(http.StatusCreated, PairingResponse{Pairing: pairing, Token: token})
}

// JoinPairing handles joining an existing pairing by code
func (h *PairingHandler) JoinPairing(c echo.Context) error {
	var req JoinPairingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	pairing, err := h.pairingService.Join(c.Request().Context(), req.UserID, req.Code)
	if err != nil {
		h.logger.Error("Join pairing failed", "error", err, "user_id", req.UserID)
		return httpError(err)
	}

	token, err := h.tokenService.Issue(req.UserID, pairing.ID)
	if err != nil {
		h.logger.Error("Issue pairing token failed", "error", err, "pairing_id", pairing.ID)
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue token")
	}

	return c.JSON(http.StatusOK, PairingResponse{Pairing: pairing, Token: token})
}

// GetPairing returns the caller's pairing
func (h *PairingHandler) GetPairing(c echo.Context) error {
	pairing, err := h.pairingService.Get(c.Request().Context(), pairingIDFromContext(c))
	if err != nil {
		h.logger.Error("Get pairing failed", "error", err, "pairing_id", pairingIDFromContext(c))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pairing)
}
