package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

// PostHandler handles memory-wall requests
type PostHandler struct {
	postService *services.PostService
	logger      *logger.Logger
}

// NewPostHandler creates a new post handler
func NewPostHandler(postService *services.PostService, logger *logger.Logger) *PostHandler {
	return &PostHandler{
		postService: postService,
		logger:      logger,
	}
}

// CreatePost handles adding a post to the wall
func (h *PostHandler) CreatePost(c echo.Context) error {
	var req services.CreatePostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	post, err := h.postService.CreatePost(c.Request().Context(), pairingIDFromContext(c), userIDFromContext(c), req)
	if err != nil {
		h.logger.Error("Create post failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, post)
}

// ListPosts handles listing the wall, newest first
func (h *PostHandler) ListPosts(c echo.Context) error {
	posts, err := h.postService.ListPosts(c.Request().Context(), pairingIDFromContext(c))
	if err != nil {
		h.logger.Error("List posts failed", "error", err)
		return httpError(err)
	}
	return c.JSON(http.StatusOK, posts)
}

// ToggleLike handles liking or un-liking a post
func (h *PostHandler) ToggleLike(c echo.Context) error {
	post, err := h.postService.ToggleLike(
		c.Request().Context(),
		pairingIDFromContext(c),
		c.Param("id"),
		userIDFromContext(c),
	)
	if err != nil {
		h.logger.Error("Toggle like failed", "error", err, "post_id", c.Param("id"))
		return httpError(err)
	}
	return c.JSON(http.StatusOK, post)
}

// DeletePost handles removing a post from the wall
func (h *PostHandler) DeletePost(c echo.Context) error {
	err := h.postService.DeletePost(c.Request().Context(), pairingIDFromContext(c), c.Param("id"))
	if err != nil {
		h.logger.Error("Delete post failed", "error", err, "post_id", c.Param("id"))
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
