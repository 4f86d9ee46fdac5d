package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pairbook/core/internal/adapters/docstore"
	"github.com/pairbook/core/internal/adapters/repository"
	"github.com/pairbook/core/internal/application/services"
	"github.com/pairbook/core/internal/domain/entities"
	"github.com/pairbook/core/internal/infrastructure/logger"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i interface{}) error {
	return v.validator.Struct(i)
}

func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}
	return e
}

func newLedgerHandler() *LedgerHandler {
	store := docstore.NewMemory()
	svc := services.NewLedgerService(
		repository.NewTaskPageRepository(store),
		repository.NewArchiveRepository(store),
		logger.NewNop(),
	)
	return NewLedgerHandler(svc, logger.NewNop())
}

func newLedgerContext(e *echo.Echo, method, body, date string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("date")
	c.SetParamValues(date)
	c.Set(ContextUserID, "alex")
	c.Set(ContextPairingID, "p1")
	return c, rec
}

func TestGetPageHandler(t *testing.T) {
	e := newTestEcho()
	h := newLedgerHandler()

	t.Run("lazily creates the page", func(t *testing.T) {
		c, rec := newLedgerContext(e, http.MethodGet, "", "2026-08-29")
		require.NoError(t, h.GetPage(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var page entities.TaskPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.Equal(t, "2026-08-29", page.Date)
		assert.Contains(t, page.UserTasks, "alex")
	})

	t.Run("malformed date is a 400", func(t *testing.T) {
		c, _ := newLedgerContext(e, http.MethodGet, "", "today")
		err := h.GetPage(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestAddTaskHandler(t *testing.T) {
	e := newTestEcho()
	h := newLedgerHandler()

	t.Run("creates a task", func(t *testing.T) {
		c, rec := newLedgerContext(e, http.MethodPost,
			`{"list":"shared","text":"buy flowers"}`, "2026-08-29")
		require.NoError(t, h.AddTask(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var task entities.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))
		assert.Equal(t, "buy flowers", task.Text)
		assert.NotZero(t, task.ID)
	})

	t.Run("whitespace-only text is a 204", func(t *testing.T) {
		c, rec := newLedgerContext(e, http.MethodPost,
			`{"list":"shared","text":"   "}`, "2026-08-29")
		require.NoError(t, h.AddTask(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("unknown list kind is rejected by validation", func(t *testing.T) {
		c, _ := newLedgerContext(e, http.MethodPost,
			`{"list":"secret","text":"x"}`, "2026-08-29")
		err := h.AddTask(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusBadRequest, httpErr.Code)
	})
}

func TestToggleTaskHandler(t *testing.T) {
	e := newTestEcho()
	h := newLedgerHandler()

	c, rec := newLedgerContext(e, http.MethodPost,
		`{"list":"personal","text":"journal"}`, "2026-08-29")
	require.NoError(t, h.AddTask(c))
	var task entities.Task
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &task))

	t.Run("toggles the caller's personal task", func(t *testing.T) {
		body, _ := json.Marshal(ToggleTaskRequest{List: "personal", TaskID: task.ID})
		c, rec := newLedgerContext(e, http.MethodPost, string(body), "2026-08-29")
		require.NoError(t, h.ToggleTask(c))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		c, rec = newLedgerContext(e, http.MethodGet, "", "2026-08-29")
		require.NoError(t, h.GetPage(c))
		var page entities.TaskPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
		assert.True(t, page.UserTasks["alex"][0].Done)
	})

	t.Run("missing page is a 404", func(t *testing.T) {
		body, _ := json.Marshal(ToggleTaskRequest{List: "shared", TaskID: 1})
		c, _ := newLedgerContext(e, http.MethodPost, string(body), "2025-01-01")
		err := h.ToggleTask(c)
		require.Error(t, err)
		httpErr, ok := err.(*echo.HTTPError)
		require.True(t, ok)
		assert.Equal(t, http.StatusNotFound, httpErr.Code)
	})
}

func TestTearOffAndRestoreHandlers(t *testing.T) {
	e := newTestEcho()
	h := newLedgerHandler()

	c, _ := newLedgerContext(e, http.MethodPost,
		`{"list":"shared","text":"date night"}`, "2026-08-28")
	require.NoError(t, h.AddTask(c))

	var archived entities.ArchivedPage

	t.Run("tear-off archives the page", func(t *testing.T) {
		c, rec := newLedgerContext(e, http.MethodPost, "", "2026-08-28")
		require.NoError(t, h.TearOffPage(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &archived))
		assert.NotEmpty(t, archived.ID)
		require.Len(t, archived.SharedTasks, 1)
	})

	t.Run("archive listing returns the entry", func(t *testing.T) {
		c, rec := newLedgerContext(e, http.MethodGet, "", "")
		require.NoError(t, h.ListArchive(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var entries []entities.ArchivedPage
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &entries))
		require.Len(t, entries, 1)
		assert.Equal(t, archived.ID, entries[0].ID)
	})

	t.Run("restore brings the task back with a fresh id", func(t *testing.T) {
		body, _ := json.Marshal(RestoreTaskRequest{
			Date: "2026-08-29",
			List: "shared",
			Task: archived.SharedTasks[0],
		})
		c, rec := newLedgerContext(e, http.MethodPost, string(body), "")
		require.NoError(t, h.RestoreTask(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var restored entities.Task
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &restored))
		assert.NotEqual(t, archived.SharedTasks[0].ID, restored.ID)
		assert.False(t, restored.Done)
		assert.Equal(t, "date night", restored.Text)
	})
}
