package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwald/triage-api/internal/domain"
)

func taskRoutes(h *TaskHandler) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/api/conversations/{conversationID}/tasks", h.ListTasks)
		r.Get("/api/tasks/{taskID}", h.GetTask)
	}
}

func TestListTasks(t *testing.T) {
	t.Parallel()

	t.Run("returns the conversation's tasks", func(t *testing.T) {
		tasks := newFakeTaskStore()
		task, err := domain.NewExtractedTask(42, "Fix the export button", []int64{7, 8})
		require.NoError(t, err)
		require.NoError(t, tasks.Create(context.Background(), task))
		handler := NewTaskHandler(tasks)

		req := httptest.NewRequest(http.MethodGet, "/api/conversations/42/tasks", nil)
		rec := serve(t, taskRoutes(handler), req)

		require.Equal(t, http.StatusOK, rec.Code)
		requireJSON(t, rec)

		var resp []TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		require.Len(t, resp, 1)
		assert.Equal(t, task.ID.String(), resp[0].ID)
		assert.Equal(t, []int64{7, 8}, resp[0].SourceMessageIDs)
		assert.Equal(t, task.CreatedDate.Format("2006-01-02"), resp[0].CreatedDate)
	})

	t.Run("empty conversation returns an empty array", func(t *testing.T) {
		handler := NewTaskHandler(newFakeTaskStore())

		req := httptest.NewRequest(http.MethodGet, "/api/conversations/42/tasks", nil)
		rec := serve(t, taskRoutes(handler), req)

		require.Equal(t, http.StatusOK, rec.Code)
		var resp []TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Empty(t, resp)
	})

	t.Run("rejects a zero conversation ID", func(t *testing.T) {
		handler := NewTaskHandler(newFakeTaskStore())

		req := httptest.NewRequest(http.MethodGet, "/api/conversations/0/tasks", nil)
		rec := serve(t, taskRoutes(handler), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetTask(t *testing.T) {
	t.Parallel()

	t.Run("returns the task", func(t *testing.T) {
		tasks := newFakeTaskStore()
		task, err := domain.NewExtractedTask(42, "Fix the export button", []int64{7})
		require.NoError(t, err)
		require.NoError(t, tasks.Create(context.Background(), task))
		handler := NewTaskHandler(tasks)

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+task.ID.String(), nil)
		rec := serve(t, taskRoutes(handler), req)

		require.Equal(t, http.StatusOK, rec.Code)

		var resp TaskResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "Fix the export button", resp.Text)
	})

	t.Run("unknown task yields 404", func(t *testing.T) {
		handler := NewTaskHandler(newFakeTaskStore())

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/"+uuid.NewString(), nil)
		rec := serve(t, taskRoutes(handler), req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed task ID yields 400", func(t *testing.T) {
		handler := NewTaskHandler(newFakeTaskStore())

		req := httptest.NewRequest(http.MethodGet, "/api/tasks/42", nil)
		rec := serve(t, taskRoutes(handler), req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
