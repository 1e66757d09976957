package api

import (
	"net/http"
	"strconv"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/store"
)

// TaskHandler handles extracted task HTTP requests
type TaskHandler struct {
	tasks store.TaskStore
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(tasks store.TaskStore) *TaskHandler {
	return &TaskHandler{tasks: tasks}
}

// ListTasks handles GET /api/conversations/{conversationID}/tasks requests.
// Supports limit and offset query parameters.
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	conversationID, err := getPathInt64(r, "conversationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	limit := parseQueryInt(r, "limit", 50)
	offset := parseQueryInt(r, "offset", 0)

	tasks, err := h.tasks.ListByConversation(r.Context(), conversationID, limit, offset)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list tasks", err)
		return
	}

	responses := make([]TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		responses = append(responses, taskToDTOResponse(task))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetTask handles GET /api/tasks/{taskID} requests.
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := getPathUUID(r, "taskID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	task, err := h.tasks.GetByID(r.Context(), taskID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, taskToDTOResponse(task))
}

// taskToDTOResponse converts a domain.ExtractedTask to a TaskResponse
func taskToDTOResponse(task *domain.ExtractedTask) TaskResponse {
	return TaskResponse{
		ID:               task.ID.String(),
		ConversationID:   task.ConversationID,
		Text:             task.Text,
		SourceMessageIDs: task.SourceMessageIDs,
		ExtractedAt:      task.ExtractedAt,
		CreatedDate:      task.CreatedDate.Format("2006-01-02"),
	}
}

// parseQueryInt reads a non-negative integer query parameter, falling back
// to def when absent or malformed.
func parseQueryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	return v
}
