package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/redact"
	"github.com/fennwald/triage-api/internal/scheduler"
	"github.com/fennwald/triage-api/internal/staff"
	"github.com/fennwald/triage-api/internal/store"
)

// MessageHandler handles message ingestion HTTP requests
type MessageHandler struct {
	messages  store.MessageStore
	directory *staff.Directory
	registry  *scheduler.Registry
	validator *validator.Validate
}

// NewMessageHandler creates a new MessageHandler
func NewMessageHandler(
	messages store.MessageStore,
	directory *staff.Directory,
	registry *scheduler.Registry,
) *MessageHandler {
	return &MessageHandler{
		messages:  messages,
		directory: directory,
		registry:  registry,
		validator: validator.New(),
	}
}

// IngestMessage handles POST /api/messages requests. Messages from staff
// senders are acknowledged but dropped, so internal replies are never
// extracted as customer tasks.
func (h *MessageHandler) IngestMessage(w http.ResponseWriter, r *http.Request) {
	var req IngestMessageRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	isStaff, err := h.directory.IsStaff(r.Context(), req.SenderUsername, req.SenderID)
	if err != nil {
		slog.Error("staff lookup failed during ingestion",
			"error", redact.Error(err),
			"conversation_id", req.ConversationID)
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to ingest message", err)
		return
	}
	if isStaff {
		shared.RespondWithJSON(w, r, http.StatusAccepted, IngestMessageResponse{Dropped: true})
		return
	}

	receivedAt := time.Now().UTC()
	if req.ReceivedAt != nil {
		receivedAt = req.ReceivedAt.UTC()
	}

	msg, err := domain.NewMessage(
		req.ConversationID,
		req.SenderID,
		req.SenderUsername,
		req.SenderName,
		req.Text,
		receivedAt,
	)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	if err := h.messages.Create(r.Context(), msg); err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to ingest message", err)
		return
	}

	// First message of a conversation puts it on the batch schedule.
	if h.registry.Register(req.ConversationID) {
		slog.Info("conversation registered", "conversation_id", req.ConversationID)
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, IngestMessageResponse{MessageID: msg.ID})
}
