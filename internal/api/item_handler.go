package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/lifecycle"
)

// ItemHandler handles prioritization item HTTP requests
type ItemHandler struct {
	lifecycle *lifecycle.Service
	validator *validator.Validate
}

// NewItemHandler creates a new ItemHandler
func NewItemHandler(svc *lifecycle.Service) *ItemHandler {
	return &ItemHandler{
		lifecycle: svc,
		validator: validator.New(),
	}
}

// ListPendingItems handles GET /api/conversations/{conversationID}/items
// requests, returning items awaiting a priority decision, oldest first.
func (h *ItemHandler) ListPendingItems(w http.ResponseWriter, r *http.Request) {
	conversationID, err := getPathInt64(r, "conversationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	items, err := h.lifecycle.GetPendingForConversation(r.Context(), conversationID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to list items", err)
		return
	}

	responses := make([]ItemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, itemToDTOResponse(item))
	}

	shared.RespondWithJSON(w, r, http.StatusOK, responses)
}

// GetItem handles GET /api/items/{itemID} requests.
func (h *ItemHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	item, err := h.lifecycle.GetByID(r.Context(), itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToDTOResponse(item))
}

// SetPriority handles POST /api/items/{itemID}/priority requests, moving a
// pending item to prioritized. An item that already left pending yields 409.
func (h *ItemHandler) SetPriority(w http.ResponseWriter, r *http.Request) {
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	var req SetPriorityRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	item, err := h.lifecycle.SetPriority(r.Context(), itemID, domain.Priority(req.Priority))
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToDTOResponse(item))
}

// ExportItem handles POST /api/items/{itemID}/export requests. The item is
// only marked exported after the external delivery succeeds; a delivery
// failure yields 502 and leaves the item prioritized.
func (h *ItemHandler) ExportItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	item, err := h.lifecycle.FinalizeExport(r.Context(), itemID)
	if err != nil {
		status := MapErrorToStatusCode(err)
		if status == http.StatusInternalServerError {
			// Export delivery failures are upstream failures, not ours.
			status = http.StatusBadGateway
		}
		shared.RespondWithErrorAndLog(w, r, status, GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToDTOResponse(item))
}

// DiscardItem handles POST /api/items/{itemID}/discard requests.
func (h *ItemHandler) DiscardItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := getPathUUID(r, "itemID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	item, err := h.lifecycle.Discard(r.Context(), itemID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, itemToDTOResponse(item))
}

// itemToDTOResponse converts a domain.PrioritizationItem to an ItemResponse
func itemToDTOResponse(item *domain.PrioritizationItem) ItemResponse {
	resp := ItemResponse{
		ID:             item.ID.String(),
		ConversationID: item.ConversationID,
		TaskID:         item.TaskID.String(),
		TaskText:       item.TaskText,
		State:          string(item.State),
		CreatedAt:      item.CreatedAt,
		PrioritizedAt:  item.PrioritizedAt,
		ExportedAt:     item.ExportedAt,
	}
	if item.Priority != nil {
		p := string(*item.Priority)
		resp.Priority = &p
	}
	return resp
}
