package api

import (
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/batch"
	"github.com/fennwald/triage-api/internal/scheduler"
)

// TriggerHandler handles on-demand batch trigger HTTP requests
type TriggerHandler struct {
	scheduler *scheduler.Scheduler
	validator *validator.Validate
}

// NewTriggerHandler creates a new TriggerHandler
func NewTriggerHandler(sched *scheduler.Scheduler) *TriggerHandler {
	return &TriggerHandler{
		scheduler: sched,
		validator: validator.New(),
	}
}

// TriggerNow handles POST /api/conversations/{conversationID}/batches
// requests, running an immediate batch over the trailing interval.
func (h *TriggerHandler) TriggerNow(w http.ResponseWriter, r *http.Request) {
	conversationID, err := getPathInt64(r, "conversationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	result := h.scheduler.TriggerNow(r.Context(), conversationID)
	h.respondWithResult(w, r, result)
}

// TriggerRange handles POST /api/conversations/{conversationID}/batches/range
// requests, sweeping up unprocessed messages from the trailing days.
func (h *TriggerHandler) TriggerRange(w http.ResponseWriter, r *http.Request) {
	conversationID, err := getPathInt64(r, "conversationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	var req TriggerRangeRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	result := h.scheduler.TriggerRange(r.Context(), conversationID, req.Days)
	h.respondWithResult(w, r, result)
}

// respondWithResult maps a batch result to a status code: a run that was
// started and completed is 200, a guard rejection is 409, a transient
// extraction failure is 502, and a permanent failure is 422.
func (h *TriggerHandler) respondWithResult(w http.ResponseWriter, r *http.Request, result batch.Result) {
	response := TriggerResponse{
		ConversationID: result.ConversationID,
		Outcome:        string(result.Outcome),
		MessageCount:   result.MessageCount,
		TaskCount:      result.TaskCount,
	}

	switch result.Outcome {
	case batch.OutcomeSuccess, batch.OutcomeEmpty:
		shared.RespondWithJSON(w, r, http.StatusOK, response)
	case batch.OutcomeAlreadyRunning:
		shared.RespondWithJSON(w, r, http.StatusConflict, response)
	case batch.OutcomeTransientFailure:
		shared.RespondWithErrorAndLog(w, r, http.StatusBadGateway, "Batch failed, retry later", result.Err)
	default:
		shared.RespondWithErrorAndLog(w, r, http.StatusUnprocessableEntity, "Batch failed", result.Err)
	}
}
