package api

import (
	"net/http"
	"time"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/report"
)

// ReportHandler handles daily report HTTP requests
type ReportHandler struct {
	aggregator *report.Aggregator
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(aggregator *report.Aggregator) *ReportHandler {
	return &ReportHandler{aggregator: aggregator}
}

// GetDailyReport handles GET /api/conversations/{conversationID}/report
// requests. The date query parameter selects the UTC calendar date and
// defaults to today.
func (h *ReportHandler) GetDailyReport(w http.ResponseWriter, r *http.Request) {
	conversationID, err := getPathInt64(r, "conversationID")
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	date := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid date, expected YYYY-MM-DD")
			return
		}
		date = parsed
	}

	view, err := h.aggregator.BuildDailyReport(r.Context(), conversationID, date)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), "Failed to build report", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, ReportResponse{
		ConversationID: view.ConversationID,
		Date:           view.Date.Format("2006-01-02"),
		TotalItems:     view.TotalItems,
		ExportedCount:  view.ExportedCount,
		DiscardedCount: view.DiscardedCount,
		Chunks:         report.Chunks(view.Render(), report.DefaultChunkLimit),
	})
}
