package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/fennwald/triage-api/internal/api"
	apiMiddleware "github.com/fennwald/triage-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	authHandler := api.NewAuthHandler(app.tokenService, app.staffDirectory, app.config.Auth)
	authMiddleware := apiMiddleware.NewAuthMiddleware(app.tokenService)

	messageHandler := api.NewMessageHandler(app.messageStore, app.staffDirectory, app.scheduler.Registry())
	taskHandler := api.NewTaskHandler(app.taskStore)
	itemHandler := api.NewItemHandler(app.lifecycleService)
	triggerHandler := api.NewTriggerHandler(app.scheduler)
	reportHandler := api.NewReportHandler(app.aggregator)

	r.Route("/api", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/token", authHandler.IssueToken)
		r.Post("/messages", messageHandler.IngestMessage)

		// Staff-only routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Task endpoints
			r.Get("/conversations/{conversationID}/tasks", taskHandler.ListTasks)
			r.Get("/tasks/{taskID}", taskHandler.GetTask)

			// Prioritization endpoints
			r.Get("/conversations/{conversationID}/items", itemHandler.ListPendingItems)
			r.Get("/items/{itemID}", itemHandler.GetItem)
			r.Post("/items/{itemID}/priority", itemHandler.SetPriority)
			r.Post("/items/{itemID}/export", itemHandler.ExportItem)
			r.Post("/items/{itemID}/discard", itemHandler.DiscardItem)

			// On-demand batch triggers
			r.Post("/conversations/{conversationID}/batches", triggerHandler.TriggerNow)
			r.Post("/conversations/{conversationID}/batches/range", triggerHandler.TriggerRange)

			// Daily report
			r.Get("/conversations/{conversationID}/report", reportHandler.GetDailyReport)
		})
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
