package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fennwald/triage-api/internal/batch"
	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/events"
	"github.com/fennwald/triage-api/internal/lifecycle"
	"github.com/fennwald/triage-api/internal/platform/gemini"
	"github.com/fennwald/triage-api/internal/platform/postgres"
	"github.com/fennwald/triage-api/internal/report"
	"github.com/fennwald/triage-api/internal/scheduler"
	"github.com/fennwald/triage-api/internal/service/auth"
	"github.com/fennwald/triage-api/internal/staff"
	"github.com/fennwald/triage-api/internal/store"
)

// Announcer notifies a conversation that a new item is awaiting a priority
// decision. The default implementation only logs; a chat adapter can be
// swapped in without touching the pipeline.
type Announcer interface {
	AnnounceItem(ctx context.Context, payload events.ItemEnqueuedPayload) error
}

// AnnounceEventHandler bridges item-enqueued events to the Announcer.
type AnnounceEventHandler struct {
	announcer Announcer
	logger    *slog.Logger
}

// HandleEvent announces newly enqueued items and ignores everything else.
func (h *AnnounceEventHandler) HandleEvent(ctx context.Context, event *events.Event) error {
	if event.Type != events.EventTypeItemEnqueued {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.ItemEnqueuedPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if err := h.announcer.AnnounceItem(ctx, payload); err != nil {
		h.logger.Error("failed to announce item",
			"error", err,
			"item_id", payload.ItemID,
			"event_id", event.ID)
		return fmt.Errorf("failed to announce item: %w", err)
	}

	return nil
}

// logAnnouncer logs priority prompts instead of delivering them to a chat
// surface.
type logAnnouncer struct {
	logger *slog.Logger
}

func (a *logAnnouncer) AnnounceItem(ctx context.Context, payload events.ItemEnqueuedPayload) error {
	a.logger.Info("new item awaiting prioritization",
		"item_id", payload.ItemID,
		"conversation_id", payload.ConversationID,
		"task_text", payload.TaskText)
	return nil
}

// logExporter logs exported tasks instead of pushing them to an external
// tracker.
type logExporter struct {
	logger *slog.Logger
}

func (e *logExporter) Export(ctx context.Context, item domain.PrioritizationItem, contextLinks []string) error {
	priority := ""
	if item.Priority != nil {
		priority = string(*item.Priority)
	}
	e.logger.Info("exporting item",
		"item_id", item.ID,
		"priority", priority,
		"task_text", item.TaskText,
		"context_links", strings.Join(contextLinks, " "))
	return nil
}

// logDeliverer logs daily reports instead of sending them to a chat surface.
type logDeliverer struct {
	logger *slog.Logger
}

func (d *logDeliverer) DeliverReport(ctx context.Context, conversationID int64, chunks []string) error {
	for i, chunk := range chunks {
		d.logger.Info("daily report chunk",
			"conversation_id", conversationID,
			"chunk", i+1,
			"chunks", len(chunks),
			"text", chunk)
	}
	return nil
}

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores (using interfaces for proper abstraction)
	messageStore store.MessageStore
	taskStore    store.TaskStore
	itemStore    store.ItemStore
	staffStore   store.StaffStore

	// Services
	tokenService     auth.TokenService
	staffDirectory   *staff.Directory
	lifecycleService *lifecycle.Service
	aggregator       *report.Aggregator
	orchestrator     *batch.Orchestrator
	scheduler        *scheduler.Scheduler
	emitter          *events.InMemoryEmitter
}

// newApplication wires up every component from configuration. The outbound
// collaborators (announcer, exporter, report deliverer) default to logging
// implementations.
func newApplication(ctx context.Context, cfg *config.Config, appLogger *slog.Logger) (*application, error) {
	db, err := setupAppDatabase(cfg, appLogger)
	if err != nil {
		return nil, err
	}

	messageStore := postgres.NewPostgresMessageStore(db, appLogger)
	taskStore := postgres.NewPostgresTaskStore(db, appLogger)
	itemStore := postgres.NewPostgresItemStore(db, appLogger)
	staffStore := postgres.NewPostgresStaffStore(db, appLogger)

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create token service: %w", err)
	}

	staffDirectory := staff.NewDirectory(cfg.Staff, staffStore, appLogger)

	extractor, err := gemini.NewGeminiExtractor(ctx, appLogger, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	emitter := events.NewInMemoryEmitter(appLogger)
	emitter.RegisterHandler(&AnnounceEventHandler{
		announcer: &logAnnouncer{logger: appLogger},
		logger:    appLogger,
	})

	orchestrator, err := batch.NewOrchestrator(
		db, messageStore, taskStore, itemStore, extractor, emitter, appLogger)
	if err != nil {
		return nil, fmt.Errorf("failed to create orchestrator: %w", err)
	}

	lifecycleService := lifecycle.NewService(
		itemStore, taskStore, &logExporter{logger: appLogger}, appLogger)

	aggregator := report.NewAggregator(itemStore, appLogger)

	sched, err := scheduler.NewScheduler(
		cfg.Scheduler,
		orchestrator,
		aggregator,
		&logDeliverer{logger: appLogger},
		messageStore,
		scheduler.NewRegistry(),
		appLogger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &application{
		config:           cfg,
		logger:           appLogger,
		db:               db,
		messageStore:     messageStore,
		taskStore:        taskStore,
		itemStore:        itemStore,
		staffStore:       staffStore,
		tokenService:     tokenService,
		staffDirectory:   staffDirectory,
		lifecycleService: lifecycleService,
		aggregator:       aggregator,
		orchestrator:     orchestrator,
		scheduler:        sched,
		emitter:          emitter,
	}, nil
}

// run starts the scheduler and the HTTP server, blocking until shutdown.
func (app *application) run(ctx context.Context) error {
	if err := app.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases application resources on shutdown.
func (app *application) cleanup(ctx context.Context) {
	if err := app.scheduler.Stop(ctx); err != nil {
		app.logger.Error("Scheduler shutdown failed", "error", err)
	}
	if err := app.db.Close(); err != nil {
		app.logger.Error("Database close failed", "error", err)
	}
}
