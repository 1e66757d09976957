package batch

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/events"
	"github.com/fennwald/triage-api/internal/extraction"
	"github.com/fennwald/triage-api/internal/store"
)

// Orchestrator runs message batches for conversations: it claims a window
// of unprocessed messages, invokes the extraction gateway, and persists the
// results as a single atomic unit. A per-conversation single-flight guard
// ensures two runs for the same conversation never overlap in the message
// set they claim.
type Orchestrator struct {
	db        *sql.DB
	messages  store.MessageStore
	tasks     store.TaskStore
	items     store.ItemStore
	extractor extraction.Extractor
	guard     *Guard
	emitter   events.Emitter
	logger    *slog.Logger
}

// NewOrchestrator creates a new Orchestrator. The emitter may be nil, in
// which case enqueued items are not announced.
func NewOrchestrator(
	db *sql.DB,
	messages store.MessageStore,
	tasks store.TaskStore,
	items store.ItemStore,
	extractor extraction.Extractor,
	emitter events.Emitter,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if messages == nil || tasks == nil || items == nil {
		return nil, fmt.Errorf("stores cannot be nil")
	}
	if extractor == nil {
		return nil, fmt.Errorf("extractor cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	return &Orchestrator{
		db:        db,
		messages:  messages,
		tasks:     tasks,
		items:     items,
		extractor: extractor,
		guard:     NewGuard(),
		emitter:   emitter,
		logger:    logger.With("component", "batch_orchestrator"),
	}, nil
}

// Guard exposes the orchestrator's single-flight guard so on-demand
// triggers can report in-flight state without running a batch.
func (o *Orchestrator) Guard() *Guard {
	return o.guard
}

// RunBatch processes all unprocessed messages for the conversation in the
// half-open window [windowStart, windowEnd). If another run holds the
// conversation's guard, it returns OutcomeAlreadyRunning immediately
// without touching the store.
func (o *Orchestrator) RunBatch(ctx context.Context, conversationID int64, windowStart, windowEnd time.Time) Result {
	return o.run(ctx, conversationID, windowStart, windowEnd)
}

// RunRange has identical semantics to RunBatch for an arbitrary,
// caller-supplied window. Both paths key off the processed flag, so
// re-running an already-covered range is an empty no-op.
func (o *Orchestrator) RunRange(ctx context.Context, conversationID int64, since, until time.Time) Result {
	return o.run(ctx, conversationID, since, until)
}

func (o *Orchestrator) run(ctx context.Context, conversationID int64, windowStart, windowEnd time.Time) Result {
	log := o.logger.With(
		"conversation_id", conversationID,
		"window_start", windowStart,
		"window_end", windowEnd,
	)

	if !windowStart.Before(windowEnd) {
		return Result{
			Outcome:        OutcomePermanentFailure,
			ConversationID: conversationID,
			Err:            fmt.Errorf("invalid window: start %v is not before end %v", windowStart, windowEnd),
		}
	}

	if !o.guard.TryAcquire(conversationID) {
		log.Info("batch already running for conversation, skipping")
		return Result{
			Outcome:        OutcomeAlreadyRunning,
			ConversationID: conversationID,
		}
	}
	defer o.guard.Release(conversationID)

	// The guard is held, so nothing else can claim or mark messages for
	// this conversation until the run finishes.
	claimed, err := o.messages.GetUnprocessedInWindow(ctx, conversationID, windowStart, windowEnd)
	if err != nil {
		log.Error("failed to select unprocessed messages", "error", err)
		return Result{
			Outcome:        OutcomeTransientFailure,
			ConversationID: conversationID,
			Err:            fmt.Errorf("failed to select unprocessed messages: %w", err),
		}
	}

	if len(claimed) == 0 {
		log.Debug("no unprocessed messages in window")
		return Result{
			Outcome:        OutcomeEmpty,
			ConversationID: conversationID,
		}
	}

	log.Info("claimed message batch", "message_count", len(claimed))

	extracted, err := o.extractor.Extract(ctx, buildRequest(conversationID, claimed))
	if err != nil {
		outcome := OutcomePermanentFailure
		if extraction.IsTransient(err) {
			outcome = OutcomeTransientFailure
		}
		log.Error("extraction failed", "error", err, "outcome", outcome)
		return Result{
			Outcome:        outcome,
			ConversationID: conversationID,
			MessageCount:   len(claimed),
			Err:            err,
		}
	}

	tasks, items, err := o.buildEntities(conversationID, extracted)
	if err != nil {
		log.Error("extraction output failed domain validation", "error", err)
		return Result{
			Outcome:        OutcomePermanentFailure,
			ConversationID: conversationID,
			MessageCount:   len(claimed),
			Err:            err,
		}
	}

	claimedIDs := make([]int64, len(claimed))
	for i, m := range claimed {
		claimedIDs[i] = m.ID
	}

	// All writes for the batch land in one transaction: task rows, item
	// rows, and the processed flags. Nothing is observable until commit.
	err = store.RunInTransaction(ctx, o.db, func(ctx context.Context, tx *sql.Tx) error {
		taskStore := o.tasks.WithTx(tx)
		itemStore := o.items.WithTx(tx)
		messageStore := o.messages.WithTx(tx)

		for _, task := range tasks {
			if err := taskStore.Create(ctx, task); err != nil {
				return fmt.Errorf("failed to save extracted task: %w", err)
			}
		}

		for _, item := range items {
			if err := itemStore.Create(ctx, item); err != nil {
				return fmt.Errorf("failed to enqueue prioritization item: %w", err)
			}
		}

		if _, err := messageStore.MarkProcessed(ctx, claimedIDs); err != nil {
			return fmt.Errorf("failed to mark messages processed: %w", err)
		}

		return nil
	})
	if err != nil {
		log.Error("batch write failed, rolled back", "error", err)
		return Result{
			Outcome:        OutcomeTransientFailure,
			ConversationID: conversationID,
			MessageCount:   len(claimed),
			Err:            err,
		}
	}

	log.Info("batch completed",
		"message_count", len(claimed),
		"task_count", len(tasks))

	o.announceItems(ctx, items)

	return Result{
		Outcome:        OutcomeSuccess,
		ConversationID: conversationID,
		MessageCount:   len(claimed),
		TaskCount:      len(tasks),
	}
}

// buildEntities converts extraction output into domain rows. One
// ExtractedTask plus one pending PrioritizationItem per item.
func (o *Orchestrator) buildEntities(
	conversationID int64,
	extracted []extraction.ExtractedItem,
) ([]*domain.ExtractedTask, []*domain.PrioritizationItem, error) {
	tasks := make([]*domain.ExtractedTask, 0, len(extracted))
	items := make([]*domain.PrioritizationItem, 0, len(extracted))

	for _, e := range extracted {
		task, err := domain.NewExtractedTask(conversationID, e.Text, e.SourceMessageIDs)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid extracted task: %w", err)
		}

		item, err := domain.NewPrioritizationItem(conversationID, task.ID, task.Text)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid prioritization item: %w", err)
		}

		tasks = append(tasks, task)
		items = append(items, item)
	}

	return tasks, items, nil
}

// announceItems emits one item-enqueued event per item after a successful
// commit. Announcement failure is reported but never fails the batch.
func (o *Orchestrator) announceItems(ctx context.Context, items []*domain.PrioritizationItem) {
	if o.emitter == nil {
		return
	}

	for _, item := range items {
		event, err := events.NewEvent(events.EventTypeItemEnqueued, events.ItemEnqueuedPayload{
			ItemID:         item.ID,
			ConversationID: item.ConversationID,
			TaskText:       item.TaskText,
		})
		if err != nil {
			o.logger.Error("failed to build item enqueued event",
				"error", err,
				"item_id", item.ID)
			continue
		}

		if err := o.emitter.EmitEvent(ctx, event); err != nil {
			o.logger.Error("failed to announce enqueued item",
				"error", err,
				"item_id", item.ID)
		}
	}
}

func buildRequest(conversationID int64, messages []*domain.Message) extraction.Request {
	req := extraction.Request{
		ConversationID: conversationID,
		Messages:       make([]extraction.SourceMessage, 0, len(messages)),
	}

	for _, m := range messages {
		req.Messages = append(req.Messages, extraction.SourceMessage{
			ID:        m.ID,
			Author:    m.Author(),
			Text:      m.Text,
			Timestamp: m.ReceivedAt,
		})
	}

	return req
}
