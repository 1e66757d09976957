package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/store"
)

// Exporter delivers a finalized task to an external tracker. Implementations
// must be safe for concurrent use.
type Exporter interface {
	// Export sends the task text and its source context links to the
	// external system. A non-nil error leaves the item in its current
	// state so the export can be retried.
	Export(ctx context.Context, item domain.PrioritizationItem, contextLinks []string) error
}

// Service drives prioritization items through their state machine. All
// transitions are delegated to guarded store updates so concurrent callers
// cannot double-apply a transition.
type Service struct {
	items  store.ItemStore
	tasks  store.TaskStore
	export Exporter
	logger *slog.Logger
}

// NewService creates a lifecycle service.
// It panics if any dependency is nil, as this represents a programming error.
func NewService(
	items store.ItemStore,
	tasks store.TaskStore,
	exporter Exporter,
	logger *slog.Logger,
) *Service {
	// ALLOW-PANIC: constructor enforces non-nil dependencies.
	if items == nil {
		panic("lifecycle service requires a non-nil item store")
	}
	if tasks == nil {
		panic("lifecycle service requires a non-nil task store")
	}
	if exporter == nil {
		panic("lifecycle service requires a non-nil exporter")
	}
	if logger == nil {
		panic("lifecycle service requires a non-nil logger")
	}

	return &Service{
		items:  items,
		tasks:  tasks,
		export: exporter,
		logger: logger.With(slog.String("component", "lifecycle_service")),
	}
}

// Enqueue creates a new pending item for an extracted task.
func (s *Service) Enqueue(ctx context.Context, conversationID int64, taskID uuid.UUID, taskText string) (*domain.PrioritizationItem, error) {
	item, err := domain.NewPrioritizationItem(conversationID, taskID, taskText)
	if err != nil {
		return nil, fmt.Errorf("creating prioritization item: %w", err)
	}

	if err := s.items.Create(ctx, item); err != nil {
		return nil, fmt.Errorf("storing prioritization item: %w", err)
	}

	s.logger.Debug("item enqueued",
		slog.String("item_id", item.ID.String()),
		slog.Int64("conversation_id", conversationID))

	return item, nil
}

// SetPriority assigns a priority to a pending item, moving it to
// PRIORITIZED. Returns store.ErrInvalidTransition if the item has already
// left the pending state and store.ErrItemNotFound if it does not exist.
func (s *Service) SetPriority(ctx context.Context, itemID uuid.UUID, priority domain.Priority) (*domain.PrioritizationItem, error) {
	if !domain.IsValidPriority(priority) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPriority, priority)
	}

	if err := s.items.SetPriority(ctx, itemID, priority); err != nil {
		return nil, fmt.Errorf("setting priority: %w", err)
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading prioritized item: %w", err)
	}

	s.logger.Info("item prioritized",
		slog.String("item_id", itemID.String()),
		slog.String("priority", string(priority)))

	return item, nil
}

// FinalizeExport sends a prioritized item to the external tracker and, only
// after the export succeeds, marks the item EXPORTED. An export failure
// leaves the item PRIORITIZED so the operation can be retried.
func (s *Service) FinalizeExport(ctx context.Context, itemID uuid.UUID) (*domain.PrioritizationItem, error) {
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading item: %w", err)
	}
	if item.State != domain.ItemStatePrioritized {
		return nil, fmt.Errorf("%w: cannot export item in state %q",
			store.ErrInvalidTransition, item.State)
	}

	links, err := s.contextLinks(ctx, item)
	if err != nil {
		return nil, err
	}

	if err := s.export.Export(ctx, *item, links); err != nil {
		s.logger.Warn("export failed, item remains prioritized",
			slog.String("item_id", itemID.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("exporting item: %w", err)
	}

	if err := s.items.MarkExported(ctx, itemID); err != nil {
		// Another caller may have exported concurrently between our
		// state check and the guarded update.
		return nil, fmt.Errorf("marking item exported: %w", err)
	}

	exported, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading exported item: %w", err)
	}

	s.logger.Info("item exported", slog.String("item_id", itemID.String()))

	return exported, nil
}

// Discard removes an item from the active queue. Allowed from PENDING and
// PRIORITIZED; exported and already-discarded items are terminal.
func (s *Service) Discard(ctx context.Context, itemID uuid.UUID) (*domain.PrioritizationItem, error) {
	if err := s.items.MarkDiscarded(ctx, itemID); err != nil {
		return nil, fmt.Errorf("discarding item: %w", err)
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, fmt.Errorf("loading discarded item: %w", err)
	}

	s.logger.Info("item discarded", slog.String("item_id", itemID.String()))

	return item, nil
}

// GetByID returns a single item.
func (s *Service) GetByID(ctx context.Context, itemID uuid.UUID) (*domain.PrioritizationItem, error) {
	return s.items.GetByID(ctx, itemID)
}

// GetPendingForConversation lists a conversation's items still awaiting a
// priority decision, oldest first.
func (s *Service) GetPendingForConversation(ctx context.Context, conversationID int64) ([]*domain.PrioritizationItem, error) {
	return s.items.ListPendingForConversation(ctx, conversationID)
}

// contextLinks resolves the item's originating task and renders one link per
// source message so the external tracker can point back at the conversation.
func (s *Service) contextLinks(ctx context.Context, item *domain.PrioritizationItem) ([]string, error) {
	task, err := s.tasks.GetByID(ctx, item.TaskID)
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			// The task row is gone but the item text is self-contained;
			// export proceeds without context links.
			s.logger.Warn("source task missing, exporting without context links",
				slog.String("item_id", item.ID.String()),
				slog.String("task_id", item.TaskID.String()))
			return nil, nil
		}
		return nil, fmt.Errorf("loading source task: %w", err)
	}

	links := make([]string, 0, len(task.SourceMessageIDs))
	for _, msgID := range task.SourceMessageIDs {
		links = append(links, ContextLink(item.ConversationID, msgID))
	}
	return links, nil
}

// ContextLink renders the canonical link back to a source message.
func ContextLink(conversationID, messageID int64) string {
	return fmt.Sprintf("conv://%d/msg/%d", conversationID, messageID)
}
