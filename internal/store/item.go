package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/google/uuid"
)

// ItemStore defines the interface for prioritization item persistence.
//
// The state-changing operations (SetPriority, MarkExported, MarkDiscarded)
// are guarded updates: the row is only modified if it is in a state the
// transition permits. A guard miss surfaces as ErrInvalidTransition rather
// than a silent no-op, and a missing row as ErrItemNotFound.
type ItemStore interface {
	// Create saves a new prioritization item to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, item *domain.PrioritizationItem) error

	// GetByID retrieves an item by its unique ID.
	// Returns ErrItemNotFound if the item does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PrioritizationItem, error)

	// ListPendingForConversation retrieves pending items for a conversation
	// ordered by creation time ascending.
	ListPendingForConversation(ctx context.Context, conversationID int64) ([]*domain.PrioritizationItem, error)

	// ListByCreatedDate retrieves items for a conversation created on the
	// given UTC calendar date, regardless of state.
	ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.PrioritizationItem, error)

	// SetPriority assigns a priority and moves the item from pending to
	// prioritized.
	SetPriority(ctx context.Context, id uuid.UUID, priority domain.Priority) error

	// MarkExported moves the item from prioritized to exported.
	MarkExported(ctx context.Context, id uuid.UUID) error

	// MarkDiscarded moves the item from pending or prioritized to discarded.
	MarkDiscarded(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new ItemStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) ItemStore
}
