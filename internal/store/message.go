package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
)

// MessageStore defines the interface for raw message persistence.
type MessageStore interface {
	// Create saves a new message to the store and assigns its ID.
	// It handles domain validation internally.
	Create(ctx context.Context, msg *domain.Message) error

	// GetByID retrieves a message by its unique ID.
	// Returns ErrMessageNotFound if the message does not exist.
	GetByID(ctx context.Context, id int64) (*domain.Message, error)

	// GetUnprocessedInWindow retrieves all unprocessed messages for the
	// conversation with receivedAt in [start, end), ordered by receivedAt
	// ascending. Returns an empty slice if none match.
	GetUnprocessedInWindow(ctx context.Context, conversationID int64, start, end time.Time) ([]*domain.Message, error)

	// MarkProcessed flips the processed flag on the given message ids.
	// Returns the number of rows updated so callers can detect a claim
	// that did not cover the full set.
	MarkProcessed(ctx context.Context, ids []int64) (int64, error)

	// ConversationsWithUnprocessed returns the distinct conversation ids
	// that have at least one unprocessed message in [start, end).
	ConversationsWithUnprocessed(ctx context.Context, start, end time.Time) ([]int64, error)

	// ListConversations returns every conversation id known to the store.
	ListConversations(ctx context.Context) ([]int64, error)

	// WithTx returns a new MessageStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) MessageStore
}
