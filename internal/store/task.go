package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/google/uuid"
)

// TaskStore defines the interface for extracted task persistence.
type TaskStore interface {
	// Create saves a new extracted task to the store.
	// It handles domain validation internally.
	Create(ctx context.Context, task *domain.ExtractedTask) error

	// GetByID retrieves an extracted task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedTask, error)

	// ListByConversation retrieves tasks for a conversation ordered by
	// extraction time descending, with limit/offset pagination.
	ListByConversation(ctx context.Context, conversationID int64, limit, offset int) ([]*domain.ExtractedTask, error)

	// ListByCreatedDate retrieves tasks for a conversation created on the
	// given UTC calendar date, ordered by extraction time ascending.
	ListByCreatedDate(ctx context.Context, conversationID int64, date time.Time) ([]*domain.ExtractedTask, error)

	// WithTx returns a new TaskStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}
