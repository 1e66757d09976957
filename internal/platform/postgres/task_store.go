package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/platform/logger"
	"github.com/fennwald/triage-api/internal/store"
	"github.com/google/uuid"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
// Source message ids are stored as a JSONB array to preserve order.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a new TaskStore instance using the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.TaskStore.Create.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.ExtractedTask) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	sourceIDs, err := json.Marshal(task.SourceMessageIDs)
	if err != nil {
		return fmt.Errorf("failed to marshal source message ids: %w", err)
	}

	query := `
		INSERT INTO extracted_tasks (id, conversation_id, text, source_message_ids, extracted_at, created_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.ConversationID,
		task.Text,
		sourceIDs,
		task.ExtractedAt,
		task.CreatedDate,
	)

	if err != nil {
		log.Error("failed to create extracted task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()),
			slog.Int64("conversation_id", task.ConversationID))
		return store.NewStoreError("extracted_task", "create", "insert failed", err)
	}

	log.Debug("extracted task created",
		slog.String("task_id", task.ID.String()),
		slog.Int64("conversation_id", task.ConversationID))
	return nil
}

// GetByID implements store.TaskStore.GetByID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.ExtractedTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, text, source_message_ids, extracted_at, created_date
		FROM extracted_tasks
		WHERE id = $1
	`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get extracted task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, store.NewStoreError("extracted_task", "get", "query failed", err)
	}

	return task, nil
}

// ListByConversation implements store.TaskStore.ListByConversation.
func (s *PostgresTaskStore) ListByConversation(
	ctx context.Context,
	conversationID int64,
	limit, offset int,
) ([]*domain.ExtractedTask, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `
		SELECT id, conversation_id, text, source_message_ids, extracted_at, created_date
		FROM extracted_tasks
		WHERE conversation_id = $1
		ORDER BY extracted_at DESC
		LIMIT $2 OFFSET $3
	`
	return s.queryTasks(ctx, query, conversationID, limit, offset)
}

// ListByCreatedDate implements store.TaskStore.ListByCreatedDate.
func (s *PostgresTaskStore) ListByCreatedDate(
	ctx context.Context,
	conversationID int64,
	date time.Time,
) ([]*domain.ExtractedTask, error) {
	query := `
		SELECT id, conversation_id, text, source_message_ids, extracted_at, created_date
		FROM extracted_tasks
		WHERE conversation_id = $1 AND created_date = $2
		ORDER BY extracted_at ASC
	`
	return s.queryTasks(ctx, query, conversationID, date.UTC().Truncate(24*time.Hour))
}

func (s *PostgresTaskStore) queryTasks(ctx context.Context, query string, args ...any) ([]*domain.ExtractedTask, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query extracted tasks", slog.String("error", err.Error()))
		return nil, store.NewStoreError("extracted_task", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.ExtractedTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, store.NewStoreError("extracted_task", "list", "scan failed", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("extracted_task", "list", "row iteration failed", err)
	}

	return tasks, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.ExtractedTask, error) {
	var task domain.ExtractedTask
	var sourceIDs []byte

	if err := row.Scan(
		&task.ID,
		&task.ConversationID,
		&task.Text,
		&sourceIDs,
		&task.ExtractedAt,
		&task.CreatedDate,
	); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(sourceIDs, &task.SourceMessageIDs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal source message ids: %w", err)
	}

	return &task, nil
}
