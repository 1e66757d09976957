package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/platform/logger"
	"github.com/fennwald/triage-api/internal/store"
	"github.com/google/uuid"
)

// PostgresItemStore implements the store.ItemStore interface
// using a PostgreSQL database as the storage backend.
//
// State transitions are enforced in SQL: each guarded update carries its
// expected current state in the WHERE clause, so a lost race or an illegal
// transition shows up as zero rows affected and is surfaced as
// store.ErrInvalidTransition, never applied silently.
type PostgresItemStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresItemStore creates a new PostgreSQL implementation of the
// ItemStore interface.
func NewPostgresItemStore(db store.DBTX, logger *slog.Logger) *PostgresItemStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresItemStore{
		db:     db,
		logger: logger.With(slog.String("component", "item_store")),
	}
}

// Ensure PostgresItemStore implements store.ItemStore
var _ store.ItemStore = (*PostgresItemStore)(nil)

// WithTx returns a new ItemStore instance using the provided transaction.
func (s *PostgresItemStore) WithTx(tx *sql.Tx) store.ItemStore {
	return &PostgresItemStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.ItemStore.Create.
func (s *PostgresItemStore) Create(ctx context.Context, item *domain.PrioritizationItem) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := item.Validate(); err != nil {
		log.Warn("item validation failed during create",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return err
	}

	query := `
		INSERT INTO prioritization_items (id, conversation_id, task_id, task_text, priority, state, created_at, prioritized_at, exported_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		item.ID,
		item.ConversationID,
		item.TaskID,
		item.TaskText,
		priorityValue(item.Priority),
		item.State,
		item.CreatedAt,
		item.PrioritizedAt,
		item.ExportedAt,
	)

	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during item creation",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID.String()),
				slog.String("task_id", item.TaskID.String()))
			return fmt.Errorf("%w: extracted task %s not found",
				store.ErrInvalidEntity, item.TaskID)
		}

		log.Error("failed to create prioritization item",
			slog.String("error", err.Error()),
			slog.String("item_id", item.ID.String()))
		return store.NewStoreError("prioritization_item", "create", "insert failed", err)
	}

	log.Debug("prioritization item created",
		slog.String("item_id", item.ID.String()),
		slog.Int64("conversation_id", item.ConversationID))
	return nil
}

// GetByID implements store.ItemStore.GetByID.
func (s *PostgresItemStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.PrioritizationItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, task_id, task_text, priority, state, created_at, prioritized_at, exported_at
		FROM prioritization_items
		WHERE id = $1
	`

	item, err := scanItem(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrItemNotFound
		}
		log.Error("failed to get prioritization item by ID",
			slog.String("error", err.Error()),
			slog.String("item_id", id.String()))
		return nil, store.NewStoreError("prioritization_item", "get", "query failed", err)
	}

	return item, nil
}

// ListPendingForConversation implements
// store.ItemStore.ListPendingForConversation.
func (s *PostgresItemStore) ListPendingForConversation(
	ctx context.Context,
	conversationID int64,
) ([]*domain.PrioritizationItem, error) {
	query := `
		SELECT id, conversation_id, task_id, task_text, priority, state, created_at, prioritized_at, exported_at
		FROM prioritization_items
		WHERE conversation_id = $1 AND state = $2
		ORDER BY created_at ASC
	`
	return s.queryItems(ctx, query, conversationID, domain.ItemStatePending)
}

// ListByCreatedDate implements store.ItemStore.ListByCreatedDate.
func (s *PostgresItemStore) ListByCreatedDate(
	ctx context.Context,
	conversationID int64,
	date time.Time,
) ([]*domain.PrioritizationItem, error) {
	day := date.UTC().Truncate(24 * time.Hour)

	query := `
		SELECT id, conversation_id, task_id, task_text, priority, state, created_at, prioritized_at, exported_at
		FROM prioritization_items
		WHERE conversation_id = $1 AND created_at >= $2 AND created_at < $3
		ORDER BY created_at ASC
	`
	return s.queryItems(ctx, query, conversationID, day, day.Add(24*time.Hour))
}

// SetPriority implements store.ItemStore.SetPriority.
func (s *PostgresItemStore) SetPriority(ctx context.Context, id uuid.UUID, priority domain.Priority) error {
	if !domain.IsValidPriority(priority) {
		return domain.ErrInvalidPriority
	}

	query := `
		UPDATE prioritization_items
		SET priority = $1, state = $2, prioritized_at = $3
		WHERE id = $4 AND state = $5
	`
	return s.guardedUpdate(ctx, id, "set priority", query,
		priority, domain.ItemStatePrioritized, time.Now().UTC(), id, domain.ItemStatePending)
}

// MarkExported implements store.ItemStore.MarkExported.
func (s *PostgresItemStore) MarkExported(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE prioritization_items
		SET state = $1, exported_at = $2
		WHERE id = $3 AND state = $4
	`
	return s.guardedUpdate(ctx, id, "mark exported", query,
		domain.ItemStateExported, time.Now().UTC(), id, domain.ItemStatePrioritized)
}

// MarkDiscarded implements store.ItemStore.MarkDiscarded.
func (s *PostgresItemStore) MarkDiscarded(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE prioritization_items
		SET state = $1
		WHERE id = $2 AND state = ANY($3)
	`
	states := []string{string(domain.ItemStatePending), string(domain.ItemStatePrioritized)}
	return s.guardedUpdate(ctx, id, "mark discarded", query,
		domain.ItemStateDiscarded, id, states)
}

// guardedUpdate runs a state-guarded update and translates a zero-row
// result into ErrItemNotFound or ErrInvalidTransition.
func (s *PostgresItemStore) guardedUpdate(
	ctx context.Context,
	id uuid.UUID,
	operation, query string,
	args ...any,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update prioritization item",
			slog.String("error", err.Error()),
			slog.String("operation", operation),
			slog.String("item_id", id.String()))
		return store.NewStoreError("prioritization_item", "update", operation+" failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return store.NewStoreError("prioritization_item", "update", "rows affected unavailable", err)
	}

	if affected == 0 {
		// Distinguish a missing row from a state-guard miss.
		var state domain.ItemState
		err := s.db.QueryRowContext(ctx,
			`SELECT state FROM prioritization_items WHERE id = $1`, id).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrItemNotFound
		}
		if err != nil {
			return store.NewStoreError("prioritization_item", "update", "state lookup failed", err)
		}

		log.Warn("rejected illegal item state transition",
			slog.String("operation", operation),
			slog.String("item_id", id.String()),
			slog.String("current_state", string(state)))
		return fmt.Errorf("%w: %s rejected in state %q", store.ErrInvalidTransition, operation, state)
	}

	return nil
}

func (s *PostgresItemStore) queryItems(ctx context.Context, query string, args ...any) ([]*domain.PrioritizationItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query prioritization items", slog.String("error", err.Error()))
		return nil, store.NewStoreError("prioritization_item", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var items []*domain.PrioritizationItem
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, store.NewStoreError("prioritization_item", "list", "scan failed", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("prioritization_item", "list", "row iteration failed", err)
	}

	return items, nil
}

func scanItem(row rowScanner) (*domain.PrioritizationItem, error) {
	var item domain.PrioritizationItem
	var priority sql.NullString
	var prioritizedAt, exportedAt sql.NullTime

	if err := row.Scan(
		&item.ID,
		&item.ConversationID,
		&item.TaskID,
		&item.TaskText,
		&priority,
		&item.State,
		&item.CreatedAt,
		&prioritizedAt,
		&exportedAt,
	); err != nil {
		return nil, err
	}

	if priority.Valid {
		p := domain.Priority(priority.String)
		item.Priority = &p
	}
	if prioritizedAt.Valid {
		t := prioritizedAt.Time
		item.PrioritizedAt = &t
	}
	if exportedAt.Valid {
		t := exportedAt.Time
		item.ExportedAt = &t
	}

	return &item, nil
}

// priorityValue converts an optional priority to a nullable SQL value.
func priorityValue(p *domain.Priority) any {
	if p == nil {
		return nil
	}
	return string(*p)
}
