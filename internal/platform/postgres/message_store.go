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
)

// PostgresMessageStore implements the store.MessageStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMessageStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMessageStore creates a new PostgreSQL implementation of the
// MessageStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
func NewPostgresMessageStore(db store.DBTX, logger *slog.Logger) *PostgresMessageStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMessageStore{
		db:     db,
		logger: logger.With(slog.String("component", "message_store")),
	}
}

// Ensure PostgresMessageStore implements store.MessageStore
var _ store.MessageStore = (*PostgresMessageStore)(nil)

// WithTx returns a new MessageStore instance using the provided transaction.
func (s *PostgresMessageStore) WithTx(tx *sql.Tx) store.MessageStore {
	return &PostgresMessageStore{
		db:     tx,
		logger: s.logger,
	}
}

// Create implements store.MessageStore.Create. It saves a new message and
// assigns the generated row id back to msg.ID.
func (s *PostgresMessageStore) Create(ctx context.Context, msg *domain.Message) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := msg.Validate(); err != nil {
		log.Warn("message validation failed during create",
			slog.String("error", err.Error()),
			slog.Int64("conversation_id", msg.ConversationID))
		return err
	}

	query := `
		INSERT INTO messages (conversation_id, sender_id, sender_username, sender_name, text, received_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`
	err := s.db.QueryRowContext(
		ctx,
		query,
		msg.ConversationID,
		msg.SenderID,
		msg.SenderUsername,
		msg.SenderName,
		msg.Text,
		msg.ReceivedAt,
		msg.Processed,
	).Scan(&msg.ID)

	if err != nil {
		log.Error("failed to create message",
			slog.String("error", err.Error()),
			slog.Int64("conversation_id", msg.ConversationID))
		return store.NewStoreError("message", "create", "insert failed", err)
	}

	log.Debug("message created",
		slog.Int64("message_id", msg.ID),
		slog.Int64("conversation_id", msg.ConversationID))
	return nil
}

// GetByID implements store.MessageStore.GetByID.
func (s *PostgresMessageStore) GetByID(ctx context.Context, id int64) (*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, sender_id, sender_username, sender_name, text, received_at, processed
		FROM messages
		WHERE id = $1
	`

	var msg domain.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.SenderID,
		&msg.SenderUsername,
		&msg.SenderName,
		&msg.Text,
		&msg.ReceivedAt,
		&msg.Processed,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrMessageNotFound
		}
		log.Error("failed to get message by ID",
			slog.String("error", err.Error()),
			slog.Int64("message_id", id))
		return nil, store.NewStoreError("message", "get", "query failed", err)
	}

	return &msg, nil
}

// GetUnprocessedInWindow implements store.MessageStore.GetUnprocessedInWindow.
// The window is half-open: received_at in [start, end).
func (s *PostgresMessageStore) GetUnprocessedInWindow(
	ctx context.Context,
	conversationID int64,
	start, end time.Time,
) ([]*domain.Message, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, conversation_id, sender_id, sender_username, sender_name, text, received_at, processed
		FROM messages
		WHERE conversation_id = $1 AND processed = FALSE AND received_at >= $2 AND received_at < $3
		ORDER BY received_at ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, conversationID, start, end)
	if err != nil {
		log.Error("failed to query unprocessed messages",
			slog.String("error", err.Error()),
			slog.Int64("conversation_id", conversationID))
		return nil, store.NewStoreError("message", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []*domain.Message
	for rows.Next() {
		var msg domain.Message
		if err := rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.SenderID,
			&msg.SenderUsername,
			&msg.SenderName,
			&msg.Text,
			&msg.ReceivedAt,
			&msg.Processed,
		); err != nil {
			return nil, store.NewStoreError("message", "list", "scan failed", err)
		}
		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("message", "list", "row iteration failed", err)
	}

	return messages, nil
}

// MarkProcessed implements store.MessageStore.MarkProcessed.
func (s *PostgresMessageStore) MarkProcessed(ctx context.Context, ids []int64) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(ids) == 0 {
		return 0, nil
	}

	query := `UPDATE messages SET processed = TRUE WHERE id = ANY($1) AND processed = FALSE`

	// The pgx stdlib driver maps []int64 to a postgres bigint array.
	result, err := s.db.ExecContext(ctx, query, ids)
	if err != nil {
		log.Error("failed to mark messages processed",
			slog.String("error", err.Error()),
			slog.Int("id_count", len(ids)))
		return 0, store.NewStoreError("message", "update", "mark processed failed", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("message", "update", "rows affected unavailable", err)
	}

	if affected != int64(len(ids)) {
		// Some of the ids were missing or already processed. Callers treat
		// this as an integrity violation and roll the batch back.
		return affected, fmt.Errorf("%w: marked %d of %d messages processed",
			store.ErrUpdateFailed, affected, len(ids))
	}

	return affected, nil
}

// ConversationsWithUnprocessed implements
// store.MessageStore.ConversationsWithUnprocessed.
func (s *PostgresMessageStore) ConversationsWithUnprocessed(
	ctx context.Context,
	start, end time.Time,
) ([]int64, error) {
	query := `
		SELECT DISTINCT conversation_id
		FROM messages
		WHERE processed = FALSE AND received_at >= $1 AND received_at < $2
	`
	return s.queryConversationIDs(ctx, query, start, end)
}

// ListConversations implements store.MessageStore.ListConversations.
func (s *PostgresMessageStore) ListConversations(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT conversation_id FROM messages`
	return s.queryConversationIDs(ctx, query)
}

func (s *PostgresMessageStore) queryConversationIDs(ctx context.Context, query string, args ...any) ([]int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query conversation ids", slog.String("error", err.Error()))
		return nil, store.NewStoreError("message", "list", "query failed", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, store.NewStoreError("message", "list", "scan failed", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("message", "list", "row iteration failed", err)
	}

	return ids, nil
}
