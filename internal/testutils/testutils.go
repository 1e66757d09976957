// Package testutils provides helpers shared by integration tests: gated
// database access, transaction-scoped isolation, and row factories for the
// triage schema.
package testutils

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/require"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/store"
)

// IsIntegrationTestEnvironment reports whether a test database is
// available. Integration tests skip themselves when it returns false.
func IsIntegrationTestEnvironment() bool {
	return os.Getenv("DATABASE_URL") != ""
}

// GetTestDB opens a connection to the test database named by DATABASE_URL.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	require.NotEmpty(t, dbURL, "DATABASE_URL must be set for integration tests")

	db, err := sql.Open("pgx", dbURL)
	require.NoError(t, err, "failed to open test database")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "failed to ping test database")

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return db
}

// WithTx runs fn inside a transaction that is always rolled back, so tests
// never leak rows into the shared database.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Errorf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// NewTestLogger returns a quiet logger for tests. Failures surface through
// assertions, not log output.
func NewTestLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// MustInsertMessage inserts an unprocessed message row and returns it with
// its assigned ID.
func MustInsertMessage(
	ctx context.Context,
	t *testing.T,
	tx store.DBTX,
	conversationID int64,
	text string,
	receivedAt time.Time,
) *domain.Message {
	t.Helper()

	msg, err := domain.NewMessage(conversationID, 1000, "customer", "Test Customer", text, receivedAt)
	require.NoError(t, err)

	err = tx.QueryRowContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, sender_username, sender_name, text, received_at, processed)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, msg.ConversationID, msg.SenderID, msg.SenderUsername, msg.SenderName, msg.Text, msg.ReceivedAt, msg.Processed).
		Scan(&msg.ID)
	require.NoError(t, err, "failed to insert test message")

	return msg
}

// MustInsertTask inserts an extracted task row sourced from the given
// message IDs.
func MustInsertTask(
	ctx context.Context,
	t *testing.T,
	tx store.DBTX,
	conversationID int64,
	text string,
	sourceMessageIDs []int64,
) *domain.ExtractedTask {
	t.Helper()

	task, err := domain.NewExtractedTask(conversationID, text, sourceMessageIDs)
	require.NoError(t, err)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO extracted_tasks (id, conversation_id, text, source_message_ids, extracted_at, created_date)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, task.ID, task.ConversationID, task.Text, mustJSONIDs(t, task.SourceMessageIDs), task.ExtractedAt, task.CreatedDate)
	require.NoError(t, err, "failed to insert test task")

	return task
}

// MustInsertItem inserts a pending prioritization item for the given task.
func MustInsertItem(
	ctx context.Context,
	t *testing.T,
	tx store.DBTX,
	task *domain.ExtractedTask,
) *domain.PrioritizationItem {
	t.Helper()

	item, err := domain.NewPrioritizationItem(task.ConversationID, task.ID, task.Text)
	require.NoError(t, err)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO prioritization_items (id, conversation_id, task_id, task_text, priority, state, created_at)
		VALUES ($1, $2, $3, $4, NULL, $5, $6)
	`, item.ID, item.ConversationID, item.TaskID, item.TaskText, item.State, item.CreatedAt)
	require.NoError(t, err, "failed to insert test item")

	return item
}

func mustJSONIDs(t *testing.T, ids []int64) []byte {
	t.Helper()
	data, err := json.Marshal(ids)
	require.NoError(t, err)
	return data
}

// RandomConversationID returns a conversation ID unlikely to collide with
// rows from other tests sharing the database.
func RandomConversationID() int64 {
	return int64(uuid.New().ID())
}
