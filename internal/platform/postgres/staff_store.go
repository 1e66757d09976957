package postgres

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/platform/logger"
	"github.com/fennwald/triage-api/internal/store"
)

// PostgresStaffStore implements the store.StaffStore interface
// using a PostgreSQL database as the storage backend.
type PostgresStaffStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresStaffStore creates a new PostgreSQL implementation of the
// StaffStore interface.
func NewPostgresStaffStore(db store.DBTX, logger *slog.Logger) *PostgresStaffStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresStaffStore{
		db:     db,
		logger: logger.With(slog.String("component", "staff_store")),
	}
}

// Ensure PostgresStaffStore implements store.StaffStore
var _ store.StaffStore = (*PostgresStaffStore)(nil)

// WithTx returns a new StaffStore instance using the provided transaction.
func (s *PostgresStaffStore) WithTx(tx *sql.Tx) store.StaffStore {
	return &PostgresStaffStore{
		db:     tx,
		logger: s.logger,
	}
}

// IsMember implements store.StaffStore.IsMember.
func (s *PostgresStaffStore) IsMember(ctx context.Context, username string, userID int64) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if username == "" && userID == 0 {
		return false, nil
	}

	query := `
		SELECT EXISTS (
			SELECT 1 FROM staff_members
			WHERE (username = $1 AND $1 <> '') OR (user_id = $2 AND $2 <> 0)
		)
	`

	var exists bool
	if err := s.db.QueryRowContext(ctx, query, username, userID).Scan(&exists); err != nil {
		log.Error("failed to check staff membership",
			slog.String("error", err.Error()),
			slog.String("username", username),
			slog.Int64("user_id", userID))
		return false, store.NewStoreError("staff_member", "get", "membership query failed", err)
	}

	return exists, nil
}

// Add implements store.StaffStore.Add.
func (s *PostgresStaffStore) Add(ctx context.Context, ident domain.StaffIdentity) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		INSERT INTO staff_members (username, user_id)
		VALUES (NULLIF($1, ''), NULLIF($2, 0))
	`
	_, err := s.db.ExecContext(ctx, query, ident.Username, ident.UserID)
	if err != nil {
		if isUniqueViolation(err) {
			return store.ErrDuplicate
		}
		log.Error("failed to add staff member",
			slog.String("error", err.Error()),
			slog.String("username", ident.Username))
		return store.NewStoreError("staff_member", "create", "insert failed", err)
	}

	log.Info("staff member added",
		slog.String("username", ident.Username),
		slog.Int64("user_id", ident.UserID))
	return nil
}
