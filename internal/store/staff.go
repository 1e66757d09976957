package store

import (
	"context"
	"database/sql"

	"github.com/fennwald/triage-api/internal/domain"
)

// StaffStore defines the interface for the persisted staff member set.
// This is the dynamic half of the staff classification; the static half is
// the configured allow-list, and the two are merged by the staff directory.
type StaffStore interface {
	// IsMember reports whether the username or user id matches a persisted
	// staff member. Either field may be zero-valued.
	IsMember(ctx context.Context, username string, userID int64) (bool, error)

	// Add persists a new staff member.
	// Returns ErrDuplicate if the username or user id already exists.
	Add(ctx context.Context, ident domain.StaffIdentity) error

	// WithTx returns a new StaffStore instance that uses the provided
	// transaction.
	WithTx(tx *sql.Tx) StaffStore
}
