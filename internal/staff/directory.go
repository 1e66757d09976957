package staff

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/domain"
	"github.com/fennwald/triage-api/internal/store"
)

// Directory answers staff membership questions. Membership is the union of
// the static allow-list from configuration and the staff_members table, so
// operators can ship a baseline in config and add people at runtime.
type Directory struct {
	store     store.StaffStore
	usernames map[string]struct{}
	userIDs   map[int64]struct{}
	logger    *slog.Logger
}

// NewDirectory creates a staff directory seeded from configuration.
// It panics if the store or logger is nil, as this represents a programming error.
func NewDirectory(cfg config.StaffConfig, staffStore store.StaffStore, logger *slog.Logger) *Directory {
	// ALLOW-PANIC: constructor enforces non-nil dependencies.
	if staffStore == nil {
		panic("staff directory requires a non-nil staff store")
	}
	if logger == nil {
		panic("staff directory requires a non-nil logger")
	}

	usernames := make(map[string]struct{}, len(cfg.Usernames))
	for _, u := range cfg.Usernames {
		u = normalizeUsername(u)
		if u != "" {
			usernames[u] = struct{}{}
		}
	}
	userIDs := make(map[int64]struct{}, len(cfg.UserIDs))
	for _, id := range cfg.UserIDs {
		if id != 0 {
			userIDs[id] = struct{}{}
		}
	}

	return &Directory{
		store:     staffStore,
		usernames: usernames,
		userIDs:   userIDs,
		logger:    logger.With(slog.String("component", "staff_directory")),
	}
}

// IsStaff reports whether the sender is a staff member by username or by
// numeric user ID. The static allow-list is consulted first so the common
// case avoids a database round trip.
func (d *Directory) IsStaff(ctx context.Context, username string, userID int64) (bool, error) {
	if _, ok := d.usernames[normalizeUsername(username)]; ok {
		return true, nil
	}
	if _, ok := d.userIDs[userID]; userID != 0 && ok {
		return true, nil
	}

	member, err := d.store.IsMember(ctx, normalizeUsername(username), userID)
	if err != nil {
		return false, fmt.Errorf("checking staff membership: %w", err)
	}
	return member, nil
}

// Add registers a staff member at runtime. Duplicate entries are accepted
// silently since the caller's intent is already satisfied.
func (d *Directory) Add(ctx context.Context, ident domain.StaffIdentity) error {
	ident.Username = normalizeUsername(ident.Username)
	if ident.Username == "" && ident.UserID == 0 {
		return fmt.Errorf("%w: staff identity requires a username or user ID", domain.ErrValidation)
	}

	if err := d.store.Add(ctx, ident); err != nil {
		if store.IsDuplicateError(err) {
			return nil
		}
		return fmt.Errorf("adding staff member: %w", err)
	}

	d.logger.Info("staff member added",
		slog.String("username", ident.Username),
		slog.Int64("user_id", ident.UserID))

	return nil
}

// normalizeUsername lowercases and strips a leading @ so lookups are
// insensitive to how the handle was typed.
func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
