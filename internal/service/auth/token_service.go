package auth

import (
	"context"
	"time"
)

// TokenService defines operations for managing staff session tokens. Every
// mutating API surface (prioritization, export, triggers) requires a valid
// staff token.
type TokenService interface {
	// GenerateToken creates a signed token identifying a staff member.
	// Returns the token string or an error if signing fails.
	GenerateToken(ctx context.Context, username string, userID int64) (string, error)

	// ValidateToken validates the provided token string and extracts the
	// staff claims. Returns ErrExpiredToken, ErrTokenNotYetValid, or
	// ErrInvalidToken on failure.
	ValidateToken(ctx context.Context, tokenString string) (*StaffClaims, error)
}

// StaffClaims carries the identity a validated staff token asserts.
type StaffClaims struct {
	// Username is the staff member's handle, normalized to lowercase.
	Username string `json:"username,omitempty"`

	// UserID is the staff member's numeric chat-platform ID, zero if the
	// token was issued by handle alone.
	UserID int64 `json:"user_id,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
