package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennwald/triage-api/internal/service/auth"
)

// mockTokenService validates tokens with a configurable function.
type mockTokenService struct {
	validateFn func(ctx context.Context, tokenString string) (*auth.StaffClaims, error)
}

func (m *mockTokenService) GenerateToken(ctx context.Context, username string, userID int64) (string, error) {
	return "signed-token", nil
}

func (m *mockTokenService) ValidateToken(ctx context.Context, tokenString string) (*auth.StaffClaims, error) {
	if m.validateFn != nil {
		return m.validateFn(ctx, tokenString)
	}
	return &auth.StaffClaims{Username: "admin"}, nil
}

// protectedProbe records whether the wrapped handler ran and what claims it
// saw.
func protectedProbe(claims **auth.StaffClaims, called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		got, ok := GetStaffClaims(r)
		if ok {
			*claims = got
		}
		w.WriteHeader(http.StatusNoContent)
	})
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	t.Run("valid token reaches the handler with claims", func(t *testing.T) {
		svc := &mockTokenService{
			validateFn: func(ctx context.Context, tokenString string) (*auth.StaffClaims, error) {
				assert.Equal(t, "good-token", tokenString)
				return &auth.StaffClaims{Username: "admin", UserID: 777}, nil
			},
		}
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(svc).Authenticate(protectedProbe(&claims, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		require.True(t, called)
		require.NotNil(t, claims)
		assert.Equal(t, "admin", claims.Username)
		assert.Equal(t, int64(777), claims.UserID)
	})

	t.Run("missing header yields 401", func(t *testing.T) {
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(&mockTokenService{}).Authenticate(protectedProbe(&claims, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Authorization header required")
		assert.False(t, called)
	})

	t.Run("malformed header yields 401", func(t *testing.T) {
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(&mockTokenService{}).Authenticate(protectedProbe(&claims, &called))

		tests := []string{
			"good-token",
			"Basic dXNlcjpwYXNz",
			"Bearer",
			"Bearer too many parts",
		}
		for _, header := range tests {
			req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
			req.Header.Set("Authorization", header)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
		}
		assert.False(t, called)
	})

	t.Run("expired token yields 401 with a distinct message", func(t *testing.T) {
		svc := &mockTokenService{
			validateFn: func(ctx context.Context, tokenString string) (*auth.StaffClaims, error) {
				return nil, auth.ErrExpiredToken
			},
		}
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(svc).Authenticate(protectedProbe(&claims, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Authorization", "Bearer stale-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Token expired")
		assert.False(t, called)
	})

	t.Run("invalid token yields 401", func(t *testing.T) {
		svc := &mockTokenService{
			validateFn: func(ctx context.Context, tokenString string) (*auth.StaffClaims, error) {
				return nil, auth.ErrInvalidToken
			},
		}
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(svc).Authenticate(protectedProbe(&claims, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Authorization", "Bearer forged-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, rec.Body.String(), "Invalid token")
		assert.False(t, called)
	})

	t.Run("unexpected validation failure yields 500", func(t *testing.T) {
		svc := &mockTokenService{
			validateFn: func(ctx context.Context, tokenString string) (*auth.StaffClaims, error) {
				return nil, errors.New("keystore unreachable")
			},
		}
		var claims *auth.StaffClaims
		var called bool
		handler := NewAuthMiddleware(svc).Authenticate(protectedProbe(&claims, &called))

		req := httptest.NewRequest(http.MethodGet, "/api/items", nil)
		req.Header.Set("Authorization", "Bearer any-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.False(t, called)
	})
}
