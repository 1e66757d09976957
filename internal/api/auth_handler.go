package api

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/fennwald/triage-api/internal/api/shared"
	"github.com/fennwald/triage-api/internal/config"
	"github.com/fennwald/triage-api/internal/service/auth"
	"github.com/fennwald/triage-api/internal/staff"
)

// AuthHandler issues staff session tokens.
type AuthHandler struct {
	tokenService auth.TokenService
	directory    *staff.Directory
	lifetime     time.Duration
	validator    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(
	tokenService auth.TokenService,
	directory *staff.Directory,
	cfg config.AuthConfig,
) *AuthHandler {
	return &AuthHandler{
		tokenService: tokenService,
		directory:    directory,
		lifetime:     time.Duration(cfg.TokenLifetimeHours) * time.Hour,
		validator:    validator.New(),
	}
}

// IssueToken handles POST /api/auth/token requests. Only identities in the
// staff directory receive tokens; everyone else gets the same 403 so the
// endpoint does not reveal who is on staff.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	var req TokenRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	isStaff, err := h.directory.IsStaff(r.Context(), req.Username, req.UserID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}
	if !isStaff {
		shared.RespondWithError(w, r, http.StatusForbidden, "Not a staff member")
		return
	}

	token, err := h.tokenService.GenerateToken(r.Context(), req.Username, req.UserID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to issue token", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TokenResponse{
		AccessToken: token,
		ExpiresAt:   time.Now().UTC().Add(h.lifetime).Format(time.RFC3339),
	})
}
