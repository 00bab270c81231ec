package dto

import "github.com/spec-kit/ticket-portal/internal/domain"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SignupRequest payload for new accounts.
type SignupRequest struct {
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// IdentityResponse describes the signed-in user. The access token stays on
// the server.
type IdentityResponse struct {
	ID       domain.ID `json:"id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
}

// SessionResponse is the state of the caller's session.
type SessionResponse struct {
	Identity *IdentityResponse `json:"identity"`
	Path     string            `json:"path"`
	View     string            `json:"view"`
	Banner   string            `json:"banner,omitempty"`
}

// NewIdentityResponse maps identity, returning nil when signed out.
func NewIdentityResponse(identity *domain.Identity) *IdentityResponse {
	if identity == nil {
		return nil
	}
	return &IdentityResponse{ID: identity.ID, Username: identity.Username, Role: identity.Role.String()}
}
