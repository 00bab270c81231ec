package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/portalapi"
	"github.com/spec-kit/ticket-portal/internal/session"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// Displayable messages for authentication failures.
const (
	LoginFailedMessage  = "Login failed. Check your username and password."
	SignupFailedMessage = "Sign up failed. Please try again."
	MissingFieldsPrompt = "Please fill in all fields"
	PasswordMismatch    = "Passwords do not match"
)

// AuthService coordinates login, signup, logout and session restore.
type AuthService struct {
	dispatcher
}

// NewAuthService builds the service.
func NewAuthService(deps Dependencies) *AuthService {
	return &AuthService{dispatcher: newDispatcher(deps)}
}

// SignupInput is the signup form.
type SignupInput struct {
	Username        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Login authenticates and makes the returned identity current. On any
// failure the previous identity is left exactly as it was.
func (s *AuthService) Login(ctx context.Context, username, password string) error {
	const action = "login"
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return s.reject(action, apperrors.NewValidationError("Please enter both username and password", nil))
	}

	identity, err := s.api.Login(ctx, username, password)
	if err != nil {
		return s.authFailure(action, err, LoginFailedMessage)
	}
	if err := s.store.Establish(ctx, identity); err != nil {
		if errors.Is(err, session.ErrPersist) {
			s.logger.Error("login could not be persisted", zap.Error(err))
			return s.reject(action, apperrors.NewInternalError(err))
		}
		// The identity is committed; only a subscriber failed.
		s.logger.Warn("login follow-up failed", zap.Error(err))
	}
	s.ok(action)
	return nil
}

// Signup registers an account and then logs in with the same credentials.
func (s *AuthService) Signup(ctx context.Context, in SignupInput) error {
	const action = "signup"
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if in.Username == "" || in.Email == "" || in.Password == "" || in.ConfirmPassword == "" {
		return s.reject(action, apperrors.NewValidationError(MissingFieldsPrompt, nil))
	}
	if in.Password != in.ConfirmPassword {
		return s.reject(action, apperrors.NewValidationError(PasswordMismatch, nil))
	}

	if err := s.api.Register(ctx, in.Username, in.Email, in.Password); err != nil {
		return s.authFailure(action, err, SignupFailedMessage)
	}
	s.ok(action)
	return s.Login(ctx, in.Username, in.Password)
}

// Logout clears the identity locally; the server is not contacted.
func (s *AuthService) Logout(ctx context.Context) error {
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Warn("logout incomplete", zap.Error(err))
		return s.reject("logout", apperrors.NewInternalError(err))
	}
	s.ok("logout")
	return nil
}

// Restore re-establishes a persisted identity without contacting the server.
func (s *AuthService) Restore(ctx context.Context) (bool, error) {
	restored, err := s.store.Restore(ctx)
	if err != nil {
		s.logger.Warn("restore failed", zap.Error(err))
		return restored, s.reject("restore", apperrors.NewInternalError(err))
	}
	s.ok("restore")
	return restored, nil
}

func (s *AuthService) authFailure(action string, err error, fallback string) error {
	var statusErr *portalapi.StatusError
	msg := fallback
	if errors.As(err, &statusErr) && statusErr.Message != "" {
		msg = statusErr.Message
	}
	var decodeErr *portalapi.DecodeError
	var out error
	switch {
	case errors.Is(err, context.Canceled):
		out = apperrors.NewSupersededError(err)
	case errors.As(err, &decodeErr):
		out = apperrors.NewMalformedError(fallback, err)
	case statusErr != nil:
		out = apperrors.NewAuthenticationError(msg, err)
	default:
		out = apperrors.NewUpstreamError(fallback, err)
	}
	s.metrics.RecordDispatch(action, apperrors.ToDomainError(out).Code)
	s.logger.Warn("authentication failed", zap.String("action", action), zap.Error(err))
	return out
}
