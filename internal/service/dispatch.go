package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/portalapi"
	"github.com/spec-kit/ticket-portal/internal/session"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// PortalAPI is the subset of the upstream client the dispatchers use.
type PortalAPI interface {
	Login(ctx context.Context, username, password string) (*domain.Identity, error)
	Register(ctx context.Context, username, email, password string) error
	ListTickets(ctx context.Context, token string, dates domain.DateRange) ([]domain.Ticket, error)
	CreateTicket(ctx context.Context, token string, draft domain.TicketDraft) (*domain.Ticket, error)
	SetSatisfaction(ctx context.Context, token string, id domain.ID, verdict domain.Verdict) error
	Respond(ctx context.Context, token string, id domain.ID, text string, rating domain.AIRating) error
	Dashboard(ctx context.Context, token string, dates domain.DateRange) (*domain.Dashboard, error)
}

// ExpiredSessionMessage is shown after the server rejected a stored token.
const ExpiredSessionMessage = "Your session has expired. Please log in again."

// Dependencies are shared by every dispatcher of a session.
type Dependencies struct {
	API     PortalAPI
	Store   *session.Store
	Logger  *zap.Logger
	Metrics *observability.Metrics
}

type dispatcher struct {
	api     PortalAPI
	store   *session.Store
	logger  *zap.Logger
	metrics *observability.Metrics
}

func newDispatcher(deps Dependencies) dispatcher {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return dispatcher{api: deps.API, store: deps.Store, logger: logger, metrics: deps.Metrics}
}

// identity returns the current identity or an UNAUTHORIZED error.
func (d dispatcher) identity() (*domain.Identity, error) {
	identity := d.store.Current()
	if identity == nil {
		return nil, apperrors.NewUnauthorized("Please log in first.")
	}
	return identity, nil
}

// stale reports whether token no longer belongs to the current identity.
func (d dispatcher) stale(token string) bool {
	current := d.store.Current()
	return current == nil || current.AccessToken != token
}

func (d dispatcher) ok(action string) {
	d.metrics.RecordDispatch(action, "ok")
}

// reject reports a failure detected before any network call.
func (d dispatcher) reject(action string, err error) error {
	d.metrics.RecordDispatch(action, apperrors.ToDomainError(err).Code)
	return err
}

// fail converts an upstream failure into a displayable DomainError. A 401 on
// an authenticated call signs the session out, unless token was already
// replaced by a newer identity; that caller just learns it was superseded.
func (d dispatcher) fail(ctx context.Context, action, token string, err error, fallback string) error {
	var (
		statusErr *portalapi.StatusError
		decodeErr *portalapi.DecodeError
		out       error
	)
	switch {
	case errors.Is(err, context.Canceled):
		out = apperrors.NewSupersededError(err)
	case errors.As(err, &statusErr) && statusErr.Status == 401:
		expired, expireErr := d.store.ExpireToken(context.WithoutCancel(ctx), token)
		if expireErr != nil {
			d.logger.Warn("forced logout incomplete", zap.Error(expireErr))
		}
		if expired {
			out = apperrors.NewUnauthorized(ExpiredSessionMessage)
		} else {
			out = apperrors.NewSupersededError(err)
		}
	case errors.As(err, &statusErr):
		msg := fallback
		if statusErr.Message != "" {
			msg = statusErr.Message
		}
		out = apperrors.NewUpstreamError(msg, err)
	case errors.As(err, &decodeErr):
		out = apperrors.NewMalformedError(fallback, err)
	case errors.Is(err, context.DeadlineExceeded):
		out = apperrors.NewUpstreamError("The portal did not respond in time. Please try again.", err)
	default:
		out = apperrors.NewUpstreamError(fallback, err)
	}

	code := apperrors.ToDomainError(out).Code
	d.metrics.RecordDispatch(action, code)
	if code != apperrors.CodeCancelled {
		d.logger.Warn("dispatch failed",
			zap.String("action", action),
			zap.String("session_id", d.store.SessionID()),
			zap.String("code", code),
			zap.Error(err))
	}
	return out
}
