package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/tickets"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// Prompts shown when a form is incomplete.
const (
	TicketFieldsPrompt   = "Please fill in both the title and the description."
	StaffResponsePrompt  = "Please fill both the response and the AI rating."
	FeedbackClosedPrompt = "Open the ticket before rating its answer."
)

// TicketService keeps the session's ticket cache in step with the server.
type TicketService struct {
	dispatcher
	cache *tickets.Cache
}

// NewTicketService builds the service around cache.
func NewTicketService(deps Dependencies, cache *tickets.Cache) *TicketService {
	return &TicketService{dispatcher: newDispatcher(deps), cache: cache}
}

// Cache exposes the ticket cache for read-only views.
func (s *TicketService) Cache() *tickets.Cache {
	return s.cache
}

// RefreshOptions narrow a refresh.
type RefreshOptions struct {
	Dates domain.DateRange
	// AnalyticsOnly is set while a staff member is on the analytics-only view,
	// which never shows the raw list.
	AnalyticsOnly bool
}

// Refresh replaces the cache with the server's current list. It reports
// whether a fetch was made and committed. A refresh superseded by a newer
// one returns a REQUEST_SUPERSEDED error and leaves the newer result alone.
func (s *TicketService) Refresh(ctx context.Context, opts RefreshOptions) (bool, error) {
	const action = "refresh"
	identity := s.store.Current()
	if identity == nil {
		return false, nil
	}
	if identity.IsStaff() && opts.AnalyticsOnly {
		return false, nil
	}
	if err := checkDates(opts.Dates); err != nil {
		return false, s.reject(action, err)
	}

	fetchCtx, gen := s.cache.Begin(ctx)
	list, err := s.api.ListTickets(fetchCtx, identity.AccessToken, opts.Dates)
	if err != nil {
		s.cache.Abandon(gen)
		return false, s.fail(ctx, action, identity.AccessToken, err, "Could not load tickets. Please try again.")
	}
	if !s.cache.Commit(gen, list) {
		return false, s.reject(action, apperrors.NewSupersededError(errors.New("a newer refresh replaced this one")))
	}
	s.logger.Debug("tickets refreshed", zap.String("session_id", s.store.SessionID()), zap.Int("count", len(list)))
	s.ok(action)
	return true, nil
}

// Submit creates a ticket and appends the server's record to the cache.
func (s *TicketService) Submit(ctx context.Context, draft domain.TicketDraft) (*domain.Ticket, error) {
	const action = "submit"
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Description = strings.TrimSpace(draft.Description)
	if draft.Title == "" || draft.Description == "" {
		return nil, s.reject(action, apperrors.NewValidationError(TicketFieldsPrompt, nil))
	}
	if draft.Count < 0 {
		return nil, s.reject(action, apperrors.NewValidationError("The number of complaints cannot be negative.", nil))
	}
	identity, err := s.identity()
	if err != nil {
		return nil, s.reject(action, err)
	}

	created, err := s.api.CreateTicket(ctx, identity.AccessToken, draft)
	if err != nil {
		return nil, s.fail(ctx, action, identity.AccessToken, err, "Could not submit the ticket. Please try again.")
	}
	if s.stale(identity.AccessToken) {
		// Created for an identity that has since signed out; its list is gone.
		return nil, s.reject(action, apperrors.NewSupersededError(errors.New("identity changed during submit")))
	}
	s.cache.Append(*created)
	s.publish(ctx, events.EventTicketSubmitted, identity, created.ID, nil)
	s.ok(action)
	out := created.Clone()
	return &out, nil
}

// RecordFeedback sends the satisfaction verdict for the ticket shown in
// detail. A second vote in the same opening is refused without a network call.
func (s *TicketService) RecordFeedback(ctx context.Context, detail *tickets.Detail, verdict domain.Verdict) error {
	const action = "feedback"
	if detail == nil {
		return s.reject(action, apperrors.NewValidationError(FeedbackClosedPrompt, nil))
	}
	parsed, err := domain.ParseVerdict(string(verdict))
	if err != nil {
		return s.reject(action, apperrors.NewValidationError("Choose satisfied or unsatisfied.", map[string]any{"verdict": string(verdict)}))
	}
	verdict = parsed
	identity, err := s.identity()
	if err != nil {
		return s.reject(action, err)
	}
	if err := detail.BeginVote(); err != nil {
		return s.reject(action, apperrors.NewConflict(voteMessage(err), nil))
	}

	ticket := detail.Ticket()
	if err := s.api.SetSatisfaction(ctx, identity.AccessToken, ticket.ID, verdict); err != nil {
		detail.AbortVote()
		return s.fail(ctx, action, identity.AccessToken, err, "Could not record your feedback. Please try again.")
	}
	detail.CompleteVote(verdict)
	s.publish(ctx, events.EventFeedbackRecorded, identity, ticket.ID, events.FeedbackPayload{Verdict: verdict})
	s.ok(action)
	return nil
}

func voteMessage(err error) string {
	if errors.Is(err, tickets.ErrVoteInFlight) {
		return "Your feedback is already being sent."
	}
	return "You already rated this answer."
}

// RecordStaffResponse sends a staff reply with a rating of the automated
// answer. Both are required before anything is sent.
func (s *TicketService) RecordStaffResponse(ctx context.Context, id domain.ID, text, rating string) error {
	const action = "respond"
	identity, err := s.identity()
	if err != nil {
		return s.reject(action, err)
	}
	if !identity.IsStaff() {
		return s.reject(action, apperrors.NewForbidden("Only staff can answer tickets."))
	}
	text = strings.TrimSpace(text)
	parsed, ok := domain.ParseAIRating(rating)
	if text == "" || !ok {
		return s.reject(action, apperrors.NewValidationError(StaffResponsePrompt, nil))
	}
	if id == "" {
		return s.reject(action, apperrors.NewValidationError("Select a ticket to answer.", nil))
	}

	if err := s.api.Respond(ctx, identity.AccessToken, id, text, parsed); err != nil {
		return s.fail(ctx, action, identity.AccessToken, err, "Could not send the response. Please try again.")
	}
	s.publish(ctx, events.EventStaffResponded, identity, id, events.StaffResponsePayload{Rating: parsed})
	s.ok(action)
	return nil
}

// Search filters the cached list locally.
func (s *TicketService) Search(f tickets.Filter) []domain.Ticket {
	return s.cache.Search(f)
}

func (d dispatcher) publish(ctx context.Context, eventType events.EventType, identity *domain.Identity, id domain.ID, payload any) {
	if err := d.store.Events().Publish(ctx, events.Event{
		Type:      eventType,
		SessionID: d.store.SessionID(),
		Identity:  identity,
		TicketID:  id,
		Timestamp: time.Now(),
		Payload:   payload,
	}); err != nil {
		d.logger.Warn("event handler failed", zap.String("event", string(eventType)), zap.Error(err))
	}
}
