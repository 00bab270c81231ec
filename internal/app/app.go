// Package app is the controller of one portal session. It owns the session
// store, the ticket cache and the view state, and is the only thing views
// talk to.
package app

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/events"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/repository"
	"github.com/spec-kit/ticket-portal/internal/router"
	"github.com/spec-kit/ticket-portal/internal/service"
	"github.com/spec-kit/ticket-portal/internal/session"
	"github.com/spec-kit/ticket-portal/internal/tickets"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// Dependencies are shared by every App of a process.
type Dependencies struct {
	API        service.PortalAPI
	Repository repository.IdentityRepository
	Sealer     *session.Sealer
	Tokens     *auth.TokenInspector
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	// Clock defaults to time.Now.
	Clock func() time.Time
}

// App holds the state of one session. Reads return copies; every mutation
// goes through a method.
type App struct {
	logger *zap.Logger
	clock  func() time.Time

	store         *session.Store
	auth          *service.AuthService
	tickets       *service.TicketService
	notifications *service.NotificationService
	analytics     *service.AnalyticsService

	mu       sync.Mutex
	id       string
	path     string
	view     router.View
	detail   *tickets.Detail
	dates    domain.DateRange
	banner   string
	lastUsed time.Time
}

// New builds the controller for session id. Call Start before use.
func New(id string, deps Dependencies) *App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	store := session.NewStore(session.Dependencies{
		SessionID:  id,
		Repository: deps.Repository,
		Sealer:     deps.Sealer,
		Tokens:     deps.Tokens,
		Events:     events.NewInMemoryDispatcher(),
		Logger:     logger,
	})
	svcDeps := service.Dependencies{API: deps.API, Store: store, Logger: logger, Metrics: deps.Metrics}
	cache := tickets.NewCache()

	a := &App{
		id:            id,
		logger:        logger.With(zap.String("session_id", id)),
		clock:         clock,
		store:         store,
		auth:          service.NewAuthService(svcDeps),
		tickets:       service.NewTicketService(svcDeps, cache),
		notifications: service.NewNotificationService(svcDeps, cache),
		analytics:     service.NewAnalyticsService(svcDeps),
		path:          router.PathHome,
		view:          router.ViewHome,
		lastUsed:      clock(),
	}

	d := store.Events()
	for _, et := range []events.EventType{events.EventLoggedIn, events.EventSessionRestored, events.EventLoggedOut, events.EventSessionExpired} {
		d.Subscribe(et, a.onIdentity)
	}
	a.notifications.RegisterHandlers()
	return a
}

// ID returns the session id.
func (a *App) ID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Rekey moves the session, including its persisted identity, to id.
func (a *App) Rekey(ctx context.Context, id string) error {
	if err := a.store.Rekey(ctx, id); err != nil {
		return err
	}
	a.mu.Lock()
	a.id = id
	a.mu.Unlock()
	return nil
}

// Start restores a persisted identity, if any, and routes to its landing
// view. The server is only contacted to refresh the ticket list.
func (a *App) Start(ctx context.Context) error {
	_, err := a.auth.Restore(ctx)
	return a.record(err)
}

// onIdentity runs once per identity transition. It never fails the
// transition itself; problems end up in the banner.
func (a *App) onIdentity(ctx context.Context, e events.Event) error {
	a.tickets.Cache().Reset()

	a.mu.Lock()
	a.detail = nil
	switch e.Type {
	case events.EventLoggedIn, events.EventSessionRestored:
		a.routeLocked(router.Landing(e.Identity), e.Identity)
	case events.EventSessionExpired:
		a.routeLocked(router.PathLogin, nil)
		a.banner = service.ExpiredSessionMessage
	default:
		a.routeLocked(router.PathLogin, nil)
	}
	a.mu.Unlock()

	if e.Type == events.EventLoggedIn || e.Type == events.EventSessionRestored {
		a.refresh(ctx)
	}
	return nil
}

// routeLocked resolves p for identity, following one redirect.
func (a *App) routeLocked(p string, identity *domain.Identity) router.Decision {
	decision := router.Resolve(p, identity)
	if decision.IsRedirect() {
		p = decision.Redirect
		decision = router.Resolve(p, identity)
	}
	if !decision.IsRedirect() {
		a.path = router.Clean(p)
		a.view = decision.View
	}
	return decision
}

// Navigate asks to show path. The returned decision is either the view now
// active or the path the caller was redirected to.
func (a *App) Navigate(ctx context.Context, path string) router.Decision {
	a.touch()
	identity := a.store.Current()
	decision := router.Resolve(path, identity)
	if decision.IsRedirect() {
		a.mu.Lock()
		a.routeLocked(decision.Redirect, identity)
		a.mu.Unlock()
		return decision
	}

	a.mu.Lock()
	a.path = router.Clean(path)
	a.view = decision.View
	a.mu.Unlock()

	if needsList(decision.View) && !a.tickets.Cache().Loaded() {
		a.refresh(ctx)
	}
	return decision
}

func needsList(v router.View) bool {
	return v == router.ViewTickets || v == router.ViewDashboard
}

// Login authenticates. On failure the previous identity stays current and
// the banner carries the reason.
func (a *App) Login(ctx context.Context, username, password string) error {
	a.begin()
	return a.record(a.auth.Login(ctx, username, password))
}

// Signup registers and logs in.
func (a *App) Signup(ctx context.Context, in service.SignupInput) error {
	a.begin()
	return a.record(a.auth.Signup(ctx, in))
}

// Logout signs out locally.
func (a *App) Logout(ctx context.Context) error {
	a.begin()
	return a.record(a.auth.Logout(ctx))
}

// Refresh reloads the ticket list for the active date range.
func (a *App) Refresh(ctx context.Context) error {
	a.begin()
	_, err := a.refreshErr(ctx)
	return err
}

// SetDates changes the date range used by later refreshes and dashboards.
func (a *App) SetDates(dates domain.DateRange) {
	a.mu.Lock()
	a.dates = dates
	a.mu.Unlock()
}

func (a *App) refresh(ctx context.Context) {
	if _, err := a.refreshErr(ctx); err != nil {
		a.logger.Debug("refresh did not complete", zap.Error(err))
	}
}

func (a *App) refreshErr(ctx context.Context) (bool, error) {
	a.mu.Lock()
	opts := service.RefreshOptions{Dates: a.dates, AnalyticsOnly: a.view == router.ViewAnalytics}
	a.mu.Unlock()
	ok, err := a.tickets.Refresh(ctx, opts)
	if apperrors.HasCode(err, apperrors.CodeCancelled) {
		// A newer refresh owns the outcome.
		return false, err
	}
	return ok, a.record(err)
}

// Tickets returns the cached list narrowed by f.
func (a *App) Tickets(f tickets.Filter) []domain.Ticket {
	a.touch()
	return a.tickets.Search(f)
}

// Submit creates a ticket from draft.
func (a *App) Submit(ctx context.Context, draft domain.TicketDraft) (*domain.Ticket, error) {
	a.begin()
	t, err := a.tickets.Submit(ctx, draft)
	return t, a.record(err)
}

// OpenTicket opens a fresh detail view; its vote starts unset.
func (a *App) OpenTicket(id domain.ID) (domain.Ticket, error) {
	a.begin()
	if _, err := a.needIdentity(); err != nil {
		return domain.Ticket{}, a.record(err)
	}
	t, ok := a.tickets.Cache().Get(id)
	if !ok {
		return domain.Ticket{}, a.record(apperrors.NewNotFound("ticket", map[string]any{"id": string(id)}))
	}
	a.mu.Lock()
	a.detail = tickets.OpenDetail(t)
	a.mu.Unlock()
	return t, nil
}

// CloseDetail closes the detail view.
func (a *App) CloseDetail() {
	a.touch()
	a.mu.Lock()
	a.detail = nil
	a.mu.Unlock()
}

// Detail returns the open ticket and its vote, or false when closed.
func (a *App) Detail() (domain.Ticket, domain.Vote, bool) {
	a.mu.Lock()
	d := a.detail
	a.mu.Unlock()
	if d == nil {
		return domain.Ticket{}, domain.VoteUnset, false
	}
	return d.Ticket(), d.Vote(), true
}

// Feedback records a verdict on the ticket in the open detail view, which
// must be id.
func (a *App) Feedback(ctx context.Context, id domain.ID, verdict domain.Verdict) error {
	a.begin()
	d := a.openDetail(id)
	return a.record(a.tickets.RecordFeedback(ctx, d, verdict))
}

// Respond sends a staff answer for id, then closes the detail view and
// reloads the list.
func (a *App) Respond(ctx context.Context, id domain.ID, text, rating string) error {
	a.begin()
	if err := a.tickets.RecordStaffResponse(ctx, id, text, rating); err != nil {
		return a.record(err)
	}
	a.CloseDetail()
	_, err := a.refreshErr(ctx)
	if apperrors.HasCode(err, apperrors.CodeCancelled) {
		return nil
	}
	return err
}

func (a *App) openDetail(id domain.ID) *tickets.Detail {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.detail == nil || a.detail.Ticket().ID != id {
		return nil
	}
	return a.detail
}

// Inbox lists unread notifications.
func (a *App) Inbox() []tickets.Notification {
	a.touch()
	return a.notifications.Inbox()
}

// OpenNotification marks the ticket read and opens its detail view.
func (a *App) OpenNotification(ctx context.Context, id domain.ID) (domain.Ticket, error) {
	a.begin()
	d, err := a.notifications.Open(ctx, id)
	if err != nil {
		return domain.Ticket{}, a.record(err)
	}
	a.mu.Lock()
	a.detail = d
	a.mu.Unlock()
	return d.Ticket(), nil
}

// Dashboard loads staff analytics for the active date range.
func (a *App) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	a.begin()
	a.mu.Lock()
	dates := a.dates
	a.mu.Unlock()
	d, err := a.analytics.Dashboard(ctx, dates)
	return d, a.record(err)
}

// Identity returns the current identity, or nil.
func (a *App) Identity() *domain.Identity {
	return a.store.Current()
}

func (a *App) needIdentity() (*domain.Identity, error) {
	identity := a.store.Current()
	if identity == nil {
		return nil, apperrors.NewUnauthorized("Please log in first.")
	}
	return identity, nil
}

// Snapshot is a read-only copy of the view state.
type Snapshot struct {
	Identity    *domain.Identity
	Path        string
	View        router.View
	DetailOpen  bool
	Banner      string
	Dates       domain.DateRange
	Loaded      bool
	TicketCount int
}

// Snapshot copies the current view state.
func (a *App) Snapshot() Snapshot {
	cache := a.tickets.Cache()
	a.mu.Lock()
	defer a.mu.Unlock()
	return Snapshot{
		Identity:    a.store.Current(),
		Path:        a.path,
		View:        a.view,
		DetailOpen:  a.detail != nil,
		Banner:      a.banner,
		Dates:       a.dates,
		Loaded:      cache.Loaded(),
		TicketCount: cache.Len(),
	}
}

// record puts a displayable message for err in the banner. Superseded
// requests leave it alone.
func (a *App) record(err error) error {
	if err == nil || apperrors.HasCode(err, apperrors.CodeCancelled) {
		return err
	}
	a.mu.Lock()
	a.banner = apperrors.UserMessage(err)
	a.mu.Unlock()
	return err
}

// begin starts a command: the banner of the previous one is dropped.
func (a *App) begin() {
	a.mu.Lock()
	a.banner = ""
	a.lastUsed = a.clock()
	a.mu.Unlock()
}

func (a *App) touch() {
	a.mu.Lock()
	a.lastUsed = a.clock()
	a.mu.Unlock()
}

// LastUsed reports when the session last handled a command.
func (a *App) LastUsed() time.Time {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.lastUsed
}
