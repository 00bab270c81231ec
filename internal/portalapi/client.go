// Package portalapi is the HTTP client for the ticket portal REST API.
package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/observability"
)

// Endpoint paths of the upstream API.
const (
	PathLogin        = "/auth/login"
	PathRegister     = "/auth/register"
	PathListTickets  = "/complaint/allcomplaints"
	PathCreateTicket = "/complaint/addcomplaint"
	PathSatisfaction = "/complaint/setsatisfaction/"
	PathRespond      = "/complaint/respondtocomplaint/"
	PathDashboard    = "/analytics/admin/dashboard"
)

const maxBodyBytes = 4 << 20

// ErrResponseTooLarge is returned when a body exceeds maxBodyBytes.
var ErrResponseTooLarge = errors.New("response too large")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Endpoint string
	Status   int
	// Message is the server supplied {"message": ...} text, if any.
	Message string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.Status)
}

// IsUnauthorized reports whether err is a 401 from the API.
func IsUnauthorized(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status == http.StatusUnauthorized
}

// DecodeError is returned when a 2xx body cannot be decoded.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s: decode response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client talks to the portal API.
type Client struct {
	baseURL *url.URL
	http    *http.Client
	logger  *zap.Logger
	metrics *observability.Metrics
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMetrics records upstream latency.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client for cfg.BaseURL.
func New(cfg config.APIConfig, logger *zap.Logger, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("api base url %q must be absolute", cfg.BaseURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout()},
		logger:  logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ResolveURL resolves a server-relative URL (such as a graph image) against the base URL.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return u.String()
	}
	base := *c.baseURL
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(&url.URL{Path: strings.TrimPrefix(u.Path, "/"), RawQuery: u.RawQuery}).String()
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	ID          domain.ID `json:"id"`
	Username    string    `json:"username"`
	Role        string    `json:"role"`
	AccessToken string    `json:"access_token"`
}

// Login exchanges credentials for an identity.
func (c *Client) Login(ctx context.Context, username, password string) (*domain.Identity, error) {
	var resp loginResponse
	if err := c.do(ctx, http.MethodPost, PathLogin, "", nil, loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}
	role, err := domain.ParseRole(resp.Role)
	if err != nil {
		return nil, &DecodeError{Endpoint: PathLogin, Err: err}
	}
	identity := &domain.Identity{
		ID:          resp.ID,
		Username:    resp.Username,
		Role:        role,
		AccessToken: resp.AccessToken,
	}
	if identity.Username == "" {
		identity.Username = username
	}
	if !identity.Valid() {
		return nil, &DecodeError{Endpoint: PathLogin, Err: errors.New("incomplete identity in login response")}
	}
	return identity, nil
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates an account. The caller logs in afterwards.
func (c *Client) Register(ctx context.Context, username, email, password string) error {
	return c.do(ctx, http.MethodPost, PathRegister, "", nil, registerRequest{Username: username, Email: email, Password: password}, nil)
}

// ListTickets fetches every ticket the server shows to the bearer.
func (c *Client) ListTickets(ctx context.Context, token string, dates domain.DateRange) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	if err := c.do(ctx, http.MethodGet, PathListTickets, token, dateQuery(dates), nil, &tickets); err != nil {
		return nil, err
	}
	if tickets == nil {
		tickets = []domain.Ticket{}
	}
	return tickets, nil
}

type createTicketRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	NumberOfComplaints int    `json:"number_of_complaints"`
}

// CreateTicket submits a draft; the server classifies it and drafts the automated reply.
func (c *Client) CreateTicket(ctx context.Context, token string, draft domain.TicketDraft) (*domain.Ticket, error) {
	count := draft.Count
	if count <= 0 {
		count = 1
	}
	var ticket domain.Ticket
	req := createTicketRequest{Title: draft.Title, Description: draft.Description, NumberOfComplaints: count}
	if err := c.do(ctx, http.MethodPost, PathCreateTicket, token, nil, req, &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// SetSatisfaction records the end user's verdict on the automated reply.
func (c *Client) SetSatisfaction(ctx context.Context, token string, id domain.ID, verdict domain.Verdict) error {
	body := map[string]string{"satisfaction": string(verdict)}
	return c.do(ctx, http.MethodPost, PathSatisfaction+url.PathEscape(string(id)), token, nil, body, nil)
}

type respondRequest struct {
	DepartmentResponse string          `json:"department_response"`
	AdminEval          domain.AIRating `json:"admin_eval_on_ai_response"`
}

// Respond stores the staff response and the staff rating of the automated reply.
func (c *Client) Respond(ctx context.Context, token string, id domain.ID, text string, rating domain.AIRating) error {
	req := respondRequest{DepartmentResponse: text, AdminEval: rating}
	return c.do(ctx, http.MethodPost, PathRespond+url.PathEscape(string(id)), token, nil, req, nil)
}

// Dashboard fetches staff analytics. Bare NaN tokens in the body become 0.
func (c *Client) Dashboard(ctx context.Context, token string, dates domain.DateRange) (*domain.Dashboard, error) {
	raw, err := c.raw(ctx, http.MethodGet, PathDashboard, token, dateQuery(dates), nil)
	if err != nil {
		return nil, err
	}
	var dash domain.Dashboard
	if err := json.Unmarshal(SanitizeNaN(raw), &dash); err != nil {
		return nil, &DecodeError{Endpoint: PathDashboard, Err: err}
	}
	if dash.Metrics == nil {
		dash.Metrics = map[string]any{}
	}
	resolved := make(map[string]string, len(dash.GraphURLs))
	for name, ref := range dash.GraphURLs {
		resolved[name] = c.ResolveURL(ref)
	}
	dash.GraphURLs = resolved
	return &dash, nil
}

func dateQuery(dates domain.DateRange) url.Values {
	if dates.IsZero() {
		return nil
	}
	q := url.Values{}
	if dates.Start != nil {
		q.Set("startDate", dates.Start.Format(domain.DateLayout))
	}
	if dates.End != nil {
		q.Set("endDate", dates.End.Format(domain.DateLayout))
	}
	return q
}

func (c *Client) do(ctx context.Context, method, path, token string, query url.Values, in, out any) error {
	raw, err := c.raw(ctx, method, path, token, query, in)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &DecodeError{Endpoint: endpointName(path), Err: err}
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path, token string, query url.Values, in any) ([]byte, error) {
	endpoint := endpointName(path)
	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + path
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("%s: encode request: %w", endpoint, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.RecordUpstream(endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	c.metrics.RecordUpstream(endpoint, resp.StatusCode, time.Since(start))

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%s: read response: %w", endpoint, err)
	}
	if len(data) > maxBodyBytes {
		return nil, fmt.Errorf("%s: %w (over %d bytes)", endpoint, ErrResponseTooLarge, maxBodyBytes)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{Endpoint: endpoint, Status: resp.StatusCode, Message: serverMessage(data)}
		c.logger.Debug("portal api rejected request",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.String("message", se.Message))
		return nil, se
	}
	return data, nil
}

func serverMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// endpointName strips per-ticket ids so metric labels stay bounded.
func endpointName(path string) string {
	for _, prefix := range []string{PathSatisfaction, PathRespond} {
		if strings.HasPrefix(path, prefix) {
			return prefix + ":id"
		}
	}
	return path
}
