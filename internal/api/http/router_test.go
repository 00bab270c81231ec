package http

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-portal/internal/api/http/handlers"
	"github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/auth"
	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/observability"
	"github.com/spec-kit/ticket-portal/internal/portalapi"
	"github.com/spec-kit/ticket-portal/internal/portalapi/portaltest"
	"github.com/spec-kit/ticket-portal/internal/repository"
)

type gateway struct {
	t        *testing.T
	app      *fiber.App
	cookie   *http.Cookie
	portal   *portaltest.Server
	sessions *app.Registry
}

func newGateway(t *testing.T) *gateway {
	t.Helper()
	srv := portaltest.NewServer(
		portaltest.User{ID: 7, Username: "ann", Password: "pw", Role: "client"},
		portaltest.User{ID: 9, Username: "bob", Password: "pw", Role: "admin"},
	)
	t.Cleanup(srv.Close)
	metrics := observability.NewMetrics()
	client, err := portalapi.New(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, nil, portalapi.WithMetrics(metrics))
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	registry := app.NewRegistry(app.Dependencies{
		API:        client,
		Repository: repository.NewMemoryIdentityRepository(),
		Metrics:    metrics,
	})

	f := fiber.New()
	RegisterMiddlewares(f, zap.NewNop(), metrics, 0)
	RegisterRoutes(f, RouteConfig{
		Health:            handlers.NewHealthHandler("ticket-portal", "test", nil),
		Sessions:          registry,
		SessionMiddleware: auth.NewSessionMiddleware(config.SessionConfig{CookieName: "portal_sid"}),
		Metrics:           metrics,
	})
	return &gateway{t: t, app: f, portal: srv, sessions: registry}
}

func (g *gateway) do(method, path, body string) (*http.Response, map[string]any) {
	g.t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if g.cookie != nil {
		req.AddCookie(g.cookie)
	}
	resp, err := g.app.Test(req, -1)
	if err != nil {
		g.t.Fatalf("%s %s: %v", method, path, err)
	}
	for _, c := range resp.Cookies() {
		if c.Name == "portal_sid" {
			g.cookie = c
		}
	}
	raw, _ := io.ReadAll(resp.Body)
	out := map[string]any{}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &out)
	}
	return resp, out
}

func (g *gateway) useSession(sid string) {
	g.cookie = &http.Cookie{Name: "portal_sid", Value: sid}
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealthLive(t *testing.T) {
	g := newGateway(t)
	resp, body := g.do(http.MethodGet, "/health/live", "")
	if resp.StatusCode != http.StatusOK || body["status"] != "alive" {
		t.Fatalf("live = %d %v", resp.StatusCode, body)
	}
	if g.cookie != nil {
		t.Fatal("health probe issued a session cookie")
	}
}

func TestAnonymousViewRedirectsToLogin(t *testing.T) {
	g := newGateway(t)
	resp, _ := g.do(http.MethodGet, "/views/admin", "")
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/views/login" {
		t.Fatalf("status %d location %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	if g.cookie == nil {
		t.Fatal("no session cookie issued")
	}
}

func TestLoginSubmitAndList(t *testing.T) {
	g := newGateway(t)
	resp, body := g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"pw"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login = %d %v", resp.StatusCode, body)
	}
	data := body["data"].(map[string]any)
	if data["view"] != "tickets" {
		t.Fatalf("landing view = %v", data["view"])
	}
	if _, leaked := data["identity"].(map[string]any)["access_token"]; leaked {
		t.Fatal("access token exposed to the browser")
	}

	resp, body = g.do(http.MethodPost, "/tickets", `{"title":"Login broken","description":"Cannot sign in"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("submit = %d %v", resp.StatusCode, body)
	}
	created := body["data"].(map[string]any)
	if created["staff_reply"] != nil || created["answered"] != false {
		t.Fatalf("created = %v", created)
	}

	_, body = g.do(http.MethodGet, "/tickets?status=pending", "")
	if list := body["data"].([]any); len(list) != 1 {
		t.Fatalf("list = %v", body)
	}
}

func TestSubmitValidationIsLocal(t *testing.T) {
	g := newGateway(t)
	g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"pw"}`)
	resp, body := g.do(http.MethodPost, "/tickets", `{"title":"only title"}`)
	if resp.StatusCode != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("submit = %d %v", resp.StatusCode, body)
	}
	if g.portal.Calls("/complaint/addcomplaint") != 0 {
		t.Fatal("invalid ticket reached the portal")
	}
}

func TestFailedLoginReturnsServerMessage(t *testing.T) {
	g := newGateway(t)
	resp, body := g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"nope"}`)
	if resp.StatusCode != http.StatusUnauthorized || errorCode(body) != "AUTHENTICATION_FAILED" {
		t.Fatalf("login = %d %v", resp.StatusCode, body)
	}
	_, body = g.do(http.MethodGet, "/session", "")
	if body["data"].(map[string]any)["identity"] != nil {
		t.Fatal("identity stored after failed login")
	}
}

func TestRoleGuards(t *testing.T) {
	g := newGateway(t)
	resp, body := g.do(http.MethodGet, "/tickets", "")
	if resp.StatusCode != http.StatusUnauthorized || errorCode(body) != "UNAUTHORIZED" {
		t.Fatalf("anonymous list = %d %v", resp.StatusCode, body)
	}

	g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"pw"}`)
	resp, body = g.do(http.MethodGet, "/analytics", "")
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("consumer analytics = %d %v", resp.StatusCode, body)
	}
	resp, _ = g.do(http.MethodPost, "/tickets/1/response", `{"response":"x","ai_rating":"good"}`)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("consumer respond = %d", resp.StatusCode)
	}
}

func TestStaffRespondWithoutRating(t *testing.T) {
	g := newGateway(t)
	g.portal.AddTicket(map[string]any{"id": 5, "user_id": 7, "admin_response": "PENDING"})
	g.do(http.MethodPost, "/session/login", `{"username":"bob","password":"pw"}`)

	resp, body := g.do(http.MethodPost, "/tickets/5/response", `{"response":"Reset link sent"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("respond = %d %v", resp.StatusCode, body)
	}
	msg := body["error"].(map[string]any)["message"]
	if msg != "Please fill both the response and the AI rating." {
		t.Fatalf("message = %v", msg)
	}
	if g.portal.Calls("/complaint/respondtocomplaint/") != 0 {
		t.Fatal("response sent without a rating")
	}
}

func TestFeedbackTwiceConflicts(t *testing.T) {
	g := newGateway(t)
	g.portal.AddTicket(map[string]any{"id": "T1", "user_id": 7, "admin_response": "PENDING"})
	g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"pw"}`)

	resp, body := g.do(http.MethodGet, "/tickets/T1", "")
	if resp.StatusCode != http.StatusOK || body["data"].(map[string]any)["vote"] != "unset" {
		t.Fatalf("open = %d %v", resp.StatusCode, body)
	}
	resp, _ = g.do(http.MethodPost, "/tickets/T1/feedback", `{"satisfaction":"satisfied"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first vote = %d", resp.StatusCode)
	}
	resp, body = g.do(http.MethodPost, "/tickets/T1/feedback", `{"satisfaction":"unsatisfied"}`)
	if resp.StatusCode != http.StatusConflict || errorCode(body) != "CONFLICT" {
		t.Fatalf("second vote = %d %v", resp.StatusCode, body)
	}
}

func TestAnalyticsNaNBecomesZero(t *testing.T) {
	g := newGateway(t)
	g.portal.SetDashboard(`{"metrics":{"avg_response_time": NaN},"graph_urls":{}}`)
	g.do(http.MethodPost, "/session/login", `{"username":"bob","password":"pw"}`)

	resp, body := g.do(http.MethodGet, "/analytics?start=2024-01-01&end=2024-02-01", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("analytics = %d %v", resp.StatusCode, body)
	}
	metrics := body["data"].(map[string]any)["metrics"].(map[string]any)
	if metrics["avg_response_time"] != float64(0) {
		t.Fatalf("avg_response_time = %v", metrics["avg_response_time"])
	}

	resp, body = g.do(http.MethodGet, "/analytics?start=yesterday", "")
	if resp.StatusCode != http.StatusBadRequest || errorCode(body) != "VALIDATION_FAILED" {
		t.Fatalf("bad date = %d %v", resp.StatusCode, body)
	}
}

func TestMetricsExposed(t *testing.T) {
	g := newGateway(t)
	g.do(http.MethodGet, "/health/live", "")
	resp, err := g.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	raw, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(raw), "portal_http_requests_total") {
		t.Fatalf("metrics = %d %s", resp.StatusCode, raw)
	}
}

func TestSessionCookiesKeepTheirOwnSession(t *testing.T) {
	g := newGateway(t)
	sids := []string{
		"11111111-1111-4111-8111-111111111111",
		"22222222-2222-4222-8222-222222222222",
		"33333333-3333-4333-8333-333333333333",
	}
	for _, sid := range sids {
		g.useSession(sid)
		resp, _ := g.do(http.MethodGet, "/session", "")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("session %s = %d", sid, resp.StatusCode)
		}
		if g.cookie.Value != sid {
			t.Fatalf("valid cookie %s replaced by %s", sid, g.cookie.Value)
		}
	}
	if n := g.sessions.Len(); n != len(sids) {
		t.Fatalf("sessions = %d, want %d", n, len(sids))
	}
	for _, sid := range sids {
		if got := g.sessions.Get(context.Background(), sid).ID(); got != sid {
			t.Fatalf("session %s keyed as %s", sid, got)
		}
	}
	if n := g.sessions.Len(); n != len(sids) {
		t.Fatalf("lookups created sessions: %d", n)
	}
}

func TestLoginRotatesSessionCookie(t *testing.T) {
	g := newGateway(t)
	g.do(http.MethodGet, "/session", "")
	before := g.cookie.Value

	resp, body := g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"pw"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login = %d %v", resp.StatusCode, body)
	}
	after := g.cookie.Value
	if after == before {
		t.Fatal("session id kept across login")
	}

	_, body = g.do(http.MethodGet, "/session", "")
	identity, _ := body["data"].(map[string]any)["identity"].(map[string]any)
	if identity == nil || identity["username"] != "ann" {
		t.Fatalf("new cookie identity = %v", body["data"])
	}

	g.useSession(before)
	_, body = g.do(http.MethodGet, "/session", "")
	if identity := body["data"].(map[string]any)["identity"]; identity != nil {
		t.Fatalf("old cookie still signed in: %v", identity)
	}
}

func TestFailedLoginKeepsSessionCookie(t *testing.T) {
	g := newGateway(t)
	g.do(http.MethodGet, "/session", "")
	before := g.cookie.Value

	g.do(http.MethodPost, "/session/login", `{"username":"ann","password":"wrong"}`)
	if g.cookie.Value != before {
		t.Fatal("failed login rotated the session")
	}
}
