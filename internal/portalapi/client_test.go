package portalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/spec-kit/ticket-portal/internal/config"
	"github.com/spec-kit/ticket-portal/internal/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(config.APIConfig{BaseURL: srv.URL, TimeoutSeconds: 5}, nil)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return c
}

func TestLoginDecodesIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != PathLogin || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		var req loginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "ann" || req.Password != "pw" {
			t.Errorf("bad credentials payload %#v", req)
		}
		_, _ = w.Write([]byte(`{"id":3,"username":"ann","role":"client","access_token":"tok"}`))
	})

	id, err := c.Login(context.Background(), "ann", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if id.ID != "3" || id.Role != domain.RoleConsumer || id.AccessToken != "tok" {
		t.Fatalf("identity = %#v", id)
	}
}

func TestLoginSurfacesServerMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})

	_, err := c.Login(context.Background(), "ann", "bad")
	se, ok := err.(*StatusError)
	if !ok {
		t.Fatalf("expected *StatusError, got %T %v", err, err)
	}
	if se.Message != "Invalid credentials" || !IsUnauthorized(err) {
		t.Fatalf("status error = %#v", se)
	}
}

func TestListTicketsSendsBearerAndDates(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		if r.URL.Query().Get("startDate") != "2024-01-01" || r.URL.Query().Get("endDate") != "2024-12-31" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`[{"id":1,"title":"a","description":"b","admin_response":"PENDING"}]`))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	tickets, err := c.ListTickets(context.Background(), "tok", domain.DateRange{Start: &start, End: &end})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != "1" || tickets[0].Answered() {
		t.Fatalf("tickets = %#v", tickets)
	}
}

func TestCreateTicketPostsDraft(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req createTicketRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Title != "Login broken" || req.NumberOfComplaints != 1 {
			t.Errorf("request = %#v", req)
		}
		_, _ = w.Write([]byte(`{"id":"T1","title":"Login broken","description":"Cannot sign in","category":"account","sub_category":"login","ai_response":"Try resetting your password.","admin_response":"PENDING"}`))
	})

	tk, err := c.CreateTicket(context.Background(), "tok", domain.TicketDraft{Title: "Login broken", Description: "Cannot sign in"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if tk.Category != "account" || tk.AIResponse != "Try resetting your password." {
		t.Fatalf("ticket = %#v", tk)
	}
}

func TestDashboardToleratesNaNAndResolvesGraphs(t *testing.T) {
	var base string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"metrics":{"avg_response_time": NaN,"total":4},"graph_urls":{"trend":"/static/trend.png"}}`))
	})
	base = c.baseURL.String()

	dash, err := c.Dashboard(context.Background(), "tok", domain.DateRange{})
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if v, ok := dash.Metric("avg_response_time"); !ok || v != 0 {
		t.Fatalf("avg_response_time = %v, %v", v, ok)
	}
	if got := dash.GraphURLs["trend"]; got != base+"/static/trend.png" {
		t.Fatalf("graph url = %q", got)
	}
}

func TestEndpointNameHidesIDs(t *testing.T) {
	if got := endpointName(PathRespond + "17"); got != PathRespond+":id" {
		t.Fatalf("endpoint = %q", got)
	}
}

func TestNewRejectsRelativeBaseURL(t *testing.T) {
	if _, err := New(config.APIConfig{BaseURL: "portal.local"}, nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestOversizedBodyIsReportedAsTooLarge(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[`))
		_, _ = w.Write(bytes.Repeat([]byte(" "), maxBodyBytes))
		_, _ = w.Write([]byte(`]`))
	})

	_, err := c.ListTickets(context.Background(), "tok", domain.DateRange{})
	if !errors.Is(err, ErrResponseTooLarge) {
		t.Fatalf("expected ErrResponseTooLarge, got %v", err)
	}
	var de *DecodeError
	if errors.As(err, &de) {
		t.Fatalf("oversized body reported as decode error: %v", err)
	}
}
