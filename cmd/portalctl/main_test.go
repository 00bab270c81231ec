package main

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/pflag"

	"github.com/spec-kit/ticket-portal/internal/portalapi/portaltest"
)

type cli struct {
	t    *testing.T
	base []string
}

func newCLI(t *testing.T) (*cli, *portaltest.Server) {
	t.Helper()
	t.Setenv("SESSION_SEAL_KEY", "cli-test-secret")
	t.Setenv("LOG_LEVEL", "error")
	srv := portaltest.NewServer(
		portaltest.User{ID: 7, Username: "ann", Password: "pw", Role: "client"},
		portaltest.User{ID: 9, Username: "bob", Password: "pw", Role: "admin"},
	)
	t.Cleanup(srv.Close)
	return &cli{t: t, base: []string{
		"--config", "",
		"--base-url", srv.URL,
		"--session-file", filepath.Join(t.TempDir(), "identity.json"),
	}}, srv
}

func (c *cli) run(args ...string) (string, error) {
	c.t.Helper()
	var out, errOut bytes.Buffer
	err := run(context.Background(), append(append([]string{}, c.base...), args...), &out, &errOut)
	return out.String(), err
}

func TestNoCommandPrintsHelp(t *testing.T) {
	var out, errOut bytes.Buffer
	err := run(context.Background(), nil, &out, &errOut)
	if !errors.Is(err, pflag.ErrHelp) {
		t.Fatalf("err = %v", err)
	}
	if !strings.Contains(errOut.String(), "dashboard") {
		t.Fatalf("usage missing commands:\n%s", errOut.String())
	}
}

func TestUnknownCommand(t *testing.T) {
	c, _ := newCLI(t)
	if _, err := c.run("frobnicate"); err == nil || !strings.Contains(err.Error(), "frobnicate") {
		t.Fatalf("err = %v", err)
	}
}

func TestIdentitySurvivesInvocations(t *testing.T) {
	c, srv := newCLI(t)
	out, err := c.run("login", "-u", "ann", "-p", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(out, "Signed in as ann (client).") {
		t.Fatalf("login output = %q", out)
	}

	out, err = c.run("whoami")
	if err != nil || !strings.Contains(out, "ann") {
		t.Fatalf("whoami = %q, %v", out, err)
	}
	if srv.Calls("/auth/login") != 1 {
		t.Fatalf("login calls = %d", srv.Calls("/auth/login"))
	}

	if _, err := c.run("logout"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	out, _ = c.run("whoami")
	if !strings.Contains(out, "Not signed in.") {
		t.Fatalf("whoami after logout = %q", out)
	}
}

func TestSubmitListAndFeedback(t *testing.T) {
	c, srv := newCLI(t)
	if _, err := c.run("login", "ann", "--password", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := c.run("submit", "--title", "Login broken", "--description", "Cannot sign in")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !strings.Contains(out, "Ticket T1: Login broken") || !strings.Contains(out, "Status:      pending") {
		t.Fatalf("submit output = %q", out)
	}

	out, err = c.run("tickets", "--status", "pending")
	if err != nil || !strings.Contains(out, "T1") {
		t.Fatalf("tickets = %q, %v", out, err)
	}

	if _, err := c.run("feedback", "T1", "satisfied"); err != nil {
		t.Fatalf("feedback: %v", err)
	}
	if got := srv.Ticket("T1")["satisfaction"]; got != "satisfied" {
		t.Fatalf("stored satisfaction = %v", got)
	}
}

func TestLocalValidationSkipsPortal(t *testing.T) {
	c, srv := newCLI(t)
	if _, err := c.run("login", "-u", "ann", "-p", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := c.run("submit", "--title", "only a title"); err == nil {
		t.Fatal("submit without description succeeded")
	}
	if _, err := c.run("tickets", "--status", "closed"); err == nil {
		t.Fatal("unknown status accepted")
	}
	if _, err := c.run("feedback", "T1", "meh"); err == nil {
		t.Fatal("unknown verdict accepted")
	}
	if srv.Calls("/complaint/addcomplaint") != 0 || srv.Calls("/complaint/setsatisfaction/") != 0 {
		t.Fatal("invalid input reached the portal")
	}
}

func TestDashboardJSON(t *testing.T) {
	c, srv := newCLI(t)
	srv.SetDashboard(`{"metrics":{"total_complaints":3},"graph_urls":{}}`)
	if _, err := c.run("login", "-u", "bob", "-p", "pw"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := c.run("--json", "dashboard", "--start", "2024-01-01")
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if !strings.Contains(out, `"total_complaints": 3`) {
		t.Fatalf("dashboard output = %q", out)
	}
}
