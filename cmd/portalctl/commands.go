package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/spec-kit/ticket-portal/internal/api/dto"
	portalapp "github.com/spec-kit/ticket-portal/internal/app"
	"github.com/spec-kit/ticket-portal/internal/domain"
	"github.com/spec-kit/ticket-portal/internal/service"
	"github.com/spec-kit/ticket-portal/internal/tickets"
	apperrors "github.com/spec-kit/ticket-portal/pkg/util/errorutil"
)

// env is what every command runs against.
type env struct {
	app    *portalapp.App
	out    io.Writer
	errOut io.Writer
	json   bool
}

type command struct {
	summary string
	run     func(ctx context.Context, e *env, args []string) error
}

var commandOrder = []string{
	"login", "signup", "logout", "whoami",
	"tickets", "submit", "show", "feedback", "respond",
	"inbox", "dashboard",
}

var commands = map[string]command{
	"login":     {"sign in and remember the identity", runLogin},
	"signup":    {"create an account and sign in", runSignup},
	"logout":    {"forget the stored identity", runLogout},
	"whoami":    {"print the signed-in identity", runWhoami},
	"tickets":   {"list tickets, optionally filtered", runTickets},
	"submit":    {"submit a new ticket", runSubmit},
	"show":      {"show one ticket", runShow},
	"feedback":  {"rate the AI reply: satisfied or unsatisfied", runFeedback},
	"respond":   {"answer a ticket as staff", runRespond},
	"inbox":     {"list tickets with unread messages", runInbox},
	"dashboard": {"print staff analytics", runDashboard},
}

func newFlags(e *env, name, usage string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(e.errOut)
	fs.Usage = func() {
		fmt.Fprintf(e.errOut, "usage: portalctl %s %s\n", name, usage)
		fmt.Fprint(e.errOut, fs.FlagUsages())
	}
	return fs
}

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "login", "[--username NAME] [--password PW]")
	username := fs.StringP("username", "u", "", "account name")
	password := fs.StringP("password", "p", "", "password (defaults to $PORTAL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" && fs.NArg() > 0 {
		*username = fs.Arg(0)
	}
	if *password == "" {
		*password = os.Getenv("PORTAL_PASSWORD")
	}
	if err := e.app.Login(ctx, *username, *password); err != nil {
		return err
	}
	return e.printIdentity()
}

func runSignup(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "signup", "--username NAME --email ADDR --password PW --confirm-password PW")
	var in service.SignupInput
	fs.StringVarP(&in.Username, "username", "u", "", "account name")
	fs.StringVar(&in.Email, "email", "", "email address")
	fs.StringVarP(&in.Password, "password", "p", "", "password")
	fs.StringVar(&in.ConfirmPassword, "confirm-password", "", "password again")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := e.app.Signup(ctx, in); err != nil {
		return err
	}
	return e.printIdentity()
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := newFlags(e, "logout", "").Parse(args); err != nil {
		return err
	}
	if err := e.app.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(e.out, "Signed out.")
	return nil
}

func runWhoami(_ context.Context, e *env, args []string) error {
	if err := newFlags(e, "whoami", "").Parse(args); err != nil {
		return err
	}
	return e.printIdentity()
}

func runTickets(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "tickets", "[-q TEXT] [--status all|pending|answered] [--start DATE] [--end DATE]")
	query := fs.StringP("query", "q", "", "case-insensitive text filter")
	status := fs.String("status", string(tickets.StatusAll), "all, pending or answered")
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	st := tickets.Status(*status)
	switch st {
	case tickets.StatusAll, tickets.StatusPending, tickets.StatusAnswered:
	default:
		return apperrors.NewValidationError("status must be all, pending or answered", map[string]any{"status": *status})
	}
	if e.app.Identity() == nil {
		return apperrors.NewUnauthorized("Please sign in first.")
	}
	dates, set, err := parseDates(*start, *end)
	if err != nil {
		return err
	}
	if set || !e.app.Snapshot().Loaded {
		e.app.SetDates(dates)
		if err := e.app.Refresh(ctx); err != nil {
			return err
		}
	}
	list := e.app.Tickets(tickets.Filter{Query: *query, Status: st})
	if e.json {
		return e.writeJSON(dto.NewTicketList(list))
	}
	if len(list) == 0 {
		fmt.Fprintln(e.out, "No tickets.")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTATUS\tCATEGORY\tTITLE")
	for _, t := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, ticketStatus(t), t.Category, t.Title)
	}
	return tw.Flush()
}

func runSubmit(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "submit", "--title TEXT --description TEXT [--count N]")
	var draft domain.TicketDraft
	fs.StringVarP(&draft.Title, "title", "t", "", "short summary")
	fs.StringVarP(&draft.Description, "description", "d", "", "what happened")
	fs.IntVar(&draft.Count, "count", 0, "how many times it happened")
	if err := fs.Parse(args); err != nil {
		return err
	}
	t, err := e.app.Submit(ctx, draft)
	if err != nil {
		return err
	}
	return e.printTicket(*t, domain.VoteUnset)
}

func runShow(_ context.Context, e *env, args []string) error {
	fs := newFlags(e, "show", "ID")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := ticketArg(fs)
	if err != nil {
		return err
	}
	t, err := e.app.OpenTicket(id)
	if err != nil {
		return err
	}
	_, vote, _ := e.app.Detail()
	return e.printTicket(t, vote)
}

func runFeedback(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "feedback", "ID satisfied|unsatisfied")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := ticketArg(fs)
	if err != nil {
		return err
	}
	verdict, err := domain.ParseVerdict(fs.Arg(1))
	if err != nil {
		return apperrors.NewValidationError("verdict must be satisfied or unsatisfied", map[string]any{"verdict": fs.Arg(1)})
	}
	if _, err := e.app.OpenTicket(id); err != nil {
		return err
	}
	if err := e.app.Feedback(ctx, id, verdict); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Feedback recorded for ticket %s.\n", id)
	return nil
}

func runRespond(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "respond", "ID --text TEXT --rating good|poor")
	text := fs.String("text", "", "reply shown to the customer")
	rating := fs.String("rating", "", "evaluation of the AI reply")
	if err := fs.Parse(args); err != nil {
		return err
	}
	id, err := ticketArg(fs)
	if err != nil {
		return err
	}
	if err := e.app.Respond(ctx, id, *text, *rating); err != nil {
		return err
	}
	fmt.Fprintf(e.out, "Response sent for ticket %s.\n", id)
	return nil
}

func runInbox(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "inbox", "[--open ID]")
	open := fs.String("open", "", "mark a ticket read and show it")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *open != "" {
		t, err := e.app.OpenNotification(ctx, domain.ID(*open))
		if err != nil {
			return err
		}
		return e.printTicket(t, domain.VoteUnset)
	}
	inbox := e.app.Inbox()
	if e.json {
		items := make([]dto.NotificationResponse, 0, len(inbox))
		for _, n := range inbox {
			items = append(items, dto.NotificationResponse{Ticket: dto.NewTicketResponse(n.Ticket), UnreadCount: n.UnreadCount})
		}
		return e.writeJSON(items)
	}
	if len(inbox) == 0 {
		fmt.Fprintln(e.out, "No unread messages.")
		return nil
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUNREAD\tTITLE")
	for _, n := range inbox {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", n.Ticket.ID, n.UnreadCount, n.Ticket.Title)
	}
	return tw.Flush()
}

func runDashboard(ctx context.Context, e *env, args []string) error {
	fs := newFlags(e, "dashboard", "[--start DATE] [--end DATE]")
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	dates, set, err := parseDates(*start, *end)
	if err != nil {
		return err
	}
	if set {
		e.app.SetDates(dates)
	}
	d, err := e.app.Dashboard(ctx)
	if err != nil {
		return err
	}
	if e.json {
		return e.writeJSON(dto.DashboardResponse{Metrics: d.Metrics, GraphURLs: d.GraphURLs})
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	for _, k := range sortedKeys(d.Metrics) {
		fmt.Fprintf(tw, "%s\t%v\n", k, d.Metrics[k])
	}
	for _, k := range sortedKeys(d.GraphURLs) {
		fmt.Fprintf(tw, "%s\t%s\n", k, d.GraphURLs[k])
	}
	return tw.Flush()
}

func (e *env) printIdentity() error {
	identity := e.app.Identity()
	if e.json {
		return e.writeJSON(dto.SessionResponse{Identity: dto.NewIdentityResponse(identity)})
	}
	if identity == nil {
		fmt.Fprintln(e.out, "Not signed in.")
		return nil
	}
	fmt.Fprintf(e.out, "Signed in as %s (%s).\n", identity.Username, identity.Role)
	return nil
}

func (e *env) printTicket(t domain.Ticket, vote domain.Vote) error {
	if e.json {
		return e.writeJSON(dto.TicketDetailResponse{Ticket: dto.NewTicketResponse(t), Vote: vote.String()})
	}
	fmt.Fprintf(e.out, "Ticket %s: %s\n", t.ID, t.Title)
	fmt.Fprintf(e.out, "Status:      %s\n", ticketStatus(t))
	if t.Category != "" {
		fmt.Fprintf(e.out, "Category:    %s / %s\n", t.Category, t.SubCategory)
	}
	fmt.Fprintf(e.out, "Description: %s\n", t.Description)
	if t.AIResponse != "" {
		fmt.Fprintf(e.out, "AI reply:    %s\n", t.AIResponse)
	}
	if t.StaffReply != nil {
		fmt.Fprintf(e.out, "Staff reply: %s\n", *t.StaffReply)
	}
	for _, m := range t.Messages {
		fmt.Fprintf(e.out, "  [%s] %s: %s\n", m.Timestamp.Format(time.DateTime), m.Sender, m.Content)
	}
	return nil
}

func (e *env) writeJSON(v any) error {
	enc := json.NewEncoder(e.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func ticketStatus(t domain.Ticket) string {
	if t.Answered() {
		return string(tickets.StatusAnswered)
	}
	return string(tickets.StatusPending)
}

func ticketArg(fs *pflag.FlagSet) (domain.ID, error) {
	if fs.NArg() == 0 || fs.Arg(0) == "" {
		return "", apperrors.NewValidationError("a ticket id is required", nil)
	}
	return domain.ID(fs.Arg(0)), nil
}

func parseDates(start, end string) (domain.DateRange, bool, error) {
	var dates domain.DateRange
	if start == "" && end == "" {
		return dates, false, nil
	}
	if start != "" {
		t, err := time.Parse(domain.DateLayout, start)
		if err != nil {
			return dates, false, apperrors.NewValidationError("start must be YYYY-MM-DD", map[string]any{"start": start})
		}
		dates.Start = &t
	}
	if end != "" {
		t, err := time.Parse(domain.DateLayout, end)
		if err != nil {
			return dates, false, apperrors.NewValidationError("end must be YYYY-MM-DD", map[string]any{"end": end})
		}
		dates.End = &t
	}
	return dates, true, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
