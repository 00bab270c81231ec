package tickets

import (
	"context"
	"testing"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

func reply(s string) *string { return &s }

func TestCommitReplacesWholeList(t *testing.T) {
	c := NewCache()
	_, gen := c.Begin(context.Background())
	if !c.Commit(gen, []domain.Ticket{{ID: "1"}, {ID: "2"}}) {
		t.Fatal("commit rejected")
	}
	_, gen = c.Begin(context.Background())
	c.Commit(gen, []domain.Ticket{{ID: "3"}})

	list := c.List()
	if len(list) != 1 || list[0].ID != "3" || !c.Loaded() {
		t.Fatalf("list = %#v", list)
	}
}

func TestStaleRefreshIsDiscardedAndCancelled(t *testing.T) {
	c := NewCache()
	oldCtx, oldGen := c.Begin(context.Background())
	_, newGen := c.Begin(context.Background())

	if oldCtx.Err() == nil {
		t.Fatal("superseded refresh context must be cancelled")
	}
	if !c.Commit(newGen, []domain.Ticket{{ID: "new"}}) {
		t.Fatal("current generation rejected")
	}
	if c.Commit(oldGen, []domain.Ticket{{ID: "old"}}) {
		t.Fatal("stale generation accepted")
	}
	if list := c.List(); len(list) != 1 || list[0].ID != "new" {
		t.Fatalf("stale data overwrote cache: %#v", list)
	}
}

func TestAbandonKeepsPreviousList(t *testing.T) {
	c := NewCache()
	_, gen := c.Begin(context.Background())
	c.Commit(gen, []domain.Ticket{{ID: "1"}})
	ctx, gen := c.Begin(context.Background())
	c.Abandon(gen)
	if ctx.Err() == nil {
		t.Fatal("abandoned context should be released")
	}
	if c.Len() != 1 {
		t.Fatal("failed refresh must keep previous cache")
	}
}

func TestResetInvalidatesInFlight(t *testing.T) {
	c := NewCache()
	_, gen := c.Begin(context.Background())
	c.Reset()
	if c.Commit(gen, []domain.Ticket{{ID: "1"}}) {
		t.Fatal("refresh started before reset must not commit")
	}
	if c.Len() != 0 || c.Loaded() {
		t.Fatal("reset cache not empty")
	}
}

func TestListReturnsCopies(t *testing.T) {
	c := NewCache()
	c.Append(domain.Ticket{ID: "1", Title: "a"})
	list := c.List()
	list[0].Title = "mutated"
	if got, _ := c.Get("1"); got.Title != "a" {
		t.Fatal("caller mutated cache through List")
	}
}

func TestMarkRead(t *testing.T) {
	c := NewCache()
	c.Append(domain.Ticket{ID: "1", Messages: []domain.Message{{ID: "m1"}, {ID: "m2"}}})
	if !c.MarkRead("1") {
		t.Fatal("ticket not found")
	}
	got, _ := c.Get("1")
	for _, m := range got.Messages {
		if !m.Read {
			t.Fatalf("message %s unread", m.ID)
		}
	}
	if c.MarkRead("missing") {
		t.Fatal("unknown ticket marked")
	}
}

func TestSearch(t *testing.T) {
	c := NewCache()
	c.Append(domain.Ticket{ID: "1", Title: "Login broken", Category: "account"})
	c.Append(domain.Ticket{ID: "2", Title: "Refund", Description: "charged twice", StaffReply: reply("done")})

	if got := c.Search(Filter{Query: "LOGIN"}); len(got) != 1 || got[0].ID != "1" {
		t.Fatalf("query search = %#v", got)
	}
	if got := c.Search(Filter{Status: StatusAnswered}); len(got) != 1 || got[0].ID != "2" {
		t.Fatalf("answered = %#v", got)
	}
	if got := c.Search(Filter{Status: StatusPending, Query: "twice"}); len(got) != 0 {
		t.Fatalf("pending+query = %#v", got)
	}
	if got := c.Search(Filter{}); len(got) != 2 {
		t.Fatalf("all = %#v", got)
	}
}

func TestNotifications(t *testing.T) {
	consumer := &domain.Identity{ID: "u1", Username: "ann", Role: domain.RoleConsumer, AccessToken: "t"}
	staff := &domain.Identity{ID: "s1", Username: "bob", Role: domain.RoleStaff, AccessToken: "t"}
	list := []domain.Ticket{
		{ID: "1", UserID: "u1", Messages: []domain.Message{
			{ID: "a", Sender: domain.RoleStaff},
			{ID: "b", Sender: domain.RoleStaff, Read: true},
			{ID: "c", Sender: domain.RoleConsumer},
		}},
		{ID: "2", UserID: "u2", Messages: []domain.Message{{ID: "d", Sender: domain.RoleStaff}}},
		{ID: "3", UserID: "u1"},
	}

	got := Notifications(consumer, list)
	if len(got) != 1 || got[0].Ticket.ID != "1" || got[0].UnreadCount != 1 {
		t.Fatalf("consumer inbox = %#v", got)
	}

	got = Notifications(staff, list)
	if len(got) != 1 || got[0].Ticket.ID != "1" || got[0].UnreadCount != 1 {
		t.Fatalf("staff inbox = %#v", got)
	}

	if Notifications(nil, list) != nil {
		t.Fatal("anonymous inbox must be empty")
	}
}
