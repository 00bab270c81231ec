package domain

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestTicketDecodesPendingAsUnanswered(t *testing.T) {
	raw := `{"id":"T1","title":"Login broken","description":"Cannot sign in","category":"account","sub_category":"login","ai_response":"Try resetting your password.","admin_response":"PENDING"}`
	var tk Ticket
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tk.ID != "T1" || tk.SubCategory != "login" {
		t.Fatalf("unexpected ticket %#v", tk)
	}
	if tk.Answered() {
		t.Fatal("PENDING must decode as unanswered")
	}
}

func TestTicketDecodesNumericIDsAndReply(t *testing.T) {
	raw := `{"id":42,"title":"t","description":"d","admin_response":"Fixed it","user_id":7,"department_id":null}`
	var tk Ticket
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tk.ID != "42" || tk.UserID != "7" {
		t.Fatalf("ids = %q/%q", tk.ID, tk.UserID)
	}
	if !tk.Answered() || *tk.StaffReply != "Fixed it" {
		t.Fatalf("reply = %v", tk.StaffReply)
	}
}

func TestTicketFallsBackToResponseField(t *testing.T) {
	raw := `{"id":1,"title":"t","description":"d","response":"auto"}`
	var tk Ticket
	if err := json.Unmarshal([]byte(raw), &tk); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tk.AIResponse != "auto" {
		t.Fatalf("ai response = %q", tk.AIResponse)
	}
}

func TestTicketEncodesAbsentReplyAsSentinel(t *testing.T) {
	out, err := json.Marshal(Ticket{ID: "9", Title: "t"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if !strings.Contains(string(out), `"admin_response":"PENDING"`) {
		t.Fatalf("missing sentinel: %s", out)
	}
}

func TestCloneDoesNotShareReply(t *testing.T) {
	reply := "a"
	orig := Ticket{ID: "1", StaffReply: &reply, Messages: []Message{{ID: "m"}}}
	cp := orig.Clone()
	*cp.StaffReply = "b"
	cp.Messages[0].Read = true
	if *orig.StaffReply != "a" || orig.Messages[0].Read {
		t.Fatal("clone shares memory with original")
	}
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"client":   RoleConsumer,
		"consumer": RoleConsumer,
		"student":  RoleConsumer,
		"admin":    RoleStaff,
		"Employee": RoleStaff,
	}
	for in, want := range cases {
		got, err := ParseRole(in)
		if err != nil || got != want {
			t.Fatalf("ParseRole(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseRole("root"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestIdentityRoundTripKeepsRole(t *testing.T) {
	in := Identity{ID: "1", Username: "ann", Role: RoleStaff, AccessToken: "tok"}
	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var out Identity
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out != in || !out.Valid() {
		t.Fatalf("round trip mismatch: %#v", out)
	}
}
