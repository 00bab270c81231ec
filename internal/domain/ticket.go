package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PendingResponse is the wire sentinel for a ticket nobody on staff answered yet.
const PendingResponse = "PENDING"

// ID is a server-assigned identifier. The wire form may be a JSON number or a
// JSON string; both decode to the same string.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Ticket is a support request (complaint) as returned by the portal API.
type Ticket struct {
	ID           ID        `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Category     string    `json:"category"`
	SubCategory  string    `json:"sub_category"`
	AIResponse   string    `json:"ai_response"`
	StaffReply   *string   `json:"-"`
	UserID       ID        `json:"user_id,omitempty"`
	DepartmentID *ID       `json:"department_id,omitempty"`
	Messages     []Message `json:"messages,omitempty"`
}

type ticketAlias Ticket

type ticketWire struct {
	ticketAlias
	AdminResponse *string `json:"admin_response"`
	// Some revisions of the API return the automated answer as "response".
	Response *string `json:"response,omitempty"`
}

// UnmarshalJSON decodes the sentinel-based staff response into an optional.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var wire ticketWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*t = Ticket(wire.ticketAlias)
	if t.AIResponse == "" && wire.Response != nil {
		t.AIResponse = *wire.Response
	}
	t.StaffReply = nil
	if wire.AdminResponse != nil {
		text := strings.TrimSpace(*wire.AdminResponse)
		if text != "" && text != PendingResponse {
			reply := *wire.AdminResponse
			t.StaffReply = &reply
		}
	}
	return nil
}

// MarshalJSON encodes an absent staff response as the wire sentinel.
func (t Ticket) MarshalJSON() ([]byte, error) {
	reply := PendingResponse
	if t.StaffReply != nil {
		reply = *t.StaffReply
	}
	return json.Marshal(ticketWire{ticketAlias: ticketAlias(t), AdminResponse: &reply})
}

// Answered reports whether staff responded to the ticket.
func (t *Ticket) Answered() bool {
	return t.StaffReply != nil
}

// Clone returns a deep copy so callers never share slices with the cache.
func (t Ticket) Clone() Ticket {
	out := t
	if t.StaffReply != nil {
		reply := *t.StaffReply
		out.StaffReply = &reply
	}
	if t.DepartmentID != nil {
		dep := *t.DepartmentID
		out.DepartmentID = &dep
	}
	if t.Messages != nil {
		out.Messages = append([]Message(nil), t.Messages...)
	}
	return out
}

// TicketDraft is the new-ticket form.
type TicketDraft struct {
	Title       string
	Description string
	Count       int
}
