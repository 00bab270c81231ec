package dto

import (
	"time"

	"github.com/spec-kit/ticket-portal/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title              string `json:"title"`
	Description        string `json:"description"`
	NumberOfComplaints int    `json:"number_of_complaints"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Satisfaction string `json:"satisfaction"`
}

// StaffResponseRequest payload.
type StaffResponseRequest struct {
	Response string `json:"response"`
	AIRating string `json:"ai_rating"`
}

// TicketResponse is one ticket as views see it. StaffReply is null until
// staff answered.
type TicketResponse struct {
	ID          domain.ID               `json:"id"`
	Title       string                  `json:"title"`
	Description string                  `json:"description"`
	Category    string                  `json:"category"`
	SubCategory string                  `json:"sub_category"`
	AIResponse  string                  `json:"ai_response"`
	StaffReply  *string                 `json:"staff_reply"`
	Answered    bool                    `json:"answered"`
	UserID      domain.ID               `json:"user_id,omitempty"`
	Messages    []TicketMessageResponse `json:"messages,omitempty"`
}

// TicketMessageResponse represents a thread message.
type TicketMessageResponse struct {
	ID        domain.ID `json:"id"`
	Content   string    `json:"content"`
	Sender    string    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}

// TicketDetailResponse is the open detail view.
type TicketDetailResponse struct {
	Ticket TicketResponse `json:"ticket"`
	// Vote is unset, satisfied or unsatisfied for this opening of the view.
	Vote string `json:"vote"`
}

// NotificationResponse is one inbox row.
type NotificationResponse struct {
	Ticket      TicketResponse `json:"ticket"`
	UnreadCount int            `json:"unread_count"`
}

// DashboardResponse carries staff analytics.
type DashboardResponse struct {
	Metrics   map[string]any    `json:"metrics"`
	GraphURLs map[string]string `json:"graph_urls"`
}

// NewTicketResponse maps a domain ticket.
func NewTicketResponse(t domain.Ticket) TicketResponse {
	resp := TicketResponse{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Category:    t.Category,
		SubCategory: t.SubCategory,
		AIResponse:  t.AIResponse,
		StaffReply:  t.StaffReply,
		Answered:    t.Answered(),
		UserID:      t.UserID,
	}
	for _, m := range t.Messages {
		resp.Messages = append(resp.Messages, TicketMessageResponse{
			ID:        m.ID,
			Content:   m.Content,
			Sender:    m.Sender.String(),
			Timestamp: m.Timestamp,
			Read:      m.Read,
		})
	}
	return resp
}

// NewTicketList maps a list, never returning nil.
func NewTicketList(list []domain.Ticket) []TicketResponse {
	out := make([]TicketResponse, 0, len(list))
	for _, t := range list {
		out = append(out, NewTicketResponse(t))
	}
	return out
}
