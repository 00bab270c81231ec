package domain

import "time"

// Message is one entry of a ticket conversation.
type Message struct {
	ID        ID        `json:"id"`
	Content   string    `json:"content"`
	Sender    Role      `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
	Read      bool      `json:"read"`
}
