package freshdesk

import (
	"time"

	"github.com/supportops/ticket-triage/internal/core"
)

// ticketPayload mirrors the ticket object returned by the Freshdesk API.
// description_text is the plain-text rendering and is preferred over the
// HTML description when present.
type ticketPayload struct {
	ID              int64             `json:"id"`
	Subject         string            `json:"subject"`
	Description     string            `json:"description"`
	DescriptionText string            `json:"description_text"`
	RequesterID     int64             `json:"requester_id"`
	ResponderID     int64             `json:"responder_id"`
	Status          int               `json:"status"`
	Tags            []string          `json:"tags"`
	CreatedAt       time.Time         `json:"created_at"`
	Requester       *requesterPayload `json:"requester,omitempty"`
}

type requesterPayload struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (p *ticketPayload) toTicket() *core.Ticket {
	description := p.DescriptionText
	if description == "" {
		description = p.Description
	}
	email := ""
	if p.Requester != nil {
		email = p.Requester.Email
	}
	return &core.Ticket{
		ID:             p.ID,
		Subject:        p.Subject,
		Description:    description,
		RequesterID:    p.RequesterID,
		RequesterEmail: email,
		ResponderID:    p.ResponderID,
		Status:         p.Status,
		Tags:           p.Tags,
		CreatedAt:      p.CreatedAt,
	}
}

// conversationPayload mirrors one entry of a ticket's conversation thread
type conversationPayload struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	BodyText  string    `json:"body_text"`
	Incoming  bool      `json:"incoming"`
	Private   bool      `json:"private"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

func (p *conversationPayload) toEntry() *core.ConversationEntry {
	body := p.BodyText
	if body == "" {
		body = p.Body
	}
	return &core.ConversationEntry{
		ID:        p.ID,
		Body:      body,
		Incoming:  p.Incoming,
		Private:   p.Private,
		UserID:    p.UserID,
		CreatedAt: p.CreatedAt,
	}
}

type tagsUpdate struct {
	Tags []string `json:"tags"`
}

type notePayload struct {
	Body    string `json:"body"`
	Private bool   `json:"private"`
}

type assignUpdate struct {
	ResponderID int64 `json:"responder_id"`
}

type statusUpdate struct {
	Status int `json:"status"`
}
