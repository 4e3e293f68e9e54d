package core

import (
	"context"
)

// Classifier defines the interface for spam classification providers
type Classifier interface {
	// Classify analyzes the first customer message of a ticket and returns
	// a spam verdict with a confidence in [0,1]
	Classify(ctx context.Context, req *ClassificationRequest) (*Classification, error)
}

// Helpdesk defines the interface for reading tickets and issuing the
// triage mutations back to the helpdesk system
type Helpdesk interface {
	// ListTickets fetches up to limit tickets, newest first. With onlyNew
	// set, only tickets still in the open/new status are returned.
	ListTickets(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error)

	// GetTicket fetches a single ticket by id
	GetTicket(ctx context.Context, ticketID int64) (*Ticket, error)

	// ListConversations fetches a ticket's thread, oldest first
	ListConversations(ctx context.Context, ticketID int64) ([]*ConversationEntry, error)

	// UpdateTags replaces the ticket's tag set. Callers merge additively;
	// this is a full-set write because that is what the wire supports.
	UpdateTags(ctx context.Context, ticketID int64, tags []string) error

	// AddPrivateNote attaches an internal-only note to the ticket
	AddPrivateNote(ctx context.Context, ticketID int64, body string) error

	// AssignAgent sets the ticket's responder
	AssignAgent(ctx context.Context, ticketID int64, agentID int64) error

	// CloseTicket moves the ticket to the closed/spam status
	CloseTicket(ctx context.Context, ticketID int64) error
}

// Journal defines the interface for the write-only triage audit log
type Journal interface {
	// Record appends one verdict to the journal
	Record(ctx context.Context, entry *JournalEntry) error

	// Stats aggregates the recorded verdicts
	Stats(ctx context.Context) (*JournalStats, error)
}
