package core

import (
	"time"
)

// Freshdesk ticket status codes.
const (
	StatusOpen     = 2
	StatusPending  = 3
	StatusResolved = 4
	StatusClosed   = 5
)

// SpamStatus is the status a ticket is moved to when auto-closed as spam.
const SpamStatus = StatusClosed

// NoteIdentifier is the first line of every note the triage engine writes.
// Note deduplication scans private conversation entries for it.
const NoteIdentifier = "Automatic Spam Detection Alert"

// SystemValidatedPhrase marks tickets whose requester passed an external
// validation step. Its presence in the message biases the classifier
// against a spam verdict.
const SystemValidatedPhrase = "USER INFORMATION WAS VALIDATED BY OUR SYSTEM"

// Ticket represents a helpdesk ticket as read from the helpdesk API
type Ticket struct {
	ID             int64
	Subject        string
	Description    string
	RequesterID    int64
	RequesterEmail string
	ResponderID    int64
	Status         int
	Tags           []string
	CreatedAt      time.Time
}

// IsAssigned reports whether the ticket already has a responder
func (t *Ticket) IsAssigned() bool {
	return t.ResponderID != 0
}

// HasTag reports whether the ticket carries the given tag
func (t *Ticket) HasTag(tag string) bool {
	for _, existing := range t.Tags {
		if existing == tag {
			return true
		}
	}
	return false
}

// ConversationEntry represents one message or note in a ticket's thread
type ConversationEntry struct {
	ID        int64
	Body      string
	Incoming  bool
	Private   bool
	UserID    int64
	CreatedAt time.Time
}

// FirstCustomerMessage is the extracted first customer-authored message of
// a ticket, the only text ever sent to the classifier
type FirstCustomerMessage struct {
	TicketID        int64
	Subject         string
	Description     string
	SenderEmail     string
	CreatedAt       time.Time
	ConversationID  int64
	SystemValidated bool
}

// ClassificationRequest carries the extracted message to a classifier
type ClassificationRequest struct {
	TicketID        int64
	Subject         string
	Description     string
	SenderEmail     string
	SystemValidated bool
}

// Classification is a classifier's verdict on one ticket
type Classification struct {
	IsSpam       bool
	Confidence   float64
	Reasoning    string
	Indicators   []string
	Provider     string
	Model        string
	ClassifiedAt time.Time
	ProcessingID string
}

// Outcome is the terminal disposition of one ticket after policy evaluation
type Outcome string

const (
	OutcomeLegitimate       Outcome = "legitimate"
	OutcomeFlaggedForReview Outcome = "flagged_for_review"
	OutcomeAutoClosed       Outcome = "auto_closed"
	OutcomeSkipped          Outcome = "skipped_already_processed"
)

// Verdict is the full result of triaging one ticket: the classification,
// the terminal outcome, and the mutations that were applied (or, in dry-run
// mode, would have been applied)
type Verdict struct {
	TicketID       int64
	Outcome        Outcome
	Classification *Classification
	Mutations      []string
	Failures       []error
	DryRun         bool
}

// CycleStats summarizes one processing cycle
type CycleStats struct {
	TotalProcessed          int
	SpamDetected            int
	AutoClosed              int
	Legitimate              int
	SkippedAlreadyProcessed int
	Errors                  int
}

// Add folds another cycle's counters into the receiver
func (s *CycleStats) Add(other *CycleStats) {
	if other == nil {
		return
	}
	s.TotalProcessed += other.TotalProcessed
	s.SpamDetected += other.SpamDetected
	s.AutoClosed += other.AutoClosed
	s.Legitimate += other.Legitimate
	s.SkippedAlreadyProcessed += other.SkippedAlreadyProcessed
	s.Errors += other.Errors
}

// TagStatistics summarizes marker-tag usage across recently fetched tickets
type TagStatistics struct {
	TicketsChecked int
	SpamTagged     int
	AutoDetected   int
}

// JournalEntry is one audit record of a triage verdict. The journal is
// write-only from the triage path; nothing reads it back into decisions.
type JournalEntry struct {
	TicketID     int64
	Subject      string
	Outcome      Outcome
	IsSpam       bool
	Confidence   float64
	Provider     string
	Model        string
	DryRun       bool
	ProcessingID string
	RecordedAt   time.Time
}

// JournalStats aggregates recorded verdicts for operator review
type JournalStats struct {
	TotalRecorded int64
	SpamDetected  int64
	AutoClosed    int64
	Legitimate    int64
}
