package core

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/utils"
)

// MessageExtractor picks the first customer-authored message out of a
// ticket's thread. Agent replies and private notes are never candidates.
type MessageExtractor struct {
	text        *utils.TextProcessor
	maxBodySize int
	logger      *zap.Logger
}

// NewMessageExtractor creates a new message extractor
func NewMessageExtractor(text *utils.TextProcessor, maxBodySize int, logger *zap.Logger) *MessageExtractor {
	return &MessageExtractor{
		text:        text,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Extract scans the conversation entries in creation order and returns the
// first entry that is incoming and not private, mapped onto the ticket's
// subject. When no entry qualifies it falls back to the ticket's own
// description. A ticket with neither yields an ExtractionError.
func (x *MessageExtractor) Extract(ticket *Ticket, entries []*ConversationEntry) (*FirstCustomerMessage, error) {
	for _, entry := range entries {
		if entry.Private {
			continue
		}
		if !entry.Incoming {
			continue
		}

		msg, err := x.build(ticket, entry.Body)
		if err != nil {
			return nil, err
		}
		msg.ConversationID = entry.ID
		msg.CreatedAt = entry.CreatedAt

		x.logger.Debug("Extracted first customer message from conversation",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("conversation_id", entry.ID))
		return msg, nil
	}

	return x.ExtractFromDescription(ticket)
}

// ExtractFromDescription builds the first customer message from the
// ticket's own description, the body the requester opened the ticket with.
// Webhook invocations use this directly since the payload carries no thread.
func (x *MessageExtractor) ExtractFromDescription(ticket *Ticket) (*FirstCustomerMessage, error) {
	msg, err := x.build(ticket, ticket.Description)
	if err != nil {
		return nil, err
	}
	msg.CreatedAt = ticket.CreatedAt

	x.logger.Debug("Extracted message from ticket description",
		zap.Int64("ticket_id", ticket.ID))
	return msg, nil
}

func (x *MessageExtractor) build(ticket *Ticket, rawBody string) (*FirstCustomerMessage, error) {
	body := x.text.StripHTML(rawBody)
	body = x.text.SanitizeUTF8(body)
	if body == "" {
		return nil, &ExtractionError{
			TicketID: ticket.ID,
			Reason:   "empty message body and description",
		}
	}

	// The validation phrase must be detected before truncation can cut it off.
	validated := strings.Contains(strings.ToLower(body), strings.ToLower(SystemValidatedPhrase))
	if validated {
		x.logger.Info("Ticket carries system validation phrase",
			zap.Int64("ticket_id", ticket.ID))
	}

	return &FirstCustomerMessage{
		TicketID:        ticket.ID,
		Subject:         ticket.Subject,
		Description:     x.text.TruncateText(body, x.maxBodySize),
		SenderEmail:     senderIdentifier(ticket),
		SystemValidated: validated,
	}, nil
}

// senderIdentifier prefers the requester email when the helpdesk supplied
// one and falls back to the numeric requester id
func senderIdentifier(ticket *Ticket) string {
	if ticket.RequesterEmail != "" {
		return ticket.RequesterEmail
	}
	if ticket.RequesterID != 0 {
		return strconv.FormatInt(ticket.RequesterID, 10)
	}
	return ""
}
