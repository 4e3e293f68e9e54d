package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/whitelist"
)

// ServiceSettings control batch sizing and classification retries
type ServiceSettings struct {
	Provider    string
	MaxAttempts int
	RetryDelay  time.Duration
	BatchLimit  int
	OnlyNew     bool
}

// TriageService drives the triage pipeline for single tickets and batches:
// fetch, extract the first customer message, classify, then hand the result
// to the policy engine.
type TriageService struct {
	helpdesk   Helpdesk
	classifier Classifier
	extractor  *MessageExtractor
	policy     *PolicyEngine
	journal    Journal
	trust      *whitelist.Checker
	logger     *zap.Logger
	settings   ServiceSettings
}

// NewTriageService creates a new triage service
func NewTriageService(
	helpdesk Helpdesk,
	classifier Classifier,
	extractor *MessageExtractor,
	policy *PolicyEngine,
	journal Journal,
	trust *whitelist.Checker,
	logger *zap.Logger,
	settings ServiceSettings,
) *TriageService {
	if settings.MaxAttempts < 1 {
		settings.MaxAttempts = 1
	}
	return &TriageService{
		helpdesk:   helpdesk,
		classifier: classifier,
		extractor:  extractor,
		policy:     policy,
		journal:    journal,
		trust:      trust,
		logger:     logger,
		settings:   settings,
	}
}

// ProcessBatch fetches one batch of tickets and triages each in turn. A
// fresh processed set guards the batch, so a ticket appearing twice in one
// listing is acted on once. Per-ticket failures are logged and counted;
// only a failed listing or a cancelled context aborts the cycle.
func (s *TriageService) ProcessBatch(ctx context.Context) (*CycleStats, error) {
	tickets, err := s.helpdesk.ListTickets(ctx, s.settings.BatchLimit, s.settings.OnlyNew)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	s.logger.Info("Processing ticket batch",
		zap.Int("tickets", len(tickets)),
		zap.Bool("only_new", s.settings.OnlyNew))

	processed := NewProcessedSet()
	stats := &CycleStats{}

	for _, ticket := range tickets {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		verdict, err := s.triage(ctx, ticket, processed, true)
		if err != nil {
			stats.Errors++
			s.logger.Error("Failed to triage ticket",
				zap.Int64("ticket_id", ticket.ID),
				zap.Error(err))
			continue
		}
		s.tally(stats, verdict)
	}

	s.logger.Info("Batch complete",
		zap.Int("processed", stats.TotalProcessed),
		zap.Int("spam_detected", stats.SpamDetected),
		zap.Int("auto_closed", stats.AutoClosed),
		zap.Int("legitimate", stats.Legitimate),
		zap.Int("skipped", stats.SkippedAlreadyProcessed),
		zap.Int("errors", stats.Errors))

	return stats, nil
}

// ProcessTicketByID fetches a single ticket and triages it. Each invocation
// uses a fresh processed set, so re-running the same ticket re-evaluates
// it; the mutations themselves are idempotent.
func (s *TriageService) ProcessTicketByID(ctx context.Context, ticketID int64) (*Verdict, error) {
	ticket, err := s.helpdesk.GetTicket(ctx, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", ticketID, err)
	}
	return s.triage(ctx, ticket, NewProcessedSet(), true)
}

// ProcessTicketPayload triages a ticket delivered in a webhook payload.
// The payload already carries the description, so the conversation thread
// is not fetched.
func (s *TriageService) ProcessTicketPayload(ctx context.Context, ticket *Ticket) (*Verdict, error) {
	return s.triage(ctx, ticket, NewProcessedSet(), false)
}

// triage runs the full pipeline for one ticket. Extraction and
// classification failures propagate without marking the ticket processed,
// so a later cycle retries it.
func (s *TriageService) triage(ctx context.Context, ticket *Ticket, processed *ProcessedSet, useThread bool) (*Verdict, error) {
	if processed.Contains(ticket.ID) {
		return &Verdict{TicketID: ticket.ID, Outcome: OutcomeSkipped}, nil
	}

	if s.trust != nil && s.trust.IsTrusted(ticket.RequesterEmail) {
		s.logger.Info("Skipping classification for trusted domain",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("sender", ticket.RequesterEmail),
			zap.String("action", "whitelist_bypass"))
		result := &Classification{
			IsSpam:       false,
			Confidence:   1.0,
			Reasoning:    "Requester domain is trusted",
			Provider:     "whitelist",
			Model:        "whitelist",
			ClassifiedAt: time.Now(),
			ProcessingID: uuid.NewString(),
		}
		verdict := s.policy.DecideAndAct(ctx, ticket, result, processed)
		s.record(ctx, ticket, verdict)
		return verdict, nil
	}

	var entries []*ConversationEntry
	if useThread {
		var err error
		entries, err = s.helpdesk.ListConversations(ctx, ticket.ID)
		if err != nil {
			s.logger.Warn("Could not fetch conversation thread, using ticket description",
				zap.Int64("ticket_id", ticket.ID),
				zap.Error(err))
			entries = nil
		}
	}

	msg, err := s.extractor.Extract(ticket, entries)
	if err != nil {
		return nil, err
	}

	result, err := s.classify(ctx, &ClassificationRequest{
		TicketID:        msg.TicketID,
		Subject:         msg.Subject,
		Description:     msg.Description,
		SenderEmail:     msg.SenderEmail,
		SystemValidated: msg.SystemValidated,
	})
	if err != nil {
		return nil, err
	}
	result.ProcessingID = uuid.NewString()

	s.logger.Info("Ticket classified",
		zap.Int64("ticket_id", ticket.ID),
		zap.Bool("is_spam", result.IsSpam),
		zap.Float64("confidence", result.Confidence),
		zap.String("provider", result.Provider),
		zap.String("processing_id", result.ProcessingID))

	verdict := s.policy.DecideAndAct(ctx, ticket, result, processed)
	s.record(ctx, ticket, verdict)
	return verdict, nil
}

// classify calls the configured classifier, retrying transient failures up
// to MaxAttempts with a fixed delay
func (s *TriageService) classify(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
	var lastErr error
	for attempt := 1; attempt <= s.settings.MaxAttempts; attempt++ {
		result, err := s.classifier.Classify(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err
		if attempt < s.settings.MaxAttempts {
			s.logger.Warn("Classification attempt failed, retrying",
				zap.Int64("ticket_id", req.TicketID),
				zap.Int("attempt", attempt),
				zap.Int("max_attempts", s.settings.MaxAttempts),
				zap.Error(err))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.settings.RetryDelay):
			}
		}
	}
	return nil, &ClassificationError{
		Provider: s.settings.Provider,
		Reason:   fmt.Sprintf("all %d attempts failed", s.settings.MaxAttempts),
		Err:      lastErr,
	}
}

// record writes the verdict to the journal. Journal failures are logged
// and discarded; they never affect the triage outcome.
func (s *TriageService) record(ctx context.Context, ticket *Ticket, verdict *Verdict) {
	if s.journal == nil || verdict.Outcome == OutcomeSkipped {
		return
	}
	entry := &JournalEntry{
		TicketID:     ticket.ID,
		Subject:      ticket.Subject,
		Outcome:      verdict.Outcome,
		IsSpam:       verdict.Classification.IsSpam,
		Confidence:   verdict.Classification.Confidence,
		Provider:     verdict.Classification.Provider,
		Model:        verdict.Classification.Model,
		DryRun:       verdict.DryRun,
		ProcessingID: verdict.Classification.ProcessingID,
		RecordedAt:   time.Now(),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.logger.Warn("Failed to record verdict in journal",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
	}
}

func (s *TriageService) tally(stats *CycleStats, verdict *Verdict) {
	if verdict.Outcome == OutcomeSkipped {
		stats.SkippedAlreadyProcessed++
		return
	}
	stats.TotalProcessed++
	switch verdict.Outcome {
	case OutcomeLegitimate:
		stats.Legitimate++
	case OutcomeFlaggedForReview:
		stats.SpamDetected++
	case OutcomeAutoClosed:
		stats.SpamDetected++
		stats.AutoClosed++
	}
	if len(verdict.Failures) > 0 {
		stats.Errors++
	}
}

// SpamStatistics surveys the most recent tickets for marker-tag coverage.
// A ticket counts as spam-tagged when any of its tags mentions spam, and
// as auto-detected when it carries this engine's marker tag exactly.
func (s *TriageService) SpamStatistics(ctx context.Context) (*TagStatistics, error) {
	tickets, err := s.helpdesk.ListTickets(ctx, s.settings.BatchLimit, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	stats := &TagStatistics{TicketsChecked: len(tickets)}
	for _, ticket := range tickets {
		tagged := false
		for _, tag := range ticket.Tags {
			if strings.Contains(strings.ToLower(tag), "spam") {
				tagged = true
				break
			}
		}
		if tagged {
			stats.SpamTagged++
		}
		if ticket.HasTag(s.policy.settings.SpamTag) {
			stats.AutoDetected++
		}
	}
	return stats, nil
}

// JournalStatistics reports the journal's aggregate counters
func (s *TriageService) JournalStatistics(ctx context.Context) (*JournalStats, error) {
	if s.journal == nil {
		return &JournalStats{}, nil
	}
	return s.journal.Stats(ctx)
}
