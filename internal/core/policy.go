package core

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// DefaultSpamTag is the marker tag applied to tickets classified as spam
const DefaultSpamTag = "Auto-Spam-Detected"

// PolicySettings are the thresholds and knobs driving the policy engine.
// SpamThreshold is the tagging threshold, AutoCloseThreshold the closing
// one; both are inclusive.
type PolicySettings struct {
	SpamThreshold      float64
	AutoCloseThreshold float64
	SpamTag            string
	AssignAgentID      int64
	DryRun             bool
}

// PolicyEngine turns one classification into the set of helpdesk mutations
// for one ticket: tag, private note, optional agent assignment, and close.
// All mutations are idempotent and issued as separate calls so a rejection
// of one field cannot block the others.
type PolicyEngine struct {
	helpdesk Helpdesk
	logger   *zap.Logger
	settings PolicySettings
}

// NewPolicyEngine creates a new policy engine. Thresholds outside [0,1] or
// an auto-close threshold below the spam threshold are configuration errors
// and must stop the run before any ticket is processed.
func NewPolicyEngine(helpdesk Helpdesk, logger *zap.Logger, settings PolicySettings) (*PolicyEngine, error) {
	if settings.SpamThreshold < 0 || settings.SpamThreshold > 1 {
		return nil, &ConfigurationError{
			Field:  "triage.spam_threshold",
			Reason: fmt.Sprintf("must be in [0,1], got %v", settings.SpamThreshold),
		}
	}
	if settings.AutoCloseThreshold < 0 || settings.AutoCloseThreshold > 1 {
		return nil, &ConfigurationError{
			Field:  "triage.auto_close_threshold",
			Reason: fmt.Sprintf("must be in [0,1], got %v", settings.AutoCloseThreshold),
		}
	}
	if settings.AutoCloseThreshold < settings.SpamThreshold {
		return nil, &ConfigurationError{
			Field:  "triage.auto_close_threshold",
			Reason: fmt.Sprintf("must not be below triage.spam_threshold (%v < %v)",
				settings.AutoCloseThreshold, settings.SpamThreshold),
		}
	}
	if settings.SpamTag == "" {
		settings.SpamTag = DefaultSpamTag
	}

	return &PolicyEngine{
		helpdesk: helpdesk,
		logger:   logger,
		settings: settings,
	}, nil
}

// Evaluate maps a classification onto its terminal outcome without issuing
// any mutation. Threshold comparisons are inclusive: a confidence exactly
// equal to a threshold meets it.
func (e *PolicyEngine) Evaluate(result *Classification) Outcome {
	if !result.IsSpam || result.Confidence < e.settings.SpamThreshold {
		return OutcomeLegitimate
	}
	if result.Confidence >= e.settings.AutoCloseThreshold {
		return OutcomeAutoClosed
	}
	return OutcomeFlaggedForReview
}

// DecideAndAct evaluates one classification and applies the resulting
// mutations. Tickets already in the processed set are skipped with no
// mutation. A failed mutation is logged and recorded on the verdict, and
// the remaining independent mutations are still attempted; the ticket is
// marked processed in every terminal state.
func (e *PolicyEngine) DecideAndAct(ctx context.Context, ticket *Ticket, result *Classification, processed *ProcessedSet) *Verdict {
	if processed.Contains(ticket.ID) {
		e.logger.Debug("Skipping already processed ticket", zap.Int64("ticket_id", ticket.ID))
		return &Verdict{
			TicketID:       ticket.ID,
			Outcome:        OutcomeSkipped,
			Classification: result,
			DryRun:         e.settings.DryRun,
		}
	}

	outcome := e.Evaluate(result)
	verdict := &Verdict{
		TicketID:       ticket.ID,
		Outcome:        outcome,
		Classification: result,
		DryRun:         e.settings.DryRun,
	}

	switch outcome {
	case OutcomeLegitimate:
		e.logger.Debug("Ticket is legitimate",
			zap.Int64("ticket_id", ticket.ID),
			zap.Float64("confidence", result.Confidence))
	case OutcomeFlaggedForReview:
		e.applyTag(ctx, ticket, verdict)
		e.applyNote(ctx, ticket, result, outcome, verdict)
		e.logger.Info("Ticket flagged for review",
			zap.Int64("ticket_id", ticket.ID),
			zap.Float64("confidence", result.Confidence),
			zap.Float64("auto_close_threshold", e.settings.AutoCloseThreshold))
	case OutcomeAutoClosed:
		e.applyAssign(ctx, ticket, verdict)
		e.applyTag(ctx, ticket, verdict)
		e.applyNote(ctx, ticket, result, outcome, verdict)
		e.applyClose(ctx, ticket, verdict)
		e.logger.Info("Ticket auto-closed as spam",
			zap.Int64("ticket_id", ticket.ID),
			zap.Float64("confidence", result.Confidence))
	}

	processed.Add(ticket.ID)
	return verdict
}

// applyAssign assigns the configured fallback agent. It never reassigns a
// ticket that already has a responder, and does nothing when no agent is
// configured.
func (e *PolicyEngine) applyAssign(ctx context.Context, ticket *Ticket, verdict *Verdict) {
	if e.settings.AssignAgentID == 0 {
		return
	}
	if ticket.IsAssigned() {
		e.logger.Debug("Ticket already assigned, skipping assignment",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("responder_id", ticket.ResponderID))
		return
	}

	if e.settings.DryRun {
		e.logger.Info("Dry run: would assign ticket to fallback agent",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int64("agent_id", e.settings.AssignAgentID))
		verdict.Mutations = append(verdict.Mutations, "assign")
		return
	}

	if err := e.helpdesk.AssignAgent(ctx, ticket.ID, e.settings.AssignAgentID); err != nil {
		e.recordFailure(ticket, verdict, "assign", err)
		return
	}
	verdict.Mutations = append(verdict.Mutations, "assign")
}

// applyTag adds the marker tag, preserving the ticket's existing tags. A
// ticket that already carries the tag is left untouched.
func (e *PolicyEngine) applyTag(ctx context.Context, ticket *Ticket, verdict *Verdict) {
	if ticket.HasTag(e.settings.SpamTag) {
		e.logger.Debug("Marker tag already present",
			zap.Int64("ticket_id", ticket.ID),
			zap.String("tag", e.settings.SpamTag))
		return
	}

	tags := make([]string, 0, len(ticket.Tags)+1)
	tags = append(tags, ticket.Tags...)
	tags = append(tags, e.settings.SpamTag)

	if e.settings.DryRun {
		e.logger.Info("Dry run: would add marker tag",
			zap.Int64("ticket_id", ticket.ID),
			zap.Strings("tags", tags))
		verdict.Mutations = append(verdict.Mutations, "tag")
		return
	}

	if err := e.helpdesk.UpdateTags(ctx, ticket.ID, tags); err != nil {
		e.recordFailure(ticket, verdict, "tag", err)
		return
	}
	verdict.Mutations = append(verdict.Mutations, "tag")
}

// applyNote attaches the private analysis note. An existing private note
// with materially the same reasoning suppresses the write; if the thread
// cannot be read the note is written anyway.
func (e *PolicyEngine) applyNote(ctx context.Context, ticket *Ticket, result *Classification, outcome Outcome, verdict *Verdict) {
	if e.settings.DryRun {
		e.logger.Info("Dry run: would add private analysis note",
			zap.Int64("ticket_id", ticket.ID),
			zap.Float64("confidence", result.Confidence))
		verdict.Mutations = append(verdict.Mutations, "note")
		return
	}

	entries, err := e.helpdesk.ListConversations(ctx, ticket.ID)
	if err != nil {
		e.logger.Warn("Could not check for existing notes, adding note anyway",
			zap.Int64("ticket_id", ticket.ID),
			zap.Error(err))
	} else if hasMatchingNote(entries, result.Reasoning) {
		e.logger.Info("Analysis note already present, skipping",
			zap.Int64("ticket_id", ticket.ID))
		return
	}

	if err := e.helpdesk.AddPrivateNote(ctx, ticket.ID, e.noteBody(result, outcome)); err != nil {
		e.recordFailure(ticket, verdict, "note", err)
		return
	}
	verdict.Mutations = append(verdict.Mutations, "note")
}

// applyClose moves the ticket to the closed/spam status
func (e *PolicyEngine) applyClose(ctx context.Context, ticket *Ticket, verdict *Verdict) {
	if e.settings.DryRun {
		e.logger.Info("Dry run: would close ticket as spam",
			zap.Int64("ticket_id", ticket.ID),
			zap.Int("status", SpamStatus))
		verdict.Mutations = append(verdict.Mutations, "close")
		return
	}

	if err := e.helpdesk.CloseTicket(ctx, ticket.ID); err != nil {
		e.recordFailure(ticket, verdict, "close", err)
		return
	}
	verdict.Mutations = append(verdict.Mutations, "close")
}

func (e *PolicyEngine) recordFailure(ticket *Ticket, verdict *Verdict, op string, err error) {
	mutErr := &MutationError{TicketID: ticket.ID, Op: op, Err: err}
	e.logger.Error("Mutation failed, continuing with remaining mutations",
		zap.Int64("ticket_id", ticket.ID),
		zap.String("op", op),
		zap.Error(err))
	verdict.Failures = append(verdict.Failures, mutErr)
}

// noteBody renders the private note attached to flagged tickets
func (e *PolicyEngine) noteBody(result *Classification, outcome Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", NoteIdentifier)
	fmt.Fprintf(&b, "Model: %s (%s)\n", result.Model, result.Provider)
	fmt.Fprintf(&b, "Confidence Score: %.2f\n", result.Confidence)
	fmt.Fprintf(&b, "Analysis: %s\n", result.Reasoning)
	if len(result.Indicators) > 0 {
		fmt.Fprintf(&b, "Indicators: %s\n", strings.Join(result.Indicators, ", "))
	}
	fmt.Fprintf(&b, "\nThis ticket was processed automatically. Action: %s (spam threshold %.2f, auto-close threshold %.2f)",
		outcome, e.settings.SpamThreshold, e.settings.AutoCloseThreshold)
	return b.String()
}

// hasMatchingNote reports whether a private entry already carries an
// analysis note with materially the same reasoning
func hasMatchingNote(entries []*ConversationEntry, reasoning string) bool {
	want := normalizeText(reasoning)
	for _, entry := range entries {
		if !entry.Private {
			continue
		}
		body := normalizeText(entry.Body)
		if strings.Contains(body, strings.ToLower(NoteIdentifier)) && strings.Contains(body, want) {
			return true
		}
	}
	return false
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
