package core

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/utils"
	"github.com/supportops/ticket-triage/internal/whitelist"
)

func defaultServiceSettings() ServiceSettings {
	return ServiceSettings{
		Provider:    "openai",
		MaxAttempts: 1,
		RetryDelay:  time.Millisecond,
		BatchLimit:  50,
		OnlyNew:     true,
	}
}

func newTestTriageService(
	t *testing.T,
	helpdesk Helpdesk,
	classifier Classifier,
	journal Journal,
	trusted []string,
	policySettings PolicySettings,
	svcSettings ServiceSettings,
) *TriageService {
	t.Helper()
	logger := zap.NewNop()
	policy, err := NewPolicyEngine(helpdesk, logger, policySettings)
	require.NoError(t, err)
	extractor := NewMessageExtractor(utils.NewTextProcessor(logger), 4000, logger)
	return NewTriageService(helpdesk, classifier, extractor, policy, journal, whitelist.NewChecker(trusted, logger), logger, svcSettings)
}

func openTicket(id int64, description string) *Ticket {
	return &Ticket{
		ID:             id,
		Subject:        "Question about my invoice",
		Description:    description,
		RequesterEmail: "customer@example.net",
		Status:         StatusOpen,
		CreatedAt:      time.Now(),
	}
}

func TestTriageService_ProcessBatch_MixedOutcomes(t *testing.T) {
	tickets := []*Ticket{
		openTicket(1, "Buy cheap pills now, limited offer"),
		openTicket(2, "Click this link to claim your prize"),
		openTicket(3, "My last invoice seems to be double-charged"),
	}
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			assert.Equal(t, 50, limit)
			assert.True(t, onlyNew)
			return tickets, nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			switch req.TicketID {
			case 1:
				return spamResult(0.92), nil
			case 2:
				return spamResult(0.72), nil
			default:
				return &Classification{IsSpam: false, Confidence: 0.1, Provider: "openai"}, nil
			}
		},
	}
	var recorded []*JournalEntry
	journal := &mockJournal{
		RecordFunc: func(ctx context.Context, entry *JournalEntry) error {
			recorded = append(recorded, entry)
			return nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, journal, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalProcessed)
	assert.Equal(t, 2, stats.SpamDetected)
	assert.Equal(t, 1, stats.AutoClosed)
	assert.Equal(t, 1, stats.Legitimate)
	assert.Equal(t, 0, stats.SkippedAlreadyProcessed)
	assert.Equal(t, 0, stats.Errors)

	require.Len(t, recorded, 3)
	assert.Equal(t, OutcomeAutoClosed, recorded[0].Outcome)
	assert.Equal(t, OutcomeFlaggedForReview, recorded[1].Outcome)
	assert.Equal(t, OutcomeLegitimate, recorded[2].Outcome)
	for _, entry := range recorded {
		assert.NotEmpty(t, entry.ProcessingID)
		assert.False(t, entry.RecordedAt.IsZero())
	}
}

func TestTriageService_ProcessBatch_ListFailure(t *testing.T) {
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			return nil, errors.New("upstream 503")
		},
	}

	service := newTestTriageService(t, helpdesk, &mockClassifier{}, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.ProcessBatch(context.Background())

	require.Error(t, err)
	assert.Nil(t, stats)
	assert.Contains(t, err.Error(), "failed to list tickets")
}

func TestTriageService_ProcessBatch_ClassificationFailureSkipsTicket(t *testing.T) {
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			return []*Ticket{
				openTicket(1, "Totally genuine message"),
				openTicket(2, "Another genuine message"),
			}, nil
		},
		UpdateTagsFunc: func(ctx context.Context, ticketID int64, tags []string) error {
			assert.NotEqual(t, int64(1), ticketID, "failed classification must not mutate the ticket")
			return nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			if req.TicketID == 1 {
				return nil, errors.New("provider timeout")
			}
			return spamResult(0.9), nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.ProcessBatch(context.Background())

	require.NoError(t, err, "a per-ticket failure must not abort the cycle")
	assert.Equal(t, 1, stats.Errors)
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 1, stats.AutoClosed)
}

func TestTriageService_ProcessBatch_DuplicateListing(t *testing.T) {
	ticket := openTicket(5, "Win a free cruise today")
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			return []*Ticket{ticket, ticket}, nil
		},
	}
	classifications := 0
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			classifications++
			return spamResult(0.9), nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.ProcessBatch(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalProcessed)
	assert.Equal(t, 1, stats.SkippedAlreadyProcessed)
	assert.Equal(t, 1, stats.AutoClosed)
	assert.Equal(t, 1, classifications, "the duplicate never reaches the classifier")
}

func TestTriageService_ProcessBatch_ContextCancelled(t *testing.T) {
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			return []*Ticket{openTicket(1, "hello")}, nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := newTestTriageService(t, helpdesk, &mockClassifier{}, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.ProcessBatch(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, stats.TotalProcessed)
}

func TestTriageService_ProcessTicketByID(t *testing.T) {
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			assert.Equal(t, int64(77), ticketID)
			return openTicket(77, "<p>Please reset my <b>password</b></p>"), nil
		},
		ListConversationsFunc: func(ctx context.Context, ticketID int64) ([]*ConversationEntry, error) {
			return nil, errors.New("thread endpoint down")
		},
	}
	var seen *ClassificationRequest
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			seen = req
			return &Classification{IsSpam: false, Confidence: 0.05, Provider: "openai"}, nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketByID(context.Background(), 77)

	require.NoError(t, err)
	assert.Equal(t, OutcomeLegitimate, verdict.Outcome)
	require.NotNil(t, seen, "an unreadable thread falls back to the ticket description")
	assert.Equal(t, "Please reset my password", seen.Description)
	assert.Equal(t, "customer@example.net", seen.SenderEmail)
	assert.NotEmpty(t, verdict.Classification.ProcessingID)
}

func TestTriageService_ProcessTicketByID_FetchError(t *testing.T) {
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			return nil, errors.New("404")
		},
	}

	service := newTestTriageService(t, helpdesk, &mockClassifier{}, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketByID(context.Background(), 7)

	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.Contains(t, err.Error(), "failed to fetch ticket 7")
}

func TestTriageService_ProcessTicketPayload_SkipsThreadFetch(t *testing.T) {
	threadFetched := false
	helpdesk := &mockHelpdesk{
		ListConversationsFunc: func(ctx context.Context, ticketID int64) ([]*ConversationEntry, error) {
			threadFetched = true
			return nil, nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			return &Classification{IsSpam: false, Confidence: 0.1, Provider: "openai"}, nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketPayload(context.Background(), openTicket(21, "Payload-delivered description"))

	require.NoError(t, err)
	assert.Equal(t, OutcomeLegitimate, verdict.Outcome)
	assert.False(t, threadFetched, "webhook payloads carry the description, no thread fetch")
}

func TestTriageService_ClassificationRetries(t *testing.T) {
	attempts := 0
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("rate limited")
			}
			return spamResult(0.8), nil
		},
	}
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			return openTicket(31, "Limited time offer"), nil
		},
	}

	settings := defaultServiceSettings()
	settings.MaxAttempts = 3
	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), settings)

	verdict, err := service.ProcessTicketByID(context.Background(), 31)

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, OutcomeAutoClosed, verdict.Outcome)
}

func TestTriageService_ClassificationExhaustsAttempts(t *testing.T) {
	attempts := 0
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			attempts++
			return nil, errors.New("provider down")
		},
	}
	mutated := false
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			return openTicket(32, "Is this spam or not"), nil
		},
		UpdateTagsFunc: func(ctx context.Context, ticketID int64, tags []string) error {
			mutated = true
			return nil
		},
	}
	recorded := false
	journal := &mockJournal{
		RecordFunc: func(ctx context.Context, entry *JournalEntry) error {
			recorded = true
			return nil
		},
	}

	settings := defaultServiceSettings()
	settings.MaxAttempts = 2
	service := newTestTriageService(t, helpdesk, classifier, journal, nil, defaultPolicySettings(), settings)

	verdict, err := service.ProcessTicketByID(context.Background(), 32)

	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.Equal(t, 2, attempts)
	assert.False(t, mutated)
	assert.False(t, recorded)

	var clsErr *ClassificationError
	require.True(t, errors.As(err, &clsErr))
	assert.Equal(t, "openai", clsErr.Provider)
	assert.Contains(t, clsErr.Error(), "all 2 attempts failed")
}

func TestTriageService_TrustedDomainBypass(t *testing.T) {
	classified := false
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			classified = true
			return nil, errors.New("must not be called")
		},
	}
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			ticket := openTicket(41, "Renewal question")
			ticket.RequesterEmail = "cfo@partner.example.com"
			return ticket, nil
		},
	}
	var entry *JournalEntry
	journal := &mockJournal{
		RecordFunc: func(ctx context.Context, e *JournalEntry) error {
			entry = e
			return nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, journal, []string{"partner.example.com"}, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketByID(context.Background(), 41)

	require.NoError(t, err)
	assert.False(t, classified)
	assert.Equal(t, OutcomeLegitimate, verdict.Outcome)
	assert.False(t, verdict.Classification.IsSpam)
	assert.Equal(t, 1.0, verdict.Classification.Confidence)
	assert.Equal(t, "whitelist", verdict.Classification.Provider)
	assert.NotEmpty(t, verdict.Classification.ProcessingID)

	require.NotNil(t, entry)
	assert.Equal(t, "whitelist", entry.Provider)
}

func TestTriageService_JournalFailureIgnored(t *testing.T) {
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			return openTicket(51, "Claim your reward"), nil
		},
	}
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			return spamResult(0.9), nil
		},
	}
	journal := &mockJournal{
		RecordFunc: func(ctx context.Context, entry *JournalEntry) error {
			return errors.New("disk full")
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, journal, nil, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketByID(context.Background(), 51)

	require.NoError(t, err, "journal failures never affect the triage outcome")
	assert.Equal(t, OutcomeAutoClosed, verdict.Outcome)
}

func TestTriageService_ExtractionErrorPropagates(t *testing.T) {
	classified := false
	classifier := &mockClassifier{
		ClassifyFunc: func(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
			classified = true
			return &Classification{}, nil
		},
	}
	helpdesk := &mockHelpdesk{
		GetTicketFunc: func(ctx context.Context, ticketID int64) (*Ticket, error) {
			return openTicket(61, ""), nil
		},
	}

	service := newTestTriageService(t, helpdesk, classifier, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	verdict, err := service.ProcessTicketByID(context.Background(), 61)

	require.Error(t, err)
	assert.Nil(t, verdict)
	assert.False(t, classified)

	var extErr *ExtractionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, int64(61), extErr.TicketID)
}

func TestTriageService_SpamStatistics(t *testing.T) {
	var gotOnlyNew bool
	helpdesk := &mockHelpdesk{
		ListTicketsFunc: func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
			gotOnlyNew = onlyNew
			return []*Ticket{
				{ID: 1, Tags: []string{"Spam-Suspected"}},
				{ID: 2, Tags: []string{DefaultSpamTag}},
				{ID: 3, Tags: []string{"billing"}},
				{ID: 4},
			}, nil
		},
	}

	service := newTestTriageService(t, helpdesk, &mockClassifier{}, nil, nil, defaultPolicySettings(), defaultServiceSettings())
	stats, err := service.SpamStatistics(context.Background())

	require.NoError(t, err)
	assert.False(t, gotOnlyNew, "statistics survey all recent tickets, not only new ones")
	assert.Equal(t, 4, stats.TicketsChecked)
	assert.Equal(t, 2, stats.SpamTagged)
	assert.Equal(t, 1, stats.AutoDetected)
}

func TestTriageService_JournalStatistics_NoJournal(t *testing.T) {
	service := newTestTriageService(t, &mockHelpdesk{}, &mockClassifier{}, nil, nil, defaultPolicySettings(), defaultServiceSettings())

	stats, err := service.JournalStatistics(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &JournalStats{}, stats)
}
