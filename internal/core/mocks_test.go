package core

import (
	"context"
)

type mockHelpdesk struct {
	ListTicketsFunc       func(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error)
	GetTicketFunc         func(ctx context.Context, ticketID int64) (*Ticket, error)
	ListConversationsFunc func(ctx context.Context, ticketID int64) ([]*ConversationEntry, error)
	UpdateTagsFunc        func(ctx context.Context, ticketID int64, tags []string) error
	AddPrivateNoteFunc    func(ctx context.Context, ticketID int64, body string) error
	AssignAgentFunc       func(ctx context.Context, ticketID int64, agentID int64) error
	CloseTicketFunc       func(ctx context.Context, ticketID int64) error
}

func (m *mockHelpdesk) ListTickets(ctx context.Context, limit int, onlyNew bool) ([]*Ticket, error) {
	if m.ListTicketsFunc != nil {
		return m.ListTicketsFunc(ctx, limit, onlyNew)
	}
	return nil, nil
}

func (m *mockHelpdesk) GetTicket(ctx context.Context, ticketID int64) (*Ticket, error) {
	if m.GetTicketFunc != nil {
		return m.GetTicketFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *mockHelpdesk) ListConversations(ctx context.Context, ticketID int64) ([]*ConversationEntry, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, ticketID)
	}
	return nil, nil
}

func (m *mockHelpdesk) UpdateTags(ctx context.Context, ticketID int64, tags []string) error {
	if m.UpdateTagsFunc != nil {
		return m.UpdateTagsFunc(ctx, ticketID, tags)
	}
	return nil
}

func (m *mockHelpdesk) AddPrivateNote(ctx context.Context, ticketID int64, body string) error {
	if m.AddPrivateNoteFunc != nil {
		return m.AddPrivateNoteFunc(ctx, ticketID, body)
	}
	return nil
}

func (m *mockHelpdesk) AssignAgent(ctx context.Context, ticketID int64, agentID int64) error {
	if m.AssignAgentFunc != nil {
		return m.AssignAgentFunc(ctx, ticketID, agentID)
	}
	return nil
}

func (m *mockHelpdesk) CloseTicket(ctx context.Context, ticketID int64) error {
	if m.CloseTicketFunc != nil {
		return m.CloseTicketFunc(ctx, ticketID)
	}
	return nil
}

type mockClassifier struct {
	ClassifyFunc func(ctx context.Context, req *ClassificationRequest) (*Classification, error)
}

func (m *mockClassifier) Classify(ctx context.Context, req *ClassificationRequest) (*Classification, error) {
	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, req)
	}
	return &Classification{}, nil
}

type mockJournal struct {
	RecordFunc func(ctx context.Context, entry *JournalEntry) error
	StatsFunc  func(ctx context.Context) (*JournalStats, error)
}

func (m *mockJournal) Record(ctx context.Context, entry *JournalEntry) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, entry)
	}
	return nil
}

func (m *mockJournal) Stats(ctx context.Context) (*JournalStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &JournalStats{}, nil
}
