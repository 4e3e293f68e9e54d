package freshdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// Freshdesk caps per_page at 100; larger batch limits are clamped
const maxPerPage = 100

// APIError is a non-2xx response from the Freshdesk API. RetryAfter is set
// from the Retry-After header on rate-limit responses.
type APIError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("freshdesk API returned status %d (retry after %s): %s", e.StatusCode, e.RetryAfter, e.Body)
	}
	return fmt.Sprintf("freshdesk API returned status %d: %s", e.StatusCode, e.Body)
}

// IsAuthFailure reports whether the API rejected the credentials
func (e *APIError) IsAuthFailure() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited reports whether the API throttled the request
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsNotFound reports whether the requested resource does not exist
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsBadRequest reports whether the API rejected the request parameters
func (e *APIError) IsBadRequest() bool {
	return e.StatusCode == http.StatusBadRequest
}

// Client talks to the Freshdesk REST API v2 using basic auth with the API
// key as the username
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a Freshdesk client for the given account domain
// (the subdomain before .freshdesk.com)
func NewClient(domain, apiKey string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    fmt.Sprintf("https://%s.freshdesk.com/api/v2", domain),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// ListTickets fetches the most recently created tickets, newest first. With
// onlyNew set it asks the API for the new-and-open view and additionally
// keeps only tickets still in the open status, since the view also returns
// tickets an agent has touched.
func (c *Client) ListTickets(ctx context.Context, limit int, onlyNew bool) ([]*core.Ticket, error) {
	perPage := limit
	if perPage <= 0 || perPage > maxPerPage {
		perPage = maxPerPage
	}

	query := url.Values{}
	query.Set("per_page", strconv.Itoa(perPage))
	query.Set("include", "description")
	query.Set("order_by", "created_at")
	query.Set("order_type", "desc")
	if onlyNew {
		query.Set("filter", "new_and_my_open")
	}

	var payload []*ticketPayload
	if err := c.do(ctx, http.MethodGet, "/tickets", query, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}

	tickets := make([]*core.Ticket, 0, len(payload))
	for _, p := range payload {
		if onlyNew && p.Status != core.StatusOpen {
			continue
		}
		tickets = append(tickets, p.toTicket())
	}

	c.logger.Debug("Fetched tickets",
		zap.Int("count", len(tickets)),
		zap.Bool("only_new", onlyNew))
	return tickets, nil
}

// GetTicket fetches a single ticket with its description included. Some
// accounts reject the include parameter on this endpoint, so a bad-request
// response triggers one retry without it.
func (c *Client) GetTicket(ctx context.Context, ticketID int64) (*core.Ticket, error) {
	path := fmt.Sprintf("/tickets/%d", ticketID)
	query := url.Values{}
	query.Set("include", "description")

	var payload ticketPayload
	err := c.do(ctx, http.MethodGet, path, query, nil, &payload)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsBadRequest() {
			c.logger.Debug("Include parameter rejected, retrying plain ticket fetch",
				zap.Int64("ticket_id", ticketID))
			err = c.do(ctx, http.MethodGet, path, nil, nil, &payload)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ticket %d: %w", ticketID, err)
	}
	return payload.toTicket(), nil
}

// ListConversations fetches the ticket's conversation thread in creation order
func (c *Client) ListConversations(ctx context.Context, ticketID int64) ([]*core.ConversationEntry, error) {
	var payload []*conversationPayload
	path := fmt.Sprintf("/tickets/%d/conversations", ticketID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch conversations for ticket %d: %w", ticketID, err)
	}

	entries := make([]*core.ConversationEntry, 0, len(payload))
	for _, p := range payload {
		entries = append(entries, p.toEntry())
	}
	return entries, nil
}

// UpdateTags replaces the ticket's tag set. The API takes the full set, so
// callers merge new tags with the existing ones before calling.
func (c *Client) UpdateTags(ctx context.Context, ticketID int64, tags []string) error {
	if tags == nil {
		tags = []string{}
	}
	path := fmt.Sprintf("/tickets/%d", ticketID)
	if err := c.do(ctx, http.MethodPut, path, nil, &tagsUpdate{Tags: tags}, nil); err != nil {
		return fmt.Errorf("failed to update tags on ticket %d: %w", ticketID, err)
	}
	c.logger.Debug("Updated ticket tags",
		zap.Int64("ticket_id", ticketID),
		zap.Strings("tags", tags))
	return nil
}

// AddPrivateNote attaches an agent-only note to the ticket
func (c *Client) AddPrivateNote(ctx context.Context, ticketID int64, body string) error {
	path := fmt.Sprintf("/tickets/%d/notes", ticketID)
	if err := c.do(ctx, http.MethodPost, path, nil, &notePayload{Body: body, Private: true}, nil); err != nil {
		return fmt.Errorf("failed to add note to ticket %d: %w", ticketID, err)
	}
	c.logger.Debug("Added private note", zap.Int64("ticket_id", ticketID))
	return nil
}

// AssignAgent sets the ticket's responder
func (c *Client) AssignAgent(ctx context.Context, ticketID, agentID int64) error {
	path := fmt.Sprintf("/tickets/%d", ticketID)
	if err := c.do(ctx, http.MethodPut, path, nil, &assignUpdate{ResponderID: agentID}, nil); err != nil {
		return fmt.Errorf("failed to assign ticket %d to agent %d: %w", ticketID, agentID, err)
	}
	c.logger.Debug("Assigned ticket to agent",
		zap.Int64("ticket_id", ticketID),
		zap.Int64("agent_id", agentID))
	return nil
}

// CloseTicket moves the ticket to the closed status
func (c *Client) CloseTicket(ctx context.Context, ticketID int64) error {
	path := fmt.Sprintf("/tickets/%d", ticketID)
	if err := c.do(ctx, http.MethodPut, path, nil, &statusUpdate{Status: core.SpamStatus}, nil); err != nil {
		return fmt.Errorf("failed to close ticket %d: %w", ticketID, err)
	}
	c.logger.Debug("Closed ticket", zap.Int64("ticket_id", ticketID))
	return nil
}

// do executes one API call, encoding the body as JSON and decoding the
// response into out when given. Non-2xx responses come back as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.apiKey, "X")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(data)),
		}
		if apiErr.IsRateLimited() {
			if seconds, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && seconds > 0 {
				apiErr.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return apiErr
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
