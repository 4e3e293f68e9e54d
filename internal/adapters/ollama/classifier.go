package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// validationNote is inserted into the prompt when the requester passed
// external validation
const validationNote = "Requester validation: the requester's information was validated by our system. Weigh this as a strong signal of legitimacy.\n"

// Classifier is an implementation of the Classifier interface using a local
// Ollama server's chat API
type Classifier struct {
	baseURL      string
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
	httpClient   *http.Client
	logger       *zap.Logger
	promptFormat string
}

// verdictResponse represents the structured response from the LLM
type verdictResponse struct {
	IsSpam         bool     `json:"is_spam"`
	Confidence     float64  `json:"confidence"`
	Reasoning      string   `json:"reasoning"`
	SpamIndicators []string `json:"spam_indicators"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	Temperature float32 `json:"temperature"`
	TopP        float32 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
	Format   string        `json:"format,omitempty"`
	Options  chatOptions   `json:"options"`
}

type chatResponse struct {
	Model   string      `json:"model"`
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

// NewClassifier creates a new Ollama classifier
func NewClassifier(
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	timeout time.Duration,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		baseURL:     strings.TrimRight(baseURL, "/"),
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
		promptFormat: `You are a spam detection system for a helpdesk. Analyze the following support ticket and determine if it's spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- confidence: number between 0 and 1 (how confident you are that this is spam)
- reasoning: string (brief explanation of your assessment)
- spam_indicators: array of strings (specific signals pointing to spam)

Ticket:
From: %s
Subject: %s
%sMessage:
%s

Respond only with the JSON object and nothing else.`,
	}
}

// Classify analyzes a ticket message to determine if it's spam
func (c *Classifier) Classify(ctx context.Context, req *core.ClassificationRequest) (*core.Classification, error) {
	sender := req.SenderEmail
	if sender == "" {
		sender = "unknown"
	}
	note := ""
	if req.SystemValidated {
		note = validationNote
	}

	prompt := fmt.Sprintf(c.promptFormat, sender, req.Subject, note, req.Description)

	body, err := json.Marshal(&chatRequest{
		Model: c.modelName,
		Messages: []chatMessage{
			{
				Role:    "system",
				Content: "You are a spam detection system for helpdesk tickets. Respond only with JSON.",
			},
			{
				Role:    "user",
				Content: prompt,
			},
		},
		Stream: false,
		Format: "json",
		Options: chatOptions{
			Temperature: c.temperature,
			TopP:        c.topP,
			NumPredict:  c.maxTokens,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request to Ollama failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ollama returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(data, &chatResp); err != nil {
		return nil, fmt.Errorf("failed to decode Ollama response: %w", err)
	}

	responseText := chatResp.Message.Content
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Ollama")
	}

	// Parse the LLM's JSON response
	var verdict verdictResponse
	if err := json.Unmarshal([]byte(responseText), &verdict); err != nil {
		// Try to extract JSON from the text response
		jsonStart := 0
		jsonEnd := len(responseText)

		for i := 0; i < len(responseText); i++ {
			if responseText[i] == '{' {
				jsonStart = i
				break
			}
		}

		for i := len(responseText) - 1; i >= 0; i-- {
			if responseText[i] == '}' {
				jsonEnd = i + 1
				break
			}
		}

		if jsonStart < jsonEnd {
			jsonStr := responseText[jsonStart:jsonEnd]
			if err := json.Unmarshal([]byte(jsonStr), &verdict); err != nil {
				return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to extract JSON from LLM response: %w", err)
		}
	}

	if verdict.Confidence < 0 || verdict.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v from Ollama is outside [0,1]", verdict.Confidence)
	}

	reasoning := verdict.Reasoning
	if reasoning == "" {
		reasoning = "no reasoning provided"
	}

	return &core.Classification{
		IsSpam:       verdict.IsSpam,
		Confidence:   verdict.Confidence,
		Reasoning:    reasoning,
		Indicators:   verdict.SpamIndicators,
		Provider:     "ollama",
		Model:        c.modelName,
		ClassifiedAt: time.Now(),
	}, nil
}
