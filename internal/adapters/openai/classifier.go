package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// validationNote is inserted into the prompt when the requester passed
// external validation
const validationNote = "Requester validation: the requester's information was validated by our system. Weigh this as a strong signal of legitimacy.\n"

// Classifier is an implementation of the Classifier interface using OpenAI
type Classifier struct {
	client       *openai.Client
	modelName    string
	maxTokens    int
	temperature  float32
	topP         float32
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

// NewClassifier creates a new OpenAI classifier. A non-empty baseURL points
// the client at an OpenAI-compatible endpoint.
func NewClassifier(
	apiKey string,
	baseURL string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Classifier {
	clientConfig := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		clientConfig.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(clientConfig)

	return &Classifier{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		topP:        topP,
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

	chatReq := openai.ChatCompletionRequest{
		Model: c.modelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You are a spam detection system for helpdesk tickets. Respond only with JSON.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		TopP:        c.topP,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat completion with OpenAI: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}

	responseText := resp.Choices[0].Message.Content

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
		return nil, fmt.Errorf("confidence %v from OpenAI is outside [0,1]", verdict.Confidence)
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
		Provider:     "openai",
		Model:        c.modelName,
		ClassifiedAt: time.Now(),
	}, nil
}
