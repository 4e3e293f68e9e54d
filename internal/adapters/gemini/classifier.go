package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/supportops/ticket-triage/internal/core"
)

// validationNote is inserted into the prompt when the requester passed
// external validation
const validationNote = "Requester validation: the requester's information was validated by our system. Weigh this as a strong signal of legitimacy.\n"

// Classifier is an implementation of the Classifier interface using Google Gemini
type Classifier struct {
	client       *genai.Client
	model        *genai.GenerativeModel
	modelName    string
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

// NewClassifier creates a new Gemini classifier
func NewClassifier(
	apiKey string,
	modelName string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) (*Classifier, error) {
	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	model.SetTemperature(temperature)
	model.SetTopP(topP)
	model.SetMaxOutputTokens(int32(maxTokens))

	return &Classifier{
		client:    client,
		model:     model,
		modelName: modelName,
		logger:    logger,
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
	}, nil
}

// Close closes the Gemini client
func (c *Classifier) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
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

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("empty response from Gemini")
	}

	responseText := fmt.Sprintf("%v", resp.Candidates[0].Content.Parts[0])

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
		return nil, fmt.Errorf("confidence %v from Gemini is outside [0,1]", verdict.Confidence)
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
		Provider:     "gemini",
		Model:        c.modelName,
		ClassifiedAt: time.Now(),
	}, nil
}
