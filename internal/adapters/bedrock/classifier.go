package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/core"
)

// validationNote is inserted into the prompt when the requester passed
// external validation
const validationNote = "Requester validation: the requester's information was validated by our system. Weigh this as a strong signal of legitimacy.\n"

// Classifier is an implementation of the Classifier interface using Amazon Bedrock
type Classifier struct {
	client       *bedrockruntime.Client
	modelID      string
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

// NewClassifier creates a new Bedrock classifier
func NewClassifier(
	client *bedrockruntime.Client,
	modelID string,
	maxTokens int,
	temperature float32,
	topP float32,
	logger *zap.Logger,
) *Classifier {
	return &Classifier{
		client:      client,
		modelID:     modelID,
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

	// Build the request payload for the model family
	var payload []byte
	var err error

	if c.isAnthropicModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":               prompt,
			"max_tokens_to_sample": c.maxTokens,
			"temperature":          c.temperature,
			"top_p":                c.topP,
		})
	} else if c.isAmazonTitanModel() {
		payload, err = json.Marshal(map[string]interface{}{
			"inputText": prompt,
			"textGenerationConfig": map[string]interface{}{
				"maxTokenCount": c.maxTokens,
				"temperature":   c.temperature,
				"topP":          c.topP,
			},
		})
	} else {
		payload, err = json.Marshal(map[string]interface{}{
			"prompt":      prompt,
			"max_tokens":  c.maxTokens,
			"temperature": c.temperature,
			"top_p":       c.topP,
		})
	}

	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &c.modelID,
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model: %w", err)
	}

	// Pull the completion text out of the model-family response shape
	var responseText string

	if c.isAnthropicModel() {
		var claudeResp struct {
			Completion string `json:"completion"`
		}
		if err := json.Unmarshal(resp.Body, &claudeResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
		}
		responseText = claudeResp.Completion
	} else if c.isAmazonTitanModel() {
		var titanResp struct {
			Results []struct {
				OutputText string `json:"outputText"`
			} `json:"results"`
		}
		if err := json.Unmarshal(resp.Body, &titanResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal Titan response: %w", err)
		}
		if len(titanResp.Results) == 0 {
			return nil, fmt.Errorf("empty response from Titan model")
		}
		responseText = titanResp.Results[0].OutputText
	} else {
		var genericResp struct {
			Output   string `json:"output"`
			Text     string `json:"text"`
			Response string `json:"response"`
		}
		if err := json.Unmarshal(resp.Body, &genericResp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal generic response: %w", err)
		}

		if genericResp.Output != "" {
			responseText = genericResp.Output
		} else if genericResp.Text != "" {
			responseText = genericResp.Text
		} else if genericResp.Response != "" {
			responseText = genericResp.Response
		} else {
			responseText = string(resp.Body)
		}
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
		return nil, fmt.Errorf("confidence %v from Bedrock is outside [0,1]", verdict.Confidence)
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
		Provider:     "bedrock",
		Model:        c.modelID,
		ClassifiedAt: time.Now(),
	}, nil
}

// isAnthropicModel checks if the model is an Anthropic Claude model
func (c *Classifier) isAnthropicModel() bool {
	return strings.HasPrefix(c.modelID, "anthropic.claude")
}

// isAmazonTitanModel checks if the model is an Amazon Titan model
func (c *Classifier) isAmazonTitanModel() bool {
	return strings.HasPrefix(c.modelID, "amazon.titan")
}
