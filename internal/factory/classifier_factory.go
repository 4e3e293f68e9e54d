package factory

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/adapters/bedrock"
	"github.com/supportops/ticket-triage/internal/adapters/gemini"
	"github.com/supportops/ticket-triage/internal/adapters/ollama"
	"github.com/supportops/ticket-triage/internal/adapters/openai"
	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
)

// ClassifierFactory creates classifiers based on configuration
type ClassifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateClassifier creates a classifier for the configured LLM provider
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	provider := f.cfg.GetLLM().Provider

	switch provider {
	case "openai":
		c := f.cfg.GetOpenAI()
		if c.APIKey == "" {
			return nil, &core.ConfigurationError{Field: "openai.api_key", Reason: "must be set for the openai provider"}
		}
		return openai.NewClassifier(c.APIKey, c.BaseURL, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger), nil
	case "gemini":
		c := f.cfg.GetGemini()
		if c.APIKey == "" {
			return nil, &core.ConfigurationError{Field: "gemini.api_key", Reason: "must be set for the gemini provider"}
		}
		return gemini.NewClassifier(c.APIKey, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, f.logger)
	case "bedrock":
		c := f.cfg.GetBedrock()
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(c.Region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := bedrockruntime.NewFromConfig(awsCfg)
		return bedrock.NewClassifier(client, c.ModelID, c.MaxTokens, c.Temperature, c.TopP, f.logger), nil
	case "ollama":
		c := f.cfg.GetOllama()
		return ollama.NewClassifier(c.BaseURL, c.ModelName, c.MaxTokens, c.Temperature, c.TopP, c.Timeout, f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", provider)
	}
}
