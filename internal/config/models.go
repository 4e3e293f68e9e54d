package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/supportops/ticket-triage/internal/core"
)

// HelpdeskConfig represents the configuration for the helpdesk connection
type HelpdeskConfig struct {
	Provider string `validate:"oneof=freshdesk"`
	Domain   string `validate:"required"`
	APIKey   string `validate:"required"`
	Timeout  time.Duration
}

// LLMConfig represents the configuration for the LLM provider selection
type LLMConfig struct {
	Provider    string `validate:"oneof=openai gemini bedrock ollama"`
	MaxAttempts int    `validate:"gte=1"`
	RetryDelay  time.Duration
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
}

// OllamaConfig represents the configuration for a local Ollama server
type OllamaConfig struct {
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	Timeout     time.Duration
}

// TriageConfig represents the thresholds and behavior of the policy engine
type TriageConfig struct {
	SpamThreshold      float64 `validate:"gte=0,lte=1"`
	AutoCloseThreshold float64 `validate:"gte=0,lte=1"`
	SpamTag            string  `validate:"required"`
	AssignAgentID      int64   `validate:"gte=0"`
	DryRun             bool
	CheckInterval      time.Duration `validate:"gt=0"`
	MaxTicketsPerBatch int           `validate:"gte=1,lte=100"`
	OnlyNew            bool
	MaxBodyLength      int `validate:"gte=1"`
	TrustedDomains     []string
}

// WebhookConfig represents the configuration for the webhook server
type WebhookConfig struct {
	Enabled       bool
	ListenAddress string
}

// JournalConfig represents the configuration for the verdict journal
type JournalConfig struct {
	Type       string `validate:"oneof=memory sqlite mysql"`
	SQLitePath string
	MySQLDSN   string
}

// GetHelpdesk returns the helpdesk configuration
func (c *Config) GetHelpdesk() HelpdeskConfig {
	return HelpdeskConfig{
		Provider: c.GetString("helpdesk.provider"),
		Domain:   c.GetString("helpdesk.domain"),
		APIKey:   c.GetString("helpdesk.api_key"),
		Timeout:  c.GetDuration("helpdesk.timeout"),
	}
}

// GetLLM returns the LLM provider selection
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:    c.GetString("llm.provider"),
		MaxAttempts: c.GetInt("llm.max_attempts"),
		RetryDelay:  c.GetDuration("llm.retry_delay"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
	}
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
	}
}

// GetOllama returns the Ollama configuration
func (c *Config) GetOllama() OllamaConfig {
	return OllamaConfig{
		BaseURL:     c.GetString("ollama.base_url"),
		ModelName:   c.GetString("ollama.model_name"),
		MaxTokens:   c.GetInt("ollama.max_tokens"),
		Temperature: float32(c.GetFloat64("ollama.temperature")),
		TopP:        float32(c.GetFloat64("ollama.top_p")),
		Timeout:     c.GetDuration("ollama.timeout"),
	}
}

// GetTriage returns the triage configuration
func (c *Config) GetTriage() TriageConfig {
	return TriageConfig{
		SpamThreshold:      c.GetFloat64("triage.spam_threshold"),
		AutoCloseThreshold: c.GetFloat64("triage.auto_close_threshold"),
		SpamTag:            c.GetString("triage.spam_tag"),
		AssignAgentID:      c.GetInt64("triage.assign_agent_id"),
		DryRun:             c.GetBool("triage.dry_run"),
		CheckInterval:      c.GetDuration("triage.check_interval"),
		MaxTicketsPerBatch: c.GetInt("triage.max_tickets_per_batch"),
		OnlyNew:            c.GetBool("triage.only_new"),
		MaxBodyLength:      c.GetInt("triage.max_body_length"),
		TrustedDomains:     c.GetStringSlice("triage.trusted_domains"),
	}
}

// GetWebhook returns the webhook server configuration
func (c *Config) GetWebhook() WebhookConfig {
	return WebhookConfig{
		Enabled:       c.GetBool("webhook.enabled"),
		ListenAddress: c.GetString("webhook.listen_address"),
	}
}

// GetJournal returns the journal configuration
func (c *Config) GetJournal() JournalConfig {
	return JournalConfig{
		Type:       c.GetString("journal.type"),
		SQLitePath: c.GetString("journal.sqlite_path"),
		MySQLDSN:   c.GetString("journal.mysql_dsn"),
	}
}

// Validate checks the configuration before anything starts. A bad value
// here is fatal: it is the only class of error that stops the process.
func (c *Config) Validate() error {
	validate := validator.New()

	helpdesk := c.GetHelpdesk()
	if err := validate.Struct(&helpdesk); err != nil {
		return &core.ConfigurationError{Field: "helpdesk", Reason: err.Error()}
	}

	llm := c.GetLLM()
	if err := validate.Struct(&llm); err != nil {
		return &core.ConfigurationError{Field: "llm", Reason: err.Error()}
	}

	triage := c.GetTriage()
	if err := validate.Struct(&triage); err != nil {
		return &core.ConfigurationError{Field: "triage", Reason: err.Error()}
	}
	if triage.AutoCloseThreshold < triage.SpamThreshold {
		return &core.ConfigurationError{
			Field: "triage.auto_close_threshold",
			Reason: fmt.Sprintf("must not be below triage.spam_threshold (%v < %v)",
				triage.AutoCloseThreshold, triage.SpamThreshold),
		}
	}

	journal := c.GetJournal()
	if err := validate.Struct(&journal); err != nil {
		return &core.ConfigurationError{Field: "journal", Reason: err.Error()}
	}

	return nil
}
