package di

import (
	"flag"
	"fmt"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/supportops/ticket-triage/internal/adapters/journal"
	"github.com/supportops/ticket-triage/internal/config"
	"github.com/supportops/ticket-triage/internal/core"
	"github.com/supportops/ticket-triage/internal/factory"
	"github.com/supportops/ticket-triage/internal/logging"
	"github.com/supportops/ticket-triage/internal/utils"
	"github.com/supportops/ticket-triage/internal/whitelist"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Run mode flags
	TicketID int64
	Limit    int
	Stats    bool
	OnlyNew  bool
	DryRun   bool

	// Helpdesk flags
	Domain string
	APIKey string

	// LLM provider flags
	Provider    string
	MaxTokens   int
	Temperature float64
	TopP        float64

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	OpenAIModelName string

	// Ollama flags
	OllamaBaseURL   string
	OllamaModelName string

	// Triage flags
	SpamThreshold      float64
	AutoCloseThreshold float64
	SpamTag            string
	AssignAgentID      int64
	MaxBodyLength      int

	// Input flags
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags() *CLIFlags {
	flags := &CLIFlags{}

	// Run mode flags
	flag.Int64Var(&flags.TicketID, "ticket", 0, "Process a single ticket by ID instead of a batch")
	flag.IntVar(&flags.Limit, "limit", 50, "Maximum tickets to fetch in one batch")
	flag.BoolVar(&flags.Stats, "stats", false, "Print spam tag statistics instead of processing")
	flag.BoolVar(&flags.OnlyNew, "only-new", true, "Process only tickets still in the open status")
	flag.BoolVar(&flags.DryRun, "dry-run", true, "Log intended mutations without applying them")

	// Helpdesk flags
	flag.StringVar(&flags.Domain, "domain", "", "Freshdesk account domain (the subdomain before .freshdesk.com)")
	flag.StringVar(&flags.APIKey, "api-key", "", "Freshdesk API key")

	// LLM provider flags
	flag.StringVar(&flags.Provider, "provider", "openai", "LLM provider (openai, gemini, bedrock, ollama)")
	flag.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for LLM response")
	flag.Float64Var(&flags.Temperature, "temperature", 0.2, "Temperature for LLM generation")
	flag.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for LLM generation")

	// Bedrock flags
	flag.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	flag.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-v2", "Bedrock model ID")

	// Gemini flags
	flag.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	flag.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-pro", "Gemini model name")

	// OpenAI flags
	flag.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	flag.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL for an OpenAI-compatible endpoint")
	flag.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")

	// Ollama flags
	flag.StringVar(&flags.OllamaBaseURL, "ollama-url", "http://localhost:11434", "Base URL for the Ollama server")
	flag.StringVar(&flags.OllamaModelName, "ollama-model", "llama3.1", "Ollama model name")

	// Triage flags
	flag.Float64Var(&flags.SpamThreshold, "threshold", 0.7, "Confidence threshold for tagging spam")
	flag.Float64Var(&flags.AutoCloseThreshold, "auto-close-threshold", 0.75, "Confidence threshold for auto-closing spam")
	flag.StringVar(&flags.SpamTag, "spam-tag", core.DefaultSpamTag, "Marker tag applied to spam tickets")
	flag.Int64Var(&flags.AssignAgentID, "assign-agent", 0, "Agent to assign auto-closed tickets to (0 disables assignment)")
	flag.IntVar(&flags.MaxBodyLength, "max-body-length", 4000, "Maximum message length sent to the classifier")

	// Input flags
	flag.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging")
	flag.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	flag.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	flag.Parse()
	return flags
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := loadConfigFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			logger.Info("Loaded configuration from file", zap.String("file", flags.ConfigFile))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(factory.NewHelpdeskFactory); err != nil {
		return nil, err
	}

	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return nil, err
	}

	// Register helpdesk client
	if err := container.Provide(func(f *factory.HelpdeskFactory) (core.Helpdesk, error) {
		return f.CreateHelpdesk()
	}); err != nil {
		return nil, err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return nil, err
	}

	// Register in-memory journal; one-shot runs have no database
	if err := container.Provide(func(logger *zap.Logger) core.Journal {
		return journal.NewMemoryJournal(logger)
	}); err != nil {
		return nil, err
	}

	// Register trusted-domain checker
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *whitelist.Checker {
		return whitelist.NewChecker(cfg.GetTriage().TrustedDomains, logger)
	}); err != nil {
		return nil, err
	}

	// Register message extractor
	if err := container.Provide(func(text *utils.TextProcessor, cfg *config.Config, logger *zap.Logger) *core.MessageExtractor {
		return core.NewMessageExtractor(text, cfg.GetTriage().MaxBodyLength, logger)
	}); err != nil {
		return nil, err
	}

	// Register policy engine
	if err := container.Provide(func(cfg *config.Config) core.PolicySettings {
		triage := cfg.GetTriage()
		return core.PolicySettings{
			SpamThreshold:      triage.SpamThreshold,
			AutoCloseThreshold: triage.AutoCloseThreshold,
			SpamTag:            triage.SpamTag,
			AssignAgentID:      triage.AssignAgentID,
			DryRun:             triage.DryRun,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewPolicyEngine); err != nil {
		return nil, err
	}

	// Register triage service
	if err := container.Provide(func(cfg *config.Config) core.ServiceSettings {
		llm := cfg.GetLLM()
		triage := cfg.GetTriage()
		return core.ServiceSettings{
			Provider:    llm.Provider,
			MaxAttempts: llm.MaxAttempts,
			RetryDelay:  llm.RetryDelay,
			BatchLimit:  triage.MaxTicketsPerBatch,
			OnlyNew:     triage.OnlyNew,
		}
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(core.NewTriageService); err != nil {
		return nil, err
	}

	return container, nil
}

// loadConfigFile reads configuration from an explicit file path
func loadConfigFile(path string) (*config.Config, error) {
	v := config.NewEmptyViper()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return config.NewFromViper(v), nil
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set helpdesk connection
	v.Set("helpdesk.domain", flags.Domain)
	v.Set("helpdesk.api_key", flags.APIKey)

	// Set LLM provider
	v.Set("llm.provider", flags.Provider)

	// Set provider-specific configuration
	switch flags.Provider {
	case "openai":
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
	case "gemini":
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
	case "bedrock":
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
	case "ollama":
		v.Set("ollama.base_url", flags.OllamaBaseURL)
		v.Set("ollama.model_name", flags.OllamaModelName)
		v.Set("ollama.max_tokens", flags.MaxTokens)
		v.Set("ollama.temperature", flags.Temperature)
		v.Set("ollama.top_p", flags.TopP)
	}

	// Set triage behavior
	v.Set("triage.spam_threshold", flags.SpamThreshold)
	v.Set("triage.auto_close_threshold", flags.AutoCloseThreshold)
	v.Set("triage.spam_tag", flags.SpamTag)
	v.Set("triage.assign_agent_id", flags.AssignAgentID)
	v.Set("triage.dry_run", flags.DryRun)
	v.Set("triage.max_tickets_per_batch", flags.Limit)
	v.Set("triage.only_new", flags.OnlyNew)
	v.Set("triage.max_body_length", flags.MaxBodyLength)

	return config.NewFromViper(v)
}
