package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance
func New() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/ticket-triage/")
	v.AddConfigPath("$HOME/.ticket-triage")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	// Set defaults
	setDefaults(v)

	// Environment variables
	v.AutomaticEnv()
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, using defaults
	}

	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Helpdesk defaults
	v.SetDefault("helpdesk.provider", "freshdesk")
	v.SetDefault("helpdesk.domain", "")
	v.SetDefault("helpdesk.api_key", "")
	v.SetDefault("helpdesk.timeout", "30s")

	// LLM provider defaults
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_attempts", 3)
	v.SetDefault("llm.retry_delay", "2s")

	// OpenAI defaults
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-4o-mini")
	v.SetDefault("openai.max_tokens", 1000)
	v.SetDefault("openai.temperature", 0.2)
	v.SetDefault("openai.top_p", 0.9)

	// Gemini defaults
	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-pro")
	v.SetDefault("gemini.max_tokens", 1000)
	v.SetDefault("gemini.temperature", 0.1)
	v.SetDefault("gemini.top_p", 0.9)

	// Bedrock defaults
	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "anthropic.claude-v2")
	v.SetDefault("bedrock.max_tokens", 1000)
	v.SetDefault("bedrock.temperature", 0.1)
	v.SetDefault("bedrock.top_p", 0.9)

	// Ollama defaults
	v.SetDefault("ollama.base_url", "http://localhost:11434")
	v.SetDefault("ollama.model_name", "llama3.1")
	v.SetDefault("ollama.max_tokens", 1000)
	v.SetDefault("ollama.temperature", 0.1)
	v.SetDefault("ollama.top_p", 0.9)
	v.SetDefault("ollama.timeout", "120s")

	// Triage defaults; dry_run starts true so a fresh install mutates
	// nothing until explicitly armed
	v.SetDefault("triage.spam_threshold", 0.7)
	v.SetDefault("triage.auto_close_threshold", 0.75)
	v.SetDefault("triage.spam_tag", "Auto-Spam-Detected")
	v.SetDefault("triage.assign_agent_id", 0)
	v.SetDefault("triage.dry_run", true)
	v.SetDefault("triage.check_interval", "5m")
	v.SetDefault("triage.max_tickets_per_batch", 50)
	v.SetDefault("triage.only_new", true)
	v.SetDefault("triage.max_body_length", 4000)
	v.SetDefault("triage.trusted_domains", []string{})

	// Webhook defaults
	v.SetDefault("webhook.enabled", false)
	v.SetDefault("webhook.listen_address", "0.0.0.0:8080")

	// Journal defaults
	v.SetDefault("journal.type", "memory")
	v.SetDefault("journal.sqlite_path", "/data/triage_log.db")
	v.SetDefault("journal.mysql_dsn", "user:password@tcp(localhost:3306)/ticket_triage")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output_path", "stdout")
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetInt64 gets an int64 value from the configuration
func (c *Config) GetInt64(key string) int64 {
	return c.v.GetInt64(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetStringSlice gets a string slice value from the configuration
func (c *Config) GetStringSlice(key string) []string {
	return c.v.GetStringSlice(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) time.Duration {
	return c.v.GetDuration(key)
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
