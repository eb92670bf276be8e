package config

import (
	"fmt"
	"os"
	"time"
)

// Provider types understood by the provider package.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
)

// ProviderConfig defines configuration for a single vision provider.
type ProviderConfig struct {
	Name      string        `mapstructure:"name"`        // Unique identifier, used in fallback_order
	Type      string        `mapstructure:"type"`        // openai, anthropic or gemini
	Model     string        `mapstructure:"model"`       // Model name/ID
	APIKey    string        `mapstructure:"api_key"`     // API key (can be set directly or via env var)
	APIKeyEnv string        `mapstructure:"api_key_env"` // Environment variable name for API key
	BaseURL   string        `mapstructure:"base_url"`    // Override for proxies and compatible APIs
	Primary   bool          `mapstructure:"primary"`     // Tried first when configured
	Timeout   time.Duration `mapstructure:"timeout"`     // Per-call timeout, 0 means the analysis default
	MaxTokens int           `mapstructure:"max_tokens"`  // Completion token cap
}

// DefaultProviders returns one entry per supported provider, each reading
// its key from the conventional environment variable.
func DefaultProviders() []ProviderConfig {
	return []ProviderConfig{
		{Name: ProviderOpenAI, Type: ProviderOpenAI, Model: "gpt-4o-mini", APIKeyEnv: "OPENAI_API_KEY", MaxTokens: 500},
		{Name: ProviderAnthropic, Type: ProviderAnthropic, Model: "claude-3-5-haiku-latest", APIKeyEnv: "ANTHROPIC_API_KEY", MaxTokens: 500},
		{Name: ProviderGemini, Type: ProviderGemini, Model: "gemini-1.5-flash", APIKeyEnv: "GEMINI_API_KEY", MaxTokens: 500},
	}
}

// ResolveEnvVars loads APIKey from APIKeyEnv when no direct value is set.
func (c *ProviderConfig) ResolveEnvVars() {
	if c.APIKeyEnv != "" && c.APIKey == "" {
		if val := os.Getenv(c.APIKeyEnv); val != "" {
			c.APIKey = val
		}
	}
	if c.Type == "" {
		c.Type = c.Name
	}
}

// Configured reports whether the provider has a credential.
func (c *ProviderConfig) Configured() bool {
	return c.APIKey != ""
}

// Validate checks that the provider configuration has all required fields.
// Returns an error describing the first validation failure, or nil if valid.
func (c *ProviderConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("provider config: name is required")
	}
	if c.Model == "" {
		return fmt.Errorf("provider %q: model is required", c.Name)
	}

	switch c.Type {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini:
	default:
		return fmt.Errorf("provider %q: unknown type %q", c.Name, c.Type)
	}

	return nil
}

// ValidateWithAPIKey validates the configuration including API key requirement.
func (c *ProviderConfig) ValidateWithAPIKey() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("provider %q: api_key is required (set directly or via %s)", c.Name, c.APIKeyEnv)
	}
	return nil
}

// Clone creates a copy of the provider configuration.
func (c *ProviderConfig) Clone() *ProviderConfig {
	clone := *c
	return &clone
}
