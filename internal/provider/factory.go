package provider

import (
	"fmt"
	"strings"

	"github.com/timmy/altseo/internal/config"
)

// Factory builds a provider from its configuration.
type Factory func(cfg *config.ProviderConfig) Provider

// factories maps a provider type to its builder.
var factories = map[string]Factory{
	config.ProviderOpenAI:    func(cfg *config.ProviderConfig) Provider { return NewOpenAI(cfg) },
	config.ProviderAnthropic: func(cfg *config.ProviderConfig) Provider { return NewAnthropic(cfg) },
	config.ProviderGemini:    func(cfg *config.ProviderConfig) Provider { return NewGemini(cfg) },
}

// New creates a provider for cfg.Type.
func New(cfg *config.ProviderConfig) (Provider, error) {
	factory, ok := factories[strings.ToLower(cfg.Type)]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", cfg.Type)
	}
	return factory(cfg), nil
}
