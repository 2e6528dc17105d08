package stt

import (
	"fmt"

	"dndmaster-go/src/core/providers"
)

// Config holds the settings shared by every STT provider.
type Config struct {
	Type      string `yaml:"type"`
	BaseURL   string `yaml:"url,omitempty"`
	APIKey    string `yaml:"api_key,omitempty"`
	ModelName string `yaml:"model_name,omitempty"`
}

// Provider is the interface every STT provider implements.
type Provider interface {
	providers.STTProvider
}

// BaseProvider carries the config for concrete providers.
type BaseProvider struct {
	config *Config
}

// Config returns the provider configuration.
func (p *BaseProvider) Config() *Config {
	return p.config
}

// NewBaseProvider wraps a config for embedding in a concrete provider.
func NewBaseProvider(config *Config) *BaseProvider {
	return &BaseProvider{config: config}
}

// Initialize is a no-op default.
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup is a no-op default.
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory creates a provider from its config.
type Factory func(config *Config) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register adds a provider factory under a type name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create builds and initializes the provider registered under name.
func Create(name string, config *Config) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown STT provider: %s", name)
	}

	provider, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create STT provider: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize STT provider: %v", err)
	}

	return provider, nil
}
