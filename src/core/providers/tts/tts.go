package tts

import (
	"fmt"
	"os"
	"path/filepath"

	"dndmaster-go/src/core/providers"
)

// Config holds the settings shared by every TTS provider.
type Config struct {
	Type      string `yaml:"type"`
	OutputDir string `yaml:"output_dir"`
	Voice     string `yaml:"voice,omitempty"`
	Format    string `yaml:"format,omitempty"`
	Cluster   string `yaml:"cluster,omitempty"`
}

// Provider is the interface every TTS provider implements.
type Provider interface {
	providers.TTSProvider
}

// BaseProvider carries the config and the temp-file policy.
type BaseProvider struct {
	config     *Config
	deleteFile bool
}

// Config returns the provider configuration.
func (p *BaseProvider) Config() *Config {
	return p.config
}

// DeleteFile reports whether synthesized files are removed after playback.
func (p *BaseProvider) DeleteFile() bool {
	return p.deleteFile
}

// SetVoice switches the synthesis voice.
func (p *BaseProvider) SetVoice(voice string) error {
	p.config.Voice = voice
	return nil
}

// NewBaseProvider wraps a config for embedding in a concrete provider.
func NewBaseProvider(config *Config, deleteFile bool) *BaseProvider {
	return &BaseProvider{
		config:     config,
		deleteFile: deleteFile,
	}
}

// Initialize ensures the output directory exists.
func (p *BaseProvider) Initialize() error {
	if p.config.OutputDir == "" {
		p.config.OutputDir = os.TempDir()
	}
	if err := os.MkdirAll(p.config.OutputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	return nil
}

// Cleanup removes leftover synthesized files when deleteFile is set.
func (p *BaseProvider) Cleanup() error {
	if !p.deleteFile {
		return nil
	}
	for _, ext := range []string{"wav", "mp3"} {
		matches, err := filepath.Glob(filepath.Join(p.config.OutputDir, "*."+ext))
		if err != nil {
			return fmt.Errorf("glob temp audio: %w", err)
		}
		for _, file := range matches {
			if err := os.Remove(file); err != nil {
				return fmt.Errorf("remove temp audio: %w", err)
			}
		}
	}
	return nil
}

// Factory creates a provider from its config.
type Factory func(config *Config, deleteFile bool) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register adds a provider factory under a type name.
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create builds and initializes the provider registered under name.
func Create(name string, config *Config, deleteFile bool) (Provider, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown TTS provider: %s", name)
	}

	provider, err := factory(config, deleteFile)
	if err != nil {
		return nil, fmt.Errorf("create TTS provider: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("initialize TTS provider: %v", err)
	}

	return provider, nil
}
