package configs

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Server struct {
		// BaseURL of the generation service, default Ollama on localhost.
		BaseURL string `yaml:"base_url"`
		// ConnectTimeoutS bounds reachability checks and model listing.
		ConnectTimeoutS int `yaml:"connect_timeout_s"`
		// GenerateTimeoutS bounds one narration exchange.
		GenerateTimeoutS int `yaml:"generate_timeout_s"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	Web struct {
		Enabled bool `yaml:"enabled"`
		Port    int  `yaml:"port"`
		Auth    struct {
			Enabled bool   `yaml:"enabled"`
			Secret  string `yaml:"secret"`
		} `yaml:"auth"`
	} `yaml:"web"`

	// DMPrompt is the system prompt that keeps the model in the Dungeon
	// Master role.
	DMPrompt    string `yaml:"prompt"`
	DeleteAudio bool   `yaml:"delete_audio"`

	SelectedModule map[string]string `yaml:"selected_module"`

	LLM map[string]LLMConfig `yaml:"LLM"`
	TTS map[string]TTSConfig `yaml:"TTS"`
	STT map[string]STTConfig `yaml:"STT"`
}

// LLMConfig describes one generation provider entry.
type LLMConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	Extra       map[string]interface{} `yaml:",inline"`
}

// TTSConfig describes one speech synthesis provider entry.
type TTSConfig struct {
	Type      string `yaml:"type"`
	Voice     string `yaml:"voice"`
	Format    string `yaml:"format"`
	OutputDir string `yaml:"output_dir"`
	Cluster   string `yaml:"cluster"`
	Player    string `yaml:"player"`
}

// STTConfig describes one speech recognition provider entry.
type STTConfig struct {
	Type      string `yaml:"type"`
	BaseURL   string `yaml:"url"`
	APIKey    string `yaml:"api_key"`
	ModelName string `yaml:"model_name"`
	RecordCmd string `yaml:"record_cmd"`
}

// envOverrides are applied on top of the yaml file so a session can be
// pointed at another Ollama or model without editing config.yaml.
type envOverrides struct {
	BaseURL   string `env:"DM_OLLAMA_URL"`
	ModelName string `env:"DM_MODEL"`
	LogLevel  string `env:"DM_LOG_LEVEL"`
	WebPort   int    `env:"DM_WEB_PORT"`
}

// LoadConfig reads .config.yaml or config.yaml from the working directory.
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, path, err
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, path, err
	}
	config.applyDefaults()

	if err := config.applyEnvOverrides(); err != nil {
		return nil, path, err
	}

	return config, path, nil
}

// ConnectTimeout bounds reachability checks and model listing.
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Server.ConnectTimeoutS) * time.Second
}

// GenerateTimeout bounds one narration exchange.
func (c *Config) GenerateTimeout() time.Duration {
	return time.Duration(c.Server.GenerateTimeoutS) * time.Second
}

func (c *Config) applyDefaults() {
	if c.Server.BaseURL == "" {
		c.Server.BaseURL = "http://localhost:11434"
	}
	if c.Server.ConnectTimeoutS <= 0 {
		c.Server.ConnectTimeoutS = 5
	}
	if c.Server.GenerateTimeoutS <= 0 {
		c.Server.GenerateTimeoutS = 60
	}
	if c.Log.LogDir == "" {
		c.Log.LogDir = "logs"
	}
	if c.Log.LogFile == "" {
		c.Log.LogFile = "dndmaster.log"
	}
}

func (c *Config) applyEnvOverrides() error {
	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return fmt.Errorf("parse env overrides: %w", err)
	}

	if overrides.BaseURL != "" {
		c.Server.BaseURL = overrides.BaseURL
	}
	if overrides.ModelName != "" {
		for name, llm := range c.LLM {
			llm.ModelName = overrides.ModelName
			c.LLM[name] = llm
		}
	}
	if overrides.LogLevel != "" {
		c.Log.LogLevel = overrides.LogLevel
	}
	if overrides.WebPort != 0 {
		c.Web.Port = overrides.WebPort
	}
	return nil
}
