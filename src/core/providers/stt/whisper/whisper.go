package whisper

import (
	"context"
	"fmt"
	"strings"

	"dndmaster-go/src/core/providers/stt"
	"dndmaster-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// Provider transcribes audio through a whisper server exposing the
// OpenAI transcription endpoint (faster-whisper-server, LocalAI, or the
// hosted API).
type Provider struct {
	*stt.BaseProvider
	client *openai.Client
	model  string
}

func init() {
	stt.Register("whisper", func(config *stt.Config) (stt.Provider, error) {
		return NewProvider(config)
	})
}

// NewProvider creates a whisper provider.
func NewProvider(config *stt.Config) (*Provider, error) {
	model := config.ModelName
	if model == "" {
		model = openai.Whisper1
	}
	return &Provider{
		BaseProvider: stt.NewBaseProvider(config),
		model:        model,
	}, nil
}

// Initialize builds the transcription client.
func (p *Provider) Initialize() error {
	config := p.Config()

	// Local whisper servers do not check the key but the client needs one.
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = "whisper"
	}

	clientConfig := openai.DefaultConfig(apiKey)
	if config.BaseURL != "" {
		baseURL := config.BaseURL
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
		}
		clientConfig.BaseURL = baseURL
	}

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Cleanup releases nothing; the client is stateless.
func (p *Provider) Cleanup() error {
	return nil
}

// Transcribe sends the recorded file and returns the recognized text.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	response, err := p.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    p.model,
		FilePath: audioPath,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTranscription, err)
	}

	return strings.TrimSpace(response.Text), nil
}
