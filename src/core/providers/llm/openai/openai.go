package openai

import (
	"context"
	"fmt"

	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// Provider targets OpenAI or any service speaking its chat API.
type Provider struct {
	*llm.BaseProvider
	client    *openai.Client
	maxTokens int
}

func init() {
	llm.Register("openai", NewProvider)
}

// NewProvider creates an OpenAI provider.
func NewProvider(config *llm.Config) (llm.Provider, error) {
	base := llm.NewBaseProvider(config)
	provider := &Provider{
		BaseProvider: base,
		maxTokens:    config.MaxTokens,
	}
	if provider.maxTokens <= 0 {
		provider.maxTokens = 500
	}

	return provider, nil
}

// Initialize validates the key and builds the client.
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.APIKey == "" {
		return fmt.Errorf("missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Cleanup releases nothing; the client is stateless.
func (p *Provider) Cleanup() error {
	return nil
}

// Response streams the model reply.
func (p *Provider) Response(ctx context.Context, sessionID string, messages []types.Message) (<-chan string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openai.ChatCompletionRequest{
		Model:     p.Config().ModelName,
		Messages:  chatMessages,
		Stream:    true,
		MaxTokens: p.maxTokens,
	}
	if p.Config().Temperature > 0 {
		request.Temperature = float32(p.Config().Temperature)
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrServiceUnavailable, err)
	}

	responseChan := make(chan string, 10)

	go func() {
		defer close(responseChan)
		defer stream.Close()

		for {
			response, err := stream.Recv()
			if err != nil {
				return
			}

			if len(response.Choices) > 0 {
				content := response.Choices[0].Delta.Content
				if content != "" {
					select {
					case responseChan <- content:
					case <-ctx.Done():
						return
					}
				}
			}
		}
	}()

	return responseChan, nil
}

// ListModels returns the models the account can use.
func (p *Provider) ListModels(ctx context.Context) ([]string, error) {
	list, err := p.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrServiceUnavailable, err)
	}

	names := make([]string, 0, len(list.Models))
	for _, model := range list.Models {
		names = append(names, model.ID)
	}
	return names, nil
}
