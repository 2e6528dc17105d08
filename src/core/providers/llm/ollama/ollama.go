package ollama

import (
	"context"
	"fmt"
	"strings"

	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/types"

	"github.com/sashabaranov/go-openai"
)

// Provider talks to a local Ollama through its OpenAI-compatible endpoint.
type Provider struct {
	*llm.BaseProvider
	client    *openai.Client
	modelName string
}

func init() {
	llm.Register("ollama", NewProvider)
}

// NewProvider creates an Ollama provider.
func NewProvider(config *llm.Config) (llm.Provider, error) {
	base := llm.NewBaseProvider(config)
	provider := &Provider{
		BaseProvider: base,
		modelName:    config.ModelName,
	}

	return provider, nil
}

// Initialize builds the OpenAI-compatible client against the Ollama URL.
func (p *Provider) Initialize() error {
	config := p.Config()
	baseURL := config.BaseURL
	if baseURL == "" {
		if url, ok := config.Extra["url"].(string); ok {
			baseURL = url
		}
	}
	if baseURL == "" {
		return fmt.Errorf("missing Ollama base URL")
	}

	// Ollama serves the OpenAI surface under /v1.
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = strings.TrimSuffix(baseURL, "/") + "/v1"
	}

	// Ollama ignores the API key, but the client requires one.
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Cleanup releases nothing; the client is stateless.
func (p *Provider) Cleanup() error {
	return nil
}

// Response streams the model reply. Opening the stream fails with
// ErrServiceUnavailable when Ollama is unreachable.
func (p *Provider) Response(ctx context.Context, sessionID string, messages []types.Message) (<-chan string, error) {
	chatMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		chatMessages[i] = openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		}
	}

	request := openai.ChatCompletionRequest{
		Model:    p.modelName,
		Messages: chatMessages,
		Stream:   true,
	}
	if p.Config().Temperature > 0 {
		request.Temperature = float32(p.Config().Temperature)
	}
	if p.Config().MaxTokens > 0 {
		request.MaxTokens = p.Config().MaxTokens
	}

	stream, err := p.client.CreateChatCompletionStream(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrServiceUnavailable, err)
	}

	responseChan := make(chan string, 10)

	go func() {
		defer close(responseChan)
		defer stream.Close()

		isActive := true
		buffer := ""

		for {
			response, err := stream.Recv()
			if err != nil {
				return
			}

			if len(response.Choices) > 0 {
				content := response.Choices[0].Delta.Content
				if content != "" {
					buffer += content

					// Reasoning models interleave <think> blocks; drop them.
					buffer, isActive = stripThinkTags(buffer, isActive)

					if isActive && buffer != "" {
						select {
						case responseChan <- buffer:
							buffer = ""
						case <-ctx.Done():
							return
						}
					}
				}
			}
		}
	}()

	return responseChan, nil
}

// ListModels asks Ollama which models are installed.
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

// stripThinkTags removes <think>...</think> spans from the streamed buffer
// and reports whether output is currently outside a think block.
func stripThinkTags(buffer string, isActive bool) (string, bool) {
	if buffer == "" {
		return buffer, isActive
	}

	for strings.Contains(buffer, "<think>") && strings.Contains(buffer, "</think>") {
		parts := strings.SplitN(buffer, "<think>", 2)
		pre := parts[0]
		parts = strings.SplitN(parts[1], "</think>", 2)
		buffer = pre + parts[1]
	}

	if strings.Contains(buffer, "<think>") {
		parts := strings.SplitN(buffer, "<think>", 2)
		buffer = parts[0]
		isActive = false
	}

	if strings.Contains(buffer, "</think>") {
		parts := strings.SplitN(buffer, "</think>", 2)
		buffer = parts[1]
		isActive = true
	}

	return buffer, isActive
}
