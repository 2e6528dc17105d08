package types

import (
	"context"
	"errors"
)

// Message is a single entry of the running dialogue sent to the LLM.
// Sender carries the character name for player messages; it is not
// forwarded to the model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Sender  string `json:"sender,omitempty"`
}

// Error kinds surfaced to the turn loop. Each one is reported to the
// player and leaves the session alive.
var (
	// ErrServiceUnavailable means the generation service is unreachable,
	// returned a bad status, or timed out. The player may /reconnect.
	ErrServiceUnavailable = errors.New("generation service unavailable")

	// ErrTranscription means speech recognition failed for this turn.
	// The loop falls back to typed input.
	ErrTranscription = errors.New("transcription failed")
)

// Provider is the lifecycle shared by every external service provider.
type Provider interface {
	Initialize() error
	Cleanup() error
}

// LLMProvider generates narration text from a dialogue.
type LLMProvider interface {
	Provider

	// Response streams the model reply for the given dialogue. The call
	// fails synchronously when the stream cannot be opened; mid-stream
	// failures end the channel early.
	Response(ctx context.Context, sessionID string, messages []Message) (<-chan string, error)

	// ListModels returns the model identifiers the service has available.
	ListModels(ctx context.Context) ([]string, error)
}
