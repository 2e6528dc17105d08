package providers

import (
	"context"

	"dndmaster-go/src/core/types"
)

// Provider is the lifecycle shared by every external service provider.
type Provider interface {
	Initialize() error
	Cleanup() error
}

// LLMProvider generates narration text from a dialogue.
type LLMProvider interface {
	types.LLMProvider
}

// TTSProvider synthesizes speech to an audio file and returns its path.
type TTSProvider interface {
	Provider

	ToTTS(text string) (string, error)

	SetVoice(voice string) error
}

// STTProvider transcribes one recorded utterance.
type STTProvider interface {
	Provider

	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Message aliases the dialogue message type for provider implementations.
type Message = types.Message
