package game

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/types"
	"dndmaster-go/src/core/utils"
	"dndmaster-go/src/game/party"

	"github.com/stretchr/testify/require"
)

// A factory registered under "scripted" lets /reconnect build providers
// inside tests. The built model refuses to list models when pointed at a
// dead URL, which is what an unreachable server looks like to the session.
func init() {
	llm.Register("scripted", func(config *llm.Config) (llm.Provider, error) {
		if strings.Contains(config.BaseURL, "127.0.0.1:1") {
			return &fakeLLM{listErr: errors.New("connection refused")}, nil
		}
		return &fakeLLM{models: []string{config.ModelName}}, nil
	})
}

// fakeLLM scripts the narration service. With stall set the stream stays
// open until the context dies, which is how a hung model looks.
type fakeLLM struct {
	chunks  []string
	openErr error
	stall   bool

	models  []string
	listErr error

	gotMessages []types.Message
}

func (f *fakeLLM) Initialize() error { return nil }
func (f *fakeLLM) Cleanup() error    { return nil }

func (f *fakeLLM) ListModels(ctx context.Context) ([]string, error) {
	return f.models, f.listErr
}

func (f *fakeLLM) Response(ctx context.Context, sessionID string, messages []types.Message) (<-chan string, error) {
	f.gotMessages = messages
	if f.openErr != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrServiceUnavailable, f.openErr)
	}
	ch := make(chan string)
	go func() {
		defer close(ch)
		if f.stall {
			<-ctx.Done()
			return
		}
		for _, chunk := range f.chunks {
			ch <- chunk
		}
	}()
	return ch, nil
}

// fakeTTS synthesizes into a scratch file and counts calls.
type fakeTTS struct {
	dir   string
	calls int
}

func (f *fakeTTS) Initialize() error           { return nil }
func (f *fakeTTS) Cleanup() error              { return nil }
func (f *fakeTTS) SetVoice(voice string) error { return nil }

func (f *fakeTTS) ToTTS(text string) (string, error) {
	f.calls++
	path := filepath.Join(f.dir, fmt.Sprintf("speech_%d.mp3", f.calls))
	return path, os.WriteFile(path, []byte(text), 0644)
}

// fakeSTT returns a scripted transcription.
type fakeSTT struct {
	text string
	err  error
}

func (f *fakeSTT) Initialize() error { return nil }
func (f *fakeSTT) Cleanup() error    { return nil }

func (f *fakeSTT) Transcribe(ctx context.Context, audioPath string) (string, error) {
	return f.text, f.err
}

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	cfg := &configs.Config{}
	cfg.Log.LogDir = t.TempDir()
	cfg.Log.LogFile = "test.log"
	logger, err := utils.NewLogger(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return logger
}

func newTestParty() *party.Party {
	p := party.New()
	p.Add("Gandalf", "Wizard", 20)
	p.Add("Aragorn", "Ranger", 25)
	return p
}

// newTestSession builds a full session around the fake model with typed
// input scripted from the given string.
func newTestSession(t *testing.T, model *fakeLLM, typed string) *Session {
	t.Helper()
	logger := newTestLogger(t)
	display := NewDisplay()
	dialogue := chat.NewDialogueManager(logger)
	narrator := NewNarrator(model, nil, dialogue, display, logger, NarratorOptions{
		SessionID:       "test-session",
		SystemPrompt:    "You are the Dungeon Master.",
		ConnectTimeout:  time.Second,
		GenerateTimeout: 200 * time.Millisecond,
	})
	input := NewInputGateway(strings.NewReader(typed), display, nil, "", logger)

	return NewSession("test-session", SessionDeps{
		Config:   &configs.Config{},
		Logger:   logger,
		Display:  display,
		Party:    newTestParty(),
		Dialogue: dialogue,
		Narrator: narrator,
		Input:    input,
		Board:    NewStatusBoard(),
		LLMType:  "ollama",
		LLMConfig: &llm.Config{
			ModelName: "llama2",
			BaseURL:   "http://localhost:11434",
		},
	})
}
