package game

import (
	"context"
	"testing"
	"time"

	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/types"

	"github.com/stretchr/testify/require"
)

func newTestNarrator(t *testing.T, model *fakeLLM, tts *fakeTTS) (*Narrator, *chat.DialogueManager) {
	t.Helper()
	logger := newTestLogger(t)
	dialogue := chat.NewDialogueManager(logger)
	opts := NarratorOptions{
		SessionID:       "test-session",
		SystemPrompt:    "You are the Dungeon Master.",
		ConnectTimeout:  time.Second,
		GenerateTimeout: 200 * time.Millisecond,
		DeleteAudio:     true,
	}
	if tts != nil {
		return NewNarrator(model, tts, dialogue, NewDisplay(), logger, opts), dialogue
	}
	return NewNarrator(model, nil, dialogue, NewDisplay(), logger, opts), dialogue
}

func TestGenerateBoundsContextWindow(t *testing.T) {
	model := &fakeLLM{chunks: []string{"done"}}
	n, dialogue := newTestNarrator(t, model, nil)

	for i := 0; i < 15; i++ {
		dialogue.Put(types.Message{Role: "user", Content: "older line"})
	}

	_, err := n.Generate(context.Background(), "GAME STATE", "Gandalf", "newest line")
	require.NoError(t, err)

	// system prompt + state + capped history + the new line
	require.Len(t, model.gotMessages, 1+1+contextWindow+1)
	require.Equal(t, "You are the Dungeon Master.", model.gotMessages[0].Content)
	require.Equal(t, "GAME STATE", model.gotMessages[1].Content)
	require.Equal(t, "newest line", model.gotMessages[len(model.gotMessages)-1].Content)
}

func TestGenerateOmitsEmptyStateContext(t *testing.T) {
	model := &fakeLLM{chunks: []string{"done"}}
	n, _ := newTestNarrator(t, model, nil)

	_, err := n.Generate(context.Background(), "", "Gandalf", "hello")
	require.NoError(t, err)
	require.Len(t, model.gotMessages, 2)
}

func TestGenerateStreamOpenFailure(t *testing.T) {
	model := &fakeLLM{openErr: context.DeadlineExceeded}
	n, dialogue := newTestNarrator(t, model, nil)

	_, err := n.Generate(context.Background(), "", "Gandalf", "hello")
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
	require.Zero(t, dialogue.Len())
}

func TestGenerateTimeoutWrapsServiceError(t *testing.T) {
	model := &fakeLLM{stall: true}
	n, dialogue := newTestNarrator(t, model, nil)

	start := time.Now()
	_, err := n.Generate(context.Background(), "", "Gandalf", "hello")
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
	require.Less(t, time.Since(start), 5*time.Second)
	require.Zero(t, dialogue.Len())
}

func TestGenerateEmptyNarrationIsAnError(t *testing.T) {
	model := &fakeLLM{chunks: []string{"  ", "\n"}}
	n, dialogue := newTestNarrator(t, model, nil)

	_, err := n.Generate(context.Background(), "", "Gandalf", "hello")
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
	require.Zero(t, dialogue.Len())
}

func TestCheckConnectionWrapsFailure(t *testing.T) {
	model := &fakeLLM{listErr: context.DeadlineExceeded}
	n, _ := newTestNarrator(t, model, nil)

	_, err := n.CheckConnection(context.Background())
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
}

func TestSpeakNeverBlocks(t *testing.T) {
	tts := &fakeTTS{dir: t.TempDir()}
	n, _ := newTestNarrator(t, &fakeLLM{}, tts)

	// no speaker draining the queue; every call must still return
	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			n.Speak("the goblin snarls")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Speak blocked with a full queue")
	}
}

func TestSpeakIgnoresSilentNarrator(t *testing.T) {
	n, _ := newTestNarrator(t, &fakeLLM{}, nil)
	n.Speak("nobody is listening")
}
