package game

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/providers"
	"dndmaster-go/src/core/types"
	"dndmaster-go/src/core/utils"
)

// contextWindow bounds how much history travels with every request.
const contextWindow = 10

// Narrator turns player actions into story text and reads it aloud. The
// language model is consulted synchronously from the turn loop; speech
// runs on its own worker so narration never blocks the table.
type Narrator struct {
	llm       providers.LLMProvider
	tts       providers.TTSProvider
	dialogue  *chat.DialogueManager
	display   *Display
	logger    *utils.TaggedLogger
	sessionID string

	systemPrompt   string
	connectTimeout time.Duration
	genTimeout     time.Duration

	player      string
	deleteAudio bool
	speech      chan string
}

// NarratorOptions carries everything the narrator needs beyond providers.
type NarratorOptions struct {
	SessionID       string
	SystemPrompt    string
	ConnectTimeout  time.Duration
	GenerateTimeout time.Duration
	Player          string
	DeleteAudio     bool
}

// NewNarrator builds the narration gateway. tts may be nil to run a
// silent table.
func NewNarrator(llmProvider providers.LLMProvider, ttsProvider providers.TTSProvider, dialogue *chat.DialogueManager, display *Display, logger *utils.Logger, opts NarratorOptions) *Narrator {
	return &Narrator{
		llm:            llmProvider,
		tts:            ttsProvider,
		dialogue:       dialogue,
		display:        display,
		logger:         logger.WithTag("narrator"),
		sessionID:      opts.SessionID,
		systemPrompt:   opts.SystemPrompt,
		connectTimeout: opts.ConnectTimeout,
		genTimeout:     opts.GenerateTimeout,
		player:         opts.Player,
		deleteAudio:    opts.DeleteAudio,
		speech:         make(chan string, 8),
	}
}

// SetLLM swaps the language model provider, used after /reconnect or a
// settings change. Only the turn loop calls this.
func (n *Narrator) SetLLM(provider providers.LLMProvider) {
	n.llm = provider
}

// CheckConnection verifies the model service answers and returns the
// models it advertises.
func (n *Narrator) CheckConnection(ctx context.Context) ([]string, error) {
	checkCtx, cancel := context.WithTimeout(ctx, n.connectTimeout)
	defer cancel()
	models, err := n.llm.ListModels(checkCtx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrServiceUnavailable, err)
	}
	return models, nil
}

// Generate sends the game state and the player's line to the model and
// returns the full narration. The streamed chunks are printed as they
// arrive. On success both sides of the exchange land in the dialogue
// history; on failure the history is untouched.
func (n *Narrator) Generate(ctx context.Context, stateContext, sender, input string) (string, error) {
	messages := make([]types.Message, 0, contextWindow+3)
	messages = append(messages, types.Message{Role: "system", Content: n.systemPrompt})
	if stateContext != "" {
		messages = append(messages, types.Message{Role: "system", Content: stateContext})
	}
	messages = append(messages, n.dialogue.Recent(contextWindow)...)
	messages = append(messages, types.Message{Role: "user", Content: input, Sender: sender})

	genCtx, cancel := context.WithTimeout(ctx, n.genTimeout)
	defer cancel()

	stream, err := n.llm.Response(genCtx, n.sessionID, messages)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	n.display.Print("\n")
	n.display.dm.Print("[DM] ")
	for {
		select {
		case chunk, ok := <-stream:
			if !ok {
				n.display.Print("\n\n")
				text := strings.TrimSpace(sb.String())
				if text == "" {
					return "", fmt.Errorf("%w: empty narration", types.ErrServiceUnavailable)
				}
				n.dialogue.Put(types.Message{Role: "user", Content: input, Sender: sender})
				n.dialogue.Put(types.Message{Role: "assistant", Content: text, Sender: "DM"})
				return text, nil
			}
			sb.WriteString(chunk)
			n.display.dm.Print(chunk)
		case <-genCtx.Done():
			n.display.Print("\n")
			return "", fmt.Errorf("%w: narration timed out after %s", types.ErrServiceUnavailable, n.genTimeout)
		}
	}
}

// Speak queues text for playback without blocking the turn loop. When the
// queue is full the oldest pending line is dropped in favor of the new
// one.
func (n *Narrator) Speak(text string) {
	if n.tts == nil || text == "" {
		return
	}
	for {
		select {
		case n.speech <- text:
			return
		default:
			select {
			case stale := <-n.speech:
				n.logger.Warn("speech queue full, dropping pending line (%d chars)", len(stale))
			default:
			}
		}
	}
}

// RunSpeaker drains the speech queue until ctx is cancelled. Synthesis or
// playback failures are logged and the worker moves on.
func (n *Narrator) RunSpeaker(ctx context.Context) error {
	if n.tts == nil {
		<-ctx.Done()
		return nil
	}
	defer func() {
		if err := n.tts.Cleanup(); err != nil {
			n.logger.Warn("speech cleanup failed: %v", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case text := <-n.speech:
			n.playOne(text)
		}
	}
}

func (n *Narrator) playOne(text string) {
	clean := utils.CleanForSpeech(text)
	if clean == "" {
		return
	}
	audioPath, err := n.tts.ToTTS(clean)
	if err != nil {
		n.logger.Error("speech synthesis failed: %v", err)
		return
	}
	if n.deleteAudio {
		defer os.Remove(audioPath)
	}

	if secs, derr := utils.MP3Duration(audioPath); derr == nil {
		n.logger.Debug("playing %s (%.1fs)", audioPath, secs)
	}
	if err := utils.PlayAudio(n.player, audioPath); err != nil {
		n.logger.Error("audio playback failed: %v", err)
	}
}
