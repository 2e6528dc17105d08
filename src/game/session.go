package game

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/core/chat"
	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/types"
	"dndmaster-go/src/core/utils"
	"dndmaster-go/src/game/party"
	"dndmaster-go/src/store"
)

// State names what the turn loop is doing right now.
type State int

const (
	StateAwaitingInput State = iota
	StateDispatchingCommand
	StateGeneratingNarration
	StateDone
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateDispatchingCommand:
		return "dispatching_command"
	case StateGeneratingNarration:
		return "generating_narration"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Session owns one game: the party ledger, the dialogue history, the
// narrator and the turn loop. All mutation happens on the loop goroutine;
// other goroutines observe through the StatusBoard.
type Session struct {
	id      string
	state   State
	started time.Time
	turns   int

	config   *configs.Config
	logger   *utils.TaggedLogger
	display  *Display
	party    *party.Party
	dialogue *chat.DialogueManager
	narrator *Narrator
	input    *InputGateway
	board    *StatusBoard
	store    *store.TranscriptStore

	llmType   string
	llmConfig *llm.Config
}

// SessionDeps bundles the collaborators the loop needs.
type SessionDeps struct {
	Config    *configs.Config
	Logger    *utils.Logger
	Display   *Display
	Party     *party.Party
	Dialogue  *chat.DialogueManager
	Narrator  *Narrator
	Input     *InputGateway
	Board     *StatusBoard
	Store     *store.TranscriptStore
	LLMType   string
	LLMConfig *llm.Config
}

// NewSession builds a session in the awaiting-input state.
func NewSession(id string, deps SessionDeps) *Session {
	return &Session{
		id:        id,
		state:     StateAwaitingInput,
		started:   time.Now(),
		config:    deps.Config,
		logger:    deps.Logger.WithTag("session"),
		display:   deps.Display,
		party:     deps.Party,
		dialogue:  deps.Dialogue,
		narrator:  deps.Narrator,
		input:     deps.Input,
		board:     deps.Board,
		store:     deps.Store,
		llmType:   deps.LLMType,
		llmConfig: deps.LLMConfig,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Run drives the turn loop until /quit or ctx cancellation. Command and
// narration failures are reported at the table and never end the game.
func (s *Session) Run(ctx context.Context) error {
	s.display.Header("DUNGEONS & DRAGONS - AI DUNGEON MASTER")
	s.display.Commands()
	players, active := s.party.Snapshot()
	s.display.PartyStatus(players, active)
	s.publish()

	if err := s.store.BeginSession(s.id, s.llmConfig.ModelName); err != nil {
		s.logger.Warn("transcript begin failed: %v", err)
	}
	s.openingScene(ctx)

	for s.state != StateDone {
		select {
		case <-ctx.Done():
			s.finish()
			return nil
		default:
		}

		s.setState(StateAwaitingInput)
		current := s.party.Active()
		line, err := s.input.ReadTurn(ctx, current.Name)
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.display.System("\nFarewell, adventurers!")
				s.setState(StateDone)
				break
			}
			s.finish()
			return err
		}
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			s.setState(StateDispatchingCommand)
			if err := s.dispatch(ctx, line); err != nil {
				s.display.Error("%v", err)
				s.logger.Warn("command %q failed: %v", line, err)
			}
		} else {
			s.setState(StateGeneratingNarration)
			s.narrate(ctx, current.Name, line)
		}
		s.turns++
		s.publish()
	}

	s.finish()
	return nil
}

// openingScene asks the narrator to set the stage. A silent narrator just
// means the players start cold.
func (s *Session) openingScene(ctx context.Context) {
	s.setState(StateGeneratingNarration)
	text, err := s.narrator.Generate(ctx, s.stateContext(),
		"System", "Begin the adventure with a brief, atmospheric opening scene. Introduce the party's current situation in 2-4 sentences.")
	if err != nil {
		s.display.Error("The narrator is silent: %v", err)
		return
	}
	s.record("DM", "dm", text)
	s.narrator.Speak(text)
}

// narrate runs one story exchange. Service failures leave party, history
// and turn order untouched.
func (s *Session) narrate(ctx context.Context, sender, input string) {
	text, err := s.narrator.Generate(ctx, s.stateContext(), sender, input)
	if err != nil {
		if errors.Is(err, types.ErrServiceUnavailable) {
			s.display.Error("The narrator is unreachable, try /reconnect. (%v)", err)
		} else {
			s.display.Error("Narration failed: %v", err)
		}
		return
	}
	s.record(sender, "player", input)
	s.record("DM", "dm", text)
	s.narrator.Speak(text)
}

// stateContext renders the ledger for the model so narration respects HP
// and turn order.
func (s *Session) stateContext() string {
	players, active := s.party.Snapshot()
	var sb strings.Builder
	sb.WriteString("GAME STATE:\nPARTY:\n")
	for i, p := range players {
		marker := "  "
		if i == active {
			marker = "→ "
		}
		fmt.Fprintf(&sb, "%s%s\n", marker, p)
	}
	fmt.Fprintf(&sb, "CURRENT TURN: %s\n", players[active].Name)
	return sb.String()
}

func (s *Session) setState(state State) {
	s.state = state
	s.publish()
}

// publish pushes the latest snapshot to the status board.
func (s *Session) publish() {
	players, active := s.party.Snapshot()
	s.board.Publish(SessionInfo{
		SessionID: s.id,
		Model:     s.llmConfig.ModelName,
		State:     s.state.String(),
		Turns:     s.turns,
		StartedAt: s.started,
	}, players, active)
}

// record appends one transcript row, tolerating a disabled store.
func (s *Session) record(sender, kind, content string) {
	if err := s.store.Append(s.id, sender, kind, content); err != nil {
		s.logger.Warn("transcript append failed: %v", err)
	}
}

func (s *Session) finish() {
	s.setState(StateDone)

	dialogueJSON, err := s.dialogue.ToJSON()
	if err != nil {
		s.logger.Warn("dialogue serialization failed: %v", err)
	}
	if err := s.store.EndSession(s.id, dialogueJSON); err != nil {
		s.logger.Warn("transcript end failed: %v", err)
	}
	s.logger.Info("session %s ended after %d turns", s.id, s.turns)
}
