package game

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"dndmaster-go/src/core/types"
	"dndmaster-go/src/game/dice"
	"dndmaster-go/src/game/party"
	"dndmaster-go/src/store"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func TestDispatchUnknownCommand(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")
	before, beforeActive := s.party.Snapshot()

	err := s.dispatch(context.Background(), "/dance")
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.NotEqual(t, StateDone, s.state)

	after, afterActive := s.party.Snapshot()
	require.Equal(t, before, after)
	require.Equal(t, beforeActive, afterActive)
}

func TestDispatchQuitEndsSession(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")
	require.NoError(t, s.dispatch(context.Background(), "/quit"))
	require.Equal(t, StateDone, s.state)
}

func TestRollCommand(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")

	require.NoError(t, s.dispatch(context.Background(), "/roll 2d6+3"))

	err := s.dispatch(context.Background(), "/roll abc")
	require.ErrorIs(t, err, dice.ErrInvalidExpression)

	err = s.dispatch(context.Background(), "/roll")
	require.Error(t, err)
}

func TestHPCommand(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")

	require.NoError(t, s.dispatch(context.Background(), "/hp Gandalf -5"))
	players, _ := s.party.Snapshot()
	require.Equal(t, 15, players[0].HP)

	err := s.dispatch(context.Background(), "/hp Nobody -5")
	require.ErrorIs(t, err, party.ErrUnknownPlayer)

	err = s.dispatch(context.Background(), "/hp Gandalf lots")
	require.Error(t, err)

	players, _ = s.party.Snapshot()
	require.Equal(t, 15, players[0].HP, "failed commands must not touch the ledger")
}

func TestTurnRotationCommands(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")

	require.NoError(t, s.dispatch(context.Background(), "/next"))
	require.Equal(t, "Aragorn", s.party.Active().Name)

	require.NoError(t, s.dispatch(context.Background(), "/prev"))
	require.Equal(t, "Gandalf", s.party.Active().Name)
}

func TestStatusAndHelpCommands(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")
	require.NoError(t, s.dispatch(context.Background(), "/status"))
	require.NoError(t, s.dispatch(context.Background(), "/help"))
}

func TestNarrateSuccessRecordsDialogue(t *testing.T) {
	model := &fakeLLM{chunks: []string{"The cave ", "breathes ", "cold air."}}
	s := newTestSession(t, model, "")

	s.narrate(context.Background(), "Gandalf", "I enter the cave")

	history := s.dialogue.All()
	require.Len(t, history, 2)
	require.Equal(t, "I enter the cave", history[0].Content)
	require.Equal(t, "Gandalf", history[0].Sender)
	require.Equal(t, "assistant", history[1].Role)
	require.Equal(t, "The cave breathes cold air.", history[1].Content)
}

func TestNarrateServiceDownLeavesStateAlone(t *testing.T) {
	model := &fakeLLM{openErr: errors.New("connection refused")}
	s := newTestSession(t, model, "")
	before, _ := s.party.Snapshot()

	s.narrate(context.Background(), "Gandalf", "I enter the cave")

	require.Zero(t, s.dialogue.Len(), "failed narration must not enter the history")
	after, _ := s.party.Snapshot()
	require.Equal(t, before, after)
	require.NotEqual(t, StateDone, s.state)
}

func TestNarrateTimeout(t *testing.T) {
	model := &fakeLLM{stall: true}
	s := newTestSession(t, model, "")

	s.narrate(context.Background(), "Gandalf", "I wait")

	require.Zero(t, s.dialogue.Len())
	require.NotEqual(t, StateDone, s.state)
}

func TestReconnectSurvivesUnreachableServer(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")
	s.llmType = "scripted"
	s.llmConfig.BaseURL = "http://127.0.0.1:1"

	err := s.dispatch(context.Background(), "/reconnect")
	require.ErrorIs(t, err, types.ErrServiceUnavailable)
	require.NotEqual(t, StateDone, s.state)
}

func TestReconnectSwapsProvider(t *testing.T) {
	old := &fakeLLM{}
	s := newTestSession(t, old, "")
	s.llmType = "scripted"
	s.llmConfig.BaseURL = "http://localhost:11434"

	require.NoError(t, s.dispatch(context.Background(), "/reconnect"))
	require.NotSame(t, old, s.narrator.llm)
}

func TestSettingsChangeTemperature(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "3\n1.2\n")

	require.NoError(t, s.dispatch(context.Background(), "/settings"))
	require.InDelta(t, 1.2, s.llmConfig.Temperature, 0.001)
}

func TestSettingsRejectsBadMaxTokens(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "4\n-3\n")
	before := s.llmConfig.MaxTokens

	err := s.dispatch(context.Background(), "/settings")
	require.Error(t, err)
	require.Equal(t, before, s.llmConfig.MaxTokens)
}

func TestSettingsBack(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "5\n")
	require.NoError(t, s.dispatch(context.Background(), "/settings"))
}

func TestRollEntersDialogue(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")

	require.NoError(t, s.dispatch(context.Background(), "/roll d20"))
	require.Equal(t, 1, s.dialogue.Len())
	require.Contains(t, s.dialogue.All()[0].Content, "Gandalf rolled d20")
}

func TestRunLoopUntilQuit(t *testing.T) {
	model := &fakeLLM{chunks: []string{"Welcome to the tavern."}}
	s := newTestSession(t, model, "/status\n/quit\n")

	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, StateDone, s.state)
	require.Equal(t, "done", s.board.Session().State)
}

func TestQuitPersistsDialogue(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "transcripts.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	transcripts, err := store.NewTranscriptStore(db)
	require.NoError(t, err)

	model := &fakeLLM{chunks: []string{"The cave is dark."}}
	s := newTestSession(t, model, "/roll d20\n/quit\n")
	s.store = transcripts

	require.NoError(t, s.Run(context.Background()))

	saved, err := transcripts.Dialogue(s.id)
	require.NoError(t, err)
	require.Contains(t, saved, "rolled d20")
	require.Contains(t, saved, "The cave is dark.")
}

func TestRunLoopEndsOnEOF(t *testing.T) {
	s := newTestSession(t, &fakeLLM{chunks: []string{"Hello."}}, "")
	require.NoError(t, s.Run(context.Background()))
	require.Equal(t, StateDone, s.state)
}

func TestStatusBoardPublish(t *testing.T) {
	s := newTestSession(t, &fakeLLM{}, "")
	s.publish()

	info := s.board.Session()
	require.Equal(t, "test-session", info.SessionID)
	require.Equal(t, "llama2", info.Model)

	players, active := s.board.Party()
	require.Len(t, players, 2)
	require.Equal(t, 0, active)
}
