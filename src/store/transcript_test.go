package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestStore(t *testing.T) *TranscriptStore {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "transcripts.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	s, err := NewTranscriptStore(db)
	require.NoError(t, err)
	return s
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.BeginSession("sess-1", "llama2"))
	require.NoError(t, s.Append("sess-1", "Gandalf", "player", "I enter the cave"))
	require.NoError(t, s.Append("sess-1", "DM", "dm", "The cave is dark."))
	require.NoError(t, s.Append("sess-1", "System", "system", "Gandalf rolled d20: 17"))

	dialogueJSON := `[{"role":"user","sender":"Gandalf","content":"I enter the cave"}]`
	require.NoError(t, s.EndSession("sess-1", dialogueJSON))

	entries, err := s.Entries("sess-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	require.Equal(t, "player", entries[0].Kind)
	require.Equal(t, "The cave is dark.", entries[1].Content)

	saved, err := s.Dialogue("sess-1")
	require.NoError(t, err)
	require.Equal(t, dialogueJSON, saved)
}

func TestDialogueUnknownSession(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Dialogue("nope")
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestEntriesScopedBySession(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.BeginSession("a", "llama2"))
	require.NoError(t, s.BeginSession("b", "llama2"))
	require.NoError(t, s.Append("a", "DM", "dm", "one"))
	require.NoError(t, s.Append("b", "DM", "dm", "two"))

	entries, err := s.Entries("b")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "two", entries[0].Content)
}

func TestNilStoreIsNoOp(t *testing.T) {
	var s *TranscriptStore

	require.NoError(t, s.BeginSession("x", "m"))
	require.NoError(t, s.Append("x", "DM", "dm", "text"))
	require.NoError(t, s.EndSession("x", "[]"))

	entries, err := s.Entries("x")
	require.NoError(t, err)
	require.Nil(t, entries)

	dialogue, err := s.Dialogue("x")
	require.NoError(t, err)
	require.Empty(t, dialogue)
}
