package chat

import (
	"testing"

	"github.com/stretchr/testify/require"

	"dndmaster-go/src/configs"
	"dndmaster-go/src/core/utils"
)

func newTestDialogue(t *testing.T) *DialogueManager {
	t.Helper()
	config := &configs.Config{}
	config.Log.LogDir = t.TempDir()
	config.Log.LogFile = "test.log"
	logger, err := utils.NewLogger(config)
	require.NoError(t, err)
	t.Cleanup(func() { logger.Close() })
	return NewDialogueManager(logger)
}

func TestRecentBoundsHistory(t *testing.T) {
	dm := newTestDialogue(t)
	dm.Put(Message{Role: "user", Sender: "Gandalf", Content: "one"})
	dm.Put(Message{Role: "assistant", Sender: "DM", Content: "two"})
	dm.Put(Message{Role: "user", Sender: "Gandalf", Content: "three"})

	require.Len(t, dm.Recent(2), 2)
	require.Equal(t, "two", dm.Recent(2)[0].Content)
	require.Len(t, dm.Recent(10), 3)
	require.Nil(t, dm.Recent(0))
	require.Equal(t, 3, dm.Len())
}

func TestDialogueJSONRoundTrip(t *testing.T) {
	dm := newTestDialogue(t)
	dm.Put(Message{Role: "user", Sender: "Gandalf", Content: "I enter the cave"})
	dm.Put(Message{Role: "assistant", Sender: "DM", Content: "The cave is dark."})

	jsonStr, err := dm.ToJSON()
	require.NoError(t, err)

	restored := newTestDialogue(t)
	require.NoError(t, restored.LoadFromJSON(jsonStr))
	require.Equal(t, dm.All(), restored.All())
}
