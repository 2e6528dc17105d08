package chat

import (
	"github.com/bytedance/sonic"

	"dndmaster-go/src/core/types"
	"dndmaster-go/src/core/utils"
)

type Message = types.Message

// DialogueManager holds the running conversation between the party and the
// DM. The turn loop owns it exclusively.
type DialogueManager struct {
	logger   *utils.Logger
	dialogue []Message
}

// NewDialogueManager creates an empty dialogue.
func NewDialogueManager(logger *utils.Logger) *DialogueManager {
	return &DialogueManager{
		logger:   logger,
		dialogue: make([]Message, 0),
	}
}

// Put appends a message to the dialogue.
func (dm *DialogueManager) Put(message Message) {
	dm.dialogue = append(dm.dialogue, message)
}

// All returns the complete dialogue history.
func (dm *DialogueManager) All() []Message {
	return dm.dialogue
}

// Recent returns the last n messages, fewer if the dialogue is shorter.
func (dm *DialogueManager) Recent(n int) []Message {
	if n <= 0 || len(dm.dialogue) == 0 {
		return nil
	}
	if len(dm.dialogue) <= n {
		return dm.dialogue
	}
	return dm.dialogue[len(dm.dialogue)-n:]
}

// Len returns the number of messages recorded so far.
func (dm *DialogueManager) Len() int {
	return len(dm.dialogue)
}

// ToJSON serializes the dialogue for export or persistence.
func (dm *DialogueManager) ToJSON() (string, error) {
	bytes, err := sonic.Marshal(dm.dialogue)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// LoadFromJSON restores a dialogue serialized by ToJSON.
func (dm *DialogueManager) LoadFromJSON(jsonStr string) error {
	return sonic.Unmarshal([]byte(jsonStr), &dm.dialogue)
}
