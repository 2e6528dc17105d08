package models

import "time"

// SessionRecord is one finished or running game session. Dialogue holds
// the JSON dialogue history, written when the session ends.
type SessionRecord struct {
	ID        string `gorm:"primaryKey"`
	Model     string
	Dialogue  string `gorm:"type:text"`
	StartedAt time.Time
	EndedAt   *time.Time
}

// TranscriptEntry is one line of the session transcript: a player action,
// a DM narration, or a system notice (dice rolls, HP changes).
type TranscriptEntry struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index;not null"`
	Sender    string
	Kind      string // player / dm / system
	Content   string `gorm:"type:text"`
	CreatedAt time.Time
}
