// Package store persists session transcripts. Persistence is optional:
// a nil *TranscriptStore is valid and every method on it is a no-op, so
// the game runs the same with or without a database.
package store

import (
	"fmt"
	"time"

	"dndmaster-go/src/models"

	"gorm.io/gorm"
)

// TranscriptStore writes session records and transcript entries.
type TranscriptStore struct {
	db *gorm.DB
}

// NewTranscriptStore migrates the schema and returns the store.
func NewTranscriptStore(db *gorm.DB) (*TranscriptStore, error) {
	if err := db.AutoMigrate(&models.SessionRecord{}, &models.TranscriptEntry{}); err != nil {
		return nil, fmt.Errorf("migrate transcript schema: %v", err)
	}
	return &TranscriptStore{db: db}, nil
}

// BeginSession records the session start.
func (s *TranscriptStore) BeginSession(id, model string) error {
	if s == nil {
		return nil
	}
	record := models.SessionRecord{
		ID:        id,
		Model:     model,
		StartedAt: time.Now(),
	}
	return s.db.Create(&record).Error
}

// Append stores one transcript line.
func (s *TranscriptStore) Append(sessionID, sender, kind, content string) error {
	if s == nil {
		return nil
	}
	entry := models.TranscriptEntry{
		SessionID: sessionID,
		Sender:    sender,
		Kind:      kind,
		Content:   content,
	}
	return s.db.Create(&entry).Error
}

// EndSession stamps the session end time and saves the final dialogue
// history as JSON.
func (s *TranscriptStore) EndSession(id, dialogueJSON string) error {
	if s == nil {
		return nil
	}
	now := time.Now()
	return s.db.Model(&models.SessionRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"ended_at": &now,
			"dialogue": dialogueJSON,
		}).Error
}

// Dialogue returns the JSON dialogue history saved for one session.
func (s *TranscriptStore) Dialogue(sessionID string) (string, error) {
	if s == nil {
		return "", nil
	}
	var record models.SessionRecord
	if err := s.db.Select("dialogue").First(&record, "id = ?", sessionID).Error; err != nil {
		return "", err
	}
	return record.Dialogue, nil
}

// Entries returns the transcript of one session in order.
func (s *TranscriptStore) Entries(sessionID string) ([]models.TranscriptEntry, error) {
	if s == nil {
		return nil, nil
	}
	var entries []models.TranscriptEntry
	err := s.db.Where("session_id = ?", sessionID).
		Order("id asc").
		Find(&entries).Error
	return entries, err
}
