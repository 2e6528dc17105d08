package game

import (
	"sync"
	"time"

	"dndmaster-go/src/game/party"
)

// SessionInfo is the read-only summary the status API serves.
type SessionInfo struct {
	SessionID string    `json:"session_id"`
	Model     string    `json:"model"`
	State     string    `json:"state"`
	Turns     int       `json:"turns"`
	StartedAt time.Time `json:"started_at"`
}

// StatusBoard publishes session snapshots to readers outside the turn
// loop. The loop writes, the HTTP handlers read.
type StatusBoard struct {
	mu      sync.RWMutex
	info    SessionInfo
	players []party.Player
	active  int
}

// NewStatusBoard creates an empty board.
func NewStatusBoard() *StatusBoard {
	return &StatusBoard{}
}

// Publish replaces the current snapshot.
func (b *StatusBoard) Publish(info SessionInfo, players []party.Player, active int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.info = info
	b.players = players
	b.active = active
}

// Session returns the latest session summary.
func (b *StatusBoard) Session() SessionInfo {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.info
}

// Party returns the latest ledger snapshot and the active index.
func (b *StatusBoard) Party() ([]party.Player, int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	players := make([]party.Player, len(b.players))
	copy(players, b.players)
	return players, b.active
}
