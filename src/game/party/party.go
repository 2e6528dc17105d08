// Package party tracks the adventuring party: hit points, status and
// initiative order.
package party

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownPlayer indicates a name that matches nobody in the party.
var ErrUnknownPlayer = errors.New("unknown player")

// Status of a player character.
type Status string

const (
	StatusActive      Status = "Active"
	StatusUnconscious Status = "Unconscious"
)

// Player is one character sheet entry.
type Player struct {
	Name   string `json:"name"`
	Class  string `json:"class"`
	HP     int    `json:"hp"`
	MaxHP  int    `json:"max_hp"`
	Status Status `json:"status"`
}

func (p Player) String() string {
	return fmt.Sprintf("%s (%s): %d/%d HP - %s", p.Name, p.Class, p.HP, p.MaxHP, p.Status)
}

// Party is the ordered ledger of players plus the initiative pointer.
// Exactly one player is active at a time. The turn loop owns it; it is not
// safe for concurrent use.
type Party struct {
	players []Player
	active  int
}

// New returns an empty party.
func New() *Party {
	return &Party{}
}

// Add appends a player at the end of the initiative order. The first
// player added becomes the active one.
func (p *Party) Add(name, class string, maxHP int) {
	if class == "" {
		class = "Adventurer"
	}
	p.players = append(p.players, Player{
		Name:   name,
		Class:  class,
		HP:     maxHP,
		MaxHP:  maxHP,
		Status: StatusActive,
	})
}

// Size returns the number of players.
func (p *Party) Size() int {
	return len(p.players)
}

// Active returns the player whose turn it is.
func (p *Party) Active() Player {
	return p.players[p.active]
}

// Next advances the initiative pointer circularly and returns the new
// active player.
func (p *Party) Next() Player {
	p.active = (p.active + 1) % len(p.players)
	return p.players[p.active]
}

// Prev moves the initiative pointer back circularly and returns the new
// active player.
func (p *Party) Prev() Player {
	p.active = (p.active - 1 + len(p.players)) % len(p.players)
	return p.players[p.active]
}

// AdjustHP applies a delta to the named player's hit points, clamped to
// [0, MaxHP]. Dropping to 0 knocks the player unconscious; healing above 0
// brings them back. The lookup is case-insensitive. On ErrUnknownPlayer
// the ledger is unchanged.
func (p *Party) AdjustHP(name string, delta int) (Player, error) {
	idx := p.find(name)
	if idx < 0 {
		return Player{}, fmt.Errorf("%w: %s", ErrUnknownPlayer, name)
	}

	player := &p.players[idx]
	player.HP += delta
	if player.HP < 0 {
		player.HP = 0
	}
	if player.HP > player.MaxHP {
		player.HP = player.MaxHP
	}

	switch {
	case player.HP == 0:
		player.Status = StatusUnconscious
	case player.Status == StatusUnconscious && player.HP > 0:
		player.Status = StatusActive
	}

	return *player, nil
}

// Snapshot returns a copy of the players in initiative order along with
// the active index. Mutating the returned slice does not touch the ledger.
func (p *Party) Snapshot() ([]Player, int) {
	players := make([]Player, len(p.players))
	copy(players, p.players)
	return players, p.active
}

func (p *Party) find(name string) int {
	for i := range p.players {
		if strings.EqualFold(p.players[i].Name, name) {
			return i
		}
	}
	return -1
}
