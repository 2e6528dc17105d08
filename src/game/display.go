package game

import (
	"fmt"
	"strings"

	"dndmaster-go/src/game/party"

	"github.com/fatih/color"
)

// Display renders the table view: party status, DM narration, system
// notices and errors, each with its own color so a glance tells who is
// talking.
type Display struct {
	dm     *color.Color
	system *color.Color
	errc   *color.Color
	header *color.Color
	marker *color.Color
}

// NewDisplay creates the terminal renderer.
func NewDisplay() *Display {
	return &Display{
		dm:     color.New(color.FgCyan),
		system: color.New(color.FgYellow),
		errc:   color.New(color.FgRed, color.Bold),
		header: color.New(color.FgMagenta, color.Bold),
		marker: color.New(color.FgGreen, color.Bold),
	}
}

// Header prints a boxed section title.
func (d *Display) Header(text string) {
	line := strings.Repeat("=", 72)
	d.header.Println(line)
	d.header.Printf("  %s\n", text)
	d.header.Println(line)
}

// Separator prints a thin rule.
func (d *Display) Separator() {
	fmt.Println(strings.Repeat("-", 72))
}

// System prints a neutral notice (dice results, turn changes).
func (d *Display) System(format string, args ...interface{}) {
	d.system.Printf(format+"\n", args...)
}

// Error prints a failure the player should see.
func (d *Display) Error(format string, args ...interface{}) {
	d.errc.Printf(format+"\n", args...)
}

// Print writes plain text.
func (d *Display) Print(format string, args ...interface{}) {
	fmt.Printf(format, args...)
}

// PartyStatus renders the ledger snapshot with the active player marked.
func (d *Display) PartyStatus(players []party.Player, active int) {
	d.System("--- PARTY STATUS ---")
	for i, player := range players {
		if i == active {
			d.marker.Printf("→ %s\n", player)
		} else {
			fmt.Printf("  %s\n", player)
		}
	}
}

// Commands prints the dispatch table help.
func (d *Display) Commands() {
	d.System("\nCOMMANDS:")
	fmt.Println("  /roll <dice>        - Roll dice (e.g., /roll d20, /roll 2d6+3)")
	fmt.Println("  /next               - Switch to next player")
	fmt.Println("  /prev               - Switch to previous player")
	fmt.Println("  /status             - Show party status")
	fmt.Println("  /hp <name> <amount> - Adjust HP (e.g., /hp Gandalf -5)")
	fmt.Println("  /settings           - Change narrator settings")
	fmt.Println("  /reconnect          - Reconnect to the narrator service")
	fmt.Println("  /quit               - Exit game")
	fmt.Println("  /help               - Show this help")
	fmt.Println()
}
