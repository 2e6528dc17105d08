package game

import (
	"context"
	"fmt"
	"strconv"

	"dndmaster-go/src/game/party"
)

const (
	maxPlayers   = 6
	defaultMaxHP = 20
)

// SetupParty interviews the table and returns the initiative ledger. The
// first player entered acts first.
func SetupParty(gw *InputGateway, display *Display) (*party.Party, error) {
	display.Header("PARTY SETUP")

	count := 0
	for count < 1 || count > maxPlayers {
		answer, err := gw.ReadTyped(fmt.Sprintf("How many players? (1-%d): ", maxPlayers))
		if err != nil {
			return nil, err
		}
		count, _ = strconv.Atoi(answer)
		if count < 1 || count > maxPlayers {
			display.Error("Enter a number between 1 and %d.", maxPlayers)
		}
	}

	p := party.New()
	for i := 1; i <= count; i++ {
		display.System("\nPlayer %d", i)

		name := ""
		for name == "" {
			answer, err := gw.ReadTyped("  Name: ")
			if err != nil {
				return nil, err
			}
			name = answer
			if name == "" {
				display.Error("A name is required.")
			}
		}

		class, err := gw.ReadTyped("  Class (default Adventurer): ")
		if err != nil {
			return nil, err
		}

		maxHP := defaultMaxHP
		answer, err := gw.ReadTyped(fmt.Sprintf("  Max HP (default %d): ", defaultMaxHP))
		if err != nil {
			return nil, err
		}
		if answer != "" {
			if hp, convErr := strconv.Atoi(answer); convErr == nil && hp > 0 {
				maxHP = hp
			} else {
				display.Error("Ignoring %q, using %d.", answer, defaultMaxHP)
			}
		}

		p.Add(name, class, maxHP)
	}
	return p, nil
}

// VerifyModel checks the narrator service and makes sure the configured
// model exists there. When it does not, the table picks one of the
// advertised models instead. Returns the model to use.
func VerifyModel(ctx context.Context, narrator *Narrator, gw *InputGateway, display *Display, configured string) (string, error) {
	models, err := narrator.CheckConnection(ctx)
	if err != nil {
		return "", err
	}
	for _, m := range models {
		if m == configured {
			display.System("Connected, model %s is ready.", configured)
			return configured, nil
		}
	}
	if len(models) == 0 {
		return "", fmt.Errorf("the service reports no models, pull one first (e.g., ollama pull %s)", configured)
	}

	display.Error("Model %q is not available.", configured)
	display.System("Available models:")
	for i, m := range models {
		display.Print("  %d) %s\n", i+1, m)
	}
	for {
		answer, err := gw.ReadTyped("Pick a model number: ")
		if err != nil {
			return "", err
		}
		idx, convErr := strconv.Atoi(answer)
		if convErr == nil && idx >= 1 && idx <= len(models) {
			return models[idx-1], nil
		}
		display.Error("Enter a number between 1 and %d.", len(models))
	}
}
