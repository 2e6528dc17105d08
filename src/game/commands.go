package game

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"dndmaster-go/src/core/providers/llm"
	"dndmaster-go/src/core/types"
	"dndmaster-go/src/game/dice"
)

// ErrUnknownCommand marks slash input that matches no command.
var ErrUnknownCommand = errors.New("unknown command")

// dispatch routes one slash command. Returned errors are table-level:
// the loop shows them and keeps going.
func (s *Session) dispatch(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]

	switch strings.ToLower(cmd) {
	case "/roll":
		if len(args) != 1 {
			return fmt.Errorf("usage: /roll <dice> (e.g., /roll 2d6+3)")
		}
		return s.cmdRoll(args[0])
	case "/next":
		p := s.party.Next()
		s.display.System("It is now %s's turn.", p.Name)
		return nil
	case "/prev":
		p := s.party.Prev()
		s.display.System("It is now %s's turn.", p.Name)
		return nil
	case "/status":
		players, active := s.party.Snapshot()
		s.display.PartyStatus(players, active)
		return nil
	case "/hp":
		if len(args) != 2 {
			return fmt.Errorf("usage: /hp <name> <amount> (e.g., /hp Gandalf -5)")
		}
		return s.cmdHP(args[0], args[1])
	case "/settings":
		return s.settingsMenu(ctx)
	case "/reconnect":
		return s.reconnect(ctx)
	case "/help":
		s.display.Commands()
		return nil
	case "/quit":
		s.display.System("\nFarewell, adventurers!")
		s.state = StateDone
		return nil
	default:
		return fmt.Errorf("%w: %s (try /help)", ErrUnknownCommand, cmd)
	}
}

func (s *Session) cmdRoll(expr string) error {
	result, err := dice.Roll(expr)
	if err != nil {
		return err
	}
	roller := s.party.Active().Name
	s.display.System("🎲 %s rolls %s", roller, result)

	// the narrator needs to see rolls to adjudicate them
	s.dialogue.Put(types.Message{
		Role:    "user",
		Sender:  roller,
		Content: fmt.Sprintf("%s rolled %s", roller, result),
	})
	s.record(roller, "system", fmt.Sprintf("rolled %s", result))
	return nil
}

func (s *Session) cmdHP(name, amount string) error {
	delta, err := strconv.Atoi(amount)
	if err != nil {
		return fmt.Errorf("amount must be a number, got %q", amount)
	}
	player, err := s.party.AdjustHP(name, delta)
	if err != nil {
		return err
	}
	s.display.System("%s", player)
	s.record("System", "system", fmt.Sprintf("%s HP adjusted by %+d, now %d/%d", player.Name, delta, player.HP, player.MaxHP))
	return nil
}

// reconnect rebuilds the model provider from the current settings and
// verifies it answers.
func (s *Session) reconnect(ctx context.Context) error {
	provider, err := llm.Create(s.llmType, s.llmConfig)
	if err != nil {
		return err
	}
	s.narrator.SetLLM(provider)
	models, err := s.narrator.CheckConnection(ctx)
	if err != nil {
		return err
	}
	s.display.System("Reconnected to %s (%d models available).", s.llmConfig.BaseURL, len(models))
	return nil
}

// settingsMenu edits the narrator settings. Model and URL changes rebuild
// the provider; temperature and token changes apply to the next request.
func (s *Session) settingsMenu(ctx context.Context) error {
	s.display.System("\n--- SETTINGS ---")
	s.display.Print("  1) Model      : %s\n", s.llmConfig.ModelName)
	s.display.Print("  2) Server URL : %s\n", s.llmConfig.BaseURL)
	s.display.Print("  3) Temperature: %.2f\n", s.llmConfig.Temperature)
	s.display.Print("  4) Max tokens : %d\n", s.llmConfig.MaxTokens)
	s.display.Print("  5) Back\n")

	choice, err := s.input.ReadTyped("Choose an option: ")
	if err != nil {
		return err
	}
	switch choice {
	case "1":
		return s.changeModel(ctx)
	case "2":
		return s.changeURL(ctx)
	case "3":
		return s.changeTemperature(ctx)
	case "4":
		return s.changeMaxTokens(ctx)
	case "5", "":
		return nil
	default:
		return fmt.Errorf("no such option: %s", choice)
	}
}

func (s *Session) changeTemperature(ctx context.Context) error {
	answer, err := s.input.ReadTyped(fmt.Sprintf("Temperature (0.0-2.0) [%.2f]: ", s.llmConfig.Temperature))
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}
	value, err := strconv.ParseFloat(answer, 64)
	if err != nil || value < 0 || value > 2 {
		return fmt.Errorf("temperature must be a number between 0.0 and 2.0")
	}
	s.llmConfig.Temperature = value
	s.display.System("Temperature set to %.2f.", value)
	return nil
}

func (s *Session) changeMaxTokens(ctx context.Context) error {
	answer, err := s.input.ReadTyped(fmt.Sprintf("Max tokens [%d]: ", s.llmConfig.MaxTokens))
	if err != nil {
		return err
	}
	if answer == "" {
		return nil
	}
	value, err := strconv.Atoi(answer)
	if err != nil || value <= 0 {
		return fmt.Errorf("max tokens must be a positive number")
	}
	s.llmConfig.MaxTokens = value
	s.display.System("Max tokens set to %d.", value)
	return nil
}

func (s *Session) changeModel(ctx context.Context) error {
	models, err := s.narrator.CheckConnection(ctx)
	if err != nil {
		return err
	}
	s.display.System("Available models:")
	for i, m := range models {
		s.display.Print("  %d) %s\n", i+1, m)
	}
	pick, err := s.input.ReadTyped("Model number: ")
	if err != nil {
		return err
	}
	idx, err := strconv.Atoi(pick)
	if err != nil || idx < 1 || idx > len(models) {
		return fmt.Errorf("pick a number between 1 and %d", len(models))
	}
	s.llmConfig.ModelName = models[idx-1]
	if err := s.reconnect(ctx); err != nil {
		return err
	}
	s.display.System("Model set to %s.", s.llmConfig.ModelName)
	return nil
}

func (s *Session) changeURL(ctx context.Context) error {
	url, err := s.input.ReadTyped(fmt.Sprintf("Server URL [%s]: ", s.llmConfig.BaseURL))
	if err != nil {
		return err
	}
	if url == "" {
		return nil
	}
	previous := s.llmConfig.BaseURL
	s.llmConfig.BaseURL = url
	if err := s.reconnect(ctx); err != nil {
		s.llmConfig.BaseURL = previous
		return err
	}
	s.display.System("Server URL set to %s.", url)
	return nil
}
