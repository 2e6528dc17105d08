package game

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"dndmaster-go/src/core/providers"
	"dndmaster-go/src/core/types"
	"dndmaster-go/src/core/utils"
)

// InputGateway reads player turns, typed or spoken. Spoken input records
// through an external command and hands the capture file to the STT
// provider; on transcription failure the turn falls back to the keyboard.
type InputGateway struct {
	reader    *bufio.Reader
	display   *Display
	stt       providers.STTProvider
	recordCmd string
	logger    *utils.TaggedLogger
}

// NewInputGateway wires the gateway. stt may be nil, in which case every
// turn is typed.
func NewInputGateway(in io.Reader, display *Display, stt providers.STTProvider, recordCmd string, logger *utils.Logger) *InputGateway {
	return &InputGateway{
		reader:    bufio.NewReader(in),
		display:   display,
		stt:       stt,
		recordCmd: recordCmd,
		logger:    logger.WithTag("input"),
	}
}

// ReadTyped prints the prompt and returns one trimmed line.
func (g *InputGateway) ReadTyped(prompt string) (string, error) {
	g.display.Print("%s", prompt)
	line, err := g.reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// ReadTurn collects one action for the named player. When speech is
// available the player picks typed or spoken each turn.
func (g *InputGateway) ReadTurn(ctx context.Context, playerName string) (string, error) {
	if g.stt == nil {
		return g.ReadTyped(fmt.Sprintf("\n[%s] > ", playerName))
	}

	choice, err := g.ReadTyped(fmt.Sprintf("\n[%s] (1) write or (2) speak? ", playerName))
	if err != nil {
		return "", err
	}
	if choice != "2" {
		return g.ReadTyped(fmt.Sprintf("[%s] > ", playerName))
	}

	text, err := g.ReadSpoken(ctx)
	if err != nil {
		if errors.Is(err, types.ErrTranscription) {
			g.display.Error("Could not understand the recording, please type instead.")
			g.logger.Warn("transcription failed, falling back to keyboard: %v", err)
			return g.ReadTyped(fmt.Sprintf("[%s] > ", playerName))
		}
		return "", err
	}
	g.display.System("You said: %s", text)
	return text, nil
}

// ReadSpoken records until the player presses ENTER, then transcribes the
// capture. Transcription problems come back wrapped in ErrTranscription.
func (g *InputGateway) ReadSpoken(ctx context.Context) (string, error) {
	if g.recordCmd == "" {
		return "", fmt.Errorf("%w: no record command configured", types.ErrTranscription)
	}

	audioPath := filepath.Join(os.TempDir(), "dndmaster_turn.wav")
	defer os.Remove(audioPath)

	if err := g.record(audioPath); err != nil {
		return "", fmt.Errorf("%w: recording failed: %v", types.ErrTranscription, err)
	}

	text, err := g.stt.Transcribe(ctx, audioPath)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", fmt.Errorf("%w: empty transcription", types.ErrTranscription)
	}
	return text, nil
}

// record runs the external capture command with the output path appended
// and stops it with SIGINT when the player presses ENTER.
func (g *InputGateway) record(audioPath string) error {
	fields := strings.Fields(g.recordCmd)
	args := append(fields[1:], audioPath)
	cmd := exec.Command(fields[0], args...)
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return err
	}

	g.display.System("Recording... press ENTER to stop.")
	if _, err := g.reader.ReadString('\n'); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		return err
	}

	if err := cmd.Process.Signal(os.Interrupt); err != nil {
		_ = cmd.Process.Kill()
	}
	// Recorders exit non-zero on SIGINT, the capture file is still valid.
	_ = cmd.Wait()

	if fi, err := os.Stat(audioPath); err != nil || fi.Size() == 0 {
		return fmt.Errorf("no audio captured at %s", audioPath)
	}
	return nil
}
