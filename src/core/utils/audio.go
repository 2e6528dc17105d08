package utils

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hajimehoshi/go-mp3"
)

// MP3Duration returns the playback length of an mp3 file in seconds.
func MP3Duration(path string) (float64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	decoder, err := mp3.NewDecoder(file)
	if err != nil {
		return 0, fmt.Errorf("decode mp3: %w", err)
	}

	// Length is the size of the decoded stream: 16-bit stereo samples.
	samples := decoder.Length() / 4
	return float64(samples) / float64(decoder.SampleRate()), nil
}

// playerCandidates are tried in order when no player command is configured.
var playerCandidates = []string{"mpv", "ffplay", "afplay", "mpg123"}

// playerArgs returns the flags that keep a player non-interactive.
func playerArgs(player, path string) []string {
	switch player {
	case "mpv":
		return []string{"--no-terminal", "--no-video", path}
	case "ffplay":
		return []string{"-nodisp", "-autoexit", "-loglevel", "quiet", path}
	default:
		return []string{path}
	}
}

// PlayAudio plays an audio file with the configured player command, or the
// first player found on PATH. It blocks until playback finishes.
func PlayAudio(player, path string) error {
	if player == "" {
		for _, candidate := range playerCandidates {
			if _, err := exec.LookPath(candidate); err == nil {
				player = candidate
				break
			}
		}
	}
	if player == "" {
		return fmt.Errorf("no audio player found (tried %v)", playerCandidates)
	}

	cmd := exec.Command(player, playerArgs(player, path)...)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("play audio with %s: %w", player, err)
	}
	return nil
}
