package edge

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dndmaster-go/src/core/providers/tts"

	"github.com/wujunwei928/edge-tts-go/edge_tts"
)

// Provider synthesizes speech through the free Edge TTS service.
type Provider struct {
	*tts.BaseProvider
}

// NewProvider creates an Edge TTS provider.
func NewProvider(config *tts.Config, deleteFile bool) (*Provider, error) {
	base := tts.NewBaseProvider(config, deleteFile)
	return &Provider{
		BaseProvider: base,
	}, nil
}

// ToTTS synthesizes text to an mp3 file and returns its path.
func (p *Provider) ToTTS(text string) (string, error) {
	voice := p.BaseProvider.Config().Voice
	if voice == "" {
		voice = "en-GB-RyanNeural"
	}

	outputDir := p.BaseProvider.Config().OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory %q: %v", outputDir, err)
	}
	tempFile := filepath.Join(outputDir, fmt.Sprintf("edge_tts_%d.mp3", time.Now().UnixNano()))

	connOptions := []edge_tts.CommunicateOption{
		edge_tts.SetVoice(voice),
	}

	conn, err := edge_tts.NewCommunicate(text, connOptions...)
	if err != nil {
		return "", fmt.Errorf("create edge-tts communicate: %v", err)
	}

	audioData, err := conn.Stream()
	if err != nil {
		return "", fmt.Errorf("edge-tts audio stream: %v", err)
	}

	if err := os.WriteFile(tempFile, audioData, 0644); err != nil {
		return "", fmt.Errorf("write audio file %q: %v", tempFile, err)
	}

	return tempFile, nil
}

func init() {
	tts.Register("edge", func(config *tts.Config, deleteFile bool) (tts.Provider, error) {
		return NewProvider(config, deleteFile)
	})
}
