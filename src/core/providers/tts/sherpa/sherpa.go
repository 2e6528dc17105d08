package sherpa

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"dndmaster-go/src/core/providers/tts"

	"github.com/gorilla/websocket"
)

// Provider synthesizes speech through a sherpa-onnx TTS websocket server.
type Provider struct {
	*tts.BaseProvider
	conn *websocket.Conn
}

// NewProvider dials the configured sherpa server.
func NewProvider(config *tts.Config, deleteFile bool) (*Provider, error) {
	base := tts.NewBaseProvider(config, deleteFile)

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	conn, _, err := dialer.DialContext(context.Background(), config.Cluster, nil)
	if err != nil {
		return nil, err
	}

	return &Provider{
		BaseProvider: base,
		conn:         conn,
	}, nil
}

// ToTTS sends text and writes the returned audio to a wav file.
func (p *Provider) ToTTS(text string) (string, error) {
	outputDir := p.BaseProvider.Config().OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory %q: %v", outputDir, err)
	}
	tempFile := filepath.Join(outputDir, fmt.Sprintf("sherpa_tts_%d.wav", time.Now().UnixNano()))

	if err := p.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return "", fmt.Errorf("sherpa-tts send text: %v", err)
	}
	_, audio, err := p.conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("sherpa-tts audio stream: %v", err)
	}

	if err := os.WriteFile(tempFile, audio, 0644); err != nil {
		return "", fmt.Errorf("write audio file %q: %v", tempFile, err)
	}

	return tempFile, nil
}

// Cleanup closes the server connection and removes temp files.
func (p *Provider) Cleanup() error {
	if p.conn != nil {
		_ = p.conn.Close()
	}
	return p.BaseProvider.Cleanup()
}

func init() {
	tts.Register("sherpa", func(config *tts.Config, deleteFile bool) (tts.Provider, error) {
		return NewProvider(config, deleteFile)
	})
}
