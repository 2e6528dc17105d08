package kyutai

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path"
	"time"

	"dndmaster-go/src/core/providers/stt"
	"dndmaster-go/src/core/types"

	"github.com/coder/websocket"
	"github.com/tinylib/msgp/msgp"
	"golang.org/x/sync/errgroup"
)

const (
	// SampleRate the server expects for streamed PCM.
	SampleRate = 24000
	// FrameSize is 80ms of audio per MessagePack frame.
	FrameSize = 1920
)

// Provider transcribes audio through a Kyutai (moshi) streaming STT server
// speaking MessagePack over websocket.
type Provider struct {
	*stt.BaseProvider
	endpoint string
	apiKey   string
}

func init() {
	stt.Register("kyutai", func(config *stt.Config) (stt.Provider, error) {
		return NewProvider(config)
	})
}

// NewProvider creates a Kyutai provider.
func NewProvider(config *stt.Config) (*Provider, error) {
	return &Provider{
		BaseProvider: stt.NewBaseProvider(config),
		apiKey:       config.APIKey,
	}, nil
}

// Initialize resolves the streaming endpoint URL.
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.BaseURL == "" {
		return fmt.Errorf("missing kyutai server URL")
	}

	endpoint, err := url.Parse(config.BaseURL)
	if err != nil {
		return fmt.Errorf("parse kyutai URL: %w", err)
	}
	endpoint.Path = path.Join(endpoint.Path, "/api/asr-streaming")
	parameters := endpoint.Query()
	parameters.Set("format", "PcmMessagePack")
	endpoint.RawQuery = parameters.Encode()
	p.endpoint = endpoint.String()
	return nil
}

// Cleanup releases nothing; connections are per call.
func (p *Provider) Cleanup() error {
	return nil
}

// Transcribe streams the recorded wav file to the server and joins the
// recognized words. One connection per utterance.
func (p *Provider) Transcribe(ctx context.Context, audioPath string) (string, error) {
	pcm, err := readWAV(audioPath)
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTranscription, err)
	}

	header := http.Header{}
	if p.apiKey != "" {
		header.Set("kyutai-api-key", p.apiKey)
	}
	conn, _, err := websocket.Dial(ctx, p.endpoint, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTranscription, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var text string
	workers, workersCtx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	workers.Go(func() error {
		return p.writePCM(workersCtx, conn, pcm, done)
	})
	workers.Go(func() error {
		var err error
		text, err = p.readWords(workersCtx, conn, done)
		return err
	})

	if err := workers.Wait(); err != nil {
		return "", fmt.Errorf("%w: %v", types.ErrTranscription, err)
	}

	return text, nil
}

// writePCM sends one second of leading silence, the utterance in 80ms
// frames, the end marker, and then keeps the stream fed with silence until
// the reader has seen the marker come back.
func (p *Provider) writePCM(ctx context.Context, conn *websocket.Conn, pcm []float32, done <-chan struct{}) error {
	silence := make([]float32, SampleRate)
	if err := sendAudio(ctx, conn, silence); err != nil {
		return err
	}

	for len(pcm) > 0 {
		frame := pcm
		if len(frame) > FrameSize {
			frame = frame[:FrameSize]
		} else {
			frame = append(frame, make([]float32, FrameSize-len(frame))...)
		}
		if err := sendAudio(ctx, conn, frame); err != nil {
			return err
		}
		if len(pcm) <= FrameSize {
			break
		}
		pcm = pcm[FrameSize:]
	}

	if err := sendMarker(ctx, conn); err != nil {
		return err
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := sendAudio(ctx, conn, silence); err != nil {
				return err
			}
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readWords collects Word messages until the end marker is echoed back.
func (p *Provider) readWords(ctx context.Context, conn *websocket.Conn, done chan<- struct{}) (string, error) {
	defer close(done)

	var text string
	for {
		msgType, payload, err := conn.Read(ctx)
		if err != nil {
			return "", err
		}
		if msgType != websocket.MessageBinary {
			return "", fmt.Errorf("unexpected websocket message type: %d", msgType)
		}

		kind, word, marker, err := decodeMessage(payload)
		if err != nil {
			return "", err
		}

		switch kind {
		case "Word":
			if text != "" {
				text += " "
			}
			text += word
		case "Marker":
			if marker == endMarkerID {
				return text, nil
			}
		default:
			// Ready, Step and EndWord messages carry no words.
		}
	}
}

const endMarkerID = 1

func sendAudio(ctx context.Context, conn *websocket.Conn, pcm []float32) error {
	var buf []byte
	buf = msgp.AppendMapHeader(buf, 2)
	buf = msgp.AppendString(buf, "type")
	buf = msgp.AppendString(buf, "Audio")
	buf = msgp.AppendString(buf, "pcm")
	buf = msgp.AppendArrayHeader(buf, uint32(len(pcm)))
	for _, sample := range pcm {
		buf = msgp.AppendFloat32(buf, sample)
	}
	return conn.Write(ctx, websocket.MessageBinary, buf)
}

func sendMarker(ctx context.Context, conn *websocket.Conn) error {
	var buf []byte
	buf = msgp.AppendMapHeader(buf, 2)
	buf = msgp.AppendString(buf, "type")
	buf = msgp.AppendString(buf, "Marker")
	buf = msgp.AppendString(buf, "id")
	buf = msgp.AppendInt64(buf, endMarkerID)
	return conn.Write(ctx, websocket.MessageBinary, buf)
}

// decodeMessage pulls the type, word text and marker ID out of a server
// MessagePack frame, skipping fields it does not care about.
func decodeMessage(payload []byte) (kind, word string, marker int64, err error) {
	size, remaining, err := msgp.ReadMapHeaderBytes(payload)
	if err != nil {
		return "", "", 0, fmt.Errorf("decode message pack: %w", err)
	}

	for i := uint32(0); i < size; i++ {
		var key string
		key, remaining, err = msgp.ReadStringBytes(remaining)
		if err != nil {
			return "", "", 0, fmt.Errorf("decode message pack key: %w", err)
		}

		switch key {
		case "type":
			kind, remaining, err = msgp.ReadStringBytes(remaining)
		case "text":
			word, remaining, err = msgp.ReadStringBytes(remaining)
		case "id":
			marker, remaining, err = msgp.ReadInt64Bytes(remaining)
		default:
			remaining, err = msgp.Skip(remaining)
		}
		if err != nil {
			return "", "", 0, fmt.Errorf("decode message pack field %q: %w", key, err)
		}
	}

	return kind, word, marker, nil
}

// readWAV loads a 16-bit PCM wav file and converts it to normalized
// float32 samples. The recorder is configured to capture mono 24kHz, the
// rate the server expects.
func readWAV(path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 44 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, errors.New("not a RIFF/WAVE file")
	}

	// Walk the chunks to find the data payload.
	offset := 12
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		body := offset + 8
		if chunkID == "data" {
			if body+chunkSize > len(data) {
				chunkSize = len(data) - body
			}
			return pcm16ToFloat32(data[body : body+chunkSize]), nil
		}
		offset = body + chunkSize
	}

	return nil, errors.New("wav file has no data chunk")
}

func pcm16ToFloat32(raw []byte) []float32 {
	samples := make([]float32, 0, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		sample := int16(raw[i]) | int16(raw[i+1])<<8
		samples = append(samples, float32(sample)/32768.0)
	}
	return samples
}
