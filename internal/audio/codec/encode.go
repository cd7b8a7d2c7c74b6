package codec

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// Encoder turns a finished buffer into deliverable bytes.
type Encoder interface {
	// Name returns the output format identifier (e.g., "opus", "wav").
	Name() string

	// ContentType is the MIME type of the encoded bytes.
	ContentType() string

	// Extension is the file extension including the dot.
	Extension() string

	Encode(ctx context.Context, buf *audio.Buffer) ([]byte, error)
}

// NewEncoder returns the encoder registered under name.
func NewEncoder(name string, ff *FFmpeg, bitrate string) (Encoder, error) {
	switch strings.ToLower(name) {
	case "opus", "ogg":
		if ff == nil {
			return nil, errors.New("opus output requires ffmpeg, install it or use wav")
		}
		return &OpusEncoder{ffmpeg: ff, bitrate: bitrate}, nil
	case "wav":
		return WAVEncoder{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q", name)
	}
}

// WAVEncoder writes 16-bit PCM WAV.
type WAVEncoder struct{}

func (WAVEncoder) Name() string        { return "wav" }
func (WAVEncoder) ContentType() string { return "audio/wav" }
func (WAVEncoder) Extension() string   { return ".wav" }

func (WAVEncoder) Encode(_ context.Context, buf *audio.Buffer) ([]byte, error) {
	ws := &memWriteSeeker{}
	if err := EncodeWAV(ws, buf); err != nil {
		return nil, err
	}
	return ws.Bytes(), nil
}

// OpusEncoder writes Ogg/Opus through ffmpeg's libopus.
type OpusEncoder struct {
	ffmpeg  *FFmpeg
	bitrate string
}

func (e *OpusEncoder) Name() string        { return "opus" }
func (e *OpusEncoder) ContentType() string { return "audio/opus" }
func (e *OpusEncoder) Extension() string   { return ".opus" }

func (e *OpusEncoder) Encode(ctx context.Context, buf *audio.Buffer) ([]byte, error) {
	return e.ffmpeg.EncodeOpus(ctx, buf, e.bitrate)
}
