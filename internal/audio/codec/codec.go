// Package codec converts between encoded audio bytes and audio.Buffer.
//
// WAV is handled natively with go-audio/wav, MP3 with faiface/beep, raw
// 16-bit little-endian PCM (the shape most TTS providers stream) directly, and
// anything else through an ffmpeg subprocess when one is configured.
// Align brings a decoded buffer to the narration's sample rate and channel
// layout.
package codec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// Container identifies an encoded audio container sniffed from its header.
type Container string

const (
	ContainerWAV     Container = "wav"
	ContainerMP3     Container = "mp3"
	ContainerOgg     Container = "ogg"
	ContainerUnknown Container = "unknown"
)

// ErrUnsupported is returned when no decoder can handle the input.
var ErrUnsupported = errors.New("unsupported audio container")

// Sniff guesses the container from the leading bytes of data.
func Sniff(data []byte) Container {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ContainerWAV
	case len(data) >= 3 && bytes.Equal(data[0:3], []byte("ID3")):
		return ContainerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return ContainerMP3
	case len(data) >= 4 && bytes.Equal(data[0:4], []byte("OggS")):
		return ContainerOgg
	default:
		return ContainerUnknown
	}
}

// Decoder turns encoded bytes into buffers aligned to a target format.
type Decoder struct {
	// FFmpeg handles containers without a native decoder. Nil disables the fallback.
	FFmpeg *FFmpeg
}

// Decode decodes data and aligns the result to target.
func (d *Decoder) Decode(ctx context.Context, data []byte, target audio.Format) (*audio.Buffer, error) {
	if len(data) == 0 {
		return nil, &audio.MixingError{Op: "decode", Err: audio.ErrEmptyBuffer}
	}

	container := Sniff(data)
	var (
		buf *audio.Buffer
		err error
	)
	switch container {
	case ContainerWAV:
		buf, err = DecodeWAV(bytes.NewReader(data))
	case ContainerMP3:
		buf, err = DecodeMP3(bytes.NewReader(data))
	default:
		if d.FFmpeg == nil {
			return nil, &audio.MixingError{Op: "decode", Err: fmt.Errorf("%w: %s", ErrUnsupported, container)}
		}
		slog.Debug("decoding through ffmpeg", "container", container, "bytes", len(data))
		// ffmpeg resamples and remixes itself, so its output is already aligned.
		return d.FFmpeg.Decode(ctx, data, target)
	}
	if err != nil {
		if d.FFmpeg == nil {
			return nil, err
		}
		// Float or 8-bit WAV and odd MP3s still decode through ffmpeg.
		slog.Debug("native decode failed, retrying through ffmpeg", "container", container, "error", err)
		buf, ffErr := d.FFmpeg.Decode(ctx, data, target)
		if ffErr != nil {
			return nil, errors.Join(err, ffErr)
		}
		return buf, nil
	}

	slog.Debug("decoded audio", "container", container, "format", buf.Format().String(), "duration", buf.Duration())
	return Align(buf, target)
}
