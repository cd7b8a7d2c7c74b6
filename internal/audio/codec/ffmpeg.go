package codec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// maxStderr bounds how much ffmpeg diagnostic output is kept in errors.
const maxStderr = 2048

// FFmpeg drives an ffmpeg binary over stdin/stdout pipes. No temporary files
// are written.
type FFmpeg struct {
	// Path is the ffmpeg executable, resolved through $PATH when not absolute.
	Path string
}

// NewFFmpeg returns an ffmpeg runner for the given binary.
func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

// Available reports whether the binary can be found.
func (f *FFmpeg) Available() bool {
	_, err := exec.LookPath(f.Path)
	return err == nil
}

// Decode converts any container ffmpeg understands into a buffer of the
// given format.
func (f *FFmpeg) Decode(ctx context.Context, data []byte, target audio.Format) (*audio.Buffer, error) {
	if err := target.Validate(); err != nil {
		return nil, &audio.MixingError{Op: "ffmpeg decode", Err: err}
	}
	out, err := f.run(ctx, data,
		"-hide_banner", "-loglevel", "error",
		"-i", "pipe:0",
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ar", strconv.Itoa(target.SampleRate),
		"-ac", strconv.Itoa(target.Channels),
		"pipe:1",
	)
	if err != nil {
		return nil, &audio.MixingError{Op: "ffmpeg decode", Err: err}
	}
	return DecodePCM16(out, target)
}

// EncodeOpus encodes buf as Opus in an Ogg container.
func (f *FFmpeg) EncodeOpus(ctx context.Context, buf *audio.Buffer, bitrate string) ([]byte, error) {
	format := buf.Format()
	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-f", "s16le",
		"-ar", strconv.Itoa(format.SampleRate),
		"-ac", strconv.Itoa(format.Channels),
		"-i", "pipe:0",
		"-c:a", "libopus",
	}
	if bitrate != "" {
		args = append(args, "-b:a", bitrate)
	}
	// libopus only accepts 48k and its integer divisors.
	args = append(args, "-ar", "48000", "-f", "ogg", "pipe:1")

	out, err := f.run(ctx, EncodePCM16(buf), args...)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg opus encode: %w", err)
	}
	return out, nil
}

func (f *FFmpeg) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, f.Path, args...)
	cmd.Stdin = bytes.NewReader(stdin)
	var stdout bytes.Buffer
	var stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxStderr {
			msg = msg[len(msg)-maxStderr:]
		}
		if msg != "" {
			return nil, fmt.Errorf("%s: %w: %s", f.Path, err, msg)
		}
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return stdout.Bytes(), nil
}
