// Package piper implements the TTS Synthesizer against a Piper server speaking
// the Wyoming protocol over TCP.
//
// Piper runs locally (the linuxserver/piper image listens on port 10200), so
// meditations can be rendered without any cloud credentials. Every segment
// opens its own connection, sends one synthesize event and collects the
// audio-chunk payloads until audio-stop.
package piper

import (
	"bufio"
	"bytes"
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net"
	"strings"
	"time"

	"github.com/nadzzz/soundofsilence/internal/config"
	"github.com/nadzzz/soundofsilence/internal/tts"
)

// DefaultVoices maps ISO-639-1 language codes to Piper voice models.
var DefaultVoices = map[string]string{
	"es": "es_ES-davefx-medium",
	"en": "en_US-lessac-medium",
	"pt": "pt_BR-faber-medium",
	"fr": "fr_FR-siwis-medium",
	"it": "it_IT-paola-medium",
	"de": "de_DE-thorsten-medium",
}

const dialTimeout = 10 * time.Second

// Synthesizer implements tts.Synthesizer for Piper.
type Synthesizer struct {
	fallback string            // endpoint used when a language has no route
	routes   map[string]string // language -> endpoint
	voices   map[string]string // language -> voice model
	language string
	speaker  string
	timeout  time.Duration
}

// New creates a Piper synthesizer from config. Configured voices override
// DefaultVoices per language.
func New(cfg config.PiperConfig) *Synthesizer {
	voices := maps.Clone(DefaultVoices)
	maps.Copy(voices, cfg.Voices)

	routes := make(map[string]string, len(cfg.Endpoints))
	for lang, ep := range cfg.Endpoints {
		routes[lang] = hostPort(ep)
	}

	return &Synthesizer{
		fallback: hostPort(cfg.Endpoint),
		routes:   routes,
		voices:   voices,
		language: cmp.Or(cfg.Language, "es"),
		speaker:  cfg.Speaker,
		timeout:  cmp.Or(cfg.Timeout, 30*time.Second),
	}
}

// hostPort accepts the URL-ish forms people paste into config.
func hostPort(ep string) string {
	ep = strings.TrimSpace(ep)
	for _, scheme := range []string{"tcp://", "http://"} {
		ep = strings.TrimPrefix(ep, scheme)
	}
	return strings.TrimSuffix(ep, "/")
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "piper" }

// DefaultOpts selects the configured language.
func (s *Synthesizer) DefaultOpts() tts.SynthesizeOpts {
	return tts.SynthesizeOpts{Language: s.language}
}

// Route returns the endpoint and voice used for a language and an optional
// explicit voice.
func (s *Synthesizer) Route(language, voice string) (endpoint, model string) {
	language = cmp.Or(language, s.language)
	endpoint = cmp.Or(s.routes[language], s.fallback)
	model = cmp.Or(voice, s.voices[language], s.voices["es"])
	return endpoint, model
}

// Synthesize renders text and returns mono or interleaved s16le PCM.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("piper: text is required")
	}

	language := cmp.Or(opts.Language, s.language)
	endpoint, voice := s.Route(language, opts.Voice)
	if endpoint == "" {
		return nil, fmt.Errorf("no piper endpoint for language %q", language)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	slog.Debug("piper synthesize", "text_length", len(text), "voice", voice, "endpoint", endpoint)

	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", endpoint)
	if err != nil {
		return nil, fmt.Errorf("connecting to piper at %s: %w", endpoint, err)
	}
	defer conn.Close()

	deadline, _ := ctx.Deadline()
	_ = conn.SetDeadline(deadline)
	stop := context.AfterFunc(ctx, func() {
		_ = conn.SetDeadline(time.Now())
	})
	defer stop()

	req := synthesizeData{
		Text:  text,
		Voice: voiceData{Name: voice, Language: language, Speaker: s.speaker},
	}
	if err := writeEvent(conn, eventSynthesize, req, nil); err != nil {
		return nil, interrupted(ctx, fmt.Errorf("sending synthesize event: %w", err))
	}

	pcm, format, err := collect(bufio.NewReader(conn))
	if err != nil {
		return nil, interrupted(ctx, err)
	}

	slog.Debug("piper audio received", "pcm_bytes", len(pcm), "rate", format.Rate, "channels", format.Channels)
	return &tts.SynthesizeResult{
		Audio:       pcm,
		ContentType: tts.ContentTypePCM16,
		SampleRate:  format.Rate,
		Channels:    format.Channels,
	}, nil
}

// interrupted prefers the context error over the I/O error it caused.
func interrupted(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}

// collect reads events until audio-stop and returns whole frames of PCM.
func collect(r *bufio.Reader) ([]byte, audioFormat, error) {
	var (
		pcm    bytes.Buffer
		format audioFormat
		known  bool
	)
	for {
		evt, err := readEvent(r)
		if err != nil {
			return nil, format, fmt.Errorf("reading piper event: %w", err)
		}

		switch evt.Type {
		case eventAudioStart:
			if err := evt.decode(&format); err != nil {
				return nil, format, err
			}
			if err := format.validate(); err != nil {
				return nil, format, fmt.Errorf("piper audio-start: %w", err)
			}
			known = true

		case eventAudioChunk:
			var chunk audioFormat
			if err := evt.decode(&chunk); err != nil {
				return nil, format, err
			}
			if !known {
				if err := chunk.validate(); err != nil {
					return nil, format, fmt.Errorf("piper audio-chunk: %w", err)
				}
				format, known = chunk, true
			} else if chunk != (audioFormat{}) && chunk != format {
				return nil, format, fmt.Errorf("piper changed format mid-stream: %+v then %+v", format, chunk)
			}
			pcm.Write(evt.Payload)

		case eventAudioStop:
			if !known {
				return nil, format, errors.New("piper returned no audio")
			}
			frame := format.Width * format.Channels
			out := pcm.Bytes()
			return out[:len(out)-len(out)%frame], format, nil

		case eventError:
			var e errorData
			_ = evt.decode(&e)
			return nil, format, fmt.Errorf("piper error: %s", cmp.Or(e.Text, e.Code, "unknown error"))

		default:
			slog.Debug("piper event ignored", "type", evt.Type)
		}
	}
}

// Close is a no-op; connections are per-segment.
func (s *Synthesizer) Close() error { return nil }
