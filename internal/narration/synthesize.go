// Package narration turns parsed script instructions into one continuous
// narration buffer: every chunk is synthesized (concurrently, through a TTS
// backend), decoded to the narration format, and then stitched together in
// script order with generated silence for each pause.
package narration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/audio/codec"
	"github.com/nadzzz/soundofsilence/internal/script"
	"github.com/nadzzz/soundofsilence/internal/tts"
)

// Segment is one synthesized instruction.
type Segment struct {
	Instruction script.Instruction
	Speech      *audio.Buffer
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithConcurrency caps the number of in-flight TTS calls.
func WithConcurrency(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRetries allows n extra attempts per chunk, waiting backoff*attempt
// between them. Authentication failures and cancellation are never retried.
func WithRetries(n int, backoff time.Duration) Option {
	return func(s *Synthesizer) {
		s.retries = max(0, n)
		s.backoff = backoff
	}
}

// WithSynthesizeOpts sets the voice options passed to the backend.
func WithSynthesizeOpts(opts tts.SynthesizeOpts) Option {
	return func(s *Synthesizer) {
		s.opts = opts
	}
}

// WithDecoder sets the decoder used for container-wrapped TTS output.
func WithDecoder(d *codec.Decoder) Option {
	return func(s *Synthesizer) {
		s.decoder = d
	}
}

// Synthesizer maps script text to decoded speech buffers.
type Synthesizer struct {
	backend     tts.Synthesizer
	decoder     *codec.Decoder
	opts        tts.SynthesizeOpts
	format      audio.Format
	concurrency int
	retries     int
	backoff     time.Duration
}

// NewSynthesizer returns a synthesizer producing buffers in format.
func NewSynthesizer(backend tts.Synthesizer, format audio.Format, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		backend:     backend,
		decoder:     &codec.Decoder{},
		format:      format,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Format returns the layout of every buffer this synthesizer produces.
func (s *Synthesizer) Format() audio.Format { return s.format }

// Backend returns the underlying TTS backend.
func (s *Synthesizer) Backend() tts.Synthesizer { return s.backend }

// WithVoice returns a copy of s that requests voice instead of the
// configured one.
func (s *Synthesizer) WithVoice(voice string) *Synthesizer {
	cp := *s
	cp.opts.Voice = voice
	return &cp
}

// SynthesizeAll synthesizes every instruction. Calls run concurrently but the
// returned segments are always in script order. The first failure cancels
// the remaining calls and no partial result is returned.
func (s *Synthesizer) SynthesizeAll(ctx context.Context, instructions []script.Instruction) ([]Segment, error) {
	segments := make([]Segment, len(instructions))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, in := range instructions {
		g.Go(func() error {
			speech, err := s.Synthesize(gctx, in.Text)
			if err != nil {
				return err
			}
			// Each goroutine owns exactly one slot, so completion order is irrelevant.
			segments[i] = Segment{Instruction: in, Speech: speech}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return segments, nil
}

// Synthesize renders a single chunk of text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string) (*audio.Buffer, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			wait := s.backoff * time.Duration(attempt)
			slog.Warn("retrying synthesis", "backend", s.backend.Name(), "attempt", attempt, "wait", wait, "error", lastErr)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		start := time.Now()
		buf, err := s.synthesizeOnce(ctx, text)
		if err == nil {
			slog.Debug("chunk synthesized", "backend", s.backend.Name(), "text_length", len(text),
				"speech", buf.Duration(), "took", time.Since(start))
			return buf, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		lastErr = err
		if errors.Is(err, tts.ErrAuthentication) {
			break
		}
	}
	return nil, &tts.SynthesisError{Backend: s.backend.Name(), Text: text, Err: lastErr}
}

func (s *Synthesizer) synthesizeOnce(ctx context.Context, text string) (*audio.Buffer, error) {
	res, err := s.backend.Synthesize(ctx, text, s.opts)
	if err != nil {
		return nil, err
	}

	if res.ContentType == tts.ContentTypePCM16 {
		raw, err := codec.DecodePCM16(res.Audio, audio.Format{SampleRate: res.SampleRate, Channels: res.Channels})
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", res.ContentType, err)
		}
		return codec.Align(raw, s.format)
	}

	buf, err := s.decoder.Decode(ctx, res.Audio, s.format)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", res.ContentType, err)
	}
	return buf, nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
