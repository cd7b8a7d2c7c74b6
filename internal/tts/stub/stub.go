// Package stub implements a deterministic offline tts.Synthesizer.
//
// It renders a quiet sine tone whose length is proportional to the text, so
// the whole pipeline can run in CI or on a laptop without provider
// credentials while still producing audible, correctly timed segments.
package stub

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nadzzz/soundofsilence/internal/tts"
)

const (
	// PerRune is the synthetic speaking time per character.
	PerRune = 60 * time.Millisecond

	toneHz    = 220.0
	amplitude = 0.25
)

// Synthesizer produces tones instead of speech.
type Synthesizer struct {
	sampleRate int
	log        *slog.Logger
}

// New returns a stub synthesizer emitting mono PCM at sampleRate.
func New(sampleRate int, logger *slog.Logger) *Synthesizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Synthesizer{sampleRate: sampleRate, log: logger}
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "stub" }

// Synthesize returns a tone lasting PerRune for every character of text.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, _ tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("stub: text is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runes := utf8.RuneCountInString(text)
	frames := int(int64(runes) * int64(PerRune) * int64(s.sampleRate) / int64(time.Second))
	pcm := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		v := amplitude * math.Sin(2*math.Pi*toneHz*float64(i)/float64(s.sampleRate))
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(math.Round(v*math.MaxInt16))))
	}

	s.log.Debug("stub synthesis", "text_length", len(text), "frames", frames)
	return &tts.SynthesizeResult{
		Audio:       pcm,
		ContentType: tts.ContentTypePCM16,
		SampleRate:  s.sampleRate,
		Channels:    1,
	}, nil
}

// Close is a no-op.
func (s *Synthesizer) Close() error { return nil }
