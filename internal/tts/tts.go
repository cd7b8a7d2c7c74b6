// Package tts defines the interface for text-to-speech synthesis.
//
// The narration pipeline treats a synthesizer as a black box that turns one
// chunk of script text into a finite stream of audio bytes. Backends declare
// the layout of what they return so the caller can decode it.
package tts

import (
	"context"
	"errors"
	"fmt"
)

// ContentTypePCM16 marks raw interleaved signed 16-bit little-endian PCM.
const ContentTypePCM16 = "audio/pcm"

// ErrAuthentication is wrapped by backends when the provider rejects the
// configured credentials.
var ErrAuthentication = errors.New("authentication failed")

// VoiceSettings shapes the delivery of the synthesized voice. Backends ignore
// the fields they do not support.
type VoiceSettings struct {
	// Speed is the speaking rate multiplier (1.0 = normal).
	Speed float64

	// Stability controls voice consistency (0.0-1.0).
	Stability float64

	// SimilarityBoost controls how closely the voice matches the original (0.0-1.0).
	SimilarityBoost float64

	// Style controls style exaggeration (0.0-1.0).
	Style float64

	// SpeakerBoost enhances speaker clarity.
	SpeakerBoost bool
}

// SynthesizeOpts controls synthesis behavior.
type SynthesizeOpts struct {
	// Voice identifies the provider voice (voice id or model name).
	Voice string

	// Model selects the provider model, when the backend has several.
	Model string

	// Language is the ISO-639-1 code (e.g., "en", "es") used for voice selection.
	Language string

	// Settings shapes the voice.
	Settings VoiceSettings
}

// Synthesizer converts text to audio.
type Synthesizer interface {
	// Name returns the backend identifier (e.g., "elevenlabs", "piper").
	Name() string

	// Synthesize generates audio for the given text.
	Synthesize(ctx context.Context, text string, opts SynthesizeOpts) (*SynthesizeResult, error)

	// Close releases any resources held by the synthesizer.
	Close() error
}

// SynthesizeResult holds the output of TTS synthesis.
type SynthesizeResult struct {
	// Audio is the synthesized audio, encoded as described by ContentType.
	Audio []byte

	// ContentType is the MIME type of the audio ("audio/pcm" for raw s16le, "audio/wav", "audio/mpeg").
	ContentType string

	// SampleRate is the audio sample rate in Hz (e.g., 22050).
	SampleRate int

	// Channels is the number of audio channels (typically 1).
	Channels int
}

// SynthesisError reports a failed synthesis: transport, authentication or
// decode failure. It is fatal for the request that triggered it.
type SynthesisError struct {
	Backend string
	Text    string
	Err     error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("synthesis via %s failed for %q: %v", e.Backend, truncate(e.Text, 40), e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
