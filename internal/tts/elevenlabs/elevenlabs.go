// Package elevenlabs implements the TTS Synthesizer against the ElevenLabs
// text-to-speech REST API.
//
// Audio is requested in the raw "pcm_<rate>" output format so the response
// body is already mono signed 16-bit little-endian PCM at a known rate and
// needs no container decode.
package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nadzzz/soundofsilence/internal/config"
	"github.com/nadzzz/soundofsilence/internal/tts"
)

const (
	// DefaultBaseURL is the public ElevenLabs API root.
	DefaultBaseURL = "https://api.elevenlabs.io"

	// maxErrorBody bounds how much of an error response is surfaced.
	maxErrorBody = 2048
)

// supportedRates lists the sample rates ElevenLabs offers as raw PCM.
var supportedRates = []int{8000, 16000, 22050, 24000, 44100, 48000}

// Option configures the ElevenLabs client.
type Option func(*Synthesizer)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Synthesizer) {
		s.client = c
	}
}

// WithBaseURL points the client at a different API root (tests, proxies).
func WithBaseURL(u string) Option {
	return func(s *Synthesizer) {
		s.baseURL = strings.TrimRight(u, "/")
	}
}

// WithSampleRate selects the PCM output rate. Unsupported rates fall back to
// the nearest one ElevenLabs offers.
func WithSampleRate(rate int) Option {
	return func(s *Synthesizer) {
		s.sampleRate = nearestRate(rate)
	}
}

// Synthesizer implements tts.Synthesizer using the ElevenLabs API.
type Synthesizer struct {
	apiKey     string
	baseURL    string
	voiceID    string
	modelID    string
	settings   tts.VoiceSettings
	sampleRate int
	client     *http.Client
}

// New creates a new ElevenLabs synthesizer from config.
func New(cfg config.ElevenLabsConfig, opts ...Option) *Synthesizer {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	s := &Synthesizer{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		voiceID: cfg.VoiceID,
		modelID: cfg.ModelID,
		settings: tts.VoiceSettings{
			Speed:           cfg.Speed,
			Stability:       cfg.Stability,
			SimilarityBoost: cfg.SimilarityBoost,
			Style:           cfg.Style,
			SpeakerBoost:    cfg.SpeakerBoost,
		},
		sampleRate: 44100,
		client:     &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the backend identifier.
func (s *Synthesizer) Name() string { return "elevenlabs" }

// SampleRate returns the PCM rate requested from the API.
func (s *Synthesizer) SampleRate() int { return s.sampleRate }

// DefaultOpts returns the voice, model and settings from config.
func (s *Synthesizer) DefaultOpts() tts.SynthesizeOpts {
	return tts.SynthesizeOpts{
		Voice:    s.voiceID,
		Model:    s.modelID,
		Settings: s.settings,
	}
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed,omitempty"`
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id,omitempty"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

// Synthesize sends text to the text-to-speech endpoint and returns raw PCM.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("empty text for synthesis")
	}

	voice := opts.Voice
	if voice == "" {
		voice = s.voiceID
	}
	if voice == "" {
		return nil, fmt.Errorf("no elevenlabs voice configured")
	}
	model := opts.Model
	if model == "" {
		model = s.modelID
	}
	settings := opts.Settings
	if settings == (tts.VoiceSettings{}) {
		settings = s.settings
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: voiceSettings{
			Stability:       settings.Stability,
			SimilarityBoost: settings.SimilarityBoost,
			Style:           settings.Style,
			UseSpeakerBoost: settings.SpeakerBoost,
			Speed:           settings.Speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=pcm_%d",
		s.baseURL, url.PathEscape(voice), s.sampleRate)

	slog.Debug("elevenlabs synthesize", "text_length", len(text), "voice", voice, "model", model, "rate", s.sampleRate)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("xi-api-key", s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/pcm")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w (status %d): %s", tts.ErrAuthentication, resp.StatusCode, msg)
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("elevenlabs error %d: %s", resp.StatusCode, msg)
	}

	pcm, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}
	if len(pcm)%2 != 0 {
		// A dangling byte can only be a truncated sample.
		pcm = pcm[:len(pcm)-1]
	}

	slog.Debug("elevenlabs audio received", "pcm_bytes", len(pcm))
	return &tts.SynthesizeResult{
		Audio:       pcm,
		ContentType: tts.ContentTypePCM16,
		SampleRate:  s.sampleRate,
		Channels:    1,
	}, nil
}

// Close drops idle pooled connections.
func (s *Synthesizer) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

func nearestRate(rate int) int {
	best := supportedRates[0]
	for _, r := range supportedRates {
		if abs(r-rate) < abs(best-rate) {
			best = r
		}
	}
	return best
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
