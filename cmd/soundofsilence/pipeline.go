package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/audio/codec"
	"github.com/nadzzz/soundofsilence/internal/bed"
	"github.com/nadzzz/soundofsilence/internal/config"
	"github.com/nadzzz/soundofsilence/internal/mix"
	"github.com/nadzzz/soundofsilence/internal/narration"
	"github.com/nadzzz/soundofsilence/internal/render"
	"github.com/nadzzz/soundofsilence/internal/tts"
	"github.com/nadzzz/soundofsilence/internal/tts/elevenlabs"
	"github.com/nadzzz/soundofsilence/internal/tts/piper"
	"github.com/nadzzz/soundofsilence/internal/tts/stub"
)

// newBackend initializes the configured TTS backend and its default voice options.
func newBackend(cfg *config.Config) (tts.Synthesizer, tts.SynthesizeOpts, error) {
	switch cfg.TTS.Backend {
	case "elevenlabs":
		s := elevenlabs.New(cfg.TTS.ElevenLabs, elevenlabs.WithSampleRate(cfg.TTS.SampleRate))
		slog.Info("using ElevenLabs TTS",
			"voice", cfg.TTS.ElevenLabs.VoiceID,
			"model", cfg.TTS.ElevenLabs.ModelID,
			"sample_rate", s.SampleRate())
		return s, s.DefaultOpts(), nil
	case "piper":
		s := piper.New(cfg.TTS.Piper)
		slog.Info("using Piper TTS",
			"endpoint", cfg.TTS.Piper.Endpoint,
			"language", cfg.TTS.Piper.Language)
		return s, s.DefaultOpts(), nil
	case "stub":
		slog.Warn("using stub TTS, output is a test tone")
		return stub.New(cfg.TTS.SampleRate, slog.Default()), tts.SynthesizeOpts{}, nil
	default:
		return nil, tts.SynthesizeOpts{}, fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
}

// mixConfig extracts the mixing tunables from config.
func mixConfig(cfg config.MixConfig) mix.Config {
	return mix.Config{
		Fade:           cfg.Fade,
		BedGainDB:      cfg.BedGainDB,
		TargetPeakDBFS: cfg.TargetPeakDBFS,
		TailFade:       cfg.TailFade,
	}
}

// pipeline bundles the renderer with the resources that need closing.
type pipeline struct {
	renderer *render.Renderer
	backend  tts.Synthesizer
	ffmpeg   *codec.FFmpeg
}

func (p *pipeline) Close() error {
	return p.backend.Close()
}

// newPipeline wires backend, decoder, bed loader and encoders into a renderer.
func newPipeline(cfg *config.Config) (*pipeline, error) {
	backend, opts, err := newBackend(cfg)
	if err != nil {
		return nil, err
	}

	var ff *codec.FFmpeg
	if candidate := codec.NewFFmpeg(cfg.Output.FFmpegPath); candidate.Available() {
		ff = candidate
	} else {
		slog.Warn("ffmpeg not found, opus output and exotic bed formats are disabled", "path", candidate.Path)
	}
	decoder := &codec.Decoder{FFmpeg: ff}

	format := audio.Format{SampleRate: cfg.TTS.SampleRate, Channels: 1}
	synth := narration.NewSynthesizer(backend, format,
		narration.WithConcurrency(cfg.TTS.Concurrency),
		narration.WithRetries(cfg.TTS.Retries, cfg.TTS.RetryBackoff),
		narration.WithSynthesizeOpts(opts),
		narration.WithDecoder(decoder),
	)

	encoders, err := newEncoders(cfg.Output, ff)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	renderer, err := render.New(render.Options{
		Mix:      mixConfig(cfg.Mix),
		BedPath:  cfg.Mix.BedPath,
		Filename: cfg.Output.Filename,
		MaxPause: cfg.Script.MaxPause,
	}, synth, bed.NewLoader(decoder, bed.NewCache(cfg.Mix.CacheCapacity)), encoders...)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}

	return &pipeline{renderer: renderer, backend: backend, ffmpeg: ff}, nil
}

// newEncoders returns the configured output encoder first, followed by every
// other format that can be produced, so requests may override the format.
func newEncoders(cfg config.OutputConfig, ff *codec.FFmpeg) ([]codec.Encoder, error) {
	primary, err := codec.NewEncoder(cfg.Format, ff, cfg.Bitrate)
	if err != nil {
		return nil, fmt.Errorf("output encoder: %w", err)
	}
	encoders := []codec.Encoder{primary}
	if primary.Name() != "wav" {
		encoders = append(encoders, codec.WAVEncoder{})
	}
	if ff != nil && !strings.EqualFold(primary.Name(), "opus") {
		opus, err := codec.NewEncoder("opus", ff, cfg.Bitrate)
		if err != nil {
			return nil, err
		}
		encoders = append(encoders, opus)
	}
	return encoders, nil
}
