// Package render implements the core narration pipeline.
//
// The renderer receives generate requests from transports and runs each one
// through parse → synthesize → assemble → bed → mix → encode. A request
// either yields the complete encoded mix or an error; partial audio is never
// returned.
package render

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/audio/codec"
	"github.com/nadzzz/soundofsilence/internal/bed"
	"github.com/nadzzz/soundofsilence/internal/message"
	"github.com/nadzzz/soundofsilence/internal/mix"
	"github.com/nadzzz/soundofsilence/internal/narration"
	"github.com/nadzzz/soundofsilence/internal/script"
)

// ErrUnknownFormat is returned when a request asks for an output encoding the
// renderer was not configured with.
var ErrUnknownFormat = errors.New("unknown output format")

// Options configures a Renderer.
type Options struct {
	// Mix holds the mixing tunables.
	Mix mix.Config

	// BedPath is the background bed file. Empty renders narration only.
	BedPath string

	// Filename is the attachment base name, without extension.
	Filename string

	// MaxPause rejects scripts with longer pause markers. Zero disables the check.
	MaxPause time.Duration
}

// Renderer is the central pipeline engine.
type Renderer struct {
	opts          Options
	parser        script.Parser
	synth         *narration.Synthesizer
	beds          *bed.Loader
	encoders      map[string]codec.Encoder
	defaultFormat string
}

// New creates a Renderer. The first encoder is the default output format.
func New(opts Options, synth *narration.Synthesizer, beds *bed.Loader, encoders ...codec.Encoder) (*Renderer, error) {
	if err := opts.Mix.Validate(); err != nil {
		return nil, fmt.Errorf("mix config: %w", err)
	}
	if len(encoders) == 0 {
		return nil, errors.New("at least one encoder is required")
	}
	if beds == nil {
		beds = bed.NewLoader(nil, nil)
	}
	if opts.Filename == "" {
		opts.Filename = "meditacion"
	}

	em := make(map[string]codec.Encoder, len(encoders))
	for _, e := range encoders {
		em[e.Name()] = e
	}
	return &Renderer{
		opts:          opts,
		parser:        script.Parser{MaxPause: opts.MaxPause},
		synth:         synth,
		beds:          beds,
		encoders:      em,
		defaultFormat: encoders[0].Name(),
	}, nil
}

// Formats returns the names of the configured output encoders.
func (r *Renderer) Formats() []string {
	names := make([]string, 0, len(r.encoders))
	for name := range r.encoders {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func (r *Renderer) encoder(name string) (codec.Encoder, error) {
	if name == "" {
		name = r.defaultFormat
	}
	e, ok := r.encoders[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownFormat, name)
	}
	return e, nil
}

// Render processes a single request through the full pipeline.
// This method is passed as the transport.Handler to each transport.
func (r *Renderer) Render(ctx context.Context, req *message.GenerateRequest) (*message.RenderResult, error) {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID)

	enc, err := r.encoder(req.Format)
	if err != nil {
		return nil, err
	}

	// Step 1: Parse the script into instructions.
	instructions, err := r.parser.Parse(req.Script)
	if err != nil {
		logger.Warn("script rejected", "error", err)
		return nil, err
	}
	logger.Info("render started",
		"segments", len(instructions),
		"pauses", script.TotalPause(instructions),
		"format", enc.Name())

	// Step 2: Synthesize every chunk, then lay them out in script order.
	mixed, hasBed, err := r.mixdown(ctx, logger, instructions, req.Voice)
	if err != nil {
		return nil, err
	}

	// Step 3: Encode.
	stage := time.Now()
	data, err := enc.Encode(ctx, mixed)
	if err != nil {
		logger.Error("encoding failed", "encoder", enc.Name(), "error", err)
		return nil, fmt.Errorf("encoding %s: %w", enc.Name(), err)
	}
	logger.Info("encoding complete", "encoder", enc.Name(), "bytes", len(data), "took", time.Since(stage))

	logger.Info("render complete", "duration", time.Since(start), "audio", mixed.Duration())
	return &message.RenderResult{
		RequestID:   req.ID,
		ContentType: enc.ContentType(),
		Filename:    r.opts.Filename + enc.Extension(),
		Audio:       data,
		Duration:    mixed.Duration(),
		Segments:    len(instructions),
		Bed:         hasBed,
	}, nil
}

// Mixdown runs the pipeline up to, but not including, encoding.
func (r *Renderer) Mixdown(ctx context.Context, instructions []script.Instruction, voice string) (*audio.Buffer, error) {
	out, _, err := r.mixdown(ctx, slog.Default(), instructions, voice)
	return out, err
}

func (r *Renderer) mixdown(ctx context.Context, logger *slog.Logger, instructions []script.Instruction, voice string) (*audio.Buffer, bool, error) {
	synth := r.synth
	if voice != "" {
		synth = synth.WithVoice(voice)
	}

	stage := time.Now()
	segments, err := synth.SynthesizeAll(ctx, instructions)
	if err != nil {
		logger.Error("synthesis failed", "error", err)
		return nil, false, err
	}
	logger.Info("synthesis complete", "segments", len(segments), "took", time.Since(stage))

	narr, err := narration.Assemble(synth.Format(), segments)
	if err != nil {
		logger.Error("assembly failed", "error", err)
		return nil, false, err
	}
	logger.Info("narration assembled", "duration", narr.Duration())

	// Step 2b: Prepare the bed to the narration's exact length.
	var bedBuf *audio.Buffer
	if r.opts.BedPath != "" {
		stage = time.Now()
		raw, err := r.beds.Load(ctx, r.opts.BedPath, narr.Format())
		if err != nil {
			logger.Error("bed load failed", "path", r.opts.BedPath, "error", err)
			return nil, false, err
		}
		bedBuf, err = bed.BuildFrames(raw, narr.Frames(), r.opts.Mix.Fade, r.opts.Mix.BedGainDB)
		if err != nil {
			logger.Error("bed build failed", "error", err)
			return nil, false, err
		}
		logger.Info("bed prepared", "source", raw.Duration(), "extended", bedBuf.Duration(), "took", time.Since(stage))
	} else {
		logger.Debug("no bed configured, mixing narration alone")
	}

	mixed, err := mix.Mix(narr, bedBuf, r.opts.Mix)
	if err != nil {
		logger.Error("mix failed", "error", err)
		return nil, false, err
	}
	logger.Info("mix complete", "peak_dbfs", mixed.PeakDBFS())
	return mixed, bedBuf != nil, nil
}
