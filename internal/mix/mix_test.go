package mix

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

var mono8k = audio.Format{SampleRate: 8000, Channels: 1}

func buffer(t *testing.T, samples ...float64) *audio.Buffer {
	t.Helper()
	buf, err := audio.New(mono8k, samples)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return buf
}

func TestPeakSafetyLeavesQuietBufferUntouched(t *testing.T) {
	buf := buffer(t, 0.1, -0.5, 0.3)
	out := PeakSafety(buf, -0.5)
	if out != buf {
		t.Fatal("expected the same buffer back")
	}
}

func TestPeakSafetyJustUnderCeiling(t *testing.T) {
	buf := buffer(t, 0.2, -0.94)
	if out := PeakSafety(buf, -0.5); out != buf {
		t.Fatal("expected a buffer under the ceiling to pass through")
	}
}

func TestPeakSafetyLimitsLoudBuffer(t *testing.T) {
	tests := []struct {
		name    string
		samples []float64
		ceiling float64
	}{
		{"over full scale", []float64{0.5, -1.8, 0.9}, -0.5},
		{"just over ceiling", []float64{0.96, 0.1}, -0.5},
		{"strict ceiling", []float64{0.7, -0.2}, -6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := buffer(t, tt.samples...)
			out := PeakSafety(buf, tt.ceiling)
			if got := out.PeakDBFS(); math.Abs(got-tt.ceiling) > 1e-9 {
				t.Fatalf("expected peak %v dBFS, got %v", tt.ceiling, got)
			}
			// Relative levels are preserved.
			ratio := out.Sample(0, 0) / buf.Sample(0, 0)
			for i := 1; i < buf.Frames(); i++ {
				if math.Abs(out.Sample(i, 0)/buf.Sample(i, 0)-ratio) > 1e-12 {
					t.Fatalf("gain not uniform at frame %d", i)
				}
			}
		})
	}
}

func TestPeakSafetySilence(t *testing.T) {
	buf := audio.Silence(mono8k, 10*time.Millisecond)
	if out := PeakSafety(buf, -0.5); out != buf {
		t.Fatal("expected silence to pass through")
	}
}

func TestMixOverlaysAndLimits(t *testing.T) {
	narration := buffer(t, 0.9, 0.9, 0.9, 0.9)
	bed := buffer(t, 0.3, 0.3, 0.3, 0.3)
	cfg := Config{TargetPeakDBFS: -0.5}

	out, err := Mix(narration, bed, cfg)
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if out.Frames() != narration.Frames() {
		t.Fatalf("expected %d frames, got %d", narration.Frames(), out.Frames())
	}
	if got := out.PeakDBFS(); math.Abs(got+0.5) > 1e-9 {
		t.Fatalf("expected peak -0.5 dBFS, got %v", got)
	}
}

func TestMixTailFade(t *testing.T) {
	samples := make([]float64, 800)
	for i := range samples {
		samples[i] = 0.25
	}
	narration := buffer(t, samples...)

	out, err := Mix(narration, nil, Config{TargetPeakDBFS: -0.5, TailFade: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("Mix: %v", err)
	}
	if last := out.Sample(out.Frames()-1, 0); last != 0 {
		t.Fatalf("expected silent last frame, got %v", last)
	}
	if mid := out.Sample(100, 0); mid != 0.25 {
		t.Fatalf("expected untouched body, got %v", mid)
	}
	if narration.Sample(narration.Frames()-1, 0) != 0.25 {
		t.Fatal("narration was modified")
	}
}

func TestMixRejectsMismatchedBed(t *testing.T) {
	narration := buffer(t, 0.1, 0.1, 0.1)

	_, err := Mix(narration, buffer(t, 0.1), DefaultConfig())
	var mixErr *audio.MixingError
	if !errors.As(err, &mixErr) {
		t.Fatalf("expected MixingError for length mismatch, got %v", err)
	}

	stereo, err := audio.New(audio.Format{SampleRate: 8000, Channels: 2}, make([]float64, 6))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = Mix(narration, stereo, DefaultConfig())
	if !errors.Is(err, audio.ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative fade", func(c *Config) { c.Fade = -time.Second }},
		{"negative tail", func(c *Config) { c.TailFade = -time.Millisecond }},
		{"positive ceiling", func(c *Config) { c.TargetPeakDBFS = 1 }},
		{"nan gain", func(c *Config) { c.BedGainDB = math.NaN() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
