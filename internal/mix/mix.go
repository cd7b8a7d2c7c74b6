// Package mix combines a narration track with its extended bed into the final
// buffer handed to the encoder.
package mix

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// Config holds the mixing tunables. Use DefaultConfig for the production values.
type Config struct {
	// Fade is the bed's fade-in/fade-out and loop crossfade width.
	Fade time.Duration `json:"fade"`

	// BedGainDB is applied to the raw bed before shaping (negative attenuates).
	BedGainDB float64 `json:"bed_gain_db"`

	// TargetPeakDBFS is the ceiling the loudest sample may reach.
	TargetPeakDBFS float64 `json:"target_peak_dbfs"`

	// TailFade is the anti-click fade at the very end of the mix.
	TailFade time.Duration `json:"tail_fade"`
}

// DefaultConfig returns the tuned defaults: 3s crossfades, a bed 20 dB under
// the narration, a -0.5 dBFS ceiling and an 80ms tail fade.
func DefaultConfig() Config {
	return Config{
		Fade:           3 * time.Second,
		BedGainDB:      -20,
		TargetPeakDBFS: -0.5,
		TailFade:       80 * time.Millisecond,
	}
}

// Validate reports inconsistent tunables.
func (c Config) Validate() error {
	var errs []error
	if c.Fade < 0 {
		errs = append(errs, fmt.Errorf("fade must not be negative, got %v", c.Fade))
	}
	if c.TailFade < 0 {
		errs = append(errs, fmt.Errorf("tail fade must not be negative, got %v", c.TailFade))
	}
	if c.TargetPeakDBFS > 0 || math.IsNaN(c.TargetPeakDBFS) {
		errs = append(errs, fmt.Errorf("target peak must be at or below 0 dBFS, got %v", c.TargetPeakDBFS))
	}
	if math.IsNaN(c.BedGainDB) || math.IsInf(c.BedGainDB, 0) {
		errs = append(errs, fmt.Errorf("bed gain must be finite, got %v", c.BedGainDB))
	}
	return errors.Join(errs...)
}

// Mix overlays bed under narration, fades the tail and limits the peak to
// cfg.TargetPeakDBFS. A nil bed mixes the narration alone. The bed must match
// the narration's format and length.
func Mix(narration, bed *audio.Buffer, cfg Config) (*audio.Buffer, error) {
	out := narration
	if bed != nil {
		if bed.Frames() != narration.Frames() {
			return nil, &audio.MixingError{
				Op:  "mix",
				Err: fmt.Errorf("bed has %d frames, narration has %d", bed.Frames(), narration.Frames()),
			}
		}
		var err error
		if out, err = narration.Overlay(bed); err != nil {
			return nil, err
		}
	}
	out = out.FadeOut(cfg.TailFade)
	return PeakSafety(out, cfg.TargetPeakDBFS), nil
}

// PeakSafety returns buf unchanged when its peak is at or below ceiling dBFS.
// Otherwise it attenuates the whole buffer by exactly the excess, so the
// loudest sample lands on the ceiling. It never boosts.
func PeakSafety(buf *audio.Buffer, ceiling float64) *audio.Buffer {
	peak := buf.PeakDBFS()
	if peak <= ceiling {
		return buf
	}
	return buf.Gain(ceiling - peak)
}
