// Package bed prepares the looping background track mixed under a narration.
//
// A raw bed is usually a short music loop. Build shapes it into a loop unit
// (gain offset plus symmetric fades) and repeats that unit with overlapping
// crossfades until it covers the narration, then cuts it to the exact length.
package bed

import (
	"fmt"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// LoopUnit applies gainDB to raw and fades both ends over fade, capped at half
// of raw. Overlapping copies of the result sum smoothly instead of clicking at
// the seams.
func LoopUnit(raw *audio.Buffer, fade time.Duration, gainDB float64) *audio.Buffer {
	d := raw.Format().Duration(fadeFrames(raw, fade))
	return raw.Gain(gainDB).FadeIn(d).FadeOut(d)
}

// fadeFrames is the crossfade width used for raw. With at most half the bed
// on each side, copies never overlap outside their fade ramps, so the loop
// stays at the unit's level and every join adds at least half a unit.
func fadeFrames(raw *audio.Buffer, fade time.Duration) int {
	return min(raw.Format().Frames(fade), raw.Frames()/2)
}

// Build extends raw to exactly target, crossfading successive copies of the
// loop unit over fade. A fade longer than half the bed shrinks to half the
// bed. A zero target yields an empty buffer.
func Build(raw *audio.Buffer, target, fade time.Duration, gainDB float64) (*audio.Buffer, error) {
	if target < 0 {
		return nil, &audio.MixingError{Op: "build bed", Err: fmt.Errorf("negative target duration %v", target)}
	}
	return BuildFrames(raw, raw.Format().Frames(target), fade, gainDB)
}

// BuildFrames is Build with the target expressed in frames, which lets a
// caller match another buffer's length without a round trip through
// time.Duration.
func BuildFrames(raw *audio.Buffer, frames int, fade time.Duration, gainDB float64) (*audio.Buffer, error) {
	format := raw.Format()
	if raw.IsEmpty() {
		return nil, &audio.MixingError{Op: "build bed", Err: audio.ErrEmptyBuffer}
	}
	if fade < 0 {
		return nil, &audio.MixingError{Op: "build bed", Err: fmt.Errorf("negative fade %v", fade)}
	}
	if frames <= 0 {
		return audio.Empty(format), nil
	}

	unit := LoopUnit(raw, fade, gainDB)

	overlap := fadeFrames(raw, fade)

	bld := audio.NewBuilder(format, frames+unit.Frames())
	bld.Append(unit)
	for bld.Frames() < frames {
		if err := bld.AppendOverlap(unit, overlap); err != nil {
			return nil, err
		}
	}
	return bld.Buffer().Slice(0, frames), nil
}
