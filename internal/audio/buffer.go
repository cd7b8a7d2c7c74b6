// Package audio defines the immutable PCM buffer shared by every stage of the
// render pipeline, together with the sample-level DSP primitives (gain, fades,
// concatenation, overlay, overlapping joins and peak measurement).
//
// A Buffer never changes after construction. Every operation returns a new
// Buffer, so the bed cache and an in-flight request can safely hold the same
// decoded bed at the same time.
package audio

import (
	"fmt"
	"math"
	"time"
)

// Format describes the layout of a PCM buffer.
type Format struct {
	// SampleRate is the number of frames per second (e.g., 44100).
	SampleRate int `json:"sample_rate"`

	// Channels is the number of interleaved channels per frame (1 = mono, 2 = stereo).
	Channels int `json:"channels"`
}

// Validate reports whether the format can describe real audio.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("invalid channel count %d", f.Channels)
	}
	return nil
}

// Frames converts a duration into a frame count at this format's sample rate,
// rounding to the nearest frame. Negative durations yield zero.
func (f Format) Frames(d time.Duration) int {
	if d <= 0 || f.SampleRate <= 0 {
		return 0
	}
	n := (int64(d)*int64(f.SampleRate) + int64(time.Second)/2) / int64(time.Second)
	return int(n)
}

// Duration converts a frame count into a duration at this format's sample rate.
func (f Format) Duration(frames int) time.Duration {
	if frames <= 0 || f.SampleRate <= 0 {
		return 0
	}
	return time.Duration(int64(frames) * int64(time.Second) / int64(f.SampleRate))
}

func (f Format) String() string {
	return fmt.Sprintf("%dHz/%dch", f.SampleRate, f.Channels)
}

// Buffer is an immutable block of interleaved float64 PCM samples in the
// nominal range [-1, 1]. Values outside that range are allowed between
// stages (an overlay may briefly exceed full scale); encoders clamp.
type Buffer struct {
	format  Format
	samples []float64
}

// New creates a buffer holding a copy of samples. The sample count must be a
// whole number of frames.
func New(format Format, samples []float64) (*Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, &MixingError{Op: "new buffer", Err: err}
	}
	if len(samples)%format.Channels != 0 {
		return nil, &MixingError{
			Op:  "new buffer",
			Err: fmt.Errorf("%d samples is not a whole number of %d-channel frames", len(samples), format.Channels),
		}
	}
	cp := make([]float64, len(samples))
	copy(cp, samples)
	return &Buffer{format: format, samples: cp}, nil
}

// wrap takes ownership of samples without copying. Callers must not retain
// the slice.
func wrap(format Format, samples []float64) *Buffer {
	return &Buffer{format: format, samples: samples}
}

// Empty returns a zero-length buffer.
func Empty(format Format) *Buffer {
	return wrap(format, nil)
}

// Silence returns a buffer of digital silence lasting d.
func Silence(format Format, d time.Duration) *Buffer {
	return SilenceFrames(format, format.Frames(d))
}

// SilenceFrames returns a buffer of digital silence lasting n frames.
func SilenceFrames(format Format, n int) *Buffer {
	if n <= 0 {
		return Empty(format)
	}
	return wrap(format, make([]float64, n*format.Channels))
}

// Format returns the buffer's sample layout.
func (b *Buffer) Format() Format { return b.format }

// Frames returns the number of frames in the buffer.
func (b *Buffer) Frames() int {
	if b.format.Channels == 0 {
		return 0
	}
	return len(b.samples) / b.format.Channels
}

// Len returns the number of interleaved samples.
func (b *Buffer) Len() int { return len(b.samples) }

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	return b.format.Duration(b.Frames())
}

// IsEmpty reports whether the buffer holds no frames.
func (b *Buffer) IsEmpty() bool { return len(b.samples) == 0 }

// Samples returns a copy of the interleaved samples.
func (b *Buffer) Samples() []float64 {
	cp := make([]float64, len(b.samples))
	copy(cp, b.samples)
	return cp
}

// Sample returns the sample at the given frame and channel.
func (b *Buffer) Sample(frame, channel int) float64 {
	return b.samples[frame*b.format.Channels+channel]
}

// Equal reports whether two buffers have the same format and identical samples.
func (b *Buffer) Equal(other *Buffer) bool {
	if b.format != other.format || len(b.samples) != len(other.samples) {
		return false
	}
	for i := range b.samples {
		if b.samples[i] != other.samples[i] {
			return false
		}
	}
	return true
}

// Peak returns the largest absolute sample value.
func (b *Buffer) Peak() float64 {
	var peak float64
	for _, s := range b.samples {
		if a := math.Abs(s); a > peak {
			peak = a
		}
	}
	return peak
}

// PeakDBFS returns the peak expressed in decibels relative to full scale.
// A silent or empty buffer reports negative infinity.
func (b *Buffer) PeakDBFS() float64 {
	return LinearToDB(b.Peak())
}

// DBToLinear converts a decibel gain into an amplitude multiplier.
func DBToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}

// LinearToDB converts an amplitude ratio into decibels.
func LinearToDB(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}
