package audio

import (
	"time"
)

// Gain returns a copy of the buffer with every sample scaled by db decibels.
// Positive values amplify, negative values attenuate. A zero gain returns the
// receiver unchanged.
func (b *Buffer) Gain(db float64) *Buffer {
	if db == 0 {
		return b
	}
	return b.scale(DBToLinear(db))
}

func (b *Buffer) scale(factor float64) *Buffer {
	out := make([]float64, len(b.samples))
	for i, s := range b.samples {
		out[i] = s * factor
	}
	return wrap(b.format, out)
}

// FadeIn returns a copy of the buffer whose first d ramps linearly from
// silence to full level. A fade longer than the buffer covers all of it.
func (b *Buffer) FadeIn(d time.Duration) *Buffer {
	n := min(b.format.Frames(d), b.Frames())
	if n == 0 {
		return b
	}
	out := b.Samples()
	ch := b.format.Channels
	for i := 0; i < n; i++ {
		g := float64(i) / float64(n)
		for c := 0; c < ch; c++ {
			out[i*ch+c] *= g
		}
	}
	return wrap(b.format, out)
}

// FadeOut returns a copy of the buffer whose last d ramps linearly down to
// silence. A fade longer than the buffer covers all of it.
func (b *Buffer) FadeOut(d time.Duration) *Buffer {
	frames := b.Frames()
	n := min(b.format.Frames(d), frames)
	if n == 0 {
		return b
	}
	out := b.Samples()
	ch := b.format.Channels
	start := frames - n
	for i := start; i < frames; i++ {
		g := float64(frames-1-i) / float64(n)
		for c := 0; c < ch; c++ {
			out[i*ch+c] *= g
		}
	}
	return wrap(b.format, out)
}

// Slice returns frames [from, to), clamped to the buffer bounds.
func (b *Buffer) Slice(from, to int) *Buffer {
	frames := b.Frames()
	from = max(0, min(from, frames))
	to = max(from, min(to, frames))
	if from == 0 && to == frames {
		return b
	}
	ch := b.format.Channels
	out := make([]float64, (to-from)*ch)
	copy(out, b.samples[from*ch:to*ch])
	return wrap(b.format, out)
}

// Truncate returns the first d of the buffer. It never pads.
func (b *Buffer) Truncate(d time.Duration) *Buffer {
	return b.Slice(0, b.format.Frames(d))
}

// Overlay returns the sample-wise sum of the receiver and other. The result
// has the receiver's length; any part of other beyond it is ignored and a
// shorter other leaves the tail untouched.
func (b *Buffer) Overlay(other *Buffer) (*Buffer, error) {
	if b.format != other.format {
		return nil, mismatch("overlay", b.format, other.format)
	}
	out := b.Samples()
	n := min(len(out), len(other.samples))
	for i := 0; i < n; i++ {
		out[i] += other.samples[i]
	}
	return wrap(b.format, out), nil
}

// AppendOverlap returns the receiver followed by other, with the first
// overlap frames of other summed into the last overlap frames of the
// receiver. The overlap is clamped to the length of both buffers.
func (b *Buffer) AppendOverlap(other *Buffer, overlap int) (*Buffer, error) {
	if b.format != other.format {
		return nil, mismatch("append", b.format, other.format)
	}
	bld := NewBuilder(b.format, b.Frames()+other.Frames())
	bld.Append(b)
	if err := bld.AppendOverlap(other, overlap); err != nil {
		return nil, err
	}
	return bld.Buffer(), nil
}

// Concat joins buffers end to end. All buffers must share format.
func Concat(format Format, bufs ...*Buffer) (*Buffer, error) {
	total := 0
	for _, buf := range bufs {
		if buf.format != format {
			return nil, mismatch("concat", format, buf.format)
		}
		total += buf.Frames()
	}
	bld := NewBuilder(format, total)
	for _, buf := range bufs {
		bld.Append(buf)
	}
	return bld.Buffer(), nil
}
