package audio

// Builder accumulates frames into a growing sample slice that it owns
// exclusively. Buffer hands that slice off as an immutable Buffer; the
// builder is empty afterwards.
//
// Builders are not safe for concurrent use.
type Builder struct {
	format  Format
	samples []float64
}

// NewBuilder returns a builder with room for capFrames frames.
func NewBuilder(format Format, capFrames int) *Builder {
	return &Builder{
		format:  format,
		samples: make([]float64, 0, max(0, capFrames)*format.Channels),
	}
}

// Format returns the layout every appended buffer must match.
func (b *Builder) Format() Format { return b.format }

// Frames returns the number of frames accumulated so far.
func (b *Builder) Frames() int { return len(b.samples) / b.format.Channels }

// Append adds buf to the end. The caller must have checked the format.
func (b *Builder) Append(buf *Buffer) {
	b.samples = append(b.samples, buf.samples...)
}

// AppendChecked adds buf to the end after verifying its format.
func (b *Builder) AppendChecked(buf *Buffer) error {
	if buf.format != b.format {
		return mismatch("append", b.format, buf.format)
	}
	b.Append(buf)
	return nil
}

// AppendSilence adds n frames of silence.
func (b *Builder) AppendSilence(n int) {
	if n <= 0 {
		return
	}
	b.samples = append(b.samples, make([]float64, n*b.format.Channels)...)
}

// AppendOverlap sums the first overlap frames of buf into the last overlap
// frames already accumulated, then appends the rest of buf.
func (b *Builder) AppendOverlap(buf *Buffer, overlap int) error {
	if buf.format != b.format {
		return mismatch("append", b.format, buf.format)
	}
	overlap = max(0, min(overlap, b.Frames(), buf.Frames()))
	ch := b.format.Channels
	n := overlap * ch
	tail := b.samples[len(b.samples)-n:]
	for i := 0; i < n; i++ {
		tail[i] += buf.samples[i]
	}
	b.samples = append(b.samples, buf.samples[n:]...)
	return nil
}

// Buffer transfers the accumulated samples into an immutable Buffer.
func (b *Builder) Buffer() *Buffer {
	out := wrap(b.format, b.samples)
	b.samples = nil
	return out
}
