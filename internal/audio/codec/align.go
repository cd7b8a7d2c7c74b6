package codec

import (
	"fmt"

	"github.com/faiface/beep"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// resampleQuality is beep's interpolation quality (1 = linear, higher is
// smoother and slower).
const resampleQuality = 4

// Align converts buf to the target channel layout and sample rate. Only mono
// and stereo layouts can be converted; anything else is a MixingError.
func Align(buf *audio.Buffer, target audio.Format) (*audio.Buffer, error) {
	if err := target.Validate(); err != nil {
		return nil, &audio.MixingError{Op: "align", Err: err}
	}

	out, err := remix(buf, target.Channels)
	if err != nil {
		return nil, err
	}
	if out.Format().SampleRate == target.SampleRate {
		return out, nil
	}
	return resample(out, target.SampleRate)
}

func remix(buf *audio.Buffer, channels int) (*audio.Buffer, error) {
	src := buf.Format()
	if src.Channels == channels {
		return buf, nil
	}

	frames := buf.Frames()
	dst := audio.Format{SampleRate: src.SampleRate, Channels: channels}
	switch {
	case src.Channels == 1 && channels == 2:
		samples := make([]float64, 0, frames*2)
		for i := 0; i < frames; i++ {
			s := buf.Sample(i, 0)
			samples = append(samples, s, s)
		}
		return audio.New(dst, samples)
	case src.Channels == 2 && channels == 1:
		samples := make([]float64, frames)
		for i := range samples {
			samples[i] = (buf.Sample(i, 0) + buf.Sample(i, 1)) / 2
		}
		return audio.New(dst, samples)
	default:
		return nil, &audio.MixingError{
			Op:  "align",
			Err: fmt.Errorf("%w: cannot convert %d channels to %d", audio.ErrFormatMismatch, src.Channels, channels),
		}
	}
}

func resample(buf *audio.Buffer, rate int) (*audio.Buffer, error) {
	src := buf.Format()
	if src.Channels > 2 {
		return nil, &audio.MixingError{
			Op:  "resample",
			Err: fmt.Errorf("%w: %d channels", audio.ErrFormatMismatch, src.Channels),
		}
	}

	want := int((int64(buf.Frames())*int64(rate) + int64(src.SampleRate)/2) / int64(src.SampleRate))
	r := beep.Resample(resampleQuality, beep.SampleRate(src.SampleRate), beep.SampleRate(rate), &bufferStreamer{buf: buf})

	dst := audio.Format{SampleRate: rate, Channels: src.Channels}
	out, err := drain(r, dst, want)
	if err != nil {
		return nil, &audio.MixingError{Op: "resample", Err: err}
	}

	// Pin the length so repeated alignment of the same source is deterministic.
	if out.Frames() > want {
		return out.Slice(0, want), nil
	}
	if out.Frames() < want {
		return audio.Concat(dst, out, audio.SilenceFrames(dst, want-out.Frames()))
	}
	return out, nil
}

// bufferStreamer exposes a buffer as a beep.Streamer. Mono frames are
// duplicated into both beep channels.
type bufferStreamer struct {
	buf *audio.Buffer
	pos int
}

func (s *bufferStreamer) Stream(samples [][2]float64) (int, bool) {
	frames := s.buf.Frames()
	if s.pos >= frames {
		return 0, false
	}
	stereo := s.buf.Format().Channels == 2
	n := min(len(samples), frames-s.pos)
	for i := 0; i < n; i++ {
		l := s.buf.Sample(s.pos+i, 0)
		r := l
		if stereo {
			r = s.buf.Sample(s.pos+i, 1)
		}
		samples[i] = [2]float64{l, r}
	}
	s.pos += n
	return n, true
}

func (s *bufferStreamer) Err() error { return nil }
