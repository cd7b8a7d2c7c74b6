package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

const (
	wavFormatPCM        = 1
	wavFormatExtensible = 0xFFFE
)

// DecodeWAV reads an integer PCM WAV stream into a buffer.
func DecodeWAV(r io.ReadSeeker) (*audio.Buffer, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return nil, &audio.MixingError{Op: "decode wav", Err: errors.New("not a valid wav file")}
	}

	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, &audio.MixingError{Op: "decode wav", Err: fmt.Errorf("reading PCM buffer: %w", err)}
	}
	if dec.WavAudioFormat != wavFormatPCM && dec.WavAudioFormat != wavFormatExtensible {
		return nil, &audio.MixingError{Op: "decode wav", Err: fmt.Errorf("unsupported wav format tag %d", dec.WavAudioFormat)}
	}

	depth := int(dec.BitDepth)
	if depth != 16 && depth != 24 && depth != 32 {
		return nil, &audio.MixingError{Op: "decode wav", Err: fmt.Errorf("unsupported bit depth %d", depth)}
	}

	format := audio.Format{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}
	scale := math.Pow(2, float64(depth-1))
	samples := make([]float64, len(pcm.Data))
	for i, v := range pcm.Data {
		samples[i] = float64(v) / scale
	}

	// Drop a trailing partial frame rather than failing the whole decode.
	if format.Channels > 0 {
		samples = samples[:len(samples)-len(samples)%format.Channels]
	}
	return audio.New(format, samples)
}

// EncodeWAV writes buf as 16-bit PCM WAV. Samples are clamped to full scale.
func EncodeWAV(w io.WriteSeeker, buf *audio.Buffer) error {
	format := buf.Format()
	enc := wav.NewEncoder(w, format.SampleRate, 16, format.Channels, wavFormatPCM)

	ib := &goaudio.IntBuffer{
		Format: &goaudio.Format{
			NumChannels: format.Channels,
			SampleRate:  format.SampleRate,
		},
		Data:           ToInt16(buf),
		SourceBitDepth: 16,
	}
	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("writing wav samples: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("closing wav encoder: %w", err)
	}
	return nil
}

// ToInt16 converts samples to clamped 16-bit integers.
func ToInt16(buf *audio.Buffer) []int {
	samples := buf.Samples()
	out := make([]int, len(samples))
	for i, s := range samples {
		s = max(-1, min(1, s))
		out[i] = int(math.Round(s * math.MaxInt16))
	}
	return out
}

// memWriteSeeker is an in-memory io.WriteSeeker; the wav encoder seeks back
// to patch chunk sizes on Close.
type memWriteSeeker struct {
	buf []byte
	pos int
}

func (m *memWriteSeeker) Write(p []byte) (int, error) {
	end := m.pos + len(p)
	if end > len(m.buf) {
		m.buf = append(m.buf, make([]byte, end-len(m.buf))...)
	}
	copy(m.buf[m.pos:end], p)
	m.pos = end
	return len(p), nil
}

func (m *memWriteSeeker) Seek(offset int64, whence int) (int64, error) {
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = int64(m.pos) + offset
	case io.SeekEnd:
		abs = int64(len(m.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if abs < 0 {
		return 0, errors.New("negative seek position")
	}
	m.pos = int(abs)
	return abs, nil
}

func (m *memWriteSeeker) Bytes() []byte { return bytes.Clone(m.buf) }
