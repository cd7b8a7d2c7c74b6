package codec

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// DecodePCM16 interprets data as interleaved signed 16-bit little-endian PCM.
func DecodePCM16(data []byte, format audio.Format) (*audio.Buffer, error) {
	if err := format.Validate(); err != nil {
		return nil, &audio.MixingError{Op: "decode pcm", Err: err}
	}
	frameBytes := 2 * format.Channels
	if len(data)%frameBytes != 0 {
		return nil, &audio.MixingError{
			Op:  "decode pcm",
			Err: fmt.Errorf("%d bytes is not a whole number of %d-byte frames", len(data), frameBytes),
		}
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[2*i:]))
		samples[i] = float64(v) / (math.MaxInt16 + 1)
	}
	return audio.New(format, samples)
}

// EncodePCM16 renders buf as interleaved signed 16-bit little-endian PCM.
func EncodePCM16(buf *audio.Buffer) []byte {
	ints := ToInt16(buf)
	out := make([]byte, 2*len(ints))
	for i, v := range ints {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}
