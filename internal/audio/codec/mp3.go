package codec

import (
	"fmt"
	"io"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"

	"github.com/nadzzz/soundofsilence/internal/audio"
)

// streamChunk is the number of frames pulled from a beep streamer per call.
const streamChunk = 4096

// DecodeMP3 decodes an MP3 stream into a stereo buffer at its native rate.
func DecodeMP3(r io.Reader) (*audio.Buffer, error) {
	stream, f, err := mp3.Decode(io.NopCloser(r))
	if err != nil {
		return nil, &audio.MixingError{Op: "decode mp3", Err: err}
	}
	defer stream.Close()

	channels := f.NumChannels
	if channels < 1 || channels > 2 {
		channels = 2
	}
	format := audio.Format{SampleRate: int(f.SampleRate), Channels: channels}

	buf, err := drain(stream, format, stream.Len())
	if err != nil {
		return nil, &audio.MixingError{Op: "decode mp3", Err: err}
	}
	return buf, nil
}

// drain pulls every frame out of a beep streamer into a buffer of the given
// format. Mono output keeps the left channel.
func drain(s beep.Streamer, format audio.Format, hintFrames int) (*audio.Buffer, error) {
	samples := make([]float64, 0, max(0, hintFrames)*format.Channels)
	chunk := make([][2]float64, streamChunk)
	for {
		n, ok := s.Stream(chunk)
		for i := 0; i < n; i++ {
			samples = append(samples, chunk[i][0])
			if format.Channels == 2 {
				samples = append(samples, chunk[i][1])
			}
		}
		if !ok || n == 0 {
			break
		}
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("streaming samples: %w", err)
	}
	return audio.New(format, samples)
}
