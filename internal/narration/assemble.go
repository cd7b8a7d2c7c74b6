package narration

import (
	"github.com/nadzzz/soundofsilence/internal/audio"
)

// Assemble concatenates the segments in order, inserting exactly PauseAfter
// of silence after each speech buffer. The result lasts the sum of every
// speech duration plus every pause. No trimming or normalization is applied.
func Assemble(format audio.Format, segments []Segment) (*audio.Buffer, error) {
	total := 0
	for _, seg := range segments {
		total += seg.Speech.Frames() + format.Frames(seg.Instruction.PauseAfter)
	}

	bld := audio.NewBuilder(format, total)
	for _, seg := range segments {
		if err := bld.AppendChecked(seg.Speech); err != nil {
			return nil, err
		}
		bld.AppendSilence(format.Frames(seg.Instruction.PauseAfter))
	}
	return bld.Buffer(), nil
}
