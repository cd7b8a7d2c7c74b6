package stub

import (
	"context"
	"testing"

	"github.com/nadzzz/soundofsilence/internal/tts"
)

func TestSynthesizeLengthFollowsText(t *testing.T) {
	s := New(8000, nil)

	res, err := s.Synthesize(context.Background(), "Relájate.", tts.SynthesizeOpts{})
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	// 9 runes * 60ms * 8000Hz = 4320 frames of 2 bytes.
	if len(res.Audio) != 4320*2 {
		t.Fatalf("expected 8640 bytes, got %d", len(res.Audio))
	}
	if res.SampleRate != 8000 || res.Channels != 1 || res.ContentType != tts.ContentTypePCM16 {
		t.Fatalf("unexpected metadata %+v", res)
	}

	again, _ := s.Synthesize(context.Background(), "Relájate.", tts.SynthesizeOpts{})
	if string(again.Audio) != string(res.Audio) {
		t.Fatal("stub output is not deterministic")
	}
}

func TestSynthesizeRejectsBlankText(t *testing.T) {
	if _, err := New(8000, nil).Synthesize(context.Background(), " \n", tts.SynthesizeOpts{}); err == nil {
		t.Fatal("expected error for blank text")
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(8000, nil).Synthesize(ctx, "hola", tts.SynthesizeOpts{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
