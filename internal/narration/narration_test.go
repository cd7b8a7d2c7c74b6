package narration

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/script"
	"github.com/nadzzz/soundofsilence/internal/tts"
	"github.com/nadzzz/soundofsilence/internal/tts/stub"
)

var mono8k = audio.Format{SampleRate: 8000, Channels: 1}

// fakeBackend returns PCM whose frame count is 100 * len(text) and delays
// each call by delay(text).
type fakeBackend struct {
	delay    func(text string) time.Duration
	fail     func(text string, attempt int) error
	mu       sync.Mutex
	attempts map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Synthesize(ctx context.Context, text string, _ tts.SynthesizeOpts) (*tts.SynthesizeResult, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[text]++
	attempt := f.attempts[text]
	f.mu.Unlock()

	if f.delay != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay(text)):
		}
	}
	if f.fail != nil {
		if err := f.fail(text, attempt); err != nil {
			return nil, err
		}
	}

	frames := 100 * len(text)
	pcm := make([]byte, 2*frames)
	for i := 0; i < frames; i++ {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(int16(1000)))
	}
	return &tts.SynthesizeResult{Audio: pcm, ContentType: tts.ContentTypePCM16, SampleRate: 8000, Channels: 1}, nil
}

func (f *fakeBackend) Close() error { return nil }

func (f *fakeBackend) attemptsFor(text string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[text]
}

func TestSynthesizeAllPreservesScriptOrder(t *testing.T) {
	// Earlier chunks finish last.
	backend := &fakeBackend{delay: func(text string) time.Duration {
		return time.Duration(10-len(text)) * 5 * time.Millisecond
	}}
	s := NewSynthesizer(backend, mono8k, WithConcurrency(8))

	instructions := []script.Instruction{
		{Text: "a", PauseAfter: time.Second},
		{Text: "bb", PauseAfter: 2 * time.Second},
		{Text: "ccc", PauseAfter: 3 * time.Second},
		{Text: "dddd"},
	}
	segments, err := s.SynthesizeAll(context.Background(), instructions)
	if err != nil {
		t.Fatalf("SynthesizeAll: %v", err)
	}
	if len(segments) != len(instructions) {
		t.Fatalf("expected %d segments, got %d", len(instructions), len(segments))
	}
	for i, seg := range segments {
		if seg.Instruction != instructions[i] {
			t.Fatalf("segment %d: expected %v, got %v", i, instructions[i], seg.Instruction)
		}
		if want := 100 * len(instructions[i].Text); seg.Speech.Frames() != want {
			t.Fatalf("segment %d: expected %d frames, got %d", i, want, seg.Speech.Frames())
		}
	}
}

func TestSynthesizeAllRespectsConcurrency(t *testing.T) {
	backend := &fakeBackend{delay: func(string) time.Duration { return 10 * time.Millisecond }}
	s := NewSynthesizer(backend, mono8k, WithConcurrency(2))

	instructions := make([]script.Instruction, 8)
	for i := range instructions {
		instructions[i] = script.Instruction{Text: fmt.Sprintf("chunk %d", i)}
	}
	if _, err := s.SynthesizeAll(context.Background(), instructions); err != nil {
		t.Fatalf("SynthesizeAll: %v", err)
	}
	if p := backend.peak.Load(); p > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", p)
	}
}

func TestSynthesizeAllFailsWithoutPartialResult(t *testing.T) {
	boom := errors.New("provider unavailable")
	backend := &fakeBackend{fail: func(text string, _ int) error {
		if text == "bad" {
			return boom
		}
		return nil
	}}
	s := NewSynthesizer(backend, mono8k)

	segments, err := s.SynthesizeAll(context.Background(), []script.Instruction{
		{Text: "good", PauseAfter: time.Second},
		{Text: "bad"},
	})
	if segments != nil {
		t.Fatalf("expected no segments, got %d", len(segments))
	}
	var synthErr *tts.SynthesisError
	if !errors.As(err, &synthErr) {
		t.Fatalf("expected SynthesisError, got %v", err)
	}
	if synthErr.Text != "bad" || synthErr.Backend != "fake" {
		t.Fatalf("unexpected error details: %+v", synthErr)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestSynthesizeRetries(t *testing.T) {
	backend := &fakeBackend{fail: func(_ string, attempt int) error {
		if attempt < 3 {
			return errors.New("transient")
		}
		return nil
	}}
	s := NewSynthesizer(backend, mono8k, WithRetries(2, time.Millisecond))

	buf, err := s.Synthesize(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if buf.Frames() != 400 {
		t.Fatalf("expected 400 frames, got %d", buf.Frames())
	}
	if n := backend.attemptsFor("hola"); n != 3 {
		t.Fatalf("expected 3 attempts, got %d", n)
	}
}

func TestSynthesizeDoesNotRetryAuthentication(t *testing.T) {
	backend := &fakeBackend{fail: func(string, int) error {
		return fmt.Errorf("status 401: %w", tts.ErrAuthentication)
	}}
	s := NewSynthesizer(backend, mono8k, WithRetries(5, time.Millisecond))

	_, err := s.Synthesize(context.Background(), "hola")
	if !errors.Is(err, tts.ErrAuthentication) {
		t.Fatalf("expected ErrAuthentication, got %v", err)
	}
	if n := backend.attemptsFor("hola"); n != 1 {
		t.Fatalf("expected a single attempt, got %d", n)
	}
}

func TestSynthesizeCancelled(t *testing.T) {
	backend := &fakeBackend{delay: func(string) time.Duration { return time.Second }}
	s := NewSynthesizer(backend, mono8k)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := s.Synthesize(ctx, "hola")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestSynthesizeResamplesBackendOutput(t *testing.T) {
	s := NewSynthesizer(stub.New(16000, nil), mono8k)

	buf, err := s.Synthesize(context.Background(), "hola")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if buf.Format() != mono8k {
		t.Fatalf("expected %v, got %v", mono8k, buf.Format())
	}
	if want := mono8k.Frames(4 * stub.PerRune); buf.Frames() != want {
		t.Fatalf("expected %d frames, got %d", want, buf.Frames())
	}
}

func TestAssembleDuration(t *testing.T) {
	segments := []Segment{
		{Instruction: script.Instruction{Text: "a", PauseAfter: 4 * time.Second}, Speech: audio.Silence(mono8k, 1500*time.Millisecond)},
		{Instruction: script.Instruction{Text: "b", PauseAfter: 6 * time.Second}, Speech: audio.Silence(mono8k, 2*time.Second)},
		{Instruction: script.Instruction{Text: "c"}, Speech: audio.Silence(mono8k, 1250*time.Millisecond)},
	}

	out, err := Assemble(mono8k, segments)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	want := 1500*time.Millisecond + 4*time.Second + 2*time.Second + 6*time.Second + 1250*time.Millisecond
	if out.Duration() != want {
		t.Fatalf("expected %v, got %v", want, out.Duration())
	}
}

func TestAssembleLayout(t *testing.T) {
	speech := func(frames int) *audio.Buffer {
		s := make([]float64, frames)
		for i := range s {
			s[i] = 0.5
		}
		buf, err := audio.New(mono8k, s)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		return buf
	}
	segments := []Segment{
		{Instruction: script.Instruction{Text: "a", PauseAfter: time.Millisecond}, Speech: speech(4)},
		{Instruction: script.Instruction{Text: "b"}, Speech: speech(2)},
	}

	out, err := Assemble(mono8k, segments)
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	// 4 speech frames, 8 silent frames (1ms at 8kHz), 2 speech frames.
	want := []float64{0.5, 0.5, 0.5, 0.5, 0, 0, 0, 0, 0, 0, 0, 0, 0.5, 0.5}
	got := out.Samples()
	if len(got) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d: expected %v, got %v", i, want[i], got[i])
		}
	}
}

func TestAssembleRejectsFormatMismatch(t *testing.T) {
	stereo := audio.Format{SampleRate: 8000, Channels: 2}
	_, err := Assemble(mono8k, []Segment{{Speech: audio.Silence(stereo, time.Millisecond)}})
	if !errors.Is(err, audio.ErrFormatMismatch) {
		t.Fatalf("expected ErrFormatMismatch, got %v", err)
	}
}
