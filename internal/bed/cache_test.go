package bed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/audio/codec"
)

func staticLoad(buf *audio.Buffer, calls *atomic.Int32) LoadFunc {
	return func(context.Context) (*audio.Buffer, error) {
		calls.Add(1)
		return buf, nil
	}
}

func TestCacheHitAndMiss(t *testing.T) {
	c := NewCache(1)
	buf := audio.Silence(mono8k, time.Millisecond)
	var calls atomic.Int32
	key := KeyFor("music.wav", mono8k)

	for i := 0; i < 3; i++ {
		got, err := c.Get(context.Background(), key, staticLoad(buf, &calls))
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if got != buf {
			t.Fatal("expected the cached buffer")
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one load, got %d", calls.Load())
	}
	if s := c.Stats(); s.Hits != 2 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestCacheKeyIncludesFormat(t *testing.T) {
	c := NewCache(2)
	var calls atomic.Int32
	stereo := audio.Format{SampleRate: 8000, Channels: 2}

	if _, err := c.Get(context.Background(), KeyFor("music.wav", mono8k), staticLoad(audio.Empty(mono8k), &calls)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, err := c.Get(context.Background(), KeyFor("music.wav", stereo), staticLoad(audio.Empty(stereo), &calls)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected a load per format, got %d", calls.Load())
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	var calls atomic.Int32
	get := func(src string) {
		t.Helper()
		if _, err := c.Get(context.Background(), KeyFor(src, mono8k), staticLoad(audio.Empty(mono8k), &calls)); err != nil {
			t.Fatalf("Get %s: %v", src, err)
		}
	}

	get("a")
	get("b")
	get("a") // a becomes most recent
	get("c") // evicts b
	if c.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", c.Len())
	}

	calls.Store(0)
	get("a")
	if calls.Load() != 0 {
		t.Fatal("expected a to survive eviction")
	}
	get("b")
	if calls.Load() != 1 {
		t.Fatal("expected b to have been evicted")
	}
	if s := c.Stats(); s.Evictions != 2 {
		t.Fatalf("expected 2 evictions, got %d", s.Evictions)
	}
}

func TestCacheSingleSlot(t *testing.T) {
	c := NewCache(0)
	if c.Capacity() != 1 {
		t.Fatalf("expected capacity 1, got %d", c.Capacity())
	}
	var calls atomic.Int32
	for _, src := range []string{"a", "b", "a"} {
		if _, err := c.Get(context.Background(), KeyFor(src, mono8k), staticLoad(audio.Empty(mono8k), &calls)); err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if calls.Load() != 3 || c.Len() != 1 {
		t.Fatalf("expected 3 loads and 1 entry, got %d loads and %d entries", calls.Load(), c.Len())
	}
}

func TestCacheSharesConcurrentLoads(t *testing.T) {
	c := NewCache(1)
	buf := audio.Silence(mono8k, time.Millisecond)
	release := make(chan struct{})
	var calls atomic.Int32
	load := func(context.Context) (*audio.Buffer, error) {
		calls.Add(1)
		<-release
		return buf, nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := c.Get(context.Background(), KeyFor("music.wav", mono8k), load)
			if err == nil && got != buf {
				err = errors.New("unexpected buffer")
			}
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
	}
	if calls.Load() != 1 {
		t.Fatalf("expected one shared load, got %d", calls.Load())
	}
}

func TestCacheDoesNotStoreFailures(t *testing.T) {
	c := NewCache(1)
	boom := errors.New("corrupt")
	key := KeyFor("music.wav", mono8k)

	_, err := c.Get(context.Background(), key, func(context.Context) (*audio.Buffer, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected load error, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("expected empty cache, got %d entries", c.Len())
	}

	var calls atomic.Int32
	if _, err := c.Get(context.Background(), key, staticLoad(audio.Empty(mono8k), &calls)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	if calls.Load() != 1 {
		t.Fatal("expected a retry after the failed load")
	}
}

func TestCacheGetCancelled(t *testing.T) {
	c := NewCache(1)
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := c.Get(ctx, KeyFor("slow.wav", mono8k), func(context.Context) (*audio.Buffer, error) {
		<-release
		return audio.Empty(mono8k), nil
	})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCachePurge(t *testing.T) {
	c := NewCache(1)
	var calls atomic.Int32
	if _, err := c.Get(context.Background(), KeyFor("a", mono8k), staticLoad(audio.Empty(mono8k), &calls)); err != nil {
		t.Fatalf("Get: %v", err)
	}
	c.Purge()
	if c.Len() != 0 || c.Stats() != (Stats{}) {
		t.Fatalf("expected empty cache after purge, got %d entries, %+v", c.Len(), c.Stats())
	}
}

func writeWAV(t *testing.T, path string, buf *audio.Buffer) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := codec.EncodeWAV(f, buf); err != nil {
		t.Fatalf("EncodeWAV: %v", err)
	}
}

func TestLoaderDecodesAndCaches(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music.wav")
	writeWAV(t, path, constant(t, mono8k, 800, 0.25))

	stereo := audio.Format{SampleRate: 8000, Channels: 2}
	l := NewLoader(nil, NewCache(1))

	first, err := l.Load(context.Background(), path, stereo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Format() != stereo || first.Frames() != 800 {
		t.Fatalf("expected 800 stereo frames, got %d frames of %v", first.Frames(), first.Format())
	}

	second, err := l.Load(context.Background(), path, stereo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if second != first {
		t.Fatal("expected the cached buffer on the second load")
	}
	if s := l.Cache().Stats(); s.Hits != 1 || s.Misses != 1 {
		t.Fatalf("unexpected stats %+v", s)
	}
}

func TestLoaderReloadsChangedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "music.wav")
	writeWAV(t, path, constant(t, mono8k, 800, 0.25))
	l := NewLoader(nil, nil)

	first, err := l.Load(context.Background(), path, mono8k)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	writeWAV(t, path, constant(t, mono8k, 400, 0.25))
	later := time.Now().Add(time.Hour)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	second, err := l.Load(context.Background(), path, mono8k)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if first.Frames() != 800 || second.Frames() != 400 {
		t.Fatalf("expected 800 then 400 frames, got %d then %d", first.Frames(), second.Frames())
	}
}

func TestLoaderErrors(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.wav")
	if err := os.WriteFile(corrupt, []byte("definitely not audio"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	tests := []struct {
		name string
		path string
	}{
		{"no source", ""},
		{"missing file", filepath.Join(dir, "missing.wav")},
		{"directory", dir},
		{"corrupt file", corrupt},
	}

	l := NewLoader(nil, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.Load(context.Background(), tt.path, mono8k)
			var mixErr *audio.MixingError
			if !errors.As(err, &mixErr) {
				t.Fatalf("expected MixingError, got %v", err)
			}
		})
	}

	if _, err := l.Load(context.Background(), "", mono8k); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource, got %v", err)
	}
}
