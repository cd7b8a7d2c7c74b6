package bed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nadzzz/soundofsilence/internal/audio"
	"github.com/nadzzz/soundofsilence/internal/audio/codec"
)

// ErrNoSource is returned when no bed file is configured.
var ErrNoSource = errors.New("no bed source configured")

// Loader reads bed files from disk and keeps the decoded, format-aligned
// result in a Cache.
type Loader struct {
	decoder *codec.Decoder
	cache   *Cache
}

// NewLoader returns a loader decoding with decoder and caching in cache.
func NewLoader(decoder *codec.Decoder, cache *Cache) *Loader {
	if decoder == nil {
		decoder = &codec.Decoder{}
	}
	if cache == nil {
		cache = NewCache(1)
	}
	return &Loader{decoder: decoder, cache: cache}
}

// Cache returns the loader's cache.
func (l *Loader) Cache() *Cache { return l.cache }

// Load returns the bed at path aligned to format. The cache key includes the
// file's size and modification time, so replacing the file on disk takes
// effect on the next request.
func (l *Loader) Load(ctx context.Context, path string, format audio.Format) (*audio.Buffer, error) {
	if path == "" {
		return nil, &audio.MixingError{Op: "load bed", Err: ErrNoSource}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &audio.MixingError{Op: "load bed", Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, &audio.MixingError{Op: "load bed", Err: err}
	}
	if info.IsDir() {
		return nil, &audio.MixingError{Op: "load bed", Err: fmt.Errorf("%s is a directory", abs)}
	}

	source := fmt.Sprintf("%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano())
	return l.cache.Get(ctx, KeyFor(source, format), func(ctx context.Context) (*audio.Buffer, error) {
		start := time.Now()
		data, err := os.ReadFile(abs)
		if err != nil {
			return nil, &audio.MixingError{Op: "load bed", Err: err}
		}
		buf, err := l.decoder.Decode(ctx, data, format)
		if err != nil {
			return nil, &audio.MixingError{Op: "decode bed", Err: fmt.Errorf("%s: %w", abs, err)}
		}
		if buf.IsEmpty() {
			return nil, &audio.MixingError{Op: "decode bed", Err: fmt.Errorf("%s: %w", abs, audio.ErrEmptyBuffer)}
		}
		slog.Info("bed decoded", "path", abs, "format", format.String(),
			"duration", buf.Duration(), "took", time.Since(start))
		return buf, nil
	})
}
