package acquire

import (
	"bytes"
	"context"
	"errors"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/audio"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

type fakeCatalog struct {
	items    map[string]*model.Item
	failures int // Resolve fails this many times first
	calls    int
}

func (c *fakeCatalog) Resolve(ctx context.Context, kind model.Kind, id string) (*model.Item, error) {
	c.calls++
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("catalog timeout")
	}
	item, ok := c.items[id]
	if !ok {
		return nil, errors.New("not found")
	}
	copied := *item
	return &copied, nil
}

type fakeHandle struct {
	*bytes.Reader
	size   int64
	closed bool
}

func (h *fakeHandle) Size() int64  { return h.size }
func (h *fakeHandle) Close() error { h.closed = true; return nil }

type fakeStreamer struct {
	data      map[string][]byte
	failures  int   // Open fails this many times first
	truncate  int64 // declared size exceeds data by this many bytes
	opens     int
	qualities []audio.Quality
	handles   []*fakeHandle
}

func (s *fakeStreamer) Open(ctx context.Context, item *model.Item, quality audio.Quality) (stream.Handle, error) {
	s.opens++
	s.qualities = append(s.qualities, quality)
	if s.failures > 0 {
		s.failures--
		return nil, errors.New("connection refused")
	}
	data := s.data[item.ID]
	h := &fakeHandle{Reader: bytes.NewReader(data), size: int64(len(data)) + s.truncate}
	s.handles = append(s.handles, h)
	return h, nil
}

// fakeTranscoder renames the stream to the final path, like raw mode.
type fakeTranscoder struct {
	failures int
	calls    int
}

func (t *fakeTranscoder) Transcode(ctx context.Context, tempPath, finalPath string) error {
	t.calls++
	if t.failures > 0 {
		t.failures--
		os.WriteFile(finalPath, []byte("partial"), 0644)
		return audio.ErrEncoding
	}
	return os.Rename(tempPath, finalPath)
}

type fakeTagger struct {
	failures int
	infos    []audio.TagInfo
}

func (t *fakeTagger) Tag(ctx context.Context, path string, info audio.TagInfo) error {
	t.infos = append(t.infos, info)
	if t.failures != 0 {
		if t.failures > 0 {
			t.failures--
		}
		return audio.ErrTagging
	}
	return nil
}

type fakeGenres struct {
	genres map[string]string
	fail   bool
	calls  int
}

func (g *fakeGenres) Genre(ctx context.Context, artistID string) (string, error) {
	g.calls++
	if g.fail {
		return "", errors.New("rate limited")
	}
	return g.genres[artistID], nil
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
	cancel context.CancelFunc // called on the first sleep when set
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	return ctx.Err()
}

func (c *fakeClock) nonZeroSleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []time.Duration
	for _, d := range c.sleeps {
		if d > 0 {
			out = append(out, d)
		}
	}
	return out
}

func testLogger() zerolog.Logger { return zerolog.Nop() }
