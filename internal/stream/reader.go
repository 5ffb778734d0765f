package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// Default reader settings.
const (
	DefaultChunkSize     = 50000
	DefaultMaxEmptyReads = 30
)

// Handle is an open byte source of known total size. A Handle belongs to
// one fetch and is closed by whoever opened it.
type Handle interface {
	// Size returns the total number of bytes the stream will deliver.
	Size() int64

	// Read reads up to len(p) bytes. A zero-byte read is not an error.
	Read(p []byte) (int, error)

	// Close releases the stream.
	Close() error
}

// Progress receives the number of bytes written after each chunk.
// *progressbar.ProgressBar satisfies it.
type Progress interface {
	Add(n int) error
}

// Clock abstracts time so pacing can be tested.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Config controls chunking and stall tolerance.
type Config struct {
	// ChunkSize is the largest single read request in bytes.
	ChunkSize int

	// MaxEmptyReads is how many zero-byte reads in a row are tolerated.
	MaxEmptyReads int
}

// Pacing throttles a fetch to real-time playback speed.
type Pacing struct {
	// Start is when the fetch began.
	Start time.Time

	// Duration is the playback length of the whole stream.
	Duration time.Duration
}

// Result describes a finished read.
type Result struct {
	// Downloaded is the number of bytes written to the sink.
	Downloaded int64

	// Total is the stream's declared size.
	Total int64

	// Reads is the number of read calls issued.
	Reads int

	// EmptyReads is the length of the final run of zero-byte reads.
	EmptyReads int
}

// Complete reports whether the whole stream was received. A Result that is
// not complete must be treated as a failed fetch.
func (r Result) Complete() bool {
	return r.Downloaded >= r.Total
}

// Reader drains Handles in chunks.
type Reader struct {
	cfg   Config
	clock Clock
}

// NewReader creates a Reader. Non-positive settings fall back to the defaults.
func NewReader(cfg Config) *Reader {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.MaxEmptyReads < 0 {
		cfg.MaxEmptyReads = DefaultMaxEmptyReads
	}
	return &Reader{cfg: cfg, clock: SystemClock}
}

// WithClock replaces the clock used for pacing.
func (r *Reader) WithClock(clock Clock) *Reader {
	if clock != nil {
		r.clock = clock
	}
	return r
}

// Read copies h into sink.
//
// Each request asks for min(ChunkSize, remaining) bytes. The loop ends when
// the declared size has been received, or with a partial Result once more
// than MaxEmptyReads zero-byte reads happen in a row. Read errors other
// than io.EOF and sink errors are returned.
func (r *Reader) Read(ctx context.Context, h Handle, sink io.Writer, pacing *Pacing, progress Progress) (Result, error) {
	total := h.Size()
	res := Result{Total: total}
	chunkSize := r.cfg.ChunkSize
	buf := make([]byte, chunkSize)

	for res.Downloaded < total {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		if remaining := total - res.Downloaded; remaining < int64(chunkSize) {
			chunkSize = int(remaining)
		}

		n, err := h.Read(buf[:chunkSize])
		res.Reads++
		if err != nil && !errors.Is(err, io.EOF) {
			return res, fmt.Errorf("read stream: %w", err)
		}

		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return res, fmt.Errorf("write chunk: %w", werr)
			}
			res.Downloaded += int64(n)
			res.EmptyReads = 0
			if progress != nil {
				_ = progress.Add(n)
			}
		} else {
			res.EmptyReads++
			if res.EmptyReads > r.cfg.MaxEmptyReads {
				return res, nil
			}
		}

		if pacing != nil {
			delay := PacingDelay(pacing.Start, r.clock.Now(), res.Downloaded, total, pacing.Duration)
			if err := r.clock.Sleep(ctx, delay); err != nil {
				return res, err
			}
		}
	}

	return res, nil
}

// PacingDelay returns how long to wait so that having downloaded bytes of
// total does not run ahead of playback. It never returns a negative value:
// a fetch that is already behind schedule is not sped up.
func PacingDelay(start, now time.Time, downloaded, total int64, duration time.Duration) time.Duration {
	if total <= 0 || duration <= 0 {
		return 0
	}
	wanted := time.Duration(float64(duration) * (float64(downloaded) / float64(total)))
	elapsed := now.Sub(start)
	if wanted > elapsed {
		return wanted - elapsed
	}
	return 0
}

// RealtimeChunkSize returns the number of bytes in one second of audio at
// the given bitrate in kbit/s.
func RealtimeChunkSize(kbps int) int {
	return kbps * 125
}
