package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/archive"
	"github.com/handiism/tunegrab/internal/audio"
	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/logging"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// Catalog resolves an item reference into metadata. The returned item's
// ID is canonical and may differ from the requested one.
type Catalog interface {
	Resolve(ctx context.Context, kind model.Kind, id string) (*model.Item, error)
}

// Streamer opens the content stream of a resolved item.
type Streamer interface {
	Open(ctx context.Context, item *model.Item, quality audio.Quality) (stream.Handle, error)
}

// GenreLookup returns the genres of an artist as one display string.
type GenreLookup interface {
	Genre(ctx context.Context, artistID string) (string, error)
}

// Transcoder converts the raw stream file into the final file.
type Transcoder interface {
	Transcode(ctx context.Context, tempPath, finalPath string) error
}

// Request asks for one item.
type Request struct {
	Kind model.Kind
	ID   string

	// Dir is a folder below the kind root, e.g. "Artist/Album".
	Dir string

	// Numbered names the file "{TRACK} - {TITLE}", used for album downloads.
	Numbered bool

	// MultiDisc prefixes the track number with the disc number.
	MultiDisc bool

	// Collection names the album, playlist or show the item belongs to.
	// Consecutive requests with the same Collection form one group.
	Collection string
}

// Placement returns the naming placement for the request.
func (r Request) Placement() model.Placement {
	return model.Placement{Dir: r.Dir, Numbered: r.Numbered, MultiDisc: r.MultiDisc}
}

// Outcome is the terminal result of one request.
type Outcome struct {
	Request  Request
	Item     *model.Item
	State    State
	Path     string
	Bytes    int64
	Attempts int

	// Reason explains a skip.
	Reason string
}

// Fetched reports whether stream bytes were pulled for this outcome.
func (o Outcome) Fetched() bool {
	return o.Bytes > 0
}

// Config holds the orchestrator's policy.
type Config struct {
	Paths   model.PathConfig
	Reader  stream.Config
	Quality audio.Quality

	// Raw keeps stream bytes unchanged and skips tagging.
	Raw bool

	// Realtime paces fetches to playback speed.
	Realtime bool

	SkipExisting             bool
	SkipPreviouslyDownloaded bool

	// TagNamespace is written into the comment tag.
	TagNamespace string

	Retry RetryPolicy
}

// DefaultConfig returns skip-everything-known, unbounded-retry defaults.
func DefaultConfig() Config {
	return Config{
		Reader:                   stream.Config{ChunkSize: stream.DefaultChunkSize, MaxEmptyReads: stream.DefaultMaxEmptyReads},
		Quality:                  audio.QualityNormal,
		SkipExisting:             true,
		SkipPreviouslyDownloaded: true,
		TagNamespace:             audio.DefaultNamespace,
		Retry:                    DefaultRetryPolicy(),
	}
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Catalog    Catalog
	Streamer   Streamer
	Genres     GenreLookup
	Transcoder Transcoder
	Tagger     audio.Tagger

	// Clock defaults to the wall clock.
	Clock stream.Clock

	// OnProgress receives status lines.
	OnProgress ProgressFunc

	// ByteProgress supplies a byte-level progress sink per fetch.
	ByteProgress ByteProgressFunc
}

// Orchestrator drives one item at a time through
// Pending, Fetching, Transcoding, Tagging and Recorded.
//
// Example:
//
//	o := acquire.NewOrchestrator(cfg, acquire.Deps{
//	    Catalog:    gw,
//	    Streamer:   gw,
//	    Genres:     gw,
//	    Transcoder: audio.NewTranscoder(tcfg),
//	    Tagger:     audio.NewTagger(tcfg.Format, tagCfg, client),
//	})
//	out, err := o.Acquire(ctx, acquire.Request{Kind: model.KindTrack, ID: id})
type Orchestrator struct {
	cfg    Config
	deps   Deps
	genres *GenreCache
	log    zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. Raw mode forces the ogg extension.
func NewOrchestrator(cfg Config, deps Deps) *Orchestrator {
	if cfg.Raw {
		cfg.Paths.Extension = audio.FormatOGG.Extension()
	}
	if cfg.Quality == "" {
		cfg.Quality = audio.QualityNormal
	}
	if deps.Clock == nil {
		deps.Clock = stream.SystemClock
	}
	log := logging.Component("acquire")
	return &Orchestrator{
		cfg:    cfg,
		deps:   deps,
		genres: NewGenreCache(deps.Genres, log),
		log:    log,
	}
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Genres returns the per-run genre cache.
func (o *Orchestrator) Genres() *GenreCache { return o.genres }

// Acquire runs the state machine for one request until a terminal state.
//
// This method:
//  1. Pending: resolves the item through the catalog, waiting the metadata
//     backoff and retrying while resolution fails
//  2. Skipped: stops when the item is not playable, its output file already
//     exists, or its resolved id is in the ledger (per the skip settings)
//  3. Fetching: opens the stream and reads it into the temporary path,
//     paced to playback in real-time mode; a partial read is a failure
//  4. Transcoding: produces the final file
//  5. Tagging: writes metadata and cover art, except in raw mode
//  6. Recorded: appends the ledger entry
//
// A failure in steps 3 to 5 removes the partial files, waits the failure
// backoff and restarts from Pending with a fresh stream. The loop ends
// when Retry.MaxAttempts is reached (never, when it is zero).
//
// Returns:
//   - The Outcome, with State Skipped or Recorded and a nil error on success
//   - An error wrapping ErrRetriesExhausted when attempts run out
//   - An error wrapping ErrIO at once for filesystem and ledger failures
//   - ctx.Err() when cancelled during a wait or a fetch
//
// Example:
//
//	out, err := orch.Acquire(ctx, Request{Kind: model.KindTrack, ID: "4uLU6hMCjMI75M1A2tKUQC"})
//	if err != nil {
//	    return err
//	}
//	if out.State == StateSkipped {
//	    fmt.Println("skipped:", out.Reason)
//	}
func (o *Orchestrator) Acquire(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{Request: req, State: StatePending}
	var lastErr error

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			out.State = StateFailed
			return out, err
		}
		if o.cfg.Retry.exhausted(attempt) {
			out.State = StateFailed
			return out, fmt.Errorf("%w: %s %s after %d attempts: %w", ErrRetriesExhausted, req.Kind, req.ID, out.Attempts, lastErr)
		}
		out.Attempts = attempt
		out.State = StatePending

		item, err := o.deps.Catalog.Resolve(ctx, req.Kind, req.ID)
		if err != nil {
			if ctx.Err() != nil {
				out.State = StateFailed
				return out, ctx.Err()
			}
			lastErr = fmt.Errorf("%w: %w", ErrMetadataUnavailable, err)
			wait := o.cfg.Retry.delay(o.cfg.Retry.MetadataBackoff, attempt)
			o.progress(LevelWarning, "Failed to fetch metadata for %s %s, retrying in %s: %v", req.Kind, req.ID, wait, err)
			if err := o.deps.Clock.Sleep(ctx, wait); err != nil {
				out.State = StateFailed
				return out, err
			}
			continue
		}
		out.Item = item

		if done, err := o.gate(&out); done || err != nil {
			return out, err
		}

		n, err := o.process(ctx, &out)
		if err == nil {
			return out, o.record(&out)
		}

		out.Bytes = 0
		o.discard(out.Path)
		if ctx.Err() != nil {
			out.State = StateFailed
			return out, ctx.Err()
		}
		if !retryable(err) {
			out.State = StateFailed
			return out, err
		}

		lastErr = err
		out.State = StateFailed
		wait := o.cfg.Retry.delay(o.cfg.Retry.FailureBackoff, attempt)
		o.log.Warn().Err(err).Str("item", item.ID).Int("attempt", attempt).Int64("bytes", n).Msg("Attempt failed")
		o.progress(LevelWarning, "Failed to acquire %s (attempt %d): %v", item.DisplayName(), attempt, err)
		if err := o.deps.Clock.Sleep(ctx, wait); err != nil {
			return out, err
		}
	}
}

// gate applies the skip rules. It reports done when the outcome is terminal.
func (o *Orchestrator) gate(out *Outcome) (bool, error) {
	item := out.Item

	if !item.Playable {
		o.skip(out, "not available for playback")
		return true, nil
	}

	out.Path = o.cfg.Paths.OutputPath(item, out.Request.Placement())

	if o.cfg.SkipExisting && ioutils.NonEmptyFile(out.Path) {
		o.skip(out, "already exists")
		return true, nil
	}

	if o.cfg.SkipPreviouslyDownloaded {
		found, err := o.ledger(item.Kind).Contains(item.ID)
		if err != nil {
			out.State = StateFailed
			return true, err
		}
		if found {
			o.skip(out, "previously downloaded")
			return true, nil
		}
	}
	return false, nil
}

func (o *Orchestrator) skip(out *Outcome, reason string) {
	out.State = StateSkipped
	out.Reason = reason
	o.log.Debug().Str("item", out.Item.ID).Str("reason", reason).Msg("Skipped")
	o.progress(LevelVerbose, "Skipping %s: %s", out.Item.DisplayName(), reason)
}

// process runs Fetching, Transcoding and Tagging for one attempt and
// returns the number of bytes fetched.
func (o *Orchestrator) process(ctx context.Context, out *Outcome) (int64, error) {
	item := out.Item
	tempPath := model.TempPath(out.Path)

	out.State = StateFetching
	n, err := o.fetch(ctx, item, tempPath)
	if err != nil {
		return n, err
	}
	out.Bytes = n

	out.State = StateTranscoding
	if err := o.deps.Transcoder.Transcode(ctx, tempPath, out.Path); err != nil {
		return n, err
	}

	if o.cfg.Raw {
		return n, nil
	}

	out.State = StateTagging
	var genre string
	if item.Kind == model.KindTrack {
		genre = o.genres.Get(ctx, item.ArtistID)
	}
	info := audio.BuildTagInfo(item, out.Path, genre, o.cfg.TagNamespace)
	if err := o.deps.Tagger.Tag(ctx, out.Path, info); err != nil {
		return n, err
	}
	return n, nil
}

// fetch streams the item into tempPath, truncating any earlier attempt.
func (o *Orchestrator) fetch(ctx context.Context, item *model.Item, tempPath string) (int64, error) {
	if err := ioutils.EnsureDir(filepath.Dir(tempPath)); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	h, err := o.deps.Streamer.Open(ctx, item, o.cfg.Quality)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStreamUnavailable, err)
	}
	defer h.Close()

	file, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrIO, err)
	}

	readerCfg := o.cfg.Reader
	var pacing *stream.Pacing
	if o.cfg.Realtime {
		readerCfg.ChunkSize = stream.RealtimeChunkSize(o.cfg.Quality.SourceKbps())
		pacing = &stream.Pacing{Start: o.deps.Clock.Now(), Duration: item.Duration}
	}

	var progress stream.Progress
	if o.deps.ByteProgress != nil {
		progress = o.deps.ByteProgress(item, h.Size())
	}

	o.progress(LevelVerbose, "Fetching %s (%s)", item.DisplayName(), humanize.Bytes(uint64(max(h.Size(), 0))))
	started := time.Now()

	reader := stream.NewReader(readerCfg).WithClock(o.deps.Clock)
	res, err := reader.Read(ctx, h, fileSink{file}, pacing, progress)
	if cerr := file.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("%w: %w", ErrIO, cerr)
	}
	if err != nil {
		if ctx.Err() != nil {
			return res.Downloaded, ctx.Err()
		}
		if errors.Is(err, ErrIO) {
			return res.Downloaded, err
		}
		return res.Downloaded, fmt.Errorf("%w: %w", ErrStreamUnavailable, err)
	}
	if !res.Complete() {
		return res.Downloaded, fmt.Errorf("%w: received %d of %d bytes, %d empty reads", ErrIncompleteStream, res.Downloaded, res.Total, res.EmptyReads)
	}

	o.log.Debug().Str("item", item.ID).Int64("bytes", res.Downloaded).Int("reads", res.Reads).
		Dur("elapsed", time.Since(started)).Msg("Fetched")
	return res.Downloaded, nil
}

// record appends the ledger entry for a finished item.
func (o *Orchestrator) record(out *Outcome) error {
	item := out.Item
	entry := archive.Entry{
		ItemID:   item.ID,
		Author:   item.PrimaryArtist(),
		Title:    item.Title,
		Filename: filepath.Base(out.Path),
	}
	if err := o.ledger(item.Kind).Append(entry); err != nil {
		out.State = StateFailed
		return err
	}
	out.State = StateRecorded
	o.log.Info().Str("item", item.ID).Str("path", out.Path).Int64("bytes", out.Bytes).Msg("Recorded")
	o.progress(LevelSuccess, "Downloaded: %s", filepath.Base(out.Path))
	return nil
}

// discard removes the partial final file and the temporary stream file.
func (o *Orchestrator) discard(finalPath string) {
	if finalPath == "" {
		return
	}
	for _, p := range []string{finalPath, model.TempPath(finalPath)} {
		if err := ioutils.RemoveIfExists(p); err != nil {
			o.log.Warn().Err(err).Str("path", p).Msg("Failed to remove partial file")
		}
	}
}

func (o *Orchestrator) ledger(kind model.Kind) *archive.Ledger {
	return archive.ForKind(&o.cfg.Paths, kind)
}

func (o *Orchestrator) progress(level ProgressLevel, format string, args ...any) {
	if o.deps.OnProgress != nil {
		o.deps.OnProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// fileSink tags write failures as filesystem failures.
type fileSink struct {
	f *os.File
}

func (s fileSink) Write(p []byte) (int, error) {
	n, err := s.f.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrIO, err)
	}
	return n, nil
}
