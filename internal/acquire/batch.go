package acquire

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/audio"
	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/logging"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// Default pauses between fetches.
const (
	DefaultAntiBanWait = 5 * time.Second
	DefaultGroupWait   = 30 * time.Second
)

// BatchConfig controls pauses and playlist output.
type BatchConfig struct {
	// AntiBanWait follows every item whose stream was fetched.
	AntiBanWait time.Duration

	// GroupWait separates two collections.
	GroupWait time.Duration

	// OverrideAutoWait disables both pauses.
	OverrideAutoWait bool

	// Playlist, when set, writes one playlist per collection.
	Playlist *audio.PlaylistCreator

	// OnOutcome is called after every request reaches a terminal state.
	OnOutcome func(Outcome)
}

// DefaultBatchConfig returns the 5 s / 30 s pauses without playlists.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{AntiBanWait: DefaultAntiBanWait, GroupWait: DefaultGroupWait}
}

// Summary totals a batch run.
type Summary struct {
	RunID    string
	Acquired int
	Skipped  int
	Failed   int
	Bytes    int64
	Elapsed  time.Duration
	Outcomes []Outcome
}

// Total returns the number of processed requests.
func (s *Summary) Total() int { return s.Acquired + s.Skipped + s.Failed }

// Batch runs requests strictly one after another.
//
// Example:
//
//	batch := acquire.NewBatch(orchestrator, acquire.DefaultBatchConfig(), onProgress)
//	summary, err := batch.Run(ctx, requests)
type Batch struct {
	orch       *Orchestrator
	cfg        BatchConfig
	clock      stream.Clock
	onProgress ProgressFunc
	log        zerolog.Logger
}

// NewBatch creates a Batch. Pacing through the orchestrator's realtime
// mode disables the anti-ban pauses.
func NewBatch(orch *Orchestrator, cfg BatchConfig, onProgress ProgressFunc) *Batch {
	if orch.cfg.Realtime {
		cfg.OverrideAutoWait = true
	}
	return &Batch{
		orch:       orch,
		cfg:        cfg,
		clock:      orch.deps.Clock,
		onProgress: onProgress,
		log:        logging.Component("batch"),
	}
}

// Run processes reqs in order. A failed item is reported and the batch
// moves on; only cancellation stops it early.
func (b *Batch) Run(ctx context.Context, reqs []Request) (*Summary, error) {
	summary := &Summary{RunID: uuid.NewString()}
	log := b.log.With().Str("run", summary.RunID).Logger()
	started := time.Now()
	defer func() { summary.Elapsed = time.Since(started) }()

	log.Info().Int("requests", len(reqs)).Msg("Batch started")

	var group []PlaylistItem
	for i, req := range reqs {
		if i > 0 && req.Collection != reqs[i-1].Collection {
			b.finishGroup(reqs[i-1], group)
			group = nil
			if reqs[i-1].Collection != "" && req.Collection != "" {
				if err := b.pause(ctx, b.cfg.GroupWait); err != nil {
					return summary, err
				}
			}
		}

		b.progress(LevelInfo, "[%d/%d] %s %s", i+1, len(reqs), req.Kind, req.ID)
		out, err := b.orch.Acquire(ctx, req)
		summary.Outcomes = append(summary.Outcomes, out)
		if b.cfg.OnOutcome != nil {
			b.cfg.OnOutcome(out)
		}

		switch out.State {
		case StateRecorded:
			summary.Acquired++
			summary.Bytes += out.Bytes
			group = append(group, PlaylistItem{Path: out.Path, Item: out.Item})
		case StateSkipped:
			summary.Skipped++
			if out.Path != "" && ioutils.NonEmptyFile(out.Path) {
				group = append(group, PlaylistItem{Path: out.Path, Item: out.Item})
			}
		default:
			summary.Failed++
		}

		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
				log.Warn().Msg("Batch cancelled")
				return summary, err
			}
			log.Error().Err(err).Str("item", req.ID).Msg("Item failed")
			b.progress(LevelError, "Error downloading %s %s: %v", req.Kind, req.ID, err)
		}

		if out.Fetched() && i < len(reqs)-1 {
			if err := b.pause(ctx, b.cfg.AntiBanWait); err != nil {
				return summary, err
			}
		}
	}
	if len(reqs) > 0 {
		b.finishGroup(reqs[len(reqs)-1], group)
	}

	log.Info().Int("acquired", summary.Acquired).Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).Int64("bytes", summary.Bytes).Msg("Batch finished")
	level := LevelSuccess
	if summary.Failed > 0 {
		level = LevelWarning
	}
	b.progress(level, "Finished: %d downloaded (%s), %d skipped, %d failed",
		summary.Acquired, humanize.Bytes(uint64(summary.Bytes)), summary.Skipped, summary.Failed)
	return summary, nil
}

// PlaylistItem is a file that belongs in a collection's playlist.
type PlaylistItem struct {
	Path string
	Item *model.Item
}

// finishGroup writes the playlist of the collection that last ended.
func (b *Batch) finishGroup(last Request, group []PlaylistItem) {
	if b.cfg.Playlist == nil || last.Collection == "" || len(group) == 0 {
		return
	}

	list := &audio.Playlist{Title: last.Collection}
	for _, g := range group {
		list.Entries = append(list.Entries, audio.PlaylistEntry{
			Path:     g.Path,
			Artist:   g.Item.PrimaryArtist(),
			Title:    g.Item.Title,
			Album:    g.Item.Album,
			Duration: g.Item.Duration,
		})
	}

	dir := filepath.Dir(group[0].Path)
	name := model.SanitizeFileName(last.Collection) + "." + b.cfg.Playlist.Format().Extension()
	path := filepath.Join(dir, name)
	if err := ioutils.WriteFileAtomic(path, []byte(b.cfg.Playlist.CreatePlaylist(list))); err != nil {
		b.progress(LevelWarning, "Error creating playlist: %v", err)
		return
	}
	b.progress(LevelSuccess, "Created playlist for %s", last.Collection)
}

func (b *Batch) pause(ctx context.Context, d time.Duration) error {
	if b.cfg.OverrideAutoWait || d <= 0 {
		return ctx.Err()
	}
	b.log.Debug().Dur("wait", d).Msg("Pausing")
	return b.clock.Sleep(ctx, d)
}

func (b *Batch) progress(level ProgressLevel, format string, args ...any) {
	if b.onProgress != nil {
		b.onProgress(ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}
