package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/acquire"
	"github.com/handiism/tunegrab/internal/audio"
	"github.com/handiism/tunegrab/internal/config"
	"github.com/handiism/tunegrab/internal/gateway"
	"github.com/handiism/tunegrab/internal/http"
	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/logging"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// LockFileName is the advisory lock taken in every output root during a run.
const LockFileName = ".tunegrab.lock"

var (
	// ErrNothingToDownload is returned when no input expanded to any item.
	ErrNothingToDownload = errors.New("nothing to download")

	// ErrLocked is returned when another process holds an output root.
	ErrLocked = errors.New("output directory is in use by another tunegrab process")
)

// Manager coordinates a run: it expands references into requests and
// feeds them to a sequential acquisition batch.
type Manager struct {
	settings   *config.Settings
	httpClient *http.Client
	gateway    *gateway.Gateway

	requests    []acquire.Request
	collections []string

	totalBytes      atomic.Int64
	receivedBytes   atomic.Int64
	totalFiles      atomic.Int32
	downloadedFiles atomic.Int32

	onProgress   acquire.ProgressFunc
	byteProgress acquire.ByteProgressFunc
	runner       audio.CommandRunner
	clock        stream.Clock
	log          zerolog.Logger
}

// NewManager creates a new download Manager.
func NewManager(settings *config.Settings, onProgress acquire.ProgressFunc) (*Manager, error) {
	client := http.NewClient(settings.ToHTTPConfig())
	log := logging.Component("download")

	gw, err := gateway.New(settings.GatewayURL, client, logging.Component("gateway"))
	if err != nil {
		return nil, err
	}
	gw.WithExpandOptions(settings.ToExpandOptions())

	return &Manager{
		settings:   settings,
		httpClient: client,
		gateway:    gw,
		onProgress: onProgress,
		clock:      stream.SystemClock,
		log:        log,
	}, nil
}

// WithByteProgress adds a byte-level progress sink for every fetch.
func (m *Manager) WithByteProgress(fn acquire.ByteProgressFunc) *Manager {
	m.byteProgress = fn
	return m
}

// WithCommandRunner replaces the ffmpeg runner.
func (m *Manager) WithCommandRunner(run audio.CommandRunner) *Manager {
	m.runner = run
	return m
}

// WithClock replaces the clock used for pacing and pauses.
func (m *Manager) WithClock(clock stream.Clock) *Manager {
	if clock != nil {
		m.clock = clock
	}
	return m
}

// Initialize parses the input references and expands them into requests.
// Input is split on whitespace. A reference that cannot be parsed or
// expanded is reported and skipped.
func (m *Manager) Initialize(ctx context.Context, input string) error {
	m.requests = nil
	m.collections = nil

	for _, raw := range parseInput(input) {
		ref, err := gateway.ParseRef(raw)
		if err != nil {
			m.progress(acquire.LevelError, "Skipping %s: %v", raw, err)
			continue
		}

		m.progress(acquire.LevelVerbose, "Fetching info: %s", ref)
		reqs, err := m.gateway.Expand(ctx, []gateway.Ref{ref})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			m.progress(acquire.LevelError, "Error getting items from %s: %v", ref, err)
			continue
		}
		if len(reqs) == 0 {
			m.progress(acquire.LevelInfo, "Nothing new in %s, everything was downloaded before", ref)
			continue
		}

		if name := reqs[0].Collection; name != "" {
			m.collections = append(m.collections, fmt.Sprintf("%s (%d items)", name, len(reqs)))
			m.progress(acquire.LevelInfo, "Found %s: %s (%d items)", ref.Type, name, len(reqs))
		}
		m.requests = append(m.requests, reqs...)
	}

	if len(m.requests) == 0 {
		return ErrNothingToDownload
	}
	m.totalFiles.Store(int32(len(m.requests)))
	return nil
}

// Requests returns the expanded requests in run order.
func (m *Manager) Requests() []acquire.Request {
	return slices.Clone(m.requests)
}

// StartDownloads runs every initialized request one after another while
// holding the output root locks.
func (m *Manager) StartDownloads(ctx context.Context) (*acquire.Summary, error) {
	if len(m.requests) == 0 {
		return nil, ErrNothingToDownload
	}

	unlock, err := m.lockRoots()
	if err != nil {
		return nil, err
	}
	defer unlock()

	m.log.Info().Int("requests", len(m.requests)).Str("tracks_root", m.settings.TracksRoot).Msg("Starting downloads")
	batch := acquire.NewBatch(m.newOrchestrator(), m.batchConfig(), m.onProgress)
	return batch.Run(ctx, m.requests)
}

// GetProgress returns current download progress. Bytes count every fetch
// attempt, so a retried item contributes its size once per attempt.
func (m *Manager) GetProgress() (received, total int64, filesDone, filesTotal int32) {
	return m.receivedBytes.Load(), m.totalBytes.Load(),
		m.downloadedFiles.Load(), m.totalFiles.Load()
}

// GetCollectionNames returns the names of the albums, playlists and shows
// found during Initialize.
func (m *Manager) GetCollectionNames() []string {
	return slices.Clone(m.collections)
}

func (m *Manager) newOrchestrator() *acquire.Orchestrator {
	tcfg := m.settings.ToTranscodeConfig()
	transcoder := audio.NewTranscoder(tcfg).WithCommandRunner(m.runner)

	format := tcfg.Format
	if tcfg.Mode == audio.ModeRaw {
		format = audio.FormatOGG
	}
	tagger := audio.NewTagger(format, m.settings.ToTagConfig(), m.httpClient)
	if vt, ok := tagger.(*audio.VorbisTagger); ok && m.runner != nil {
		vt.WithCommandRunner(m.runner)
	}

	return acquire.NewOrchestrator(m.settings.ToAcquireConfig(), acquire.Deps{
		Catalog:      m.gateway,
		Streamer:     m.gateway,
		Genres:       m.gateway,
		Transcoder:   transcoder,
		Tagger:       tagger,
		Clock:        m.clock,
		OnProgress:   m.onProgress,
		ByteProgress: m.trackBytes,
	})
}

func (m *Manager) batchConfig() acquire.BatchConfig {
	cfg := m.settings.ToBatchConfig()
	cfg.OnOutcome = func(acquire.Outcome) {
		m.downloadedFiles.Add(1)
	}
	return cfg
}

// trackBytes counts bytes for GetProgress and forwards to the external sink.
func (m *Manager) trackBytes(item *model.Item, total int64) stream.Progress {
	m.totalBytes.Add(total)

	var external stream.Progress
	if m.byteProgress != nil {
		external = m.byteProgress(item, total)
	}
	return stream.MultiProgress{byteCounter{n: &m.receivedBytes}, external}
}

type byteCounter struct {
	n *atomic.Int64
}

func (c byteCounter) Add(n int) error {
	c.n.Add(int64(n))
	return nil
}

// lockRoots takes the advisory lock in each distinct output root.
func (m *Manager) lockRoots() (func(), error) {
	roots := []string{m.settings.TracksRoot}
	if m.settings.EpisodesRoot != m.settings.TracksRoot {
		roots = append(roots, m.settings.EpisodesRoot)
	}

	var locks []*flock.Flock
	release := func() {
		for _, l := range locks {
			_ = l.Unlock()
		}
	}

	for _, root := range roots {
		if err := ioutils.EnsureDir(root); err != nil {
			release()
			return nil, err
		}
		l := flock.New(filepath.Join(root, LockFileName))
		locked, err := l.TryLock()
		if err != nil {
			release()
			return nil, fmt.Errorf("lock %s: %w", root, err)
		}
		if !locked {
			release()
			return nil, fmt.Errorf("%w: %s", ErrLocked, root)
		}
		locks = append(locks, l)
	}
	return release, nil
}

func (m *Manager) progress(level acquire.ProgressLevel, format string, args ...any) {
	if m.onProgress != nil {
		m.onProgress(acquire.ProgressEvent{Message: fmt.Sprintf(format, args...), Level: level})
	}
}

// parseInput splits user input into references.
func parseInput(input string) []string {
	return strings.Fields(input)
}
