package acquire

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/handiism/tunegrab/internal/archive"
	"github.com/handiism/tunegrab/internal/audio"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

type harness struct {
	cfg        Config
	catalog    *fakeCatalog
	streamer   *fakeStreamer
	transcoder *fakeTranscoder
	tagger     *fakeTagger
	genres     *fakeGenres
	clock      *fakeClock
	events     []ProgressEvent
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	cfg := DefaultConfig()
	cfg.Paths = model.PathConfig{
		TracksRoot:   filepath.Join(root, "music"),
		EpisodesRoot: filepath.Join(root, "podcasts"),
		Extension:    "mp3",
	}
	cfg.Reader = stream.Config{ChunkSize: 4, MaxEmptyReads: 2}

	return &harness{
		cfg: cfg,
		catalog: &fakeCatalog{items: map[string]*model.Item{
			"t1":     {ID: "t1", Kind: model.KindTrack, Artists: []string{"Artist"}, ArtistID: "a1", Album: "Album", Title: "Song", Year: "2020", TrackNumber: 1, DiscNumber: 1, Playable: true, Duration: 3 * time.Second},
			"t2":     {ID: "t2", Kind: model.KindTrack, Artists: []string{"Artist"}, ArtistID: "a1", Album: "Album", Title: "Other", TrackNumber: 2, DiscNumber: 1, Playable: true},
			"locked": {ID: "locked", Kind: model.KindTrack, Artists: []string{"Artist"}, Title: "Locked", Playable: false},
			"alias":  {ID: "canonical", Kind: model.KindTrack, Artists: []string{"Artist"}, ArtistID: "a1", Title: "Relinked", Playable: true},
			"ep1":    {ID: "ep1", Kind: model.KindEpisode, Album: "Show", Title: "Pilot", Playable: true},
		}},
		streamer: &fakeStreamer{data: map[string][]byte{
			"t1":        []byte("first track stream"),
			"t2":        []byte("second track stream"),
			"canonical": []byte("relinked stream"),
			"ep1":       []byte("episode stream"),
		}},
		transcoder: &fakeTranscoder{},
		tagger:     &fakeTagger{},
		genres:     &fakeGenres{genres: map[string]string{"a1": "Rock, Indie"}},
		clock:      newFakeClock(),
	}
}

func (h *harness) orchestrator() *Orchestrator {
	return NewOrchestrator(h.cfg, Deps{
		Catalog:    h.catalog,
		Streamer:   h.streamer,
		Genres:     h.genres,
		Transcoder: h.transcoder,
		Tagger:     h.tagger,
		Clock:      h.clock,
		OnProgress: func(e ProgressEvent) { h.events = append(h.events, e) },
	})
}

func ledgerIDs(t *testing.T, cfg Config, kind model.Kind) []string {
	t.Helper()
	entries, err := archive.ForKind(&cfg.Paths, kind).Entries()
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ItemID)
	}
	return ids
}

func TestAcquire_Records(t *testing.T) {
	h := newHarness(t)
	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}

	if out.State != StateRecorded || out.Attempts != 1 {
		t.Errorf("outcome = %v after %d attempts, want recorded after 1", out.State, out.Attempts)
	}
	wantPath := filepath.Join(h.cfg.Paths.TracksRoot, "Artist - Song.mp3")
	if out.Path != wantPath {
		t.Errorf("Path = %q, want %q", out.Path, wantPath)
	}
	data, err := os.ReadFile(out.Path)
	if err != nil || string(data) != "first track stream" {
		t.Errorf("final file = %q, %v", data, err)
	}
	if _, err := os.Stat(model.TempPath(out.Path)); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); !reflect.DeepEqual(ids, []string{"t1"}) {
		t.Errorf("ledger = %v", ids)
	}

	entries, _ := archive.ForKind(&h.cfg.Paths, model.KindTrack).Entries()
	if e := entries[0]; e.Author != "Artist" || e.Title != "Song" || e.Filename != "Artist - Song.mp3" {
		t.Errorf("entry = %+v", e)
	}

	if len(h.tagger.infos) != 1 {
		t.Fatalf("tagger called %d times", len(h.tagger.infos))
	}
	info := h.tagger.infos[0]
	if info.Genre != "Rock, Indie" || info.Comment != "id[spotify.com:track:t1]" || info.TrackNumber != 1 {
		t.Errorf("tag info = %+v", info)
	}
	if !h.streamer.handles[0].closed {
		t.Error("stream handle not closed")
	}
}

func TestAcquire_Idempotent(t *testing.T) {
	h := newHarness(t)
	o := h.orchestrator()
	req := Request{Kind: model.KindTrack, ID: "t1"}

	if _, err := o.Acquire(context.Background(), req); err != nil {
		t.Fatal(err)
	}

	out, err := o.Acquire(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateSkipped || out.Reason != "already exists" {
		t.Errorf("second run = %v (%s), want skipped existing", out.State, out.Reason)
	}

	// With the file gone, the ledger alone keeps the item skipped.
	os.Remove(out.Path)
	out, err = o.Acquire(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateSkipped || out.Reason != "previously downloaded" {
		t.Errorf("third run = %v (%s), want skipped from ledger", out.State, out.Reason)
	}

	if h.streamer.opens != 1 {
		t.Errorf("stream opened %d times, want 1", h.streamer.opens)
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); len(ids) != 1 {
		t.Errorf("ledger has %d entries, want 1", len(ids))
	}
}

func TestAcquire_SkipRulesDisabled(t *testing.T) {
	h := newHarness(t)
	h.cfg.SkipExisting = false
	h.cfg.SkipPreviouslyDownloaded = false
	o := h.orchestrator()
	req := Request{Kind: model.KindTrack, ID: "t1"}

	for i := 0; i < 2; i++ {
		if out, err := o.Acquire(context.Background(), req); err != nil || out.State != StateRecorded {
			t.Fatalf("run %d: %v, %v", i, out.State, err)
		}
	}
	if h.streamer.opens != 2 {
		t.Errorf("opens = %d, want 2", h.streamer.opens)
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); len(ids) != 2 {
		t.Errorf("ledger = %v, want duplicate entries", ids)
	}
}

func TestAcquire_NotPlayable(t *testing.T) {
	h := newHarness(t)
	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "locked"})
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateSkipped {
		t.Errorf("State = %v, want skipped", out.State)
	}
	if h.streamer.opens != 0 {
		t.Errorf("stream opened %d times", h.streamer.opens)
	}
	if _, err := os.Stat(archive.ForKind(&h.cfg.Paths, model.KindTrack).Path()); !os.IsNotExist(err) {
		t.Error("ledger written for a skipped item")
	}
}

func TestAcquire_CanonicalID(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "alias"}); err != nil {
		t.Fatal(err)
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); !reflect.DeepEqual(ids, []string{"canonical"}) {
		t.Errorf("ledger = %v, want resolved id", ids)
	}
}

func TestAcquire_Episode(t *testing.T) {
	h := newHarness(t)
	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindEpisode, ID: "ep1"})
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(h.cfg.Paths.EpisodesRoot, "Show", "Show-Pilot.mp3")
	if out.Path != want {
		t.Errorf("Path = %q, want %q", out.Path, want)
	}
	if ids := ledgerIDs(t, h.cfg, model.KindEpisode); !reflect.DeepEqual(ids, []string{"ep1"}) {
		t.Errorf("episode ledger = %v", ids)
	}
	if h.genres.calls != 0 {
		t.Error("genre looked up for an episode")
	}
	if got := h.tagger.infos[0]; got.Genre != audio.UnknownGenre || got.Artist != "Show" {
		t.Errorf("episode tags = %+v", got)
	}
}

func TestAcquire_RawNeverTags(t *testing.T) {
	h := newHarness(t)
	h.cfg.Raw = true
	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if len(h.tagger.infos) != 0 {
		t.Errorf("raw mode tagged %d times", len(h.tagger.infos))
	}
	if filepath.Ext(out.Path) != ".ogg" {
		t.Errorf("raw output %q should use .ogg", out.Path)
	}
	if out.State != StateRecorded {
		t.Errorf("State = %v", out.State)
	}
}

func TestAcquire_RetriesUntilSuccess(t *testing.T) {
	h := newHarness(t)
	h.cfg.Retry.FailureBackoff = 2 * time.Second
	h.streamer.failures = 1
	h.transcoder.failures = 1
	h.tagger.failures = 1

	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if out.State != StateRecorded || out.Attempts != 4 {
		t.Errorf("outcome = %v after %d attempts, want recorded after 4", out.State, out.Attempts)
	}
	if got := h.clock.nonZeroSleeps(); !reflect.DeepEqual(got, []time.Duration{2 * time.Second, 2 * time.Second, 2 * time.Second}) {
		t.Errorf("backoffs = %v", got)
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); len(ids) != 1 {
		t.Errorf("ledger = %v", ids)
	}
}

func TestAcquire_MetadataBackoff(t *testing.T) {
	h := newHarness(t)
	h.catalog.failures = 2

	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if err != nil {
		t.Fatal(err)
	}
	if out.State != StateRecorded {
		t.Errorf("State = %v", out.State)
	}
	if got := h.clock.nonZeroSleeps(); !reflect.DeepEqual(got, []time.Duration{time.Minute, time.Minute}) {
		t.Errorf("metadata backoffs = %v, want two 60s waits", got)
	}
}

func TestAcquire_RetriesExhausted(t *testing.T) {
	h := newHarness(t)
	h.cfg.Retry.MaxAttempts = 2
	h.tagger.failures = -1

	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if !errors.Is(err, ErrRetriesExhausted) || !errors.Is(err, ErrTagging) {
		t.Fatalf("Acquire() error = %v, want exhausted tagging failure", err)
	}
	if out.State != StateFailed || out.Attempts != 2 {
		t.Errorf("outcome = %v after %d attempts", out.State, out.Attempts)
	}
	if _, err := os.Stat(out.Path); !os.IsNotExist(err) {
		t.Error("partial final file left behind")
	}
	if ids := ledgerIDs(t, h.cfg, model.KindTrack); len(ids) != 0 {
		t.Errorf("failed item recorded: %v", ids)
	}
}

func TestAcquire_IncompleteStream(t *testing.T) {
	h := newHarness(t)
	h.cfg.Retry.MaxAttempts = 1
	h.streamer.truncate = 10

	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if !errors.Is(err, ErrIncompleteStream) {
		t.Fatalf("Acquire() error = %v, want ErrIncompleteStream", err)
	}
	if h.transcoder.calls != 0 {
		t.Error("incomplete stream was transcoded")
	}
	if _, err := os.Stat(model.TempPath(out.Path)); !os.IsNotExist(err) {
		t.Error("temporary file left behind")
	}
}

func TestAcquire_LedgerFailureNotRetried(t *testing.T) {
	h := newHarness(t)
	ledgerPath := archive.ForKind(&h.cfg.Paths, model.KindTrack).Path()
	if err := os.MkdirAll(ledgerPath, 0755); err != nil {
		t.Fatal(err)
	}

	out, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"})
	if !errors.Is(err, ErrIO) {
		t.Fatalf("Acquire() error = %v, want ErrIO", err)
	}
	if out.Attempts != 1 || h.catalog.calls != 1 {
		t.Errorf("IO failure retried: %d attempts", out.Attempts)
	}
}

func TestAcquire_CancelledDuringBackoff(t *testing.T) {
	h := newHarness(t)
	h.catalog.failures = 100
	ctx, cancel := context.WithCancel(context.Background())
	h.clock.cancel = cancel

	_, err := h.orchestrator().Acquire(ctx, Request{Kind: model.KindTrack, ID: "t1"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Acquire() error = %v, want context.Canceled", err)
	}
	if h.catalog.calls != 1 {
		t.Errorf("catalog called %d times after cancellation", h.catalog.calls)
	}
}

func TestAcquire_RealtimeUsesQualityChunks(t *testing.T) {
	h := newHarness(t)
	h.cfg.Realtime = true
	h.cfg.Quality = audio.QualityHigh

	if _, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"}); err != nil {
		t.Fatal(err)
	}
	if h.streamer.qualities[0] != audio.QualityHigh {
		t.Errorf("quality = %v", h.streamer.qualities[0])
	}
	// The whole payload fits one 40000-byte chunk; pacing waits out the
	// 3 s track duration.
	var slept time.Duration
	for _, d := range h.clock.nonZeroSleeps() {
		slept += d
	}
	if slept != 3*time.Second {
		t.Errorf("paced for %v, want 3s", slept)
	}
}

func TestAcquire_ProgressEvents(t *testing.T) {
	h := newHarness(t)
	if _, err := h.orchestrator().Acquire(context.Background(), Request{Kind: model.KindTrack, ID: "t1"}); err != nil {
		t.Fatal(err)
	}
	last := h.events[len(h.events)-1]
	if last.Level != LevelSuccess || !strings.Contains(last.Message, "Artist - Song.mp3") {
		t.Errorf("last event = %+v", last)
	}
}

func TestGenreCache(t *testing.T) {
	lookup := &fakeGenres{genres: map[string]string{"a1": "Jazz", "a2": ""}}
	cache := NewGenreCache(lookup, testLogger())
	ctx := context.Background()

	if got := cache.Get(ctx, "a1"); got != "Jazz" {
		t.Errorf("Get(a1) = %q", got)
	}
	cache.Get(ctx, "a1")
	if lookup.calls != 1 {
		t.Errorf("lookup called %d times, want 1", lookup.calls)
	}
	if got := cache.Get(ctx, "a2"); got != audio.UnknownGenre {
		t.Errorf("empty genre = %q, want Unknown", got)
	}

	lookup.fail = true
	if got := cache.Get(ctx, "a3"); got != audio.UnknownGenre {
		t.Errorf("failed lookup = %q", got)
	}
	cache.Get(ctx, "a3")
	if lookup.calls != 4 {
		t.Errorf("failed lookups should not be cached, calls = %d", lookup.calls)
	}
	if cache.Len() != 2 {
		t.Errorf("Len() = %d, want 2", cache.Len())
	}
}

func TestRetryPolicy_Delay(t *testing.T) {
	p := RetryPolicy{Exponent: 2}
	if got := p.delay(time.Second, 3); got != 4*time.Second {
		t.Errorf("delay = %v, want 4s", got)
	}
	if got := DefaultRetryPolicy().delay(time.Minute, 5); got != time.Minute {
		t.Errorf("fixed delay = %v", got)
	}
	if (RetryPolicy{}).exhausted(1000) {
		t.Error("zero MaxAttempts should be unbounded")
	}
}

func TestState(t *testing.T) {
	for _, s := range []State{StateSkipped, StateRecorded, StateFailed} {
		if !s.Terminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	if StateFetching.Terminal() || StateFetching.String() != "fetching" {
		t.Error("fetching state misreported")
	}
}
