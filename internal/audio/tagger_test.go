package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bogem/id3v2"

	"github.com/handiism/tunegrab/internal/model"
)

type fakeFetcher struct {
	data  []byte
	err   error
	calls int
}

func (f *fakeFetcher) DownloadBytes(ctx context.Context, url string) ([]byte, error) {
	f.calls++
	return f.data, f.err
}

func coverPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 64))
	for x := 0; x < 64; x++ {
		img.Set(x, x, color.RGBA{255, 0, 0, 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func testInfo() TagInfo {
	return TagInfo{
		Artist:      "Artist, Guest",
		Title:       "Song",
		Album:       "Album",
		AlbumArtist: "Artist, Guest",
		Year:        "2021",
		DiscNumber:  1,
		TrackNumber: 7,
		Genre:       "Rock",
		Comment:     "id[spotify.com:track:abc]",
		ArtworkURL:  "https://img.example/cover.png",
	}
}

func TestBuildTagInfo(t *testing.T) {
	item := &model.Item{
		ID: "4uLU6hMCjMI75M1A2tKUQC", Kind: model.KindTrack,
		Artists: []string{"A", "B"}, Album: "Hits", Title: "Song", Year: "1999",
		DiscNumber: 1, TrackNumber: 3,
	}

	info := BuildTagInfo(item, "/music/Various Artists/Hits/03 - Song.mp3", "", "")
	if info.Artist != "A, B" {
		t.Errorf("Artist = %q", info.Artist)
	}
	if info.AlbumArtist != VariousArtists {
		t.Errorf("AlbumArtist = %q, want %q", info.AlbumArtist, VariousArtists)
	}
	if info.Genre != UnknownGenre {
		t.Errorf("Genre = %q, want %q", info.Genre, UnknownGenre)
	}
	if info.Comment != "id[spotify.com:track:4uLU6hMCjMI75M1A2tKUQC]" {
		t.Errorf("Comment = %q", info.Comment)
	}

	info = BuildTagInfo(item, "/music/A - Song.mp3", "Pop", "example.org")
	if info.AlbumArtist != "A, B" || info.Genre != "Pop" {
		t.Errorf("got album artist %q genre %q", info.AlbumArtist, info.Genre)
	}

	episode := &model.Item{ID: "ep1", Kind: model.KindEpisode, Album: "Show", Title: "Pilot"}
	if got := BuildTagInfo(episode, "/p/Show/Show-Pilot.ogg", "", "x").Comment; got != "id[x:episode:ep1]" {
		t.Errorf("episode comment = %q", got)
	}
}

func TestID3Tagger_Tag(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Artist - Song.mp3")
	audioBytes := []byte("\xff\xfb\x90\x00 not really mpeg")
	if err := os.WriteFile(path, audioBytes, 0644); err != nil {
		t.Fatal(err)
	}
	fetcher := &fakeFetcher{data: coverPNG(t)}

	tagger := NewTagger(FormatMP3, DefaultTagConfig(), fetcher)
	if _, ok := tagger.(*ID3Tagger); !ok {
		t.Fatalf("NewTagger(mp3) = %T", tagger)
	}
	if err := tagger.Tag(context.Background(), path, testInfo()); err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		t.Fatal(err)
	}
	defer tag.Close()

	checks := map[string]string{
		"TPE1": "Artist, Guest",
		"TIT2": "Song",
		"TALB": "Album",
		"TDRC": "2021",
		"TDOR": "2021",
		"TPOS": "1",
		"TRCK": "7",
		"TPE2": "Artist, Guest",
		"TCON": "Rock",
	}
	for id, want := range checks {
		if got := tag.GetTextFrame(id).Text; got != want {
			t.Errorf("%s = %q, want %q", id, got, want)
		}
	}

	comments := tag.GetFrames(tag.CommonID("Comments"))
	if len(comments) != 1 {
		t.Fatalf("got %d comment frames", len(comments))
	}
	if cf, ok := comments[0].(id3v2.CommentFrame); !ok || cf.Text != "id[spotify.com:track:abc]" || cf.Language != "eng" {
		t.Errorf("comment frame = %+v", comments[0])
	}

	pics := tag.GetFrames(tag.CommonID("Attached picture"))
	if len(pics) != 1 {
		t.Fatalf("got %d picture frames", len(pics))
	}
	pic := pics[0].(id3v2.PictureFrame)
	if pic.PictureType != id3v2.PTFrontCover || pic.MimeType != "image/jpeg" || pic.Description != "Album" {
		t.Errorf("picture frame = type %d mime %q desc %q", pic.PictureType, pic.MimeType, pic.Description)
	}
	if fetcher.calls != 1 {
		t.Errorf("artwork fetched %d times, want 1", fetcher.calls)
	}
}

func TestID3Tagger_Failures(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.mp3")
	os.WriteFile(path, []byte("audio"), 0644)

	tagger := NewTagger(FormatMP3, nil, &fakeFetcher{err: errors.New("404")})
	if err := tagger.Tag(context.Background(), path, testInfo()); !errors.Is(err, ErrTagging) {
		t.Errorf("artwork failure: error = %v, want ErrTagging", err)
	}

	noArt := testInfo()
	noArt.ArtworkURL = ""
	if err := tagger.Tag(context.Background(), filepath.Join(dir, "missing", "x.mp3"), noArt); !errors.Is(err, ErrTagging) {
		t.Errorf("missing file: error = %v, want ErrTagging", err)
	}
}

func TestVorbisComments(t *testing.T) {
	info := testInfo()
	info.DiscNumber = 0

	comments, err := VorbisComments(info, nil)
	if err != nil {
		t.Fatal(err)
	}
	var keys []string
	for _, c := range comments {
		keys = append(keys, c.Key)
	}
	want := "TITLE ARTIST TRACKNUMBER ALBUM ALBUMARTIST DATE GENRE COMMENT"
	if got := strings.Join(keys, " "); got != want {
		t.Errorf("keys = %q, want %q", got, want)
	}
}

func TestPictureBlock(t *testing.T) {
	jpeg, err := NewCoverLoader(&fakeFetcher{data: coverPNG(t)}, nil).Load(context.Background(), "u")
	if err != nil {
		t.Fatal(err)
	}

	encoded, err := PictureBlock(jpeg, "Album")
	if err != nil {
		t.Fatalf("PictureBlock() error = %v", err)
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		t.Fatalf("not base64: %v", err)
	}
	if got := binary.BigEndian.Uint32(raw[:4]); got != 3 {
		t.Errorf("picture type = %d, want 3 (front cover)", got)
	}
	if !bytes.Contains(raw, []byte("image/jpeg")) || !bytes.Contains(raw, []byte("Album")) {
		t.Error("picture block missing mime type or description")
	}
}

func TestVorbisTagger_Tag(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "Artist - Song.ogg")
	os.WriteFile(path, []byte("OggS original"), 0644)

	var metadata string
	var gotArgs []string
	runner := func(ctx context.Context, name string, args ...string) error {
		gotArgs = args
		for i, a := range args {
			if a == "ffmetadata" {
				data, err := os.ReadFile(args[i+2])
				if err != nil {
					return err
				}
				metadata = string(data)
			}
		}
		return os.WriteFile(args[len(args)-1], []byte("OggS tagged"), 0644)
	}

	cfg := DefaultTagConfig()
	tagger := NewTagger(FormatOGG, cfg, &fakeFetcher{data: coverPNG(t)}).(*VorbisTagger).WithCommandRunner(runner)
	if err := tagger.Tag(context.Background(), path, testInfo()); err != nil {
		t.Fatalf("Tag() error = %v", err)
	}

	if !strings.HasPrefix(metadata, ";FFMETADATA1\n") {
		t.Errorf("metadata header missing:\n%s", metadata)
	}
	for _, want := range []string{"TITLE=Song\n", "GENRE=Rock\n", "COMMENT=id[spotify.com:track:abc]\n", "METADATA_BLOCK_PICTURE="} {
		if !strings.Contains(metadata, want) {
			t.Errorf("metadata missing %q", want)
		}
	}
	if !strings.Contains(strings.Join(gotArgs, " "), "-c copy") {
		t.Errorf("stream must be copied, args = %v", gotArgs)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "OggS tagged" {
		t.Errorf("file not replaced, content = %q", data)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("leftover files in %s: %d entries", dir, len(entries))
	}
}

func TestVorbisTagger_Failure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.ogg")
	os.WriteFile(path, []byte("OggS"), 0644)

	info := testInfo()
	info.ArtworkURL = ""
	tagger := NewVorbisTagger(nil, nil).WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		return errors.New("exit status 1")
	})
	if err := tagger.Tag(context.Background(), path, info); !errors.Is(err, ErrTagging) {
		t.Errorf("Tag() error = %v, want ErrTagging", err)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "OggS" {
		t.Error("original file modified on failure")
	}
}
