package audio

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/model"
)

// ErrTagging reports that metadata could not be embedded.
var ErrTagging = errors.New("tagging failed")

// Defaults for tag values the catalog may not provide.
const (
	UnknownGenre   = "Unknown"
	VariousArtists = "Various Artists"

	// DefaultNamespace is the source namespace written into the comment.
	DefaultNamespace = "spotify.com"

	// DefaultArtworkSize bounds the embedded cover edge length in pixels.
	DefaultArtworkSize = 640
)

// TagInfo is the metadata embedded into one file.
type TagInfo struct {
	Artist      string
	Title       string
	Album       string
	AlbumArtist string
	Year        string
	DiscNumber  int
	TrackNumber int
	Genre       string
	Comment     string
	ArtworkURL  string
}

// Tagger embeds metadata into a finished audio file.
type Tagger interface {
	Tag(ctx context.Context, path string, info TagInfo) error
}

// ArtworkFetcher downloads cover art. *http.Client satisfies it.
type ArtworkFetcher interface {
	DownloadBytes(ctx context.Context, url string) ([]byte, error)
}

// TagConfig controls how tags are built and embedded.
//
// Example:
//
//	cfg := &TagConfig{
//	    Namespace:    "spotify.com",
//	    EmbedArtwork: true,
//	    ArtworkSize:  640,
//	}
type TagConfig struct {
	// Namespace prefixes the item id in the comment tag.
	Namespace string

	// EmbedArtwork fetches and embeds the front cover.
	EmbedArtwork bool

	// ArtworkSize is the maximum cover edge length; 0 keeps the original size.
	ArtworkSize int

	// FFmpegPath is used by the Vorbis tagger, default "ffmpeg".
	FFmpegPath string
}

// DefaultTagConfig returns the default tag configuration.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		Namespace:    DefaultNamespace,
		EmbedArtwork: true,
		ArtworkSize:  DefaultArtworkSize,
		FFmpegPath:   "ffmpeg",
	}
}

// NewTagger returns the Tagger for a format: ID3 for mp3, Vorbis comments
// for ogg. If config is nil, DefaultTagConfig() is used.
func NewTagger(format Format, config *TagConfig, fetcher ArtworkFetcher) Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	cover := NewCoverLoader(fetcher, config)
	if format == FormatOGG {
		return NewVorbisTagger(config, cover)
	}
	return NewID3Tagger(cover)
}

// BuildTagInfo derives the tag values for an item written to path.
//
// Field rules:
//   - Artist: all artists joined with ", "
//   - AlbumArtist: "Various Artists" when the destination path contains
//     that phrase, else the joined artist
//   - Genre: "Unknown" when empty
//   - Comment: the source id, see SourceComment
//
// Parameters:
//   - item: The resolved item
//   - path: The final output path
//   - genre: The artist's genre line from the genre cache
//   - namespace: The comment namespace, DefaultNamespace when empty
//
// Example:
//
//	info := BuildTagInfo(item, "/music/Various Artists/Hits/01 - Song.mp3", "", "")
//	// info.AlbumArtist == "Various Artists", info.Genre == "Unknown"
func BuildTagInfo(item *model.Item, path, genre, namespace string) TagInfo {
	artist := item.ArtistLine()
	if artist == "" {
		artist = item.PrimaryArtist()
	}
	if genre == "" {
		genre = UnknownGenre
	}
	return TagInfo{
		Artist:      artist,
		Title:       item.Title,
		Album:       item.Album,
		AlbumArtist: AlbumArtistFor(path, artist),
		Year:        item.Year,
		DiscNumber:  item.DiscNumber,
		TrackNumber: item.TrackNumber,
		Genre:       genre,
		Comment:     SourceComment(namespace, item.Kind, item.ID),
		ArtworkURL:  item.ArtworkURL,
	}
}

// AlbumArtistFor returns "Various Artists" when path contains it, else artist.
func AlbumArtistFor(path, artist string) string {
	if strings.Contains(path, VariousArtists) {
		return VariousArtists
	}
	return artist
}

// SourceComment formats the comment tag, e.g. "id[spotify.com:track:4uLU6hMCjMI75M1A2tKUQC]".
func SourceComment(namespace string, kind model.Kind, id string) string {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return fmt.Sprintf("id[%s:%s:%s]", namespace, kind, id)
}

func positiveNumber(n int) string {
	if n <= 0 {
		return ""
	}
	return strconv.Itoa(n)
}

// CoverLoader fetches the cover for every tagging call; nothing is cached.
type CoverLoader struct {
	fetcher ArtworkFetcher
	images  *ioutils.ImageService
	enabled bool
	maxSize int
}

// NewCoverLoader creates a CoverLoader using the artwork settings of cfg.
func NewCoverLoader(fetcher ArtworkFetcher, cfg *TagConfig) *CoverLoader {
	if cfg == nil {
		cfg = DefaultTagConfig()
	}
	return &CoverLoader{
		fetcher: fetcher,
		images:  ioutils.NewImageService(),
		enabled: cfg.EmbedArtwork,
		maxSize: cfg.ArtworkSize,
	}
}

// Load returns JPEG cover bytes, or nil when artwork is disabled or absent.
func (c *CoverLoader) Load(ctx context.Context, url string) ([]byte, error) {
	if c == nil || !c.enabled || c.fetcher == nil || url == "" {
		return nil, nil
	}
	data, err := c.fetcher.DownloadBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch cover: %w", err)
	}
	jpeg, err := c.images.PrepareArtwork(ctx, data, c.maxSize)
	if err != nil {
		return nil, fmt.Errorf("prepare cover: %w", err)
	}
	return jpeg, nil
}
