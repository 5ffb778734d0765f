package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// PathConfig holds the output naming policy.
//
// FileNameFormat, when set, is a template relative to TracksRoot for track
// files. It may contain "/" to create sub-directories and supports the
// placeholders {ARTIST}, {ALBUM}, {TITLE}, {YEAR}, {DISC}, {TRACK} and
// {EXT}. A leading {ROOT_PATH} is accepted and ignored.
//
// Example:
//
//	cfg := &PathConfig{
//	    TracksRoot:     "/music",
//	    FileNameFormat: "{ARTIST}/{ALBUM} ({YEAR})/{TRACK} - {TITLE}.{EXT}",
//	    Extension:      "mp3",
//	}
type PathConfig struct {
	// TracksRoot is the directory for music tracks and the song ledger.
	TracksRoot string

	// EpisodesRoot is the directory for podcast episodes and the episode ledger.
	EpisodesRoot string

	// FileNameFormat is the optional track naming template.
	FileNameFormat string

	// AlbumInFileName selects "{ARTIST} - {ALBUM} - {TITLE}" over
	// "{ARTIST} - {TITLE}" when no template is configured.
	AlbumInFileName bool

	// Extension is the final file extension without the dot ("mp3", "ogg").
	Extension string
}

// Placement describes where an item sits inside the collection that
// requested it.
type Placement struct {
	// Dir is a sub-directory below the kind root (album or playlist folder).
	Dir string

	// Numbered switches to "{TRACK} - {TITLE}" names, used for albums.
	Numbered bool

	// MultiDisc prefixes track numbers with the disc number when the
	// album spans several discs and is not split into per-disc folders.
	MultiDisc bool
}

// Root returns the output root for the given kind.
func (c *PathConfig) Root(kind Kind) string {
	if kind == KindEpisode {
		return c.EpisodesRoot
	}
	return c.TracksRoot
}

// OutputPath computes the final file path for an item.
//
// The result is deterministic: the same item, placement and configuration
// always produce the same path.
func (c *PathConfig) OutputPath(item *Item, place Placement) string {
	ext := c.Extension
	if ext == "" {
		ext = "mp3"
	}

	if item.Kind == KindEpisode {
		show := SanitizeFileName(item.Album)
		name := SanitizeFileName(item.Album + "-" + item.Title)
		return filepath.Join(c.EpisodesRoot, show, name+"."+ext)
	}

	trackNum := formatTrackNumber(item, place.MultiDisc)
	base := filepath.Join(c.TracksRoot, place.Dir)

	switch {
	case place.Numbered:
		return filepath.Join(base, SanitizeFileName(trackNum+" - "+item.Title)+"."+ext)
	case c.FileNameFormat != "":
		return filepath.Join(base, c.renderTemplate(item, trackNum, ext))
	case c.AlbumInFileName:
		name := item.PrimaryArtist() + " - " + item.Album + " - " + item.Title
		return filepath.Join(base, SanitizeFileName(name)+"."+ext)
	default:
		name := item.PrimaryArtist() + " - " + item.Title
		return filepath.Join(base, SanitizeFileName(name)+"."+ext)
	}
}

// TempPath returns the sibling path the raw stream is written to before
// conversion: the final path with its extension replaced by "-vorbis.raw".
func TempPath(finalPath string) string {
	return strings.TrimSuffix(finalPath, filepath.Ext(finalPath)) + "-vorbis.raw"
}

// renderTemplate expands FileNameFormat. Each "/"-separated segment is
// sanitized separately so placeholder values cannot introduce directories.
// Placeholders are replaced in a single pass, so a value that itself
// contains a placeholder token is kept literally.
func (c *PathConfig) renderTemplate(item *Item, trackNum, ext string) string {
	values := strings.NewReplacer(
		"{ARTIST}", SanitizeFileName(item.PrimaryArtist()),
		"{ALBUM}", SanitizeFileName(item.Album),
		"{TITLE}", SanitizeFileName(item.Title),
		"{YEAR}", SanitizeFileName(item.Year),
		"{DISC}", strconv.Itoa(item.DiscNumber),
		"{TRACK}", trackNum,
		"{EXT}", ext,
	)

	format := strings.TrimPrefix(c.FileNameFormat, "{ROOT_PATH}")
	var parts []string
	for _, segment := range strings.Split(format, "/") {
		if segment == "" {
			continue
		}
		if segment = SanitizeFileName(values.Replace(segment)); segment != "" {
			parts = append(parts, segment)
		}
	}
	return filepath.Join(parts...)
}

func formatTrackNumber(item *Item, multiDisc bool) string {
	num := fmt.Sprintf("%02d", item.TrackNumber)
	if multiDisc && item.DiscNumber > 0 {
		return strconv.Itoa(item.DiscNumber) + num
	}
	return num
}

var (
	invalidChars     = regexp.MustCompile(`[<>:"/\\|?*'\x00-\x1f]`)
	trailingDots     = regexp.MustCompile(`\.+$`)
	repeatedSpace    = regexp.MustCompile(`\s+`)
	slashInBandNames = strings.NewReplacer("AC/DC", "AC⚡DC")
)

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// The following transformations are applied:
//   - "AC/DC" keeps its identity as "AC⚡DC"
//   - "|" becomes "-"
//   - Invalid characters (<>:"/\?*' and control chars) are removed
//   - Trailing dots are removed (Windows limitation)
//   - Multiple whitespace is collapsed to single space
//   - Leading and trailing whitespace is removed
//   - The result is NFC-normalized
//
// Example:
//
//	SanitizeFileName("Song: Part 1/2") // Returns "Song Part 12"
func SanitizeFileName(name string) string {
	name = slashInBandNames.Replace(name)
	name = strings.ReplaceAll(name, "|", "-")
	name = invalidChars.ReplaceAllString(name, "")
	name = repeatedSpace.ReplaceAllString(name, " ")
	name = strings.TrimSpace(name)
	name = trailingDots.ReplaceAllString(name, "")
	name = strings.TrimRight(name, " ")
	return norm.NFC.String(name)
}
