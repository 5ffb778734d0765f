package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two acquirable media types. Each kind has its own
// output root and its own archive ledger.
type Kind int

const (
	// KindTrack is a music track.
	KindTrack Kind = iota

	// KindEpisode is a podcast episode.
	KindEpisode
)

// String returns the lowercase name used in references, URLs and comments.
func (k Kind) String() string {
	switch k {
	case KindEpisode:
		return "episode"
	default:
		return "track"
	}
}

// ParseKind parses "track" or "episode" (plural forms accepted).
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "track", "tracks", "song", "songs":
		return KindTrack, nil
	case "episode", "episodes":
		return KindEpisode, nil
	default:
		return KindTrack, fmt.Errorf("unknown item kind %q", s)
	}
}

// Item represents a single track or episode as resolved by the catalog.
//
// An Item is built once per acquisition attempt and not modified while the
// attempt runs. ID is the canonical identifier returned by the catalog and
// may differ from the identifier that was requested.
type Item struct {
	// ID is the canonical catalog identifier.
	ID string

	// Kind is track or episode.
	Kind Kind

	// Artists lists the performing artists, primary artist first.
	// Empty for episodes.
	Artists []string

	// ArtistID identifies the primary artist for genre lookup.
	ArtistID string

	// Album is the album title, or the show name for episodes.
	Album string

	// Title is the track or episode title.
	Title string

	// Year is the release year as text ("2021"); may be empty.
	Year string

	// ReleaseDate is the full release date as reported by the catalog.
	ReleaseDate string

	// DiscNumber is the disc position (1-indexed, 0 when unknown).
	DiscNumber int

	// TrackNumber is the track position on its disc (1-indexed).
	TrackNumber int

	// ArtworkURL points at the cover image. Empty when none is available.
	ArtworkURL string

	// Duration is the playback length, used for real-time pacing.
	Duration time.Duration

	// Playable is false when the catalog reports the item as unavailable
	// (licensing or region restrictions).
	Playable bool
}

// PrimaryArtist returns the first artist, or the show name for episodes.
func (i *Item) PrimaryArtist() string {
	if len(i.Artists) > 0 {
		return i.Artists[0]
	}
	return i.Album
}

// ArtistLine joins all artists with ", " for display and tagging.
func (i *Item) ArtistLine() string {
	return strings.Join(i.Artists, ", ")
}

// HasArtwork returns true if the item has cover art available for download.
func (i *Item) HasArtwork() bool {
	return i.ArtworkURL != ""
}

// DisplayName returns "Artist - Title" for tracks and "Show - Title" for episodes.
func (i *Item) DisplayName() string {
	author := i.PrimaryArtist()
	if author == "" {
		return i.Title
	}
	return author + " - " + i.Title
}
