package gateway

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidRef is returned when a reference cannot be parsed.
var ErrInvalidRef = errors.New("invalid reference")

// RefType is what a reference points at.
type RefType string

const (
	RefTrack    RefType = "track"
	RefEpisode  RefType = "episode"
	RefAlbum    RefType = "album"
	RefPlaylist RefType = "playlist"
	RefShow     RefType = "show"
	RefArtist   RefType = "artist"

	// RefLiked is the user's saved tracks. It carries no id.
	RefLiked RefType = "liked"
)

func parseRefType(s string) (RefType, bool) {
	switch t := RefType(strings.ToLower(s)); t {
	case RefTrack, RefEpisode, RefAlbum, RefPlaylist, RefShow, RefArtist:
		return t, true
	}
	return "", false
}

// Ref identifies a single item or a collection.
type Ref struct {
	Type RefType
	ID   string
}

// String returns the "type:id" form, or just the type for RefLiked.
func (r Ref) String() string {
	if r.ID == "" {
		return string(r.Type)
	}
	return string(r.Type) + ":" + r.ID
}

var (
	// https://open.example.com/album/ID, optionally with an intl-xx segment and a query.
	refURLRegex = regexp.MustCompile(`^https?://open\.[^/]+/(?:intl-[a-z]{2}(?:-[a-z]{2})?/)?([a-z]+)/([A-Za-z0-9]+)(?:[/?#].*)?$`)

	refIDRegex = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

// ParseRef parses a reference in one of the accepted forms:
//
//	track:4uLU6hMCjMI75M1A2tKUQC
//	spotify:album:1DFixLWuPkv3KT3TnV35m3
//	https://open.spotify.com/intl-de/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc
//	liked
//
// "liked" (also "liked-songs" and the collection/tracks URL) selects the
// user's saved tracks.
//
// Example:
//
//	ref, err := ParseRef("album:1DFixLWuPkv3KT3TnV35m3")
//	// ref.Type == RefAlbum, ref.ID == "1DFixLWuPkv3KT3TnV35m3"
func ParseRef(s string) (Ref, error) {
	s = strings.TrimSpace(s)

	switch strings.ToLower(s) {
	case "liked", "liked-songs", "spotify:collection:tracks":
		return Ref{Type: RefLiked}, nil
	}

	if m := refURLRegex.FindStringSubmatch(s); m != nil {
		if m[1] == "collection" && m[2] == "tracks" {
			return Ref{Type: RefLiked}, nil
		}
		t, ok := parseRefType(m[1])
		if !ok {
			return Ref{}, fmt.Errorf("%w: unsupported type %q in %s", ErrInvalidRef, m[1], s)
		}
		return Ref{Type: t, ID: m[2]}, nil
	}

	parts := strings.Split(s, ":")
	if len(parts) == 3 {
		parts = parts[1:]
	}
	if len(parts) != 2 {
		return Ref{}, fmt.Errorf("%w: %q", ErrInvalidRef, s)
	}
	t, ok := parseRefType(parts[0])
	if !ok {
		return Ref{}, fmt.Errorf("%w: unsupported type %q in %s", ErrInvalidRef, parts[0], s)
	}
	if !refIDRegex.MatchString(parts[1]) {
		return Ref{}, fmt.Errorf("%w: bad id in %q", ErrInvalidRef, s)
	}
	return Ref{Type: t, ID: parts[1]}, nil
}

// ParseRefs parses every reference, stopping at the first invalid one.
func ParseRefs(inputs []string) ([]Ref, error) {
	refs := make([]Ref, 0, len(inputs))
	for _, in := range inputs {
		if strings.TrimSpace(in) == "" {
			continue
		}
		ref, err := ParseRef(in)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}
