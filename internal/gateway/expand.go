package gateway

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/handiism/tunegrab/internal/acquire"
	"github.com/handiism/tunegrab/internal/gateway/dto"
	"github.com/handiism/tunegrab/internal/model"
)

// ErrEmptyCollection is returned when a collection lists no items.
var ErrEmptyCollection = errors.New("collection has no items")

// LikedSongsDir is the folder and collection name of the saved-tracks list.
const LikedSongsDir = "Liked Songs"

// AlbumLayout selects how an album folder is named below its artist folder.
type AlbumLayout string

const (
	// AlbumLayoutShort names the folder after the album: "Artist/Album".
	AlbumLayoutShort AlbumLayout = "short"

	// AlbumLayoutFull adds the artist and release date:
	// "Artist/Artist - 2001-02-03 - Album".
	AlbumLayoutFull AlbumLayout = "full"
)

// ParseAlbumLayout parses "short" or "full". An empty string is short.
func ParseAlbumLayout(s string) (AlbumLayout, error) {
	switch l := AlbumLayout(strings.ToLower(strings.TrimSpace(s))); l {
	case "", AlbumLayoutShort:
		return AlbumLayoutShort, nil
	case AlbumLayoutFull:
		return AlbumLayoutFull, nil
	default:
		return "", fmt.Errorf("unknown album layout %q (want short or full)", s)
	}
}

// Archive reports whether an item was acquired by an earlier run.
// *archive.Ledger satisfies it.
type Archive interface {
	Contains(itemID string) (bool, error)
}

// ExpandOptions tune how collections are turned into requests.
type ExpandOptions struct {
	// AlbumLayout names album folders.
	AlbumLayout AlbumLayout

	// SplitDiscs places each disc of a multi-disc album in a "CD 0N"
	// sub-folder with its own track numbering.
	SplitDiscs bool

	// PlaylistAlbums expands a playlist into the full albums of its tracks.
	PlaylistAlbums bool

	// Archive, when set, drops playlist and saved tracks that were already
	// acquired before any metadata is requested for them.
	Archive Archive
}

// fetchAll walks a paged listing until a page comes back shorter than the
// page size.
func fetchAll[T any](ctx context.Context, g *Gateway, segments ...string) ([]T, error) {
	var all []T
	for offset := 0; ; offset += g.pageSize {
		var page dto.JSONPage[T]
		if err := g.client.GetJSON(ctx, g.endpoint(pageQuery(g.pageSize, offset), segments...), &page); err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if len(page.Items) < g.pageSize {
			return all, nil
		}
	}
}

// Expand turns references into item requests in listing order.
//
// Tracks and episodes become one request each. Albums are placed in an
// artist folder (see AlbumLayout) with numbered names, split per disc when
// ExpandOptions.SplitDiscs is set; playlists in a folder named after the
// playlist, or as full albums with ExpandOptions.PlaylistAlbums; saved
// tracks in LikedSongsDir; show episodes in the show folder. Artists
// expand to all of their albums.
//
// A collection may expand to no requests when every track is already in
// ExpandOptions.Archive.
//
// Example:
//
//	refs, _ := gateway.ParseRefs(os.Args[1:])
//	reqs, err := gw.Expand(ctx, refs)
//	summary, err := batch.Run(ctx, reqs)
func (g *Gateway) Expand(ctx context.Context, refs []Ref) ([]acquire.Request, error) {
	var reqs []acquire.Request
	for _, ref := range refs {
		expanded, err := g.expandRef(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("expand %s: %w", ref, err)
		}
		reqs = append(reqs, expanded...)
	}
	return reqs, nil
}

func (g *Gateway) expandRef(ctx context.Context, ref Ref) ([]acquire.Request, error) {
	switch ref.Type {
	case RefTrack:
		return []acquire.Request{{Kind: model.KindTrack, ID: ref.ID}}, nil
	case RefEpisode:
		return []acquire.Request{{Kind: model.KindEpisode, ID: ref.ID}}, nil
	case RefAlbum:
		return g.expandAlbum(ctx, ref.ID)
	case RefPlaylist:
		return g.expandPlaylist(ctx, ref.ID)
	case RefShow:
		return g.expandShow(ctx, ref.ID)
	case RefArtist:
		return g.expandArtist(ctx, ref.ID)
	case RefLiked:
		return g.expandLiked(ctx)
	default:
		return nil, fmt.Errorf("%w: %s", ErrInvalidRef, ref)
	}
}

// albumDir returns the album folder relative to the tracks root.
func (g *Gateway) albumDir(album *dto.JSONAlbum) string {
	artist := album.PrimaryArtist()
	name := album.Name
	if g.opts.AlbumLayout == AlbumLayoutFull {
		name = artist + " - " + album.ReleaseDate + " - " + album.Name
	}
	return filepath.Join(model.SanitizeFileName(artist), model.SanitizeFileName(name))
}

func (g *Gateway) expandAlbum(ctx context.Context, id string) ([]acquire.Request, error) {
	var album dto.JSONAlbum
	if err := g.client.GetJSON(ctx, g.endpoint(nil, "albums", id), &album); err != nil {
		return nil, err
	}
	tracks, err := fetchAll[dto.JSONTrack](ctx, g, "albums", id, "tracks")
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, ErrEmptyCollection
	}

	maxDisc := 1
	for _, t := range tracks {
		maxDisc = max(maxDisc, t.DiscNumber)
	}
	multiDisc := maxDisc > 1
	split := multiDisc && g.opts.SplitDiscs

	dir := g.albumDir(&album)
	reqs := make([]acquire.Request, 0, len(tracks))
	for _, t := range tracks {
		req := acquire.Request{
			Kind:       model.KindTrack,
			ID:         t.ID,
			Dir:        dir,
			Numbered:   true,
			MultiDisc:  multiDisc,
			Collection: album.Name,
		}
		if split {
			req.Dir = filepath.Join(dir, fmt.Sprintf("CD %02d", max(t.DiscNumber, 1)))
			req.MultiDisc = false
		}
		reqs = append(reqs, req)
	}
	g.log.Debug().Str("album", album.Name).Int("tracks", len(reqs)).Bool("split", split).Msg("album expanded")
	return reqs, nil
}

func (g *Gateway) expandPlaylist(ctx context.Context, id string) ([]acquire.Request, error) {
	var playlist dto.JSONPlaylist
	if err := g.client.GetJSON(ctx, g.endpoint(nil, "playlists", id), &playlist); err != nil {
		return nil, err
	}
	entries, err := fetchAll[dto.JSONPlaylistItem](ctx, g, "playlists", id, "tracks")
	if err != nil {
		return nil, err
	}
	if g.opts.PlaylistAlbums {
		return g.expandPlaylistAlbums(ctx, playlist.Name, entries)
	}
	return g.trackList(playlist.Name, playlist.Name, entries)
}

// expandPlaylistAlbums expands every album referenced by the playlist
// once, in order of first appearance.
func (g *Gateway) expandPlaylistAlbums(ctx context.Context, name string, entries []dto.JSONPlaylistItem) ([]acquire.Request, error) {
	if len(entries) == 0 {
		return nil, ErrEmptyCollection
	}

	seen := make(map[string]bool)
	var reqs []acquire.Request
	for _, e := range entries {
		if e.Track == nil || e.Track.ID == "" || g.archived(e.Track.ID) {
			continue
		}
		if e.Track.Album == nil || e.Track.Album.ID == "" {
			g.log.Warn().Str("playlist", name).Str("track", e.Track.ID).Msg("track has no album")
			continue
		}
		albumID := e.Track.Album.ID
		if seen[albumID] {
			continue
		}
		seen[albumID] = true

		expanded, err := g.expandAlbum(ctx, albumID)
		if errors.Is(err, ErrEmptyCollection) {
			g.log.Warn().Str("album", e.Track.Album.Name).Msg("album has no tracks")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("album %s: %w", albumID, err)
		}
		reqs = append(reqs, expanded...)
	}
	g.log.Debug().Str("playlist", name).Int("albums", len(seen)).Int("tracks", len(reqs)).Msg("playlist albums expanded")
	return reqs, nil
}

func (g *Gateway) expandLiked(ctx context.Context) ([]acquire.Request, error) {
	entries, err := fetchAll[dto.JSONPlaylistItem](ctx, g, "me", "tracks")
	if err != nil {
		return nil, err
	}
	return g.trackList(LikedSongsDir, LikedSongsDir, entries)
}

// trackList turns playlist entries into requests placed in dir. Removed
// tracks are dropped; already archived tracks are dropped without a
// metadata request. A list whose tracks were all archived yields no
// requests and no error.
func (g *Gateway) trackList(dir, collection string, entries []dto.JSONPlaylistItem) ([]acquire.Request, error) {
	var reqs []acquire.Request
	available, archived := 0, 0
	for _, e := range entries {
		if e.Track == nil || e.Track.ID == "" {
			continue
		}
		available++
		if g.archived(e.Track.ID) {
			archived++
			continue
		}
		reqs = append(reqs, acquire.Request{
			Kind:       model.KindTrack,
			ID:         e.Track.ID,
			Dir:        model.SanitizeFileName(dir),
			Collection: collection,
		})
	}
	if available == 0 {
		return nil, ErrEmptyCollection
	}
	if archived > 0 {
		g.log.Info().Str("collection", collection).Int("archived", archived).Msg("Skipping previously downloaded tracks")
	}
	return reqs, nil
}

// archived reports whether id is in the archive. A failed lookup is
// logged and treated as not archived; the orchestrator checks again.
func (g *Gateway) archived(id string) bool {
	if g.opts.Archive == nil {
		return false
	}
	found, err := g.opts.Archive.Contains(id)
	if err != nil {
		g.log.Warn().Err(err).Str("track", id).Msg("archive pre-check failed")
		return false
	}
	return found
}

func (g *Gateway) expandShow(ctx context.Context, id string) ([]acquire.Request, error) {
	var show dto.JSONShow
	if err := g.client.GetJSON(ctx, g.endpoint(nil, "shows", id), &show); err != nil {
		return nil, err
	}
	episodes, err := fetchAll[dto.JSONEpisode](ctx, g, "shows", id, "episodes")
	if err != nil {
		return nil, err
	}
	if len(episodes) == 0 {
		return nil, ErrEmptyCollection
	}

	reqs := make([]acquire.Request, 0, len(episodes))
	for _, ep := range episodes {
		reqs = append(reqs, acquire.Request{
			Kind:       model.KindEpisode,
			ID:         ep.ID,
			Collection: show.Name,
		})
	}
	return reqs, nil
}

func (g *Gateway) expandArtist(ctx context.Context, id string) ([]acquire.Request, error) {
	albums, err := fetchAll[dto.JSONAlbum](ctx, g, "artists", id, "albums")
	if err != nil {
		return nil, err
	}

	var reqs []acquire.Request
	for _, album := range albums {
		expanded, err := g.expandAlbum(ctx, album.ID)
		if errors.Is(err, ErrEmptyCollection) {
			g.log.Warn().Str("album", album.Name).Msg("album has no tracks")
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("album %s: %w", album.ID, err)
		}
		reqs = append(reqs, expanded...)
	}
	if len(reqs) == 0 {
		return nil, ErrEmptyCollection
	}
	return reqs, nil
}
