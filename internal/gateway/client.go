package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/audio"
	"github.com/handiism/tunegrab/internal/gateway/dto"
	"github.com/handiism/tunegrab/internal/http"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// DefaultPageSize is the limit sent with paged listings.
const DefaultPageSize = 50

// Gateway talks to the streaming bridge over its JSON API.
//
// Gateway implements the catalog, stream and genre lookups the acquisition
// orchestrator needs, plus the collection expansion used to turn album,
// playlist, show and artist references into item requests.
//
// Example usage:
//
//	gw, err := gateway.New("http://127.0.0.1:8080", http.NewClient(http.Config{}), log)
//	if err != nil {
//	    return err
//	}
//	item, err := gw.Resolve(ctx, model.KindTrack, "4uLU6hMCjMI75M1A2tKUQC")
type Gateway struct {
	base     *url.URL
	client   *http.Client
	pageSize int
	opts     ExpandOptions
	log      zerolog.Logger
}

// New creates a Gateway for the bridge at baseURL.
func New(baseURL string, client *http.Client, log zerolog.Logger) (*Gateway, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway url %q must be absolute", baseURL)
	}
	if client == nil {
		client = http.NewClient(http.Config{})
	}
	return &Gateway{
		base:     u,
		client:   client,
		pageSize: DefaultPageSize,
		opts:     ExpandOptions{AlbumLayout: AlbumLayoutShort},
		log:      log,
	}, nil
}

// WithPageSize overrides the listing page size.
func (g *Gateway) WithPageSize(n int) *Gateway {
	if n > 0 {
		g.pageSize = n
	}
	return g
}

// WithExpandOptions sets how collections are expanded. An empty
// AlbumLayout is short.
func (g *Gateway) WithExpandOptions(opts ExpandOptions) *Gateway {
	if opts.AlbumLayout == "" {
		opts.AlbumLayout = AlbumLayoutShort
	}
	g.opts = opts
	return g
}

// endpoint joins path segments onto the base URL and adds the query.
func (g *Gateway) endpoint(query url.Values, segments ...string) string {
	u := *g.base
	escaped := make([]string, len(segments))
	for i, s := range segments {
		escaped[i] = url.PathEscape(s)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/" + strings.Join(escaped, "/")
	u.RawPath = ""
	if query != nil {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

func pageQuery(limit, offset int) url.Values {
	return url.Values{
		"limit":  {strconv.Itoa(limit)},
		"offset": {strconv.Itoa(offset)},
	}
}

// Resolve fetches the metadata of one track or episode. The returned
// item's ID is the canonical id reported by the bridge.
func (g *Gateway) Resolve(ctx context.Context, kind model.Kind, id string) (*model.Item, error) {
	switch kind {
	case model.KindEpisode:
		var ep dto.JSONEpisode
		if err := g.client.GetJSON(ctx, g.endpoint(nil, "episodes", id), &ep); err != nil {
			return nil, err
		}
		return requireID(ep.ToItem(), id), nil
	default:
		var tr dto.JSONTrack
		if err := g.client.GetJSON(ctx, g.endpoint(nil, "tracks", id), &tr); err != nil {
			return nil, err
		}
		return requireID(tr.ToItem(), id), nil
	}
}

func requireID(item *model.Item, requested string) *model.Item {
	if item.ID == "" {
		item.ID = requested
	}
	return item
}

// Open starts the content stream of item at the given quality.
func (g *Gateway) Open(ctx context.Context, item *model.Item, quality audio.Quality) (stream.Handle, error) {
	q := url.Values{"quality": {string(quality)}}
	s, err := g.client.OpenStream(ctx, g.endpoint(q, "stream", item.Kind.String(), item.ID))
	if err != nil {
		return nil, err
	}
	g.log.Debug().Str("id", item.ID).Int64("size", s.Size()).Msg("stream opened")
	return s, nil
}

// Genre returns the artist's genres joined with ", ".
func (g *Gateway) Genre(ctx context.Context, artistID string) (string, error) {
	var artist dto.JSONArtist
	if err := g.client.GetJSON(ctx, g.endpoint(nil, "artists", artistID), &artist); err != nil {
		return "", err
	}
	return artist.GenreLine(), nil
}
