package acquire

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/handiism/tunegrab/internal/audio"
)

// GenreCache memoises artist genres for one run.
//
// Entries are filled lazily and never invalidated. A failed lookup yields
// "Unknown" for that call and is not cached, so the next item by the same
// artist tries again.
type GenreCache struct {
	lookup GenreLookup
	log    zerolog.Logger

	mu     sync.Mutex
	genres map[string]string
}

// NewGenreCache creates an empty cache. A nil lookup always yields "Unknown".
func NewGenreCache(lookup GenreLookup, log zerolog.Logger) *GenreCache {
	return &GenreCache{lookup: lookup, log: log, genres: make(map[string]string)}
}

// Get returns the genre for artistID.
func (c *GenreCache) Get(ctx context.Context, artistID string) string {
	if c == nil || c.lookup == nil || artistID == "" {
		return audio.UnknownGenre
	}

	c.mu.Lock()
	genre, ok := c.genres[artistID]
	c.mu.Unlock()
	if ok {
		return genre
	}

	genre, err := c.lookup.Genre(ctx, artistID)
	if err != nil {
		c.log.Warn().Err(err).Str("artist", artistID).Msg("Genre lookup failed")
		return audio.UnknownGenre
	}
	if genre = strings.TrimSpace(genre); genre == "" {
		genre = audio.UnknownGenre
	}

	c.mu.Lock()
	c.genres[artistID] = genre
	c.mu.Unlock()
	return genre
}

// Len returns the number of cached artists.
func (c *GenreCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.genres)
}
