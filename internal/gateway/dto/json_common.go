package dto

import (
	"strings"
	"time"
)

// JSONImage is one cover rendition.
type JSONImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LargestImage returns the URL of the image with the largest width+height,
// or "" when there are none.
func LargestImage(images []JSONImage) string {
	best, bestSize := "", -1
	for _, img := range images {
		if size := img.Width + img.Height; size > bestSize {
			best, bestSize = img.URL, size
		}
	}
	return best
}

// ReleaseYear returns the leading year of a "YYYY", "YYYY-MM" or "YYYY-MM-DD" date.
func ReleaseYear(date string) string {
	year, _, _ := strings.Cut(strings.TrimSpace(date), "-")
	return year
}

// JSONArtistRef is an artist as embedded in tracks and albums.
type JSONArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JSONArtist is the response of /artists/{id}.
type JSONArtist struct {
	ID     string   `json:"id"`
	Name   string   `json:"name"`
	Genres []string `json:"genres"`
}

// GenreLine joins the artist's genres with ", ".
func (a *JSONArtist) GenreLine() string {
	return strings.Join(a.Genres, ", ")
}

// JSONPage is one page of a paged listing.
type JSONPage[T any] struct {
	Items  []T     `json:"items"`
	Total  int     `json:"total"`
	Offset int     `json:"offset"`
	Limit  int     `json:"limit"`
	Next   *string `json:"next"`
}

func artistNames(refs []JSONArtistRef) []string {
	names := make([]string, 0, len(refs))
	for _, a := range refs {
		if a.Name != "" {
			names = append(names, a.Name)
		}
	}
	return names
}

func durationMS(ms int64) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// playable treats a missing flag as playable.
func playable(flag *bool) bool {
	return flag == nil || *flag
}
