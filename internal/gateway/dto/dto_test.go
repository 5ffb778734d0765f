package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/handiism/tunegrab/internal/model"
)

func TestLargestImage(t *testing.T) {
	tests := []struct {
		name   string
		images []JSONImage
		want   string
	}{
		{"none", nil, ""},
		{"single", []JSONImage{{URL: "a", Width: 64, Height: 64}}, "a"},
		{"largest last", []JSONImage{{URL: "s", Width: 64, Height: 64}, {URL: "l", Width: 640, Height: 640}}, "l"},
		{"largest first", []JSONImage{{URL: "l", Width: 640, Height: 640}, {URL: "m", Width: 300, Height: 300}}, "l"},
		{"unknown sizes", []JSONImage{{URL: "x"}}, "x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := LargestImage(tt.images); got != tt.want {
				t.Errorf("LargestImage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReleaseYear(t *testing.T) {
	tests := map[string]string{
		"2021-03-04": "2021",
		"1999-07":    "1999",
		"1985":       "1985",
		"":           "",
	}
	for in, want := range tests {
		if got := ReleaseYear(in); got != want {
			t.Errorf("ReleaseYear(%q) = %q, want %q", in, got, want)
		}
	}
}

const trackJSON = `{
	"id": "canon1",
	"name": "Song",
	"artists": [{"id": "ar1", "name": "First"}, {"id": "ar2", "name": "Second"}],
	"album": {
		"name": "Record",
		"release_date": "2020-05-01",
		"images": [{"url": "small", "width": 64, "height": 64}, {"url": "big", "width": 640, "height": 640}]
	},
	"disc_number": 2,
	"track_number": 7,
	"duration_ms": 185000,
	"linked_from": {"id": "requested1"}
}`

func TestJSONTrack_ToItem(t *testing.T) {
	var jt JSONTrack
	if err := json.Unmarshal([]byte(trackJSON), &jt); err != nil {
		t.Fatal(err)
	}
	item := jt.ToItem()

	if item.ID != "canon1" || item.Kind != model.KindTrack {
		t.Errorf("id/kind = %q/%v", item.ID, item.Kind)
	}
	if len(item.Artists) != 2 || item.Artists[0] != "First" || item.ArtistID != "ar1" {
		t.Errorf("artists = %v (%s)", item.Artists, item.ArtistID)
	}
	if item.Album != "Record" || item.Year != "2020" || item.ReleaseDate != "2020-05-01" {
		t.Errorf("album = %q year = %q", item.Album, item.Year)
	}
	if item.ArtworkURL != "big" {
		t.Errorf("ArtworkURL = %q, want big", item.ArtworkURL)
	}
	if item.DiscNumber != 2 || item.TrackNumber != 7 {
		t.Errorf("position = %d/%d", item.DiscNumber, item.TrackNumber)
	}
	if item.Duration != 185*time.Second {
		t.Errorf("Duration = %v", item.Duration)
	}
	if !item.Playable {
		t.Error("missing is_playable should mean playable")
	}
	if jt.LinkedFrom == nil || jt.LinkedFrom.ID != "requested1" {
		t.Errorf("LinkedFrom = %+v", jt.LinkedFrom)
	}
}

func TestJSONTrack_NotPlayable(t *testing.T) {
	var jt JSONTrack
	if err := json.Unmarshal([]byte(`{"id":"x","is_playable":false}`), &jt); err != nil {
		t.Fatal(err)
	}
	if jt.ToItem().Playable {
		t.Error("is_playable=false should not be playable")
	}
}

func TestJSONEpisode_ToItem(t *testing.T) {
	raw := `{
		"id": "ep1",
		"name": "Pilot",
		"release_date": "2019-01-02",
		"duration_ms": 60000,
		"show": {"id": "sh1", "name": "The Show", "images": [{"url": "show-art", "width": 300, "height": 300}]}
	}`
	var je JSONEpisode
	if err := json.Unmarshal([]byte(raw), &je); err != nil {
		t.Fatal(err)
	}
	item := je.ToItem()

	if item.Kind != model.KindEpisode || item.Album != "The Show" || item.Title != "Pilot" {
		t.Errorf("item = %+v", item)
	}
	if item.Year != "2019" {
		t.Errorf("Year = %q", item.Year)
	}
	if item.ArtworkURL != "show-art" {
		t.Errorf("episode without images should use show art, got %q", item.ArtworkURL)
	}
	if len(item.Artists) != 0 {
		t.Errorf("episodes carry no artists, got %v", item.Artists)
	}
}

func TestJSONArtist_GenreLine(t *testing.T) {
	a := JSONArtist{Genres: []string{"rock", "indie rock"}}
	if got := a.GenreLine(); got != "rock, indie rock" {
		t.Errorf("GenreLine() = %q", got)
	}
	if got := (&JSONArtist{}).GenreLine(); got != "" {
		t.Errorf("empty GenreLine() = %q", got)
	}
}
