package dto

import "github.com/handiism/tunegrab/internal/model"

// JSONAlbumRef is the album as embedded in a track.
type JSONAlbumRef struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	ReleaseDate string          `json:"release_date"`
	Images      []JSONImage     `json:"images"`
	Artists     []JSONArtistRef `json:"artists"`
}

// JSONTrack is the response of /tracks/{id}.
type JSONTrack struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []JSONArtistRef `json:"artists"`
	Album       *JSONAlbumRef   `json:"album"`
	DiscNumber  int             `json:"disc_number"`
	TrackNumber int             `json:"track_number"`
	DurationMS  int64           `json:"duration_ms"`
	IsPlayable  *bool           `json:"is_playable"`

	// LinkedFrom holds the requested id when the service relinked the track.
	LinkedFrom *struct {
		ID string `json:"id"`
	} `json:"linked_from"`
}

// ToItem converts JSONTrack to a model.Item.
func (jt *JSONTrack) ToItem() *model.Item {
	item := &model.Item{
		ID:          jt.ID,
		Kind:        model.KindTrack,
		Artists:     artistNames(jt.Artists),
		Title:       jt.Name,
		DiscNumber:  jt.DiscNumber,
		TrackNumber: jt.TrackNumber,
		Duration:    durationMS(jt.DurationMS),
		Playable:    playable(jt.IsPlayable),
	}
	if len(jt.Artists) > 0 {
		item.ArtistID = jt.Artists[0].ID
	}
	if jt.Album != nil {
		item.Album = jt.Album.Name
		item.ReleaseDate = jt.Album.ReleaseDate
		item.Year = ReleaseYear(jt.Album.ReleaseDate)
		item.ArtworkURL = LargestImage(jt.Album.Images)
	}
	return item
}

// JSONAlbum is the response of /albums/{id}.
type JSONAlbum struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Artists     []JSONArtistRef `json:"artists"`
	ReleaseDate string          `json:"release_date"`
	TotalTracks int             `json:"total_tracks"`
	Images      []JSONImage     `json:"images"`
}

// PrimaryArtist returns the first album artist's name.
func (ja *JSONAlbum) PrimaryArtist() string {
	if names := artistNames(ja.Artists); len(names) > 0 {
		return names[0]
	}
	return ""
}

// JSONPlaylist is the response of /playlists/{id}.
type JSONPlaylist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// JSONPlaylistItem wraps a track in a playlist listing. Track is nil for
// removed or local entries.
type JSONPlaylistItem struct {
	Track *JSONTrack `json:"track"`
}
