package dto

import "github.com/handiism/tunegrab/internal/model"

// JSONShow is the response of /shows/{id} and the show embedded in episodes.
type JSONShow struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Publisher string      `json:"publisher"`
	Images    []JSONImage `json:"images"`
}

// JSONEpisode is the response of /episodes/{id}.
type JSONEpisode struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Show        *JSONShow   `json:"show"`
	ReleaseDate string      `json:"release_date"`
	DurationMS  int64       `json:"duration_ms"`
	Images      []JSONImage `json:"images"`
	IsPlayable  *bool       `json:"is_playable"`
}

// ToItem converts JSONEpisode to a model.Item. The show name takes the
// album position.
func (je *JSONEpisode) ToItem() *model.Item {
	item := &model.Item{
		ID:          je.ID,
		Kind:        model.KindEpisode,
		Title:       je.Name,
		ReleaseDate: je.ReleaseDate,
		Year:        ReleaseYear(je.ReleaseDate),
		Duration:    durationMS(je.DurationMS),
		Playable:    playable(je.IsPlayable),
		ArtworkURL:  LargestImage(je.Images),
	}
	if je.Show != nil {
		item.Album = je.Show.Name
		if item.ArtworkURL == "" {
			item.ArtworkURL = LargestImage(je.Show.Images)
		}
	}
	return item
}
