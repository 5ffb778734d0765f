// Package model defines the core data structures used throughout
// tunegrab.
//
// # Item
//
// Item is one acquirable unit resolved from the catalog: a track or a
// podcast episode. It carries the display metadata used for file naming
// and tagging:
//
//	item := &model.Item{
//	    ID:      "4uLU6hMCjMI75M1A2tKUQC",
//	    Kind:    model.KindTrack,
//	    Artists: []string{"Artist"},
//	    Album:   "Album",
//	    Title:   "Song",
//	}
//
// # Path Configuration
//
// PathConfig controls where finished files land. Tracks and episodes have
// separate roots, and the track file name can be driven by a template:
//
//	cfg := &model.PathConfig{
//	    TracksRoot:     "/music",
//	    EpisodesRoot:   "/podcasts",
//	    FileNameFormat: "{ARTIST}/{ALBUM} ({YEAR})/{TRACK} - {TITLE}.{EXT}",
//	    Extension:      "mp3",
//	}
//	path := cfg.OutputPath(item, model.Placement{})
//
// Available placeholders: {ARTIST}, {ALBUM}, {TITLE}, {YEAR}, {DISC}, {TRACK}, {EXT}
package model
