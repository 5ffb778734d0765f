// Package config provides configuration management for tunegrab.
//
// This package handles:
//   - Loading and saving settings as JSON, TOML or YAML
//   - Default configuration values
//   - MUSIC_FORMAT and RAW_AUDIO_AS_IS environment overrides
//   - Conversion to the configurations of the other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Tracks go to ~/Music/tunegrab/Tracks, episodes to ~/Music/tunegrab/Podcasts
//	// MP3 output, normal quality, archived and existing items skipped
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.toml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//	settings.ApplyEnv(os.LookupEnv)
//	if err := settings.Validate(); err != nil {
//	    return err
//	}
//
// # Saving Settings
//
//	settings.MusicFormat = "ogg"
//	err := settings.Save("/path/to/config.yaml")
//
// Settings are read once at startup and not modified while a batch runs.
package config
