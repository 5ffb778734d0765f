package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/handiism/tunegrab/internal/acquire"
	"github.com/handiism/tunegrab/internal/archive"
	"github.com/handiism/tunegrab/internal/audio"
	"github.com/handiism/tunegrab/internal/gateway"
	"github.com/handiism/tunegrab/internal/http"
	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// Environment variables that override file settings.
const (
	EnvMusicFormat  = "MUSIC_FORMAT"
	EnvRawAudioAsIs = "RAW_AUDIO_AS_IS"
)

// ErrInvalidSettings is wrapped by every Validate failure.
var ErrInvalidSettings = errors.New("invalid settings")

// Settings holds all configuration options. Durations are in seconds.
type Settings struct {
	// Output
	TracksRoot      string `json:"tracks_root" toml:"tracks_root" yaml:"tracks_root"`
	EpisodesRoot    string `json:"episodes_root" toml:"episodes_root" yaml:"episodes_root"`
	FileNameFormat  string `json:"file_name_format" toml:"file_name_format" yaml:"file_name_format"`
	AlbumInFileName bool   `json:"album_in_file_name" toml:"album_in_file_name" yaml:"album_in_file_name"`
	AlbumDirLayout  string `json:"album_dir_layout" toml:"album_dir_layout" yaml:"album_dir_layout"` // short, full
	SplitAlbumDiscs bool   `json:"split_album_discs" toml:"split_album_discs" yaml:"split_album_discs"`
	PlaylistAlbums  bool   `json:"playlist_albums" toml:"playlist_albums" yaml:"playlist_albums"`

	// Source
	GatewayURL string `json:"gateway_url" toml:"gateway_url" yaml:"gateway_url"`
	Quality    string `json:"quality" toml:"quality" yaml:"quality"` // normal, high

	// Conversion
	MusicFormat  string `json:"music_format" toml:"music_format" yaml:"music_format"` // mp3, ogg
	VBR          bool   `json:"vbr" toml:"vbr" yaml:"vbr"`
	RawAudioAsIs bool   `json:"raw_audio_as_is" toml:"raw_audio_as_is" yaml:"raw_audio_as_is"`
	KeepRawFile  bool   `json:"keep_raw_file" toml:"keep_raw_file" yaml:"keep_raw_file"`
	FFmpegPath   string `json:"ffmpeg_path" toml:"ffmpeg_path" yaml:"ffmpeg_path"`

	// Fetching
	DownloadRealTime bool `json:"download_real_time" toml:"download_real_time" yaml:"download_real_time"`
	ChunkSize        int  `json:"chunk_size" toml:"chunk_size" yaml:"chunk_size"`
	MaxEmptyReads    int  `json:"max_empty_reads" toml:"max_empty_reads" yaml:"max_empty_reads"`

	// Skip rules
	SkipExisting             bool `json:"skip_existing_files" toml:"skip_existing_files" yaml:"skip_existing_files"`
	SkipPreviouslyDownloaded bool `json:"skip_previously_downloaded" toml:"skip_previously_downloaded" yaml:"skip_previously_downloaded"`

	// Retry behaviour
	DownloadMaxRetries    int     `json:"download_max_retries" toml:"download_max_retries" yaml:"download_max_retries"`
	MetadataRetryCooldown float64 `json:"metadata_retry_cooldown" toml:"metadata_retry_cooldown" yaml:"metadata_retry_cooldown"`
	DownloadRetryCooldown float64 `json:"download_retry_cooldown" toml:"download_retry_cooldown" yaml:"download_retry_cooldown"`
	DownloadRetryExponent float64 `json:"download_retry_exponent" toml:"download_retry_exponent" yaml:"download_retry_exponent"`

	// Pauses
	AntiBanWaitTime  float64 `json:"anti_ban_wait_time" toml:"anti_ban_wait_time" yaml:"anti_ban_wait_time"`
	GroupWaitTime    float64 `json:"group_wait_time" toml:"group_wait_time" yaml:"group_wait_time"`
	OverrideAutoWait bool    `json:"override_auto_wait" toml:"override_auto_wait" yaml:"override_auto_wait"`

	// Tag settings
	TagNamespace          string `json:"tag_namespace" toml:"tag_namespace" yaml:"tag_namespace"`
	SaveCoverArtInTags    bool   `json:"save_cover_art_in_tags" toml:"save_cover_art_in_tags" yaml:"save_cover_art_in_tags"`
	CoverArtInTagsMaxSize int    `json:"cover_art_in_tags_max_size" toml:"cover_art_in_tags_max_size" yaml:"cover_art_in_tags_max_size"`

	// Playlist settings
	CreatePlaylist bool   `json:"create_playlist" toml:"create_playlist" yaml:"create_playlist"`
	PlaylistFormat string `json:"playlist_format" toml:"playlist_format" yaml:"playlist_format"` // m3u, pls, wpl, zpl
	M3UExtended    bool   `json:"m3u_extended" toml:"m3u_extended" yaml:"m3u_extended"`

	// HTTP settings
	HTTPTimeout   float64           `json:"http_timeout" toml:"http_timeout" yaml:"http_timeout"`
	ProxyURL      string            `json:"proxy_url" toml:"proxy_url" yaml:"proxy_url"`
	ProxyUsername string            `json:"proxy_username" toml:"proxy_username" yaml:"proxy_username"`
	ProxyPassword string            `json:"proxy_password" toml:"proxy_password" yaml:"proxy_password"`
	UserAgent     string            `json:"user_agent" toml:"user_agent" yaml:"user_agent"`
	Headers       map[string]string `json:"headers,omitempty" toml:"headers,omitempty" yaml:"headers,omitempty"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	homeDir, _ := os.UserHomeDir()
	root := filepath.Join(homeDir, "Music", "tunegrab")
	return &Settings{
		TracksRoot:   filepath.Join(root, "Tracks"),
		EpisodesRoot: filepath.Join(root, "Podcasts"),

		AlbumDirLayout: string(gateway.AlbumLayoutShort),

		GatewayURL: "http://127.0.0.1:8080",
		Quality:    string(audio.QualityNormal),

		MusicFormat: string(audio.FormatMP3),
		FFmpegPath:  "ffmpeg",

		ChunkSize:     stream.DefaultChunkSize,
		MaxEmptyReads: stream.DefaultMaxEmptyReads,

		SkipExisting:             true,
		SkipPreviouslyDownloaded: true,

		DownloadMaxRetries:    0,
		MetadataRetryCooldown: acquire.DefaultMetadataBackoff.Seconds(),
		DownloadRetryCooldown: acquire.DefaultFailureBackoff.Seconds(),
		DownloadRetryExponent: 1,

		AntiBanWaitTime: acquire.DefaultAntiBanWait.Seconds(),
		GroupWaitTime:   acquire.DefaultGroupWait.Seconds(),

		TagNamespace:          audio.DefaultNamespace,
		SaveCoverArtInTags:    true,
		CoverArtInTagsMaxSize: audio.DefaultArtworkSize,

		CreatePlaylist: false,
		PlaylistFormat: "m3u",
		M3UExtended:    true,

		HTTPTimeout: 60,
		UserAgent:   http.DefaultUserAgent,
	}
}

// DefaultPath returns the settings file location under the user config directory.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "tunegrab", "config.json")
}

type codec struct {
	unmarshal func([]byte, any) error
	marshal   func(any) ([]byte, error)
}

func codecFor(path string) codec {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return codec{toml.Unmarshal, toml.Marshal}
	case ".yaml", ".yml":
		return codec{yaml.Unmarshal, yaml.Marshal}
	default:
		return codec{json.Unmarshal, func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}}
	}
}

// Load reads settings from a JSON, TOML or YAML file, chosen by extension.
// Fields missing from the file keep their defaults. A missing file yields
// DefaultSettings.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := codecFor(path).unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// LoadWithEnv loads path, or DefaultPath when path is empty, and applies
// the environment overrides.
func LoadWithEnv(path string) (*Settings, error) {
	if path == "" {
		path = DefaultPath()
	}
	settings, err := Load(path)
	if err != nil {
		return nil, err
	}
	settings.ApplyEnv(os.LookupEnv)
	return settings, nil
}

// Save writes settings in the format matching the file extension.
func (s *Settings) Save(path string) error {
	if err := ioutils.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}

	data, err := codecFor(path).marshal(s)
	if err != nil {
		return err
	}

	return ioutils.WriteFileAtomic(path, data)
}

// ApplyEnv applies MUSIC_FORMAT and RAW_AUDIO_AS_IS. RAW_AUDIO_AS_IS turns
// raw mode on only when set to "y"; any other value turns it off.
//
// Example:
//
//	settings.ApplyEnv(os.LookupEnv)
func (s *Settings) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvMusicFormat); ok && v != "" {
		s.MusicFormat = v
	}
	if v, ok := lookup(EnvRawAudioAsIs); ok {
		s.RawAudioAsIs = strings.EqualFold(strings.TrimSpace(v), "y")
	}
}

// Validate checks enumerated values and numeric ranges.
func (s *Settings) Validate() error {
	var errs []error
	if s.TracksRoot == "" || s.EpisodesRoot == "" {
		errs = append(errs, errors.New("tracks_root and episodes_root are required"))
	}
	if _, err := audio.ParseFormat(s.MusicFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := audio.ParseQuality(s.Quality); err != nil {
		errs = append(errs, err)
	}
	if _, err := audio.ParsePlaylistFormat(s.PlaylistFormat); err != nil {
		errs = append(errs, err)
	}
	if _, err := gateway.ParseAlbumLayout(s.AlbumDirLayout); err != nil {
		errs = append(errs, err)
	}
	if s.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", s.ChunkSize))
	}
	if s.MaxEmptyReads < 0 {
		errs = append(errs, fmt.Errorf("max_empty_reads must not be negative, got %d", s.MaxEmptyReads))
	}
	if s.DownloadMaxRetries < 0 {
		errs = append(errs, fmt.Errorf("download_max_retries must not be negative, got %d", s.DownloadMaxRetries))
	}
	for _, d := range []struct {
		name  string
		value float64
	}{
		{"metadata_retry_cooldown", s.MetadataRetryCooldown},
		{"download_retry_cooldown", s.DownloadRetryCooldown},
		{"anti_ban_wait_time", s.AntiBanWaitTime},
		{"group_wait_time", s.GroupWaitTime},
		{"http_timeout", s.HTTPTimeout},
	} {
		if d.value < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative, got %g", d.name, d.value))
		}
	}
	if s.ProxyURL != "" {
		if _, err := http.ParseProxyURL(s.ProxyURL, s.ProxyUsername, s.ProxyPassword); err != nil {
			errs = append(errs, err)
		}
	}
	if s.GatewayURL == "" {
		errs = append(errs, errors.New("gateway_url is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidSettings, errors.Join(errs...))
	}
	return nil
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func (s *Settings) format() audio.Format {
	f, err := audio.ParseFormat(s.MusicFormat)
	if err != nil {
		return audio.FormatMP3
	}
	return f
}

func (s *Settings) quality() audio.Quality {
	q, err := audio.ParseQuality(s.Quality)
	if err != nil {
		return audio.QualityNormal
	}
	return q
}

// ToTranscodeConfig converts settings to TranscodeConfig.
func (s *Settings) ToTranscodeConfig() *audio.TranscodeConfig {
	mode := audio.ModeTranscode
	if s.RawAudioAsIs {
		mode = audio.ModeRaw
	}
	return &audio.TranscodeConfig{
		Mode:       mode,
		Format:     s.format(),
		Quality:    s.quality(),
		VBR:        s.VBR,
		KeepRaw:    s.KeepRawFile,
		FFmpegPath: s.FFmpegPath,
	}
}

// ToPathConfig converts settings to PathConfig.
func (s *Settings) ToPathConfig() model.PathConfig {
	return model.PathConfig{
		TracksRoot:      s.TracksRoot,
		EpisodesRoot:    s.EpisodesRoot,
		FileNameFormat:  s.FileNameFormat,
		AlbumInFileName: s.AlbumInFileName,
		Extension:       s.ToTranscodeConfig().Extension(),
	}
}

// ToReaderConfig converts settings to the chunked reader configuration.
func (s *Settings) ToReaderConfig() stream.Config {
	return stream.Config{ChunkSize: s.ChunkSize, MaxEmptyReads: s.MaxEmptyReads}
}

// ToRetryPolicy converts settings to RetryPolicy.
func (s *Settings) ToRetryPolicy() acquire.RetryPolicy {
	return acquire.RetryPolicy{
		MaxAttempts:     s.DownloadMaxRetries,
		MetadataBackoff: seconds(s.MetadataRetryCooldown),
		FailureBackoff:  seconds(s.DownloadRetryCooldown),
		Exponent:        s.DownloadRetryExponent,
	}
}

// ToTagConfig converts settings to TagConfig.
func (s *Settings) ToTagConfig() *audio.TagConfig {
	return &audio.TagConfig{
		Namespace:    s.TagNamespace,
		EmbedArtwork: s.SaveCoverArtInTags,
		ArtworkSize:  s.CoverArtInTagsMaxSize,
		FFmpegPath:   s.FFmpegPath,
	}
}

// ToAcquireConfig assembles the orchestrator configuration.
func (s *Settings) ToAcquireConfig() acquire.Config {
	return acquire.Config{
		Paths:                    s.ToPathConfig(),
		Reader:                   s.ToReaderConfig(),
		Quality:                  s.quality(),
		Raw:                      s.RawAudioAsIs,
		Realtime:                 s.DownloadRealTime,
		SkipExisting:             s.SkipExisting,
		SkipPreviouslyDownloaded: s.SkipPreviouslyDownloaded,
		TagNamespace:             s.TagNamespace,
		Retry:                    s.ToRetryPolicy(),
	}
}

// ToBatchConfig converts settings to BatchConfig. The playlist creator is
// set only when CreatePlaylist is on.
func (s *Settings) ToBatchConfig() acquire.BatchConfig {
	cfg := acquire.BatchConfig{
		AntiBanWait:      seconds(s.AntiBanWaitTime),
		GroupWait:        seconds(s.GroupWaitTime),
		OverrideAutoWait: s.OverrideAutoWait,
	}
	if s.CreatePlaylist {
		pf, err := audio.ParsePlaylistFormat(s.PlaylistFormat)
		if err != nil {
			pf = audio.PlaylistM3U
		}
		cfg.Playlist = audio.NewPlaylistCreator(pf, s.M3UExtended)
	}
	return cfg
}

// ToExpandOptions converts settings to the collection expansion options.
// The song ledger is used for the playlist pre-check when previously
// downloaded tracks are skipped.
func (s *Settings) ToExpandOptions() gateway.ExpandOptions {
	layout, err := gateway.ParseAlbumLayout(s.AlbumDirLayout)
	if err != nil {
		layout = gateway.AlbumLayoutShort
	}
	opts := gateway.ExpandOptions{
		AlbumLayout:    layout,
		SplitDiscs:     s.SplitAlbumDiscs,
		PlaylistAlbums: s.PlaylistAlbums,
	}
	if s.SkipPreviouslyDownloaded {
		paths := s.ToPathConfig()
		opts.Archive = archive.ForKind(&paths, model.KindTrack)
	}
	return opts
}

// ToHTTPConfig converts settings to the HTTP client configuration.
func (s *Settings) ToHTTPConfig() http.Config {
	return http.Config{
		Timeout:       seconds(s.HTTPTimeout),
		ProxyURL:      s.ProxyURL,
		ProxyUsername: s.ProxyUsername,
		ProxyPassword: s.ProxyPassword,
		UserAgent:     s.UserAgent,
		Headers:       s.Headers,
	}
}
