package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/handiism/tunegrab/internal/config"
	"github.com/handiism/tunegrab/internal/download"
	"github.com/handiism/tunegrab/internal/logging"
)

// Version is set at build time.
var Version = "dev"

// exitCodeInterrupted is returned when the run is cancelled by a signal.
const exitCodeInterrupted = 130

var errInterrupted = errors.New("interrupted")

type rootOptions struct {
	configPath     string
	output         string
	gatewayURL     string
	format         string
	quality        string
	realtime       bool
	raw            bool
	noSkipExisting bool
	noSkipArchived bool
	maxAttempts    int
	playlist       bool
	splitDiscs     bool
	playlistAlbums bool
	albumDir       string
	verbose        bool
	debug          bool
	dryRun         bool
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tunegrab [refs...]",
		Short: "tunegrab archives tracks and podcast episodes",
		Long: `tunegrab fetches tracks and podcast episodes through a streaming bridge,
converts and tags them, and records every finished item in a per-kind
archive so later runs skip it.

References may be track:ID, episode:ID, album:ID, playlist:ID, show:ID,
artist:ID, open.* share URLs, or "liked" for the saved tracks.`,
		Version:       Version,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Init(opts.debug)

			settings, err := loadSettings(cmd, opts)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, settings, opts, strings.Join(args, " "))
		},
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (.json, .toml, .yaml)")
	cmd.PersistentFlags().StringVarP(&opts.output, "output", "o", "", "Output directory; tracks and episodes go to Tracks/ and Podcasts/ below it")
	cmd.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")

	flags := cmd.Flags()
	flags.StringVar(&opts.gatewayURL, "gateway", "", "Streaming bridge base URL")
	flags.StringVarP(&opts.format, "format", "f", "", "Output format: mp3 or ogg")
	flags.StringVarP(&opts.quality, "quality", "q", "", "Source quality: normal or high")
	flags.BoolVar(&opts.realtime, "realtime", false, "Pace fetches to playback speed")
	flags.BoolVar(&opts.raw, "raw", false, "Keep the raw stream without re-encoding or tagging")
	flags.BoolVar(&opts.noSkipExisting, "no-skip-existing", false, "Fetch items whose output file already exists")
	flags.BoolVar(&opts.noSkipArchived, "no-skip-archived", false, "Fetch items already recorded in the archive")
	flags.IntVar(&opts.maxAttempts, "max-attempts", 0, "Attempts per item, 0 retries until success")
	flags.BoolVarP(&opts.playlist, "playlist", "p", false, "Create a playlist per album, playlist or show")
	flags.BoolVar(&opts.splitDiscs, "split-discs", false, "Put each disc of a multi-disc album in a \"CD 0N\" folder")
	flags.BoolVar(&opts.playlistAlbums, "playlist-albums", false, "Download the full albums of a playlist's tracks")
	flags.StringVar(&opts.albumDir, "album-dir", "", "Album folder layout: short (Album) or full (Artist - date - Album)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Show verbose output")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "Resolve references without downloading")

	cmd.AddCommand(newArchiveCommand(opts))
	return cmd
}

// Execute runs the root command and exits with its status.
func Execute() {
	err := newRootCommand(&rootOptions{}).ExecuteContext(context.Background())
	switch {
	case err == nil:
	case errors.Is(err, errInterrupted):
		os.Exit(exitCodeInterrupted)
	default:
		printError(os.Stderr, err)
		os.Exit(1)
	}
}

// loadSettings layers defaults, the config file, environment and flags.
func loadSettings(cmd *cobra.Command, opts *rootOptions) (*config.Settings, error) {
	settings, err := config.LoadWithEnv(opts.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	applyFlags(cmd, opts, settings)
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return settings, nil
}

// applyFlags overrides settings with the flags the user set explicitly.
func applyFlags(cmd *cobra.Command, opts *rootOptions, s *config.Settings) {
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if opts.output != "" {
		s.TracksRoot = filepath.Join(opts.output, "Tracks")
		s.EpisodesRoot = filepath.Join(opts.output, "Podcasts")
	}
	if changed("gateway") {
		s.GatewayURL = opts.gatewayURL
	}
	if changed("format") {
		s.MusicFormat = opts.format
	}
	if changed("quality") {
		s.Quality = opts.quality
	}
	if changed("realtime") {
		s.DownloadRealTime = opts.realtime
	}
	if changed("raw") {
		s.RawAudioAsIs = opts.raw
	}
	if opts.noSkipExisting {
		s.SkipExisting = false
	}
	if opts.noSkipArchived {
		s.SkipPreviouslyDownloaded = false
	}
	if changed("max-attempts") {
		s.DownloadMaxRetries = opts.maxAttempts
	}
	if changed("playlist") {
		s.CreatePlaylist = opts.playlist
	}
	if changed("split-discs") {
		s.SplitAlbumDiscs = opts.splitDiscs
	}
	if changed("playlist-albums") {
		s.PlaylistAlbums = opts.playlistAlbums
	}
	if changed("album-dir") {
		s.AlbumDirLayout = opts.albumDir
	}
}

func run(ctx context.Context, settings *config.Settings, opts *rootOptions, input string) error {
	out := newPrinter(os.Stdout, opts.verbose)

	manager, err := download.NewManager(settings, out.event)
	if err != nil {
		return err
	}
	if isTerminal(os.Stderr) {
		manager.WithByteProgress(newByteBar(os.Stderr))
	}

	out.header()
	if err := manager.Initialize(ctx, input); err != nil {
		if ctx.Err() != nil {
			return errInterrupted
		}
		return err
	}

	if opts.dryRun {
		out.requests(manager.Requests())
		return nil
	}

	out.section("Starting downloads...")
	summary, err := manager.StartDownloads(ctx)
	if err != nil {
		if ctx.Err() != nil {
			out.section("Download cancelled.")
			return errInterrupted
		}
		return err
	}

	out.summary(summary)
	if summary.Failed > 0 {
		return fmt.Errorf("%d item(s) failed", summary.Failed)
	}
	return nil
}
