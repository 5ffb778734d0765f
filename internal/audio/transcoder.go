package audio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	ioutils "github.com/handiism/tunegrab/internal/io"
	"github.com/handiism/tunegrab/internal/logging"
)

// ErrEncoding reports that a raw stream could not be converted.
var ErrEncoding = errors.New("encoding failed")

// Format is the container/codec of the final file.
type Format string

const (
	// FormatMP3 re-encodes the stream with libmp3lame.
	FormatMP3 Format = "mp3"

	// FormatOGG copies the Vorbis stream into a clean Ogg container.
	FormatOGG Format = "ogg"
)

// ParseFormat accepts "mp3" or "ogg" in any case.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatMP3:
		return FormatMP3, nil
	case FormatOGG, "vorbis":
		return FormatOGG, nil
	default:
		return "", fmt.Errorf("unknown audio format %q", s)
	}
}

// Extension returns the file extension without the dot.
func (f Format) Extension() string { return string(f) }

// Quality selects the source stream tier.
type Quality string

const (
	// QualityNormal is the 160 kbit/s source.
	QualityNormal Quality = "normal"

	// QualityHigh is the 320 kbit/s source, available to premium accounts.
	QualityHigh Quality = "high"
)

// ParseQuality accepts "normal" or "high" in any case.
func ParseQuality(s string) (Quality, error) {
	switch Quality(strings.ToLower(strings.TrimSpace(s))) {
	case QualityNormal:
		return QualityNormal, nil
	case QualityHigh, "very_high":
		return QualityHigh, nil
	default:
		return "", fmt.Errorf("unknown quality %q", s)
	}
}

// SourceKbps returns the source bitrate of the tier.
func (q Quality) SourceKbps() int {
	if q == QualityHigh {
		return 320
	}
	return 160
}

// Mode selects between passthrough and conversion.
type Mode int

const (
	// ModeTranscode converts the raw stream to the configured Format.
	ModeTranscode Mode = iota

	// ModeRaw keeps the stream bytes exactly as received.
	ModeRaw
)

// TranscodeConfig controls conversion.
type TranscodeConfig struct {
	Mode    Mode
	Format  Format
	Quality Quality

	// VBR selects variable bitrate mp3 encoding.
	VBR bool

	// KeepRaw keeps the temporary stream file after a raw-mode copy.
	KeepRaw bool

	// FFmpegPath overrides the ffmpeg binary, default "ffmpeg".
	FFmpegPath string
}

// Extension returns the final file extension for the configuration.
// Raw passthrough always yields an Ogg file.
func (c *TranscodeConfig) Extension() string {
	if c.Mode == ModeRaw || c.Format == "" {
		return FormatOGG.Extension()
	}
	return c.Format.Extension()
}

// CommandRunner executes an external program.
type CommandRunner func(ctx context.Context, name string, args ...string) error

func defaultCommandRunner(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr strings.Builder
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

// Transcoder turns a raw stream file into the final audio file.
//
// Example:
//
//	tc := NewTranscoder(&TranscodeConfig{Format: FormatMP3, Quality: QualityHigh})
//	if err := tc.Transcode(ctx, "/music/Song-vorbis.raw", "/music/Song.mp3"); err != nil {
//	    // errors.Is(err, ErrEncoding)
//	}
type Transcoder struct {
	cfg TranscodeConfig
	run CommandRunner
	log zerolog.Logger
}

// NewTranscoder creates a Transcoder. A nil config means mp3 at normal quality.
func NewTranscoder(cfg *TranscodeConfig) *Transcoder {
	t := &Transcoder{run: defaultCommandRunner, log: logging.Component("transcoder")}
	if cfg != nil {
		t.cfg = *cfg
	}
	if t.cfg.Format == "" {
		t.cfg.Format = FormatMP3
	}
	if t.cfg.Quality == "" {
		t.cfg.Quality = QualityNormal
	}
	if t.cfg.FFmpegPath == "" {
		t.cfg.FFmpegPath = "ffmpeg"
	}
	return t
}

// WithCommandRunner replaces the ffmpeg runner, used by tests.
func (t *Transcoder) WithCommandRunner(r CommandRunner) *Transcoder {
	if r != nil {
		t.run = r
	}
	return t
}

// Config returns the effective configuration.
func (t *Transcoder) Config() TranscodeConfig { return t.cfg }

// Transcode produces finalPath from the raw stream at tempPath.
//
// This method:
//  1. Creates the destination directory
//  2. In raw mode, moves (or copies, with KeepRaw) the stream to finalPath
//     so the result is byte-identical to what was fetched
//  3. Otherwise runs ffmpeg: libmp3lame for mp3 (VBR quality or a fixed
//     bitrate from the source quality), a stream copy for ogg
//  4. Checks that ffmpeg produced a non-empty file
//  5. Removes the temporary stream
//
// Parameters:
//   - ctx: Cancels the ffmpeg process
//   - tempPath: The raw stream written by the reader
//   - finalPath: The output path, see model.PathConfig.OutputPath
//
// Returns an error wrapping ErrEncoding on failure, or ctx.Err() when
// cancelled. No partial final file is left behind in either case.
//
// Example:
//
//	t := NewTranscoder(&TranscodeConfig{Format: FormatMP3, Quality: QualityHigh})
//	err := t.Transcode(ctx, model.TempPath(final), final)
func (t *Transcoder) Transcode(ctx context.Context, tempPath, finalPath string) error {
	if err := ioutils.EnsureDir(filepath.Dir(finalPath)); err != nil {
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	if t.cfg.Mode == ModeRaw {
		return t.passthrough(ctx, tempPath, finalPath)
	}

	args := t.ffmpegArgs(tempPath, finalPath)
	t.log.Debug().Str("input", tempPath).Str("output", finalPath).Strs("args", args).Msg("Running ffmpeg")

	if err := t.run(ctx, t.cfg.FFmpegPath, args...); err != nil {
		_ = ioutils.RemoveIfExists(finalPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	if !ioutils.NonEmptyFile(finalPath) {
		_ = ioutils.RemoveIfExists(finalPath)
		return fmt.Errorf("%w: ffmpeg produced no output for %s", ErrEncoding, filepath.Base(finalPath))
	}

	if err := ioutils.RemoveIfExists(tempPath); err != nil {
		t.log.Warn().Err(err).Str("path", tempPath).Msg("Failed to remove temporary stream")
	}
	return nil
}

func (t *Transcoder) passthrough(ctx context.Context, tempPath, finalPath string) error {
	var err error
	if t.cfg.KeepRaw {
		err = ioutils.CopyFile(ctx, tempPath, finalPath)
	} else {
		err = os.Rename(tempPath, finalPath)
	}
	if err != nil {
		_ = ioutils.RemoveIfExists(finalPath)
		return fmt.Errorf("%w: %w", ErrEncoding, err)
	}
	return nil
}

// ffmpegArgs builds the conversion command line.
func (t *Transcoder) ffmpegArgs(input, output string) []string {
	args := []string{"-y", "-hide_banner", "-loglevel", "error", "-i", input}

	switch t.cfg.Format {
	case FormatOGG:
		args = append(args, "-c:a", "copy", "-f", "ogg")
	default:
		args = append(args, "-c:a", "libmp3lame")
		if t.cfg.VBR {
			q := "4"
			if t.cfg.Quality == QualityHigh {
				q = "0"
			}
			args = append(args, "-q:a", q)
		} else {
			args = append(args, "-b:a", fmt.Sprintf("%dk", t.cfg.Quality.SourceKbps()))
		}
		args = append(args, "-f", "mp3")
	}

	return append(args, output)
}
