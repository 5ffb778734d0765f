package audio

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-flac/flacpicture"

	ioutils "github.com/handiism/tunegrab/internal/io"
)

// VorbisTagger writes Vorbis comments to Ogg files.
//
// The stream is copied by ffmpeg into a temporary sibling together with an
// ffmetadata file and then renamed over the original, so the audio is never
// re-encoded. The cover is stored as a base64 METADATA_BLOCK_PICTURE.
type VorbisTagger struct {
	ffmpeg string
	cover  *CoverLoader
	run    CommandRunner
}

// NewVorbisTagger creates a VorbisTagger. A nil cover loader disables artwork.
func NewVorbisTagger(config *TagConfig, cover *CoverLoader) *VorbisTagger {
	ffmpeg := "ffmpeg"
	if config != nil && config.FFmpegPath != "" {
		ffmpeg = config.FFmpegPath
	}
	return &VorbisTagger{ffmpeg: ffmpeg, cover: cover, run: defaultCommandRunner}
}

// WithCommandRunner replaces the ffmpeg runner, used by tests.
func (t *VorbisTagger) WithCommandRunner(r CommandRunner) *VorbisTagger {
	if r != nil {
		t.run = r
	}
	return t
}

// Tag writes Vorbis comments to the Ogg file at path.
//
// This method:
//  1. Fetches and prepares the cover art, if enabled and available
//  2. Builds the comment list, with the cover as METADATA_BLOCK_PICTURE
//  3. Writes the comments to an ffmetadata file next to path
//  4. Runs ffmpeg to stream-copy the audio with the new comments
//  5. Replaces path with the tagged copy
//
// The audio packets are never re-encoded. Temporary files are removed
// whether tagging succeeds or not.
//
// Returns an error wrapping ErrTagging on any failure, or ctx.Err() when
// cancelled. In both cases the original file is left untouched.
func (t *VorbisTagger) Tag(ctx context.Context, path string, info TagInfo) error {
	artwork, err := t.cover.Load(ctx, info.ArtworkURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}

	comments, err := VorbisComments(info, artwork)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}

	dir := filepath.Dir(path)
	metaFile, err := os.CreateTemp(dir, ".tag-*.ffmeta")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}
	metaPath := metaFile.Name()
	defer os.Remove(metaPath)

	_, err = metaFile.WriteString(ffmetadata(comments))
	if cerr := metaFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("%w: write metadata: %w", ErrTagging, err)
	}

	tmpPath := filepath.Join(dir, ".tag-"+filepath.Base(path)+".tmp")
	args := []string{
		"-y", "-hide_banner", "-loglevel", "error",
		"-i", path,
		"-f", "ffmetadata", "-i", metaPath,
		"-map", "0:a",
		"-map_metadata:s:a", "1:g",
		"-c", "copy",
		"-f", "ogg",
		tmpPath,
	}
	if err := t.run(ctx, t.ffmpeg, args...); err != nil {
		_ = ioutils.RemoveIfExists(tmpPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}
	if !ioutils.NonEmptyFile(tmpPath) {
		_ = ioutils.RemoveIfExists(tmpPath)
		return fmt.Errorf("%w: ffmpeg produced no output for %s", ErrTagging, filepath.Base(path))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = ioutils.RemoveIfExists(tmpPath)
		return fmt.Errorf("%w: replace %s: %w", ErrTagging, path, err)
	}
	return nil
}

// VorbisComment is one KEY=value pair.
type VorbisComment struct {
	Key   string
	Value string
}

// VorbisComments returns the comments written for info in a stable order.
// Empty values are omitted.
func VorbisComments(info TagInfo, artwork []byte) ([]VorbisComment, error) {
	all := []VorbisComment{
		{"TITLE", info.Title},
		{"ARTIST", info.Artist},
		{"TRACKNUMBER", positiveNumber(info.TrackNumber)},
		{"DISCNUMBER", positiveNumber(info.DiscNumber)},
		{"ALBUM", info.Album},
		{"ALBUMARTIST", info.AlbumArtist},
		{"DATE", info.Year},
		{"GENRE", info.Genre},
		{"COMMENT", info.Comment},
	}

	comments := all[:0]
	for _, c := range all {
		if c.Value != "" {
			comments = append(comments, c)
		}
	}

	if artwork != nil {
		block, err := PictureBlock(artwork, info.Album)
		if err != nil {
			return nil, err
		}
		comments = append(comments, VorbisComment{"METADATA_BLOCK_PICTURE", block})
	}
	return comments, nil
}

// PictureBlock encodes a JPEG front cover as a base64 FLAC picture block.
func PictureBlock(jpeg []byte, description string) (string, error) {
	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, description, jpeg, "image/jpeg")
	if err != nil {
		return "", fmt.Errorf("build picture block: %w", err)
	}
	block := pic.Marshal()
	return base64.StdEncoding.EncodeToString(block.Data), nil
}

var ffmetadataEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

func ffmetadata(comments []VorbisComment) string {
	var sb strings.Builder
	sb.WriteString(";FFMETADATA1\n")
	for _, c := range comments {
		sb.WriteString(ffmetadataEscaper.Replace(c.Key))
		sb.WriteByte('=')
		sb.WriteString(ffmetadataEscaper.Replace(c.Value))
		sb.WriteByte('\n')
	}
	return sb.String()
}
