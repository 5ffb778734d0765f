package audio

import (
	"context"
	"fmt"

	"github.com/bogem/id3v2"
)

// ID3Tagger writes ID3v2.4 tags to MP3 files.
//
// Frames written: TPE1, TIT2, TALB, TDRC, TDOR, TPOS, TRCK, COMM, TPE2,
// TCON and an APIC front cover when artwork is available.
//
// Example:
//
//	tagger := NewID3Tagger(nil)
//	err := tagger.Tag(ctx, "/music/Artist - Song.mp3", info)
type ID3Tagger struct {
	cover *CoverLoader
}

// NewID3Tagger creates an ID3Tagger. A nil cover loader disables artwork.
func NewID3Tagger(cover *CoverLoader) *ID3Tagger {
	return &ID3Tagger{cover: cover}
}

// Tag writes ID3 tags to the MP3 file at path.
//
// This method:
//  1. Fetches and prepares the cover art, if enabled and available
//  2. Opens the file's existing tag (an untagged file gets an empty one)
//  3. Writes the text frames as ID3v2.4 in UTF-8, replacing old values
//  4. Replaces any previous comment and front cover frames
//  5. Saves the tag back to the file
//
// Parameters:
//   - ctx: Cancels the cover download
//   - path: The MP3 file produced by the transcoder
//   - info: Field values, usually from BuildTagInfo
//
// Returns an error wrapping ErrTagging if the cover cannot be fetched or
// the file cannot be opened or saved. Empty numeric fields are omitted.
//
// Example:
//
//	info := BuildTagInfo(item, path, "shoegaze", DefaultNamespace)
//	if err := tagger.Tag(ctx, path, info); err != nil {
//	    return err
//	}
func (t *ID3Tagger) Tag(ctx context.Context, path string, info TagInfo) error {
	artwork, err := t.cover.Load(ctx, info.ArtworkURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTagging, err)
	}

	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrTagging, path, err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	tag.SetArtist(info.Artist)
	tag.SetTitle(info.Title)
	tag.SetAlbum(info.Album)
	tag.SetGenre(info.Genre)

	setText(tag, "TDRC", info.Year)
	setText(tag, "TDOR", info.Year)
	setText(tag, "TPOS", positiveNumber(info.DiscNumber))
	setText(tag, "TRCK", positiveNumber(info.TrackNumber))
	setText(tag, "TPE2", info.AlbumArtist)

	tag.DeleteFrames(tag.CommonID("Comments"))
	if info.Comment != "" {
		tag.AddCommentFrame(id3v2.CommentFrame{
			Encoding: id3v2.EncodingUTF8,
			Language: "eng",
			Text:     info.Comment,
		})
	}

	if artwork != nil {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    "image/jpeg",
			PictureType: id3v2.PTFrontCover,
			Description: info.Album,
			Picture:     artwork,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("%w: save %s: %w", ErrTagging, path, err)
	}
	return nil
}

func setText(tag *id3v2.Tag, id, value string) {
	tag.DeleteFrames(id)
	if value != "" {
		tag.AddTextFrame(id, id3v2.EncodingUTF8, value)
	}
}
