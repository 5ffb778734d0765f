// Package audio turns raw streams into finished, tagged audio files.
//
// # Transcoding
//
// The Transcoder runs ffmpeg to produce the final file from the raw stream:
//
//	tc := audio.NewTranscoder(&audio.TranscodeConfig{Format: audio.FormatMP3, Quality: audio.QualityHigh})
//	err := tc.Transcode(ctx, tempPath, finalPath)
//
// Raw mode skips ffmpeg and keeps the stream bytes unchanged.
//
// # Tagging
//
// NewTagger picks the tag writer for the output format:
//
//	tagger := audio.NewTagger(audio.FormatMP3, audio.DefaultTagConfig(), httpClient)
//	err := tagger.Tag(ctx, finalPath, audio.BuildTagInfo(item, finalPath, genre, ""))
//
// MP3 files get ID3v2.4 frames, Ogg files get Vorbis comments with a
// METADATA_BLOCK_PICTURE cover.
//
// # Playlist Generation
//
//	creator := audio.NewPlaylistCreator(audio.PlaylistM3U, true)
//	content := creator.CreatePlaylist(list)
//
// Supported formats:
//   - M3U (with optional extended info)
//   - PLS
//   - WPL (Windows Media Player)
//   - ZPL (Zune Media Player)
package audio
