package acquire

import (
	"errors"

	"github.com/handiism/tunegrab/internal/archive"
	"github.com/handiism/tunegrab/internal/audio"
)

// Failure classes. Match them with errors.Is.
var (
	// ErrMetadataUnavailable: the catalog could not describe the item.
	ErrMetadataUnavailable = errors.New("metadata unavailable")

	// ErrStreamUnavailable: the stream could not be opened or read.
	ErrStreamUnavailable = errors.New("stream unavailable")

	// ErrIncompleteStream: the stream stalled before its declared size.
	ErrIncompleteStream = errors.New("incomplete stream")

	// ErrEncoding: the raw stream could not be converted.
	ErrEncoding = audio.ErrEncoding

	// ErrTagging: metadata could not be embedded.
	ErrTagging = audio.ErrTagging

	// ErrIO: the ledger or output directory failed. Never retried.
	ErrIO = archive.ErrIO

	// ErrRetriesExhausted: the attempt bound was reached.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// retryable reports whether a failed attempt may be restarted.
func retryable(err error) bool {
	return !errors.Is(err, ErrIO)
}
