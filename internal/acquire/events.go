package acquire

import (
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

// String returns the lowercase level name.
func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	default:
		return "info"
	}
}

// ProgressEvent is a user-facing status line.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
}

// ProgressFunc receives status lines.
type ProgressFunc func(ProgressEvent)

// ByteProgressFunc returns a byte-level progress sink for one fetch, or nil.
// It is called once per attempt with the stream's declared size.
type ByteProgressFunc func(item *model.Item, total int64) stream.Progress
