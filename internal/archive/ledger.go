package archive

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/handiism/tunegrab/internal/model"
)

// File names of the per-kind ledgers.
const (
	SongArchiveName    = ".song_archive"
	EpisodeArchiveName = ".episode_archive"
)

// TimestampLayout is the layout of the second field of a ledger line.
const TimestampLayout = "2006-01-02 15:04:05"

// ErrIO marks filesystem failures while reading or writing a ledger.
var ErrIO = errors.New("archive I/O failure")

// Entry is one completed acquisition.
type Entry struct {
	ItemID    string
	Timestamp time.Time
	Author    string
	Title     string
	Filename  string
}

// Ledger is an append-only record of completed item ids backed by one file.
//
// Ledger holds no state besides its path: every call goes to disk, so
// entries appended by an earlier run are always visible.
type Ledger struct {
	path string
	now  func() time.Time
}

// NewLedger creates a Ledger backed by the file at path. The file is
// created on the first Append.
func NewLedger(path string) *Ledger {
	return &Ledger{path: path, now: time.Now}
}

// ForKind returns the ledger for kind, located in the kind's output root.
func ForKind(cfg *model.PathConfig, kind model.Kind) *Ledger {
	name := SongArchiveName
	if kind == model.KindEpisode {
		name = EpisodeArchiveName
	}
	return NewLedger(filepath.Join(cfg.Root(kind), name))
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

// Contains reports whether any line's leading field equals itemID.
// A ledger file that does not exist yet is treated as empty.
func (l *Ledger) Contains(itemID string) (bool, error) {
	found := false
	err := l.scan(func(fields []string) bool {
		if fields[0] == itemID {
			found = true
			return false
		}
		return true
	})
	return found, err
}

// Entries returns every entry in file order.
func (l *Ledger) Entries() ([]Entry, error) {
	var entries []Entry
	err := l.scan(func(fields []string) bool {
		entries = append(entries, parseEntry(fields))
		return true
	})
	return entries, err
}

// Append writes one entry as a single line. A zero Timestamp is replaced
// by the current time.
func (l *Ledger) Append(entry Entry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}

	file, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer file.Close()

	if _, err := file.WriteString(formatEntry(entry)); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	if err := file.Sync(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

// scan calls fn for every non-empty line until fn returns false.
func (l *Ledger) scan(fn func(fields []string) bool) error {
	file, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !fn(strings.Split(line, "\t")) {
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrIO, err)
	}
	return nil
}

var fieldCleaner = strings.NewReplacer("\t", " ", "\r", " ", "\n", " ")

func formatEntry(e Entry) string {
	fields := []string{
		fieldCleaner.Replace(e.ItemID),
		e.Timestamp.Format(TimestampLayout),
		fieldCleaner.Replace(e.Author),
		fieldCleaner.Replace(e.Title),
		fieldCleaner.Replace(e.Filename),
	}
	return strings.Join(fields, "\t") + "\n"
}

func parseEntry(fields []string) Entry {
	get := func(i int) string {
		if i < len(fields) {
			return fields[i]
		}
		return ""
	}
	ts, _ := time.ParseInLocation(TimestampLayout, get(1), time.Local)
	return Entry{
		ItemID:    get(0),
		Timestamp: ts,
		Author:    get(2),
		Title:     get(3),
		Filename:  get(4),
	}
}
