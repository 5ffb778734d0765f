package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/handiism/tunegrab/internal/acquire"
	"github.com/handiism/tunegrab/internal/model"
	"github.com/handiism/tunegrab/internal/stream"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#1DB954"))
	ruleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#95E1A3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A8DADC"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C757D"))
)

const rule = "────────────────────────────────────────"

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// printer renders status lines for the CLI.
type printer struct {
	w       io.Writer
	verbose bool
}

func newPrinter(w io.Writer, verbose bool) *printer {
	return &printer{w: w, verbose: verbose}
}

// event prints one status line. Verbose lines need --verbose.
func (p *printer) event(e acquire.ProgressEvent) {
	if e.Level == acquire.LevelVerbose && !p.verbose {
		return
	}
	fmt.Fprintln(p.w, formatEvent(e))
}

func formatEvent(e acquire.ProgressEvent) string {
	switch e.Level {
	case acquire.LevelError:
		return errorStyle.Render("✗ " + e.Message)
	case acquire.LevelWarning:
		return warningStyle.Render("! " + e.Message)
	case acquire.LevelSuccess:
		return successStyle.Render("✓ " + e.Message)
	case acquire.LevelInfo:
		return infoStyle.Render("› " + e.Message)
	default:
		return dimStyle.Render("  " + e.Message)
	}
}

func (p *printer) header() {
	fmt.Fprintln(p.w, titleStyle.Render("♫ tunegrab"))
	fmt.Fprintln(p.w, ruleStyle.Render(rule))
	fmt.Fprintln(p.w)
}

func (p *printer) section(title string) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, title)
	fmt.Fprintln(p.w)
}

// requests lists what a dry run would fetch.
func (p *printer) requests(reqs []acquire.Request) {
	rows := make([][]string, 0, len(reqs))
	for i, r := range reqs {
		rows = append(rows, []string{fmt.Sprint(i + 1), r.Kind.String(), r.ID, r.Collection, r.Dir})
	}
	fmt.Fprintln(p.w, renderTable([]string{"#", "Kind", "ID", "Collection", "Folder"}, rows, []columnAlignment{alignRight}))
	fmt.Fprintln(p.w, dimStyle.Render("[Dry run - not downloading]"))
}

func (p *printer) summary(s *acquire.Summary) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, ruleStyle.Render(rule))
	line := fmt.Sprintf("✨ Complete! %d downloaded (%s), %d skipped, %d failed in %s",
		s.Acquired, humanize.Bytes(uint64(s.Bytes)), s.Skipped, s.Failed, s.Elapsed.Round(time.Second))
	if s.Failed > 0 {
		fmt.Fprintln(p.w, warningStyle.Render(line))
	} else {
		fmt.Fprintln(p.w, successStyle.Render(line))
	}
}

func printError(w io.Writer, err error) {
	fmt.Fprintln(w, errorStyle.Render("Error: "+err.Error()))
}

// newByteBar returns a per-fetch byte progress bar writing to w.
func newByteBar(w io.Writer) acquire.ByteProgressFunc {
	return func(item *model.Item, total int64) stream.Progress {
		return progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription(truncate(item.DisplayName(), 40)),
			progressbar.OptionShowBytes(true),
			progressbar.OptionSetWidth(30),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSpinnerType(14),
		)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n-1])) + "…"
}
