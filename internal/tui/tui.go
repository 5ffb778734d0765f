// Package tui provides a Bubble Tea terminal user interface for tunegrab.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/handiism/tunegrab/internal/acquire"
	"github.com/handiism/tunegrab/internal/config"
	"github.com/handiism/tunegrab/internal/download"
	"github.com/handiism/tunegrab/internal/logging"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#1DB954")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	collectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many status lines stay on screen.
const maxLogs = 10

var errCancelled = errors.New("cancelled by user")

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   acquire.ProgressLevel
}

// sender lets commands running outside Update reach the program.
type sender struct {
	program *tea.Program
}

func (s *sender) send(msg tea.Msg) {
	if s != nil && s.program != nil {
		s.program.Send(msg)
	}
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state       State
	textInput   textinput.Model
	spinner     spinner.Model
	progress    progress.Model
	settings    *config.Settings
	logs        []LogEntry
	collections []string
	summary     *acquire.Summary
	err         error

	// Run context, renewed from parent for every new download
	parent context.Context
	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	out     *sender

	// Download progress
	filesTotal    int32
	filesDone     int32
	totalBytes    int64
	receivedBytes int64

	// Options
	playlist bool
	realtime bool
	raw      bool
	verbose  bool

	initial string

	width  int
	height int
}

// NewModel creates a new TUI model. A non-empty initial input starts
// fetching immediately.
func NewModel(ctx context.Context, settings *config.Settings, initial string) Model {
	ti := textinput.New()
	ti.Placeholder = "album:1DFixLWuPkv3KT3TnV35m3 or https://open.spotify.com/track/..."
	ti.Focus()
	ti.CharLimit = 2000
	ti.Width = 60
	ti.SetValue(initial)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#1DB954"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	runCtx, cancel := context.WithCancel(ctx)

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		parent:    ctx,
		ctx:       runCtx,
		cancel:    cancel,
		playlist:  settings.CreatePlaylist,
		realtime:  settings.DownloadRealTime,
		raw:       settings.RawAudioAsIs,
		initial:   strings.TrimSpace(initial),
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	if m.initial != "" {
		return tea.Batch(m.spinner.Tick, func() tea.Msg { return startMsg{} })
	}
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg is sent for every status line of the run.
	ProgressMsg struct {
		Event acquire.ProgressEvent
	}

	// InitDoneMsg is sent when reference expansion completes.
	InitDoneMsg struct {
		Collections []string
		Manager     *download.Manager
		Err         error
	}

	// DownloadDoneMsg is sent when the batch finishes.
	DownloadDoneMsg struct {
		Summary *acquire.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}

	startMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				m.cancel()
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateInitializing {
				m.cancel()
				m.state = StateError
				m.err = errCancelled
			}

		case "enter":
			if m.state == StateInput && strings.TrimSpace(m.textInput.Value()) != "" {
				return m.start()
			}

		case "ctrl+p":
			if m.state == StateInput {
				m.playlist = !m.playlist
			}

		case "ctrl+t":
			if m.state == StateInput {
				m.realtime = !m.realtime
			}

		case "ctrl+r":
			if m.state == StateInput {
				m.raw = !m.raw
			}

		case "ctrl+v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "n":
			if m.state == StateComplete || m.state == StateError {
				m = m.reset()
				return m, textinput.Blink
			}
		}

	case startMsg:
		return m.start()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		m = m.appendLog(msg.Event)

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
			if m.ctx.Err() != nil {
				m.err = errCancelled
			}
		} else if m.state == StateInitializing {
			m.collections = msg.Collections
			m.manager = msg.Manager
			m.state = StateDownloading
			cmds = append(cmds, m.startDownload(), m.tickProgress())
		}

	case DownloadDoneMsg:
		m.summary = msg.Summary
		m = m.pollProgress()
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = errCancelled
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateDownloading {
			m = m.pollProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) start() (Model, tea.Cmd) {
	m.state = StateInitializing
	m.textInput.Blur()
	return m, tea.Batch(m.initializeDownload(), m.spinner.Tick)
}

func (m Model) reset() Model {
	m.state = StateInput
	m.logs = nil
	m.collections = nil
	m.summary = nil
	m.err = nil
	m.filesDone, m.filesTotal = 0, 0
	m.receivedBytes, m.totalBytes = 0, 0
	m.manager = nil
	m.initial = ""
	m.ctx, m.cancel = context.WithCancel(m.parent)
	m.textInput.SetValue("")
	m.textInput.Focus()
	return m
}

// appendLog keeps the last maxLogs entries. Verbose entries are dropped
// unless verbose mode is on.
func (m Model) appendLog(event acquire.ProgressEvent) Model {
	if event.Level == acquire.LevelVerbose && !m.verbose {
		return m
	}
	m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
	return m
}

func (m Model) pollProgress() Model {
	if m.manager != nil {
		m.receivedBytes, m.totalBytes, m.filesDone, m.filesTotal = m.manager.GetProgress()
	}
	return m
}

func (m Model) percent() float64 {
	if m.filesTotal == 0 {
		return 0
	}
	return float64(m.filesDone) / float64(m.filesTotal)
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	// Header
	b.WriteString(titleStyle.Render("♫ tunegrab"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Archive tracks and podcast episodes"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	// Footer
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter references (space separated):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s Create playlist (ctrl+p)\n", checkbox(m.playlist))
	fmt.Fprintf(&b, "  %s Real-time pacing (ctrl+t)\n", checkbox(m.realtime))
	fmt.Fprintf(&b, "  %s Keep raw audio (ctrl+r)\n", checkbox(m.raw))
	fmt.Fprintf(&b, "  %s Verbose output (ctrl+v)\n", checkbox(m.verbose))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Tracks: %s", m.settings.TracksRoot)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Episodes: %s", m.settings.EpisodesRoot)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Fetching item info..."))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if len(m.collections) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Found %d collection(s):", len(m.collections))))
		b.WriteString("\n")
		for _, c := range m.collections {
			b.WriteString(collectionStyle.Render("  ♪ " + c))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf(
		"Items: %d/%d | Downloaded: %s",
		m.filesDone,
		m.filesTotal,
		humanize.Bytes(uint64(m.receivedBytes)),
	)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var acquired, skipped, failed int
	var size int64
	if m.summary != nil {
		acquired, skipped, failed, size = m.summary.Acquired, m.summary.Skipped, m.summary.Failed, m.summary.Bytes
	}

	return boxStyle.Render(fmt.Sprintf(
		"✨ Download Complete!\n\n"+
			"Downloaded: %d\n"+
			"Skipped: %d\n"+
			"Failed: %d\n"+
			"Size: %s",
		acquired, skipped, failed, humanize.Bytes(uint64(size)),
	)) + "\n\n" + m.renderLogs()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		fmt.Fprintf(&b, "  %s", m.err.Error())
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case acquire.LevelError:
			style = errorStyle
			prefix = "✗"
		case acquire.LevelWarning:
			style = warningStyle
			prefix = "!"
		case acquire.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case acquire.LevelInfo:
			style = infoStyle
			prefix = "›"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start • ctrl+p: playlist • ctrl+t: real-time • ctrl+r: raw • ctrl+v: verbose • esc: quit"
	case StateInitializing, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "n: new download • q: quit"
	}
	return ""
}

// runSettings applies the toggles to a copy of the base settings.
func (m Model) runSettings() *config.Settings {
	s := *m.settings
	s.CreatePlaylist = m.playlist
	s.DownloadRealTime = m.realtime
	s.RawAudioAsIs = m.raw
	return &s
}

// initializeDownload expands the references and creates the manager.
func (m Model) initializeDownload() tea.Cmd {
	input := m.textInput.Value()
	settings := m.runSettings()
	ctx, out := m.ctx, m.out

	return func() tea.Msg {
		manager, err := download.NewManager(settings, func(event acquire.ProgressEvent) {
			out.send(ProgressMsg{Event: event})
		})
		if err != nil {
			return InitDoneMsg{Err: err}
		}
		if err := manager.Initialize(ctx, input); err != nil {
			return InitDoneMsg{Err: err}
		}
		return InitDoneMsg{Collections: manager.GetCollectionNames(), Manager: manager}
	}
}

// startDownload runs the batch in the background.
func (m Model) startDownload() tea.Cmd {
	manager, ctx := m.manager, m.ctx
	return func() tea.Msg {
		summary, err := manager.StartDownloads(ctx)
		return DownloadDoneMsg{Summary: summary, Err: err}
	}
}

// Run starts the TUI application. Logging is silenced while the
// alternate screen is active. Cancelling ctx quits the program.
func Run(ctx context.Context, settings *config.Settings, initial string) error {
	logging.Disable()

	out := &sender{}
	model := NewModel(ctx, settings, initial)
	model.out = out

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	out.program = p

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		_, err := p.Run()
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return err
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			p.Quit()
		case <-done:
		}
		return nil
	})
	return g.Wait()
}
