package ui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/ytmp/internal/app"
	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/media"
	"github.com/olivier-w/ytmp/internal/player"
	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/util"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

// Catalog looks tracks up on the remote service.
type Catalog interface {
	Search(ctx context.Context, query string, limit int) ([]queue.Track, error)
	Playlist(ctx context.Context, url string) ([]queue.Track, error)
}

type mode int

const (
	modeQueue mode = iota
	modeSearchInput
	modeSearchResults
	modeURLInput
)

const historyRows = 3

// Options configures a Model.
type Options struct {
	Controller *app.Controller
	Catalog    Catalog
	// Items are files, playlists or URLs to enqueue and start once the
	// saved library has been loaded.
	Items []string
	// Context bounds search and playlist lookups.
	Context context.Context
}

// Model is the Bubbletea model for the ytmp TUI.
type Model struct {
	ctrl    *app.Controller
	catalog Catalog
	ctx     context.Context
	items   []string

	help    help.Model
	spinner spinner.Model
	input   textinput.Model
	results list.Model
	bar     progressSpring

	mode     mode
	cursor   int
	width    int
	height   int
	busy     string // lookup in progress, shown with the spinner
	autoplay bool
	quitting bool
	lastSrc  string
}

// New creates a Model driving ctrl.
func New(opts Options) Model {
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	fps := int(time.Second / opts.Controller.Settings().Interface.FrameInterval)
	return Model{
		ctrl:     opts.Controller,
		catalog:  opts.Catalog,
		ctx:      opts.Context,
		items:    opts.Items,
		help:     help.New(),
		spinner:  s,
		input:    newInput(),
		results:  newResultList(),
		bar:      newProgressSpring(max(fps, 1)),
		autoplay: len(opts.Items) > 0,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(m.ctrl.Settings().Interface.FrameInterval),
		waitForResult(m.ctrl.Results()),
		loadLibraryCmd(m.ctrl),
		m.spinner.Tick,
		tea.SetWindowTitle("ytmp"),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.results.SetSize(msg.Width, max(msg.Height-4, 5))
		return m, nil

	case tickMsg:
		m.ctrl.Tick()
		m.stepBar()
		return m, tickCmd(m.ctrl.Settings().Interface.FrameInterval)

	case resultMsg:
		m.ctrl.HandleResult(download.Result(msg))
		return m, waitForResult(m.ctrl.Results())

	case libraryMsg:
		m.ctrl.ApplyLibrary(app.Library(msg))
		if len(m.items) == 0 {
			return m, nil
		}
		m.busy = "Loading files"
		items := m.items
		m.items = nil
		return m, expandCmd(items)

	case expandedMsg:
		m.busy = ""
		return m, m.addExpansion(app.Expansion(msg))

	case searchDoneMsg:
		m.busy = ""
		if msg.err != nil {
			m.ctrl.NotifyError("Search failed: %v", msg.err)
			return m, nil
		}
		if len(msg.tracks) == 0 {
			m.ctrl.Notify("No results for %q", msg.query)
			return m, nil
		}
		setResults(&m.results, msg.query, msg.tracks)
		m.mode = modeSearchResults
		return m, nil

	case playlistDoneMsg:
		m.busy = ""
		if msg.err != nil && len(msg.tracks) == 0 {
			m.ctrl.NotifyError("Playlist failed: %v", msg.err)
			return m, nil
		}
		m.ctrl.AddTracks(msg.tracks)
		m.maybeAutoplay()
		return m, saveQueueCmd(m.ctrl.QueueSaver())

	case queueSavedMsg:
		if msg.err != nil {
			m.ctrl.NotifyError("Could not save queue: %v", msg.err)
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		switch m.mode {
		case modeSearchInput, modeURLInput:
			return m.updateInput(msg)
		case modeSearchResults:
			return m.updateResults(msg)
		}
		return m.updateQueue(msg)
	}

	if m.mode == modeSearchResults {
		var cmd tea.Cmd
		m.results, cmd = m.results.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) updateQueue(msg tea.KeyMsg) (Model, tea.Cmd) {
	cfg := m.ctrl.Settings()
	q := m.ctrl.Queue()

	switch {
	case key.Matches(msg, keys.Quit):
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case key.Matches(msg, keys.Play):
		m.ctrl.SmartPlay()
	case key.Matches(msg, keys.Next):
		m.ctrl.Next()
		m.clampCursor()
	case key.Matches(msg, keys.Prev):
		m.ctrl.Previous()
	case key.Matches(msg, keys.Select):
		m.ctrl.JumpTo(m.cursor)
		m.cursor = 0
	case key.Matches(msg, keys.Up):
		m.moveCursor(-1)
	case key.Matches(msg, keys.Down):
		m.moveCursor(1)
	case key.Matches(msg, keys.Remove):
		m.ctrl.RemoveAt(m.cursor)
		m.clampCursor()
	case key.Matches(msg, keys.SeekBack):
		m.ctrl.Seek(-cfg.Playback.SeekStep)
	case key.Matches(msg, keys.SeekForward):
		m.ctrl.Seek(cfg.Playback.SeekStep)
	case key.Matches(msg, keys.VolUp):
		m.ctrl.AdjustVolume(cfg.Playback.VolumeStep)
	case key.Matches(msg, keys.VolDown):
		m.ctrl.AdjustVolume(-cfg.Playback.VolumeStep)
	case key.Matches(msg, keys.VolUpMore):
		m.ctrl.AdjustVolume(cfg.Playback.VolumeStepLarge)
	case key.Matches(msg, keys.VolDownMore):
		m.ctrl.AdjustVolume(-cfg.Playback.VolumeStepLarge)
	case key.Matches(msg, keys.Search):
		return m.openInput(modeSearchInput, "search YouTube")
	case key.Matches(msg, keys.Open):
		return m.openInput(modeURLInput, "https://www.youtube.com/playlist?list=...")
	case key.Matches(msg, keys.Retry):
		if !m.ctrl.RetryWaiting() {
			if t, ok := q.At(m.cursor); ok {
				m.ctrl.Retry(t)
			}
		}
	case key.Matches(msg, keys.Save):
		dir, err := os.Getwd()
		if err != nil {
			m.ctrl.NotifyError("Save failed: %v", err)
			break
		}
		m.ctrl.SaveCopy(dir)
	case key.Matches(msg, keys.Shuffle):
		m.ctrl.Shuffle()
	case key.Matches(msg, keys.Clear):
		m.ctrl.ClearHistory()
	case key.Matches(msg, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) moveCursor(delta int) {
	from := m.cursor
	m.cursor += delta
	m.clampCursor()
	if m.cursor != from {
		m.ctrl.MoveCursor(from, m.cursor)
	}
}

func (m *Model) clampCursor() {
	m.cursor = max(0, min(m.cursor, m.ctrl.Queue().Len()-1))
}

func (m Model) openInput(md mode, placeholder string) (Model, tea.Cmd) {
	m.mode = md
	m.input.Reset()
	m.input.Placeholder = placeholder
	m.input.Focus()
	return m, textinput.Blink
}

func (m Model) closeInput() Model {
	m.mode = modeQueue
	m.input.Blur()
	m.input.Reset()
	return m
}

func (m Model) updateInput(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m.closeInput(), nil
	case "ctrl+c":
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		md := m.mode
		m = m.closeInput()
		if value == "" {
			return m, nil
		}
		if md == modeSearchInput {
			m.busy = "Searching"
			return m, searchCmd(m.ctx, m.catalog, value, m.ctrl.Settings().Library.SearchResults)
		}
		return m, m.openURL(value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// openURL enqueues a video or expands a playlist URL.
func (m *Model) openURL(u string) tea.Cmd {
	if !ytdlp.IsURL(u) {
		m.ctrl.NotifyError("Not a URL: %s", u)
		return nil
	}
	if ytdlp.IsPlaylistURL(u) {
		m.busy = "Loading playlist"
		return playlistCmd(m.ctx, m.catalog, u)
	}
	id := ytdlp.VideoID(u)
	if id == "" {
		id = u
	}
	m.ctrl.AddTracks([]queue.Track{{ID: id, Title: id, URL: u}})
	return saveQueueCmd(m.ctrl.QueueSaver())
}

func (m Model) updateResults(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isForceQuit(msg) {
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}
	if m.results.FilterState() != list.Filtering {
		switch {
		case key.Matches(msg, resultKeyMap.Back):
			if m.results.FilterState() == list.FilterApplied {
				m.results.ResetFilter()
				return m, nil
			}
			m.mode = modeQueue
			return m, nil
		case key.Matches(msg, resultKeyMap.AddAll):
			m.ctrl.AddTracks(resultTracks(m.results))
			m.mode = modeQueue
			return m, saveQueueCmd(m.ctrl.QueueSaver())
		case key.Matches(msg, resultKeyMap.Add):
			if it, ok := m.results.SelectedItem().(trackItem); ok {
				m.ctrl.AddTracks([]queue.Track{it.track})
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m *Model) addExpansion(exp app.Expansion) tea.Cmd {
	var cmds []tea.Cmd
	if len(exp.Tracks) > 0 {
		m.ctrl.AddTracks(exp.Tracks)
		m.maybeAutoplay()
		cmds = append(cmds, saveQueueCmd(m.ctrl.QueueSaver()))
	}
	if exp.Skipped > 0 {
		m.ctrl.NotifyError("Skipped %d unplayable items (supported: %s)", exp.Skipped, media.SupportedExtsList())
	}
	for _, u := range exp.Playlists {
		m.busy = "Loading playlist"
		cmds = append(cmds, playlistCmd(m.ctx, m.catalog, u))
	}
	return tea.Batch(cmds...)
}

// maybeAutoplay starts playback once for items given on the command line.
func (m *Model) maybeAutoplay() {
	if !m.autoplay {
		return
	}
	if _, ok := m.ctrl.Queue().Current(); ok {
		return
	}
	if m.ctrl.Queue().IsEmpty() {
		return
	}
	m.autoplay = false
	m.ctrl.SmartPlay()
}

func (m *Model) stepBar() {
	e := m.ctrl.Engine()
	ratio := 0.0
	if d := e.Duration(); d > 0 {
		ratio = float64(e.Position()) / float64(d)
	}
	if e.Source() != m.lastSrc {
		m.lastSrc = e.Source()
		m.bar.snap(ratio)
		return
	}
	m.bar.step(ratio)
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.mode {
	case modeSearchResults:
		return m.results.View() + "\n  " + m.help.View(resultKeyMap) + "\n"
	case modeSearchInput, modeURLInput:
		return m.viewInput()
	}
	return m.viewPlayer()
}

func (m Model) contentWidth() int {
	w := m.width
	if w < 30 {
		w = 60
	}
	return w - 4
}

func (m Model) viewInput() string {
	prompt := "Search:"
	if m.mode == modeURLInput {
		prompt = "Open URL (video or playlist):"
	}
	s := "\n"
	s += "  " + headerStyle.Render("ytmp") + "\n"
	s += "\n"
	s += "  " + statusStyle.Render(prompt) + "\n"
	s += "  " + m.input.View() + "\n"
	s += "\n"
	s += "  " + helpStyle.Render("enter confirm  esc back  ctrl+c quit") + "\n"
	return s
}

func (m Model) viewPlayer() string {
	w := m.contentWidth()
	e := m.ctrl.Engine()
	cur, hasCurrent := m.ctrl.Queue().Current()

	header := headerStyle.Render("ytmp")
	if m.busy != "" {
		header += "  " + m.spinner.View() + helpStyle.Render(m.busy+"...")
	}

	var b strings.Builder
	b.WriteString("\n  " + header + "\n\n")

	switch {
	case hasCurrent:
		b.WriteString("  " + titleStyle.Render(truncate(cur.Title, w)) + "\n")
		if cur.Uploader != "" {
			b.WriteString("  " + artistStyle.Render(truncate(cur.Uploader, w)) + "\n")
		}
	default:
		b.WriteString("  " + artistStyle.Render("Nothing playing. Press / to search or o to open a URL.") + "\n")
	}
	b.WriteString("\n")

	elapsed := util.FormatDuration(e.Position())
	duration := util.FormatDuration(e.Duration())
	if e.Duration() == 0 && hasCurrent {
		duration = formatTrackLength(cur.Duration)
	}
	barWidth := w - len(elapsed) - len(duration) - 2
	b.WriteString(fmt.Sprintf("  %s %s %s\n\n",
		timeStyle.Render(elapsed), renderProgressBar(m.bar.pos, barWidth), timeStyle.Render(duration)))

	left := stateLabel(e.State())
	if _, waiting := m.ctrl.Waiting(); waiting {
		left = m.spinner.View() + "downloading"
	}
	vol := renderVolumePercent(e.Volume())
	gap := max(w-lipgloss.Width(left)-len(vol), 2)
	b.WriteString("  " + statusStyle.Render(left) + strings.Repeat(" ", gap) + statusStyle.Render(vol) + "\n")

	if st := m.ctrl.Status(); st.Text != "" {
		style := helpStyle
		if st.IsError {
			style = errorStyle
		}
		b.WriteString("  " + style.Render(truncate(st.Text, w)) + "\n")
	}
	b.WriteString("  " + helpStyle.Render(formatDownloadStats(m.ctrl.DownloadStats())) + "\n\n")

	b.WriteString(m.viewQueue(w))
	b.WriteString(m.viewHistory(w))

	b.WriteString("\n  " + m.help.View(keys) + "\n")
	return b.String()
}

func (m Model) viewQueue(w int) string {
	q := m.ctrl.Queue()
	var b strings.Builder
	b.WriteString("  " + headerStyle.Render(fmt.Sprintf("Up next (%d)", q.Len())) + "\n")
	if q.IsEmpty() {
		b.WriteString("  " + helpStyle.Render("queue is empty") + "\n")
		return b.String()
	}

	start, end := queueWindow(m.cursor, m.ctrl.Settings().Interface.QueueWindowSize, q.Len())
	for i, t := range q.Slice(start, end-start) {
		idx := start + i
		marker := "  "
		if idx == m.cursor {
			marker = cursorStyle.Render("> ")
		}
		length := formatTrackLength(t.Duration)
		title := padRight(truncate(t.Title, w-len(length)-6), w-len(length)-5)
		line := marker + statusGlyph(m.ctrl.TrackStatus(t)) + " " + title + timeStyle.Render(length)
		b.WriteString("  " + line + "\n")
	}
	if end < q.Len() {
		b.WriteString("  " + helpStyle.Render(fmt.Sprintf("  ... %d more", q.Len()-end)) + "\n")
	}
	return b.String()
}

func (m Model) viewHistory(w int) string {
	recent := m.ctrl.Queue().RecentHistory(historyRows)
	if len(recent) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\n  " + headerStyle.Render("Recently played") + "\n")
	for _, t := range recent {
		b.WriteString("    " + artistStyle.Render(truncate(t.Title, w-2)) + "\n")
	}
	return b.String()
}

func stateLabel(s player.State) string {
	switch s {
	case player.Playing:
		return "▶  playing"
	case player.Paused:
		return "❚❚ paused"
	case player.Loading:
		return "…  loading"
	default:
		return "■  stopped"
	}
}
