package ui

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/ytmp/internal/app"
	"github.com/olivier-w/ytmp/internal/config"
	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/player"
	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/store"
)

type stubCatalog struct {
	tracks []queue.Track
	err    error
}

func (c stubCatalog) Search(context.Context, string, int) ([]queue.Track, error) {
	return c.tracks, c.err
}

func (c stubCatalog) Playlist(context.Context, string) ([]queue.Track, error) {
	return c.tracks, c.err
}

type memStream struct{ *bytes.Reader }

func (memStream) Close() error    { return nil }
func (m memStream) Length() int64 { return m.Size() }

func newTestModel(t *testing.T, cat Catalog) Model {
	t.Helper()
	st, err := store.Open(t.TempDir())
	require.NoError(t, err)

	// fetches never finish on their own
	dl := download.NewCoordinator(download.NewRegistry(4), download.FetchFunc(
		func(ctx context.Context, _ queue.Track) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}), download.Options{Lookahead: 15, PlaybackBuffer: 10, RestoreBuffer: 5})

	engine := player.NewEngine(player.NullSink{}, player.WithDecoder(func(string) (player.Stream, error) {
		return memStream{bytes.NewReader(make([]byte, 1024))}, nil
	}))
	cfg := config.DefaultSettings()
	cfg.Downloads.RemoveAfterPlay = 0
	ctrl := app.New(app.Deps{Engine: engine, Downloads: dl, Store: st, Settings: cfg})

	t.Cleanup(func() {
		dl.Shutdown(time.Second)
		st.Close()
	})
	m := New(Options{Controller: ctrl, Catalog: cat})
	m, _ = m.handleMsg(tea.WindowSizeMsg{Width: 80, Height: 40})
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func tracks(n int) []queue.Track {
	out := make([]queue.Track, n)
	for i := range out {
		id := string(rune('a' + i))
		out[i] = queue.Track{ID: id, Title: "Song " + id, Duration: 120, URL: "https://www.youtube.com/watch?v=" + id}
	}
	return out
}

func TestCursorStaysInQueue(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m.ctrl.AddTracks(tracks(3))

	m, _ = m.handleMsg(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.handleMsg(runes("j"))
	m, _ = m.handleMsg(runes("j"))
	assert.Equal(t, 2, m.cursor)

	m, _ = m.handleMsg(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 1, m.cursor)

	m, _ = m.handleMsg(runes("d"))
	assert.Equal(t, 2, m.ctrl.Queue().Len())
	m, _ = m.handleMsg(runes("d"))
	assert.Equal(t, 0, m.cursor)
}

func TestEnterPlaysSelected(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m.ctrl.AddTracks(tracks(3))
	m, _ = m.handleMsg(runes("j"))
	m, _ = m.handleMsg(tea.KeyMsg{Type: tea.KeyEnter})

	cur, ok := m.ctrl.Queue().Current()
	require.True(t, ok)
	assert.Equal(t, "b", cur.ID)
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 1, m.ctrl.Queue().Len())
}

func TestSearchFlow(t *testing.T) {
	m := newTestModel(t, stubCatalog{tracks: tracks(2)})

	m, _ = m.handleMsg(runes("/"))
	require.Equal(t, modeSearchInput, m.mode)
	m.input.SetValue("lofi")

	m, cmd := m.handleMsg(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.Equal(t, modeQueue, m.mode)
	assert.Equal(t, "Searching", m.busy)

	m, _ = m.handleMsg(cmd())
	require.Equal(t, modeSearchResults, m.mode)
	assert.Len(t, m.results.Items(), 2)

	m, _ = m.handleMsg(runes("A"))
	assert.Equal(t, modeQueue, m.mode)
	assert.Equal(t, 2, m.ctrl.Queue().Len())
}

func TestSearchErrorShowsStatus(t *testing.T) {
	m := newTestModel(t, stubCatalog{err: errors.New("yt-dlp not found")})
	m, _ = m.handleMsg(searchDoneMsg{query: "x", err: errors.New("yt-dlp not found")})
	assert.Equal(t, modeQueue, m.mode)
	st := m.ctrl.Status()
	assert.True(t, st.IsError)
	assert.Contains(t, st.Text, "yt-dlp not found")
}

func TestEscLeavesInput(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m, _ = m.handleMsg(runes("o"))
	require.Equal(t, modeURLInput, m.mode)
	m, _ = m.handleMsg(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeQueue, m.mode)
}

func TestOpenVideoURL(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m, _ = m.handleMsg(runes("o"))
	m.input.SetValue("https://youtu.be/xyz")
	m, cmd := m.handleMsg(tea.KeyMsg{Type: tea.KeyEnter})
	assert.NotNil(t, cmd)

	tr, ok := m.ctrl.Queue().At(0)
	require.True(t, ok)
	assert.Equal(t, "xyz", tr.ID)
}

func TestPlaylistResultAutoplaysCommandLineItems(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m.autoplay = true

	m, cmd := m.handleMsg(playlistDoneMsg{url: "u", tracks: tracks(2)})
	assert.NotNil(t, cmd)
	_, waiting := m.ctrl.Waiting()
	assert.True(t, waiting, "first track waits for its download")
	assert.False(t, m.autoplay)
}

func TestLibraryMsgExpandsItems(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m.items = []string{"https://www.youtube.com/watch?v=abc"}

	m, cmd := m.handleMsg(libraryMsg{})
	require.NotNil(t, cmd)
	assert.Nil(t, m.items)

	msg := cmd()
	exp, ok := msg.(expandedMsg)
	require.True(t, ok)
	require.Len(t, exp.Tracks, 1)
	assert.Equal(t, "abc", exp.Tracks[0].ID)
}

func TestViewShowsQueue(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m.ctrl.AddTracks(tracks(2))

	view := m.View()
	assert.Contains(t, view, "Up next (2)")
	assert.Contains(t, view, "Song a")
	assert.Contains(t, view, "2:00")
	assert.Contains(t, view, "downloads")
}

func TestQuit(t *testing.T) {
	m := newTestModel(t, stubCatalog{})
	m, cmd := m.handleMsg(runes("q"))
	assert.True(t, m.Quitting())
	assert.NotNil(t, cmd)
	assert.Empty(t, m.View())
}

func TestQueueWindow(t *testing.T) {
	cases := []struct {
		cursor, size, n int
		start, end      int
	}{
		{0, 12, 5, 0, 5},
		{0, 12, 30, 0, 12},
		{10, 12, 30, 4, 16},
		{29, 12, 30, 18, 30},
		{0, 0, 30, 0, 0},
	}
	for _, tc := range cases {
		start, end := queueWindow(tc.cursor, tc.size, tc.n)
		assert.Equal(t, tc.start, start, "start for %+v", tc)
		assert.Equal(t, tc.end, end, "end for %+v", tc)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "hello", truncate("hello", 10))
	assert.Equal(t, "hel…", truncate("hello", 4))
	assert.Equal(t, "日本…", truncate("日本語の歌", 5))
	assert.Equal(t, "", truncate("x", 0))
}

func TestRenderProgressBar(t *testing.T) {
	bar := renderProgressBar(0.5, 12)
	assert.Equal(t, 5, strings.Count(bar, "━"))
	assert.Equal(t, 5, strings.Count(bar, "─"))
	assert.Equal(t, 8, strings.Count(renderProgressBar(2, 10), "━"))
}

func TestFormatDownloadStats(t *testing.T) {
	assert.Equal(t, "downloads 1/30  cached 2 (3.0 MB)", formatDownloadStats(download.Stats{Active: 1, Limit: 30, Cached: 2, Bytes: 3_000_000}))
	assert.Contains(t, formatDownloadStats(download.Stats{Failed: 4}), "failed 4")
}

func TestProgressSpringSettles(t *testing.T) {
	p := newProgressSpring(20)
	for range 200 {
		p.step(0.5)
	}
	assert.InDelta(t, 0.5, p.pos, 0.01)
	p.snap(0)
	assert.Zero(t, p.pos)
}
