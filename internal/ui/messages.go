package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/ytmp/internal/app"
	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/queue"
)

type tickMsg time.Time

type resultMsg download.Result

type libraryMsg app.Library

type expandedMsg app.Expansion

type searchDoneMsg struct {
	query  string
	tracks []queue.Track
	err    error
}

type playlistDoneMsg struct {
	url    string
	tracks []queue.Track
	err    error
}

type queueSavedMsg struct{ err error }

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// waitForResult blocks on the download results channel. Each resultMsg
// handler issues it again.
func waitForResult(ch <-chan download.Result) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return nil
		}
		return resultMsg(res)
	}
}

func loadLibraryCmd(c *app.Controller) tea.Cmd {
	return func() tea.Msg {
		return libraryMsg(c.LoadLibrary())
	}
}

func expandCmd(items []string) tea.Cmd {
	return func() tea.Msg {
		return expandedMsg(app.ExpandItems(items))
	}
}

func searchCmd(ctx context.Context, cat Catalog, query string, limit int) tea.Cmd {
	return func() tea.Msg {
		tracks, err := cat.Search(ctx, query, limit)
		return searchDoneMsg{query: query, tracks: tracks, err: err}
	}
}

func playlistCmd(ctx context.Context, cat Catalog, url string) tea.Cmd {
	return func() tea.Msg {
		tracks, err := cat.Playlist(ctx, url)
		return playlistDoneMsg{url: url, tracks: tracks, err: err}
	}
}

func saveQueueCmd(save func() error) tea.Cmd {
	return func() tea.Msg {
		return queueSavedMsg{err: save()}
	}
}
