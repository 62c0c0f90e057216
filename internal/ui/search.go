package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/lipgloss"

	"github.com/olivier-w/ytmp/internal/queue"
)

type trackItem struct {
	track queue.Track
}

func (i trackItem) Title() string { return i.track.Title }
func (i trackItem) Description() string {
	desc := formatTrackLength(i.track.Duration)
	if i.track.Uploader != "" {
		desc += "  " + i.track.Uploader
	}
	return desc
}
func (i trackItem) FilterValue() string { return i.track.Title + " " + i.track.Uploader }

func newResultList() list.Model {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(lipgloss.AdaptiveColor{Light: "#333333", Dark: "#FFFFFF"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.
		Foreground(lipgloss.AdaptiveColor{Light: "#666666", Dark: "#888888"}).
		BorderLeftForeground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	l := list.New(nil, delegate, 80, 20)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetShowHelp(false)
	l.Styles.Title = headerStyle
	return l
}

func setResults(l *list.Model, query string, tracks []queue.Track) {
	items := make([]list.Item, len(tracks))
	for i, t := range tracks {
		items[i] = trackItem{track: t}
	}
	l.SetItems(items)
	l.Title = fmt.Sprintf("Results for %q", query)
	l.ResetSelected()
	l.ResetFilter()
}

func resultTracks(l list.Model) []queue.Track {
	items := l.Items()
	out := make([]queue.Track, 0, len(items))
	for _, it := range items {
		if ti, ok := it.(trackItem); ok {
			out = append(out, ti.track)
		}
	}
	return out
}

func newInput() textinput.Model {
	ti := textinput.New()
	ti.CharLimit = 2048
	ti.Width = 60
	return ti
}
