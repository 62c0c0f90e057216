package app

import (
	"github.com/olivier-w/ytmp/internal/media"
	"github.com/olivier-w/ytmp/internal/player"
	"github.com/olivier-w/ytmp/internal/queue"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

// Expansion is the result of turning command-line items into tracks.
type Expansion struct {
	Tracks    []queue.Track
	Playlists []string // remote playlist URLs still to be expanded
	Skipped   int
}

// ExpandItems resolves files, directories, local playlists and URLs. It
// reads tags from disk and may be called off the Update loop.
func ExpandItems(items []string) Expansion {
	var exp Expansion
	for _, item := range items {
		if ytdlp.IsURL(item) && ytdlp.IsPlaylistURL(item) {
			exp.Playlists = append(exp.Playlists, item)
			continue
		}
		entries, err := media.ExpandArg(item)
		if err != nil {
			exp.Skipped++
			continue
		}
		playable, skipped := media.FilterPlayablePlaylistEntries(entries)
		exp.Skipped += skipped
		for _, e := range playable {
			exp.Tracks = append(exp.Tracks, TrackFromEntry(e))
		}
	}
	return exp
}

// TrackFromEntry builds a Track for a playlist entry. Local files get
// their title, artist and length from tags when present.
func TrackFromEntry(e media.PlaylistEntry) queue.Track {
	if e.IsURL() {
		id := ytdlp.VideoID(e.URL)
		if id == "" {
			id = e.URL
		}
		title := e.Title
		if title == e.URL && id != e.URL {
			title = id
		}
		return queue.Track{ID: id, Title: title, URL: e.URL}
	}

	tags := player.ReadTags(e.Path)
	title := tags.Title
	if title == media.TitleFromPath(e.Path) && e.Title != "" {
		title = e.Title
	}
	return queue.Track{
		Title:     title,
		Uploader:  tags.Artist,
		Duration:  uint64(tags.Duration.Seconds()),
		LocalFile: e.Path,
	}
}
