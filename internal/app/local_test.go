package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/ytmp/internal/media"
)

func TestExpandItems(t *testing.T) {
	dir := t.TempDir()
	song := filepath.Join(dir, "First Song.mp3")
	require.NoError(t, os.WriteFile(song, []byte("not really audio"), 0o644))
	list := filepath.Join(dir, "mix.m3u")
	require.NoError(t, os.WriteFile(list, []byte("#EXTINF:10,Named\nFirst Song.mp3\nmissing.mp3\n"), 0o644))

	exp := ExpandItems([]string{
		song,
		list,
		"https://www.youtube.com/watch?v=abc123",
		"https://www.youtube.com/playlist?list=PL1",
		filepath.Join(dir, "nope.flac"),
	})

	require.Len(t, exp.Tracks, 3)
	assert.Equal(t, "First Song", exp.Tracks[0].Title)
	assert.Equal(t, song, exp.Tracks[0].LocalFile)
	assert.True(t, exp.Tracks[0].IsLocal())
	assert.Equal(t, "Named", exp.Tracks[1].Title)
	assert.Equal(t, "abc123", exp.Tracks[2].ID)
	assert.False(t, exp.Tracks[2].IsLocal())

	assert.Equal(t, []string{"https://www.youtube.com/playlist?list=PL1"}, exp.Playlists)
	assert.Equal(t, 2, exp.Skipped)
}

func TestTrackFromURLEntry(t *testing.T) {
	tr := TrackFromEntry(media.PlaylistEntry{URL: "https://example.com/a.mp3", Title: "https://example.com/a.mp3"})
	assert.Equal(t, "https://example.com/a.mp3", tr.ID)
	assert.Equal(t, "https://example.com/a.mp3", tr.URL)

	tr = TrackFromEntry(media.PlaylistEntry{URL: "https://youtu.be/xyz", Title: "Given"})
	assert.Equal(t, "xyz", tr.ID)
	assert.Equal(t, "Given", tr.Title)
}
