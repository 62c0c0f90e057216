package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olivier-w/ytmp/internal/queue"
)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(dir)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestHistoryRoundTrip(t *testing.T) {
	s := openStore(t, t.TempDir())
	assert.Empty(t, s.LoadHistory())

	hist := []queue.Track{
		{ID: "a", Title: "A", Duration: 100, Uploader: "x", URL: "https://www.youtube.com/watch?v=a"},
		{ID: "b", Title: "B"},
	}
	require.NoError(t, s.SaveHistory(hist))
	assert.Equal(t, hist, s.LoadHistory())
}

func TestQueueRoundTrip(t *testing.T) {
	s := openStore(t, t.TempDir())

	cur := queue.Track{ID: "now", Title: "Now"}
	pending := []queue.Track{{ID: "n1", Title: "Next"}}
	require.NoError(t, s.SaveQueue(pending, &cur))

	snap := s.LoadQueue()
	assert.Equal(t, pending, snap.Tracks)
	require.NotNil(t, snap.CurrentTrack)
	assert.Equal(t, cur, *snap.CurrentTrack)
}

func TestQueueFileFormat(t *testing.T) {
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, s.SaveQueue(nil, nil))

	data, err := os.ReadFile(filepath.Join(dir, "queue.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"tracks": [], "current_track": null}`, string(data))
}

func TestReadsFilesWrittenElsewhere(t *testing.T) {
	dir := t.TempDir()
	raw := `[{"video_id": "abc", "title": "Song", "duration": 185, "uploader": "U", "url": "https://youtu.be/abc"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte(raw), 0o644))

	hist := openStore(t, dir).LoadHistory()
	require.Len(t, hist, 1)
	assert.Equal(t, "abc", hist[0].ID)
	assert.Equal(t, uint64(185), hist[0].Duration)
}

func TestCorruptFilesLoadEmpty(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "history.json"), []byte("[{"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "queue.json"), []byte("nope"), 0o644))

	s := openStore(t, dir)
	assert.Empty(t, s.LoadHistory())
	assert.Equal(t, Snapshot{}, s.LoadQueue())
}

func TestSecondInstanceIsReadOnly(t *testing.T) {
	dir := t.TempDir()
	first := openStore(t, dir)
	require.False(t, first.ReadOnly())
	require.NoError(t, first.SaveHistory([]queue.Track{{ID: "a", Title: "A"}}))

	second := openStore(t, dir)
	assert.True(t, second.ReadOnly())
	assert.Len(t, second.LoadHistory(), 1)
	assert.ErrorIs(t, second.SaveHistory(nil), ErrLocked)

	require.NoError(t, first.Close())
	assert.ErrorIs(t, first.SaveQueue(nil, nil), ErrLocked)
}
