package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()
	require.NotNil(t, s)

	t.Run("Playback", func(t *testing.T) {
		assert.Equal(t, 100, s.Playback.DefaultVolume)
		assert.Equal(t, 10*time.Second, s.Playback.SeekStep)
		assert.Equal(t, 2*time.Second, s.Playback.FinishGuard)
		assert.Equal(t, 1, s.Playback.VolumeStep)
		assert.Equal(t, 5, s.Playback.VolumeStepLarge)
	})

	t.Run("Downloads", func(t *testing.T) {
		assert.Equal(t, 30, s.Downloads.MaxConcurrent)
		assert.Equal(t, 15, s.Downloads.LookaheadDistance)
		assert.Equal(t, 10, s.Downloads.PlaybackBuffer)
		assert.Equal(t, 5, s.Downloads.RestoreBuffer)
		assert.Equal(t, "mp3", s.Downloads.AudioFormat)
		assert.Equal(t, int64(10000), s.Downloads.MinFileSize)
		assert.Equal(t, time.Hour, s.Downloads.StaleAge)
		assert.Equal(t, 300*time.Second, s.Downloads.RemoveAfterPlay)
		assert.NotEmpty(t, s.Downloads.CacheDir)
	})

	t.Run("Library", func(t *testing.T) {
		assert.Equal(t, 100, s.Library.HistoryLimit)
		assert.Equal(t, 300, s.Library.MaxTrackDuration)
		assert.Equal(t, 15, s.Library.SearchResults)
	})

	t.Run("Interface", func(t *testing.T) {
		assert.Equal(t, 50*time.Millisecond, s.Interface.FrameInterval)
	})
}

func TestLoadSettingsMissingFileReturnsDefaults(t *testing.T) {
	s, err := LoadSettings(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, DefaultSettings(), s)
}

func TestLoadSettingsKeepsDefaultsForMissingFields(t *testing.T) {
	dir := t.TempDir()
	data := `{"downloads": {"max_concurrent": 4}, "library": {"history_limit": 20}}`
	require.NoError(t, os.WriteFile(SettingsPath(dir), []byte(data), 0o644))

	s, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, 4, s.Downloads.MaxConcurrent)
	assert.Equal(t, 20, s.Library.HistoryLimit)
	assert.Equal(t, 15, s.Downloads.LookaheadDistance)
	assert.Equal(t, 100, s.Playback.DefaultVolume)
}

func TestLoadSettingsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(SettingsPath(dir), []byte("{nope"), 0o644))

	_, err := LoadSettings(dir)
	assert.Error(t, err)
}

func TestSaveAndLoadSettings(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	s := DefaultSettings()
	s.Downloads.CookiesFromBrowser = "firefox"
	s.Playback.DefaultVolume = 42

	require.NoError(t, SaveSettings(dir, s))
	_, err := os.Stat(SettingsPath(dir) + ".tmp")
	assert.True(t, os.IsNotExist(err), "temp file should be renamed away")

	loaded, err := LoadSettings(dir)
	require.NoError(t, err)
	assert.Equal(t, s, loaded)
}

func TestValidateClamps(t *testing.T) {
	s := DefaultSettings()
	s.Playback.DefaultVolume = 250
	s.Downloads.MaxConcurrent = 0
	s.Downloads.AudioFormat = "opus"
	s.Downloads.LookaheadDistance = -3
	s.Library.SearchResults = 0
	s.Interface.FrameInterval = time.Millisecond

	s.Validate()

	assert.Equal(t, 100, s.Playback.DefaultVolume)
	assert.Equal(t, 1, s.Downloads.MaxConcurrent)
	assert.Equal(t, "mp3", s.Downloads.AudioFormat)
	assert.Equal(t, 0, s.Downloads.LookaheadDistance)
	assert.Equal(t, 15, s.Library.SearchResults)
	assert.Equal(t, 50*time.Millisecond, s.Interface.FrameInterval)
}
