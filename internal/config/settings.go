package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// Settings holds all user-configurable settings organized by category.
type Settings struct {
	Playback  PlaybackSettings  `json:"playback"`
	Downloads DownloadSettings  `json:"downloads"`
	Library   LibrarySettings   `json:"library"`
	Interface InterfaceSettings `json:"interface"`
}

// PlaybackSettings controls the audio engine and transport keys.
type PlaybackSettings struct {
	DefaultVolume   int           `json:"default_volume"`
	VolumeStep      int           `json:"volume_step"`
	VolumeStepLarge int           `json:"volume_step_large"`
	SeekStep        time.Duration `json:"seek_step"`
	FinishGuard     time.Duration `json:"finish_guard"`
}

// DownloadSettings controls fetching, prefetching and the audio cache.
type DownloadSettings struct {
	MaxConcurrent      int           `json:"max_concurrent"`
	LookaheadDistance  int           `json:"lookahead_distance"`
	PlaybackBuffer     int           `json:"playback_buffer"`
	RestoreBuffer      int           `json:"restore_buffer"`
	CacheDir           string        `json:"cache_dir"`
	StaleAge           time.Duration `json:"stale_age"`
	RemoveAfterPlay    time.Duration `json:"remove_after_play"`
	AudioFormat        string        `json:"audio_format"`
	AudioQuality       string        `json:"audio_quality"`
	MinFileSize        int64         `json:"min_file_size"`
	YtdlpPath          string        `json:"ytdlp_path"`
	CookiesFromBrowser string        `json:"cookies_from_browser"`
	ShutdownGrace      time.Duration `json:"shutdown_grace"`
}

// LibrarySettings controls history and which tracks are accepted.
type LibrarySettings struct {
	HistoryLimit     int `json:"history_limit"`
	MaxTrackDuration int `json:"max_track_duration"` // seconds, 0 disables the filter
	SearchResults    int `json:"search_results"`
}

// InterfaceSettings controls the terminal UI cadence.
type InterfaceSettings struct {
	FrameInterval   time.Duration `json:"frame_interval"`
	StatusLifetime  time.Duration `json:"status_lifetime"`
	QueueWindowSize int           `json:"queue_window_size"`
}

// DefaultSettings returns a new Settings instance with sensible defaults.
func DefaultSettings() *Settings {
	return &Settings{
		Playback: PlaybackSettings{
			DefaultVolume:   100,
			VolumeStep:      1,
			VolumeStepLarge: 5,
			SeekStep:        10 * time.Second,
			FinishGuard:     2 * time.Second,
		},
		Downloads: DownloadSettings{
			MaxConcurrent:     30,
			LookaheadDistance: 15,
			PlaybackBuffer:    10,
			RestoreBuffer:     5,
			CacheDir:          DefaultCacheDir(),
			StaleAge:          time.Hour,
			RemoveAfterPlay:   300 * time.Second,
			AudioFormat:       "mp3",
			AudioQuality:      "192K",
			MinFileSize:       10000,
			YtdlpPath:         "yt-dlp",
			ShutdownGrace:     100 * time.Millisecond,
		},
		Library: LibrarySettings{
			HistoryLimit:     100,
			MaxTrackDuration: 300,
			SearchResults:    15,
		},
		Interface: InterfaceSettings{
			FrameInterval:   50 * time.Millisecond,
			StatusLifetime:  5 * time.Second,
			QueueWindowSize: 12,
		},
	}
}

// Validate clamps out-of-range values back to something usable.
func (s *Settings) Validate() {
	def := DefaultSettings()

	s.Playback.DefaultVolume = max(0, min(s.Playback.DefaultVolume, 100))
	if s.Playback.VolumeStep <= 0 {
		s.Playback.VolumeStep = def.Playback.VolumeStep
	}
	if s.Playback.VolumeStepLarge <= 0 {
		s.Playback.VolumeStepLarge = def.Playback.VolumeStepLarge
	}
	if s.Playback.SeekStep <= 0 {
		s.Playback.SeekStep = def.Playback.SeekStep
	}
	if s.Playback.FinishGuard < 0 {
		s.Playback.FinishGuard = def.Playback.FinishGuard
	}

	if s.Downloads.MaxConcurrent < 1 {
		s.Downloads.MaxConcurrent = 1
	}
	s.Downloads.LookaheadDistance = max(s.Downloads.LookaheadDistance, 0)
	s.Downloads.PlaybackBuffer = max(s.Downloads.PlaybackBuffer, 0)
	s.Downloads.RestoreBuffer = max(s.Downloads.RestoreBuffer, 0)
	if s.Downloads.CacheDir == "" {
		s.Downloads.CacheDir = def.Downloads.CacheDir
	}
	switch s.Downloads.AudioFormat {
	case "mp3", "wav", "flac", "vorbis":
	default:
		s.Downloads.AudioFormat = def.Downloads.AudioFormat
	}
	if s.Downloads.AudioQuality == "" {
		s.Downloads.AudioQuality = def.Downloads.AudioQuality
	}
	if s.Downloads.YtdlpPath == "" {
		s.Downloads.YtdlpPath = def.Downloads.YtdlpPath
	}
	if s.Downloads.ShutdownGrace < 0 {
		s.Downloads.ShutdownGrace = def.Downloads.ShutdownGrace
	}

	s.Library.HistoryLimit = max(s.Library.HistoryLimit, 0)
	s.Library.MaxTrackDuration = max(s.Library.MaxTrackDuration, 0)
	if s.Library.SearchResults <= 0 {
		s.Library.SearchResults = def.Library.SearchResults
	}

	if s.Interface.FrameInterval < 10*time.Millisecond {
		s.Interface.FrameInterval = def.Interface.FrameInterval
	}
	if s.Interface.StatusLifetime <= 0 {
		s.Interface.StatusLifetime = def.Interface.StatusLifetime
	}
	if s.Interface.QueueWindowSize <= 0 {
		s.Interface.QueueWindowSize = def.Interface.QueueWindowSize
	}
}

// SettingsPath returns the path to the settings JSON file in dir.
func SettingsPath(dir string) string {
	return filepath.Join(dir, "settings.json")
}

// LoadSettings loads settings from dir. Returns defaults if the file doesn't exist.
func LoadSettings(dir string) (*Settings, error) {
	data, err := os.ReadFile(SettingsPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings() // missing fields keep their defaults
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, err
	}
	settings.Validate()
	return settings, nil
}

// SaveSettings saves settings to dir atomically.
func SaveSettings(dir string, s *Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return WriteFileAtomic(SettingsPath(dir), data)
}

// WriteFileAtomic writes data to a temp file next to path and renames it
// into place, creating the parent directory if needed.
func WriteFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tempPath, path)
}
