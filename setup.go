package main

import (
	"fmt"
	"os"

	"github.com/olivier-w/ytmp/internal/config"
	"github.com/olivier-w/ytmp/internal/util"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

// loadSettings reads settings from the config dir and applies flag
// overrides. A corrupt settings file is logged and replaced by defaults.
func loadSettings(p CommonParams) (string, *config.Settings) {
	dir := p.ConfigDir
	if dir == "" {
		dir = config.Dir()
	}
	util.SetDebugDir(dir)

	s, err := config.LoadSettings(dir)
	if err != nil {
		util.Debug("settings: %v, using defaults", err)
		s = config.DefaultSettings()
	}

	if p.CacheDir != "" {
		s.Downloads.CacheDir = p.CacheDir
	}
	if p.MaxDownloads > 0 {
		s.Downloads.MaxConcurrent = p.MaxDownloads
	}
	if p.CookiesFromBrowser != "" {
		s.Downloads.CookiesFromBrowser = p.CookiesFromBrowser
	}
	if p.Volume >= 0 {
		s.Playback.DefaultVolume = p.Volume
	}
	s.Validate()
	return dir, s
}

func newClient(s *config.Settings) *ytdlp.Client {
	return ytdlp.New(ytdlp.Options{
		Binary:             s.Downloads.YtdlpPath,
		CacheDir:           s.Downloads.CacheDir,
		AudioFormat:        s.Downloads.AudioFormat,
		AudioQuality:       s.Downloads.AudioQuality,
		CookiesFromBrowser: s.Downloads.CookiesFromBrowser,
		MinFileSize:        s.Downloads.MinFileSize,
	})
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
