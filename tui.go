package main

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/olivier-w/ytmp/internal/app"
	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/player"
	"github.com/olivier-w/ytmp/internal/store"
	"github.com/olivier-w/ytmp/internal/ui"
	"github.com/olivier-w/ytmp/internal/util"
	"github.com/olivier-w/ytmp/internal/ytdlp"
)

func runTUI(p CommonParams, items []string) error {
	dir, s := loadSettings(p)

	if err := os.MkdirAll(s.Downloads.CacheDir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	if res, err := download.Sweep(s.Downloads.CacheDir, ytdlp.FilePrefix, s.Downloads.StaleAge, time.Now()); err != nil {
		util.Debug("startup sweep: %v", err)
	} else if res.Removed > 0 {
		util.Debug("startup sweep removed %d files (%d bytes)", res.Removed, res.Freed)
	}

	client := newClient(s)
	coord := download.NewCoordinator(download.NewRegistry(s.Downloads.MaxConcurrent), client, download.Options{
		Lookahead:      s.Downloads.LookaheadDistance,
		PlaybackBuffer: s.Downloads.PlaybackBuffer,
		RestoreBuffer:  s.Downloads.RestoreBuffer,
	})
	if err := coord.WatchCache(s.Downloads.CacheDir); err != nil {
		util.Debug("%v", err)
	}

	sink, sinkErr := player.OpenSink()
	if sinkErr != nil {
		util.Debug("audio output unavailable: %v", sinkErr)
		sink = player.NullSink{}
	}
	engine := player.NewEngine(sink, player.WithFinishGuard(s.Playback.FinishGuard))

	st, err := store.Open(dir)
	if err != nil {
		coord.Shutdown(s.Downloads.ShutdownGrace)
		return err
	}

	ctrl := app.New(app.Deps{Engine: engine, Downloads: coord, Store: st, Settings: s})
	switch {
	case sinkErr != nil:
		ctrl.NotifyError("No audio device: playback is silent")
	case !client.Available():
		ctrl.NotifyError("%v", ytdlp.ErrNotInstalled)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	model := ui.New(ui.Options{Controller: ctrl, Catalog: client, Items: items, Context: ctx})
	_, runErr := tea.NewProgram(model, tea.WithAltScreen()).Run()
	cancel()

	if err := ctrl.Shutdown(); err != nil {
		util.Debug("shutdown: %v", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}
