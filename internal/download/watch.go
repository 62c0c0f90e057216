package download

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/olivier-w/ytmp/internal/util"
)

// WatchCache evicts registry entries whose files are deleted or moved out
// of dir by something other than this process. The watch stops at
// Shutdown.
func (c *Coordinator) WatchCache(dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watching cache: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	ctx, done, ok := c.tasks.start()
	if !ok {
		w.Close()
		return ErrClosed
	}

	go func() {
		defer done()
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Remove|fsnotify.Rename) == 0 {
					continue
				}
				if id, ok := c.reg.EvictPath(event.Name); ok {
					util.Debug("cache file for %s went away: %s", id, event.Name)
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				util.Debug("cache watch: %v", err)
			}
		}
	}()
	return nil
}
