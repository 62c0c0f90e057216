package download

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/olivier-w/ytmp/internal/util"
)

// SweepResult reports what a cache sweep removed.
type SweepResult struct {
	Removed int
	Freed   int64
}

// Sweep deletes files in dir whose names start with prefix and that were
// last modified more than maxAge before now. A zero maxAge removes every
// matching file. A missing dir is not an error.
func Sweep(dir, prefix string, maxAge time.Duration, now time.Time) (SweepResult, error) {
	var res SweepResult
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return res, nil
		}
		return res, err
	}

	var errs []error
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && now.Sub(info.ModTime()) < maxAge {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := os.Remove(path); err != nil {
			util.Debug("sweep %s: %v", path, err)
			errs = append(errs, err)
			continue
		}
		res.Removed++
		res.Freed += info.Size()
	}
	return res, errors.Join(errs...)
}

// Usage counts the files in dir starting with prefix and their total size.
func Usage(dir, prefix string) (files int, bytes int64, err error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, 0, nil
		}
		return 0, 0, err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		if info, err := e.Info(); err == nil {
			files++
			bytes += info.Size()
		}
	}
	return files, bytes, nil
}
