package util

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var (
	debugPath string
	debugFile *os.File
	debugOnce sync.Once
	debugMu   sync.Mutex
)

// SetDebugDir makes Debug write to debug.log in dir. Until it is called,
// Debug discards its messages.
func SetDebugDir(dir string) {
	debugMu.Lock()
	defer debugMu.Unlock()
	debugPath = filepath.Join(dir, "debug.log")
}

// Debug writes a timestamped message to debug.log
func Debug(format string, args ...any) {
	debugMu.Lock()
	defer debugMu.Unlock()
	if debugPath == "" {
		return
	}

	timestamp := time.Now().Format("2006-01-02 15:04:05")
	debugOnce.Do(func() {
		if err := os.MkdirAll(filepath.Dir(debugPath), 0o755); err != nil {
			return
		}
		debugFile, _ = os.OpenFile(debugPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	})
	if debugFile != nil {
		fmt.Fprintf(debugFile, "[%s] %s\n", timestamp, fmt.Sprintf(format, args...))
		debugFile.Sync()
	}
}
