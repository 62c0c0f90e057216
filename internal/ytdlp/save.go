package ytdlp

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var invalidFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)

// SanitizeFilename strips characters invalid in filenames and trims whitespace.
// Falls back to "download" if the result is empty.
func SanitizeFilename(name string) string {
	name = invalidFilenameChars.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	if name == "" {
		return "download"
	}
	return name
}

// SaveCopy copies a cached audio file into dir, named after title.
// Returns the destination path. An existing file is never overwritten.
func SaveCopy(srcPath, title, dir string) (string, error) {
	dest := filepath.Join(dir, SanitizeFilename(title)+filepath.Ext(srcPath))
	if _, err := os.Stat(dest); err == nil {
		return "", fmt.Errorf("file %q already exists", filepath.Base(dest))
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(out, src); err != nil {
		out.Close()
		os.Remove(dest)
		return "", fmt.Errorf("copying audio: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(dest)
		return "", err
	}
	return dest, nil
}
