// Package ytdlp wraps the yt-dlp command line tool: fetching audio for a
// track, searching and expanding playlists.
package ytdlp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/olivier-w/ytmp/internal/queue"
)

// FilePrefix starts the name of every file Fetch writes.
const FilePrefix = "ytmp-"

var (
	// ErrNotInstalled means the yt-dlp binary could not be found.
	ErrNotInstalled = errors.New("yt-dlp not found")
	// ErrIncomplete means yt-dlp exited cleanly but left no usable file.
	ErrIncomplete = errors.New("incomplete download")
)

const installHint = "Install it:\n  Windows: winget install yt-dlp\n  macOS:   brew install yt-dlp\n  Linux:   sudo apt install yt-dlp  (or pip install yt-dlp)"

// Options configures a Client.
type Options struct {
	Binary             string
	CacheDir           string
	AudioFormat        string
	AudioQuality       string
	CookiesFromBrowser string
	MinFileSize        int64
}

// Client runs yt-dlp. It holds no state between calls and is safe for
// concurrent use.
type Client struct {
	opts Options
}

// New returns a Client, filling unset options with defaults.
func New(opts Options) *Client {
	if opts.Binary == "" {
		opts.Binary = "yt-dlp"
	}
	if opts.CacheDir == "" {
		opts.CacheDir = os.TempDir()
	}
	if opts.AudioFormat == "" {
		opts.AudioFormat = "mp3"
	}
	if opts.AudioQuality == "" {
		opts.AudioQuality = "192K"
	}
	return &Client{opts: opts}
}

// CacheDir returns the directory fetched files are written to.
func (c *Client) CacheDir() string {
	return c.opts.CacheDir
}

// Available reports whether the yt-dlp binary can be found.
func (c *Client) Available() bool {
	_, err := c.lookPath()
	return err == nil
}

func (c *Client) lookPath() (string, error) {
	bin, err := exec.LookPath(c.opts.Binary)
	if err != nil {
		return "", fmt.Errorf("%w. %s", ErrNotInstalled, installHint)
	}
	return bin, nil
}

func (c *Client) cookieArgs() []string {
	if c.opts.CookiesFromBrowser == "" {
		return nil
	}
	return []string{"--cookies-from-browser", c.opts.CookiesFromBrowser}
}

func (c *Client) fetchArgs(url, template string) []string {
	args := []string{
		"-f", "bestaudio/best",
		"-x",
		"--audio-format", c.opts.AudioFormat,
		"--audio-quality", c.opts.AudioQuality,
		"--postprocessor-args", "ExtractAudio:-ar 44100 -ac 2",
		"-o", template,
		"--no-playlist",
		"--no-mtime",
		"--no-progress",
	}
	args = append(args, c.cookieArgs()...)
	return append(args, url)
}

// Fetch downloads the audio for t into the cache directory and returns the
// path of the written file. It blocks until yt-dlp exits or ctx is done.
func (c *Client) Fetch(ctx context.Context, t queue.Track) (string, error) {
	bin, err := c.lookPath()
	if err != nil {
		return "", err
	}
	if t.URL == "" {
		return "", fmt.Errorf("track %q has no source URL", t.Title)
	}
	if err := os.MkdirAll(c.opts.CacheDir, 0o755); err != nil {
		return "", fmt.Errorf("creating cache dir: %w", err)
	}

	stem := FilePrefix + uuid.NewString()
	template := filepath.Join(c.opts.CacheDir, stem+".%(ext)s")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, c.fetchArgs(t.URL, template)...)
	cmd.Stdout = io.Discard
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		removeStem(c.opts.CacheDir, stem)
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("yt-dlp failed: %s", lastLine(stderr.String(), err))
	}

	path, err := findOutput(c.opts.CacheDir, stem)
	if err != nil {
		return "", err
	}
	if err := verifyAudio(path, c.opts.MinFileSize); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// findOutput locates the finished file written under stem.
func findOutput(dir, stem string) (string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, stem+".*"))
	if err != nil {
		return "", err
	}
	for _, m := range matches {
		switch filepath.Ext(m) {
		case ".part", ".ytdl", ".temp":
			continue
		}
		return m, nil
	}
	return "", fmt.Errorf("%w: no output file", ErrIncomplete)
}

// verifyAudio rejects empty, truncated and obviously non-audio files.
func verifyAudio(path string, minSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.Size() == 0 {
		return fmt.Errorf("%w: file is empty", ErrIncomplete)
	}
	if info.Size() < minSize {
		return fmt.Errorf("%w: only %d bytes", ErrIncomplete, info.Size())
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	head := make([]byte, 261)
	n, _ := io.ReadFull(f, head)
	if kind, err := filetype.Match(head[:n]); err == nil && kind != filetype.Unknown && !filetype.IsAudio(head[:n]) {
		return fmt.Errorf("%w: got %s instead of audio", ErrIncomplete, kind.MIME.Value)
	}
	return nil
}

func removeStem(dir, stem string) {
	matches, _ := filepath.Glob(filepath.Join(dir, stem+".*"))
	for _, m := range matches {
		os.Remove(m)
	}
}

// lastLine returns the last non-empty line of yt-dlp's stderr, which
// carries the ERROR message, or err when stderr is empty.
func lastLine(stderr string, err error) string {
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if l := strings.TrimSpace(lines[i]); l != "" {
			return strings.TrimPrefix(l, "ERROR: ")
		}
	}
	return err.Error()
}
