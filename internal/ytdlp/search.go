package ytdlp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/exec"
	"strings"

	"github.com/olivier-w/ytmp/internal/queue"
)

// entry is the subset of a yt-dlp --dump-json object we read.
type entry struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Duration *float64 `json:"duration"`
	Uploader string   `json:"uploader"`
	Channel  string   `json:"channel"`
}

func (e entry) track() queue.Track {
	t := queue.Track{
		ID:       e.ID,
		Title:    e.Title,
		Uploader: e.Uploader,
		URL:      WatchURL(e.ID),
	}
	if t.Uploader == "" {
		t.Uploader = e.Channel
	}
	if t.Title == "" {
		t.Title = e.ID
	}
	if e.Duration != nil && *e.Duration > 0 {
		t.Duration = uint64(*e.Duration)
	}
	return t
}

// parseEntries reads one JSON object per line. Lines that are not JSON or
// carry no id are skipped.
func parseEntries(r io.Reader) ([]queue.Track, error) {
	var tracks []queue.Track
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}
		var e entry
		if err := json.Unmarshal(line, &e); err != nil || e.ID == "" {
			continue
		}
		tracks = append(tracks, e.track())
	}
	if err := scanner.Err(); err != nil {
		return tracks, fmt.Errorf("reading yt-dlp output: %w", err)
	}
	return tracks, nil
}

func (c *Client) runJSON(ctx context.Context, args ...string) ([]queue.Track, error) {
	bin, err := c.lookPath()
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, append(args, c.cookieArgs()...)...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	runErr := cmd.Run()

	tracks, err := parseEntries(&stdout)
	if err != nil {
		return nil, err
	}
	// yt-dlp exits non-zero when some playlist entries are unavailable;
	// keep whatever it did print.
	if runErr != nil && len(tracks) == 0 {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("yt-dlp failed: %s", lastLine(stderr.String(), runErr))
	}
	return tracks, nil
}

// Search returns up to limit tracks matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]queue.Track, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 15
	}
	return c.runJSON(ctx,
		"--dump-json",
		"--skip-download",
		"--no-playlist",
		"--no-warnings",
		"--default-search", "ytsearch",
		fmt.Sprintf("ytsearch%d:%s", limit, query),
	)
}

// Playlist expands a playlist URL into its tracks, in playlist order.
func (c *Client) Playlist(ctx context.Context, url string) ([]queue.Track, error) {
	return c.runJSON(ctx,
		"--flat-playlist",
		"--dump-json",
		"--no-warnings",
		url,
	)
}
