package ytdlp

import (
	"net/url"
	"strings"
)

// IsURL returns true if the argument looks like a URL.
func IsURL(arg string) bool {
	return strings.HasPrefix(arg, "http://") || strings.HasPrefix(arg, "https://")
}

// WatchURL returns the canonical watch page for a video id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// IsPlaylistURL reports whether u names a playlist rather than one video.
func IsPlaylistURL(u string) bool {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return false
	}
	if strings.HasSuffix(parsed.Path, "/playlist") {
		return true
	}
	q := parsed.Query()
	return q.Get("list") != "" && q.Get("v") == ""
}

// VideoID extracts the video id from a watch or short link, or "" if u is
// not one.
func VideoID(u string) string {
	parsed, err := url.Parse(strings.TrimSpace(u))
	if err != nil {
		return ""
	}
	host := strings.TrimPrefix(parsed.Hostname(), "www.")
	switch {
	case host == "youtu.be":
		return strings.Trim(parsed.Path, "/")
	case strings.HasSuffix(host, "youtube.com"):
		if v := parsed.Query().Get("v"); v != "" {
			return v
		}
		if rest, ok := strings.CutPrefix(parsed.Path, "/shorts/"); ok {
			return strings.Trim(rest, "/")
		}
	}
	return ""
}
