package media

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"
)

// PlaylistEntry is one item from a local playlist: either a file on disk
// or a remote URL.
type PlaylistEntry struct {
	Path  string
	URL   string
	Title string
}

// IsURL reports whether the entry points at a remote resource.
func (e PlaylistEntry) IsURL() bool {
	return e.URL != ""
}

// ParseLocalPlaylist parses a local .m3u/.m3u8/.pls file into entries.
// Relative paths are resolved against the playlist file directory.
func ParseLocalPlaylist(path string) ([]PlaylistEntry, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if !IsPlaylistExt(ext) {
		return nil, fmt.Errorf("unsupported playlist format %s", ext)
	}

	absPlaylistPath, err := filepath.Abs(path)
	if err != nil {
		absPlaylistPath = path
	}

	data, err := os.ReadFile(absPlaylistPath)
	if err != nil {
		return nil, fmt.Errorf("reading playlist: %w", err)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("playlist is not valid UTF-8")
	}

	text := strings.TrimPrefix(string(data), "\uFEFF")
	baseDir := filepath.Dir(absPlaylistPath)
	scanner := bufio.NewScanner(strings.NewReader(text))

	switch ext {
	case ".pls":
		return parsePLS(scanner, baseDir), nil
	default:
		return parseM3U(scanner, baseDir), nil
	}
}

// ExpandArg turns one command-line argument into playlist entries: a
// playlist file is parsed, a directory yields its audio files in name
// order and anything else is a single entry.
func ExpandArg(arg string) ([]PlaylistEntry, error) {
	if isRemote(arg) {
		return []PlaylistEntry{newEntry(arg, "")}, nil
	}
	info, err := os.Stat(arg)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return scanDir(arg)
	}
	if IsPlaylistExt(filepath.Ext(arg)) {
		return ParseLocalPlaylist(arg)
	}
	abs, err := filepath.Abs(arg)
	if err != nil {
		abs = arg
	}
	return []PlaylistEntry{{Path: abs}}, nil
}

func scanDir(dir string) ([]PlaylistEntry, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", dir, err)
	}
	names := make([]string, 0, len(files))
	for _, f := range files {
		if !f.IsDir() && IsSupportedExt(filepath.Ext(f.Name())) {
			names = append(names, f.Name())
		}
	}
	slices.Sort(names)

	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	entries := make([]PlaylistEntry, 0, len(names))
	for _, name := range names {
		entries = append(entries, PlaylistEntry{Path: filepath.Join(abs, name)})
	}
	return entries, nil
}

// FilterPlayablePlaylistEntries keeps URL entries and existing,
// non-directory, supported media files. Local entries without a title get
// their file name. It also returns how many entries were dropped.
func FilterPlayablePlaylistEntries(entries []PlaylistEntry) ([]PlaylistEntry, int) {
	out := make([]PlaylistEntry, 0, len(entries))
	skipped := 0
	for _, e := range entries {
		if e.IsURL() {
			if e.Title == "" {
				e.Title = e.URL
			}
			out = append(out, e)
			continue
		}

		info, err := os.Stat(e.Path)
		if err != nil || info.IsDir() || !IsSupportedExt(filepath.Ext(e.Path)) {
			skipped++
			continue
		}
		if e.Title == "" {
			e.Title = TitleFromPath(e.Path)
		}
		out = append(out, e)
	}
	return out, skipped
}

// TitleFromPath returns the file name without its extension.
func TitleFromPath(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

func parseM3U(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	entries := make([]PlaylistEntry, 0)
	title := ""
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			// #EXTINF:<seconds>,<title>
			if rest, ok := strings.CutPrefix(line, "#EXTINF:"); ok {
				if _, t, found := strings.Cut(rest, ","); found {
					title = strings.TrimSpace(t)
				}
			}
			continue
		}
		entries = append(entries, resolveEntry(line, title, baseDir))
		title = ""
	}
	return entries
}

func parsePLS(scanner *bufio.Scanner, baseDir string) []PlaylistEntry {
	files := make(map[int]string)
	titles := make(map[int]string)
	var order []int

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		eq := strings.Index(line, "=")
		if eq <= 0 {
			continue
		}
		key := strings.TrimSpace(line[:eq])
		val := strings.TrimSpace(line[eq+1:])
		if val == "" {
			continue
		}

		if n, ok := plsIndex(key, "file"); ok {
			if _, seen := files[n]; !seen {
				order = append(order, n)
			}
			files[n] = val
		} else if n, ok := plsIndex(key, "title"); ok {
			titles[n] = val
		}
	}

	entries := make([]PlaylistEntry, 0, len(order))
	for _, n := range order {
		entries = append(entries, resolveEntry(files[n], titles[n], baseDir))
	}
	return entries
}

// plsIndex parses keys like File3 or title3, case-insensitively.
func plsIndex(key, prefix string) (int, bool) {
	if len(key) <= len(prefix) || !strings.EqualFold(key[:len(prefix)], prefix) {
		return 0, false
	}
	rest := key[len(prefix):]
	for i := 0; i < len(rest); i++ {
		if rest[i] < '0' || rest[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(rest)
	return n, err == nil
}

func resolveEntry(raw, title, baseDir string) PlaylistEntry {
	raw = strings.Trim(raw, `"`)
	if isRemote(raw) {
		return newEntry(raw, title)
	}
	p := filepath.Clean(raw)
	if !filepath.IsAbs(p) {
		p = filepath.Clean(filepath.Join(baseDir, p))
	}
	return PlaylistEntry{Path: p, Title: title}
}

func newEntry(url, title string) PlaylistEntry {
	if title == "" {
		title = url
	}
	return PlaylistEntry{URL: url, Title: title}
}

func isRemote(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
