package player

import (
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"
)

// Tags holds what can be learned about a local file without decoding it.
type Tags struct {
	Title    string
	Artist   string
	Duration time.Duration // from TLEN, 0 when absent
}

// ReadTags reads ID3v2 tags, falling back to the filename for the title.
func ReadTags(path string) Tags {
	var t Tags
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err == nil {
		defer tag.Close()
		t.Title = strings.TrimSpace(tag.Title())
		t.Artist = strings.TrimSpace(tag.Artist())
		if ms, err := strconv.ParseInt(strings.TrimSpace(tag.GetTextFrame("TLEN").Text), 10, 64); err == nil && ms > 0 {
			t.Duration = time.Duration(ms) * time.Millisecond
		}
	}

	if t.Title == "" {
		base := filepath.Base(path)
		t.Title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return t
}

// ProbeDuration returns the decoded length of a file, or 0 if it cannot
// be decoded.
func ProbeDuration(path string) time.Duration {
	s, err := OpenFile(path)
	if err != nil {
		return 0
	}
	defer s.Close()
	return streamDuration(s)
}
