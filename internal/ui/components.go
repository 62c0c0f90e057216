package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/olivier-w/ytmp/internal/download"
	"github.com/olivier-w/ytmp/internal/util"
)

func renderProgressBar(ratio float64, width int) string {
	if width < 10 {
		width = 10
	}
	barWidth := width - 2 // leave some margin

	ratio = max(0, min(ratio, 1))
	filled := int(ratio * float64(barWidth))

	return barStyle.Render(strings.Repeat("━", filled)) + strings.Repeat("─", barWidth-filled)
}

func renderVolumePercent(vol int) string {
	return fmt.Sprintf("vol %d%%", vol)
}

// truncate shortens s to at most width terminal cells.
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}

// padRight pads s with spaces to width terminal cells.
func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

func statusGlyph(s download.Status) string {
	switch s {
	case download.Cached:
		return glyphStyles["cached"].Render("●")
	case download.Fetching:
		return glyphStyles["fetching"].Render("↓")
	case download.Failed:
		return glyphStyles["failed"].Render("✗")
	default:
		return helpStyle.Render("·")
	}
}

func formatDownloadStats(s download.Stats) string {
	line := fmt.Sprintf("downloads %d/%d  cached %d (%s)", s.Active, s.Limit, s.Cached, humanize.Bytes(uint64(max(s.Bytes, 0))))
	if s.Failed > 0 {
		line += fmt.Sprintf("  failed %d", s.Failed)
	}
	return line
}

func formatTrackLength(secs uint64) string {
	return util.FormatSeconds(secs)
}

// queueWindow returns the [start, end) range of a list of n rows to show so
// that cursor stays visible in a window of size rows.
func queueWindow(cursor, size, n int) (int, int) {
	if size <= 0 || n <= 0 {
		return 0, 0
	}
	if n <= size {
		return 0, n
	}
	start := max(cursor-size/2, 0)
	start = min(start, n-size)
	return start, start + size
}

// progressSpring smooths the progress ratio so seeks glide instead of jump.
type progressSpring struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newProgressSpring(fps int) progressSpring {
	return progressSpring{spring: harmonica.NewSpring(harmonica.FPS(fps), 8.0, 1.0)}
}

func (p *progressSpring) step(target float64) float64 {
	p.pos, p.vel = p.spring.Update(p.pos, p.vel, target)
	return p.pos
}

// snap jumps straight to target, used when a new track starts.
func (p *progressSpring) snap(target float64) {
	p.pos, p.vel = target, 0
}
