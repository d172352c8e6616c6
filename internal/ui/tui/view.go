package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/osa030/tracklist/internal/app/playback"
)

func (m Model) View() string {
	vs := m.board.Snapshot()

	color := lipgloss.Color(m.color)
	highlight := lipgloss.NewStyle().Foreground(color)
	active := lipgloss.NewStyle().Foreground(color).Bold(true)
	white := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	muted := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	lines := make([]string, rowEntries)

	lines[rowHeader] = highlight.Render("♫ Now Playing")
	lines[rowTrack] = vs.Current.DisplayName()
	if vs.Glyph == playback.GlyphPause {
		lines[rowStatus] = highlight.Render("▶ playing")
	} else {
		lines[rowStatus] = muted.Render("⏸ paused")
	}

	barWidth := m.barWidth()
	filled := int(float64(barWidth) * vs.Fill)
	if filled > barWidth {
		filled = barWidth
	}
	lines[rowProgress] = highlight.Render(strings.Repeat("█", filled)) +
		white.Render(strings.Repeat("─", barWidth-filled)) +
		fmt.Sprintf(" %s/%s", vs.Elapsed, vs.Duration)

	for pos, i := range m.visible() {
		if i >= len(vs.Entries) {
			continue
		}
		cursor := "  "
		if pos == m.cursor {
			cursor = "> "
		}
		indicator := "  "
		if i < len(vs.NowPlaying) && vs.NowPlaying[i] {
			indicator = highlight.Render("♪ ")
		}
		name := vs.Entries[i].DisplayName()
		if i == vs.Active {
			name = active.Render(name)
		}
		lines = append(lines, cursor+indicator+name)
	}

	lines = append(lines, "")
	if m.filtering || m.query != "" {
		lines = append(lines, highlight.Render("/")+m.query)
	}
	if m.lastError != nil {
		lines = append(lines, errorStyle.Render("Error: "+m.lastError.Error()))
	}

	if m.showHelp {
		lines = append(lines, muted.Render(
			"space/p: play/pause  n: next  b: previous  enter: play selected\n"+
				"j/k: move  0-9: seek  /: filter  esc: clear  q: quit  ?: hide"))
	} else {
		lines = append(lines, muted.Render("Press ? for help"))
	}

	return strings.Join(lines, "\n")
}
