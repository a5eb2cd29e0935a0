package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

const (
	idWidth   = 36
	timeWidth = 34 // date plus relative time
)

// renderList renders the candidate rows with scrolling, one row per session.
func (m model) renderList(width, height int) string {
	if len(m.visible) == 0 {
		return lipgloss.NewStyle().
			Foreground(colorDim).
			Width(width).
			Height(height).
			Align(lipgloss.Center, lipgloss.Center).
			Render("No matching sessions")
	}

	var lines []string
	for row, idx := range m.visible {
		if row < m.listOffset {
			continue
		}
		if len(lines) >= height {
			break
		}
		lines = append(lines, formatCandidate(m.all[idx], width, row == m.cursor, m.now()))
	}

	for len(lines) < height {
		lines = append(lines, strings.Repeat(" ", width))
	}
	return strings.Join(lines, "\n")
}

// formatCandidate lays a candidate out as
//
//	[>] session-id  project  2025-01-02 15:04 (3 days ago)
func formatCandidate(c resolve.Candidate, width int, selected bool, now time.Time) string {
	when := c.StartTime.Local().Format("2006-01-02 15:04")
	rel := humanize.RelTime(c.StartTime, now, "ago", "from now")

	// prefix + id + gaps + time
	projectMax := width - 2 - idWidth - 2 - 2 - timeWidth
	project := c.ProjectName
	if projectMax < 1 {
		project = ""
	} else if runewidth.StringWidth(project) > projectMax {
		project = runewidth.Truncate(project, projectMax, "…")
	} else {
		project = runewidth.FillRight(project, projectMax)
	}

	id := c.SessionID
	if selected {
		id = styleListSelected.Render(id)
	} else {
		id = styleListNormal.Render(id)
	}

	line := id + "  " + styleProject.Render(project) + "  " + styleTime.Render(when+" ("+rel+")")
	if selected {
		return styleListSelected.Render("> ") + line
	}
	return "  " + line
}

// adjustListScroll keeps the cursor visible within the list viewport.
func (m *model) adjustListScroll(listHeight int) {
	visibleItems := max(listHeight, 1)
	if m.cursor < m.listOffset {
		m.listOffset = m.cursor
	}
	if m.cursor >= m.listOffset+visibleItems {
		m.listOffset = m.cursor - visibleItems + 1
	}
}
