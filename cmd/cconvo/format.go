package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	styleCell    = lipgloss.NewStyle().Padding(0, 1)
	styleDeleted = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("240"))
	styleBorder  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func formatAgo(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return humanize.Time(t)
}

func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func formatSize(n int64) string {
	if n < 0 {
		n = 0
	}
	return humanize.IBytes(uint64(n))
}

func formatCount(n int64) string {
	return humanize.Comma(n)
}

// oneLine flattens text for a table cell and cuts it to width columns.
func oneLine(s string, width int) string {
	s = strings.Join(strings.Fields(s), " ")
	if width > 0 && runewidth.StringWidth(s) > width {
		s = runewidth.Truncate(s, width, "…")
	}
	return s
}

// writeTable prints rows as a bordered table on a terminal and as TSV
// otherwise, so output stays usable in pipes. dim marks rows rendered
// faded on a terminal.
func writeTable(w io.Writer, tty bool, headers []string, rows [][]string, dim func(row int) bool) {
	if !tty {
		fmt.Fprintln(w, strings.Join(headers, "\t"))
		for _, r := range rows {
			fmt.Fprintln(w, strings.Join(r, "\t"))
		}
		return
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(styleBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return styleHeader
			case dim != nil && dim(row):
				return styleDeleted
			default:
				return styleCell
			}
		})
	fmt.Fprintln(w, t.Render())
}
