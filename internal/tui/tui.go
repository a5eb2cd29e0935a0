package tui

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

// ErrCancelled is returned by Pick when the user leaves without choosing.
var ErrCancelled = errors.New("selection cancelled")

type model struct {
	prefix     string
	all        []resolve.Candidate
	visible    []int // indexes into all that pass the filter
	cursor     int
	listOffset int
	filter     textinput.Model
	width      int
	height     int
	ready      bool
	status     string
	quitting   bool
	chosen     *resolve.Candidate

	copy func(string) error
	now  func() time.Time
}

func newModel(prefix string, candidates []resolve.Candidate) model {
	ti := textinput.New()
	ti.Placeholder = "Filter by id or project..."
	ti.Focus()
	ti.Prompt = "> "
	ti.PromptStyle = styleInputPrompt
	ti.TextStyle = styleInput
	ti.CharLimit = 128

	m := model{
		prefix: prefix,
		all:    candidates,
		filter: ti,
		copy:   clipboard.WriteAll,
		now:    time.Now,
	}
	m.applyFilter()
	return m
}

// Pick shows the candidates of an ambiguous prefix and blocks until the
// user selects one or cancels. The picker draws on stderr so stdout stays
// usable for the command's own output.
func Pick(prefix string, candidates []resolve.Candidate) (resolve.Candidate, error) {
	if len(candidates) == 0 {
		return resolve.Candidate{}, errors.New("no candidates to pick from")
	}

	p := tea.NewProgram(newModel(prefix, candidates),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithOutput(os.Stderr),
	)
	finalModel, err := p.Run()
	if err != nil {
		return resolve.Candidate{}, fmt.Errorf("tui: %w", err)
	}

	fm := finalModel.(model)
	if fm.chosen == nil {
		return resolve.Candidate{}, ErrCancelled
	}
	return *fm.chosen, nil
}

func (m model) Init() tea.Cmd {
	return textinput.Blink
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.adjustListScroll(m.panelHeight())
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Enter):
			if c, ok := m.current(); ok {
				m.chosen = &c
				m.quitting = true
				return m, tea.Quit
			}
			return m, nil

		case key.Matches(msg, keys.Copy):
			if c, ok := m.current(); ok {
				if err := m.copy(c.SessionID); err != nil {
					m.status = "copy failed: " + err.Error()
				} else {
					m.status = "copied " + c.SessionID
				}
			}
			return m, nil

		case key.Matches(msg, keys.Up):
			m.move(-1)
			return m, nil

		case key.Matches(msg, keys.Down):
			m.move(1)
			return m, nil

		case key.Matches(msg, keys.Top):
			m.move(-len(m.visible))
			return m, nil

		case key.Matches(msg, keys.Bottom):
			m.move(len(m.visible))
			return m, nil
		}

		// remaining keys edit the filter
		var cmd tea.Cmd
		before := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.applyFilter()
		}
		return m, cmd

	case tea.MouseMsg:
		if !m.ready || len(m.visible) == 0 {
			return m, nil
		}
		switch {
		case msg.Button == tea.MouseButtonWheelUp:
			m.move(-1)
		case msg.Button == tea.MouseButtonWheelDown:
			m.move(1)
		case msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress:
			if row := m.hitTest(msg.Y); row >= 0 {
				m.cursor = row
			}
		}
		return m, nil
	}

	return m, nil
}

func (m model) View() string {
	if m.quitting || !m.ready {
		return ""
	}

	header := styleHeader.Render(fmt.Sprintf("%d sessions match %q", len(m.all), m.prefix))
	listW := m.listWidth()
	panelH := m.panelHeight()
	panel := stylePanelBorder.
		Width(listW).
		Height(panelH).
		Render(m.renderList(listW, panelH))

	return lipgloss.JoinVertical(lipgloss.Left, header, m.filter.View(), panel, m.statusBar())
}

func (m model) current() (resolve.Candidate, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return resolve.Candidate{}, false
	}
	return m.all[m.visible[m.cursor]], true
}

func (m *model) move(delta int) {
	if len(m.visible) == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), len(m.visible)-1)
	m.adjustListScroll(m.panelHeight())
}

// applyFilter keeps candidates whose id or project contains the filter text,
// case-insensitively, and resets the cursor.
func (m *model) applyFilter() {
	needle := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.visible = nil
	for i, c := range m.all {
		if needle == "" ||
			strings.Contains(strings.ToLower(c.SessionID), needle) ||
			strings.Contains(strings.ToLower(c.ProjectName), needle) {
			m.visible = append(m.visible, i)
		}
	}
	m.cursor = 0
	m.listOffset = 0
	m.status = ""
}

func (m model) listWidth() int {
	if m.width <= 0 {
		return 100
	}
	return max(m.width-4, 20)
}

func (m model) panelHeight() int {
	if m.height <= 0 {
		return 10
	}
	// header, filter, status bar and the two border rows
	return max(m.height-5, 3)
}

// hitTest maps a terminal row to a visible candidate row, or -1.
func (m model) hitTest(y int) int {
	contentYStart := 3 // header, filter, top border
	rel := y - contentYStart
	if rel < 0 || rel >= m.panelHeight() {
		return -1
	}
	row := m.listOffset + rel
	if row >= len(m.visible) {
		return -1
	}
	return row
}

func (m model) statusBar() string {
	parts := []string{fmt.Sprintf("%d/%d shown", len(m.visible), len(m.all))}
	if m.status != "" {
		parts = append(parts, m.status)
	}
	for _, b := range []key.Binding{keys.Up, keys.Down, keys.Enter, keys.Copy, keys.Quit} {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return styleStatusBar.Render(strings.Join(parts, " | "))
}
