package tui

import (
	"errors"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

var (
	testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	candidates = []resolve.Candidate{
		{SessionID: "abcd0001-0000-4000-8000-000000000000", ProjectName: "api", StartTime: testNow.Add(-48 * time.Hour)},
		{SessionID: "abcd0002-0000-4000-8000-000000000000", ProjectName: "web", StartTime: testNow.Add(-time.Hour)},
		{SessionID: "abcd0003-0000-4000-8000-000000000000", ProjectName: "webhooks", StartTime: testNow.Add(-time.Minute)},
	}
)

func testModel(t *testing.T) model {
	t.Helper()
	m := newModel("abcd", candidates)
	m.now = func() time.Time { return testNow }
	return send(t, m, tea.WindowSizeMsg{Width: 120, Height: 20})
}

func send(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(model)
	require.True(t, ok)
	return out
}

func keyMsg(k tea.KeyType) tea.KeyMsg { return tea.KeyMsg{Type: k} }

func typeText(t *testing.T, m model, s string) model {
	t.Helper()
	return send(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestPicker_SelectsWithEnter(t *testing.T) {
	m := testModel(t)
	m = send(t, m, keyMsg(tea.KeyDown))
	m = send(t, m, keyMsg(tea.KeyDown))
	m = send(t, m, keyMsg(tea.KeyDown)) // clamped at the last row
	m = send(t, m, keyMsg(tea.KeyUp))

	next, cmd := m.Update(keyMsg(tea.KeyEnter))
	m = next.(model)
	assert.NotNil(t, cmd)
	require.NotNil(t, m.chosen)
	assert.Equal(t, candidates[1], *m.chosen)
	assert.True(t, m.quitting)
}

func TestPicker_EscCancels(t *testing.T) {
	m := testModel(t)
	next, cmd := m.Update(keyMsg(tea.KeyEsc))
	m = next.(model)
	assert.NotNil(t, cmd)
	assert.Nil(t, m.chosen)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestPicker_Filter(t *testing.T) {
	m := testModel(t)
	m = send(t, m, keyMsg(tea.KeyDown))
	m = typeText(t, m, "WEB")

	assert.Equal(t, []int{1, 2}, m.visible)
	assert.Equal(t, 0, m.cursor, "filtering resets the cursor")

	m = typeText(t, m, "h")
	assert.Equal(t, []int{2}, m.visible)

	m = typeText(t, m, "zzz")
	assert.Empty(t, m.visible)
	m = send(t, m, keyMsg(tea.KeyEnter))
	assert.Nil(t, m.chosen)
	assert.Contains(t, m.View(), "No matching sessions")
}

func TestPicker_FilterBySessionID(t *testing.T) {
	m := testModel(t)
	m = typeText(t, m, "0003")
	require.Equal(t, []int{2}, m.visible)
	m = send(t, m, keyMsg(tea.KeyEnter))
	require.NotNil(t, m.chosen)
	assert.Equal(t, "webhooks", m.chosen.ProjectName)
}

func TestPicker_Copy(t *testing.T) {
	m := testModel(t)
	var copied []string
	m.copy = func(s string) error {
		copied = append(copied, s)
		return nil
	}

	m = send(t, m, keyMsg(tea.KeyEnd))
	m = send(t, m, keyMsg(tea.KeyCtrlY))
	assert.Equal(t, []string{candidates[2].SessionID}, copied)
	assert.Contains(t, m.status, "copied")
	assert.Nil(t, m.chosen)

	m.copy = func(string) error { return errors.New("no clipboard") }
	m = send(t, m, keyMsg(tea.KeyCtrlY))
	assert.Contains(t, m.status, "no clipboard")
}

func TestPicker_View(t *testing.T) {
	m := testModel(t)
	view := m.View()
	assert.Contains(t, view, `3 sessions match "abcd"`)
	for _, c := range candidates {
		assert.Contains(t, view, c.SessionID)
		assert.Contains(t, view, c.ProjectName)
	}
	assert.Contains(t, view, "2 days ago")
	assert.Contains(t, view, "3/3 shown")
}

func TestPicker_ScrollKeepsCursorVisible(t *testing.T) {
	var many []resolve.Candidate
	for i := 0; i < 30; i++ {
		many = append(many, resolve.Candidate{SessionID: "abcd", ProjectName: "p", StartTime: testNow})
	}
	m := newModel("abcd", many)
	m = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 10})

	for i := 0; i < 12; i++ {
		m = send(t, m, keyMsg(tea.KeyDown))
	}
	assert.Equal(t, 12, m.cursor)
	assert.LessOrEqual(t, m.listOffset, m.cursor)
	assert.Less(t, m.cursor, m.listOffset+m.panelHeight())

	m = send(t, m, keyMsg(tea.KeyHome))
	assert.Equal(t, 0, m.cursor)
	assert.Equal(t, 0, m.listOffset)
}

func TestPicker_MouseClickSelectsRow(t *testing.T) {
	m := testModel(t)
	m = send(t, m, tea.MouseMsg{X: 5, Y: 5, Button: tea.MouseButtonLeft, Action: tea.MouseActionPress})
	assert.Equal(t, 2, m.cursor)

	m = send(t, m, tea.MouseMsg{X: 5, Y: 4, Button: tea.MouseButtonWheelUp})
	assert.Equal(t, 1, m.cursor)
}
