package tui

import (
	"fmt"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/catalog"
)

type fakeCommander struct {
	calls []string
}

func (f *fakeCommander) PlayTrack(i int) error {
	f.calls = append(f.calls, fmt.Sprintf("play:%d", i))
	return nil
}
func (f *fakeCommander) Play()           { f.calls = append(f.calls, "play") }
func (f *fakeCommander) Pause()          { f.calls = append(f.calls, "pause") }
func (f *fakeCommander) TogglePlay()     { f.calls = append(f.calls, "toggle") }
func (f *fakeCommander) Next()           { f.calls = append(f.calls, "next") }
func (f *fakeCommander) Previous()       { f.calls = append(f.calls, "previous") }
func (f *fakeCommander) Seek(fr float64) { f.calls = append(f.calls, fmt.Sprintf("seek:%.2f", fr)) }

func newTestModel() (Model, *fakeCommander, *Board) {
	board := NewBoard()
	board.RenderEntries(catalog.Default().Tracks())
	cmd := &fakeCommander{}
	return New(board, cmd, catalog.Default(), "2"), cmd, board
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		next, _ := m.Update(msg)
		var ok bool
		m, ok = next.(Model)
		require.True(t, ok)
	}
	return m
}

func TestModel_TransportKeys(t *testing.T) {
	tests := []struct {
		name     string
		msg      tea.Msg
		expected []string
	}{
		{name: "space toggles", msg: tea.KeyMsg{Type: tea.KeySpace}, expected: []string{"toggle"}},
		{name: "p toggles", msg: runes("p"), expected: []string{"toggle"}},
		{name: "n next", msg: runes("n"), expected: []string{"next"}},
		{name: "b previous", msg: runes("b"), expected: []string{"previous"}},
		{name: "digit seeks", msg: runes("3"), expected: []string{"seek:0.30"}},
		{name: "zero seeks to start", msg: runes("0"), expected: []string{"seek:0.00"}},
		{name: "enter plays cursor", msg: tea.KeyMsg{Type: tea.KeyEnter}, expected: []string{"play:0"}},
		{name: "unbound key", msg: runes("x"), expected: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, cmd, _ := newTestModel()
			press(t, m, tt.msg)
			assert.Equal(t, tt.expected, cmd.calls)
		})
	}
}

func TestModel_CursorWraps(t *testing.T) {
	m, cmd, _ := newTestModel()

	m = press(t, m, runes("k"), tea.KeyMsg{Type: tea.KeyEnter})
	m = press(t, m, runes("j"), runes("j"), tea.KeyMsg{Type: tea.KeyEnter})

	assert.Equal(t, []string{"play:2", "play:1"}, cmd.calls)
	assert.Equal(t, 1, m.cursor)
}

func TestModel_Quit(t *testing.T) {
	m, _, _ := newTestModel()
	_, cmd := m.Update(runes("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_Filter(t *testing.T) {
	m, cmd, _ := newTestModel()

	m = press(t, m, runes("/"), runes("m"), runes("a"), runes("g"))
	assert.True(t, m.filtering)
	assert.Equal(t, "mag", m.query)
	require.NotEmpty(t, m.matches)
	assert.Equal(t, 1, m.matches[0])

	// Keys are text while filtering.
	assert.Empty(t, cmd.calls)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, m.filtering)
	assert.Equal(t, []string{"play:1"}, cmd.calls)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Empty(t, m.query)
	assert.Len(t, m.visible(), 3)
}

func TestModel_FilterBackspaceAndCancel(t *testing.T) {
	m, cmd, _ := newTestModel()

	m = press(t, m, runes("/"), runes("zz"))
	assert.Empty(t, m.visible())
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, cmd.calls)

	m = press(t, m, runes("/"), runes("kx"), tea.KeyMsg{Type: tea.KeyBackspace})
	assert.Equal(t, "k", m.query)

	m = press(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.False(t, m.filtering)
	assert.Empty(t, m.query)
}

func TestModel_ClickProgressBarSeeks(t *testing.T) {
	m, cmd, _ := newTestModel()
	m = press(t, m, tea.WindowSizeMsg{Width: 54, Height: 20})
	require.Equal(t, 40, m.barWidth())

	click := func(x, y int) tea.MouseMsg {
		return tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft}
	}
	press(t, m,
		click(10, rowProgress),
		click(0, rowProgress),
		click(45, rowProgress), // timestamps, ignored
		tea.MouseMsg{X: 20, Y: rowProgress, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft},
		click(3, rowEntries+2),
		click(3, rowEntries+7), // below the list
	)

	assert.Equal(t, []string{"seek:0.25", "seek:0.00", "play:2"}, cmd.calls)
}

func TestModel_View(t *testing.T) {
	m, _, board := newTestModel()
	tracks := catalog.Default().Tracks()
	board.SetMetadata(tracks[1])
	board.SetActiveEntry(1)
	board.SetNowPlayingVisible(1, true)
	board.SetTransportGlyph(playback.GlyphPause)
	board.SetFillFraction(0.5)
	board.SetElapsedLabel("1:05")
	board.SetDurationLabel("2:10")

	lines := strings.Split(m.View(), "\n")
	require.Greater(t, len(lines), rowEntries+2)

	assert.Contains(t, lines[rowTrack], "Sunday - Sudeep Magar")
	assert.Contains(t, lines[rowStatus], "playing")
	assert.Contains(t, lines[rowProgress], "1:05/2:10")
	assert.Contains(t, lines[rowEntries], "> ")
	assert.Contains(t, lines[rowEntries+1], "♪")
	assert.NotContains(t, lines[rowEntries+2], "♪")
}

func TestBoard_SignalsChanges(t *testing.T) {
	board := NewBoard()
	wait := board.waitCmd()

	board.SetFillFraction(0.1)
	board.SetFillFraction(0.2)

	done := make(chan tea.Msg, 1)
	go func() { done <- wait() }()
	select {
	case msg := <-done:
		assert.Equal(t, viewChangedMsg{}, msg)
	case <-time.After(time.Second):
		t.Fatal("no change signalled")
	}
	assert.Equal(t, 0.2, board.Snapshot().Fill)
}
