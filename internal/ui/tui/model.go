// Package tui provides the terminal player.
package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/catalog"
)

// Screen rows with a fixed meaning, counted from the top.
const (
	rowHeader   = 0
	rowTrack    = 1
	rowStatus   = 2
	rowProgress = 3
	rowEntries  = 5
)

// Model is the Bubble Tea model for the terminal player.
type Model struct {
	board   *Board
	control playback.Commander
	catalog *catalog.Catalog
	color   string

	width     int
	height    int
	cursor    int  // position within visible()
	filtering bool // reading a filter query
	query     string
	matches   []int // catalog indices matching query
	showHelp  bool
	lastError error
}

// New creates the model. color is a lipgloss color for highlights.
func New(board *Board, control playback.Commander, cat *catalog.Catalog, color string) Model {
	return Model{
		board:   board,
		control: control,
		catalog: cat,
		color:   color,
		width:   60,
	}
}

func (m Model) Init() tea.Cmd {
	return m.board.waitCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case viewChangedMsg:
		// Keep listening for the next change
		return m, m.board.waitCmd()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			m.click(msg.X, msg.Y)
		}

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m Model) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key := msg.String(); key {
	case "q", "ctrl+c":
		return m, tea.Quit
	case " ", "space", "p":
		m.control.TogglePlay()
	case "n":
		m.control.Next()
	case "b":
		m.control.Previous()
	case "enter":
		m.playSelected()
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "/":
		m.filtering = true
		m.query = ""
		m.matches = nil
		m.cursor = 0
	case "esc":
		m.clearFilter()
	case "?":
		m.showHelp = !m.showHelp
	case "0", "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.control.Seek(float64(key[0]-'0') / 10)
	}
	return m, nil
}

func (m Model) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		m.clearFilter()
	case tea.KeyEnter:
		m.filtering = false
		m.playSelected()
	case tea.KeyBackspace:
		if r := []rune(m.query); len(r) > 0 {
			m.setQuery(string(r[:len(r)-1]))
		}
	case tea.KeyUp:
		m.moveCursor(-1)
	case tea.KeyDown:
		m.moveCursor(1)
	case tea.KeySpace:
		m.setQuery(m.query + " ")
	case tea.KeyRunes:
		m.setQuery(m.query + string(msg.Runes))
	}
	return m, nil
}

func (m *Model) setQuery(q string) {
	m.query = q
	m.matches = m.catalog.Search(q)
	m.cursor = 0
}

func (m *Model) clearFilter() {
	m.filtering = false
	m.query = ""
	m.matches = nil
	m.cursor = 0
}

// visible returns the catalog indices currently listed.
func (m Model) visible() []int {
	if m.query != "" {
		return m.matches
	}
	all := make([]int, m.catalog.Len())
	for i := range all {
		all[i] = i
	}
	return all
}

func (m *Model) moveCursor(delta int) {
	n := len(m.visible())
	if n == 0 {
		m.cursor = 0
		return
	}
	m.cursor = (m.cursor + delta + n) % n
}

func (m *Model) playSelected() {
	vis := m.visible()
	if len(vis) == 0 {
		return
	}
	m.lastError = m.control.PlayTrack(vis[m.cursor])
}

// click seeks when the progress bar is clicked and plays a clicked entry.
func (m *Model) click(x, y int) {
	switch {
	case y == rowProgress:
		w := m.barWidth()
		if x < 0 || x >= w {
			return
		}
		m.control.Seek(float64(x) / float64(w))
	case y >= rowEntries:
		vis := m.visible()
		if i := y - rowEntries; i < len(vis) {
			m.cursor = i
			m.playSelected()
		}
	}
}

// barWidth is the progress bar width in cells.
func (m Model) barWidth() int {
	w := m.width
	if w > 60 {
		w = 60
	}
	w -= 14 // room for " MM:SS/MM:SS"
	if w < 10 {
		w = 10
	}
	return w
}
