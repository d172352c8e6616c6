package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/osa030/tracklist/internal/app/playback"
)

// viewChangedMsg tells the program the board changed.
type viewChangedMsg struct{}

// Board is the view the controller renders into. The program redraws from
// its snapshot whenever it changes.
type Board struct {
	*playback.Recorder
	changed chan struct{}
}

// NewBoard creates an empty board.
func NewBoard() *Board {
	b := &Board{changed: make(chan struct{}, 1)}
	b.Recorder = playback.NewRecorder(b.markChanged)
	return b
}

// markChanged never blocks; pending changes coalesce.
func (b *Board) markChanged() {
	select {
	case b.changed <- struct{}{}:
	default:
	}
}

// waitCmd waits for the next change.
func (b *Board) waitCmd() tea.Cmd {
	return func() tea.Msg {
		<-b.changed
		return viewChangedMsg{}
	}
}
