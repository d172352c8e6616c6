// Package playback provides the playback controller that keeps the player
// state, the playback surface and the views consistent.
package playback

// State represents the playback state.
type State int

const (
	StatePaused  State = iota // Track loaded, not playing
	StatePlaying              // Track is playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}

// PlayerState is the controller-owned mutable state.
// CurrentIndex always refers to a valid catalog entry.
type PlayerState struct {
	CurrentIndex int
	IsPlaying    bool
}

// State returns the playback state for the flag.
func (p PlayerState) State() State {
	if p.IsPlaying {
		return StatePlaying
	}
	return StatePaused
}
