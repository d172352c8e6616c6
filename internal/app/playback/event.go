package playback

import "github.com/osa030/tracklist/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackLoaded  EventType = iota // A track became current
	EventStateChanged                  // Playing/paused flag changed
	EventTrackEnded                    // Current track finished naturally
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackLoaded:
		return "track_loaded"
	case EventStateChanged:
		return "state_changed"
	case EventTrackEnded:
		return "track_ended"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Index int         // Current index after the transition
	Track track.Track // Track at Index
	State State       // Playback state after the transition
}
