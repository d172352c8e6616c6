package playback

// Surface is the capability that decodes and renders audio.
//
// Command methods must not deliver feedback synchronously; feedback is
// reported on the channel returned by FeedbackSurface.Feedback.
type Surface interface {
	SetSource(path string) error
	Play() error
	Pause() error
	Seek(position float64) error

	// Duration returns the total length in seconds, or NaN when unknown.
	Duration() float64
	// Position returns the current playback position in seconds.
	Position() float64
}

// FeedbackSurface is a Surface that reports its own lifecycle events.
type FeedbackSurface interface {
	Surface
	Feedback() <-chan Feedback
}

// FeedbackType represents a surface lifecycle event.
type FeedbackType int

const (
	FeedbackPositionChanged FeedbackType = iota // Position and/or duration changed
	FeedbackMetadataReady                       // Duration became known
	FeedbackEnded                               // Track finished naturally
	FeedbackPlayStarted                         // Surface started playing
	FeedbackPlayPaused                          // Surface paused
)

// String returns the string representation of the feedback type.
func (f FeedbackType) String() string {
	switch f {
	case FeedbackPositionChanged:
		return "position_changed"
	case FeedbackMetadataReady:
		return "metadata_ready"
	case FeedbackEnded:
		return "ended"
	case FeedbackPlayStarted:
		return "play_started"
	case FeedbackPlayPaused:
		return "play_paused"
	default:
		return "unknown"
	}
}

// Feedback is one event reported by a surface.
type Feedback struct {
	Type     FeedbackType
	Position float64 // Seconds; set for FeedbackPositionChanged
	Duration float64 // Seconds or NaN; set for position and metadata events
}
