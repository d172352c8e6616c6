package playback

import (
	"sync"

	"github.com/osa030/tracklist/internal/domain/track"
)

// ViewState is everything a rendered player shows at one moment.
type ViewState struct {
	Entries    []track.Track
	Active     int
	NowPlaying []bool
	Glyph      Glyph
	Current    track.Track
	Fill       float64
	Elapsed    string
	Duration   string
}

// Recorder is a View that keeps the latest ViewState in memory.
// Concrete UIs render from Snapshot; onChange is called after every update
// without the lock held.
type Recorder struct {
	mu       sync.RWMutex
	state    ViewState
	onChange func()
}

var _ View = (*Recorder)(nil)

// NewRecorder creates a recorder. onChange may be nil.
func NewRecorder(onChange func()) *Recorder {
	return &Recorder{
		state: ViewState{
			Glyph:    GlyphPlay,
			Elapsed:  FormatTime(0),
			Duration: FormatTime(0),
		},
		onChange: onChange,
	}
}

// Snapshot returns a copy of the current state.
func (r *Recorder) Snapshot() ViewState {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := r.state
	s.Entries = append([]track.Track(nil), r.state.Entries...)
	s.NowPlaying = append([]bool(nil), r.state.NowPlaying...)
	return s
}

func (r *Recorder) update(fn func(s *ViewState)) {
	r.mu.Lock()
	fn(&r.state)
	r.mu.Unlock()

	if r.onChange != nil {
		r.onChange()
	}
}

func (r *Recorder) RenderEntries(tracks []track.Track) {
	r.update(func(s *ViewState) {
		s.Entries = append([]track.Track(nil), tracks...)
		s.NowPlaying = make([]bool, len(tracks))
		if s.Active >= len(tracks) {
			s.Active = 0
		}
	})
}

func (r *Recorder) SetActiveEntry(index int) {
	r.update(func(s *ViewState) { s.Active = index })
}

func (r *Recorder) SetNowPlayingVisible(index int, visible bool) {
	r.update(func(s *ViewState) {
		if index >= 0 && index < len(s.NowPlaying) {
			s.NowPlaying[index] = visible
		}
	})
}

func (r *Recorder) SetNowPlayingHidden(index int) {
	r.SetNowPlayingVisible(index, false)
}

func (r *Recorder) SetMetadata(t track.Track) {
	r.update(func(s *ViewState) { s.Current = t })
}

func (r *Recorder) SetTransportGlyph(g Glyph) {
	r.update(func(s *ViewState) { s.Glyph = g })
}

func (r *Recorder) SetFillFraction(f float64) {
	r.update(func(s *ViewState) { s.Fill = f })
}

func (r *Recorder) SetElapsedLabel(text string) {
	r.update(func(s *ViewState) { s.Elapsed = text })
}

func (r *Recorder) SetDurationLabel(text string) {
	r.update(func(s *ViewState) { s.Duration = text })
}
