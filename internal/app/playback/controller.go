package playback

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
)

// Config holds controller configuration.
type Config struct {
	Source      func(track.Track) string // Maps a track to the path handed to the surface
	EventBuffer int                      // Capacity of the event channel
}

// Status is a point-in-time copy of the controller state.
type Status struct {
	PlayerState
	Track    track.Track
	Position float64 // Seconds, as reported by the surface
	Duration float64 // Seconds, NaN when unknown
}

// Commander is the set of user commands the controller accepts.
type Commander interface {
	PlayTrack(index int) error
	Play()
	Pause()
	TogglePlay()
	Next()
	Previous()
	Seek(fraction float64)
}

var _ Commander = (*Controller)(nil)

// Controller owns the player state and keeps the surface and views in step
// with it. Every operation runs to completion under one lock.
type Controller struct {
	mu sync.Mutex

	catalog *catalog.Catalog
	surface Surface
	view    View
	config  Config

	state PlayerState

	// Events
	eventCh chan Event
	closed  bool
}

// NewController creates a controller positioned at index 0, paused.
// Call Init to render the initial view.
func NewController(cat *catalog.Catalog, surface Surface, view View, config Config) *Controller {
	if config.Source == nil {
		config.Source = func(t track.Track) string {
			return t.AudioPath("music", track.DefaultAudioExt)
		}
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = 16
	}
	if view == nil {
		view = Views(nil)
	}
	return &Controller{
		catalog: cat,
		surface: surface,
		view:    view,
		config:  config,
		eventCh: make(chan Event, config.EventBuffer),
	}
}

// Events returns the event channel. It is closed by Close.
func (c *Controller) Events() <-chan Event {
	return c.eventCh
}

// Catalog returns the catalog the controller plays from.
func (c *Controller) Catalog() *catalog.Catalog {
	return c.catalog
}

// Init renders the playlist and loads the first track without playing it.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.RenderEntries(c.catalog.Tracks())
	c.loadTrackLocked(c.state.CurrentIndex)
}

// LoadTrack makes the track at index current without starting playback.
func (c *Controller) LoadTrack(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.loadTrackLocked(index)
	return nil
}

// Play resumes the current track from the surface's current position.
func (c *Controller) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.playLocked()
}

// PlayTrack loads the track at index and starts it from the beginning.
func (c *Controller) PlayTrack(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkIndex(index); err != nil {
		return err
	}
	c.loadTrackLocked(index)
	c.playLocked()
	return nil
}

// Pause suspends playback.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.pauseLocked()
}

// TogglePlay pauses when playing and resumes otherwise.
func (c *Controller) TogglePlay() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state.IsPlaying {
		c.pauseLocked()
	} else {
		c.playLocked()
	}
}

// Previous moves to the previous track, wrapping to the last one.
// Playback continues from 0 on the new track if it was active.
func (c *Controller) Previous() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stepLocked(-1)
}

// Next moves to the next track, wrapping to the first one.
// Playback continues from 0 on the new track if it was active.
func (c *Controller) Next() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.stepLocked(1)
}

// Seek jumps to fraction of the surface's reported duration.
// It does nothing while the duration is unknown.
func (c *Controller) Seek(fraction float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if math.IsNaN(fraction) {
		return
	}
	duration := c.surface.Duration()
	if !knownDuration(duration) {
		return
	}
	fraction = math.Max(0, math.Min(1, fraction))

	if err := c.surface.Seek(fraction * duration); err != nil {
		zlog.Warn().Err(err).Msg("playback: surface seek failed")
	}
}

// OnProgressTick refreshes the progress view. It mutates no state.
func (c *Controller) OnProgressTick(position, duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !knownDuration(duration) {
		return
	}
	fill := math.Max(0, math.Min(1, position/duration))
	c.view.SetFillFraction(fill)
	c.view.SetElapsedLabel(FormatTime(position))
	c.view.SetDurationLabel(FormatTime(duration))
}

// OnMetadataReady shows the newly known duration.
func (c *Controller) OnMetadataReady(duration float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.view.SetDurationLabel(FormatTime(duration))
}

// OnTrackEnded advances to the next track and always plays it, whatever
// the playing flag said when the track ended.
func (c *Controller) OnTrackEnded() {
	c.mu.Lock()
	defer c.mu.Unlock()

	ended := c.state.CurrentIndex
	endedTrack, _ := c.catalog.At(ended)
	zlog.Debug().Msgf("playback: track ended: index=%d id=%s", ended, endedTrack.ID)

	c.sendEventLocked(Event{
		Type:  EventTrackEnded,
		Index: ended,
		Track: endedTrack,
		State: c.state.State(),
	})

	c.loadTrackLocked(c.catalog.Wrap(ended + 1))
	c.playLocked()
}

// OnExternalPlayStateChange aligns the playing flag with a transition the
// surface reported on its own, such as OS media keys.
func (c *Controller) OnExternalPlayStateChange(playing bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	changed := c.state.IsPlaying != playing
	c.state.IsPlaying = playing
	c.renderTransportLocked()
	if changed {
		c.sendStateChangedLocked()
	}
}

// HandleFeedback dispatches one surface event to its handler.
func (c *Controller) HandleFeedback(fb Feedback) {
	switch fb.Type {
	case FeedbackPositionChanged:
		c.OnProgressTick(fb.Position, fb.Duration)
	case FeedbackMetadataReady:
		c.OnMetadataReady(fb.Duration)
	case FeedbackEnded:
		c.OnTrackEnded()
	case FeedbackPlayStarted:
		c.OnExternalPlayStateChange(true)
	case FeedbackPlayPaused:
		c.OnExternalPlayStateChange(false)
	default:
		zlog.Debug().Msgf("playback: ignoring feedback %v", fb.Type)
	}
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	t, _ := c.catalog.At(c.state.CurrentIndex)
	return Status{
		PlayerState: c.state,
		Track:       t,
		Position:    c.surface.Position(),
		Duration:    c.surface.Duration(),
	}
}

// Close closes the event channel. The controller must not be used after.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.eventCh)
}

func (c *Controller) checkIndex(index int) error {
	if index < 0 || index >= c.catalog.Len() {
		return errors.Wrapf(catalog.ErrIndexOutOfRange, "index %d (len %d)", index, c.catalog.Len())
	}
	return nil
}

// loadTrackLocked must be called with the lock held and a valid index.
func (c *Controller) loadTrackLocked(index int) {
	t, _ := c.catalog.At(index)
	c.state.CurrentIndex = index

	if err := c.surface.SetSource(c.config.Source(t)); err != nil {
		zlog.Warn().Err(err).Msgf("playback: surface failed to load %s", t.ID)
	}

	c.view.SetMetadata(t)
	c.renderActiveLocked()

	c.sendEventLocked(Event{
		Type:  EventTrackLoaded,
		Index: index,
		Track: t,
		State: c.state.State(),
	})
}

func (c *Controller) playLocked() {
	if err := c.surface.Play(); err != nil {
		zlog.Warn().Err(err).Msg("playback: surface play failed")
	}

	changed := !c.state.IsPlaying
	c.state.IsPlaying = true
	c.renderTransportLocked()
	if changed {
		c.sendStateChangedLocked()
	}
}

func (c *Controller) pauseLocked() {
	if err := c.surface.Pause(); err != nil {
		zlog.Warn().Err(err).Msg("playback: surface pause failed")
	}

	changed := c.state.IsPlaying
	c.state.IsPlaying = false
	c.renderTransportLocked()
	if changed {
		c.sendStateChangedLocked()
	}
}

func (c *Controller) stepLocked(delta int) {
	c.loadTrackLocked(c.catalog.Wrap(c.state.CurrentIndex + delta))
	if c.state.IsPlaying {
		// The new source starts at 0; resume on it.
		c.playLocked()
	}
}

func (c *Controller) renderTransportLocked() {
	if c.state.IsPlaying {
		c.view.SetTransportGlyph(GlyphPause)
	} else {
		c.view.SetTransportGlyph(GlyphPlay)
	}
	c.renderActiveLocked()
}

// renderActiveLocked marks the current entry active and shows the
// now-playing indicator on it only while playing.
func (c *Controller) renderActiveLocked() {
	c.view.SetActiveEntry(c.state.CurrentIndex)
	for i := 0; i < c.catalog.Len(); i++ {
		if i == c.state.CurrentIndex && c.state.IsPlaying {
			c.view.SetNowPlayingVisible(i, true)
		} else {
			c.view.SetNowPlayingHidden(i)
		}
	}
}

func (c *Controller) sendStateChangedLocked() {
	t, _ := c.catalog.At(c.state.CurrentIndex)
	c.sendEventLocked(Event{
		Type:  EventStateChanged,
		Index: c.state.CurrentIndex,
		Track: t,
		State: c.state.State(),
	})
}

// sendEventLocked sends an event without blocking.
// Must be called with lock held.
func (c *Controller) sendEventLocked(e Event) {
	if c.closed {
		return
	}
	select {
	case c.eventCh <- e:
	default:
		zlog.Warn().Msgf("playback: event channel full, dropping %v", e.Type)
	}
}
