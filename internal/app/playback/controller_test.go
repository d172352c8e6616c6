package playback

import (
	"fmt"
	"math"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
)

// fakeSurface records every command it receives.
type fakeSurface struct {
	calls    []string
	duration float64
	position float64
}

func newFakeSurface() *fakeSurface {
	return &fakeSurface{duration: math.NaN()}
}

func (f *fakeSurface) SetSource(path string) error {
	f.calls = append(f.calls, "source:"+path)
	f.position = 0
	return nil
}

func (f *fakeSurface) Play() error {
	f.calls = append(f.calls, "play")
	return nil
}

func (f *fakeSurface) Pause() error {
	f.calls = append(f.calls, "pause")
	return nil
}

func (f *fakeSurface) Seek(position float64) error {
	f.calls = append(f.calls, fmt.Sprintf("seek:%.1f", position))
	f.position = position
	return nil
}

func (f *fakeSurface) Duration() float64 { return f.duration }
func (f *fakeSurface) Position() float64 { return f.position }

func (f *fakeSurface) reset() { f.calls = nil }

func source(id string) string {
	return "source:" + track.Track{ID: id}.AudioPath("music", "mp3")
}

func newTestController(t *testing.T) (*Controller, *fakeSurface, *Recorder) {
	t.Helper()
	surface := newFakeSurface()
	view := NewRecorder(nil)
	c := NewController(catalog.Default(), surface, view, Config{
		Source:      func(tr track.Track) string { return tr.AudioPath("music", "mp3") },
		EventBuffer: 64,
	})
	c.Init()
	return c, surface, view
}

func drainEvents(c *Controller) []Event {
	var events []Event
	for {
		select {
		case e := <-c.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestController_Init(t *testing.T) {
	c, surface, view := newTestController(t)

	assert.Equal(t, PlayerState{CurrentIndex: 0, IsPlaying: false}, c.Snapshot().PlayerState)
	assert.Equal(t, []string{source("dusman")}, surface.calls)

	vs := view.Snapshot()
	assert.Len(t, vs.Entries, 3)
	assert.Equal(t, 0, vs.Active)
	assert.Equal(t, GlyphPlay, vs.Glyph)
	assert.Equal(t, "Dusman", vs.Current.Title)
	assert.Equal(t, []bool{false, false, false}, vs.NowPlaying)
}

func TestController_NextWrapsModulo(t *testing.T) {
	for start := 0; start < 3; start++ {
		for n := 0; n < 8; n++ {
			t.Run(fmt.Sprintf("start=%d,n=%d", start, n), func(t *testing.T) {
				c, _, _ := newTestController(t)
				require.NoError(t, c.LoadTrack(start))

				for i := 0; i < n; i++ {
					c.Next()
				}
				assert.Equal(t, (start+n)%3, c.Snapshot().CurrentIndex)
			})
		}
	}
}

func TestController_PreviousWrapsModulo(t *testing.T) {
	for start := 0; start < 3; start++ {
		for n := 0; n < 8; n++ {
			t.Run(fmt.Sprintf("start=%d,n=%d", start, n), func(t *testing.T) {
				c, _, _ := newTestController(t)
				require.NoError(t, c.LoadTrack(start))

				for i := 0; i < n; i++ {
					c.Previous()
				}
				assert.Equal(t, ((start-n)%3+3)%3, c.Snapshot().CurrentIndex)
			})
		}
	}
}

func TestController_NextLoadsEachTrack(t *testing.T) {
	c, surface, _ := newTestController(t)
	surface.reset()

	c.Next()
	assert.Equal(t, 1, c.Snapshot().CurrentIndex)
	c.Next()
	assert.Equal(t, 2, c.Snapshot().CurrentIndex)
	c.Next()
	assert.Equal(t, 0, c.Snapshot().CurrentIndex)

	assert.Equal(t, []string{source("sunday"), source("kamariya"), source("dusman")}, surface.calls)
}

func TestController_PlayTrack(t *testing.T) {
	c, surface, view := newTestController(t)
	surface.reset()

	require.NoError(t, c.PlayTrack(1))

	assert.Equal(t, PlayerState{CurrentIndex: 1, IsPlaying: true}, c.Snapshot().PlayerState)
	assert.Equal(t, []string{source("sunday"), "play"}, surface.calls)

	vs := view.Snapshot()
	assert.Equal(t, 1, vs.Active)
	assert.Equal(t, GlyphPause, vs.Glyph)
	assert.Equal(t, []bool{false, true, false}, vs.NowPlaying)
	assert.Equal(t, "Sudeep Magar", vs.Current.Artist)
}

func TestController_PlayTrackOutOfRange(t *testing.T) {
	c, surface, _ := newTestController(t)
	surface.reset()

	err := c.PlayTrack(3)
	assert.True(t, errors.Is(err, catalog.ErrIndexOutOfRange))
	err = c.LoadTrack(-1)
	assert.True(t, errors.Is(err, catalog.ErrIndexOutOfRange))

	assert.Empty(t, surface.calls)
	assert.Equal(t, PlayerState{}, c.Snapshot().PlayerState)
}

func TestController_PauseHidesIndicator(t *testing.T) {
	c, surface, view := newTestController(t)
	require.NoError(t, c.PlayTrack(2))
	surface.reset()

	c.Pause()

	assert.False(t, c.Snapshot().IsPlaying)
	assert.Equal(t, []string{"pause"}, surface.calls)
	vs := view.Snapshot()
	assert.Equal(t, GlyphPlay, vs.Glyph)
	assert.Equal(t, 2, vs.Active)
	assert.Equal(t, []bool{false, false, false}, vs.NowPlaying)
}

func TestController_TogglePlayRoundTrip(t *testing.T) {
	for _, playing := range []bool{false, true} {
		t.Run(fmt.Sprintf("playing=%v", playing), func(t *testing.T) {
			c, _, _ := newTestController(t)
			if playing {
				c.Play()
			}
			before := c.Snapshot().PlayerState

			c.TogglePlay()
			assert.Equal(t, !playing, c.Snapshot().IsPlaying)
			c.TogglePlay()

			assert.Equal(t, before, c.Snapshot().PlayerState)
		})
	}
}

func TestController_StepKeepsPlayState(t *testing.T) {
	t.Run("playing resumes on new track", func(t *testing.T) {
		c, surface, _ := newTestController(t)
		c.Play()
		surface.reset()

		c.Previous()

		assert.Equal(t, PlayerState{CurrentIndex: 2, IsPlaying: true}, c.Snapshot().PlayerState)
		assert.Equal(t, []string{source("kamariya"), "play"}, surface.calls)
	})

	t.Run("paused stays paused", func(t *testing.T) {
		c, surface, view := newTestController(t)
		surface.reset()

		c.Next()

		assert.Equal(t, PlayerState{CurrentIndex: 1, IsPlaying: false}, c.Snapshot().PlayerState)
		assert.Equal(t, []string{source("sunday")}, surface.calls)
		assert.Equal(t, GlyphPlay, view.Snapshot().Glyph)
	})
}

func TestController_Seek(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		fraction float64
		expected []string
	}{
		{name: "unknown duration", duration: math.NaN(), fraction: 0.5, expected: nil},
		{name: "zero duration", duration: 0, fraction: 0.5, expected: nil},
		{name: "infinite duration", duration: math.Inf(1), fraction: 0.5, expected: nil},
		{name: "nan fraction", duration: 200, fraction: math.NaN(), expected: nil},
		{name: "quarter", duration: 200, fraction: 0.25, expected: []string{"seek:50.0"}},
		{name: "start", duration: 200, fraction: 0, expected: []string{"seek:0.0"}},
		{name: "clamped high", duration: 200, fraction: 1.5, expected: []string{"seek:200.0"}},
		{name: "clamped low", duration: 200, fraction: -0.2, expected: []string{"seek:0.0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, surface, _ := newTestController(t)
			surface.duration = tt.duration
			surface.reset()
			before := c.Snapshot().PlayerState

			c.Seek(tt.fraction)

			assert.Equal(t, tt.expected, surface.calls)
			assert.Equal(t, before, c.Snapshot().PlayerState)
		})
	}
}

func TestController_OnProgressTick(t *testing.T) {
	t.Run("known duration", func(t *testing.T) {
		c, _, view := newTestController(t)

		c.OnProgressTick(65, 200)

		vs := view.Snapshot()
		assert.InDelta(t, 0.325, vs.Fill, 1e-9)
		assert.Equal(t, "1:05", vs.Elapsed)
		assert.Equal(t, "3:20", vs.Duration)
	})

	for _, d := range []float64{0, math.NaN(), -1} {
		t.Run(fmt.Sprintf("duration=%v", d), func(t *testing.T) {
			c, _, view := newTestController(t)
			before := view.Snapshot()

			c.OnProgressTick(10, d)

			assert.Equal(t, before, view.Snapshot())
		})
	}
}

func TestController_OnMetadataReady(t *testing.T) {
	c, _, view := newTestController(t)

	c.OnMetadataReady(3599)
	assert.Equal(t, "59:59", view.Snapshot().Duration)

	c.OnMetadataReady(math.NaN())
	assert.Equal(t, "0:00", view.Snapshot().Duration)
}

func TestController_OnTrackEnded(t *testing.T) {
	for start := 0; start < 3; start++ {
		for _, playing := range []bool{false, true} {
			t.Run(fmt.Sprintf("start=%d,playing=%v", start, playing), func(t *testing.T) {
				c, surface, view := newTestController(t)
				require.NoError(t, c.LoadTrack(start))
				if playing {
					c.Play()
				}
				drainEvents(c)
				surface.reset()

				c.OnTrackEnded()

				want := (start + 1) % 3
				assert.Equal(t, PlayerState{CurrentIndex: want, IsPlaying: true}, c.Snapshot().PlayerState)
				assert.Equal(t, "play", surface.calls[len(surface.calls)-1])
				assert.Equal(t, GlyphPause, view.Snapshot().Glyph)

				events := drainEvents(c)
				require.NotEmpty(t, events)
				assert.Equal(t, EventTrackEnded, events[0].Type)
				assert.Equal(t, start, events[0].Index)
			})
		}
	}
}

func TestController_OnExternalPlayStateChange(t *testing.T) {
	c, surface, view := newTestController(t)
	require.NoError(t, c.LoadTrack(2))
	surface.reset()
	drainEvents(c)

	c.OnExternalPlayStateChange(true)

	assert.Equal(t, PlayerState{CurrentIndex: 2, IsPlaying: true}, c.Snapshot().PlayerState)
	assert.Empty(t, surface.calls)
	vs := view.Snapshot()
	assert.Equal(t, GlyphPause, vs.Glyph)
	assert.Equal(t, []bool{false, false, true}, vs.NowPlaying)

	events := drainEvents(c)
	require.Len(t, events, 1)
	assert.Equal(t, EventStateChanged, events[0].Type)
	assert.Equal(t, StatePlaying, events[0].State)

	// Repeating the same report is not a transition.
	c.OnExternalPlayStateChange(true)
	assert.Empty(t, drainEvents(c))

	c.OnExternalPlayStateChange(false)
	assert.Equal(t, PlayerState{CurrentIndex: 2, IsPlaying: false}, c.Snapshot().PlayerState)
	assert.Equal(t, GlyphPlay, view.Snapshot().Glyph)
}

func TestController_HandleFeedback(t *testing.T) {
	c, _, view := newTestController(t)

	c.HandleFeedback(Feedback{Type: FeedbackMetadataReady, Duration: 125})
	assert.Equal(t, "2:05", view.Snapshot().Duration)

	c.HandleFeedback(Feedback{Type: FeedbackPositionChanged, Position: 25, Duration: 125})
	assert.InDelta(t, 0.2, view.Snapshot().Fill, 1e-9)

	c.HandleFeedback(Feedback{Type: FeedbackPlayStarted})
	assert.True(t, c.Snapshot().IsPlaying)

	c.HandleFeedback(Feedback{Type: FeedbackPlayPaused})
	assert.False(t, c.Snapshot().IsPlaying)

	c.HandleFeedback(Feedback{Type: FeedbackEnded})
	assert.Equal(t, PlayerState{CurrentIndex: 1, IsPlaying: true}, c.Snapshot().PlayerState)
}

func TestController_Events(t *testing.T) {
	c, _, _ := newTestController(t)

	events := drainEvents(c)
	require.Len(t, events, 1)
	assert.Equal(t, EventTrackLoaded, events[0].Type)
	assert.Equal(t, "dusman", events[0].Track.ID)

	require.NoError(t, c.PlayTrack(1))
	events = drainEvents(c)
	require.Len(t, events, 2)
	assert.Equal(t, EventTrackLoaded, events[0].Type)
	assert.Equal(t, EventStateChanged, events[1].Type)
	assert.Equal(t, StatePlaying, events[1].State)

	// Already playing: no state change.
	c.Play()
	assert.Empty(t, drainEvents(c))
}

func TestController_Close(t *testing.T) {
	c, _, _ := newTestController(t)
	drainEvents(c)

	c.Close()
	c.Close()

	assert.NotPanics(t, func() { c.Next() })
	_, ok := <-c.Events()
	assert.False(t, ok)
}
