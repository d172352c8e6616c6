package mpris

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/godbus/dbus/v5"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

const (
	statusPlaying = "Playing"
	statusPaused  = "Paused"
)

type microsecond = int64

func microsecondsToSeconds(usec microsecond) float64 {
	const us = float64(time.Second / time.Microsecond)
	return float64(usec) / us
}

func secondsToMicroseconds(secs float64) microsecond {
	return microsecond(secs * float64(time.Second/time.Microsecond))
}

func trackID(index int) dbus.ObjectPath {
	if index < 0 {
		return dbus.ObjectPath("/org/mpris/MediaPlayer2/TrackList/NoTrack")
	}
	return dbus.ObjectPath(fmt.Sprintf(tracksPath+"/%d", index))
}

func noTrackMetadata() map[string]any {
	return map[string]any{
		"mpris:trackid": trackID(-1),
	}
}

func metadata(index int, t track.Track) map[string]any {
	m := map[string]any{
		"mpris:trackid": trackID(index),
		"xesam:title":   t.Title,
	}
	if t.Title == "" {
		m["xesam:title"] = t.ID
	}
	if t.Artist != "" {
		m["xesam:artist"] = []string{t.Artist}
	}
	return m
}

func playbackStatus(s playback.State) string {
	if s == playback.StatePlaying {
		return statusPlaying
	}
	return statusPaused
}

type propChange struct {
	n string
	v any
}

type setFunc func(iface, name string, v dbus.Variant) *dbus.Error

// player implements org.mpris.MediaPlayer2.Player against the controller.
type player struct {
	control Controller
	propQ   chan propChange
	stop    chan struct{}

	mu      sync.Mutex
	trackID dbus.ObjectPath
}

// positionInterval is how often Position is refreshed from the controller.
const positionInterval = time.Second

func newPlayer(control Controller, set setFunc) *player {
	p := &player{
		control: control,
		propQ:   make(chan propChange, 10),
		stop:    make(chan struct{}),
		trackID: trackID(-1),
	}
	go p.run(set)
	return p
}

// run applies queued prop changes and keeps Position current until destroy.
func (p *player) run(set setFunc) {
	tick := time.NewTicker(positionInterval)
	defer tick.Stop()

	apply := func(c propChange) {
		if err := set(playerID, c.n, dbus.MakeVariant(c.v)); err != nil {
			zlog.Warn().Msgf("mpris: set %s failed: %v", c.n, err)
		}
	}

	for {
		select {
		case <-p.stop:
			return
		case <-tick.C:
			apply(propChange{"Position", p.position()})
		case send := <-p.propQ:
			apply(send)
		}
	}
}

// position returns the controller's position in microseconds.
func (p *player) position() microsecond {
	pos := p.control.Snapshot().Position
	if math.IsNaN(pos) || math.IsInf(pos, 0) || pos < 0 {
		return 0
	}
	return secondsToMicroseconds(pos)
}

func (p *player) syncPosition() {
	p.sendProp("Position", p.position())
}

func (p *player) destroy() {
	close(p.stop)
}

// sendProp queues the prop to be sent through D-Bus. It drops the oldest
// queued change when the queue is full.
func (p *player) sendProp(n string, v any) {
	change := propChange{n, v}

	for {
		select {
		case <-p.stop:
			return
		case p.propQ <- change:
			return
		default:
			zlog.Warn().Msg("mpris: prop queue full")
			select {
			case <-p.propQ:
			default:
			}
		}
	}
}

func (p *player) setTrack(index int, t track.Track) {
	p.mu.Lock()
	p.trackID = trackID(index)
	p.mu.Unlock()

	p.sendProp("Metadata", metadata(index, t))
}

func (p *player) currentTrackID() dbus.ObjectPath {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.trackID
}

func (p *player) update(st playback.Status) {
	p.setTrack(st.CurrentIndex, st.Track)
	p.sendProp("PlaybackStatus", playbackStatus(st.State()))
	p.syncPosition()
}

func (p *player) onNotification(n *notification.Notification) {
	switch n.Type {
	case playback.EventTrackLoaded:
		p.setTrack(n.Index, n.Track)
		p.sendProp("PlaybackStatus", playbackStatus(n.State))
	case playback.EventStateChanged:
		p.sendProp("PlaybackStatus", playbackStatus(n.State))
	}
	p.syncPosition()
}

// seekTo jumps to an absolute position in seconds.
func (p *player) seekTo(pos float64) {
	st := p.control.Snapshot()
	if math.IsNaN(st.Duration) || math.IsInf(st.Duration, 0) || st.Duration <= 0 {
		return
	}
	p.control.Seek(pos / st.Duration)
	p.syncPosition()
}

// D-Bus methods.

func (p *player) Next() *dbus.Error {
	p.control.Next()
	return nil
}

func (p *player) Previous() *dbus.Error {
	p.control.Previous()
	return nil
}

func (p *player) Pause() *dbus.Error {
	p.control.Pause()
	return nil
}

func (p *player) Play() *dbus.Error {
	p.control.Play()
	return nil
}

func (p *player) Stop() *dbus.Error {
	p.control.Pause()
	return nil
}

func (p *player) PlayPause() *dbus.Error {
	p.control.TogglePlay()
	return nil
}

func (p *player) OpenUri(string) *dbus.Error {
	return errUnimplemented
}

// Seek moves by a relative offset.
func (p *player) Seek(us microsecond) *dbus.Error {
	st := p.control.Snapshot()
	p.seekTo(st.Position + microsecondsToSeconds(us))
	return nil
}

// SetPosition seeks if id still names the current track.
func (p *player) SetPosition(id dbus.ObjectPath, us microsecond) *dbus.Error {
	if id != p.currentTrackID() {
		return nil
	}
	p.seekTo(microsecondsToSeconds(us))
	return nil
}
