// Package mpv provides a playback surface backed by an mpv process
// controlled over its JSON IPC socket.
package mpv

import (
	"context"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DexterLB/mpvipc"
	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
)

type propertyID int

const (
	propAll propertyID = iota
	propPause
	propTimePos
	propDuration
	propEOFReached
)

var observed = map[propertyID]string{
	propPause:      "pause",
	propTimePos:    "time-pos",
	propDuration:   "duration",
	propEOFReached: "eof-reached",
}

// ErrClosed is returned by commands once mpv is gone.
var ErrClosed = errors.New("mpv: player closed")

// Player is a playback.FeedbackSurface driving mpv.
//
// mpvipc runs event callbacks on the goroutine that also delivers command
// replies, so the callback only queues feedback. A forwarding goroutine
// moves the queue onto the feedback channel.
type Player struct {
	conn       *mpvipc.Connection
	cmd        *exec.Cmd
	socketPath string

	pos uint64 // float64 bits
	dur uint64 // float64 bits, NaN when unknown

	mu     sync.Mutex
	queue  []playback.Feedback
	closed bool

	wake     chan struct{}
	feedback chan playback.Feedback
	stop     chan struct{}
	stopOnce sync.Once
	exited   chan struct{}
}

var _ playback.FeedbackSurface = (*Player)(nil)

func newPlayer() *Player {
	p := &Player{
		wake:     make(chan struct{}, 1),
		feedback: make(chan playback.Feedback, 8),
		stop:     make(chan struct{}),
		exited:   make(chan struct{}),
	}
	p.storeDuration(math.NaN())

	go p.forward()
	return p
}

// Start spawns mpv and connects to it. The returned player reports
// feedback until Close is called or mpv exits.
func Start(ctx context.Context, s Settings) (*Player, error) {
	if err := os.MkdirAll(filepath.Dir(s.Socket), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to make socket directory")
	}
	if err := os.RemoveAll(s.Socket); err != nil {
		return nil, errors.Wrap(err, "failed to clean up socket")
	}

	cmd := exec.Command(s.Binary, s.args()...)
	cmd.Env = os.Environ()
	if err := cmd.Start(); err != nil {
		return nil, errors.Wrapf(err, "failed to start %s", s.Binary)
	}
	zlog.Debug().Msgf("mpv: started pid=%d socket=%s", cmd.Process.Pid, s.Socket)

	p := newPlayer()
	p.cmd = cmd
	p.socketPath = s.Socket
	p.conn = mpvipc.NewConnection(s.Socket)

	if err := p.open(ctx, s.StartTimeout()); err != nil {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		p.shutdown()
		return nil, err
	}
	go p.watch()

	if err := p.observe(); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

// observe registers the event callback and asks mpv for property changes.
func (p *Player) observe() error {
	p.conn.ListenForEvents(p.onEvent)

	for id, property := range observed {
		if _, err := p.conn.Call("observe_property", int(id), property); err != nil {
			return errors.Wrapf(err, "failed to observe property %q", property)
		}
	}
	return nil
}

// open retries until mpv has created its socket.
func (p *Player) open(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		err := p.conn.Open()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(err, "failed to open mpv connection")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

// watch closes the feedback channel once mpv exits.
func (p *Player) watch() {
	defer close(p.exited)

	if err := p.cmd.Wait(); err != nil {
		zlog.Debug().Msgf("mpv: exited: %v", err)
	} else {
		zlog.Debug().Msg("mpv: exited")
	}
	p.shutdown()
}

func (p *Player) onEvent(e *mpvipc.Event) {
	if e.Error != "" && e.Error != "success" {
		zlog.Debug().Msgf("mpv: event error: %s", e.Error)
	}
	p.handle(propertyID(e.ID), e.Name, e.Data)
}

// handle translates one mpv event into surface feedback.
func (p *Player) handle(id propertyID, name string, data any) {
	switch id {
	case propPause:
		paused, ok := data.(bool)
		if !ok {
			return
		}
		if paused {
			p.emit(playback.Feedback{Type: playback.FeedbackPlayPaused})
		} else {
			p.emit(playback.Feedback{Type: playback.FeedbackPlayStarted})
		}

	case propTimePos:
		pos, ok := data.(float64)
		if !ok {
			return
		}
		p.storePosition(pos)
		p.emit(playback.Feedback{
			Type:     playback.FeedbackPositionChanged,
			Position: pos,
			Duration: p.Duration(),
		})

	case propDuration:
		d, ok := data.(float64)
		if !ok {
			d = math.NaN()
		}
		p.storeDuration(d)
		p.emit(playback.Feedback{Type: playback.FeedbackMetadataReady, Duration: d})

	case propEOFReached:
		if eof, _ := data.(bool); eof {
			p.emit(playback.Feedback{Type: playback.FeedbackEnded})
		}

	case propAll:
		if name != "" {
			zlog.Debug().Msgf("mpv: event %s", name)
		}
	}
}

// emit queues feedback without blocking. A position update replaces a
// position update still waiting at the tail of the queue.
func (p *Player) emit(fb playback.Feedback) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	n := len(p.queue)
	if n > 0 && fb.Type == playback.FeedbackPositionChanged && p.queue[n-1].Type == playback.FeedbackPositionChanged {
		p.queue[n-1] = fb
	} else {
		p.queue = append(p.queue, fb)
	}
	p.mu.Unlock()

	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// forward delivers queued feedback in order until the player stops, then
// closes the feedback channel.
func (p *Player) forward() {
	defer close(p.feedback)

	for {
		select {
		case <-p.stop:
			return
		case <-p.wake:
		}

		for _, fb := range p.takeQueued() {
			select {
			case p.feedback <- fb:
			case <-p.stop:
				return
			}
		}
	}
}

func (p *Player) takeQueued() []playback.Feedback {
	p.mu.Lock()
	defer p.mu.Unlock()

	queued := p.queue
	p.queue = nil
	return queued
}

func (p *Player) queued() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// Feedback returns the feedback channel. It is closed when mpv exits.
func (p *Player) Feedback() <-chan playback.Feedback {
	return p.feedback
}

// SetSource replaces the loaded file. mpv stays paused until Play.
func (p *Player) SetSource(path string) error {
	if err := p.running(); err != nil {
		return err
	}
	p.storePosition(0)
	p.storeDuration(math.NaN())
	if _, err := p.conn.Call("loadfile", path, "replace"); err != nil {
		return errors.Wrapf(err, "failed to load %s", path)
	}
	return nil
}

func (p *Player) Play() error {
	return p.set("pause", false, "failed to resume")
}

func (p *Player) Pause() error {
	return p.set("pause", true, "failed to pause")
}

func (p *Player) Seek(position float64) error {
	return p.set("time-pos", position, "failed to seek")
}

func (p *Player) set(property string, value any, msg string) error {
	if err := p.running(); err != nil {
		return err
	}
	return errors.Wrap(p.conn.Set(property, value), msg)
}

// running fails once the player has stopped. mpvipc does not recover from
// commands sent on a closed connection.
func (p *Player) running() error {
	select {
	case <-p.stop:
		return ErrClosed
	default:
		return nil
	}
}

func (p *Player) Duration() float64 {
	return math.Float64frombits(atomic.LoadUint64(&p.dur))
}

func (p *Player) Position() float64 {
	return math.Float64frombits(atomic.LoadUint64(&p.pos))
}

func (p *Player) storePosition(pos float64) {
	atomic.StoreUint64(&p.pos, math.Float64bits(pos))
}

func (p *Player) storeDuration(d float64) {
	atomic.StoreUint64(&p.dur, math.Float64bits(d))
}

// shutdown drops queued feedback and stops the forwarder, which closes the
// feedback channel.
func (p *Player) shutdown() {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.queue = nil
		p.mu.Unlock()

		close(p.stop)
	})
}

// Close stops mpv and removes its socket. It does nothing if called twice.
func (p *Player) Close() {
	select {
	case <-p.stop:
		return
	default:
	}

	if p.conn != nil {
		p.conn.Close()
	}
	if p.cmd != nil && p.cmd.Process != nil {
		if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
			zlog.Warn().Err(err).Msg("mpv: interrupt failed, killing")
			_ = p.cmd.Process.Kill()
		}
		select {
		case <-p.exited:
		case <-time.After(3 * time.Second):
			_ = p.cmd.Process.Kill()
			<-p.exited
		}
	}
	p.shutdown()

	if p.socketPath != "" {
		if err := os.Remove(p.socketPath); err != nil && !os.IsNotExist(err) {
			zlog.Warn().Err(err).Msg("mpv: failed to clean up socket")
		}
	}
}
