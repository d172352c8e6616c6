package web

import (
	"encoding/json"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/playback"
)

// clientBuffer is the number of queued messages per page before it is
// dropped as too slow.
const clientBuffer = 64

// Hub tracks connected pages. It renders the player to every page and uses
// the primary page's audio element as the playback surface.
type Hub struct {
	*playback.Recorder

	mu        sync.Mutex
	clients   []*client // connection order; clients[0] is primary
	commander playback.Commander
	source    string
	playing   bool

	position uint64 // float64 bits
	duration uint64 // float64 bits, NaN when unknown

	changed  chan struct{}
	feedback chan playback.Feedback
	sendMu   sync.RWMutex
	closed   bool
	stop     chan struct{}
	stopOnce sync.Once
}

var (
	_ playback.View            = (*Hub)(nil)
	_ playback.FeedbackSurface = (*Hub)(nil)
)

// NewHub creates a hub and starts its view broadcaster.
func NewHub() *Hub {
	h := &Hub{
		changed:  make(chan struct{}, 1),
		feedback: make(chan playback.Feedback, 32),
		stop:     make(chan struct{}),
	}
	h.Recorder = playback.NewRecorder(h.markChanged)
	h.storeDuration(math.NaN())

	go h.broadcastLoop()
	return h
}

// SetCommander sets the target of page commands.
func (h *Hub) SetCommander(c playback.Commander) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.commander = c
}

// markChanged signals the broadcaster without blocking. Bursts of view
// updates coalesce into one broadcast.
func (h *Hub) markChanged() {
	select {
	case h.changed <- struct{}{}:
	default:
	}
}

func (h *Hub) broadcastLoop() {
	for {
		select {
		case <-h.stop:
			return
		case <-h.changed:
			data, err := json.Marshal(outbound{Type: msgView, View: newViewMessage(h.Snapshot())})
			if err != nil {
				zlog.Error().Err(err).Msg("web: failed to encode view")
				continue
			}
			h.mu.Lock()
			for _, c := range h.clients {
				h.enqueueLocked(c, data)
			}
			h.mu.Unlock()
		}
	}
}

// register adds a page. The first page becomes primary.
func (h *Hub) register(conn *websocket.Conn) *client {
	c := &client{
		id:   uuid.New().String(),
		conn: conn,
		send: make(chan []byte, clientBuffer),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	h.clients = append(h.clients, c)
	primary := len(h.clients) == 1
	h.sendLocked(c, outbound{Type: msgHello, ClientID: c.id, Primary: &primary})
	if primary {
		h.restoreLocked(c)
	}
	h.mu.Unlock()

	zlog.Info().Msgf("web: client connected: id=%s primary=%v", c.id, primary)
	h.markChanged()
	return c
}

// unregister removes a page and promotes the next one when the primary
// leaves.
func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := -1
	for i, other := range h.clients {
		if other == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return
	}
	h.clients = append(h.clients[:idx], h.clients[idx+1:]...)
	c.close()
	zlog.Info().Msgf("web: client disconnected: id=%s", c.id)

	if idx == 0 && len(h.clients) > 0 {
		next := h.clients[0]
		primary := true
		h.sendLocked(next, outbound{Type: msgRole, Primary: &primary})
		h.restoreLocked(next)
		zlog.Info().Msgf("web: promoted client %s to primary", next.id)
	}
}

// restoreLocked hands the current source to a new primary page.
func (h *Hub) restoreLocked(c *client) {
	if h.source == "" {
		return
	}
	h.sendLocked(c, outbound{Type: msgSurface, Op: opSource, Path: h.source})
	if h.playing {
		h.sendLocked(c, outbound{Type: msgSurface, Op: opPlay})
	}
}

func (h *Hub) isPrimary(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients) > 0 && h.clients[0] == c
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) sendLocked(c *client, msg outbound) {
	data, err := json.Marshal(msg)
	if err != nil {
		zlog.Error().Err(err).Msgf("web: failed to encode %s", msg.Type)
		return
	}
	h.enqueueLocked(c, data)
}

func (h *Hub) enqueueLocked(c *client, data []byte) {
	select {
	case c.send <- data:
	default:
		zlog.Warn().Msgf("web: client %s too slow, dropping", c.id)
		c.close()
	}
}

// sendPrimary sends a surface operation to the primary page, if any.
func (h *Hub) sendPrimary(msg outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) == 0 {
		zlog.Debug().Msgf("web: no page connected for %s", msg.Op)
		return
	}
	h.sendLocked(h.clients[0], msg)
}

// handle processes one page message.
func (h *Hub) handle(c *client, in inbound) error {
	switch in.Type {
	case msgCommand:
		return h.handleCommand(in)
	case msgFeedback:
		if !h.isPrimary(c) {
			return nil
		}
		return h.handleFeedback(in)
	default:
		return errors.Newf("unknown message type %q", in.Type)
	}
}

func (h *Hub) handleCommand(in inbound) error {
	h.mu.Lock()
	cmd := h.commander
	h.mu.Unlock()
	if cmd == nil {
		return errors.New("no controller attached")
	}

	switch in.Command {
	case cmdPlay:
		if in.Index != nil {
			return cmd.PlayTrack(*in.Index)
		}
		cmd.Play()
	case cmdPause:
		cmd.Pause()
	case cmdToggle:
		cmd.TogglePlay()
	case cmdNext:
		cmd.Next()
	case cmdPrevious:
		cmd.Previous()
	case cmdSeek:
		if in.Fraction == nil {
			return errors.New("seek requires fraction")
		}
		cmd.Seek(*in.Fraction)
	default:
		return errors.Newf("unknown command %q", in.Command)
	}
	return nil
}

func (h *Hub) handleFeedback(in inbound) error {
	var fb playback.Feedback
	switch in.Event {
	case evTimeUpdate:
		pos, dur := number(in.Position), number(in.Duration)
		h.storePosition(pos)
		h.storeDuration(dur)
		fb = playback.Feedback{Type: playback.FeedbackPositionChanged, Position: pos, Duration: dur}
	case evLoadedMetadata:
		dur := number(in.Duration)
		h.storeDuration(dur)
		fb = playback.Feedback{Type: playback.FeedbackMetadataReady, Duration: dur}
	case evEnded:
		fb = playback.Feedback{Type: playback.FeedbackEnded}
	case evPlay:
		h.setPlaying(true)
		fb = playback.Feedback{Type: playback.FeedbackPlayStarted}
	case evPause:
		h.setPlaying(false)
		fb = playback.Feedback{Type: playback.FeedbackPlayPaused}
	default:
		return errors.Newf("unknown media event %q", in.Event)
	}
	h.emit(fb)
	return nil
}

func (h *Hub) setPlaying(playing bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.playing = playing
}

// emit blocks until the feedback is taken or the hub closes.
func (h *Hub) emit(fb playback.Feedback) {
	h.sendMu.RLock()
	defer h.sendMu.RUnlock()

	if h.closed {
		return
	}
	select {
	case h.feedback <- fb:
	case <-h.stop:
	}
}

// Feedback returns the surface feedback channel. It is closed by Close.
func (h *Hub) Feedback() <-chan playback.Feedback {
	return h.feedback
}

func (h *Hub) SetSource(path string) error {
	h.mu.Lock()
	h.source = path
	h.mu.Unlock()

	h.storePosition(0)
	h.storeDuration(math.NaN())
	h.sendPrimary(outbound{Type: msgSurface, Op: opSource, Path: path})
	return nil
}

func (h *Hub) Play() error {
	h.setPlaying(true)
	h.sendPrimary(outbound{Type: msgSurface, Op: opPlay})
	return nil
}

func (h *Hub) Pause() error {
	h.setPlaying(false)
	h.sendPrimary(outbound{Type: msgSurface, Op: opPause})
	return nil
}

func (h *Hub) Seek(position float64) error {
	h.sendPrimary(outbound{Type: msgSurface, Op: opSeek, Position: &position})
	return nil
}

func (h *Hub) Duration() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.duration))
}

func (h *Hub) Position() float64 {
	return math.Float64frombits(atomic.LoadUint64(&h.position))
}

func (h *Hub) storePosition(v float64) { atomic.StoreUint64(&h.position, math.Float64bits(v)) }
func (h *Hub) storeDuration(v float64) { atomic.StoreUint64(&h.duration, math.Float64bits(v)) }

// Close disconnects every page and closes the feedback channel.
func (h *Hub) Close() {
	h.stopOnce.Do(func() {
		close(h.stop)

		h.mu.Lock()
		for _, c := range h.clients {
			c.close()
		}
		h.clients = nil
		h.mu.Unlock()

		h.sendMu.Lock()
		h.closed = true
		close(h.feedback)
		h.sendMu.Unlock()
	})
}
