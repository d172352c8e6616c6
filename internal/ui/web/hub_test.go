package web

import (
	"fmt"
	"math"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
)

type fakeCommander struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeCommander) record(s string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, s)
}

func (f *fakeCommander) recorded() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeCommander) PlayTrack(i int) error {
	f.record(fmt.Sprintf("play:%d", i))
	return nil
}
func (f *fakeCommander) Play()           { f.record("play") }
func (f *fakeCommander) Pause()          { f.record("pause") }
func (f *fakeCommander) TogglePlay()     { f.record("toggle") }
func (f *fakeCommander) Next()           { f.record("next") }
func (f *fakeCommander) Previous()       { f.record("previous") }
func (f *fakeCommander) Seek(fr float64) { f.record(fmt.Sprintf("seek:%.2f", fr)) }

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + WSRoute
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(outbound) bool) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg outbound
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func isType(typ string) func(outbound) bool {
	return func(m outbound) bool { return m.Type == typ }
}

func isOp(op string) func(outbound) bool {
	return func(m outbound) bool { return m.Type == msgSurface && m.Op == op }
}

func hello(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	return readUntil(t, conn, isType(msgHello))
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func float(v float64) *float64 { return &v }
func integer(v int) *int       { return &v }

func TestHub_PrimaryIsFirstClient(t *testing.T) {
	hub, ts := newTestServer(t)

	first := hello(t, dial(t, ts))
	second := hello(t, dial(t, ts))

	require.NotNil(t, first.Primary)
	require.NotNil(t, second.Primary)
	assert.True(t, *first.Primary)
	assert.False(t, *second.Primary)
	assert.NotEqual(t, first.ClientID, second.ClientID)
	assert.Eventually(t, func() bool { return hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)
}

func TestHub_Commands(t *testing.T) {
	hub, ts := newTestServer(t)
	cmd := &fakeCommander{}
	hub.SetCommander(cmd)

	dial(t, ts)
	remote := dial(t, ts)

	for _, in := range []inbound{
		{Type: msgCommand, Command: cmdPlay, Index: integer(1)},
		{Type: msgCommand, Command: cmdPlay},
		{Type: msgCommand, Command: cmdToggle},
		{Type: msgCommand, Command: "shuffle"},
		{Type: msgCommand, Command: cmdSeek},
		{Type: msgCommand, Command: cmdSeek, Fraction: float(0.5)},
		{Type: msgCommand, Command: cmdNext},
		{Type: msgCommand, Command: cmdPrevious},
		{Type: msgCommand, Command: cmdPause},
	} {
		sendJSON(t, remote, in)
	}

	expected := []string{"play:1", "play", "toggle", "seek:0.50", "next", "previous", "pause"}
	assert.Eventually(t, func() bool {
		return assert.ObjectsAreEqual(expected, cmd.recorded())
	}, 2*time.Second, 10*time.Millisecond)
}

func TestHub_SurfaceCommandsGoToPrimary(t *testing.T) {
	hub, ts := newTestServer(t)
	primary := dial(t, ts)
	hello(t, primary)

	require.NoError(t, hub.SetSource("/audio/sunday"))
	require.NoError(t, hub.Play())
	require.NoError(t, hub.Seek(12))
	require.NoError(t, hub.Pause())

	assert.Equal(t, "/audio/sunday", readUntil(t, primary, isOp(opSource)).Path)
	readUntil(t, primary, isOp(opPlay))
	seek := readUntil(t, primary, isOp(opSeek))
	require.NotNil(t, seek.Position)
	assert.Equal(t, 12.0, *seek.Position)
	readUntil(t, primary, isOp(opPause))

	assert.True(t, math.IsNaN(hub.Duration()))
	assert.Equal(t, 0.0, hub.Position())
}

func receiveFeedback(t *testing.T, hub *Hub) playback.Feedback {
	t.Helper()
	select {
	case fb := <-hub.Feedback():
		return fb
	case <-time.After(2 * time.Second):
		t.Fatal("no feedback")
		return playback.Feedback{}
	}
}

func TestHub_FeedbackOnlyFromPrimary(t *testing.T) {
	hub, ts := newTestServer(t)
	primary := dial(t, ts)
	hello(t, primary)
	remote := dial(t, ts)
	hello(t, remote)

	sendJSON(t, remote, inbound{Type: msgFeedback, Event: evEnded})
	sendJSON(t, primary, inbound{Type: msgFeedback, Event: evTimeUpdate, Position: float(5), Duration: float(200)})

	fb := receiveFeedback(t, hub)
	assert.Equal(t, playback.Feedback{Type: playback.FeedbackPositionChanged, Position: 5, Duration: 200}, fb)
	assert.Equal(t, 200.0, hub.Duration())
	assert.Equal(t, 5.0, hub.Position())

	sendJSON(t, primary, inbound{Type: msgFeedback, Event: evLoadedMetadata})
	fb = receiveFeedback(t, hub)
	assert.Equal(t, playback.FeedbackMetadataReady, fb.Type)
	assert.True(t, math.IsNaN(fb.Duration))

	for _, tt := range []struct {
		event string
		want  playback.FeedbackType
	}{
		{evPlay, playback.FeedbackPlayStarted},
		{evPause, playback.FeedbackPlayPaused},
		{evEnded, playback.FeedbackEnded},
	} {
		sendJSON(t, primary, inbound{Type: msgFeedback, Event: tt.event})
		assert.Equal(t, tt.want, receiveFeedback(t, hub).Type, tt.event)
	}

	select {
	case fb := <-hub.Feedback():
		t.Fatalf("unexpected feedback %v", fb.Type)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestHub_PromotesNextClient(t *testing.T) {
	hub, ts := newTestServer(t)
	first := dial(t, ts)
	hello(t, first)
	second := dial(t, ts)
	hello(t, second)

	require.NoError(t, hub.SetSource("/audio/kamariya"))
	require.NoError(t, hub.Play())
	readUntil(t, first, isOp(opPlay))

	require.NoError(t, first.Close())

	role := readUntil(t, second, isType(msgRole))
	require.NotNil(t, role.Primary)
	assert.True(t, *role.Primary)
	assert.Equal(t, "/audio/kamariya", readUntil(t, second, isOp(opSource)).Path)
	readUntil(t, second, isOp(opPlay))
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsView(t *testing.T) {
	hub, ts := newTestServer(t)
	a := dial(t, ts)
	b := dial(t, ts)

	tracks := catalog.Default().Tracks()
	hub.RenderEntries(tracks)
	hub.SetMetadata(tracks[2])
	hub.SetActiveEntry(2)
	hub.SetNowPlayingVisible(2, true)
	hub.SetTransportGlyph(playback.GlyphPause)

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readUntil(t, conn, func(m outbound) bool {
			return m.Type == msgView && m.View.Active == 2 &&
				len(m.View.Entries) == 3 && m.View.Entries[2].NowPlaying &&
				m.View.Glyph == "pause"
		})
		assert.Equal(t, "Kamariya", msg.View.Current.Title)
		assert.Equal(t, ArtworkRoute+"kamariya", msg.View.Artwork)
		assert.False(t, msg.View.Entries[0].NowPlaying)
	}
}

func TestHub_DrivesController(t *testing.T) {
	hub, ts := newTestServer(t)
	ctl := playback.NewController(catalog.Default(), hub, hub, playback.Config{
		Source: func(tr track.Track) string { return AudioRoute + tr.ID },
	})
	hub.SetCommander(ctl)
	ctl.Init()

	primary := dial(t, ts)
	assert.Equal(t, "/audio/dusman", readUntil(t, primary, isOp(opSource)).Path)

	sendJSON(t, primary, inbound{Type: msgCommand, Command: cmdPlay, Index: integer(1)})

	assert.Equal(t, "/audio/sunday", readUntil(t, primary, isOp(opSource)).Path)
	readUntil(t, primary, isOp(opPlay))
	readUntil(t, primary, func(m outbound) bool {
		return m.Type == msgView && m.View.Active == 1 && m.View.Glyph == "pause"
	})
	assert.Equal(t, playback.PlayerState{CurrentIndex: 1, IsPlaying: true}, ctl.Snapshot().PlayerState)
}

func TestHub_CloseEndsFeedback(t *testing.T) {
	hub := NewHub()
	hub.Close()
	hub.Close()

	_, ok := <-hub.Feedback()
	assert.False(t, ok)
	assert.Equal(t, 0, hub.ClientCount())
}
