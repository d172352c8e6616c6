package session

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/config"
)

// chanSurface is a feedback surface driven by the test.
type chanSurface struct {
	mu       sync.Mutex
	sources  []string
	feedback chan playback.Feedback
}

func newChanSurface() *chanSurface {
	return &chanSurface{feedback: make(chan playback.Feedback)}
}

func (s *chanSurface) SetSource(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources = append(s.sources, path)
	return nil
}

func (s *chanSurface) Play() error                        { return nil }
func (s *chanSurface) Pause() error                       { return nil }
func (s *chanSurface) Seek(float64) error                 { return nil }
func (s *chanSurface) Duration() float64                  { return math.NaN() }
func (s *chanSurface) Position() float64                  { return 0 }
func (s *chanSurface) Feedback() <-chan playback.Feedback { return s.feedback }

func (s *chanSurface) loaded() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sources...)
}

type collector struct {
	mu  sync.Mutex
	got []*notification.Notification
}

func (c *collector) Send(n *notification.Notification) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.got = append(c.got, n)
	return nil
}

func (c *collector) types() []playback.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var types []playback.EventType
	for _, n := range c.got {
		types = append(types, n.Type)
	}
	return types
}

func defaultConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Default()
	require.NoError(t, err)
	return cfg
}

func TestBuildCatalog(t *testing.T) {
	t.Run("built-in", func(t *testing.T) {
		cat, err := BuildCatalog(defaultConfig(t))
		require.NoError(t, err)
		assert.Equal(t, []string{"dusman", "sunday", "kamariya"}, cat.IDs())
	})

	t.Run("inline tracks", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Catalog.Tracks = []config.TrackConfig{
			{ID: "one", Title: "One", Image: "one.png"},
			{ID: "two"},
		}
		cat, err := BuildCatalog(cfg)
		require.NoError(t, err)
		first, _ := cat.At(0)
		assert.Equal(t, track.Track{ID: "one", Title: "One", ImagePath: "one.png"}, first)
	})

	t.Run("m3u", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "list.m3u")
		require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\n#EXTINF:10,A - B\nb.mp3\nc.mp3\n"), 0o644))
		cfg := defaultConfig(t)
		cfg.Catalog.M3U = path

		cat, err := BuildCatalog(cfg)
		require.NoError(t, err)
		assert.Equal(t, []string{"b", "c"}, cat.IDs())
	})

	t.Run("missing m3u", func(t *testing.T) {
		cfg := defaultConfig(t)
		cfg.Catalog.M3U = filepath.Join(t.TempDir(), "absent.m3u")
		_, err := BuildCatalog(cfg)
		assert.Error(t, err)
	})

	t.Run("empty m3u", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.m3u")
		require.NoError(t, os.WriteFile(path, []byte("#EXTM3U\n"), 0o644))
		cfg := defaultConfig(t)
		cfg.Catalog.M3U = path

		_, err := BuildCatalog(cfg)
		assert.True(t, errors.Is(err, catalog.ErrEmptyCatalog))
	})
}

func TestSourceFunc(t *testing.T) {
	cfg := defaultConfig(t)
	tr := track.Track{ID: "dusman"}

	assert.Equal(t, "/audio/dusman", SourceFunc(cfg)(tr))

	cfg.Surface.Type = config.SurfaceMPV
	cfg.Player.MusicDir = "/srv/music"
	assert.Equal(t, filepath.Join("/srv/music", "dusman.mp3"), SourceFunc(cfg)(tr))
}

func TestImagePath(t *testing.T) {
	cfg := defaultConfig(t)
	assert.Equal(t, "", ImagePath(cfg, track.Track{ID: "x"}))
	assert.Equal(t, "image/Dusman.jpg", ImagePath(cfg, track.Track{ID: "x", ImagePath: "image/Dusman.jpg"}))

	cfg.Player.ImageDir = "/srv"
	assert.Equal(t, filepath.Join("/srv", "image/Dusman.jpg"), ImagePath(cfg, track.Track{ID: "x", ImagePath: "image/Dusman.jpg"}))
	assert.Equal(t, "/abs/a.png", ImagePath(cfg, track.Track{ID: "x", ImagePath: "/abs/a.png"}))
}

func TestManager_Lifecycle(t *testing.T) {
	cfg := defaultConfig(t)
	surface := newChanSurface()
	view := playback.NewRecorder(nil)
	m := NewManager(cfg, catalog.Default(), surface, view)
	t.Cleanup(m.Close)

	sub := &collector{}
	m.GetNotificationManager().Subscribe(sub)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, errors.Is(m.Start(context.Background()), ErrSessionStarted))

	assert.Equal(t, []string{"/audio/dusman"}, surface.loaded())
	assert.Len(t, view.Snapshot().Entries, 3)

	surface.feedback <- playback.Feedback{Type: playback.FeedbackEnded}

	require.Eventually(t, func() bool {
		s := m.Controller().Snapshot()
		return s.CurrentIndex == 1 && s.IsPlaying
	}, time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(sub.types()) >= 4
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []playback.EventType{
		playback.EventTrackLoaded,
		playback.EventTrackEnded,
		playback.EventTrackLoaded,
		playback.EventStateChanged,
	}, sub.types()[:4])
}

func TestManager_DoneWhenFeedbackCloses(t *testing.T) {
	surface := newChanSurface()
	m := NewManager(defaultConfig(t), catalog.Default(), surface)
	t.Cleanup(m.Close)
	require.NoError(t, m.Start(context.Background()))

	close(surface.feedback)

	select {
	case <-m.Done():
	case <-time.After(time.Second):
		t.Fatal("session not done after feedback closed")
	}
}

func TestManager_CloseIsIdempotent(t *testing.T) {
	m := NewManager(defaultConfig(t), catalog.Default(), newChanSurface())
	require.NoError(t, m.Start(context.Background()))

	m.Close()
	m.Close()

	<-m.Done()
	assert.Equal(t, 0, m.GetNotificationManager().SubscriberCount())
	assert.True(t, errors.Is(m.Start(context.Background()), ErrSessionStarted))
}
