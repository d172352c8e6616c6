// Package session provides the session manager, which wires one running
// player: catalog, surface, views, controller and notifications.
package session

import (
	"context"
	"net/url"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/notification"
	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/config"
)

var (
	ErrSessionStarted    = errors.New("session already started")
	ErrSessionNotRunning = errors.New("session is not running")
)

// AudioRoute is the HTTP path prefix the web UI serves audio under.
const AudioRoute = "/audio/"

// Manager manages the player session.
type Manager struct {
	mu sync.Mutex

	config *config.Config

	// Components
	catalog      *catalog.Catalog
	surface      playback.FeedbackSurface
	controller   *playback.Controller
	notification *notification.Manager

	started   bool
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	done      chan struct{}
	doneOnce  sync.Once
	closeOnce sync.Once
}

// NewManager creates a session manager. Views may be empty.
func NewManager(
	cfg *config.Config,
	cat *catalog.Catalog,
	surface playback.FeedbackSurface,
	views ...playback.View,
) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	controller := playback.NewController(cat, surface, playback.Views(views), playback.Config{
		Source:      SourceFunc(cfg),
		EventBuffer: cfg.Player.EventBuffer,
	})

	return &Manager{
		config:       cfg,
		catalog:      cat,
		surface:      surface,
		controller:   controller,
		notification: notification.NewManager(),
		ctx:          ctx,
		cancel:       cancel,
		done:         make(chan struct{}),
	}
}

// SourceFunc returns how tracks map to surface sources for the configured
// surface type: an HTTP path for the browser, a file path for mpv.
func SourceFunc(cfg *config.Config) func(track.Track) string {
	if cfg.Surface.Type == config.SurfaceBrowser {
		return func(t track.Track) string {
			return AudioRoute + url.PathEscape(t.ID)
		}
	}
	return func(t track.Track) string {
		return t.AudioPath(cfg.Player.MusicDir, cfg.Player.AudioExt)
	}
}

// AudioPath returns the file path of a track's audio asset.
func AudioPath(cfg *config.Config, t track.Track) string {
	return t.AudioPath(cfg.Player.MusicDir, cfg.Player.AudioExt)
}

// ImagePath returns the file path of a track's artwork, or "" when unset.
func ImagePath(cfg *config.Config, t track.Track) string {
	if t.ImagePath == "" {
		return ""
	}
	if filepath.IsAbs(t.ImagePath) || cfg.Player.ImageDir == "" {
		return t.ImagePath
	}
	return filepath.Join(cfg.Player.ImageDir, t.ImagePath)
}

// BuildCatalog builds the catalog from config: inline tracks, else the M3U
// file, else the built-in catalog. Missing titles and artists come from tags when enabled.
func BuildCatalog(cfg *config.Config) (*catalog.Catalog, error) {
	var tracks []track.Track
	switch {
	case len(cfg.Catalog.Tracks) > 0:
		for _, tc := range cfg.Catalog.Tracks {
			tracks = append(tracks, track.Track{
				ID:        tc.ID,
				Title:     tc.Title,
				Artist:    tc.Artist,
				ImagePath: tc.Image,
			})
		}
		zlog.Debug().Msgf("session: %d tracks from config", len(tracks))
	case cfg.Catalog.M3U != "":
		loaded, err := catalog.LoadM3U(cfg.Catalog.M3U)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load catalog from %s", cfg.Catalog.M3U)
		}
		tracks = loaded
		zlog.Debug().Msgf("session: %d tracks from %s", len(tracks), cfg.Catalog.M3U)
	default:
		tracks = catalog.Default().Tracks()
	}

	if cfg.Catalog.FillFromTags {
		tracks = catalog.FillFromTags(tracks, func(t track.Track) string {
			return AudioPath(cfg, t)
		})
	}

	cat, err := catalog.New(tracks)
	if err != nil {
		return nil, errors.Wrap(err, "invalid catalog")
	}
	return cat, nil
}

// Start renders the initial view, loads the first track and starts the
// feedback and event loops.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return ErrSessionStarted
	}
	if err := m.ctx.Err(); err != nil {
		return ErrSessionNotRunning
	}
	m.started = true

	// Stop with the caller's context as well as on Close.
	go func() {
		select {
		case <-ctx.Done():
			m.cancel()
		case <-m.ctx.Done():
		}
	}()

	m.controller.Init()

	m.wg.Add(2)
	go m.feedbackLoop()
	go m.eventLoop()

	zlog.Info().Msgf("session started: tracks=%d surface=%s", m.catalog.Len(), m.config.Surface.Type)
	return nil
}

// feedbackLoop pumps surface feedback into the controller.
func (m *Manager) feedbackLoop() {
	defer func() {
		if r := recover(); r != nil {
			zlog.Error().Msgf("feedback loop panicked: %v", r)
			zlog.Info().Msg("restarting feedback loop")
			m.wg.Add(1)
			go m.feedbackLoop()
		}
		m.wg.Done()
	}()

	for {
		select {
		case <-m.ctx.Done():
			return
		case fb, ok := <-m.surface.Feedback():
			if !ok {
				zlog.Warn().Msg("session: surface feedback closed")
				m.markDone()
				return
			}
			m.controller.HandleFeedback(fb)
		}
	}
}

// eventLoop republishes controller events as notifications until the
// controller's event channel is closed.
func (m *Manager) eventLoop() {
	defer m.wg.Done()

	for event := range m.controller.Events() {
		zlog.Debug().Msgf("playback event: type=%s index=%d state=%s", event.Type, event.Index, event.State)
		m.notification.Broadcast(notification.FromEvent(event))
	}
}

func (m *Manager) markDone() {
	m.doneOnce.Do(func() { close(m.done) })
}

// Done is closed when the session ends: on Close, or when the surface stops
// delivering feedback.
func (m *Manager) Done() <-chan struct{} {
	return m.done
}

// Controller returns the playback controller.
func (m *Manager) Controller() *playback.Controller {
	return m.controller
}

// Catalog returns the catalog.
func (m *Manager) Catalog() *catalog.Catalog {
	return m.catalog
}

// GetNotificationManager returns the notification manager.
func (m *Manager) GetNotificationManager() *notification.Manager {
	return m.notification
}

// Config returns the configuration the session was built from.
func (m *Manager) Config() *config.Config {
	return m.config
}

// Close stops the loops and releases subscribers. Safe to call twice.
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		m.cancel()
		m.controller.Close()
		m.wg.Wait()
		m.notification.Close()
		m.markDone()
		zlog.Info().Msg("session closed")
	})
}
