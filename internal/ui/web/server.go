// Package web serves the browser player: static page, WebSocket hub, audio
// and artwork.
package web

import (
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gorilla/websocket"
	zlog "github.com/rs/zerolog/log"

	"github.com/osa030/tracklist/internal/app/session"
	"github.com/osa030/tracklist/internal/domain/catalog"
	"github.com/osa030/tracklist/internal/domain/track"
	"github.com/osa030/tracklist/internal/infra/artwork"
)

// Routes.
const (
	WSRoute      = "/ws"
	AudioRoute   = session.AudioRoute
	ArtworkRoute = "/artwork/"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 16384,
}

// Options configures the web handler.
type Options struct {
	Hub       *Hub
	Catalog   *catalog.Catalog
	AudioPath func(track.Track) string
	Artwork   *artwork.Loader // nil disables /artwork/
}

// Server serves the browser player.
type Server struct {
	opts   Options
	assets map[string]asset
}

// NewServer creates the web server. Register it with Register.
func NewServer(opts Options) (*Server, error) {
	if opts.Hub == nil || opts.Catalog == nil || opts.AudioPath == nil {
		return nil, errors.New("web: hub, catalog and audio path are required")
	}
	assets, err := loadAssets()
	if err != nil {
		return nil, err
	}
	return &Server{opts: opts, assets: assets}, nil
}

// Register adds the web routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleStatic)
	mux.HandleFunc(WSRoute, s.handleWS)
	mux.HandleFunc(AudioRoute, s.handleAudio)
	mux.HandleFunc(ArtworkRoute, s.handleArtwork)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Path
	if name == "/" {
		name = "/index.html"
	}
	a, ok := s.assets[name]
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", a.contentType)
	_, _ = w.Write(a.data)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		zlog.Warn().Err(err).Msg("web: websocket upgrade failed")
		return
	}

	c := s.opts.Hub.register(conn)
	go c.writePump()
	c.readPump(s.opts.Hub)
}

// lookup resolves the track named by the path after prefix.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request, prefix string) (track.Track, bool) {
	id := strings.TrimPrefix(r.URL.Path, prefix)
	i, err := s.opts.Catalog.IndexOf(id)
	if err != nil {
		http.NotFound(w, r)
		return track.Track{}, false
	}
	t, _ := s.opts.Catalog.At(i)
	return t, true
}

func (s *Server) handleAudio(w http.ResponseWriter, r *http.Request) {
	t, ok := s.lookup(w, r, AudioRoute)
	if !ok {
		return
	}
	p := s.opts.AudioPath(t)
	if _, err := os.Stat(p); err != nil {
		zlog.Warn().Msgf("web: audio for %s missing at %s", t.ID, p)
		http.NotFound(w, r)
		return
	}
	// ServeFile handles Range requests, which seeking in <audio> relies on.
	http.ServeFile(w, r, p)
}

func (s *Server) handleArtwork(w http.ResponseWriter, r *http.Request) {
	if s.opts.Artwork == nil {
		http.NotFound(w, r)
		return
	}
	t, ok := s.lookup(w, r, ArtworkRoute)
	if !ok {
		return
	}
	data, err := s.opts.Artwork.Load(t)
	if err != nil {
		if !errors.Is(err, artwork.ErrNoArtwork) {
			zlog.Warn().Err(err).Msgf("web: artwork for %s", t.ID)
		}
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "max-age=3600")
	_, _ = w.Write(data)
}
