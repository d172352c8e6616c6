package web

import (
	"math"
	"net/url"

	"github.com/osa030/tracklist/internal/app/playback"
	"github.com/osa030/tracklist/internal/domain/track"
)

// Message types exchanged over /ws.
const (
	// Server to page.
	msgHello   = "hello"   // client_id, primary
	msgRole    = "role"    // primary
	msgView    = "view"    // view
	msgSurface = "surface" // op, path, position

	// Page to server.
	msgCommand  = "command"  // command, index, fraction
	msgFeedback = "feedback" // event, position, duration
)

// Surface operations sent to the primary page.
const (
	opSource = "source"
	opPlay   = "play"
	opPause  = "pause"
	opSeek   = "seek"
)

// Commands accepted from any page.
const (
	cmdPlay     = "play"
	cmdPause    = "pause"
	cmdToggle   = "toggle"
	cmdNext     = "next"
	cmdPrevious = "previous"
	cmdSeek     = "seek"
)

// Media events reported by the primary page's audio element.
const (
	evTimeUpdate     = "timeupdate"
	evLoadedMetadata = "loadedmetadata"
	evEnded          = "ended"
	evPlay           = "play"
	evPause          = "pause"
)

type outbound struct {
	Type     string       `json:"type"`
	ClientID string       `json:"client_id,omitempty"`
	Primary  *bool        `json:"primary,omitempty"`
	View     *viewMessage `json:"view,omitempty"`
	Op       string       `json:"op,omitempty"`
	Path     string       `json:"path,omitempty"`
	Position *float64     `json:"position,omitempty"`
}

// inbound is a page message. Numbers are pointers: JavaScript serializes
// NaN as null, and index is optional.
type inbound struct {
	Type     string   `json:"type"`
	Command  string   `json:"command,omitempty"`
	Index    *int     `json:"index,omitempty"`
	Fraction *float64 `json:"fraction,omitempty"`
	Event    string   `json:"event,omitempty"`
	Position *float64 `json:"position,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

type entryMessage struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	NowPlaying bool   `json:"now_playing"`
}

type viewMessage struct {
	Entries  []entryMessage `json:"entries"`
	Active   int            `json:"active"`
	Glyph    string         `json:"glyph"`
	Current  entryMessage   `json:"current"`
	Artwork  string         `json:"artwork"`
	Fill     float64        `json:"fill"`
	Elapsed  string         `json:"elapsed"`
	Duration string         `json:"duration"`
}

func newViewMessage(vs playback.ViewState) *viewMessage {
	m := &viewMessage{
		Entries:  make([]entryMessage, len(vs.Entries)),
		Active:   vs.Active,
		Glyph:    string(vs.Glyph),
		Current:  newEntry(vs.Current, false),
		Fill:     vs.Fill,
		Elapsed:  vs.Elapsed,
		Duration: vs.Duration,
	}
	for i, t := range vs.Entries {
		m.Entries[i] = newEntry(t, i < len(vs.NowPlaying) && vs.NowPlaying[i])
	}
	if vs.Current.ID != "" {
		m.Artwork = ArtworkRoute + url.PathEscape(vs.Current.ID)
	}
	return m
}

func newEntry(t track.Track, nowPlaying bool) entryMessage {
	return entryMessage{ID: t.ID, Title: t.Title, Artist: t.Artist, NowPlaying: nowPlaying}
}

// number converts an optional page number; null means unknown.
func number(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}
