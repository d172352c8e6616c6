package playback

import "github.com/osa030/tracklist/internal/domain/track"

// Glyph is the transport icon naming the next available action.
type Glyph string

const (
	GlyphPlay  Glyph = "play"
	GlyphPause Glyph = "pause"
)

// PlaylistView renders the catalog entries and the current track details.
type PlaylistView interface {
	RenderEntries(tracks []track.Track)
	SetActiveEntry(index int)
	SetNowPlayingVisible(index int, visible bool)
	SetNowPlayingHidden(index int)
	// SetMetadata shows title, artist and artwork of the current track.
	SetMetadata(t track.Track)
}

// TransportView renders the play/pause control.
type TransportView interface {
	SetTransportGlyph(g Glyph)
}

// ProgressView renders the progress bar and time labels.
type ProgressView interface {
	SetFillFraction(f float64)
	SetElapsedLabel(text string)
	SetDurationLabel(text string)
}

// View combines every view capability the controller drives.
type View interface {
	PlaylistView
	TransportView
	ProgressView
}

// Views fans every call out to each view in order.
type Views []View

var _ View = Views(nil)

func (vs Views) RenderEntries(tracks []track.Track) {
	for _, v := range vs {
		v.RenderEntries(tracks)
	}
}

func (vs Views) SetActiveEntry(index int) {
	for _, v := range vs {
		v.SetActiveEntry(index)
	}
}

func (vs Views) SetNowPlayingVisible(index int, visible bool) {
	for _, v := range vs {
		v.SetNowPlayingVisible(index, visible)
	}
}

func (vs Views) SetNowPlayingHidden(index int) {
	for _, v := range vs {
		v.SetNowPlayingHidden(index)
	}
}

func (vs Views) SetMetadata(t track.Track) {
	for _, v := range vs {
		v.SetMetadata(t)
	}
}

func (vs Views) SetTransportGlyph(g Glyph) {
	for _, v := range vs {
		v.SetTransportGlyph(g)
	}
}

func (vs Views) SetFillFraction(f float64) {
	for _, v := range vs {
		v.SetFillFraction(f)
	}
}

func (vs Views) SetElapsedLabel(text string) {
	for _, v := range vs {
		v.SetElapsedLabel(text)
	}
}

func (vs Views) SetDurationLabel(text string) {
	for _, v := range vs {
		v.SetDurationLabel(text)
	}
}
