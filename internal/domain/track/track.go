// Package track provides the Track domain entity.
package track

import (
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
)

// DefaultAudioExt is the extension used when none is configured.
const DefaultAudioExt = "mp3"

// ErrInvalidTrack is returned when a track is missing required fields.
var ErrInvalidTrack = errors.New("invalid track")

// Track represents one playable catalog entry.
// Tracks are values and are never mutated once the catalog is built.
type Track struct {
	ID        string // Stable identifier, also the audio file stem
	Title     string // Display title
	Artist    string // Display artist
	ImagePath string // Artwork path (may be empty)
}

// AudioPath returns the audio asset path for the track: "<dir>/<id>.<ext>".
func (t Track) AudioPath(dir, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = DefaultAudioExt
	}
	return filepath.Join(dir, t.ID+"."+ext)
}

// DisplayName returns "Title - Artist", falling back to the ID.
func (t Track) DisplayName() string {
	title := t.Title
	if title == "" {
		title = t.ID
	}
	if t.Artist == "" {
		return title
	}
	return title + " - " + t.Artist
}

// Validate checks the fields a catalog entry cannot do without.
func (t Track) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.Wrap(ErrInvalidTrack, "empty id")
	}
	if strings.ContainsAny(t.ID, `/\`) {
		return errors.Wrapf(ErrInvalidTrack, "id %q contains a path separator", t.ID)
	}
	return nil
}
