// Package catalog provides the fixed, ordered track catalog.
package catalog

import (
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/osa030/tracklist/internal/domain/track"
)

// Errors
var (
	ErrEmptyCatalog    = errors.New("catalog must contain at least one track")
	ErrDuplicateTrack  = errors.New("duplicate track id")
	ErrTrackNotFound   = errors.New("track not found")
	ErrIndexOutOfRange = errors.New("track index out of range")
)

// Catalog is an immutable ordered sequence of tracks.
type Catalog struct {
	tracks []track.Track
	index  map[string]int
}

// New builds a catalog from tracks. The slice is copied.
func New(tracks []track.Track) (*Catalog, error) {
	if len(tracks) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		tracks: make([]track.Track, len(tracks)),
		index:  make(map[string]int, len(tracks)),
	}
	for i, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, errors.Wrapf(err, "track %d", i)
		}
		if prev, ok := c.index[t.ID]; ok {
			return nil, errors.Wrapf(ErrDuplicateTrack, "%q at %d and %d", t.ID, prev, i)
		}
		c.index[t.ID] = i
		c.tracks[i] = t
	}
	return c, nil
}

// Default returns the built-in three-song catalog.
func Default() *Catalog {
	c, err := New([]track.Track{
		{ID: "dusman", Title: "Dusman", Artist: "Durgesh Thapa", ImagePath: "image/Dusman.jpg"},
		{ID: "sunday", Title: "Sunday", Artist: "Sudeep Magar", ImagePath: "image/Sunday.jpg"},
		{ID: "kamariya", Title: "Kamariya", Artist: "Kesari Lal Yadhav", ImagePath: "image/kamariya.jpg"},
	})
	if err != nil {
		panic(err)
	}
	return c
}

// Len returns the number of tracks. Always at least 1.
func (c *Catalog) Len() int {
	return len(c.tracks)
}

// At returns the track at index i.
func (c *Catalog) At(i int) (track.Track, error) {
	if i < 0 || i >= len(c.tracks) {
		return track.Track{}, errors.Wrapf(ErrIndexOutOfRange, "index %d (len %d)", i, len(c.tracks))
	}
	return c.tracks[i], nil
}

// Tracks returns a copy of all tracks in order.
func (c *Catalog) Tracks() []track.Track {
	result := make([]track.Track, len(c.tracks))
	copy(result, c.tracks)
	return result
}

// IDs returns all track IDs in order.
func (c *Catalog) IDs() []string {
	ids := make([]string, len(c.tracks))
	for i, t := range c.tracks {
		ids[i] = t.ID
	}
	return ids
}

// IndexOf returns the position of the track with the given ID.
func (c *Catalog) IndexOf(id string) (int, error) {
	i, ok := c.index[id]
	if !ok {
		return 0, errors.Wrapf(ErrTrackNotFound, "id %q", id)
	}
	return i, nil
}

// Wrap maps any integer onto a valid index using modular arithmetic.
func (c *Catalog) Wrap(i int) int {
	n := len(c.tracks)
	return ((i % n) + n) % n
}

// Search returns the indices of tracks whose title, artist or ID fuzzily
// match query, best match first. An empty query matches nothing.
func (c *Catalog) Search(query string) []int {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	// Prefix matches on title or ID rank above substring matches, which
	// rank above scattered fuzzy matches.
	type hit struct {
		index    int
		tier     int
		distance int
	}
	lower := strings.ToLower(query)
	hits := make([]hit, 0, len(c.tracks))
	for i, t := range c.tracks {
		target := t.Title + " " + t.Artist + " " + t.ID
		d := fuzzy.RankMatchNormalizedFold(query, target)
		if d < 0 {
			continue
		}
		tier := 2
		switch {
		case strings.HasPrefix(strings.ToLower(t.Title), lower), strings.HasPrefix(strings.ToLower(t.ID), lower):
			tier = 0
		case strings.Contains(strings.ToLower(target), lower):
			tier = 1
		}
		hits = append(hits, hit{index: i, tier: tier, distance: d})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].tier != hits[b].tier {
			return hits[a].tier < hits[b].tier
		}
		return hits[a].distance < hits[b].distance
	})

	result := make([]int, len(hits))
	for i, h := range hits {
		result[i] = h.index
	}
	return result
}
