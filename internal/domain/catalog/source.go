package catalog

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	zlog "github.com/rs/zerolog/log"
	"github.com/ushis/m3u"

	"github.com/osa030/tracklist/internal/domain/track"
)

// ParseM3U reads an M3U playlist into tracks. The track ID is the entry's
// file name without extension; an "Artist - Title" EXTINF title is split.
func ParseM3U(r io.Reader) ([]track.Track, error) {
	p, err := m3u.Parse(r)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse m3u")
	}

	tracks := make([]track.Track, 0, len(p))
	for _, entry := range p {
		if entry.Path == "" {
			continue
		}
		base := filepath.Base(filepath.ToSlash(entry.Path))
		id := strings.TrimSuffix(base, filepath.Ext(base))

		t := track.Track{ID: id, Title: entry.Title}
		if artist, title, ok := strings.Cut(entry.Title, " - "); ok {
			t.Artist = strings.TrimSpace(artist)
			t.Title = strings.TrimSpace(title)
		}
		tracks = append(tracks, t)
	}
	return tracks, nil
}

// LoadM3U opens path and parses it with ParseM3U.
func LoadM3U(path string) ([]track.Track, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open m3u")
	}
	defer f.Close()

	return ParseM3U(f)
}

// FillFromTags fills missing titles and artists from each audio file's tags.
// Files that cannot be read are left as they are.
func FillFromTags(tracks []track.Track, audioPath func(track.Track) string) []track.Track {
	result := make([]track.Track, len(tracks))
	for i, t := range tracks {
		result[i] = t
		if t.Title != "" && t.Artist != "" {
			continue
		}

		md, err := readTags(audioPath(t))
		if err != nil {
			zlog.Debug().Msgf("catalog: no tags for %s: %v", t.ID, err)
			continue
		}
		if result[i].Title == "" {
			result[i].Title = md.Title()
		}
		if result[i].Artist == "" {
			result[i].Artist = md.Artist()
		}
	}
	return result
}

func readTags(path string) (tag.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return tag.ReadFrom(f)
}
