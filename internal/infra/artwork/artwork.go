// Package artwork loads track artwork from image files or embedded audio
// tags and scales it for display.
package artwork

import (
	"bytes"
	"image"
	_ "image/jpeg" // register decoder
	"image/png"
	"os"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/dhowden/tag"
	"github.com/nfnt/resize"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/osa030/tracklist/internal/domain/track"
)

// ErrNoArtwork is returned when a track has neither an image file nor an
// embedded picture.
var ErrNoArtwork = errors.New("no artwork")

// Loader loads, scales and caches artwork as PNG.
type Loader struct {
	width     uint
	imagePath func(track.Track) string
	audioPath func(track.Track) string

	// Concurrent loads of one track share a single decode.
	group singleflight.Group

	mu    sync.Mutex
	cache map[string][]byte
}

// NewLoader creates a loader scaling images down to width pixels.
// imagePath and audioPath resolve a track's asset files; imagePath returns
// "" when the track has no image.
func NewLoader(width int, imagePath, audioPath func(track.Track) string) *Loader {
	return &Loader{
		width:     uint(width),
		imagePath: imagePath,
		audioPath: audioPath,
		cache:     make(map[string][]byte),
	}
}

// Load returns the track's artwork encoded as PNG. Failures are not
// cached, so artwork added later is picked up.
func (l *Loader) Load(t track.Track) ([]byte, error) {
	l.mu.Lock()
	data, ok := l.cache[t.ID]
	l.mu.Unlock()
	if ok {
		return data, nil
	}

	v, err, _ := l.group.Do(t.ID, func() (any, error) {
		data, err := l.load(t)
		if err != nil {
			return nil, err
		}
		l.mu.Lock()
		l.cache[t.ID] = data
		l.mu.Unlock()
		return data, nil
	})
	if err != nil {
		zlog.Debug().Msgf("artwork: %s: %v", t.ID, err)
		return nil, err
	}
	return v.([]byte), nil
}

func (l *Loader) load(t track.Track) ([]byte, error) {
	raw, err := l.readSource(t)
	if err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode artwork for %s", t.ID)
	}

	// Never upscale.
	if uint(img.Bounds().Dx()) > l.width {
		img = resize.Resize(l.width, 0, img, resize.Lanczos3)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Wrap(err, "failed to encode artwork")
	}
	return buf.Bytes(), nil
}

// readSource prefers the image file and falls back to the embedded picture.
func (l *Loader) readSource(t track.Track) ([]byte, error) {
	if path := l.imagePath(t); path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			return data, nil
		}
		zlog.Debug().Msgf("artwork: image file for %s unreadable: %v", t.ID, err)
	}

	f, err := os.Open(l.audioPath(t))
	if err != nil {
		return nil, ErrNoArtwork
	}
	defer f.Close()

	md, err := tag.ReadFrom(f)
	if err != nil {
		return nil, ErrNoArtwork
	}
	pic := md.Picture()
	if pic == nil || len(pic.Data) == 0 {
		return nil, ErrNoArtwork
	}
	return pic.Data, nil
}
