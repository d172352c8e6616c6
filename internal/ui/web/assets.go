package web

import (
	"embed"
	"io/fs"
	"mime"
	"path"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/html"
	"github.com/tdewolff/minify/v2/js"
)

//go:embed static
var staticFS embed.FS

// asset is one minified static file.
type asset struct {
	contentType string
	data        []byte
}

var minifierTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
}

// loadAssets minifies every embedded file. Files that fail to minify are
// served as written.
func loadAssets() (map[string]asset, error) {
	m := minify.New()
	m.AddFunc("text/html", html.Minify)
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("application/javascript", js.Minify)

	assets := make(map[string]asset)
	err := fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		raw, err := staticFS.ReadFile(p)
		if err != nil {
			return errors.Wrapf(err, "failed to read %s", p)
		}

		ext := path.Ext(p)
		data := raw
		if mediaType, ok := minifierTypes[ext]; ok {
			out, err := m.Bytes(mediaType, raw)
			if err != nil {
				zlog.Warn().Err(err).Msgf("web: minify %s failed, serving it unminified", p)
			} else {
				data = out
			}
		}

		contentType := mime.TypeByExtension(ext)
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		assets["/"+path.Base(p)] = asset{contentType: contentType, data: data}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load web assets")
	}
	return assets, nil
}
