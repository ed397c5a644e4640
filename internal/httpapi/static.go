package httpapi

import (
	"embed"
	"io/fs"
	"net/http"
)

// Overlay page for an OBS browser source. Served with no-cache.
//
//go:embed static/index.html static/app.js static/style.css
var overlayAssets embed.FS

func newStaticHandler() http.Handler {
	sub, err := fs.Sub(overlayAssets, "static")
	if err != nil {
		return http.NotFoundHandler()
	}
	files := http.FileServer(http.FS(sub))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
