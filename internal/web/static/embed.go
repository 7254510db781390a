// Package static embeds the kiosk page.
package static

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

func dist() fs.FS {
	sub, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves the kiosk page and its assets. Unknown paths get the page
// itself so that reloading a deep link still works.
func Handler() http.Handler {
	files := dist()
	server := http.FileServerFS(files)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name != "" {
			if _, err := fs.Stat(files, name); err != nil {
				r = r.Clone(r.Context())
				r.URL.Path = "/"
			}
		}
		server.ServeHTTP(w, r)
	})
}
