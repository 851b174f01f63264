package controllers

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go-giftshop/middleware"
)

// AdminPages serves the back-office single-page app from dir. Paths that are
// not files fall back to index.html so client-side routes resolve.
func AdminPages(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return http.StripPrefix(middleware.AdminPrefix, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dir == "" {
			http.NotFound(w, r)
			return
		}

		name := path.Clean("/" + r.URL.Path)
		if name != "/" && !strings.HasSuffix(name, "/") {
			if info, err := os.Stat(filepath.Join(dir, filepath.FromSlash(name))); err == nil && !info.IsDir() {
				files.ServeHTTP(w, r)
				return
			}
		}

		http.ServeFile(w, r, index)
	}))
}
