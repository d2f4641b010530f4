package server

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
)

// handleStatic serves the scoreboard front-end from root. Paths that do
// not name a file fall back to index.html so client-side routes resolve.
func handleStatic(root fs.FS) http.HandlerFunc {
	fileServer := http.FileServerFS(root)

	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/")
		if name != "" {
			info, err := fs.Stat(root, name)
			if err == nil && !info.IsDir() {
				fileServer.ServeHTTP(w, r)
				return
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				writeError(w, http.StatusInternalServerError, "internal error")
				return
			}
		}

		http.ServeFileFS(w, r, root, "index.html")
	}
}
