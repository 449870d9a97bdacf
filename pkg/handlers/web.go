package handlers

import (
	"net/http"
	"path/filepath"
)

// IndexHandler serves the single page UI
func (h *Handlers) IndexHandler(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(h.StaticDir, "index.html"))
}
