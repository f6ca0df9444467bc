// Package uistatic serves the single question page.
package uistatic

import (
	"bytes"
	_ "embed"
	"net/http"
	"time"
)

//go:embed app/index.html
var indexHTML []byte

var loadedAt = time.Now()

// Handler serves the page at "/" and answers 404 for every other path so
// that mistyped API routes are not masked by HTML.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, "index.html", loadedAt, bytes.NewReader(indexHTML))
	})
}
