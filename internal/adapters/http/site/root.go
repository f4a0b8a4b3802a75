// Package site serves the embedded landing pages.
package site

import (
	"context"
	"net/http"
)

// Register attaches the landing page and its static pages at /.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.Handle("/", http.FileServer(FS()))
}
