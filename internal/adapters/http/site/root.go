// Package site serves the precomputed chart assets and the root redirect.
package site

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"strings"
)

// Error constants
var (
	ErrNoAssets = errors.New("assets directory not found")
)

// Middleware wraps a handler, typically with a session check.
type Middleware func(http.HandlerFunc) http.HandlerFunc

// Register attaches the asset routes to mux. assets may be nil, in which
// case every asset answers 404. wrap may be nil.
func Register(_ context.Context, mux *http.ServeMux, assets fs.FS, wrap Middleware) {
	if mux == nil {
		panic("mux is nil")
	}
	if wrap == nil {
		wrap = func(h http.HandlerFunc) http.HandlerFunc { return h }
	}

	mux.HandleFunc("/assets/", wrap(NewAssetsHandler(assets).HandleAsset))
	mux.HandleFunc("/", NewRootHandler().HandleRoot)
}

// FS opens dir as the asset file system.
func FS(dir string) (fs.FS, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, errors.Join(ErrNoAssets, err)
	}
	return os.DirFS(dir), nil
}

// AssetsHandler serves chart images by file name.
type AssetsHandler struct {
	files http.Handler
}

// NewAssetsHandler creates a new assets handler.
func NewAssetsHandler(assets fs.FS) *AssetsHandler {
	h := &AssetsHandler{}
	if assets != nil {
		h.files = http.StripPrefix("/assets/", http.FileServer(http.FS(assets)))
	}
	return h
}

// HandleAsset handles GET /assets/{file}. Directory listings are not served.
func (h *AssetsHandler) HandleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	if h.files == nil || strings.HasSuffix(r.URL.Path, "/") {
		http.NotFound(w, r)
		return
	}
	h.files.ServeHTTP(w, r)
}

// RootHandler handles root path requests
type RootHandler struct{}

// NewRootHandler creates a new root handler
func NewRootHandler() *RootHandler {
	return &RootHandler{}
}

// HandleRoot sends / to the dashboard and answers 404 for anything else
// that no other route claimed.
func (h *RootHandler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.Redirect(w, r, "/dashboard", http.StatusFound)
}
