package api

import (
	_ "embed"
	"net/http"
)

//go:embed static/dashboard.html
var dashboardPage []byte

// HandleDashboard handles GET /dashboard requests.
// The page is a shell; it signs in and calls the page endpoints itself.
func HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if r.Method == http.MethodHead {
		return
	}
	_, _ = w.Write(dashboardPage)
}
