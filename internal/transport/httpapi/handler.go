// Package httpapi implements the HTTP surface of §4.6: serving the viewer
// page, rendered HTML or on-disk artifacts by (client id, path), bundled
// static assets, and the insecure-mode warning page.
package httpapi

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/manager"
	"codechat.dev/server/router"
)

// Handler wires the chi-based router used throughout this codebase to the
// RenderManager and the bundled viewer assets.
type Handler struct {
	mgr        *manager.RenderManager
	log        *codechat.Logger
	staticDir  string // directory holding the esbuild-bundled viewer assets
	viewerHTML []byte
	router     *router.Router
}

// New builds the HTTP handler. staticDir is the directory containing the
// bundled viewer JS (internal/bundler's output); viewerHTML is the viewer
// page template served at GET /client.
func New(mgr *manager.RenderManager, log *codechat.Logger, staticDir string, viewerHTML []byte) *Handler {
	h := &Handler{mgr: mgr, log: log, staticDir: staticDir, viewerHTML: viewerHTML, router: router.New()}
	h.router.Use(codechat.Recovery(log))
	h.router.Use(codechat.AccessLog(log))
	h.router.Use(codechat.NoStore)

	h.router.Get("/client", h.handleViewer)
	h.router.Get("/client/{id}/*", h.handleClientPath)
	h.router.Get("/static/*", h.handleStatic)
	h.router.Get("/insecure", h.handleInsecureWarning)
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// handleViewer serves the viewer page for GET /client?id=<n>.
func (h *Handler) handleViewer(w http.ResponseWriter, r *http.Request) {
	if _, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64); err != nil {
		http.Error(w, "missing or invalid id query parameter", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(h.viewerHTML)
}

// handleClientPath implements §4.6: ask the manager for the client's
// render results keyed by (id, normalized path); on an HTML hit serve it
// inline, on an on-disk match serve the file, otherwise fall through to the
// filesystem path verbatim, 404 on failure.
func (h *Handler) handleClientPath(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}
	path := "/" + r.PathValue("*")

	result := h.mgr.GetRenderResults(codechat.ClientID(id), path)
	switch result.Kind {
	case manager.RenderResultHTML:
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(result.HTML))
		return
	case manager.RenderResultDiskPath:
		http.ServeFile(w, r, result.DiskPath)
		return
	}

	// No manager-tracked render for this path; try it as a static asset
	// relative to the request path itself.
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		http.ServeFile(w, r, path)
		return
	}
	http.NotFound(w, r)
}

// handleStatic serves the esbuild-bundled viewer assets from staticDir.
func (h *Handler) handleStatic(w http.ResponseWriter, r *http.Request) {
	rel := r.PathValue("*")
	if strings.Contains(rel, "..") {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}
	http.ServeFile(w, r, h.staticDir+"/"+rel)
}

// handleInsecureWarning serves a plain warning page reminding the operator
// that insecure mode binds to 0.0.0.0.
func (h *Handler) handleInsecureWarning(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(`<html><body><h1>CodeChat is running in insecure mode</h1>` +
		`<p>This instance is bound to 0.0.0.0 and reachable from other hosts on your network.</p></body></html>`))
}
