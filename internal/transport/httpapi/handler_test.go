package httpapi

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/manager"
)

type fixedRenderer struct {
	outcome manager.RenderOutcome
}

func (f fixedRenderer) RenderFile(text, filePath string, isDirty bool, onBuild func(string)) manager.RenderOutcome {
	return f.outcome
}

func newTestHandler(t *testing.T, outcome manager.RenderOutcome, staticDir string) (*Handler, codechat.ClientID) {
	t.Helper()
	mgr := manager.New(fixedRenderer{outcome: outcome}, codechat.NewLogger())
	mgr.Start(1)
	t.Cleanup(mgr.Close)

	id, status := mgr.CreateClient(nil)
	if status != manager.CreateOK {
		t.Fatalf("CreateClient: %v", status)
	}
	queue, _ := mgr.GetQueue(id)
	mgr.StartRender("text", "x.md", id, false)
	// drain the three-event cycle so lastRender is populated.
	<-queue
	<-queue
	<-queue

	h := New(mgr, codechat.NewLogger(), staticDir, []byte("<html>viewer</html>"))
	return h, id
}

func TestHandleViewerRequiresID(t *testing.T) {
	h, _ := newTestHandler(t, manager.RenderOutcome{WasPerformed: true, RenderedFilePath: "x.md", HTML: "<p>hi</p>", HasHTML: true}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/client", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without an id, got %d", w.Code)
	}
}

func TestHandleClientPathHTMLHit(t *testing.T) {
	h, id := newTestHandler(t, manager.RenderOutcome{WasPerformed: true, RenderedFilePath: "x.md", HTML: "<p>hi</p>", HasHTML: true}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, fmtClientPath(id, "/x.md"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if w.Body.String() != "<p>hi</p>" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
	if got := w.Header().Get("Cache-Control"); got != "no-store, max-age=0" {
		t.Fatalf("expected no-store Cache-Control, got %q", got)
	}
}

func TestHandleClientPathNoMatch(t *testing.T) {
	h, id := newTestHandler(t, manager.RenderOutcome{WasPerformed: true, RenderedFilePath: "x.md", HTML: "<p>hi</p>", HasHTML: true}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, fmtClientPath(id, "/does-not-exist.md"), nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestHandleStaticServesFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bundle.js"), []byte("console.log(1)"), 0o644); err != nil {
		t.Fatal(err)
	}
	h, _ := newTestHandler(t, manager.RenderOutcome{WasPerformed: true, RenderedFilePath: "x.md", HTML: "<p>hi</p>", HasHTML: true}, dir)

	req := httptest.NewRequest(http.MethodGet, "/static/bundle.js", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if w.Body.String() != "console.log(1)" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}
}

func TestHandleStaticRejectsTraversal(t *testing.T) {
	h, _ := newTestHandler(t, manager.RenderOutcome{WasPerformed: true, RenderedFilePath: "x.md", HTML: "<p>hi</p>", HasHTML: true}, t.TempDir())

	req := httptest.NewRequest(http.MethodGet, "/static/../../etc/passwd", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest && w.Code != http.StatusNotFound {
		t.Fatalf("expected the traversal attempt to be rejected, got %d", w.Code)
	}
}

func fmtClientPath(id codechat.ClientID, path string) string {
	return "/client/" + strconv.FormatInt(int64(id), 10) + path
}
