package panel

import (
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHandler_Embedded(t *testing.T) {
	h := Handler("/panel", "")

	tests := []struct {
		path string
		want string
	}{
		{"/panel/", "<!DOCTYPE html>"},
		{"/panel/console.js", "/api/v1/ws?channels=*"},
		{"/panel/console.css", "font-family"},
		{"/panel/runs/42", "<!DOCTYPE html>"},
		{"/panel/missing.js", "Cinnamon Console"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := get(t, h, tt.path)
			if w.Code != http.StatusOK {
				t.Fatalf("GET %s: status %d, want 200", tt.path, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.want) {
				t.Errorf("GET %s: body does not contain %q", tt.path, tt.want)
			}
			if cc := w.Header().Get("Cache-Control"); cc != "no-cache, must-revalidate" {
				t.Errorf("Cache-Control = %q", cc)
			}
		})
	}
}

func TestHandler_FilesystemMode(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "index.html"), []byte(`<!DOCTYPE html><p>dev console</p>`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "dev.js"), []byte("console.log('dev')"), 0o644); err != nil {
		t.Fatal(err)
	}

	h := Handler("/panel", dir)

	if w := get(t, h, "/panel/"); !strings.Contains(w.Body.String(), "dev console") {
		t.Errorf("root: %q", w.Body.String())
	}
	if w := get(t, h, "/panel/dev.js"); w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "'dev'") {
		t.Errorf("asset: %d %q", w.Code, w.Body.String())
	}
	if w := get(t, h, "/panel/deep/route"); !strings.Contains(w.Body.String(), "dev console") {
		t.Error("fallback did not serve filesystem index.html")
	}
}

func TestHandler_InvalidDirFallsBackToEmbed(t *testing.T) {
	h := Handler("/panel", "/nonexistent/dir/that/does/not/exist")
	w := get(t, h, "/panel/")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "Cinnamon Console") {
		t.Errorf("invalid dir: status %d, embedded index not served", w.Code)
	}
}

func TestHandler_NoIndex(t *testing.T) {
	h := Handler("/panel", t.TempDir())
	if w := get(t, h, "/panel/anything"); w.Code != http.StatusNotFound {
		t.Errorf("empty dir fallback status = %d, want 404", w.Code)
	}
}
