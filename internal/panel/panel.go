package panel

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
)

//go:embed web/*
var content embed.FS

// indexFile is served for "/" and for any path that is not an asset.
const indexFile = "index.html"

// Handler returns an http.Handler for the console, mounted at prefix.
//
// When dir names an existing directory, files are read from it on every
// request. Otherwise the embedded copy is used. Unknown paths serve
// index.html. Panics if the embedded assets are missing (build error).
func Handler(prefix, dir string) http.Handler {
	fsys := assets(dir)
	fileServer := http.StripPrefix(strings.TrimSuffix(prefix, "/"), http.FileServer(http.FS(fsys)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache, must-revalidate")

		name := strings.TrimPrefix(path.Clean("/"+strings.TrimPrefix(r.URL.Path, prefix)), "/")
		if name == "" || name == "." {
			fileServer.ServeHTTP(w, r)
			return
		}
		if _, err := fs.Stat(fsys, name); err != nil {
			serveIndex(w, r, fsys)
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}

func assets(dir string) fs.FS {
	if dir != "" {
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return os.DirFS(dir)
		}
	}
	webFS, err := fs.Sub(content, "web")
	if err != nil {
		panic(fmt.Sprintf("panel: failed to load embedded web assets: %v", err))
	}
	return webFS
}

func serveIndex(w http.ResponseWriter, r *http.Request, fsys fs.FS) {
	data, err := fs.ReadFile(fsys, indexFile)
	if err != nil {
		http.Error(w, "console not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = w.Write(data)
	}
}
