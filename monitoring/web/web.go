// Package web holds the page served by the cache monitor.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
)

//go:embed dist/*
var dist embed.FS

// AssetDirEnv names a directory to serve instead of the embedded page. It
// lets the page be edited without rebuilding the binary.
const AssetDirEnv = "CACHESIM_MONITOR_ASSETS"

// Assets returns the files of the monitoring page.
func Assets() http.FileSystem {
	if dir := os.Getenv(AssetDirEnv); dir != "" {
		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

// Handler serves the monitoring page. Responses are marked no-cache so a
// reload picks up the page of a newer binary.
func Handler() http.Handler {
	files := http.FileServer(Assets())

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-cache")
		files.ServeHTTP(w, r)
	})
}
