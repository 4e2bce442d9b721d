package hatch

import (
	"embed"
	"io/fs"
)

//go:embed theme/*.html theme/static/*.css
var embeddedTheme embed.FS

// StarterTheme exposes the built-in templates (base, index, single) and their
// static assets under static/. The CLI falls back to it when the configured
// templates directory does not exist.
//
// Typical mount:
//
//	mux.Handle("/static/",
//	  http.FileServerFS(hatch.StarterTheme()),
//	)
func StarterTheme() fs.FS {
	sub, err := fs.Sub(embeddedTheme, "theme")
	if err != nil {
		return embeddedTheme
	}
	return sub
}
