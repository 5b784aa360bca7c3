// Package webui embeds the browser chat page served by "ovchat serve".
package webui

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*
var staticFS embed.FS

// StaticFS returns the embedded page and its assets rooted at static/.
func StaticFS() http.FileSystem {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FS(sub)
}

// Handler serves StaticFS; "/" resolves to index.html.
func Handler() http.Handler {
	return http.FileServer(StaticFS())
}
