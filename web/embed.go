// Package web holds the landing page templates and the browser submission script.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed templates/*.html static/*
var content embed.FS

// Templates parses every page template; names are the file base names.
func Templates() (*template.Template, error) {
	return template.ParseFS(content, "templates/*.html")
}

// Static is the static asset tree rooted at static/.
func Static() (fs.FS, error) {
	return fs.Sub(content, "static")
}
