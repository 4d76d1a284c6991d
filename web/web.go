// Package web embeds the single page served at / and its static assets.
package web

import (
	"embed"
	"html/template"
	"io/fs"
)

//go:embed index.html.tmpl
var indexSource string

//go:embed static
var assets embed.FS

// PageData is rendered into the page.
type PageData struct {
	Title     string
	RootName  string
	ViewerURL string
	SessionID string
	Watch     bool
	Write     bool
	UploadURL string
}

// IndexTemplate parses the page template.
func IndexTemplate() (*template.Template, error) {
	return template.New("index").Parse(indexSource)
}

// Static returns the files served below /static.
func Static() fs.FS {
	sub, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	return sub
}
