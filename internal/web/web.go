// Package web embeds the browser upload page.
package web

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
)

//go:embed templates/index.html
var templateFiles embed.FS

//go:embed static
var staticFiles embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFiles, "templates/index.html"))

// PageData is rendered into the upload page.
type PageData struct {
	// Endpoint is the URL the page posts documents to
	Endpoint string
}

// RenderIndex writes the upload page.
func RenderIndex(w io.Writer, data PageData) error {
	return indexTemplate.Execute(w, data)
}

// Assets returns the static files rooted at static/.
func Assets() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err) // static is embedded above; Sub cannot fail
	}
	return sub
}
