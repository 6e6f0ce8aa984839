// Package views holds the server-rendered pages of the board.
package views

import (
	"embed"
	"html/template"
	"strings"

	"github.com/cppla/anonbbs/attachments"
)

//go:embed templates/*.html
var files embed.FS

// FuncMap exposes the helpers used by the page templates.
func FuncMap() template.FuncMap {
	return template.FuncMap{
		// Post bodies are sanitised before they are stored.
		"safe": func(s string) template.HTML { return template.HTML(s) },
		"mediaKind": func(stored string) string {
			return string(attachments.KindOf(stored))
		},
		"mediaURL": func(stored string) string {
			return "/" + strings.TrimLeft(stored, "/")
		},
		"mediaType": attachments.ContentType,
	}
}

// Templates parses the embedded page templates.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(FuncMap()).ParseFS(files, "templates/*.html")
}

// MustTemplates is Templates for use at startup.
func MustTemplates() *template.Template {
	return template.Must(Templates())
}
