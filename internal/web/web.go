// Package web holds the server rendered pages.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"time"
)

//go:embed templates/*.html
var files embed.FS

var funcs = template.FuncMap{
	"credits": func(n int) string {
		if n == 1 {
			return "1 credit"
		}
		return fmt.Sprintf("%d credits", n)
	},
	"ago": func(t time.Time) string {
		return t.UTC().Format("2006-01-02 15:04")
	},
}

// Templates parses every page together with the shared layout.
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(files, "templates/*.html")
}
