// Package web embute a página única do chat
package web

import (
	_ "embed"
	"html/template"
	"io"
)

//go:embed static/index.html
var indexHTML string

var indexTmpl = template.Must(template.New("index").Parse(indexHTML))

// Page são os dados injetados na página
type Page struct {
	Title       string
	Placeholder string
	SessionID   string
}

// DefaultPage retorna os textos padrão da interface
func DefaultPage() Page {
	return Page{
		Title:       "MovieRecs AI",
		Placeholder: "Enter a number or movie details...",
	}
}

// Render escreve a página em w
func Render(w io.Writer, p Page) error {
	return indexTmpl.Execute(w, p)
}
