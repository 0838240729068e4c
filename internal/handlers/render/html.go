package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
)

const (
	PageIndex  = "index.html"
	PageResult = "result.html"
)

//go:embed templates/*.html
var templates embed.FS

// Pages holds parsed HTML templates
type Pages struct {
	tmpl *template.Template
}

func NewPages() (*Pages, error) {
	tmpl, err := template.ParseFS(templates, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error while parsing templates. Err: %w", err)
	}

	return &Pages{tmpl: tmpl}, nil
}

// HTML renders page with data and enforces status code
// Page is rendered into buffer first, so a template error never leaves a half-written response
func (p *Pages) HTML(w http.ResponseWriter, page string, data any, code int) {
	buf := &bytes.Buffer{}

	if err := p.tmpl.ExecuteTemplate(buf, page, data); err != nil {
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(buf.Bytes())
}
