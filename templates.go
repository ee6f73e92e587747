package oneblog

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"path"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticFiles serves the embedded js and css assets
func StaticFiles() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// Templates holds one parsed template set per page, each sharing layout.html
type Templates struct {
	pages map[string]*template.Template
}

var templateFuncs = template.FuncMap{
	"formatTime": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

// LoadTemplates parses every page under templates/ together with the layout
func LoadTemplates() (*Templates, error) {
	names, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	out := &Templates{pages: make(map[string]*template.Template)}
	for _, name := range names {
		page := path.Base(name)
		if page == "layout.html" {
			continue
		}
		t, err := template.New(page).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		out.pages[page] = t
	}
	return out, nil
}

func (t *Templates) Render(w http.ResponseWriter, r *http.Request, page string, data any) {
	t.RenderStatus(w, r, http.StatusOK, page, data)
}

// RenderStatus executes page into a buffer first so template errors turn into a clean 500
func (t *Templates) RenderStatus(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	tmpl, ok := t.pages[page]
	if !ok {
		slog.ErrorContext(r.Context(), "unknown template", "page", page)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		slog.ErrorContext(r.Context(), "error rendering template", "page", page, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
