// Package web renders the server-side HTML pages from embedded templates.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/frahmantamala/asset-management/internal"
	"github.com/frahmantamala/asset-management/internal/session"
	"github.com/frahmantamala/asset-management/internal/transport/forms"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page is the data every template receives.
type Page struct {
	Title   string
	Segment string
	Status  int
	User    *internal.User
	Tenant  *internal.Tenant
	Flashes []session.Flash
	Form    *forms.Form
	Table   *Table
	Message string
	Data    interface{}
}

// Can is used by templates to hide controls the user may not use.
func (p *Page) Can(codename string) bool {
	return p.User.HasPermission(codename)
}

func (p *Page) LocalTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	loc := time.UTC
	if p.Tenant != nil && p.Tenant.Location != nil {
		loc = p.Tenant.Location
	}
	return t.In(loc).Format("Jan 2, 2006, 3:04 PM")
}

func (p *Page) SiteName() string {
	if p.Tenant != nil && p.Tenant.Site != nil {
		return p.Tenant.Site.Name
	}
	return ""
}

func (p *Page) ThemeColor() string {
	if p.Tenant != nil && p.Tenant.Settings != nil && p.Tenant.Settings.Color != "" {
		return p.Tenant.Settings.Color
	}
	return "#15a362"
}

func (p *Page) ShowUserBar() bool {
	return p.User != nil && (p.Tenant == nil || p.Tenant.Settings == nil || p.Tenant.Settings.UserBar)
}

// Link is the Data of message pages that point somewhere next.
type Link struct {
	LinkURL  string
	LinkText string
}

type Table struct {
	Columns   []string
	Rows      []Row
	CreateURL string
	CanAdd    bool
	CanChange bool
	CanDelete bool
}

type Row struct {
	Cells     []string
	EditURL   string
	DeleteURL string
}

type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	return newRenderer(templateFS)
}

func newRenderer(fsys fs.FS) (*Renderer, error) {
	files, err := fs.Glob(fsys, "templates/*.html")
	if err != nil {
		return nil, err
	}
	funcs := template.FuncMap{
		"join":  strings.Join,
		"lower": strings.ToLower,
	}
	pages := make(map[string]*template.Template)
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".html")
		tmpl, err := template.New("layout.html").Funcs(funcs).ParseFS(fsys, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages}, nil
}

// Render executes the named page into a buffer first so a template error
// never leaves a half-written response.
func (r *Renderer) Render(w io.Writer, name string, page *Page) error {
	tmpl, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %q not found", name)
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout.html", page); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}
