package view

import (
	"embed"
	"html/template"
	"io"
	"io/fs"
	"path"
	"strings"
	"time"

	"github.com/pkg/errors"
)

const placeholderSrc = "/static/placeholder.svg"

var (
	//go:embed templates
	templateFS embed.FS

	//go:embed static
	staticFS embed.FS

	ErrUnknownTemplate = errors.New("unknown template")
)

// Status is the inline message shown next to a form.
type Status struct {
	Error   bool
	Message string
}

// Page is the data every full page is rendered with.
type Page struct {
	AppName string
	Title   string
	State   string // anonymous | student | admin
	CSRF    string
	Status  *Status
	Content interface{}
}

func Success(msg string) *Status { return &Status{Message: msg} }
func Failure(msg string) *Status { return &Status{Error: true, Message: msg} }

// StaticFS holds the placeholder image and the viewer script, rooted at "static".
func StaticFS() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

// Renderer executes the embedded templates. Pages are rendered inside the layout;
// fragments (partials) are rendered on their own.
type Renderer struct {
	pages     map[string]*template.Template
	fragments *template.Template
}

var funcs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02 15:04") },
}

func NewRenderer() (*Renderer, error) {
	base, err := template.New("base").Funcs(funcs).ParseFS(templateFS, "templates/layout.gohtml", "templates/partials/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "parsing layout")
	}

	fps, err := fs.Glob(templateFS, "templates/pages/*.gohtml")
	if err != nil {
		return nil, errors.Wrap(err, "globbing pages")
	}
	pages := make(map[string]*template.Template, len(fps))
	for _, fp := range fps {
		tmpl, err := base.Clone()
		if err != nil {
			return nil, errors.Wrap(err, "cloning layout")
		}
		if tmpl, err = tmpl.ParseFS(templateFS, fp); err != nil {
			return nil, errors.Wrap(err, fp)
		}
		pages[strings.TrimSuffix(path.Base(fp), ".gohtml")] = tmpl
	}
	return &Renderer{pages: pages, fragments: base}, nil
}

// Render writes the page or fragment called name.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	if tmpl, ok := r.pages[name]; ok {
		return tmpl.ExecuteTemplate(w, "layout", data)
	}
	if tmpl := r.fragments.Lookup(name); tmpl != nil {
		return tmpl.Execute(w, data)
	}
	return errors.Wrap(ErrUnknownTemplate, name)
}
