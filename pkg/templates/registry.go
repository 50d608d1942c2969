package templates

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"slices"
	"strings"
	"sync"
	"text/template"

	"calendarbot/pkg/errors"
)

//go:embed assets/**/*.tmpl
var assets embed.FS

const ext = ".tmpl"

// Registry is an immutable set of message, prompt and report templates.
// A template's ID is its slash path without the .tmpl suffix
// ("notifications/weekly_intro"). All templates share one namespace, so a
// template may include another with {{template "ops/status" .}}.
type Registry struct {
	set *template.Template
	ids []string
}

var embedded = sync.OnceValues(func() (*Registry, error) {
	sub, err := fs.Sub(assets, "assets")
	if err != nil {
		return nil, errors.Wrap(err, "open embedded templates")
	}
	return Load(sub)
})

// Get returns the registry built from the templates compiled into the
// binary. A broken embedded template is a build defect, so Get panics.
func Get() *Registry {
	r, err := embedded()
	if err != nil {
		panic(err)
	}
	return r
}

// NewRegistry loads every .tmpl file under dir.
func NewRegistry(dir string) (*Registry, error) {
	return Load(os.DirFS(dir))
}

// Load parses every .tmpl file in fsys. Parse failures wrap ErrConfig and
// name the offending template.
func Load(fsys fs.FS) (*Registry, error) {
	r := &Registry{set: template.New("").Funcs(FuncMap())}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || path.Ext(p) != ext {
			return err
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return errors.Wrapf(err, "read template %s", p)
		}
		id := strings.TrimSuffix(p, ext)
		if _, err := r.set.New(id).Parse(string(body)); err != nil {
			return errors.Wrapf(errors.ErrConfig, "parse template %s: %v", id, err)
		}
		r.ids = append(r.ids, id)
		return nil
	})
	if err != nil {
		return nil, err
	}

	slices.Sort(r.ids)
	return r, nil
}

// Has reports whether id names a loaded template.
func (r *Registry) Has(id string) bool {
	_, ok := slices.BinarySearch(r.ids, id)
	return ok
}

// List returns the sorted template IDs.
func (r *Registry) List() []string {
	return slices.Clone(r.ids)
}

// Render executes template id against data. Trailing newlines, which
// template files normally end with, are trimmed so the output can be
// concatenated into Telegram messages directly.
func (r *Registry) Render(id string, data any) (string, error) {
	if !r.Has(id) {
		return "", errors.Wrapf(errors.ErrNotFound, "template %s", id)
	}

	var b strings.Builder
	if err := r.set.ExecuteTemplate(&b, id, data); err != nil {
		return "", errors.Wrapf(errors.ErrInternal, "render template %s: %v", id, err)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}
