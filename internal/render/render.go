// Package render applies handlebars layouts to pipeline items.
package render

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/sitebuilder/internal/metadata"
)

// ErrLayoutNotFound is returned when an item names a layout that does not exist.
var ErrLayoutNotFound = errors.New("layout not found")

// partialPattern selects partial templates below the partials directory.
const partialPattern = "**/*.{hbs,handlebars,html}"

// Renderer applies a named layout to a template context.
type Renderer interface {
	Render(layout string, ctx map[string]any) ([]byte, error)
}

// Options configures a HandlebarsRenderer.
type Options struct {
	TemplatesDir  string
	PartialsDir   string
	DocsBaseURL   string
	ChangelogsURL string
	// Translations backs the i18n helper.
	Translations *metadata.Document
}

// HandlebarsRenderer renders layouts from TemplatesDir. Layouts are parsed on
// first use and cached for the renderer's lifetime, which is one build pass.
type HandlebarsRenderer struct {
	opts     Options
	partials map[string]string
	helpers  map[string]any

	mu      sync.Mutex
	layouts map[string]*raymond.Template
}

// NewRenderer loads every partial and prepares the helper set.
func NewRenderer(opts Options) (*HandlebarsRenderer, error) {
	partials, err := loadPartials(opts.PartialsDir)
	if err != nil {
		return nil, err
	}
	return &HandlebarsRenderer{
		opts:     opts,
		partials: partials,
		helpers:  helpers(opts.Translations, opts),
		layouts:  make(map[string]*raymond.Template),
	}, nil
}

// loadPartials maps each partial's base name (without extension) to its
// source. A missing directory yields no partials.
func loadPartials(dir string) (map[string]string, error) {
	partials := make(map[string]string)
	if dir == "" {
		return partials, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		return partials, nil
	}
	matches, err := doublestar.Glob(os.DirFS(dir), partialPattern)
	if err != nil {
		return nil, fmt.Errorf("list partials in %s: %w", dir, err)
	}
	for _, m := range matches {
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(m)))
		if err != nil {
			return nil, fmt.Errorf("read partial %s: %w", m, err)
		}
		base := path.Base(m)
		partials[strings.TrimSuffix(base, path.Ext(base))] = string(data)
	}
	return partials, nil
}

// Render executes layout with ctx.
func (r *HandlebarsRenderer) Render(layout string, ctx map[string]any) ([]byte, error) {
	tpl, err := r.layout(layout)
	if err != nil {
		return nil, err
	}
	out, err := tpl.Exec(ctx)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", layout, err)
	}
	return []byte(out), nil
}

func (r *HandlebarsRenderer) layout(name string) (*raymond.Template, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tpl, ok := r.layouts[name]; ok {
		return tpl, nil
	}

	file, err := r.findLayout(name)
	if err != nil {
		return nil, err
	}
	src, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read layout %s: %w", name, err)
	}
	tpl, err := raymond.Parse(string(src))
	if err != nil {
		return nil, fmt.Errorf("parse layout %s: %w", name, err)
	}
	tpl.RegisterHelpers(r.helpers)
	tpl.RegisterPartials(r.partials)

	r.layouts[name] = tpl
	return tpl, nil
}

// findLayout resolves name below the templates directory, adding the .hbs
// extension when name has none.
func (r *HandlebarsRenderer) findLayout(name string) (string, error) {
	candidates := []string{name}
	if filepath.Ext(name) == "" {
		candidates = append(candidates, name+".hbs")
	}
	for _, c := range candidates {
		p := filepath.Join(r.opts.TemplatesDir, filepath.FromSlash(c))
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrLayoutNotFound, name)
}

// TitleFromName derives a display title from a file base name, for pages
// without a title in their front matter.
func TitleFromName(base string) string {
	words := strings.FieldsFunc(base, func(r rune) bool { return r == '-' || r == '_' })
	return cases.Title(language.English).String(strings.Join(words, " "))
}
