// Package templates implements interfaces.TemplateRenderer on top of
// html/template. Templates are loaded from an fs.FS and addressed by their
// slash separated path relative to the root, e.g. "post.html" or
// "partials/nav.html".
package templates

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"maps"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-freeze/pkg/interfaces"
)

var (
	// ErrTemplateNotFound is returned when a render names an unknown template.
	ErrTemplateNotFound = errors.New("templates: template not found")
	// ErrNoTemplates is returned when the template root holds no templates.
	ErrNoTemplates = errors.New("templates: no templates found")
	// ErrInvalidFilter is returned for a filter without a name or function.
	ErrInvalidFilter = errors.New("templates: invalid filter")
)

// DefaultExtensions selects the files parsed as templates.
var DefaultExtensions = []string{".html", ".tmpl"}

// Options configures a Renderer.
type Options struct {
	// Extensions overrides DefaultExtensions.
	Extensions []string
}

// Renderer renders html/template templates read from a file system.
// Filters may be registered at any time; registering a filter discards the
// parsed set so the next render picks it up.
type Renderer struct {
	fsys       fs.FS
	extensions []string

	mu      sync.RWMutex
	filters map[string]func(any, any) (any, error)
	globals map[string]any
	tpl     *template.Template
}

var _ interfaces.TemplateRenderer = (*Renderer)(nil)

// NewRenderer returns a renderer over fsys. Templates are parsed on first use.
func NewRenderer(fsys fs.FS, opts Options) *Renderer {
	extensions := opts.Extensions
	if len(extensions) == 0 {
		extensions = DefaultExtensions
	}
	normalized := make([]string, 0, len(extensions))
	for _, ext := range extensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return &Renderer{
		fsys:       fsys,
		extensions: normalized,
		filters:    map[string]func(any, any) (any, error){},
		globals:    map[string]any{},
	}
}

// RegisterFilter exposes fn to templates as a function of two arguments.
func (r *Renderer) RegisterFilter(name string, fn func(input any, param any) (any, error)) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return fmt.Errorf("%w: %q", ErrInvalidFilter, name)
	}
	r.mu.Lock()
	r.filters[name] = fn
	r.tpl = nil
	r.mu.Unlock()
	return nil
}

// GlobalContext merges data into the values returned by the "global"
// template function. data must be a map[string]any. Like RegisterFilter it
// discards the parsed set.
func (r *Renderer) GlobalContext(data any) error {
	values, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("templates: global context must be map[string]any, got %T", data)
	}
	r.mu.Lock()
	maps.Copy(r.globals, values)
	r.tpl = nil
	r.mu.Unlock()
	return nil
}

// Render is an alias of RenderTemplate.
func (r *Renderer) Render(name string, data any, out ...io.Writer) (string, error) {
	return r.RenderTemplate(name, data, out...)
}

// RenderTemplate executes the named template. When out is given the output
// is written there and the returned string is empty.
func (r *Renderer) RenderTemplate(name string, data any, out ...io.Writer) (string, error) {
	tpl, err := r.templates()
	if err != nil {
		return "", err
	}
	if tpl.Lookup(name) == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	return execute(out, func(w io.Writer) error {
		return tpl.ExecuteTemplate(w, name, data)
	})
}

// RenderString parses and executes an inline template with the registered
// functions available.
func (r *Renderer) RenderString(content string, data any, out ...io.Writer) (string, error) {
	tpl, err := template.New("inline").Funcs(r.funcs()).Parse(content)
	if err != nil {
		return "", fmt.Errorf("templates: parse inline: %w", err)
	}
	return execute(out, func(w io.Writer) error {
		return tpl.Execute(w, data)
	})
}

// Names lists the parsed template names in lexical order.
func (r *Renderer) Names() ([]string, error) {
	tpl, err := r.templates()
	if err != nil {
		return nil, err
	}
	var names []string
	for _, t := range tpl.Templates() {
		if t.Tree != nil {
			names = append(names, t.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Renderer) templates() (*template.Template, error) {
	r.mu.RLock()
	tpl := r.tpl
	r.mu.RUnlock()
	if tpl != nil {
		return tpl, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tpl != nil {
		return r.tpl, nil
	}
	parsed, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.tpl = parsed
	return parsed, nil
}

// parse must be called with the write lock held.
func (r *Renderer) parse() (*template.Template, error) {
	if r.fsys == nil {
		return nil, ErrNoTemplates
	}
	var files []string
	err := fs.WalkDir(r.fsys, ".", func(name string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if r.matches(name) {
			files = append(files, name)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("templates: walk: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoTemplates
	}
	sort.Strings(files)

	root := template.New("freeze").Funcs(r.funcsLocked())
	for _, name := range files {
		content, err := fs.ReadFile(r.fsys, name)
		if err != nil {
			return nil, fmt.Errorf("templates: read %s: %w", name, err)
		}
		if _, err := root.New(name).Parse(string(content)); err != nil {
			return nil, fmt.Errorf("templates: parse %s: %w", name, err)
		}
	}
	return root, nil
}

func (r *Renderer) matches(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	for _, candidate := range r.extensions {
		if ext == candidate {
			return true
		}
	}
	return false
}

func (r *Renderer) funcs() template.FuncMap {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.funcsLocked()
}

func (r *Renderer) funcsLocked() template.FuncMap {
	globals := maps.Clone(r.globals)
	funcs := template.FuncMap{
		"safeHTML": toHTML,
		"global": func(key string) any {
			return globals[key]
		},
	}
	for name, fn := range r.filters {
		funcs[name] = fn
	}
	return funcs
}

func execute(out []io.Writer, run func(io.Writer) error) (string, error) {
	if len(out) > 0 && out[0] != nil {
		return "", run(out[0])
	}
	var buf bytes.Buffer
	if err := run(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func toHTML(value any) template.HTML {
	switch v := value.(type) {
	case nil:
		return ""
	case template.HTML:
		return v
	case string:
		return template.HTML(v)
	case []byte:
		return template.HTML(v)
	default:
		return template.HTML(fmt.Sprint(v))
	}
}
