// Package resources loads the console's HTML templates, either from the
// copies embedded in the binary or from a directory that is watched and
// reloaded on change.
package resources

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"os"
	"sync"
	"time"
)

//go:embed templates/*.html
var embeddedTemplates embed.FS

var funcs = template.FuncMap{
	"unix": func(sec int64) string {
		return time.Unix(sec, 0).UTC().Format(time.RFC1123)
	},
	"field": func(record map[string]any, key string) string {
		v, ok := record[key]
		if !ok || v == nil {
			return ""
		}
		return fmt.Sprint(v)
	},
}

type Templates struct {
	mu        sync.RWMutex
	templates *template.Template
	directory string
	done      chan struct{}
	closeOnce sync.Once
}

// NewEmbeddedTemplates serves the templates compiled into the binary.
func NewEmbeddedTemplates() (*Templates, error) {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return nil, err
	}
	tmpl, err := parse(sub)
	if err != nil {
		return nil, fmt.Errorf("failed to parse embedded templates: %v", err)
	}
	return &Templates{templates: tmpl, done: make(chan struct{})}, nil
}

// NewDynamicTemplates parses directory and reloads it whenever it changes.
// A reload that fails to parse keeps the last good set.
func NewDynamicTemplates(directory string) (*Templates, error) {
	tmpl, err := parse(os.DirFS(directory))
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates from '%s': %v", directory, err)
	}
	t := &Templates{
		templates: tmpl,
		directory: directory,
		done:      make(chan struct{}),
	}
	log.Printf("Loaded templates from %v\n", directory)

	if err := watchDir(directory, t.reload, t.done); err != nil {
		return nil, fmt.Errorf("failed to start template watcher: %v", err)
	}
	return t, nil
}

func (t *Templates) Render(w io.Writer, name string, data any) error {
	t.mu.RLock()
	tmpl := t.templates
	t.mu.RUnlock()

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return err
	}
	_, err := buf.WriteTo(w)
	return err
}

// Close stops the directory watcher, if any.
func (t *Templates) Close() {
	t.closeOnce.Do(func() { close(t.done) })
}

func (t *Templates) reload() {
	tmpl, err := parse(os.DirFS(t.directory))
	if err != nil {
		log.Printf("Failed to parse templates from '%s': %v", t.directory, err)
		return
	}

	t.mu.Lock()
	t.templates = tmpl
	t.mu.Unlock()
	log.Printf("Loaded templates from %v\n", t.directory)
}

func parse(fsys fs.FS) (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(fsys, "*.html")
}

// WriteDefaults copies the embedded templates into directory so they can be
// edited and served with [NewDynamicTemplates].
func WriteDefaults(directory string) error {
	entries, err := embeddedTemplates.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("read embedded templates: %w", err)
	}
	for _, entry := range entries {
		content, err := embeddedTemplates.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read %s: %w", entry.Name(), err)
		}
		if err := os.WriteFile(directory+string(os.PathSeparator)+entry.Name(), content, 0644); err != nil {
			return fmt.Errorf("write %s: %w", entry.Name(), err)
		}
	}
	return nil
}
