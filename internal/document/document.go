// Package document loads source files (PDF, Markdown) into page-addressed plain text.
package document

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"
)

// Page is the extracted text of one page. Number starts at 1.
type Page struct {
	Number int
	Text   string
}

// Document is a loaded source file.
type Document struct {
	// Source is the path the document was loaded from.
	Source string
	// Filename is the base name; it is the ledger key.
	Filename string
	Pages    []Page
	// Metadata describes the document as a whole (file type, title, page count...).
	Metadata map[string]any
}

// pageSeparator joins consecutive pages in Text so words at a page break stay apart.
const pageSeparator = "\n"

// Text returns the page texts in order, joined by a newline.
func (d *Document) Text() string {
	var b strings.Builder
	for i, p := range d.Pages {
		if i > 0 {
			b.WriteString(pageSeparator)
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// PageAt returns the page number that contains the rune at offset in Text().
// The separator after a page belongs to that page. Offsets past the end map
// to the last page. Returns 0 for a document without pages.
func (d *Document) PageAt(offset int) int {
	if len(d.Pages) == 0 {
		return 0
	}
	pos := 0
	for _, p := range d.Pages {
		pos += utf8.RuneCountInString(p.Text) + utf8.RuneCountInString(pageSeparator)
		if offset < pos {
			return p.Number
		}
	}
	return d.Pages[len(d.Pages)-1].Number
}

// Loader extracts a Document from a file on disk.
type Loader interface {
	Load(ctx context.Context, path string) (*Document, error)
}

// Registry maps lower-case file extensions to loaders.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry creates a registry with the PDF loader registered.
func NewRegistry() *Registry {
	r := &Registry{loaders: make(map[string]Loader)}
	r.Register(".pdf", NewPDFLoader())
	return r
}

// Register associates ext (with or without the leading dot) with loader.
func (r *Registry) Register(ext string, loader Loader) {
	ext = strings.ToLower(ext)
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	r.loaders[ext] = loader
}

// Supports reports whether name has a registered extension.
func (r *Registry) Supports(name string) bool {
	_, ok := r.loaders[strings.ToLower(filepath.Ext(name))]
	return ok
}

// Extensions returns the registered extensions, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load dispatches to the loader registered for the file's extension.
func (r *Registry) Load(ctx context.Context, path string) (*Document, error) {
	ext := strings.ToLower(filepath.Ext(path))
	loader, ok := r.loaders[ext]
	if !ok {
		return nil, fmt.Errorf("no loader registered for extension %q", ext)
	}
	return loader.Load(ctx, path)
}
