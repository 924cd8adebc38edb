package normalisers

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/normalisers/docx"
	"github.com/custodia-labs/lexrag/internal/normalisers/eml"
	"github.com/custodia-labs/lexrag/internal/normalisers/html"
	"github.com/custodia-labs/lexrag/internal/normalisers/markdown"
	"github.com/custodia-labs/lexrag/internal/normalisers/plaintext"
)

// Registry maps file extensions to normalisers.
type Registry struct {
	byExt    map[string]driven.Normaliser
	fallback driven.Normaliser
}

// NewRegistry creates an empty registry. Files with an unregistered
// extension are treated as plain text when they are valid UTF-8.
func NewRegistry() *Registry {
	return &Registry{
		byExt:    make(map[string]driven.Normaliser),
		fallback: plaintext.New(),
	}
}

// Default returns a registry with every built-in normaliser.
func Default() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// Register adds n under each of its extensions, replacing earlier entries.
func (r *Registry) Register(n driven.Normaliser) {
	for _, ext := range n.Extensions() {
		r.byExt[strings.ToLower(ext)] = n
	}
}

// Lookup returns the normaliser registered for the file's extension.
func (r *Registry) Lookup(name string) (driven.Normaliser, bool) {
	n, ok := r.byExt[strings.ToLower(filepath.Ext(name))]
	return n, ok
}

// Has reports whether an extension is registered.
func (r *Registry) Has(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// Extensions returns the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Normalise extracts text from a file. Unregistered extensions fall back
// to plain text; binary content with no registered normaliser returns
// domain.ErrUnsupportedType.
func (r *Registry) Normalise(name string, data []byte) (*driven.NormaliseResult, error) {
	if n, ok := r.Lookup(name); ok {
		return n.Normalise(name, data)
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("normalise %s: %w", filepath.Base(name), domain.ErrUnsupportedType)
	}
	return r.fallback.Normalise(name, data)
}
