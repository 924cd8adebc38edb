// Package plaintext normalises UTF-8 text files.
package plaintext

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// Format returns "text".
func (n *Normaliser) Format() string {
	return "text"
}

// Extensions returns the extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".txt", ".text", ".csv", ".log"}
}

// Normalise strips a UTF-8 byte order mark and normalises line endings.
// Content that is not valid UTF-8 is rejected.
func (n *Normaliser) Normalise(name string, data []byte) (*driven.NormaliseResult, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: %s is not UTF-8 text", domain.ErrInvalidInput, name)
	}

	content := strings.TrimPrefix(string(data), "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	return &driven.NormaliseResult{
		Content: content,
		Title:   TitleFromName(name),
		Format:  n.Format(),
	}, nil
}

// TitleFromName derives a human-readable title from a file name.
func TitleFromName(name string) string {
	filename := filepath.Base(name)
	if ext := filepath.Ext(filename); ext != "" && ext != filename {
		filename = strings.TrimSuffix(filename, ext)
	}
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}
