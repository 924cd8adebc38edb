// Package markdown normalises Markdown documents to plain text.
package markdown

import (
	"regexp"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles Markdown documents.
type Normaliser struct {
	text *plaintext.Normaliser
}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{text: plaintext.New()}
}

// Format returns "markdown".
func (n *Normaliser) Format() string {
	return "markdown"
}

// Extensions returns the extensions this normaliser handles.
func (n *Normaliser) Extensions() []string {
	return []string{".md", ".markdown"}
}

// Normalise converts markdown to text with formatting removed, keeping the
// sentence structure the chunker splits on.
func (n *Normaliser) Normalise(name string, data []byte) (*driven.NormaliseResult, error) {
	res, err := n.text.Normalise(name, data)
	if err != nil {
		return nil, err
	}

	title := extractTitle(res.Content)
	if title == "" {
		title = res.Title
	}

	return &driven.NormaliseResult{
		Content: stripMarkdown(res.Content),
		Title:   title,
		Format:  n.Format(),
	}, nil
}

// extractTitle returns the text of the first H1 heading, or "".
func extractTitle(content string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "#"))
		}
	}
	return ""
}

var (
	codeBlock    = regexp.MustCompile("(?s)```.*?```")
	inlineCode   = regexp.MustCompile("`([^`]+)`")
	images       = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	links        = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headings     = regexp.MustCompile(`(?m)^#{1,6}\s+`)
	emphasis     = regexp.MustCompile(`(\*\*|__|\*|_)([^*_\n]+)(\*\*|__|\*|_)`)
	blockquote   = regexp.MustCompile(`(?m)^>\s*`)
	hr           = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkers  = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedList = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	tableRule    = regexp.MustCompile(`(?m)^\s*\|?\s*:?-{3,}.*$`)
	newlines     = regexp.MustCompile(`\n{3,}`)
)

// stripMarkdown removes common markdown formatting.
// Inline code keeps its text since clause numbers and identifiers often live there.
func stripMarkdown(content string) string {
	content = codeBlock.ReplaceAllString(content, "")
	content = inlineCode.ReplaceAllString(content, "$1")
	content = images.ReplaceAllString(content, "")
	content = links.ReplaceAllString(content, "$1")
	content = headings.ReplaceAllString(content, "")
	content = emphasis.ReplaceAllString(content, "$2")
	content = blockquote.ReplaceAllString(content, "")
	content = hr.ReplaceAllString(content, "")
	content = tableRule.ReplaceAllString(content, "")
	content = listMarkers.ReplaceAllString(content, "")
	content = numberedList.ReplaceAllString(content, "")
	content = strings.ReplaceAll(content, "|", " ")
	content = newlines.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
