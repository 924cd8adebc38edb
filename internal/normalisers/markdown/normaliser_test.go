package markdown

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestFormatAndExtensions(t *testing.T) {
	n := New()
	assert.Equal(t, "markdown", n.Format())
	assert.ElementsMatch(t, []string{".md", ".markdown"}, n.Extensions())
}

func TestNormalise_Success(t *testing.T) {
	input := "# Lease Agreement\n\nThe **tenant** pays rent on the [first day](https://example.com).\n"

	res, err := New().Normalise("lease.md", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "Lease Agreement", res.Title)
	assert.Equal(t, "markdown", res.Format)
	assert.Contains(t, res.Content, "The tenant pays rent on the first day.")
	assert.NotContains(t, res.Content, "#")
	assert.NotContains(t, res.Content, "https://")
}

func TestNormalise_TitleFallback(t *testing.T) {
	res, err := New().Normalise("/docs/release_notes.md", []byte("## Only a subheading\n\nBody text."))
	require.NoError(t, err)
	assert.Equal(t, "release notes", res.Title)
}

func TestNormalise_InvalidUTF8(t *testing.T) {
	_, err := New().Normalise("bad.md", []byte{0xff, 0xfe})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStripMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"heading", "## Section 4", "Section 4"},
		{"bold", "This is **bold** text.", "This is bold text."},
		{"italic", "This is *italic* text.", "This is italic text."},
		{"link", "See [clause 7](#c7).", "See clause 7."},
		{"image", "Logo ![logo](logo.png) here.", "Logo  here."},
		{"inline code", "Run `lexrag add` now.", "Run lexrag add now."},
		{"code block", "Before.\n```go\nfmt.Println()\n```\nAfter.", "Before.\n\nAfter."},
		{"list", "- first\n- second", "first\nsecond"},
		{"numbered list", "1. one\n2. two", "one\ntwo"},
		{"blockquote", "> quoted text", "quoted text"},
		{"horizontal rule", "above\n---\nbelow", "above\n\nbelow"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, stripMarkdown(tt.input))
		})
	}
}

func TestExtractTitle(t *testing.T) {
	assert.Equal(t, "Title", extractTitle("intro\n# Title\n# Second"))
	assert.Empty(t, extractTitle("no heading here"))
	assert.Empty(t, extractTitle("#hashtag is not a heading"))
}

func BenchmarkStripMarkdown(b *testing.B) {
	content := "# Heading\n\nSome **bold** and *italic* text with a [link](https://example.com).\n\n- item one\n- item two\n"
	for b.Loop() {
		stripMarkdown(content)
	}
}
