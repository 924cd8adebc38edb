package html

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAndExtensions(t *testing.T) {
	n := New()
	assert.Equal(t, "html", n.Format())
	assert.ElementsMatch(t, []string{".html", ".htm"}, n.Extensions())
}

func TestNormalise_Success(t *testing.T) {
	input := `<!DOCTYPE html>
<html>
<head><title>Privacy Policy &amp; Terms</title><style>body { color: red; }</style></head>
<body>
<h1>Privacy</h1>
<p>We collect <b>minimal</b> data.</p>
<script>alert("x")</script>
</body>
</html>`

	res, err := New().Normalise("policy.html", []byte(input))
	require.NoError(t, err)

	assert.Equal(t, "Privacy Policy & Terms", res.Title)
	assert.Equal(t, "html", res.Format)
	assert.Equal(t, "Privacy\nWe collect minimal data.", res.Content)
}

func TestNormalise_TitleFallback(t *testing.T) {
	res, err := New().Normalise("/site/about-us.html", []byte("<p>About.</p>"))
	require.NoError(t, err)
	assert.Equal(t, "about us", res.Title)
}

func TestStripTags(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"paragraphs", "<p>One.</p><p>Two.</p>", "One.\nTwo."},
		{"entities", "<p>Fish &amp; chips &lt;3</p>", "Fish & chips <3"},
		{"line breaks", "first<br>second<br/>third", "first\nsecond\nthird"},
		{"comments", "keep<!-- drop -->this", "keepthis"},
		{"noscript", "<noscript>enable js</noscript>visible", "visible"},
		{"svg", "<svg><text>icon</text></svg>label", "label"},
		{"spaces", "<p>too    many   spaces</p>", "too many spaces"},
		{"list items", "<ul><li>a</li><li>b</li></ul>", "a\nb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, StripTags(tt.input))
		})
	}
}

func BenchmarkStripTags(b *testing.B) {
	content := "<html><head><title>T</title></head><body><div><p>Hello <b>world</b>.</p><script>x()</script></div></body></html>"
	for b.Loop() {
		StripTags(content)
	}
}
