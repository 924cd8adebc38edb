package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// FormatContext renders search results as a text block for prompt injection.
// An empty context renders as "".
func FormatContext(c *domain.RAGContext) string {
	if c.IsEmpty() {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Relevant context from: %s\n", strings.Join(c.SourceDocuments, ", "))
	fmt.Fprintf(&b, "Confidence: %s\n", percent(c.Confidence))
	fmt.Fprintf(&b, "Documents searched: %d\n", c.TotalDocuments)

	for i, r := range c.RelevantChunks {
		fmt.Fprintf(&b, "\n[%d] %s (similarity %s)\n", i+1, r.Source, percent(r.Similarity))
		b.WriteString(strings.TrimSpace(r.Chunk))
		b.WriteByte('\n')
	}
	return b.String()
}

func percent(score float64) string {
	return fmt.Sprintf("%.1f%%", score*100)
}
