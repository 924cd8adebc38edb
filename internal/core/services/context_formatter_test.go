package services

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestFormatContext(t *testing.T) {
	rc := &domain.RAGContext{
		Query: "which clause applies",
		RelevantChunks: []domain.SearchResult{
			{Chunk: "Clause one applies.", Similarity: 0.912, Source: "contract.txt"},
			{Chunk: "  The lease ends in May.\n", Similarity: 0.5, Source: "lease.txt"},
		},
		SourceDocuments: []string{"contract.txt", "lease.txt"},
		Confidence:      0.875,
		TotalDocuments:  2,
	}

	want := "Relevant context from: contract.txt, lease.txt\n" +
		"Confidence: 87.5%\n" +
		"Documents searched: 2\n" +
		"\n[1] contract.txt (similarity 91.2%)\n" +
		"Clause one applies.\n" +
		"\n[2] lease.txt (similarity 50.0%)\n" +
		"The lease ends in May.\n"

	assert.Equal(t, want, FormatContext(rc))
}

func TestFormatContext_Empty(t *testing.T) {
	assert.Equal(t, "", FormatContext(nil))
	assert.Equal(t, "", FormatContext(&domain.RAGContext{Query: "q"}))
}
