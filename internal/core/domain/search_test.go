package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchMode_IsValid(t *testing.T) {
	assert.True(t, SearchModeHybrid.IsValid())
	assert.True(t, SearchModeVector.IsValid())
	assert.False(t, SearchMode("").IsValid())
	assert.False(t, SearchMode("bm25").IsValid())
	assert.Equal(t, "hybrid", SearchModeHybrid.String())
}

func TestRAGContext_IsEmpty(t *testing.T) {
	var nilCtx *RAGContext
	assert.True(t, nilCtx.IsEmpty())
	assert.True(t, (&RAGContext{}).IsEmpty())
	assert.False(t, (&RAGContext{
		RelevantChunks: []SearchResult{{Chunk: "text", Similarity: 0.5}},
	}).IsEmpty())
}
