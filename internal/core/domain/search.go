package domain

// SearchMode selects how candidates are ranked.
type SearchMode string

// Available search modes.
const (
	// SearchModeHybrid blends vector similarity with lexical overlap.
	SearchModeHybrid SearchMode = "hybrid"

	// SearchModeVector ranks by cosine similarity only.
	SearchModeVector SearchMode = "vector"
)

// IsValid returns true if the search mode is recognised.
func (m SearchMode) IsValid() bool {
	return m == SearchModeHybrid || m == SearchModeVector
}

// String returns the string representation.
func (m SearchMode) String() string {
	return string(m)
}

// SearchOptions configures a search query.
type SearchOptions struct {
	// TopK is the maximum number of results. Zero uses the service default.
	TopK int

	// Mode selects the ranking. Empty means hybrid.
	Mode SearchMode
}

// ScoredRecord is an embedding record paired with its cosine similarity.
type ScoredRecord struct {
	Record     EmbeddingRecord
	Similarity float64
}

// SearchResult is a single ranked chunk.
type SearchResult struct {
	// Chunk is the matched text segment.
	Chunk string

	// Similarity is the final score: blended in hybrid mode, cosine in vector mode.
	Similarity float64

	// VectorScore is the cosine similarity against the query.
	VectorScore float64

	// LexicalScore is the query token overlap ratio (hybrid mode only).
	LexicalScore float64

	// Source is the owning document's name.
	Source string

	// DocumentID is the owning document.
	DocumentID string

	// ChunkIndex is the chunk position within the document.
	ChunkIndex int
}

// RAGContext is the result of a retrieval query.
type RAGContext struct {
	// Query is the query text as received.
	Query string

	// RelevantChunks are the ranked results, best first.
	RelevantChunks []SearchResult

	// SourceDocuments are the distinct result source names in first-seen order.
	SourceDocuments []string

	// Confidence is the top result's score, 0 when there are no results.
	Confidence float64

	// TotalDocuments is the number of distinct documents in the candidate pool.
	TotalDocuments int
}

// IsEmpty returns true if the context holds no results.
func (c *RAGContext) IsEmpty() bool {
	return c == nil || len(c.RelevantChunks) == 0
}
