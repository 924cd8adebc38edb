package domain

import (
	"strconv"
	"time"
)

// Metadata keys describing where file-backed documents came from.
const (
	MetaPath   = "path"
	MetaFormat = "format"
	MetaTitle  = "title"
)

// Metadata keys derived at ingestion time.
const (
	MetaWordCount     = "wordCount"
	MetaCharCount     = "charCount"
	MetaSentenceCount = "sentenceCount"
	MetaChunkCount    = "chunkCount"
)

// Document represents an ingested document.
// Documents are immutable once stored; re-ingesting creates a new document.
type Document struct {
	// ID is the unique identifier, generated at ingestion time.
	ID string

	// Name is the human-readable label (e.g. the original filename).
	Name string

	// Content is the full raw text.
	Content string

	// Chunks are the text segments derived from Content, index-addressable.
	Chunks []string

	// UploadDate is when the document was ingested.
	UploadDate time.Time

	// Type is a free-form category tag (e.g. "contract", "file").
	Type string

	// Metadata holds derived stats (word/char/sentence counts) plus
	// caller-supplied fields.
	Metadata map[string]any
}

// NewDocument is the caller input for ingesting a document.
type NewDocument struct {
	Name     string
	Content  string
	Type     string
	Metadata map[string]any
}

// EmbeddingRecord is the vector for one chunk of a document.
// It is destroyed together with its owning document.
type EmbeddingRecord struct {
	// ID is the composite of document ID and chunk index.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// ChunkIndex is the position within the document's chunk sequence.
	ChunkIndex int

	// Embedding is the fixed-length vector.
	Embedding []float32

	// Chunk is a denormalised copy of the source text segment.
	Chunk string
}

// EmbeddingRecordID builds the composite record ID for a document chunk.
func EmbeddingRecordID(documentID string, chunkIndex int) string {
	return documentID + "_" + strconv.Itoa(chunkIndex)
}

// DuplicateCheck reports whether a document about to be ingested already exists.
// It is advisory: the caller decides whether to skip or force ingestion.
type DuplicateCheck struct {
	// Exists is true when a matching document was found.
	Exists bool

	// Existing is the matching stored document, nil when Exists is false.
	Existing *Document

	// MatchedBy names the rule that matched ("name" or "content").
	MatchedBy string
}

// Stats summarises the knowledge base.
type Stats struct {
	DocumentCount  int
	EmbeddingCount int
	TotalChunks    int
	CacheSize      int
}
