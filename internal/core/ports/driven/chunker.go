package driven

// Chunker splits document content into retrieval-sized segments.
type Chunker interface {
	// Name returns the chunker name for logging.
	Name() string

	// Chunk splits content into segments of roughly targetSize characters.
	// A non-positive targetSize uses the chunker's configured size.
	// Never returns empty or whitespace-only segments.
	Chunk(content string, targetSize int) []string
}
