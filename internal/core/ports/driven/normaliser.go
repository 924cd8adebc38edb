package driven

// Normaliser extracts plain text from a file's bytes before chunking.
// Each normaliser handles one format, selected by file extension.
type Normaliser interface {
	// Format names the handled format, e.g. "markdown".
	Format() string

	// Extensions returns the handled file extensions, lower-case with the dot.
	Extensions() []string

	// Normalise extracts text from data. name is the file name and is used
	// as the title fallback. Undecodable input yields domain.ErrInvalidInput.
	Normalise(name string, data []byte) (*NormaliseResult, error)
}

// NormaliseResult is the extracted text of one file.
type NormaliseResult struct {
	// Content is the plain text handed to the chunker.
	Content string

	// Title is the document's own title (first heading, <title>, subject),
	// or the file name without extension.
	Title string

	// Format is the normaliser's format name.
	Format string

	// Metadata holds format-specific fields such as email headers.
	Metadata map[string]any
}
