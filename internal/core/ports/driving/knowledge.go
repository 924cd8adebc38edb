package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// KnowledgeService manages the document knowledge base.
type KnowledgeService interface {
	// AddDocument chunks, stores and embeds a document and returns its ID.
	// Embedding failures degrade to unsearchable records rather than failing.
	AddDocument(ctx context.Context, doc domain.NewDocument) (string, error)

	// CheckDuplicate reports whether a document with the same name, or the
	// same content length and prefix, already exists.
	CheckDuplicate(ctx context.Context, name, content string) (*domain.DuplicateCheck, error)

	// RemoveDocument deletes a document and its embeddings.
	RemoveDocument(ctx context.Context, id string) error

	// ClearAll deletes every document and embedding and empties the embedding cache.
	ClearAll(ctx context.Context) error

	// GetAllDocuments returns every stored document.
	GetAllDocuments(ctx context.Context) ([]domain.Document, error)

	// GetDocument retrieves a document by ID.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ReembedDocument regenerates a stored document's embeddings and returns
	// the number of records written.
	ReembedDocument(ctx context.Context, id string) (int, error)

	// GetStats summarises the knowledge base.
	GetStats(ctx context.Context) (*domain.Stats, error)
}
