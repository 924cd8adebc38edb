package driven

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// KnowledgeStore persists documents and their per-chunk embeddings.
//
// Implementations must provide read-your-own-writes and must never leave an
// embedding observable after its document was deleted. Infrastructure
// failures are reported as *domain.StoreError.
type KnowledgeStore interface {
	// SaveDocument stores or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// GetAllDocuments returns every document, oldest upload first.
	GetAllDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document and all of its embeddings.
	// Deleting an unknown ID is not an error.
	DeleteDocument(ctx context.Context, id string) error

	// SaveEmbedding stores or replaces one embedding record.
	SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error

	// SaveEmbeddings stores or replaces a batch of embedding records.
	SaveEmbeddings(ctx context.Context, recs []domain.EmbeddingRecord) error

	// GetEmbeddingsForDocument returns a document's embeddings in chunk order.
	GetEmbeddingsForDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error)

	// DeleteEmbeddingsForDocument removes a document's embeddings, keeping the document.
	DeleteEmbeddingsForDocument(ctx context.Context, documentID string) error

	// GetAllEmbeddings returns every stored embedding record.
	GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error)

	// ClearAll removes every document and embedding.
	ClearAll(ctx context.Context) error

	// Close releases resources.
	Close() error
}
