package driving

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// SearchService provides retrieval to the chat/query layer.
type SearchService interface {
	// Search ranks stored chunks against the query.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.RAGContext, error)

	// HybridSearch is Search in hybrid mode.
	HybridSearch(ctx context.Context, query string, topK int) (*domain.RAGContext, error)

	// GetContextForQuery runs a hybrid search and formats the result for
	// prompt injection. Returns an empty string when nothing matched.
	GetContextForQuery(ctx context.Context, query string, topK int) (string, error)
}
