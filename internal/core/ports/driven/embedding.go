package driven

import "context"

// EmbeddingService is the remote embedding endpoint.
// Request = model identifier plus one or more input strings;
// response = one vector per input, order-preserving.
//
// Implementations include:
//   - OpenAI (text-embedding-3-small, text-embedding-3-large) and compatible servers
//   - Ollama (nomic-embed-text, mxbai-embed-large)
//   - Gemini (text-embedding-004)
//
// Caching, sub-batching and timeouts are layered on top by services.EmbeddingClient.
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one request.
	// The result has the same length and order as texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size, or 0 when unknown.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
