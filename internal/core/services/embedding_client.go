package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Embedding client defaults.
const (
	DefaultEmbedBatchSize = 100
	DefaultEmbedCacheSize = 10000
	DefaultEmbedTimeout   = 30 * time.Second

	// cacheKeyPrefixRunes is how much of a text feeds its cache key.
	cacheKeyPrefixRunes = 100
)

// Embedder is the embedding surface the knowledge and search services use.
// *EmbeddingClient is the production implementation.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	ZeroVector() []float32
	CacheSize() int
	ClearCache()
}

// Ensure EmbeddingClient implements Embedder.
var _ Embedder = (*EmbeddingClient)(nil)

// unavailableEmbedder stands in when no embedding provider is configured.
// Ingestion still stores documents; search reports ErrEmbeddingUnavailable.
type unavailableEmbedder struct{}

func (unavailableEmbedder) Embed(context.Context, string) ([]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (unavailableEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, domain.ErrEmbeddingUnavailable
}

func (unavailableEmbedder) ZeroVector() []float32 { return nil }
func (unavailableEmbedder) CacheSize() int        { return 0 }
func (unavailableEmbedder) ClearCache()           {}

// orUnavailable maps a nil Embedder to unavailableEmbedder.
func orUnavailable(e Embedder) Embedder {
	if e == nil {
		return unavailableEmbedder{}
	}
	return e
}

// EmbeddingClient wraps an embedding endpoint with a bounded cache,
// sub-batching, per-request timeouts and optional request pacing.
// It is safe for concurrent use.
type EmbeddingClient struct {
	svc       driven.EmbeddingService
	cache     *lru.Cache[string, []float32]
	batchSize int
	timeout   time.Duration
	limiter   *rate.Limiter

	mu   sync.RWMutex
	dims int
}

type embeddingClientConfig struct {
	batchSize int
	cacheSize int
	timeout   time.Duration
	rps       float64
	burst     int
	dims      int
}

// EmbeddingClientOption configures an EmbeddingClient.
type EmbeddingClientOption func(*embeddingClientConfig)

// WithBatchSize sets the maximum number of texts per endpoint request.
func WithBatchSize(n int) EmbeddingClientOption {
	return func(c *embeddingClientConfig) {
		if n > 0 {
			c.batchSize = n
		}
	}
}

// WithCacheSize sets the maximum number of cached vectors.
func WithCacheSize(n int) EmbeddingClientOption {
	return func(c *embeddingClientConfig) {
		if n > 0 {
			c.cacheSize = n
		}
	}
}

// WithTimeout bounds each endpoint request.
func WithTimeout(d time.Duration) EmbeddingClientOption {
	return func(c *embeddingClientConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRateLimit paces endpoint requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) EmbeddingClientOption {
	return func(c *embeddingClientConfig) {
		c.rps = rps
		c.burst = burst
	}
}

// WithDimensions fixes the expected vector size.
func WithDimensions(n int) EmbeddingClientOption {
	return func(c *embeddingClientConfig) {
		if n > 0 {
			c.dims = n
		}
	}
}

// NewEmbeddingClient creates a caching client over svc.
func NewEmbeddingClient(svc driven.EmbeddingService, opts ...EmbeddingClientOption) (*EmbeddingClient, error) {
	if svc == nil {
		return nil, fmt.Errorf("create embedding client: %w", domain.ErrEmbeddingUnavailable)
	}

	cfg := embeddingClientConfig{
		batchSize: DefaultEmbedBatchSize,
		cacheSize: DefaultEmbedCacheSize,
		timeout:   DefaultEmbedTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	cache, err := lru.New[string, []float32](cfg.cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}

	c := &EmbeddingClient{
		svc:       svc,
		cache:     cache,
		batchSize: cfg.batchSize,
		timeout:   cfg.timeout,
		dims:      cfg.dims,
	}
	if c.dims == 0 {
		c.dims = svc.Dimensions()
	}
	if cfg.rps > 0 {
		burst := cfg.burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.rps), burst)
	}
	return c, nil
}

// Embed returns the vector for one text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one vector per text, in input order. Cached texts are
// served without a request; the rest are fetched in sub-batches of at most
// the configured batch size, each text once.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	// pending maps each uncached text to every input position it fills.
	pending := make(map[string][]int)
	var uncached []string
	hits := 0
	for i, text := range texts {
		if vec, ok := c.cache.Get(cacheKey(text)); ok {
			out[i] = cloneVector(vec)
			hits++
			continue
		}
		if _, seen := pending[text]; !seen {
			uncached = append(uncached, text)
		}
		pending[text] = append(pending[text], i)
	}

	logger.Debug("Embedding %d texts: %d cached, %d to fetch",
		len(texts), hits, len(uncached))

	for start := 0; start < len(uncached); start += c.batchSize {
		end := min(start+c.batchSize, len(uncached))
		batch := uncached[start:end]

		vecs, err := c.request(ctx, batch)
		if err != nil {
			return nil, err
		}
		for j, text := range batch {
			c.cache.Add(cacheKey(text), cloneVector(vecs[j]))
			for _, i := range pending[text] {
				out[i] = cloneVector(vecs[j])
			}
		}
	}

	return out, nil
}

// request issues one endpoint call and validates its shape.
func (c *EmbeddingClient) request(ctx context.Context, batch []string) ([][]float32, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, domain.NewEmbeddingServiceError("rate limit", err)
		}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	logger.Debug("Embedding request: %d texts via %s", len(batch), c.svc.ModelName())
	vecs, err := c.svc.EmbedBatch(reqCtx, batch)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			err = fmt.Errorf("timed out after %s: %w", c.timeout, err)
		}
		var svcErr *domain.EmbeddingServiceError
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, domain.NewEmbeddingServiceError("embed batch", err)
	}

	if len(vecs) != len(batch) {
		return nil, domain.NewEmbeddingServiceError("embed batch",
			fmt.Errorf("expected %d embeddings, got %d", len(batch), len(vecs)))
	}
	for _, vec := range vecs {
		if err := c.checkDimensions(len(vec)); err != nil {
			return nil, domain.NewEmbeddingServiceError("embed batch", err)
		}
	}
	return vecs, nil
}

// checkDimensions learns the vector size from the first response when it
// was not configured, then enforces it.
func (c *EmbeddingClient) checkDimensions(n int) error {
	if n == 0 {
		return errors.New("empty embedding in response")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dims == 0 {
		logger.Debug("Learned embedding dimensions: %d", n)
		c.dims = n
		return nil
	}
	if n != c.dims {
		return &domain.DimensionMismatchError{Expected: c.dims, Got: n}
	}
	return nil
}

// ZeroVector returns a zero vector of the model's size, or nil while the
// size is still unknown.
func (c *EmbeddingClient) ZeroVector() []float32 {
	dims := c.Dimensions()
	if dims == 0 {
		return nil
	}
	return make([]float32, dims)
}

// Dimensions returns the vector size, or 0 if not yet known.
func (c *EmbeddingClient) Dimensions() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dims
}

// ModelName returns the endpoint's model name.
func (c *EmbeddingClient) ModelName() string {
	return c.svc.ModelName()
}

// CacheSize returns the number of cached vectors.
func (c *EmbeddingClient) CacheSize() int {
	return c.cache.Len()
}

// ClearCache drops every cached vector.
func (c *EmbeddingClient) ClearCache() {
	c.cache.Purge()
}

// Close releases the underlying endpoint.
func (c *EmbeddingClient) Close() error {
	return c.svc.Close()
}

// cacheKey derives the cache key from a text's first runes and byte length.
// Distinct texts sharing both collide; that is accepted for speed.
func cacheKey(text string) string {
	return runePrefix(text, cacheKeyPrefixRunes) + "|" + strconv.Itoa(len(text))
}

func cloneVector(v []float32) []float32 {
	if v == nil {
		return nil
	}
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
