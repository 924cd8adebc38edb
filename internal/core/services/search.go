package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Search defaults.
const (
	DefaultTopK          = 5
	DefaultVectorWeight  = 0.7
	DefaultLexicalWeight = 0.3

	// minTokenRunes filters short words out of lexical matching.
	minTokenRunes = 3
)

// SearchService ranks stored chunks against a query.
type SearchService struct {
	store         driven.KnowledgeStore
	embedder      Embedder
	vectorWeight  float64
	lexicalWeight float64
	defaultTopK   int
}

// SearchOption configures a SearchService.
type SearchOption func(*SearchService)

// WithWeights sets the hybrid blend of vector and lexical scores.
func WithWeights(vector, lexical float64) SearchOption {
	return func(s *SearchService) {
		s.vectorWeight = vector
		s.lexicalWeight = lexical
	}
}

// WithDefaultTopK sets the result count used when a caller passes topK <= 0.
func WithDefaultTopK(n int) SearchOption {
	return func(s *SearchService) {
		if n > 0 {
			s.defaultTopK = n
		}
	}
}

// NewSearchService creates a new search service.
func NewSearchService(store driven.KnowledgeStore, embedder Embedder, opts ...SearchOption) *SearchService {
	s := &SearchService{
		store:         store,
		embedder:      orUnavailable(embedder),
		vectorWeight:  DefaultVectorWeight,
		lexicalWeight: DefaultLexicalWeight,
		defaultTopK:   DefaultTopK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search ranks stored chunks against query.
//
// Hybrid mode ranks a pool of twice topK candidates by vector similarity,
// then re-sorts them by a blend of vector and lexical scores. Vector mode
// ranks by cosine similarity alone. A blank query or an empty corpus
// returns an empty context without calling the embedding endpoint.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) (*domain.RAGContext, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	result := &domain.RAGContext{
		Query:           query,
		RelevantChunks:  []domain.SearchResult{},
		SourceDocuments: []string{},
	}

	if strings.TrimSpace(query) == "" {
		logger.Debug("Empty query, returning no results")
		return result, nil
	}

	mode := opts.Mode
	if mode == "" {
		mode = domain.SearchModeHybrid
	}
	if !mode.IsValid() {
		return nil, fmt.Errorf("search: unknown mode %q: %w", mode, domain.ErrInvalidInput)
	}

	topK := opts.TopK
	if topK <= 0 {
		topK = s.defaultTopK
	}

	records, err := s.store.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if len(records) == 0 {
		logger.Debug("Corpus is empty, returning no results")
		return result, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	// The pool never exceeds the corpus, so doubling cannot overflow.
	poolSize := min(topK, len(records))
	if mode == domain.SearchModeHybrid {
		poolSize = min(poolSize*2, len(records))
	}
	pool, err := Rank(queryVec, records, poolSize)
	if err != nil {
		return nil, fmt.Errorf("rank candidates: %w", err)
	}
	logger.Debug("Mode: %s, candidate pool: %d of %d records", mode, len(pool), len(records))

	names, err := s.documentNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	tokens := queryTokens(query)
	results := make([]domain.SearchResult, len(pool))
	poolDocs := make(map[string]struct{})
	for i, cand := range pool {
		lexical := lexicalOverlap(tokens, cand.Record.Chunk)
		score := cand.Similarity
		if mode == domain.SearchModeHybrid {
			score = s.vectorWeight*cand.Similarity + s.lexicalWeight*lexical
		}
		results[i] = domain.SearchResult{
			Chunk:        cand.Record.Chunk,
			Similarity:   score,
			VectorScore:  cand.Similarity,
			LexicalScore: lexical,
			Source:       sourceName(names, cand.Record.DocumentID),
			DocumentID:   cand.Record.DocumentID,
			ChunkIndex:   cand.Record.ChunkIndex,
		}
		poolDocs[cand.Record.DocumentID] = struct{}{}
	}

	if mode == domain.SearchModeHybrid {
		sort.SliceStable(results, func(i, j int) bool {
			return results[i].Similarity > results[j].Similarity
		})
	}
	if len(results) > topK {
		results = results[:topK]
	}

	result.RelevantChunks = results
	result.TotalDocuments = len(poolDocs)
	seen := make(map[string]bool)
	for _, r := range results {
		if !seen[r.Source] {
			seen[r.Source] = true
			result.SourceDocuments = append(result.SourceDocuments, r.Source)
		}
	}
	if len(results) > 0 {
		result.Confidence = results[0].Similarity
	}

	logger.Info("Search returned %d results from %d documents (confidence %.3f)",
		len(results), result.TotalDocuments, result.Confidence)
	return result, nil
}

// HybridSearch runs Search in hybrid mode.
func (s *SearchService) HybridSearch(ctx context.Context, query string, topK int) (*domain.RAGContext, error) {
	return s.Search(ctx, query, domain.SearchOptions{TopK: topK, Mode: domain.SearchModeHybrid})
}

// GetContextForQuery runs a hybrid search and formats the results.
func (s *SearchService) GetContextForQuery(ctx context.Context, query string, topK int) (string, error) {
	rc, err := s.HybridSearch(ctx, query, topK)
	if err != nil {
		return "", err
	}
	return FormatContext(rc), nil
}

func (s *SearchService) documentNames(ctx context.Context) (map[string]string, error) {
	docs, err := s.store.GetAllDocuments(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(docs))
	for _, doc := range docs {
		names[doc.ID] = doc.Name
	}
	return names, nil
}

func sourceName(names map[string]string, documentID string) string {
	if name, ok := names[documentID]; ok {
		return name
	}
	return documentID
}

// tokenize lower-cases text and splits it into words of at least
// minTokenRunes letters or digits.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if utf8.RuneCountInString(f) >= minTokenRunes {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// queryTokens returns the distinct tokens of a query in first-seen order.
func queryTokens(query string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range tokenize(query) {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// lexicalOverlap is the fraction of query tokens present in the chunk.
func lexicalOverlap(tokens []string, chunk string) float64 {
	if len(tokens) == 0 {
		return 0
	}
	chunkSet := make(map[string]struct{})
	for _, t := range tokenize(chunk) {
		chunkSet[t] = struct{}{}
	}
	hits := 0
	for _, t := range tokens {
		if _, ok := chunkSet[t]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(tokens))
}
