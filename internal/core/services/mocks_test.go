package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var errEndpointDown = errors.New("connection refused")

// fakeEmbeddingService maps texts to vectors by keyword, so tests can
// control cosine scores. Texts matching no keyword get fallback.
type fakeEmbeddingService struct {
	mu       sync.Mutex
	vectors  map[string][]float32
	fallback []float32
	dims     int
	err      error
	calls    [][]string
	respond  func(ctx context.Context, texts []string) ([][]float32, error)
}

var _ driven.EmbeddingService = (*fakeEmbeddingService)(nil)

func newFakeEmbeddingService() *fakeEmbeddingService {
	return &fakeEmbeddingService{
		vectors:  make(map[string][]float32),
		fallback: []float32{0, 0, 1},
	}
}

func (f *fakeEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := f.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (f *fakeEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	respond, err := f.respond, f.err
	f.mu.Unlock()

	if err != nil {
		return nil, err
	}
	if respond != nil {
		return respond(ctx, texts)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vectorFor(text)
	}
	return out, nil
}

func (f *fakeEmbeddingService) vectorFor(text string) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	lower := strings.ToLower(text)
	for kw, vec := range f.vectors {
		if strings.Contains(lower, kw) {
			return append([]float32(nil), vec...)
		}
	}
	return append([]float32(nil), f.fallback...)
}

func (f *fakeEmbeddingService) Dimensions() int   { return f.dims }
func (f *fakeEmbeddingService) ModelName() string { return "fake-embed" }
func (f *fakeEmbeddingService) Ping(context.Context) error {
	return f.err
}
func (f *fakeEmbeddingService) Close() error { return nil }

func (f *fakeEmbeddingService) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeEmbeddingService) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeEmbeddingService) requested() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]string(nil), f.calls...)
}

// splitChunker chunks on "|" so tests control chunk boundaries.
type splitChunker struct{}

func (splitChunker) Name() string { return "split" }

func (splitChunker) Chunk(content string, _ int) []string {
	var out []string
	for _, part := range strings.Split(content, "|") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// failingStore wraps a store and fails selected operations.
type failingStore struct {
	driven.KnowledgeStore
	failSaveEmbeddings error
	failGetAllDocs     error
	// hidden documents are left out of GetAllDocuments.
	hidden map[string]bool
}

func (s *failingStore) SaveEmbeddings(ctx context.Context, recs []domain.EmbeddingRecord) error {
	if s.failSaveEmbeddings != nil {
		return s.failSaveEmbeddings
	}
	return s.KnowledgeStore.SaveEmbeddings(ctx, recs)
}

func (s *failingStore) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	if s.failGetAllDocs != nil {
		return nil, s.failGetAllDocs
	}
	docs, err := s.KnowledgeStore.GetAllDocuments(ctx)
	if err != nil || len(s.hidden) == 0 {
		return docs, err
	}
	visible := docs[:0]
	for _, doc := range docs {
		if !s.hidden[doc.ID] {
			visible = append(visible, doc)
		}
	}
	return visible, nil
}
