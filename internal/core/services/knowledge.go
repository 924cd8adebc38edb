package services

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Ensure KnowledgeService implements the interface.
var _ driving.KnowledgeService = (*KnowledgeService)(nil)

const (
	// dedupPrefixRunes is how much content the duplicate check compares.
	dedupPrefixRunes = 100

	defaultDocumentName = "untitled"
)

// KnowledgeService ingests, lists and removes documents.
type KnowledgeService struct {
	store     driven.KnowledgeStore
	embedder  Embedder
	chunker   driven.Chunker
	chunkSize int
	dedup     bool
	now       func() time.Time
	newID     func() string
}

// KnowledgeOption configures a KnowledgeService.
type KnowledgeOption func(*KnowledgeService)

// WithChunkTarget sets the target chunk size passed to the chunker.
func WithChunkTarget(size int) KnowledgeOption {
	return func(s *KnowledgeService) {
		if size > 0 {
			s.chunkSize = size
		}
	}
}

// WithDedup enables or disables the duplicate check logged during ingestion.
func WithDedup(enabled bool) KnowledgeOption {
	return func(s *KnowledgeService) {
		s.dedup = enabled
	}
}

// WithClock overrides the upload timestamp source.
func WithClock(now func() time.Time) KnowledgeOption {
	return func(s *KnowledgeService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides document ID generation.
func WithIDGenerator(gen func() string) KnowledgeOption {
	return func(s *KnowledgeService) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// NewKnowledgeService creates a new knowledge service.
func NewKnowledgeService(
	store driven.KnowledgeStore,
	embedder Embedder,
	chunker driven.Chunker,
	opts ...KnowledgeOption,
) *KnowledgeService {
	s := &KnowledgeService{
		store:    store,
		embedder: orUnavailable(embedder),
		chunker:  chunker,
		dedup:    true,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddDocument chunks, stores and embeds a document and returns its ID.
//
// When the embedding endpoint fails the document is still stored, with
// zero-vector records (or none while the model's dimensions are unknown),
// and no error is returned. If the embedding records cannot be saved the
// document ID is returned alongside the error.
func (s *KnowledgeService) AddDocument(ctx context.Context, in domain.NewDocument) (string, error) {
	logger.Section("Ingestion")
	defer logger.Timed("ingestion")()

	if strings.TrimSpace(in.Content) == "" {
		return "", fmt.Errorf("add document: empty content: %w", domain.ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = defaultDocumentName
	}

	if s.dedup {
		check, err := s.CheckDuplicate(ctx, name, in.Content)
		switch {
		case err != nil:
			logger.Warn("Duplicate check failed: %v", err)
		case check.Exists:
			logger.Info("Document %q looks like a duplicate of %s (matched by %s)",
				name, check.Existing.ID, check.MatchedBy)
		}
	}

	chunks := s.chunker.Chunk(in.Content, s.chunkSize)
	logger.Debug("Chunked %q into %d chunks", name, len(chunks))

	doc := &domain.Document{
		ID:         s.newID(),
		Name:       name,
		Content:    in.Content,
		Chunks:     chunks,
		UploadDate: s.now().UTC(),
		Type:       in.Type,
		Metadata:   buildMetadata(in.Metadata, in.Content, len(chunks)),
	}
	if err := s.store.SaveDocument(ctx, doc); err != nil {
		return "", fmt.Errorf("save document: %w", err)
	}

	vecs, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		logger.Error("Embedding %q failed, document stored without searchable embeddings: %v", name, err)
		vecs = s.degradedVectors(len(chunks))
		if vecs == nil {
			return doc.ID, nil
		}
	}

	if err := s.store.SaveEmbeddings(ctx, buildRecords(doc, vecs)); err != nil {
		return doc.ID, fmt.Errorf("save embeddings: %w", err)
	}

	logger.Info("Added %q as %s (%d chunks)", name, doc.ID, len(chunks))
	return doc.ID, nil
}

// CheckDuplicate looks for a stored document with the same name, or else
// with the same content length and content prefix.
func (s *KnowledgeService) CheckDuplicate(ctx context.Context, name, content string) (*domain.DuplicateCheck, error) {
	docs, err := s.store.GetAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("check duplicate: %w", err)
	}

	for i := range docs {
		if docs[i].Name == name {
			return &domain.DuplicateCheck{Exists: true, Existing: &docs[i], MatchedBy: "name"}, nil
		}
	}

	prefix := runePrefix(content, dedupPrefixRunes)
	for i := range docs {
		if len(docs[i].Content) == len(content) && runePrefix(docs[i].Content, dedupPrefixRunes) == prefix {
			return &domain.DuplicateCheck{Exists: true, Existing: &docs[i], MatchedBy: "content"}, nil
		}
	}

	return &domain.DuplicateCheck{}, nil
}

// RemoveDocument deletes a document and its embeddings.
func (s *KnowledgeService) RemoveDocument(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("remove document: missing id: %w", domain.ErrInvalidInput)
	}
	if err := s.store.DeleteDocument(ctx, id); err != nil {
		return fmt.Errorf("remove document: %w", err)
	}
	logger.Debug("Removed document %s", id)
	return nil
}

// ClearAll deletes everything and empties the embedding cache.
func (s *KnowledgeService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("clear knowledge base: %w", err)
	}
	s.embedder.ClearCache()
	logger.Info("Knowledge base cleared")
	return nil
}

// GetAllDocuments returns every stored document.
func (s *KnowledgeService) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	return s.store.GetAllDocuments(ctx)
}

// GetDocument retrieves a document by ID.
func (s *KnowledgeService) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// ReembedDocument regenerates a stored document's embeddings. Unlike
// AddDocument it does not degrade: an embedding failure leaves the
// existing records untouched and is returned.
func (s *KnowledgeService) ReembedDocument(ctx context.Context, id string) (int, error) {
	doc, err := s.store.GetDocument(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("reembed document: %w", err)
	}

	chunks := doc.Chunks
	if len(chunks) == 0 {
		chunks = s.chunker.Chunk(doc.Content, s.chunkSize)
		doc.Chunks = chunks
		if err := s.store.SaveDocument(ctx, doc); err != nil {
			return 0, fmt.Errorf("reembed document: %w", err)
		}
	}

	vecs, err := s.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return 0, fmt.Errorf("reembed document: %w", err)
	}

	if err := s.store.DeleteEmbeddingsForDocument(ctx, id); err != nil {
		return 0, fmt.Errorf("reembed document: %w", err)
	}
	recs := buildRecords(doc, vecs)
	if err := s.store.SaveEmbeddings(ctx, recs); err != nil {
		return 0, fmt.Errorf("reembed document: %w", err)
	}

	logger.Info("Re-embedded %s (%d chunks)", id, len(recs))
	return len(recs), nil
}

// GetStats summarises the knowledge base.
func (s *KnowledgeService) GetStats(ctx context.Context) (*domain.Stats, error) {
	docs, err := s.store.GetAllDocuments(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}
	recs, err := s.store.GetAllEmbeddings(ctx)
	if err != nil {
		return nil, fmt.Errorf("get stats: %w", err)
	}

	stats := &domain.Stats{
		DocumentCount:  len(docs),
		EmbeddingCount: len(recs),
		CacheSize:      s.embedder.CacheSize(),
	}
	for _, doc := range docs {
		stats.TotalChunks += len(doc.Chunks)
	}
	return stats, nil
}

// degradedVectors returns n zero vectors, or nil when the size is unknown.
func (s *KnowledgeService) degradedVectors(n int) [][]float32 {
	if s.embedder.ZeroVector() == nil {
		logger.Warn("Embedding dimensions unknown, no placeholder embeddings stored")
		return nil
	}
	vecs := make([][]float32, n)
	for i := range vecs {
		vecs[i] = s.embedder.ZeroVector()
	}
	return vecs
}

func buildRecords(doc *domain.Document, vecs [][]float32) []domain.EmbeddingRecord {
	recs := make([]domain.EmbeddingRecord, len(doc.Chunks))
	for i, chunk := range doc.Chunks {
		recs[i] = domain.EmbeddingRecord{
			ID:         domain.EmbeddingRecordID(doc.ID, i),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Embedding:  vecs[i],
			Chunk:      chunk,
		}
	}
	return recs
}

// buildMetadata copies caller metadata and writes the derived counts over it.
func buildMetadata(in map[string]any, content string, chunkCount int) map[string]any {
	meta := make(map[string]any, len(in)+4)
	maps.Copy(meta, in)
	meta[domain.MetaWordCount] = len(strings.Fields(content))
	meta[domain.MetaCharCount] = utf8.RuneCountInString(content)
	meta[domain.MetaSentenceCount] = countSentences(content)
	meta[domain.MetaChunkCount] = chunkCount
	return meta
}

func countSentences(content string) int {
	n := 0
	for _, part := range strings.FieldsFunc(content, isSentenceTerminal) {
		if strings.TrimSpace(part) != "" {
			n++
		}
	}
	return n
}

func isSentenceTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func runePrefix(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
