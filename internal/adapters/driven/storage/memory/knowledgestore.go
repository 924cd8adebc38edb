package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Ensure KnowledgeStore implements the interface.
var _ driven.KnowledgeStore = (*KnowledgeStore)(nil)

// KnowledgeStore is an in-memory implementation of driven.KnowledgeStore.
// Values are copied on the way in and out so callers cannot mutate stored state.
type KnowledgeStore struct {
	mu         sync.RWMutex
	documents  map[string]domain.Document
	embeddings map[string]map[int]domain.EmbeddingRecord
}

// NewKnowledgeStore creates a new in-memory knowledge store.
func NewKnowledgeStore() *KnowledgeStore {
	return &KnowledgeStore{
		documents:  make(map[string]domain.Document),
		embeddings: make(map[string]map[int]domain.EmbeddingRecord),
	}
}

// SaveDocument stores or replaces a document.
func (s *KnowledgeStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = copyDocument(*doc)
	return nil
}

// GetDocument retrieves a document by ID.
func (s *KnowledgeStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := copyDocument(doc)
	return &out, nil
}

// GetAllDocuments returns every document, oldest upload first.
func (s *KnowledgeStore) GetAllDocuments(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedDocuments(), nil
}

// DeleteDocument removes a document and its embeddings.
func (s *KnowledgeStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, id)
	delete(s.documents, id)
	return nil
}

// SaveEmbedding stores or replaces one embedding record.
func (s *KnowledgeStore) SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error {
	return s.SaveEmbeddings(ctx, []domain.EmbeddingRecord{*rec})
}

// SaveEmbeddings stores or replaces a batch of embedding records. The batch
// is rejected whole if any record names a document that was never saved.
func (s *KnowledgeStore) SaveEmbeddings(_ context.Context, recs []domain.EmbeddingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range recs {
		if _, ok := s.documents[rec.DocumentID]; !ok {
			return domain.NewStoreError("save embeddings",
				fmt.Errorf("%w: document %s for embedding %s", domain.ErrNotFound, rec.DocumentID, rec.ID))
		}
	}
	for _, rec := range recs {
		byIndex, ok := s.embeddings[rec.DocumentID]
		if !ok {
			byIndex = make(map[int]domain.EmbeddingRecord)
			s.embeddings[rec.DocumentID] = byIndex
		}
		byIndex[rec.ChunkIndex] = copyRecord(rec)
	}
	return nil
}

// GetEmbeddingsForDocument returns a document's embeddings in chunk order.
func (s *KnowledgeStore) GetEmbeddingsForDocument(
	_ context.Context, documentID string,
) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordsFor(documentID), nil
}

// DeleteEmbeddingsForDocument removes a document's embeddings.
func (s *KnowledgeStore) DeleteEmbeddingsForDocument(_ context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.embeddings, documentID)
	return nil
}

// GetAllEmbeddings returns every embedding record, grouped by document in
// upload order.
func (s *KnowledgeStore) GetAllEmbeddings(_ context.Context) ([]domain.EmbeddingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.EmbeddingRecord, 0)
	for _, doc := range s.sortedDocuments() {
		out = append(out, s.recordsFor(doc.ID)...)
	}
	return out, nil
}

// ClearAll removes every document and embedding.
func (s *KnowledgeStore) ClearAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents = make(map[string]domain.Document)
	s.embeddings = make(map[string]map[int]domain.EmbeddingRecord)
	return nil
}

// Close is a no-op.
func (s *KnowledgeStore) Close() error {
	return nil
}

// sortedDocuments must be called with the lock held.
func (s *KnowledgeStore) sortedDocuments() []domain.Document {
	docs := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		docs = append(docs, copyDocument(doc))
	}
	sort.Slice(docs, func(i, j int) bool {
		if docs[i].UploadDate.Equal(docs[j].UploadDate) {
			return docs[i].ID < docs[j].ID
		}
		return docs[i].UploadDate.Before(docs[j].UploadDate)
	})
	return docs
}

// recordsFor must be called with the lock held.
func (s *KnowledgeStore) recordsFor(documentID string) []domain.EmbeddingRecord {
	byIndex := s.embeddings[documentID]
	recs := make([]domain.EmbeddingRecord, 0, len(byIndex))
	for _, rec := range byIndex {
		recs = append(recs, copyRecord(rec))
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ChunkIndex < recs[j].ChunkIndex })
	return recs
}

func copyDocument(doc domain.Document) domain.Document {
	if doc.Chunks != nil {
		doc.Chunks = append([]string(nil), doc.Chunks...)
	}
	if doc.Metadata != nil {
		doc.Metadata = maps.Clone(doc.Metadata)
	}
	return doc
}

func copyRecord(rec domain.EmbeddingRecord) domain.EmbeddingRecord {
	if rec.Embedding != nil {
		rec.Embedding = append([]float32(nil), rec.Embedding...)
	}
	return rec
}
