// Package storetest holds the behavioural contract every
// driven.KnowledgeStore implementation is tested against.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) driven.KnowledgeStore

// Run exercises the KnowledgeStore contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	cases := []struct {
		name string
		fn   func(t *testing.T, s driven.KnowledgeStore)
	}{
		{"EmptyStore", testEmptyStore},
		{"DocumentRoundTrip", testDocumentRoundTrip},
		{"DocumentNotFound", testDocumentNotFound},
		{"SaveDocumentReplaces", testSaveDocumentReplaces},
		{"DocumentsOrderedByUpload", testDocumentsOrderedByUpload},
		{"EmbeddingsRoundTrip", testEmbeddingsRoundTrip},
		{"EmbeddingUpsert", testEmbeddingUpsert},
		{"DeleteCascades", testDeleteCascades},
		{"DeleteUnknownIsNoop", testDeleteUnknown},
		{"DeleteEmbeddingsKeepsDocument", testDeleteEmbeddingsKeepsDocument},
		{"ClearAll", testClearAll},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore(t)
			t.Cleanup(func() { _ = s.Close() })
			tc.fn(t, s)
		})
	}
}

// Doc builds a test document uploaded at the given offset from a fixed epoch.
func Doc(id string, offset time.Duration, chunks ...string) *domain.Document {
	return &domain.Document{
		ID:         id,
		Name:       id + ".txt",
		Content:    "content of " + id,
		Chunks:     chunks,
		UploadDate: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC).Add(offset),
		Type:       "file",
		Metadata:   map[string]any{"path": "/tmp/" + id},
	}
}

// Records builds one embedding record per chunk of doc.
func Records(doc *domain.Document) []domain.EmbeddingRecord {
	recs := make([]domain.EmbeddingRecord, len(doc.Chunks))
	for i, c := range doc.Chunks {
		recs[i] = domain.EmbeddingRecord{
			ID:         domain.EmbeddingRecordID(doc.ID, i),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Embedding:  []float32{float32(i), 0.5, -1},
			Chunk:      c,
		}
	}
	return recs
}

func testEmptyStore(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()

	docs, err := s.GetAllDocuments(ctx)
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)

	recs, err := s.GetAllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func testDocumentRoundTrip(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	doc := Doc("doc-1", 0, "First chunk.", "Second chunk.")
	doc.Metadata["wordCount"] = 4

	require.NoError(t, s.SaveDocument(ctx, doc))

	got, err := s.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Name, got.Name)
	assert.Equal(t, doc.Content, got.Content)
	assert.Equal(t, doc.Chunks, got.Chunks)
	assert.Equal(t, doc.Type, got.Type)
	assert.True(t, doc.UploadDate.Equal(got.UploadDate))
	assert.Equal(t, "/tmp/doc-1", got.Metadata["path"])
	assert.EqualValues(t, 4, got.Metadata["wordCount"])
}

func testDocumentNotFound(t *testing.T, s driven.KnowledgeStore) {
	_, err := s.GetDocument(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func testSaveDocumentReplaces(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	doc := Doc("doc-1", 0, "a.")
	require.NoError(t, s.SaveDocument(ctx, doc))

	doc.Name = "renamed.txt"
	require.NoError(t, s.SaveDocument(ctx, doc))

	docs, err := s.GetAllDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "renamed.txt", docs[0].Name)
}

func testDocumentsOrderedByUpload(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	require.NoError(t, s.SaveDocument(ctx, Doc("late", 2*time.Hour, "x.")))
	require.NoError(t, s.SaveDocument(ctx, Doc("early", 0, "y.")))
	require.NoError(t, s.SaveDocument(ctx, Doc("middle", time.Hour, "z.")))

	docs, err := s.GetAllDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "early", docs[0].ID)
	assert.Equal(t, "middle", docs[1].ID)
	assert.Equal(t, "late", docs[2].ID)
}

func testEmbeddingsRoundTrip(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	doc := Doc("doc-1", 0, "zero.", "one.", "two.")
	require.NoError(t, s.SaveDocument(ctx, doc))

	recs := Records(doc)
	// Save out of order; reads come back in chunk order.
	require.NoError(t, s.SaveEmbeddings(ctx, []domain.EmbeddingRecord{recs[2], recs[0]}))
	require.NoError(t, s.SaveEmbedding(ctx, &recs[1]))

	got, err := s.GetEmbeddingsForDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, rec := range got {
		assert.Equal(t, recs[i].ID, rec.ID)
		assert.Equal(t, i, rec.ChunkIndex)
		assert.Equal(t, recs[i].Chunk, rec.Chunk)
		assert.Equal(t, recs[i].Embedding, rec.Embedding)
	}

	all, err := s.GetAllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func testEmbeddingUpsert(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	doc := Doc("doc-1", 0, "only.")
	require.NoError(t, s.SaveDocument(ctx, doc))

	rec := Records(doc)[0]
	require.NoError(t, s.SaveEmbedding(ctx, &rec))
	rec.Embedding = []float32{9, 9, 9}
	require.NoError(t, s.SaveEmbedding(ctx, &rec))

	got, err := s.GetEmbeddingsForDocument(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{9, 9, 9}, got[0].Embedding)
}

func testDeleteCascades(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	keep := Doc("keep", 0, "k1.", "k2.")
	drop := Doc("drop", time.Minute, "d1.", "d2.")
	for _, d := range []*domain.Document{keep, drop} {
		require.NoError(t, s.SaveDocument(ctx, d))
		require.NoError(t, s.SaveEmbeddings(ctx, Records(d)))
	}

	require.NoError(t, s.DeleteDocument(ctx, "drop"))

	_, err := s.GetDocument(ctx, "drop")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	recs, err := s.GetEmbeddingsForDocument(ctx, "drop")
	require.NoError(t, err)
	assert.Empty(t, recs)

	all, err := s.GetAllEmbeddings(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	for _, rec := range all {
		assert.Equal(t, "keep", rec.DocumentID)
	}
}

func testDeleteUnknown(t *testing.T, s driven.KnowledgeStore) {
	assert.NoError(t, s.DeleteDocument(context.Background(), "never-existed"))
}

func testDeleteEmbeddingsKeepsDocument(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	doc := Doc("doc-1", 0, "a.", "b.")
	require.NoError(t, s.SaveDocument(ctx, doc))
	require.NoError(t, s.SaveEmbeddings(ctx, Records(doc)))

	require.NoError(t, s.DeleteEmbeddingsForDocument(ctx, "doc-1"))

	recs, err := s.GetEmbeddingsForDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = s.GetDocument(ctx, "doc-1")
	assert.NoError(t, err)
}

func testClearAll(t *testing.T, s driven.KnowledgeStore) {
	ctx := context.Background()
	for i, id := range []string{"a", "b"} {
		d := Doc(id, time.Duration(i)*time.Minute, "chunk.")
		require.NoError(t, s.SaveDocument(ctx, d))
		require.NoError(t, s.SaveEmbeddings(ctx, Records(d)))
	}

	require.NoError(t, s.ClearAll(ctx))

	docs, err := s.GetAllDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)

	recs, err := s.GetAllEmbeddings(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}
