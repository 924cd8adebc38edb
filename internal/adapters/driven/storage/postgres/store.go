// Package postgres provides a KnowledgeStore on PostgreSQL with the pgvector
// extension. Embeddings are stored in a dimension-less vector column so that
// models of any size can share the table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var _ driven.KnowledgeStore = (*Store)(nil)

// foreignKeyViolation is the SQLSTATE for a foreign key violation.
const foreignKeyViolation = "23503"

const schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS lexrag_documents (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL,
    content     TEXT NOT NULL,
    chunks      JSONB NOT NULL DEFAULT '[]',
    upload_date TIMESTAMPTZ NOT NULL,
    type        TEXT NOT NULL DEFAULT '',
    metadata    JSONB NOT NULL DEFAULT '{}'
);

CREATE INDEX IF NOT EXISTS lexrag_documents_upload_idx ON lexrag_documents (upload_date, id);

CREATE TABLE IF NOT EXISTS lexrag_embeddings (
    id          TEXT PRIMARY KEY,
    document_id TEXT NOT NULL REFERENCES lexrag_documents(id) ON DELETE CASCADE,
    chunk_index INTEGER NOT NULL,
    embedding   vector,
    chunk       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS lexrag_embeddings_document_idx ON lexrag_embeddings (document_id, chunk_index);
`

// Store is a PostgreSQL-backed KnowledgeStore.
type Store struct {
	db *sql.DB
}

// NewStore connects to dsn and creates the schema if needed.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres DSN is required", domain.ErrInvalidInput)
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, domain.NewStoreError("open postgres", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, domain.NewStoreError("connect postgres", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, domain.NewStoreError("create schema", err)
	}
	return &Store{db: db}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveDocument stores or replaces a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	chunks := doc.Chunks
	if chunks == nil {
		chunks = []string{}
	}
	chunksJSON, err := json.Marshal(chunks)
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}
	metadata := doc.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO lexrag_documents (id, name, content, chunks, upload_date, type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			content = EXCLUDED.content,
			chunks = EXCLUDED.chunks,
			upload_date = EXCLUDED.upload_date,
			type = EXCLUDED.type,
			metadata = EXCLUDED.metadata
	`, doc.ID, doc.Name, doc.Content, string(chunksJSON), doc.UploadDate.UTC(), doc.Type, string(metadataJSON))
	return domain.NewStoreError("save document", err)
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, chunks, upload_date, type, metadata
		FROM lexrag_documents WHERE id = $1
	`, id)

	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("get document", err)
	}
	return doc, nil
}

// GetAllDocuments returns every document, oldest upload first.
func (s *Store) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, content, chunks, upload_date, type, metadata
		FROM lexrag_documents ORDER BY upload_date, id
	`)
	if err != nil {
		return nil, domain.NewStoreError("list documents", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, domain.NewStoreError("list documents", err)
		}
		docs = append(docs, *doc)
	}
	return docs, domain.NewStoreError("list documents", rows.Err())
}

// DeleteDocument removes a document and its embeddings in one transaction.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return domain.NewStoreError("delete document", s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM lexrag_embeddings WHERE document_id = $1", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM lexrag_documents WHERE id = $1", id)
		return err
	}))
}

// SaveEmbedding stores or replaces one embedding record.
func (s *Store) SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error {
	return s.SaveEmbeddings(ctx, []domain.EmbeddingRecord{*rec})
}

// SaveEmbeddings stores or replaces a batch of records in one transaction.
func (s *Store) SaveEmbeddings(ctx context.Context, recs []domain.EmbeddingRecord) error {
	if len(recs) == 0 {
		return nil
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO lexrag_embeddings (id, document_id, chunk_index, embedding, chunk)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				chunk_index = EXCLUDED.chunk_index,
				embedding = EXCLUDED.embedding,
				chunk = EXCLUDED.chunk
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range recs {
			rec := &recs[i]
			if _, err := stmt.ExecContext(ctx, rec.ID, rec.DocumentID, rec.ChunkIndex,
				vectorValue(rec.Embedding), rec.Chunk); err != nil {
				if isForeignKeyViolation(err) {
					return fmt.Errorf("%w: document %s for embedding %s", domain.ErrNotFound, rec.DocumentID, rec.ID)
				}
				return fmt.Errorf("saving embedding %s: %w", rec.ID, err)
			}
		}
		return nil
	})
	return domain.NewStoreError("save embeddings", err)
}

// GetEmbeddingsForDocument returns a document's embeddings in chunk order.
func (s *Store) GetEmbeddingsForDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	recs, err := s.queryEmbeddings(ctx, `
		SELECT id, document_id, chunk_index, embedding, chunk
		FROM lexrag_embeddings WHERE document_id = $1
		ORDER BY chunk_index
	`, documentID)
	return recs, domain.NewStoreError("get embeddings", err)
}

// DeleteEmbeddingsForDocument removes a document's embeddings, keeping the document.
func (s *Store) DeleteEmbeddingsForDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM lexrag_embeddings WHERE document_id = $1", documentID)
	return domain.NewStoreError("delete embeddings", err)
}

// GetAllEmbeddings returns every record, grouped by document upload order.
func (s *Store) GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	recs, err := s.queryEmbeddings(ctx, `
		SELECT e.id, e.document_id, e.chunk_index, e.embedding, e.chunk
		FROM lexrag_embeddings e JOIN lexrag_documents d ON d.id = e.document_id
		ORDER BY d.upload_date, d.id, e.chunk_index
	`)
	return recs, domain.NewStoreError("list embeddings", err)
}

// ClearAll removes every document and embedding.
func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "TRUNCATE lexrag_embeddings, lexrag_documents")
	return domain.NewStoreError("clear", err)
}

func (s *Store) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) queryEmbeddings(ctx context.Context, query string, args ...any) ([]domain.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recs := []domain.EmbeddingRecord{}
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var vec *pgvector.Vector
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.ChunkIndex, &vec, &rec.Chunk); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		if vec != nil {
			rec.Embedding = vec.Slice()
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var chunksJSON, metadataJSON []byte

	if err := row.Scan(&doc.ID, &doc.Name, &doc.Content, &chunksJSON,
		&doc.UploadDate, &doc.Type, &metadataJSON); err != nil {
		return nil, err
	}
	doc.UploadDate = doc.UploadDate.UTC()

	if err := json.Unmarshal(chunksJSON, &doc.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshalling chunks: %w", err)
	}
	if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return &doc, nil
}

// vectorValue maps an empty embedding to NULL; pgvector rejects zero-length vectors.
func vectorValue(v []float32) any {
	if len(v) == 0 {
		return nil
	}
	return pgvector.NewVector(v)
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == foreignKeyViolation
}
