// Package redis provides a KnowledgeStore on Redis.
//
// Key layout, relative to the configured prefix:
//
//	doc:<id>       document JSON
//	docs           sorted set of document IDs scored by upload time (ms)
//	emb:<docID>    hash of chunk index -> embedding record JSON
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

var _ driven.KnowledgeStore = (*Store)(nil)

// DefaultPrefix namespaces every key the store writes.
const DefaultPrefix = "lexrag:"

// Config holds Redis connection configuration.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// Store is a Redis-backed KnowledgeStore.
type Store struct {
	client *redis.Client
	prefix string
}

type storedDocument struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Content    string         `json:"content"`
	Chunks     []string       `json:"chunks"`
	UploadDate time.Time      `json:"uploadDate"`
	Type       string         `json:"type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

type storedEmbedding struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"documentId"`
	ChunkIndex int       `json:"chunkIndex"`
	Embedding  []float32 `json:"embedding"`
	Chunk      string    `json:"chunk"`
}

// NewStore connects to Redis and verifies the connection.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Addr == "" {
		cfg.Addr = "localhost:6379"
	}
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultPrefix
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, domain.NewStoreError("connect redis", err)
	}

	return &Store{client: client, prefix: cfg.Prefix}, nil
}

// Close closes the client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) docKey(id string) string { return s.prefix + "doc:" + id }
func (s *Store) embKey(id string) string { return s.prefix + "emb:" + id }
func (s *Store) indexKey() string        { return s.prefix + "docs" }

// SaveDocument stores or replaces a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	data, err := json.Marshal(storedDocument{
		ID:         doc.ID,
		Name:       doc.Name,
		Content:    doc.Content,
		Chunks:     doc.Chunks,
		UploadDate: doc.UploadDate.UTC(),
		Type:       doc.Type,
		Metadata:   doc.Metadata,
	})
	if err != nil {
		return fmt.Errorf("marshalling document: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.docKey(doc.ID), data, 0)
		pipe.ZAdd(ctx, s.indexKey(), redis.Z{
			Score:  float64(doc.UploadDate.UnixMilli()),
			Member: doc.ID,
		})
		return nil
	})
	return domain.NewStoreError("save document", err)
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	data, err := s.client.Get(ctx, s.docKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, domain.NewStoreError("get document", err)
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, domain.NewStoreError("get document", err)
	}
	return doc, nil
}

// GetAllDocuments returns every document, oldest upload first.
func (s *Store) GetAllDocuments(ctx context.Context) ([]domain.Document, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStoreError("list documents", err)
	}

	docs := []domain.Document{}
	if len(ids) == 0 {
		return docs, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.docKey(id)
	}
	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, domain.NewStoreError("list documents", err)
	}

	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// Indexed but already deleted by a concurrent writer.
			continue
		}
		doc, err := decodeDocument([]byte(raw))
		if err != nil {
			return nil, domain.NewStoreError("list documents", err)
		}
		docs = append(docs, *doc)
	}
	return docs, nil
}

// DeleteDocument removes a document and its embeddings atomically.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.docKey(id), s.embKey(id))
		pipe.ZRem(ctx, s.indexKey(), id)
		return nil
	})
	return domain.NewStoreError("delete document", err)
}

// SaveEmbedding stores or replaces one embedding record.
func (s *Store) SaveEmbedding(ctx context.Context, rec *domain.EmbeddingRecord) error {
	return s.SaveEmbeddings(ctx, []domain.EmbeddingRecord{*rec})
}

// SaveEmbeddings stores or replaces a batch of records in one MULTI block.
func (s *Store) SaveEmbeddings(ctx context.Context, recs []domain.EmbeddingRecord) error {
	if len(recs) == 0 {
		return nil
	}

	byDoc := make(map[string][]any)
	for i := range recs {
		rec := &recs[i]
		data, err := json.Marshal(storedEmbedding(*rec))
		if err != nil {
			return fmt.Errorf("marshalling embedding %s: %w", rec.ID, err)
		}
		byDoc[rec.DocumentID] = append(byDoc[rec.DocumentID], strconv.Itoa(rec.ChunkIndex), data)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for docID, fields := range byDoc {
			pipe.HSet(ctx, s.embKey(docID), fields...)
		}
		return nil
	})
	return domain.NewStoreError("save embeddings", err)
}

// GetEmbeddingsForDocument returns a document's embeddings in chunk order.
func (s *Store) GetEmbeddingsForDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.embKey(documentID)).Result()
	if err != nil {
		return nil, domain.NewStoreError("get embeddings", err)
	}
	recs, err := decodeEmbeddings(fields)
	return recs, domain.NewStoreError("get embeddings", err)
}

// DeleteEmbeddingsForDocument removes a document's embeddings, keeping the document.
func (s *Store) DeleteEmbeddingsForDocument(ctx context.Context, documentID string) error {
	return domain.NewStoreError("delete embeddings", s.client.Del(ctx, s.embKey(documentID)).Err())
}

// GetAllEmbeddings returns every record of every indexed document, grouped by
// document upload order.
func (s *Store) GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, domain.NewStoreError("list embeddings", err)
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.embKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, domain.NewStoreError("list embeddings", err)
	}

	all := []domain.EmbeddingRecord{}
	for _, cmd := range cmds {
		recs, err := decodeEmbeddings(cmd.Val())
		if err != nil {
			return nil, domain.NewStoreError("list embeddings", err)
		}
		all = append(all, recs...)
	}
	return all, nil
}

// ClearAll removes every key under the store's prefix.
func (s *Store) ClearAll(ctx context.Context) error {
	var keys []string
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 500).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return domain.NewStoreError("clear", err)
	}
	if len(keys) == 0 {
		return nil
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, keys...)
		return nil
	})
	return domain.NewStoreError("clear", err)
}

func decodeDocument(data []byte) (*domain.Document, error) {
	var sd storedDocument
	if err := json.Unmarshal(data, &sd); err != nil {
		return nil, fmt.Errorf("unmarshalling document: %w", err)
	}
	return &domain.Document{
		ID:         sd.ID,
		Name:       sd.Name,
		Content:    sd.Content,
		Chunks:     sd.Chunks,
		UploadDate: sd.UploadDate.UTC(),
		Type:       sd.Type,
		Metadata:   sd.Metadata,
	}, nil
}

func decodeEmbeddings(fields map[string]string) ([]domain.EmbeddingRecord, error) {
	recs := make([]domain.EmbeddingRecord, 0, len(fields))
	for _, raw := range fields {
		var se storedEmbedding
		if err := json.Unmarshal([]byte(raw), &se); err != nil {
			return nil, fmt.Errorf("unmarshalling embedding: %w", err)
		}
		recs = append(recs, domain.EmbeddingRecord(se))
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].ChunkIndex < recs[j].ChunkIndex })
	return recs, nil
}
