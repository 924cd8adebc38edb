package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
)

// DatabaseFile is the database file name inside the data directory.
const DatabaseFile = "knowledge.db"

var _ driven.KnowledgeStore = (*Store)(nil)

// Store is a SQLite-backed KnowledgeStore.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store in the specified data directory.
// If dataDir is empty, defaults to ~/.lexrag/data.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".lexrag", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, DatabaseFile)

	// foreign_keys is a per-connection pragma, so it goes in the DSN.
	db, err := sql.Open("sqlite",
		dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, path: dbPath}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate applies every .up.sql file newer than the recorded schema version.
func (s *Store) migrate(fsys fs.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_initial.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if err := s.applyMigration(version, string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
	}

	return nil
}

func (s *Store) applyMigration(version int, script string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(script); err != nil {
		return err
	}
	if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
		return err
	}
	return tx.Commit()
}

// SaveDocument stores or replaces a document.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	chunksJSON, err := json.Marshal(nonNilChunks(doc.Chunks))
	if err != nil {
		return fmt.Errorf("marshalling chunks: %w", err)
	}
	metadataJSON, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshalling metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, name, content, chunks, upload_date, type, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			content = excluded.content,
			chunks = excluded.chunks,
			upload_date = excluded.upload_date,
			type = excluded.type,
			metadata = excluded.metadata
	`, doc.ID, doc.Name, doc.Content, string(chunksJSON),
		doc.UploadDate.UnixNano(), doc.Type, string(metadataJSON))

	return domain.NewStoreError("save document", err)
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, content, chunks, upload_date, type, metadata
		FROM documents WHERE id = ?
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
		FROM documents ORDER BY upload_date, id
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
	if err := rows.Err(); err != nil {
		return nil, domain.NewStoreError("list documents", err)
	}
	return docs, nil
}

// DeleteDocument removes a document and its embeddings in one transaction.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	return domain.NewStoreError("delete document", s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id)
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

	return domain.NewStoreError("save embeddings", s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO embeddings (id, document_id, chunk_index, embedding, chunk)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				document_id = excluded.document_id,
				chunk_index = excluded.chunk_index,
				embedding = excluded.embedding,
				chunk = excluded.chunk
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer stmt.Close()

		for i := range recs {
			rec := &recs[i]
			if _, err := stmt.ExecContext(ctx, rec.ID, rec.DocumentID, rec.ChunkIndex,
				float32SliceToBytes(rec.Embedding), rec.Chunk); err != nil {
				return fmt.Errorf("saving embedding %s: %w", rec.ID, err)
			}
		}
		return nil
	}))
}

// GetEmbeddingsForDocument returns a document's embeddings in chunk order.
func (s *Store) GetEmbeddingsForDocument(ctx context.Context, documentID string) ([]domain.EmbeddingRecord, error) {
	recs, err := s.queryEmbeddings(ctx, `
		SELECT id, document_id, chunk_index, embedding, chunk
		FROM embeddings WHERE document_id = ?
		ORDER BY chunk_index
	`, documentID)
	return recs, domain.NewStoreError("get embeddings", err)
}

// DeleteEmbeddingsForDocument removes a document's embeddings, keeping the document.
func (s *Store) DeleteEmbeddingsForDocument(ctx context.Context, documentID string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM embeddings WHERE document_id = ?", documentID)
	return domain.NewStoreError("delete embeddings", err)
}

// GetAllEmbeddings returns every record, grouped by document upload order.
func (s *Store) GetAllEmbeddings(ctx context.Context) ([]domain.EmbeddingRecord, error) {
	recs, err := s.queryEmbeddings(ctx, `
		SELECT e.id, e.document_id, e.chunk_index, e.embedding, e.chunk
		FROM embeddings e JOIN documents d ON d.id = e.document_id
		ORDER BY d.upload_date, d.id, e.chunk_index
	`)
	return recs, domain.NewStoreError("list embeddings", err)
}

// ClearAll removes every document and embedding.
func (s *Store) ClearAll(ctx context.Context) error {
	return domain.NewStoreError("clear", s.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM embeddings"); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM documents")
		return err
	}))
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
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

func (s *Store) queryEmbeddings(ctx context.Context, query string, args ...any) ([]domain.EmbeddingRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	recs := []domain.EmbeddingRecord{}
	for rows.Next() {
		var rec domain.EmbeddingRecord
		var blob []byte
		if err := rows.Scan(&rec.ID, &rec.DocumentID, &rec.ChunkIndex, &blob, &rec.Chunk); err != nil {
			return nil, fmt.Errorf("scanning embedding: %w", err)
		}
		rec.Embedding = bytesToFloat32Slice(blob)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating embeddings: %w", err)
	}
	return recs, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var chunksJSON, metadataJSON string
	var uploaded int64

	if err := row.Scan(&doc.ID, &doc.Name, &doc.Content, &chunksJSON,
		&uploaded, &doc.Type, &metadataJSON); err != nil {
		return nil, err
	}
	doc.UploadDate = time.Unix(0, uploaded).UTC()

	if err := json.Unmarshal([]byte(chunksJSON), &doc.Chunks); err != nil {
		return nil, fmt.Errorf("unmarshalling chunks: %w", err)
	}
	if metadataJSON != "" && metadataJSON != "null" {
		if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling metadata: %w", err)
		}
	}
	return &doc, nil
}

func nonNilChunks(chunks []string) []string {
	if chunks == nil {
		return []string{}
	}
	return chunks
}

// float32SliceToBytes encodes a vector as little-endian float32s.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice decodes a little-endian float32 vector.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
