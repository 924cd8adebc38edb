package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		store, err := Open(ctx, domain.StorageSettings{Backend: domain.StorageMemory})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &memory.KnowledgeStore{}, store)
	})

	t.Run("empty backend is sqlite", func(t *testing.T) {
		store, err := Open(ctx, domain.StorageSettings{DataDir: t.TempDir()})
		require.NoError(t, err)
		defer store.Close()
		assert.IsType(t, &sqlite.Store{}, store)
	})

	t.Run("postgres without dsn", func(t *testing.T) {
		_, err := Open(ctx, domain.StorageSettings{Backend: domain.StoragePostgres})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, domain.StorageSettings{Backend: "cassandra"})
		assert.ErrorIs(t, err, domain.ErrUnsupportedType)
	})
}
