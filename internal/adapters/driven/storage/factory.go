// Package storage opens the KnowledgeStore selected by storage.backend.
package storage

import (
	"context"
	"fmt"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/redis"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/logger"
)

// Open creates the store for settings.Backend. An empty backend means SQLite.
func Open(ctx context.Context, settings domain.StorageSettings) (driven.KnowledgeStore, error) {
	backend := settings.Backend
	if backend == "" {
		backend = domain.StorageSQLite
	}
	logger.Debug("opening %s knowledge store", backend)

	switch backend {
	case domain.StorageSQLite:
		return sqlite.NewStore(settings.DataDir)
	case domain.StoragePostgres:
		return postgres.NewStore(ctx, settings.PostgresDSN)
	case domain.StorageRedis:
		return redis.NewStore(ctx, redis.Config{
			Addr:     settings.RedisAddr,
			Password: settings.RedisPassword,
			DB:       settings.RedisDB,
		})
	case domain.StorageMemory:
		return memory.NewKnowledgeStore(), nil
	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, backend)
	}
}
