package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider   = "embedding.provider"
	keyEmbedModel      = "embedding.model"
	keyEmbedBaseURL    = "embedding.base_url"
	keyEmbedAPIKey     = "embedding.api_key"
	keyEmbedDimensions = "embedding.dimensions"

	keyChunkSize = "retrieval.chunk_size"
	keyTopK      = "retrieval.top_k"
	keyBatchSize = "retrieval.batch_size"
	keyCacheSize = "retrieval.cache_size"
	keyTimeout   = "retrieval.timeout_seconds"
	keyRPS       = "retrieval.requests_per_second"
	keyDedup     = "retrieval.dedup"

	keyStorageBackend = "storage.backend"
	keyDataDir        = "storage.data_dir"
	keyPostgresDSN    = "storage.postgres_dsn"
	keyRedisAddr      = "storage.redis_addr"
	keyRedisPassword  = "storage.redis_password"
	keyRedisDB        = "storage.redis_db"
)

// Environment variables consulted when the config file leaves a setting empty.
//
//nolint:gosec // G101: These are variable names, not credentials.
const (
	EnvEmbeddingProvider = "LEXRAG_EMBEDDING_PROVIDER"
	EnvOpenAIAPIKey      = "OPENAI_API_KEY"
	EnvGeminiAPIKey      = "GEMINI_API_KEY"
)

const defaultOllamaURL = "http://localhost:11434"

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// SetEnvLookup replaces the environment lookup, for tests.
func (s *SettingsService) SetEnvLookup(getenv func(string) string) {
	if getenv != nil {
		s.getenv = getenv
	}
}

// Get retrieves current application settings, with environment fallbacks
// for the embedding provider and API key.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:   s.getProvider(),
			Model:      s.configStore.GetString(keyEmbedModel),
			BaseURL:    s.configStore.GetString(keyEmbedBaseURL),
			APIKey:     s.configStore.GetString(keyEmbedAPIKey),
			Dimensions: s.configStore.GetInt(keyEmbedDimensions),
		},
		Retrieval: domain.RetrievalSettings{
			ChunkSize:         s.getInt(keyChunkSize, defaults.Retrieval.ChunkSize),
			TopK:              s.getInt(keyTopK, defaults.Retrieval.TopK),
			BatchSize:         s.getInt(keyBatchSize, defaults.Retrieval.BatchSize),
			CacheSize:         s.getInt(keyCacheSize, defaults.Retrieval.CacheSize),
			Timeout:           s.getSeconds(keyTimeout, defaults.Retrieval.Timeout),
			RequestsPerSecond: s.configStore.GetFloat(keyRPS),
			Dedup:             s.getBool(keyDedup, defaults.Retrieval.Dedup),
		},
		Storage: domain.StorageSettings{
			Backend:       s.getBackend(defaults.Storage.Backend),
			DataDir:       s.configStore.GetString(keyDataDir),
			PostgresDSN:   s.configStore.GetString(keyPostgresDSN),
			RedisAddr:     s.getString(keyRedisAddr, defaults.Storage.RedisAddr),
			RedisPassword: s.configStore.GetString(keyRedisPassword),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
		},
	}

	emb := &settings.Embedding
	if emb.Provider.IsValid() {
		if emb.Model == "" {
			emb.Model = domain.DefaultEmbeddingModels()[emb.Provider]
		}
		if emb.APIKey == "" {
			emb.APIKey = s.envAPIKey(emb.Provider)
		}
		if emb.BaseURL == "" && emb.Provider.IsLocal() {
			emb.BaseURL = defaultOllamaURL
		}
	}

	return settings, nil
}

// Save persists application settings.
// Environment-derived API keys are not written to the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	emb := settings.Embedding
	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, emb.Provider.String()},
		{keyEmbedModel, emb.Model},
		{keyEmbedBaseURL, emb.BaseURL},
		{keyEmbedDimensions, emb.Dimensions},
		{keyChunkSize, settings.Retrieval.ChunkSize},
		{keyTopK, settings.Retrieval.TopK},
		{keyBatchSize, settings.Retrieval.BatchSize},
		{keyCacheSize, settings.Retrieval.CacheSize},
		{keyTimeout, int(settings.Retrieval.Timeout / time.Second)},
		{keyRPS, settings.Retrieval.RequestsPerSecond},
		{keyDedup, settings.Retrieval.Dedup},
		{keyStorageBackend, settings.Storage.Backend.String()},
		{keyDataDir, settings.Storage.DataDir},
		{keyPostgresDSN, settings.Storage.PostgresDSN},
		{keyRedisAddr, settings.Storage.RedisAddr},
		{keyRedisPassword, settings.Storage.RedisPassword},
		{keyRedisDB, settings.Storage.RedisDB},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if emb.APIKey != "" && emb.APIKey != s.envAPIKey(emb.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, emb.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// SetEmbeddingProvider configures the embedding provider.
// An empty model selects the provider's default; the API key may come
// from the environment.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("invalid embedding provider: %s", provider)
	}
	if apiKey == "" {
		apiKey = s.envAPIKey(provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" {
		return fmt.Errorf("API key required for %s", provider)
	}

	settings, err := s.Get()
	if err != nil {
		return err
	}

	emb := &settings.Embedding
	providerChanged := emb.Provider != provider
	emb.Provider = provider
	emb.APIKey = apiKey

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	emb.Model = model

	if provider.IsLocal() {
		if emb.BaseURL == "" || providerChanged {
			emb.BaseURL = defaultOllamaURL
		}
	} else if providerChanged {
		emb.BaseURL = ""
	}

	emb.Dimensions = domain.EmbeddingDimensions()[model]

	return s.Save(settings)
}

// Validate checks that current settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, errors.New("embedding provider is not configured (run: lexrag settings embedding)"))
	}
	if !settings.Storage.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("invalid storage backend: %s", settings.Storage.Backend))
	}
	if settings.Storage.Backend == domain.StoragePostgres && settings.Storage.PostgresDSN == "" {
		errs = append(errs, errors.New("storage.postgres_dsn is required for the postgres backend"))
	}
	if settings.Retrieval.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("retrieval.chunk_size must be positive, got %d", settings.Retrieval.ChunkSize))
	}
	return errors.Join(errs...)
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

func (s *SettingsService) envAPIKey(provider domain.AIProvider) string {
	switch provider {
	case domain.AIProviderOpenAI:
		return s.getenv(EnvOpenAIAPIKey)
	case domain.AIProviderGemini:
		return s.getenv(EnvGeminiAPIKey)
	default:
		return ""
	}
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getSeconds(key string, defaultVal time.Duration) time.Duration {
	val := s.configStore.GetInt(key)
	if val <= 0 {
		return defaultVal
	}
	return time.Duration(val) * time.Second
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider() domain.AIProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		val = s.getenv(EnvEmbeddingProvider)
	}
	provider := domain.AIProvider(val)
	if !provider.IsValid() {
		return ""
	}
	return provider
}

func (s *SettingsService) getBackend(defaultVal domain.StorageBackend) domain.StorageBackend {
	val := s.configStore.GetString(keyStorageBackend)
	if val == "" {
		return defaultVal
	}
	return domain.StorageBackend(val)
}
