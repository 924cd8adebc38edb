// Package cli implements the lexrag command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driven"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
	"github.com/custodia-labs/lexrag/internal/core/services"
	"github.com/custodia-labs/lexrag/internal/logger"
	"github.com/custodia-labs/lexrag/internal/postprocessors/chunker"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services used by commands. Set up in PersistentPreRunE, or injected by tests.
var (
	knowledgeService driving.KnowledgeService
	searchService    driving.SearchService
	settingsService  driving.SettingsService
)

// servicesInjected disables wiring when services were set directly.
var servicesInjected bool

var (
	verbose   bool
	configDir string
)

// Command annotations read by setupServices.
const (
	// annotationNoStore marks commands that only need settings.
	annotationNoStore = "lexrag.no-store"
	// annotationPingEmbedder marks long-running commands that validate the
	// embedding provider up front.
	annotationPingEmbedder = "lexrag.ping-embedder"
)

// closers are released after the command finishes.
var closers []func() error

var rootCmd = &cobra.Command{
	Use:   "lexrag",
	Short: "Retrieval over your documents for chat assistants",
	Long: `lexrag chunks and embeds documents into a local knowledge base and
retrieves the most relevant passages for a question, blending vector
similarity with keyword overlap.

Configure an embedding provider with 'lexrag settings embedding', add
documents with 'lexrag add', then query with 'lexrag search' or serve the
knowledge base to an assistant with 'lexrag mcp serve'.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupServices,
	PersistentPostRunE: teardownServices,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "configuration directory (default ~/.lexrag)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func setupServices(cmd *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)
	if servicesInjected {
		return nil
	}

	dir := configDir
	if dir == "" {
		var err error
		if dir, err = file.DefaultConfigDir(); err != nil {
			return fmt.Errorf("resolve config dir: %w", err)
		}
	}
	loadDotEnv(".env", filepath.Join(dir, ".env"))

	configStore, err := file.NewConfigStore(dir)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	settingsService = services.NewSettingsService(configStore, ai.NewConfigValidator())

	if cmd.Annotations[annotationNoStore] == "true" {
		return nil
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	if settings.Storage.DataDir == "" {
		settings.Storage.DataDir = filepath.Join(dir, "data")
	}

	store, err := storage.Open(cmdContext(cmd), settings.Storage)
	if err != nil {
		return fmt.Errorf("open %s store: %w", settings.Storage.Backend, err)
	}
	closers = append(closers, store.Close)

	embedder, err := newEmbedder(settings, cmd.Annotations[annotationPingEmbedder] == "true")
	if err != nil {
		cmd.PrintErrf("Warning: %v\n", err)
	}

	wireServices(store, embedder, settings)
	return nil
}

// wireServices builds the knowledge and search services over store.
// A nil embedder leaves search unavailable while still allowing ingestion.
func wireServices(store driven.KnowledgeStore, embedder services.Embedder, settings *domain.AppSettings) {
	chunk := chunker.New(chunker.WithChunkSize(settings.Retrieval.ChunkSize))
	knowledgeService = services.NewKnowledgeService(store, embedder, chunk,
		services.WithChunkTarget(settings.Retrieval.ChunkSize),
		services.WithDedup(settings.Retrieval.Dedup),
	)
	searchService = services.NewSearchService(store, embedder,
		services.WithDefaultTopK(settings.Retrieval.TopK),
	)
}

// newEmbedder returns nil without error when no provider is configured.
func newEmbedder(settings *domain.AppSettings, ping bool) (services.Embedder, error) {
	create := ai.CreateEmbeddingService
	if ping {
		create = ai.CreateAndValidateEmbeddingService
	}
	svc, err := create(&settings.Embedding)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		logger.Debug("no embedding provider configured")
		return nil, nil
	}

	r := settings.Retrieval
	client, err := services.NewEmbeddingClient(svc,
		services.WithBatchSize(r.BatchSize),
		services.WithCacheSize(r.CacheSize),
		services.WithTimeout(r.Timeout),
		services.WithRateLimit(r.RequestsPerSecond, 1),
		services.WithDimensions(settings.Embedding.Dimensions),
	)
	if err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("create embedding client: %w", err)
	}
	closers = append(closers, client.Close)
	return client, nil
}

func teardownServices(_ *cobra.Command, _ []string) error {
	if servicesInjected {
		return nil
	}
	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		errs = append(errs, closers[i]())
	}
	closers = nil
	return errors.Join(errs...)
}

// loadDotEnv loads each existing file. Variables already set are kept.
func loadDotEnv(paths ...string) {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("load %s: %v", p, err)
		}
	}
}

// cmdContext returns the command context, or Background when unset.
func cmdContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// requireKnowledge reports an error when the knowledge service is not wired.
func requireKnowledge() error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}
	return nil
}

// requireSearch reports an error when the search service is not wired.
func requireSearch() error {
	if searchService == nil {
		return errors.New("search service not configured")
	}
	return nil
}
