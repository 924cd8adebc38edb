package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long: `View and configure the embedding provider, retrieval tuning and storage.

Settings live in config.toml under the config directory. Retrieval and
storage options are edited there directly.`,
	Annotations: map[string]string{annotationNoStore: "true"},
	RunE:        runSettingsShow,
}

var settingsShowCmd = &cobra.Command{
	Use:         "show",
	Short:       "Show current settings",
	Annotations: map[string]string{annotationNoStore: "true"},
	RunE:        runSettingsShow,
}

var settingsEmbeddingCmd = &cobra.Command{
	Use:   "embedding",
	Short: "Configure embedding provider",
	Long: `Configure the embedding provider used for ingestion and search.

Without flags an interactive prompt is shown. With --provider the settings
are applied directly, which suits scripts:

  lexrag settings embedding --provider ollama --model nomic-embed-text
  lexrag settings embedding --provider openai --api-key sk-...`,
	Annotations: map[string]string{annotationNoStore: "true"},
	RunE:        runSettingsEmbedding,
}

var (
	embedProvider   string
	embedModel      string
	embedBaseURL    string
	embedAPIKey     string
	embedDimensions int
	embedNoVerify   bool
)

func init() {
	f := settingsEmbeddingCmd.Flags()
	f.StringVar(&embedProvider, "provider", "", "embedding provider: ollama, openai or gemini")
	f.StringVar(&embedModel, "model", "", "model name (default depends on provider)")
	f.StringVar(&embedBaseURL, "base-url", "", "API endpoint override")
	f.StringVar(&embedAPIKey, "api-key", "", "API key (openai, gemini)")
	f.IntVar(&embedDimensions, "dimensions", 0, "vector size override (0 = model default)")
	f.BoolVar(&embedNoVerify, "no-verify", false, "skip the connectivity check")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsEmbeddingCmd)
	rootCmd.AddCommand(settingsCmd)
}

func runSettingsShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	// Embedding settings
	emb := settings.Embedding
	cmd.Println("[Embedding]")
	if emb.Provider.IsValid() {
		cmd.Printf("  Provider: %s\n", emb.Provider.Description())
		cmd.Printf("  Model: %s\n", emb.Model)
	} else {
		cmd.Printf("  Provider: (not set)\n")
	}
	if emb.BaseURL != "" {
		cmd.Printf("  Base URL: %s\n", emb.BaseURL)
	}
	if emb.Provider.RequiresAPIKey() {
		if emb.APIKey != "" {
			cmd.Printf("  API Key: %s\n", maskAPIKey(emb.APIKey))
		} else {
			cmd.Printf("  API Key: (not set)\n")
		}
	}
	if emb.Dimensions > 0 {
		cmd.Printf("  Dimensions: %d\n", emb.Dimensions)
	}
	status := "configured"
	if !emb.IsConfigured() {
		status = "not configured"
	}
	cmd.Printf("  Status: %s\n", status)
	cmd.Println()

	// Retrieval settings
	r := settings.Retrieval
	cmd.Println("[Retrieval]")
	cmd.Printf("  Chunk size: %d\n", r.ChunkSize)
	cmd.Printf("  Top K: %d\n", r.TopK)
	cmd.Printf("  Batch size: %d\n", r.BatchSize)
	cmd.Printf("  Cache size: %d\n", r.CacheSize)
	cmd.Printf("  Timeout: %s\n", r.Timeout)
	if r.RequestsPerSecond > 0 {
		cmd.Printf("  Requests/second: %g\n", r.RequestsPerSecond)
	} else {
		cmd.Printf("  Requests/second: unlimited\n")
	}
	cmd.Printf("  Dedup: %t\n", r.Dedup)
	cmd.Println()

	// Storage settings
	s := settings.Storage
	cmd.Println("[Storage]")
	cmd.Printf("  Backend: %s\n", s.Backend)
	switch s.Backend {
	case domain.StorageSQLite:
		if s.DataDir != "" {
			cmd.Printf("  Data dir: %s\n", s.DataDir)
		}
	case domain.StoragePostgres:
		if s.PostgresDSN != "" {
			cmd.Printf("  DSN: (set)\n")
		} else {
			cmd.Printf("  DSN: (not set)\n")
		}
	case domain.StorageRedis:
		cmd.Printf("  Address: %s (db %d)\n", s.RedisAddr, s.RedisDB)
	}
	cmd.Println()

	// Validation
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("Warning: %v\n", err)
		cmd.Println("Run 'lexrag settings embedding' to fix configuration issues.")
	} else {
		cmd.Println("Configuration is valid.")
	}

	return nil
}

func runSettingsEmbedding(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	if embedProvider == "" {
		reader := bufio.NewReader(cmd.InOrStdin())
		return configureEmbeddingProvider(cmd, reader)
	}

	provider := domain.AIProvider(strings.ToLower(embedProvider))
	if !provider.IsValid() {
		return fmt.Errorf("%w: unknown provider %q", domain.ErrInvalidInput, embedProvider)
	}
	model := embedModel
	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}

	if err := settingsService.SetEmbeddingProvider(provider, model, embedAPIKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}
	if cmd.Flags().Changed("base-url") || cmd.Flags().Changed("dimensions") {
		if err := applyEmbeddingOverrides(cmd); err != nil {
			return err
		}
	}

	if !embedNoVerify {
		if err := verifyEmbedding(cmd); err != nil {
			return err
		}
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n", provider.Description(), model)
	return nil
}

// applyEmbeddingOverrides saves --base-url and --dimensions when given.
func applyEmbeddingOverrides(cmd *cobra.Command) error {
	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if cmd.Flags().Changed("base-url") {
		settings.Embedding.BaseURL = embedBaseURL
	}
	if cmd.Flags().Changed("dimensions") {
		if embedDimensions < 0 {
			return fmt.Errorf("%w: dimensions must not be negative", domain.ErrInvalidInput)
		}
		settings.Embedding.Dimensions = embedDimensions
	}
	if err := settingsService.Save(settings); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func verifyEmbedding(cmd *cobra.Command) error {
	// Validate the configuration by pinging the service
	cmd.Print("Validating configuration... ")
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		return fmt.Errorf("embedding configuration validation failed: %w", err)
	}
	cmd.Println("OK")
	return nil
}

func configureEmbeddingProvider(cmd *cobra.Command, reader *bufio.Reader) error {
	cmd.Println("Select Embedding Provider")
	providers := domain.AllEmbeddingProviders()
	for i, p := range providers {
		cmd.Printf("  %d. %s\n", i+1, p.Description())
	}
	cmd.Print("\nEnter choice [1]: ")
	input := readLine(reader)
	idx := parseChoice(input, len(providers), 1)
	selectedProvider := providers[idx-1]

	// Get model
	defaults := domain.DefaultEmbeddingModels()
	defaultModel := defaults[selectedProvider]
	cmd.Printf("Enter model name [%s]: ", defaultModel)
	model := readLine(reader)
	if model == "" {
		model = defaultModel
	}

	// Get API key if needed
	var apiKey string
	if selectedProvider.RequiresAPIKey() {
		cmd.Print("Enter API key (empty to use environment): ")
		apiKey = readPassword(reader)
		cmd.Println()
	}

	if err := settingsService.SetEmbeddingProvider(selectedProvider, model, apiKey); err != nil {
		return fmt.Errorf("failed to configure embedding provider: %w", err)
	}

	if err := verifyEmbedding(cmd); err != nil {
		return err
	}

	cmd.Printf("Embedding provider configured: %s (%s)\n\n", selectedProvider.Description(), model)
	return nil
}

// Helper functions.

//nolint:errcheck // CLI helper, error ignored for UX
func readLine(reader *bufio.Reader) string {
	input, _ := reader.ReadString('\n')
	return strings.TrimSpace(input)
}

func parseChoice(input string, maxVal, defaultVal int) int {
	if input == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(input)
	if err != nil || val < 1 || val > maxVal {
		return defaultVal
	}
	return val
}

// readPassword reads without echo when stdin is a terminal, otherwise
// falls back to a plain line from reader.
func readPassword(reader *bufio.Reader) string {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		password, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return string(password)
		}
	}
	return readLine(reader)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
