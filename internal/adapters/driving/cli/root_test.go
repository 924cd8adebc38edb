package cli

import (
	"bytes"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/services"
)

// letterEmbedder maps text to letter frequencies, so texts sharing words
// are also close in vector space.
type letterEmbedder struct{}

func (letterEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 26)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			vec[r-'a']++
		}
	}
	return vec, nil
}

func (e letterEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = e.Embed(ctx, t)
	}
	return out, nil
}

func (letterEmbedder) ZeroVector() []float32 { return make([]float32, 26) }
func (letterEmbedder) CacheSize() int        { return 0 }
func (letterEmbedder) ClearCache()           {}

var _ services.Embedder = letterEmbedder{}

// setupTestServices wires memory-backed services and settings.
// The returned func restores the package state.
func setupTestServices() func() {
	settings := services.NewSettingsService(memory.NewConfigStore(), nil)
	settings.SetEnvLookup(func(string) string { return "" })
	settingsService = settings

	defaults := domain.DefaultAppSettings()
	wireServices(memory.NewKnowledgeStore(), letterEmbedder{}, &defaults)
	servicesInjected = true

	return func() {
		knowledgeService = nil
		searchService = nil
		settingsService = nil
		servicesInjected = false
		resetFlags(rootCmd)
	}
}

// resetFlags restores every flag to its default between executions.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// executeCommand runs the CLI with args and returns combined output.
func executeCommand(args ...string) (string, error) {
	return executeCommandWithInput("", args...)
}

func executeCommandWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
		resetFlags(rootCmd)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// writeTempFile writes content to name in a fresh temp dir.
func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := t.TempDir() + string(os.PathSeparator) + name
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "lexrag", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range rootCmd.Commands() {
		names = append(names, cmd.Name())
	}
	for _, want := range []string{"add", "document", "clear", "search", "context", "stats", "settings", "watch", "mcp", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_GlobalFlags(t *testing.T) {
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("verbose"))
	assert.NotNil(t, rootCmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_WiresFromConfigDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.toml", []byte("[storage]\nbackend = \"memory\"\n"), 0o644))
	defer func() {
		knowledgeService = nil
		searchService = nil
		settingsService = nil
		configDir = ""
	}()

	t.Setenv("LEXRAG_EMBEDDING_PROVIDER", "")

	out, err := executeCommand("--config-dir", dir, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Documents:  0")
	assert.NotNil(t, knowledgeService)
	assert.NotNil(t, searchService)
}

func TestRootCmd_SearchWithoutProviderOnEmptyStore(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.toml", []byte("[storage]\nbackend = \"memory\"\n"), 0o644))
	t.Setenv("LEXRAG_EMBEDDING_PROVIDER", "")
	defer func() {
		knowledgeService = nil
		searchService = nil
		settingsService = nil
		configDir = ""
	}()

	out, err := executeCommand("--config-dir", dir, "search", "anything")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestRootCmd_UnknownBackend(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(dir+"/config.toml", []byte("[storage]\nbackend = \"cassandra\"\n"), 0o644))
	defer func() {
		settingsService = nil
		configDir = ""
	}()

	_, err := executeCommand("--config-dir", dir, "stats")

	require.Error(t, err)
}

func TestLoadDotEnv_MissingFileIgnored(t *testing.T) {
	assert.NotPanics(t, func() {
		loadDotEnv(t.TempDir() + "/does-not-exist.env")
	})
}

func TestLoadDotEnv_SetsVariables(t *testing.T) {
	path := writeTempFile(t, ".env", "LEXRAG_TEST_DOTENV=loaded\n")
	t.Setenv("LEXRAG_TEST_DOTENV", "")
	require.NoError(t, os.Unsetenv("LEXRAG_TEST_DOTENV"))

	loadDotEnv(path)

	assert.Equal(t, "loaded", os.Getenv("LEXRAG_TEST_DOTENV"))
}

func TestRequireHelpers(t *testing.T) {
	knowledgeService = nil
	searchService = nil
	assert.EqualError(t, requireKnowledge(), "knowledge service not configured")
	assert.EqualError(t, requireSearch(), "search service not configured")
}
