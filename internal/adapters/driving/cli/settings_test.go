package cli

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/adapters/driven/ai"
	"github.com/custodia-labs/lexrag/internal/adapters/driven/config/file"
	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/services"
)

// Test helper functions in settings.go

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Short key",
			input:    "abc123",
			expected: "****",
		},
		{
			name:     "Exactly 8 chars",
			input:    "12345678",
			expected: "****",
		},
		{
			name:     "Long key",
			input:    "sk-1234567890abcdef",
			expected: "sk-1...cdef",
		},
		{
			name:     "Very long key",
			input:    "sk-proj-1234567890abcdefghijklmnop",
			expected: "sk-p...mnop",
		},
		{
			name:     "Empty key",
			input:    "",
			expected: "****",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := maskAPIKey(tt.input)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseChoice(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		maxVal     int
		defaultVal int
		expected   int
	}{
		{
			name:       "Empty input returns default",
			input:      "",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Valid choice within range",
			input:      "3",
			maxVal:     5,
			defaultVal: 1,
			expected:   3,
		},
		{
			name:       "Choice below minimum returns default",
			input:      "0",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Choice above maximum returns default",
			input:      "6",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Invalid input returns default",
			input:      "abc",
			maxVal:     5,
			defaultVal: 2,
			expected:   2,
		},
		{
			name:       "Negative number returns default",
			input:      "-1",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Whitespace returns default",
			input:      "   ",
			maxVal:     5,
			defaultVal: 1,
			expected:   1,
		},
		{
			name:       "Maximum value is valid",
			input:      "5",
			maxVal:     5,
			defaultVal: 1,
			expected:   5,
		},
		{
			name:       "Minimum value is valid",
			input:      "1",
			maxVal:     5,
			defaultVal: 3,
			expected:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseChoice(tt.input, tt.maxVal, tt.defaultVal)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestSettingsCmd_Subcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range settingsCmd.Commands() {
		names = append(names, cmd.Name())
	}
	assert.ElementsMatch(t, []string{"show", "embedding"}, names)
	for _, cmd := range []*cobra.Command{settingsCmd, settingsShowCmd, settingsEmbeddingCmd} {
		assert.Equal(t, "true", cmd.Annotations[annotationNoStore], cmd.Name())
	}
}

func TestSettingsShowCmd_Defaults(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := executeCommand("settings", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "[Embedding]")
	assert.Contains(t, out, "Provider: (not set)")
	assert.Contains(t, out, "Status: not configured")
	assert.Contains(t, out, "Chunk size: 500")
	assert.Contains(t, out, "Top K: 5")
	assert.Contains(t, out, "Requests/second: unlimited")
	assert.Contains(t, out, "Backend: sqlite")
	assert.Contains(t, out, "Warning:")
}

func TestSettingsEmbeddingCmd_Flags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	t.Run("openai with key and dimensions", func(t *testing.T) {
		out, err := executeCommand("settings", "embedding",
			"--provider", "openai",
			"--api-key", "sk-test-1234567890",
			"--model", "text-embedding-3-large",
			"--dimensions", "256",
			"--no-verify")
		require.NoError(t, err)
		assert.Contains(t, out, "Embedding provider configured")

		settings, err := settingsService.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOpenAI, settings.Embedding.Provider)
		assert.Equal(t, "text-embedding-3-large", settings.Embedding.Model)
		assert.Equal(t, "sk-test-1234567890", settings.Embedding.APIKey)
		assert.Equal(t, 256, settings.Embedding.Dimensions)

		show, err := executeCommand("settings")
		require.NoError(t, err)
		assert.Contains(t, show, "API Key: sk-t...7890")
		assert.NotContains(t, show, "sk-test-1234567890")
		assert.Contains(t, show, "Dimensions: 256")
	})

	t.Run("ollama with base url and default model", func(t *testing.T) {
		_, err := executeCommand("settings", "embedding",
			"--provider", "ollama",
			"--base-url", "http://gpu-box:11434",
			"--no-verify")
		require.NoError(t, err)

		settings, err := settingsService.Get()
		require.NoError(t, err)
		assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
		assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
		assert.Equal(t, "http://gpu-box:11434", settings.Embedding.BaseURL)
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := executeCommand("settings", "embedding", "--provider", "cohere")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing api key", func(t *testing.T) {
		_, err := executeCommand("settings", "embedding", "--provider", "gemini", "--no-verify")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "API key required")
	})

	t.Run("negative dimensions", func(t *testing.T) {
		_, err := executeCommand("settings", "embedding", "--provider", "ollama", "--dimensions", "-1", "--no-verify")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsEmbeddingCmd_Interactive(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	// Choice 1 is Ollama; empty model line keeps the default.
	out, err := executeCommandWithInput("1\n\n", "settings", "embedding")

	require.NoError(t, err)
	assert.Contains(t, out, "Select Embedding Provider")
	assert.Contains(t, out, "Validating configuration... OK")

	settings, err := settingsService.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.AIProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "nomic-embed-text", settings.Embedding.Model)
}

func TestSettingsEmbeddingCmd_VerifyAgainstServer(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	settingsService = newValidatingSettingsService(t)

	_, err := executeCommand("settings", "embedding", "--provider", "ollama", "--base-url", server.URL)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
}

func TestSettingsCmd_NotConfigured(t *testing.T) {
	servicesInjected = true
	defer func() { servicesInjected = false }()

	_, err := executeCommand("settings", "show")
	assert.EqualError(t, err, "settings service not configured")
}

// newValidatingSettingsService pings real endpoints on validation.
func newValidatingSettingsService(t *testing.T) *services.SettingsService {
	t.Helper()
	configStore, err := file.NewConfigStore(t.TempDir())
	require.NoError(t, err)
	svc := services.NewSettingsService(configStore, ai.NewConfigValidator())
	svc.SetEnvLookup(func(string) string { return "" })
	return svc
}
