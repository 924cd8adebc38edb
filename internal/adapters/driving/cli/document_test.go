package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// addTestDocument ingests a document through the wired knowledge service.
func addTestDocument(t *testing.T, name, content string) string {
	t.Helper()
	id, err := knowledgeService.AddDocument(context.Background(), domain.NewDocument{
		Name:     name,
		Content:  content,
		Type:     "contract",
		Metadata: map[string]any{"client": "acme"},
	})
	require.NoError(t, err)
	return id
}

func TestDocumentCmd_Use(t *testing.T) {
	assert.Equal(t, "document", documentCmd.Use)
	assert.Contains(t, documentCmd.Aliases, "doc")
}

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commands := documentCmd.Commands()
	commandNames := make([]string, 0, len(commands))
	for _, cmd := range commands {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"list", "get", "content", "remove", "reembed"}, commandNames)
}

func TestDocumentListCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	t.Run("empty", func(t *testing.T) {
		out, err := executeCommand("document", "list")
		require.NoError(t, err)
		assert.Contains(t, out, "No documents found.")
	})

	t.Run("lists documents", func(t *testing.T) {
		id := addTestDocument(t, "nda.txt", "The term is two years. Either party may terminate.")

		out, err := executeCommand("document", "list")

		require.NoError(t, err)
		assert.Contains(t, out, id)
		assert.Contains(t, out, "nda.txt")
		assert.Contains(t, out, "contract")
		assert.Contains(t, out, "Total: 1 documents")
	})

	t.Run("rejects args", func(t *testing.T) {
		_, err := executeCommand("document", "list", "extra")
		require.Error(t, err)
	})
}

func TestDocumentGetCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	id := addTestDocument(t, "nda.txt", "The term is two years.")

	t.Run("shows info and metadata", func(t *testing.T) {
		out, err := executeCommand("document", "get", id)

		require.NoError(t, err)
		assert.Contains(t, out, "Document: "+id)
		assert.Contains(t, out, "Name:     nda.txt")
		assert.Contains(t, out, "client: acme")
	})

	t.Run("not found", func(t *testing.T) {
		_, err := executeCommand("document", "get", "missing")

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("requires one arg", func(t *testing.T) {
		_, err := executeCommand("document", "get")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "accepts 1 arg(s)")
	})
}

func TestDocumentContentCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	id := addTestDocument(t, "nda.txt", "The term is two years.")

	out, err := executeCommand("document", "content", id)

	require.NoError(t, err)
	assert.Equal(t, "The term is two years.\n", out)
}

func TestDocumentRemoveCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	id := addTestDocument(t, "nda.txt", "The term is two years.")

	out, err := executeCommand("document", "remove", id)

	require.NoError(t, err)
	assert.Contains(t, out, "Document "+id+" removed.")

	stats, err := knowledgeService.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
	assert.Equal(t, 0, stats.EmbeddingCount)
}

func TestDocumentReembedCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	id := addTestDocument(t, "nda.txt", "The term is two years. Either party may terminate.")

	out, err := executeCommand("document", "reembed", id)

	require.NoError(t, err)
	assert.Contains(t, out, "re-embedded")

	_, err = executeCommand("document", "reembed", "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentCmds_NotConfigured(t *testing.T) {
	servicesInjected = true
	defer func() { servicesInjected = false }()

	for _, args := range [][]string{
		{"document", "list"},
		{"document", "get", "x"},
		{"document", "content", "x"},
		{"document", "remove", "x"},
		{"document", "reembed", "x"},
	} {
		_, err := executeCommand(args...)
		assert.EqualError(t, err, "knowledge service not configured", args)
	}
}
