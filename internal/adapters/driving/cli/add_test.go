package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestAddCmd_Use(t *testing.T) {
	assert.Equal(t, "add [file]...", addCmd.Use)
}

func TestAddCmd_RequiresArgs(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("add")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestAddCmd_AddsFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "nda.txt", "The receiving party shall keep all information confidential. The term is two years.")

	out, err := executeCommand("add", "--type", "contract", "--meta", "client=acme", path)

	require.NoError(t, err)
	assert.Contains(t, out, "Added "+path)
	assert.Contains(t, out, "Knowledge base: 1 documents")

	docs, err := knowledgeService.GetAllDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "nda.txt", docs[0].Name)
	assert.Equal(t, "contract", docs[0].Type)
	assert.Equal(t, "acme", docs[0].Metadata["client"])
	assert.Equal(t, path, docs[0].Metadata[domain.MetaPath])
	assert.Equal(t, "text", docs[0].Metadata[domain.MetaFormat])
}

func TestAddCmd_NormalisesMarkdown(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "lease.md", "# Lease Terms\n\nRent is **due** on the [first day](https://example.com).")

	_, err := executeCommand("add", path)
	require.NoError(t, err)

	docs, err := knowledgeService.GetAllDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "Lease Terms\n\nRent is due on the first day.", docs[0].Content)
	assert.Equal(t, "markdown", docs[0].Metadata[domain.MetaFormat])
	assert.Equal(t, "Lease Terms", docs[0].Metadata[domain.MetaTitle])
}

func TestAddCmd_Raw(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	content := "# Lease Terms\n\nRent is **due** monthly."
	path := writeTempFile(t, "lease.md", content)

	_, err := executeCommand("add", "--raw", path)
	require.NoError(t, err)

	docs, err := knowledgeService.GetAllDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, content, docs[0].Content)
	assert.NotContains(t, docs[0].Metadata, domain.MetaFormat)
}

func TestAddCmd_UnsupportedBinary(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "scan.pdf", "%PDF-\xff\xfe\x00")

	_, err := executeCommand("add", path)

	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}

func TestAddCmd_CustomName(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "scan-0042.txt", "Lease agreement for the premises.")

	_, err := executeCommand("add", "--name", "lease.txt", path)
	require.NoError(t, err)

	docs, err := knowledgeService.GetAllDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "lease.txt", docs[0].Name)
}

func TestAddCmd_NameWithMultipleFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	a := writeTempFile(t, "a.txt", "alpha")
	b := writeTempFile(t, "b.txt", "beta")

	_, err := executeCommand("add", "--name", "x.txt", a, b)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAddCmd_Duplicate(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	path := writeTempFile(t, "nda.txt", "The term is two years.")
	_, err := executeCommand("add", path)
	require.NoError(t, err)

	t.Run("rejected without force", func(t *testing.T) {
		_, err := executeCommand("add", path)

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)
		assert.Contains(t, err.Error(), "--force")
	})

	t.Run("accepted with force", func(t *testing.T) {
		_, err := executeCommand("add", "--force", path)
		require.NoError(t, err)

		stats, err := knowledgeService.GetStats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.DocumentCount)
	})
}

func TestAddCmd_PartialFailure(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	good := writeTempFile(t, "good.txt", "Some content.")

	out, err := executeCommand("add", good, "/nonexistent/missing.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing.txt")
	assert.Contains(t, out, "Added "+good)
}

func TestAddCmd_NotConfigured(t *testing.T) {
	servicesInjected = true
	defer func() { servicesInjected = false }()

	_, err := executeCommand("add", "whatever.txt")

	assert.EqualError(t, err, "knowledge service not configured")
}

func TestParseMeta(t *testing.T) {
	tests := []struct {
		name    string
		pairs   []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", pairs: nil, want: map[string]any{}},
		{name: "single", pairs: []string{"client=acme"}, want: map[string]any{"client": "acme"}},
		{name: "trims", pairs: []string{" k = v "}, want: map[string]any{"k": "v"}},
		{name: "value with equals", pairs: []string{"q=a=b"}, want: map[string]any{"q": "a=b"}},
		{name: "empty value", pairs: []string{"k="}, want: map[string]any{"k": ""}},
		{name: "missing equals", pairs: []string{"novalue"}, wantErr: true},
		{name: "empty key", pairs: []string{"=v"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMeta(tt.pairs)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
