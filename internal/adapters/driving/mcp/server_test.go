package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

func TestNewServer(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{}
		err := ports.Validate()
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("search only is valid", func(t *testing.T) {
		ports := &Ports{
			Search: &mockSearchService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})

	t.Run("all ports is valid", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Knowledge: &mockKnowledgeService{},
		}
		err := ports.Validate()
		assert.NoError(t, err)
	})
}

func connectClient(t *testing.T, ports *Ports) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()

	server, err := NewServer(ports)
	require.NoError(t, err)

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })
	return cs
}

func toolNames(t *testing.T, cs *mcp.ClientSession) []string {
	t.Helper()
	res, err := cs.ListTools(context.Background(), nil)
	require.NoError(t, err)
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	return names
}

func TestServer_ToolRegistration(t *testing.T) {
	t.Run("search only", func(t *testing.T) {
		cs := connectClient(t, &Ports{Search: &mockSearchService{}})
		assert.ElementsMatch(t, []string{"search", "get_context"}, toolNames(t, cs))
	})

	t.Run("with knowledge", func(t *testing.T) {
		cs := connectClient(t, &Ports{Search: &mockSearchService{}, Knowledge: &mockKnowledgeService{}})
		assert.ElementsMatch(t,
			[]string{"search", "get_context", "add_document", "remove_document", "stats"},
			toolNames(t, cs))
	})
}

func TestServer_EndToEnd(t *testing.T) {
	ctx := context.Background()
	search := &mockSearchService{
		context: "Context from knowledge base:\n\n[Source: nda.txt]\nThe term is two years.",
		rag: &domain.RAGContext{
			Query: "term",
			RelevantChunks: []domain.SearchResult{
				{Chunk: "The term is two years.", Similarity: 0.8, Source: "nda.txt", DocumentID: "d1"},
			},
			SourceDocuments: []string{"nda.txt"},
			Confidence:      0.8,
			TotalDocuments:  1,
		},
	}
	knowledge := &mockKnowledgeService{
		addedID:   "new-id",
		documents: []domain.Document{{ID: "d1", Name: "nda.txt", Content: "The term is two years.", Chunks: []string{"The term is two years."}}},
		document:  &domain.Document{ID: "d1", Name: "nda.txt", Content: "The term is two years."},
	}
	cs := connectClient(t, &Ports{Search: search, Knowledge: knowledge})

	t.Run("search", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "search",
			Arguments: map[string]any{"query": "term", "top_k": 3, "mode": "vector"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)

		var out SearchOutput
		require.NoError(t, json.Unmarshal([]byte(res.Content[0].(*mcp.TextContent).Text), &out))
		assert.Equal(t, 1, out.Count)
		assert.Equal(t, []string{"nda.txt"}, out.Sources)
		assert.Equal(t, 3, search.lastOpts.TopK)
		assert.Equal(t, domain.SearchModeVector, search.lastOpts.Mode)
	})

	t.Run("get_context", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "get_context",
			Arguments: map[string]any{"query": "term"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "two years")
	})

	t.Run("add_document", func(t *testing.T) {
		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "add_document",
			Arguments: map[string]any{"name": "lease.txt", "content": "Rent is due monthly.", "type": "lease"},
		})
		require.NoError(t, err)
		require.False(t, res.IsError)
		assert.Contains(t, res.Content[0].(*mcp.TextContent).Text, "new-id")
		require.Len(t, knowledge.added, 1)
		assert.Equal(t, "lease", knowledge.added[0].Type)
	})

	t.Run("documents resource", func(t *testing.T) {
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "lexrag://documents"})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Contains(t, res.Contents[0].Text, "nda.txt")
	})

	t.Run("document content resource", func(t *testing.T) {
		res, err := cs.ReadResource(ctx, &mcp.ReadResourceParams{URI: "lexrag://documents/d1"})
		require.NoError(t, err)
		require.Len(t, res.Contents, 1)
		assert.Equal(t, "The term is two years.", res.Contents[0].Text)
	})

	t.Run("tool error is reported in result", func(t *testing.T) {
		search.err = errors.New("no embedder")
		defer func() { search.err = nil }()

		res, err := cs.CallTool(ctx, &mcp.CallToolParams{
			Name:      "search",
			Arguments: map[string]any{"query": "term"},
		})
		require.NoError(t, err)
		assert.True(t, res.IsError)
	})
}
