package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/lexrag/internal/core/domain"
)

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question or keywords to retrieve context for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to return (default 5)"`
	Mode  string `json:"mode,omitempty" jsonschema:"ranking mode: hybrid (default) or vector"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Query          string               `json:"query"`
	Results        []SearchResultOutput `json:"results"`
	Sources        []string             `json:"sources"`
	Confidence     float64              `json:"confidence"`
	TotalDocuments int                  `json:"total_documents"`
	Count          int                  `json:"count"`
}

// SearchResultOutput represents a single ranked chunk.
type SearchResultOutput struct {
	DocumentID   string  `json:"document_id"`
	Source       string  `json:"source"`
	ChunkIndex   int     `json:"chunk_index"`
	Chunk        string  `json:"chunk"`
	Similarity   float64 `json:"similarity"`
	VectorScore  float64 `json:"vector_score"`
	LexicalScore float64 `json:"lexical_score"`
}

// ContextInput is the input schema for the get_context tool.
type ContextInput struct {
	Query string `json:"query" jsonschema:"the question to retrieve context for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"maximum number of chunks to include (default 5)"`
}

// ContextOutput is the output schema for the get_context tool.
type ContextOutput struct {
	Context string `json:"context"`
	Found   bool   `json:"found"`
}

// AddDocumentInput is the input schema for the add_document tool.
type AddDocumentInput struct {
	Name     string         `json:"name" jsonschema:"document name, e.g. the original file name"`
	Content  string         `json:"content" jsonschema:"full document text"`
	Type     string         `json:"type,omitempty" jsonschema:"category tag, e.g. contract"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"extra metadata stored with the document"`
	Force    bool           `json:"force,omitempty" jsonschema:"ingest even if a matching document exists"`
}

// AddDocumentOutput is the output schema for the add_document tool.
type AddDocumentOutput struct {
	DocumentID  string `json:"document_id,omitempty"`
	Skipped     bool   `json:"skipped"`
	DuplicateOf string `json:"duplicate_of,omitempty"`
	MatchedBy   string `json:"matched_by,omitempty"`
}

// RemoveDocumentInput is the input schema for the remove_document tool.
type RemoveDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"ID of the document to remove"`
}

// RemoveDocumentOutput is the output schema for the remove_document tool.
type RemoveDocumentOutput struct {
	Removed bool `json:"removed"`
}

// StatsInput is the (empty) input schema for the stats tool.
type StatsInput struct{}

// StatsOutput is the output schema for the stats tool.
type StatsOutput struct {
	Documents  int `json:"documents"`
	Embeddings int `json:"embeddings"`
	Chunks     int `json:"chunks"`
	CacheSize  int `json:"cache_size"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Rank knowledge base chunks against a query with hybrid vector and keyword scoring",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_context",
		Description: "Retrieve a formatted context block for a question, ready to include in a prompt",
	}, s.handleGetContext)

	if s.ports.Knowledge == nil {
		return
	}

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "add_document",
		Description: "Ingest a text document into the knowledge base",
	}, s.handleAddDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "remove_document",
		Description: "Remove a document and its embeddings from the knowledge base",
	}, s.handleRemoveDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "stats",
		Description: "Summarise the knowledge base",
	}, s.handleStats)
}

func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	opts := domain.SearchOptions{TopK: input.TopK, Mode: domain.SearchMode(input.Mode)}
	rag, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:          rag.Query,
		Results:        make([]SearchResultOutput, len(rag.RelevantChunks)),
		Sources:        rag.SourceDocuments,
		Confidence:     rag.Confidence,
		TotalDocuments: rag.TotalDocuments,
		Count:          len(rag.RelevantChunks),
	}
	if output.Sources == nil {
		output.Sources = []string{}
	}
	for i, r := range rag.RelevantChunks {
		output.Results[i] = SearchResultOutput{
			DocumentID:   r.DocumentID,
			Source:       r.Source,
			ChunkIndex:   r.ChunkIndex,
			Chunk:        r.Chunk,
			Similarity:   r.Similarity,
			VectorScore:  r.VectorScore,
			LexicalScore: r.LexicalScore,
		}
	}

	return nil, output, nil
}

func (s *Server) handleGetContext(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ContextInput,
) (*mcp.CallToolResult, ContextOutput, error) {
	text, err := s.ports.Search.GetContextForQuery(ctx, input.Query, input.TopK)
	if err != nil {
		return nil, ContextOutput{}, err
	}
	return nil, ContextOutput{Context: text, Found: text != ""}, nil
}

func (s *Server) handleAddDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AddDocumentInput,
) (*mcp.CallToolResult, AddDocumentOutput, error) {
	if !input.Force {
		check, err := s.ports.Knowledge.CheckDuplicate(ctx, input.Name, input.Content)
		if err != nil {
			return nil, AddDocumentOutput{}, fmt.Errorf("checking duplicates: %w", err)
		}
		if check.Exists {
			return nil, AddDocumentOutput{
				Skipped:     true,
				DuplicateOf: check.Existing.ID,
				MatchedBy:   check.MatchedBy,
			}, nil
		}
	}

	id, err := s.ports.Knowledge.AddDocument(ctx, domain.NewDocument{
		Name:     input.Name,
		Content:  input.Content,
		Type:     input.Type,
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, AddDocumentOutput{}, err
	}
	return nil, AddDocumentOutput{DocumentID: id}, nil
}

func (s *Server) handleRemoveDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RemoveDocumentInput,
) (*mcp.CallToolResult, RemoveDocumentOutput, error) {
	if err := s.ports.Knowledge.RemoveDocument(ctx, input.DocumentID); err != nil {
		return nil, RemoveDocumentOutput{}, err
	}
	return nil, RemoveDocumentOutput{Removed: true}, nil
}

func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, StatsOutput, error) {
	stats, err := s.ports.Knowledge.GetStats(ctx)
	if err != nil {
		return nil, StatsOutput{}, err
	}
	return nil, StatsOutput{
		Documents:  stats.DocumentCount,
		Embeddings: stats.EmbeddingCount,
		Chunks:     stats.TotalChunks,
		CacheSize:  stats.CacheSize,
	}, nil
}
