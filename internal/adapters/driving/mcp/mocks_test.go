package mcp

import (
	"context"

	"github.com/custodia-labs/lexrag/internal/core/domain"
	"github.com/custodia-labs/lexrag/internal/core/ports/driving"
)

var (
	_ driving.SearchService    = (*mockSearchService)(nil)
	_ driving.KnowledgeService = (*mockKnowledgeService)(nil)
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	rag      *domain.RAGContext
	context  string
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(_ context.Context, query string, opts domain.SearchOptions) (*domain.RAGContext, error) {
	m.lastOpts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.rag == nil {
		return &domain.RAGContext{Query: query}, nil
	}
	return m.rag, nil
}

func (m *mockSearchService) HybridSearch(ctx context.Context, query string, topK int) (*domain.RAGContext, error) {
	return m.Search(ctx, query, domain.SearchOptions{TopK: topK, Mode: domain.SearchModeHybrid})
}

func (m *mockSearchService) GetContextForQuery(_ context.Context, _ string, _ int) (string, error) {
	return m.context, m.err
}

// mockKnowledgeService is a mock implementation of driving.KnowledgeService.
type mockKnowledgeService struct {
	documents []domain.Document
	document  *domain.Document
	duplicate *domain.DuplicateCheck
	stats     *domain.Stats
	addedID   string
	added     []domain.NewDocument
	removed   []string
	err       error
}

func (m *mockKnowledgeService) AddDocument(_ context.Context, doc domain.NewDocument) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.added = append(m.added, doc)
	return m.addedID, nil
}

func (m *mockKnowledgeService) CheckDuplicate(_ context.Context, _, _ string) (*domain.DuplicateCheck, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.duplicate == nil {
		return &domain.DuplicateCheck{}, nil
	}
	return m.duplicate, nil
}

func (m *mockKnowledgeService) RemoveDocument(_ context.Context, id string) error {
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, id)
	return nil
}

func (m *mockKnowledgeService) ClearAll(_ context.Context) error {
	return m.err
}

func (m *mockKnowledgeService) GetAllDocuments(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockKnowledgeService) GetDocument(_ context.Context, _ string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.document == nil {
		return nil, domain.ErrNotFound
	}
	return m.document, nil
}

func (m *mockKnowledgeService) ReembedDocument(_ context.Context, _ string) (int, error) {
	return 0, m.err
}

func (m *mockKnowledgeService) GetStats(_ context.Context) (*domain.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.stats == nil {
		return &domain.Stats{}, nil
	}
	return m.stats, nil
}
