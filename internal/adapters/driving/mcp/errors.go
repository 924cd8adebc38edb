// Package mcp provides an MCP (Model Context Protocol) server adapter for lexrag.
// It lets a chat or query layer retrieve context from the knowledge base and
// manage its documents.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")
