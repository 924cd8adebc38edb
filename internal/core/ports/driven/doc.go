// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - KnowledgeStore: Document and embedding persistence
//   - Chunker: Splits document content into retrieval-sized segments
//   - ConfigStore: Application configuration
//   - Normaliser: Per-format text extraction for file ingestion
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - EmbeddingService: Remote embedding endpoint. Without it, documents are
//     stored but unsearchable, and search returns ErrEmbeddingUnavailable.
//   - AIConfigValidator: Connectivity checks used by the settings commands.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
