package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnsupportedType indicates an unknown provider or storage backend.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrEmbeddingService matches any *EmbeddingServiceError.
	ErrEmbeddingService = errors.New("embedding service error")

	// ErrDimensionMismatch matches any *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrStore matches any *StoreError.
	ErrStore = errors.New("store error")
)

// EmbeddingServiceError reports a failed call to the remote embedding endpoint:
// network failure, auth or quota rejection, timeout, or a malformed response.
type EmbeddingServiceError struct {
	Op  string
	Err error
}

// NewEmbeddingServiceError wraps err as an EmbeddingServiceError.
func NewEmbeddingServiceError(op string, err error) *EmbeddingServiceError {
	return &EmbeddingServiceError{Op: op, Err: err}
}

func (e *EmbeddingServiceError) Error() string {
	if e.Err == nil {
		return "embedding service: " + e.Op
	}
	return fmt.Sprintf("embedding service: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *EmbeddingServiceError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrEmbeddingService.
func (e *EmbeddingServiceError) Is(target error) bool {
	return target == ErrEmbeddingService
}

// DimensionMismatchError reports two vectors of different length, typically
// because the embedding model changed between ingestion and query.
type DimensionMismatchError struct {
	Expected int
	Got      int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}

// Is reports whether target is ErrDimensionMismatch.
func (e *DimensionMismatchError) Is(target error) bool {
	return target == ErrDimensionMismatch
}

// StoreError reports a persistence failure (unavailable, quota, corruption).
type StoreError struct {
	Op  string
	Err error
}

// NewStoreError wraps err as a StoreError.
// A nil err yields nil so adapters can wrap unconditionally.
func NewStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrStore.
func (e *StoreError) Is(target error) bool {
	return target == ErrStore
}
