package vectorstore

import "errors"

var (
	// ErrStoreUnavailable indicates the backing index cannot be reached.
	// Upserts are idempotent by ID, so the whole operation is safe to
	// retry; retry policy belongs to the caller.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrStoreRequired is returned when a backing store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
