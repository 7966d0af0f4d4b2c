package domain

import "errors"

// Every failure mode is a distinct sentinel so the caller can tell whether to
// re-ingest, rebuild, or report. Wrap with fmt.Errorf("%w: ...") and match
// with errors.Is.
var (
	// ErrEmptyInput is returned for an empty chunk list or blank query text.
	ErrEmptyInput = errors.New("empty input")

	// ErrInvalidK is returned for a non-positive result count.
	ErrInvalidK = errors.New("invalid k")

	// ErrNotBuilt is returned when an index is searched before being built.
	ErrNotBuilt = errors.New("index not built")

	// ErrNotFound is returned when no persisted record exists for an id.
	ErrNotFound = errors.New("index not found")

	// ErrCorruptIndex is returned when the parts of a persisted record
	// disagree with each other. Not retried.
	ErrCorruptIndex = errors.New("corrupt index record")

	// ErrModelMismatch is returned when a stored dimension differs from the
	// active embedding model's dimension.
	ErrModelMismatch = errors.New("embedding model mismatch")

	// ErrNotIndexed is returned when a document is added to the collection
	// before it has been indexed.
	ErrNotIndexed = errors.New("document not indexed")

	// ErrUnknownDocument is returned when a query names a document that is
	// not a collection member.
	ErrUnknownDocument = errors.New("unknown document")

	// ErrEmptyCollection is returned when a multi-document query has no
	// participating documents.
	ErrEmptyCollection = errors.New("collection is empty")

	// ErrProvider is returned for embedding provider failures. These are
	// structural, not transient, and are never retried.
	ErrProvider = errors.New("embedding provider error")
)
