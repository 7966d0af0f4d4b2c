package port

import "docquery/internal/domain"

// Chunker splits document text into ordered chunks ready for embedding.
type Chunker interface {
	Chunk(text string) []domain.Chunk
}
