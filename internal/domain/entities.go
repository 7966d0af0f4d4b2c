package domain

import "time"

// Chunk is an ordered text segment within a document. Seq is the chunk's
// position in the document's chunk list and is used for tie-breaking and
// citation display.
type Chunk struct {
	Seq   int
	Text  string
	Chars int
}

// SearchResult is a transient per-query result pairing a chunk with its
// cosine similarity score and source document.
type SearchResult struct {
	Chunk Chunk
	Score float64
	DocID string
}

// CollectionEntry is a non-owning reference to an indexed document; display
// metadata only, never vector or chunk data.
type CollectionEntry struct {
	DocID      string `json:"document_id"`
	Name       string `json:"name"`
	ChunkCount int    `json:"chunk_count"`
}

// IndexMeta describes a persisted document index.
type IndexMeta struct {
	DocID      string    `json:"document_id"`
	Name       string    `json:"name"`
	Model      string    `json:"model_name"`
	Dimension  int       `json:"dimension"`
	ChunkCount int       `json:"chunk_count"`
	CreatedAt  time.Time `json:"created_at"`
}

// QueryResult is the result shape returned to the orchestration layer. The
// preview is a bounded excerpt of the source chunk, sufficient for citation
// display without a second storage read.
type QueryResult struct {
	ChunkIndex   int     `json:"chunk_index"`
	Preview      string  `json:"preview"`
	Relevance    float64 `json:"relevance_score"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
}
