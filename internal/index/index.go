package index

import (
	"context"
	"fmt"
	"math"
	"sort"

	"docquery/internal/domain"
	"docquery/internal/port"
)

// Index is a flat inner-product similarity index over one document's chunks.
// All vectors are unit length, so the inner product equals cosine similarity
// and a full scan computes the exact top-k in O(n*d) per query. Per-document
// chunk counts are small (tens to low thousands), which keeps exact search
// cheap; beyond that range the index structure would need revisiting.
//
// An Index is built once and never mutated. Rebuilding a document replaces
// its index wholly.
type Index struct {
	dim     int
	chunks  []domain.Chunk
	vectors [][]float32
}

// Hit pairs a chunk with its similarity score for one query.
type Hit struct {
	Chunk domain.Chunk
	Score float64
}

// Build embeds all chunk texts in a single batched call, L2-normalizes the
// vectors and constructs the index. Either a complete index or an error is
// returned; no partial index is ever observable.
func Build(ctx context.Context, embedder port.Embedder, texts []string) (*Index, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: chunk list is empty", domain.ErrEmptyInput)
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed chunks: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", domain.ErrProvider, len(vectors), len(texts))
	}

	dim := embedder.Dimension()
	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: vector %d has dimension %d, want %d", domain.ErrProvider, i, len(vectors[i]), dim)
		}
		Normalize(vectors[i])
		chunks[i] = domain.Chunk{Seq: i, Text: text, Chars: len(text)}
	}

	return &Index{dim: dim, chunks: chunks, vectors: vectors}, nil
}

// FromParts reconstructs an index from a persisted record. The store has
// already verified that chunk count and vector count agree.
func FromParts(dim int, chunks []domain.Chunk, vectors [][]float32) *Index {
	return &Index{dim: dim, chunks: chunks, vectors: vectors}
}

// Search returns up to k chunks ranked by descending cosine similarity to the
// pre-normalized query vector. Ties are broken by ascending chunk sequence.
// k larger than the chunk count is clamped.
func (ix *Index) Search(query []float32, k int) ([]Hit, error) {
	if ix == nil || len(ix.vectors) == 0 {
		return nil, fmt.Errorf("%w: search called before build", domain.ErrNotBuilt)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidK, k)
	}
	if len(query) != ix.dim {
		return nil, fmt.Errorf("%w: query dimension %d, index dimension %d", domain.ErrModelMismatch, len(query), ix.dim)
	}
	if k > len(ix.chunks) {
		k = len(ix.chunks)
	}

	hits := make([]Hit, len(ix.chunks))
	for i, vec := range ix.vectors {
		hits[i] = Hit{Chunk: ix.chunks[i], Score: dot(query, vec)}
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Chunk.Seq < hits[j].Chunk.Seq
	})

	return hits[:k], nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	return len(ix.chunks)
}

// Dim returns the vector dimension.
func (ix *Index) Dim() int {
	return ix.dim
}

// Chunks returns the ordered chunk list. Callers must not mutate it.
func (ix *Index) Chunks() []domain.Chunk {
	return ix.chunks
}

// Vectors returns the unit-length vectors in chunk order. Callers must not
// mutate them.
func (ix *Index) Vectors() [][]float32 {
	return ix.vectors
}

// Normalize scales v to unit length in place. Applied symmetrically to
// indexed vectors and query vectors so inner product equals cosine
// similarity. A zero vector is left unchanged.
func Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
