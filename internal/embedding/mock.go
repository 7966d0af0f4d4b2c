package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// MockEmbedder produces deterministic embeddings without network access.
// Each word hashes to one dimension, so texts that share words map to nearby
// vectors; enough signal for tests and offline runs.
type MockEmbedder struct {
	dimension int
}

func NewMockEmbedder(dimension int) *MockEmbedder {
	if dimension <= 0 {
		dimension = 64
	}
	return &MockEmbedder{dimension: dimension}
}

func (e *MockEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, e.dimension)
		for _, word := range tokenize(text) {
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%uint32(e.dimension)]++
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func (e *MockEmbedder) Dimension() int {
	return e.dimension
}

func (e *MockEmbedder) ModelName() string {
	return "mock"
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
