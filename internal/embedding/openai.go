package embedding

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"docquery/internal/domain"
)

const defaultBatch = 100

// OpenAIEmbedder generates embeddings through an OpenAI-compatible API.
// Provider failures are structural, not transient, so they are reported as
// domain.ErrProvider and never retried.
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dim    int
	batch  int
}

// NewOpenAIEmbedder creates an embedder against api.openai.com using the key
// found in the named environment variable.
func NewOpenAIEmbedder(apiKeyEnv, model string, batchSize int) (*OpenAIEmbedder, error) {
	return NewOpenAICompatibleEmbedder(apiKeyEnv, model, "", batchSize)
}

// NewOllamaEmbedder creates an embedder against a local Ollama server.
func NewOllamaEmbedder(model, baseURL string, batchSize int) (*OpenAIEmbedder, error) {
	if baseURL == "" {
		baseURL = "http://localhost:11434/v1"
	}
	cfg := openai.DefaultConfig("ollama")
	cfg.BaseURL = baseURL
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dimensionFor(model),
		batch:  normalizeBatch(batchSize),
	}, nil
}

// NewOpenAICompatibleEmbedder creates an embedder against any endpoint that
// speaks the OpenAI embeddings protocol.
func NewOpenAICompatibleEmbedder(apiKeyEnv, model, baseURL string, batchSize int) (*OpenAIEmbedder, error) {
	apiKey := os.Getenv(apiKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("API key not found in environment variable: %s", apiKeyEnv)
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dim:    dimensionFor(model),
		batch:  normalizeBatch(batchSize),
	}, nil
}

func normalizeBatch(n int) int {
	if n <= 0 {
		return defaultBatch
	}
	return n
}

func dimensionFor(model string) int {
	switch model {
	case "text-embedding-3-large":
		return 3072
	case "text-embedding-3-small", "text-embedding-ada-002":
		return 1536
	case "nomic-embed-text":
		return 768
	case "mxbai-embed-large":
		return 1024
	case "all-minilm":
		return 384
	}
	return 1536
}

// Embed generates one vector per input text, in order. Requests are batched
// internally; vectors are restored to input order via the response index.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += e.batch {
		end := i + e.batch
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[i:end])
		if err != nil {
			return nil, err
		}
		all = append(all, batch...)
	}
	return all, nil
}

func (e *OpenAIEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", domain.ErrProvider, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, fmt.Errorf("%w: embedding index %d out of range", domain.ErrProvider, d.Index)
		}
		if len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("%w: model returned dimension %d, want %d", domain.ErrProvider, len(d.Embedding), e.dim)
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Dimension() int {
	return e.dim
}

func (e *OpenAIEmbedder) ModelName() string {
	return e.model
}
