package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for docquery.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Ingest    IngestConfig    `yaml:"ingest"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Server    ServerConfig    `yaml:"server"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "mock"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
	BaseURL   string `yaml:"base_url"`    // override for OpenAI-compatible endpoints
	Dimension int    `yaml:"dimension"`   // used by the mock provider
	BatchSize int    `yaml:"batch_size"`
}

// ChunkingConfig tunes the word-window chunker.
type ChunkingConfig struct {
	ChunkWords    int `yaml:"chunk_words"`
	OverlapWords  int `yaml:"overlap_words"`
	MinChunkChars int `yaml:"min_chunk_chars"`
}

// IngestConfig holds file selection patterns for directory ingestion.
type IngestConfig struct {
	Includes []string `yaml:"includes"`
	Excludes []string `yaml:"excludes"`
}

// RetrieveConfig holds query defaults.
type RetrieveConfig struct {
	TopK            int `yaml:"top_k"`
	KTotal          int `yaml:"k_total"`
	PreviewChars    int `yaml:"preview_chars"`
	CacheSize       int `yaml:"cache_size"`
	CacheTTLSeconds int `yaml:"cache_ttl_seconds"`
}

// ServerConfig holds the HTTP boundary configuration.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 1536,
			BatchSize: 100,
		},
		Chunking: ChunkingConfig{
			ChunkWords:    500,
			OverlapWords:  50,
			MinChunkChars: 50,
		},
		Ingest: IngestConfig{
			Includes: []string{"**/*.txt", "**/*.md"},
			Excludes: []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"},
		},
		Retrieve: RetrieveConfig{
			TopK:            5,
			KTotal:          8,
			PreviewChars:    200,
			CacheSize:       100,
			CacheTTLSeconds: 300,
		},
		Server: ServerConfig{
			Addr:           ":8000",
			AllowedOrigins: []string{"http://localhost:3000"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file, falling back to defaults when
// the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for docquery.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "docquery.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".docquery", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// IndexDBPath returns the path to the index database.
func IndexDBPath(dir string) string {
	return filepath.Join(dir, ".docquery", "index.db")
}

// EnsureDataDir ensures the .docquery directory exists.
func EnsureDataDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".docquery"), 0755)
}
