package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docquery/config"
	"docquery/internal/embedding"
	"docquery/internal/port"
	"docquery/internal/registry"
	"docquery/internal/service"
	"docquery/internal/store"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "docquery",
	Short: "docquery - semantic retrieval over ingested documents",
	Long: `docquery indexes document text as embedding vectors and answers
natural-language queries with the most relevant chunks, attributed to their
source documents, for downstream answer synthesis.

Example usage:
  docquery ingest ./docs --collect        # Index all text files and add to the collection
  docquery query -q "refund policy" -i ID # Search one document
  docquery multiquery -q "refund policy"  # Search the whole collection
  docquery serve                          # Expose the HTTP API`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		// .env is optional; real environments set keys directly.
		godotenv.Load()

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./docquery.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "data directory (default is current directory)")
}

// newEmbedder builds the configured embedding provider.
func newEmbedder(cfg *config.Config) (port.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return embedding.NewOpenAICompatibleEmbedder(cfg.Embedding.APIKeyEnv, cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.BatchSize)
	case "ollama":
		return embedding.NewOllamaEmbedder(cfg.Embedding.Model, cfg.Embedding.BaseURL, cfg.Embedding.BatchSize)
	case "mock":
		return embedding.NewMockEmbedder(cfg.Embedding.Dimension), nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// openService wires the store, registry and retrieval service. The caller
// closes the returned store.
func openService(cfg *config.Config, dir string) (*service.Service, *store.BoltStore, error) {
	if err := config.EnsureDataDir(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, nil, err
	}

	st, err := store.NewBoltStore(config.IndexDBPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index store: %w", err)
	}

	reg, err := registry.NewRegistry(st)
	if err != nil {
		st.Close()
		return nil, nil, fmt.Errorf("failed to open collection registry: %w", err)
	}

	svc := service.New(embedder, st, reg, service.Options{
		PreviewChars: cfg.Retrieve.PreviewChars,
		CacheSize:    cfg.Retrieve.CacheSize,
		CacheTTL:     time.Duration(cfg.Retrieve.CacheTTLSeconds) * time.Second,
	})
	return svc, st, nil
}
