package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"docquery/config"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show indexed documents and collection state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath := config.IndexDBPath(rootDir)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		fmt.Println("No index found. Run 'docquery ingest' first.")
		return nil
	}

	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	metas, err := svc.ListDocuments()
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}
	entries, err := svc.ListCollection()
	if err != nil {
		return fmt.Errorf("failed to list collection: %w", err)
	}
	inCollection := make(map[string]bool, len(entries))
	for _, e := range entries {
		inCollection[e.DocID] = true
	}

	fmt.Printf("Index:      %s\n", dbPath)
	fmt.Printf("Provider:   %s (%s)\n", cfg.Embedding.Provider, cfg.Embedding.Model)
	fmt.Printf("Documents:  %d\n", len(metas))
	fmt.Printf("Collection: %d\n\n", len(entries))

	for _, m := range metas {
		marker := " "
		if inCollection[m.DocID] {
			marker = "*"
		}
		fmt.Printf("  %s %s  %s (%d chunks, dim %d, %s)\n",
			marker, m.DocID, m.Name, m.ChunkCount, m.Dimension, m.CreatedAt.Format("2006-01-02 15:04"))
	}
	if len(metas) > 0 {
		fmt.Println("\n  * = collection member")
	}
	return nil
}
