package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	queryText string
	queryDoc  string
	queryTopK int
	queryJSON bool
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Search a single document",
	Long: `Search one indexed document and print the most relevant chunks.

Examples:
  docquery query -q "refund policy" -i 3f2a...
  docquery query -q "refund policy" -i q3 --top-k 10 --json`,
	RunE: runQuery,
}

func init() {
	rootCmd.AddCommand(queryCmd)
	queryCmd.Flags().StringVarP(&queryText, "query", "q", "", "search query (required)")
	queryCmd.Flags().StringVarP(&queryDoc, "id", "i", "", "document id (required)")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of results (default from config)")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output as JSON")
	queryCmd.MarkFlagRequired("query")
	queryCmd.MarkFlagRequired("id")
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	topK := cfg.Retrieve.TopK
	if queryTopK > 0 {
		topK = queryTopK
	}

	results, err := svc.SingleQuery(cmd.Context(), queryText, queryDoc, topK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if queryJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), queryText)
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s (chunk %d)\n", i+1, r.Relevance, r.DocumentName, r.ChunkIndex)
		fmt.Printf("   %s\n\n", r.Preview)
	}
	return nil
}
