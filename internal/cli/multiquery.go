package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	multiText   string
	multiDocs   []string
	multiKTotal int
	multiJSON   bool
)

var multiQueryCmd = &cobra.Command{
	Use:   "multiquery",
	Short: "Search across the collection",
	Long: `Search several indexed documents at once and print a single ranked
list of the most relevant chunks across all of them. With no --id flags the
whole collection is searched.

Examples:
  docquery multiquery -q "refund policy"
  docquery multiquery -q "refund policy" -i q3 -i q4 --k-total 12`,
	RunE: runMultiQuery,
}

func init() {
	rootCmd.AddCommand(multiQueryCmd)
	multiQueryCmd.Flags().StringVarP(&multiText, "query", "q", "", "search query (required)")
	multiQueryCmd.Flags().StringArrayVarP(&multiDocs, "id", "i", nil, "document ids to search (repeatable, default whole collection)")
	multiQueryCmd.Flags().IntVar(&multiKTotal, "k-total", 0, "total number of results (default from config)")
	multiQueryCmd.Flags().BoolVar(&multiJSON, "json", false, "output as JSON")
	multiQueryCmd.MarkFlagRequired("query")
}

func runMultiQuery(cmd *cobra.Command, args []string) error {
	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	kTotal := cfg.Retrieve.KTotal
	if multiKTotal > 0 {
		kTotal = multiKTotal
	}

	results, err := svc.MultiQuery(cmd.Context(), multiText, multiDocs, kTotal)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if multiJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	fmt.Printf("Found %d results for: %s\n\n", len(results), multiText)
	for i, r := range results {
		fmt.Printf("%d. [%.3f] %s (chunk %d)\n", i+1, r.Relevance, r.DocumentName, r.ChunkIndex)
		fmt.Printf("   %s\n\n", r.Preview)
	}
	return nil
}
