package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Manage the multi-document collection",
	Long: `Manage which indexed documents participate in collection-wide
multiquery searches.

Examples:
  docquery collection add q3
  docquery collection remove q3
  docquery collection list`,
}

var collectionAddCmd = &cobra.Command{
	Use:   "add [id]",
	Short: "Add an indexed document to the collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService(cfg, rootDir)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := svc.AddToCollection(args[0]); err != nil {
			return fmt.Errorf("failed to add %s: %w", args[0], err)
		}
		fmt.Printf("Added %s to the collection.\n", args[0])
		return nil
	},
}

var collectionRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a document from the collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService(cfg, rootDir)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := svc.RemoveFromCollection(args[0]); err != nil {
			return fmt.Errorf("failed to remove %s: %w", args[0], err)
		}
		fmt.Printf("Removed %s from the collection.\n", args[0])
		return nil
	},
}

var collectionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collection members",
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, st, err := openService(cfg, rootDir)
		if err != nil {
			return err
		}
		defer st.Close()

		entries, err := svc.ListCollection()
		if err != nil {
			return fmt.Errorf("failed to list collection: %w", err)
		}
		if len(entries) == 0 {
			fmt.Println("The collection is empty.")
			return nil
		}
		fmt.Printf("Collection (%d documents):\n", len(entries))
		for _, e := range entries {
			fmt.Printf("  %s  %s (%d chunks)\n", e.DocID, e.Name, e.ChunkCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(collectionAddCmd)
	collectionCmd.AddCommand(collectionRemoveCmd)
	collectionCmd.AddCommand(collectionListCmd)
}
