package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a document's index",
	Long: `Delete a document's persisted index. The document is removed from the
collection first, so concurrent multiquery searches never see a member
without an index.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := svc.DeleteIndex(args[0]); err != nil {
		return fmt.Errorf("failed to delete %s: %w", args[0], err)
	}
	fmt.Printf("Deleted index for %s.\n", args[0])
	return nil
}
