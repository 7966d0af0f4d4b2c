package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docquery/config"
	"docquery/internal/chunker"
	"docquery/internal/fs"
	"docquery/internal/port"
)

var (
	ingestName    string
	ingestID      string
	ingestCollect bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Index documents for retrieval",
	Long: `Index a text file, or every matching file under a directory, for later
retrieval. Each file becomes one document with its own vector index. The
indexes are stored in .docquery/index.db within the data directory.

Examples:
  docquery ingest notes.txt                 # Index a single file
  docquery ingest ./docs --collect          # Index a directory into the collection
  docquery ingest report.md --name "Q3 report" --id q3`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name (single file only, default file name)")
	ingestCmd.Flags().StringVar(&ingestID, "id", "", "document id (single file only, default random)")
	ingestCmd.Flags().BoolVar(&ingestCollect, "collect", false, "add indexed documents to the collection")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("invalid path: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	var files []fs.FileInfo
	if info.IsDir() {
		walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
		files, err = walker.Walk(path)
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", path, err)
		}
		if len(files) == 0 {
			fmt.Println("No matching files found.")
			return nil
		}
	} else {
		if ingestName == "" {
			ingestName = filepath.Base(path)
		}
		files = []fs.FileInfo{{Path: path, Name: ingestName, Size: info.Size()}}
	}
	if len(files) > 1 && (ingestID != "" || cmd.Flags().Changed("name")) {
		return fmt.Errorf("--id and --name apply to single-file ingestion only")
	}

	var chk port.Chunker = chunker.NewWordChunker(cfg.Chunking.ChunkWords, cfg.Chunking.OverlapWords, cfg.Chunking.MinChunkChars)

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetDescription("[cyan]Indexing[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Println()
		}),
	)

	var indexed, skipped, totalChunks int
	var warnings []string
	for _, f := range files {
		bar.Describe(fmt.Sprintf("[cyan]Indexing[reset] %s", f.Name))

		text, err := fs.ReadFile(f.Path)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
			bar.Add(1)
			continue
		}

		chunks := chk.Chunk(text)
		if len(chunks) == 0 {
			skipped++
			bar.Add(1)
			continue
		}
		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = c.Text
		}

		id := ingestID
		if id == "" {
			id = uuid.NewString()
		}

		n, err := svc.BuildIndex(cmd.Context(), id, f.Name, texts)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
			bar.Add(1)
			continue
		}
		if ingestCollect {
			if err := svc.AddToCollection(id); err != nil {
				warnings = append(warnings, fmt.Sprintf("%s: %v", f.Name, err))
			}
		}
		indexed++
		totalChunks += n
		bar.Add(1)
	}

	fmt.Printf("\nIngestion complete:\n")
	fmt.Printf("  Documents indexed: %d\n", indexed)
	if skipped > 0 {
		fmt.Printf("  Files skipped:     %d (no chunkable text)\n", skipped)
	}
	fmt.Printf("  Chunks embedded:   %d\n", totalChunks)

	if len(warnings) > 0 {
		fmt.Printf("\nWarnings:\n")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	fmt.Printf("\nIndex stored at: %s\n", config.IndexDBPath(rootDir))
	return nil
}
