package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"docquery/internal/chunker"
	"docquery/internal/server"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the retrieval HTTP API",
	Long: `Run the HTTP API that exposes ingestion, querying and collection
management.

Examples:
  docquery serve
  docquery serve --addr :9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	svc, st, err := openService(cfg, rootDir)
	if err != nil {
		return err
	}
	defer st.Close()

	addr := cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	chk := chunker.NewWordChunker(cfg.Chunking.ChunkWords, cfg.Chunking.OverlapWords, cfg.Chunking.MinChunkChars)
	srv := server.New(server.Config{
		Addr:           addr,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, svc, chk)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-sigCh:
		fmt.Printf("\nReceived %s, shutting down...\n", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}
