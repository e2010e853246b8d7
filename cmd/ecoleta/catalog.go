package main

import (
	"context"
	"fmt"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/catalog"
	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Development catalog service",
}

var catalogServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve GET /items from a dataset file",
	Long:  `Starts a local catalog answering GET /items with the dataset categories, plus /healthz and /metrics.`,
	RunE:  runCatalogServe,
}

var (
	servePort    int
	serveDataset string
)

func init() {
	catalogServeCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Listen port (default: server.port)")
	catalogServeCmd.Flags().StringVarP(&serveDataset, "dataset", "d", "", "Dataset file (default: server.dataset)")

	catalogCmd.AddCommand(catalogServeCmd)
}

func runCatalogServe(cmd *cobra.Command, args []string) error {
	closer, err := logging.Setup(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	port := cfg.Server.Port
	if servePort > 0 {
		port = servePort
	}
	datasetFile := orDefault(serveDataset, cfg.Server.Dataset)

	ds, err := dataset.Load(datasetFile)
	if err != nil {
		return err
	}

	app := catalog.NewServer(ds.Categories)
	addr := fmt.Sprintf(":%d", port)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Int("items", len(ds.Categories)).Msg("Catalog server starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-cmd.Context().Done():
	}

	log.Info().Msg("Shutdown signal received, draining connections...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Forced shutdown")
	}
	log.Info().Msg("Server stopped")
	return nil
}
