package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/1F47E/ecoleta-points/pkg/rtree"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Manage the gob snapshot of the point index",
}

var indexBuildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the point index from a dataset file",
	Long:  `Indexes the collection points of a dataset YAML file and saves a gob snapshot used by the index source.`,
	RunE:  runIndexBuild,
}

var (
	buildDataset    string
	buildOutput     string
	buildPartitions int
)

func init() {
	indexBuildCmd.Flags().StringVarP(&buildDataset, "dataset", "d", "", "Dataset file (default: points.dataset)")
	indexBuildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Snapshot file (default: points.index_file)")
	indexBuildCmd.Flags().IntVarP(&buildPartitions, "partitions", "p", runtime.NumCPU(), "Longitude partitions")

	indexCmd.AddCommand(indexBuildCmd)
}

func runIndexBuild(cmd *cobra.Command, args []string) error {
	closer, err := logging.Setup(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	datasetFile := orDefault(buildDataset, cfg.Points.Dataset)
	outputFile := orDefault(buildOutput, cfg.Points.IndexFile)

	ds, err := dataset.Load(datasetFile)
	if err != nil {
		return err
	}
	log.Info().Str("dataset", datasetFile).Int("points", len(ds.Points)).Msg("Dataset loaded")

	start := time.Now()
	index := rtree.NewPointIndexWithPartitions(buildPartitions)
	if err := index.IndexPoints(ds.Points); err != nil {
		return fmt.Errorf("failed to index points: %w", err)
	}
	log.Info().Int64("points", index.Count()).Dur("took", time.Since(start)).Msg("Index built")

	if dir := filepath.Dir(outputFile); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}

	start = time.Now()
	if err := index.SaveToFile(outputFile); err != nil {
		return fmt.Errorf("failed to save index: %w", err)
	}

	event := log.Info().Str("file", outputFile).Dur("took", time.Since(start))
	if info, err := os.Stat(outputFile); err == nil {
		event = event.Int64("bytes", info.Size())
	}
	event.Msg("Index saved")
	return nil
}

func orDefault(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
