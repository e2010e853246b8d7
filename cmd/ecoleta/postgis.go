package main

import (
	"fmt"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/1F47E/ecoleta-points/pkg/postgis"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var postgisCmd = &cobra.Command{
	Use:   "postgis",
	Short: "Manage the PostGIS point store",
}

var postgisLoadCmd = &cobra.Command{
	Use:   "load",
	Short: "Seed PostGIS with the dataset points",
	Long:  `Creates the collection_points table and upserts every point of a dataset file.`,
	RunE:  runPostGISLoad,
}

var (
	loadDataset string
	keepSchema  bool
)

func init() {
	postgisLoadCmd.Flags().StringVarP(&loadDataset, "dataset", "d", "", "Dataset file (default: points.dataset)")
	postgisLoadCmd.Flags().BoolVar(&keepSchema, "keep-schema", false, "Upsert into the existing table instead of recreating it")

	postgisCmd.AddCommand(postgisLoadCmd)
}

func runPostGISLoad(cmd *cobra.Command, args []string) error {
	closer, err := logging.Setup(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	ds, err := dataset.Load(orDefault(loadDataset, cfg.Points.Dataset))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := postgis.NewStore(ctx, postgisOptions(cfg))
	if err != nil {
		return err
	}
	defer store.Close()

	if !keepSchema {
		if err := store.InitSchema(ctx); err != nil {
			return err
		}
		log.Info().Msg("Schema initialized")
	}

	start := time.Now()
	if err := store.BulkInsertPoints(ctx, ds.Points); err != nil {
		return fmt.Errorf("failed to load points: %w", err)
	}

	count, err := store.Count(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Int("inserted", len(ds.Points)).
		Int64("total", count).
		Dur("took", time.Since(start)).
		Msg("Points loaded into PostGIS")
	return nil
}
