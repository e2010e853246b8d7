package main

import (
	"context"
	"fmt"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/config"
	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/points"
	"github.com/1F47E/ecoleta-points/pkg/postgis"
	"github.com/1F47E/ecoleta-points/pkg/rtree"
	"github.com/rs/zerolog/log"
)

// openSearcher builds the marker source named by points.source. The
// returned func releases it. The none source returns a nil searcher.
func openSearcher(ctx context.Context, c *config.Config) (points.PointSearcher, func(), error) {
	noop := func() {}

	switch c.Points.Source {
	case config.SourceNone:
		return nil, noop, nil

	case config.SourceDataset:
		index, err := indexDataset(c.Points.Dataset)
		if err != nil {
			return nil, noop, err
		}
		return index, noop, nil

	case config.SourceIndex:
		index := rtree.NewPointIndex()
		start := time.Now()
		if err := index.LoadFromFile(c.Points.IndexFile); err != nil {
			return nil, noop, fmt.Errorf("failed to load index %s: %w", c.Points.IndexFile, err)
		}
		log.Info().
			Str("file", c.Points.IndexFile).
			Int64("points", index.Count()).
			Dur("took", time.Since(start)).
			Msg("Index loaded")
		return index, noop, nil

	case config.SourcePostGIS:
		store, err := postgis.NewStore(ctx, postgisOptions(c))
		if err != nil {
			return nil, noop, err
		}
		log.Info().Str("host", c.PostGIS.Host).Str("database", c.PostGIS.Database).Msg("Connected to PostGIS")
		return store, func() { store.Close() }, nil
	}

	return nil, noop, fmt.Errorf("unknown points source %q", c.Points.Source)
}

// indexDataset loads a dataset file into a fresh in-memory index
func indexDataset(path string) (*rtree.PointIndex, error) {
	ds, err := dataset.Load(path)
	if err != nil {
		return nil, err
	}

	index := rtree.NewPointIndex()
	if err := index.IndexPoints(ds.Points); err != nil {
		return nil, fmt.Errorf("failed to index dataset: %w", err)
	}
	log.Info().Str("dataset", path).Int64("points", index.Count()).Msg("Dataset indexed")
	return index, nil
}

func postgisOptions(c *config.Config) postgis.Options {
	return postgis.Options{
		Host:           c.PostGIS.Host,
		Port:           c.PostGIS.Port,
		User:           c.PostGIS.User,
		Password:       c.PostGIS.Password,
		Database:       c.PostGIS.Database,
		SSLMode:        c.PostGIS.SSLMode,
		MaxConnections: c.PostGIS.MaxConnections,
	}
}
