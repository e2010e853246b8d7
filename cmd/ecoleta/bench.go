package main

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/1F47E/ecoleta-points/pkg/points"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var indexBenchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure point search throughput",
	Long: `Runs random map-region searches around the configured location against
the configured point source, spread over concurrent workers.`,
	RunE: runIndexBench,
}

var (
	benchQueries int
	benchWorkers int
	benchSpread  float64
	benchItems   []int
)

func init() {
	indexBenchCmd.Flags().StringVarP(&pointsSource, "source", "s", "", "Point source: dataset, index, postgis")
	indexBenchCmd.Flags().IntVarP(&benchQueries, "queries", "n", 1000, "Number of searches to run")
	indexBenchCmd.Flags().IntVarP(&benchWorkers, "workers", "w", runtime.NumCPU(), "Concurrent workers")
	indexBenchCmd.Flags().Float64Var(&benchSpread, "spread", 0.1, "Max distance in degrees of a region center from location")
	indexBenchCmd.Flags().IntSliceVarP(&benchItems, "items", "i", nil, "Category ids to filter by")

	indexCmd.AddCommand(indexBenchCmd)
}

type benchResult struct {
	Queries      int
	Failed       int64
	Duration     time.Duration
	MinDuration  time.Duration
	MaxDuration  time.Duration
	TotalResults int64
}

func (r benchResult) QueriesPerSec() float64 {
	if r.Duration <= 0 {
		return 0
	}
	return float64(r.Queries) / r.Duration.Seconds()
}

func (r benchResult) AvgDuration() time.Duration {
	if r.Queries == 0 {
		return 0
	}
	return r.Duration / time.Duration(r.Queries)
}

func runIndexBench(cmd *cobra.Command, args []string) error {
	if err := requirePositive("queries", benchQueries); err != nil {
		return err
	}
	if err := requirePositive("workers", benchWorkers); err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	if cmd.Flags().Changed("source") {
		cfg.Points.Source = pointsSource
	}
	searcher, release, err := openSearcher(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()
	if searcher == nil {
		return fmt.Errorf("bench needs a point source, set --source")
	}

	center := models.Coordinate{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude}
	regions := randomRegions(center, benchSpread, cfg.Map.Delta, benchQueries, time.Now().UnixNano())

	log.Info().
		Str("source", cfg.Points.Source).
		Int("queries", len(regions)).
		Int("workers", benchWorkers).
		Msg("Running region searches")

	result := benchSearches(cmd.Context(), searcher, regions, benchItems, benchWorkers)

	log.Info().
		Int("queries", result.Queries).
		Int64("failed", result.Failed).
		Dur("total", result.Duration).
		Dur("avg", result.AvgDuration()).
		Dur("min", result.MinDuration).
		Dur("max", result.MaxDuration).
		Float64("qps", result.QueriesPerSec()).
		Int64("results", result.TotalResults).
		Msg("Benchmark done")
	return nil
}

// randomRegions returns n camera regions centered within spread degrees of
// center
func randomRegions(center models.Coordinate, spread, delta float64, n int, seed int64) []geo.Region {
	r := rand.New(rand.NewSource(seed))
	regions := make([]geo.Region, n)
	for i := range regions {
		c := models.Coordinate{
			Latitude:  center.Latitude + (r.Float64()*2-1)*spread,
			Longitude: center.Longitude + (r.Float64()*2-1)*spread,
		}
		regions[i] = geo.RegionAround(c, delta)
	}
	return regions
}

// benchSearches runs one search per region on a pool of workers
func benchSearches(ctx context.Context, searcher points.PointSearcher, regions []geo.Region, items []int, workers int) benchResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		totalResults atomic.Int64
		failed       atomic.Int64
		mu           sync.Mutex
		minDuration  = time.Duration(1<<63 - 1)
		maxDuration  time.Duration
	)

	queryCh := make(chan geo.Region, len(regions))
	for _, region := range regions {
		queryCh <- region
	}
	close(queryCh)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for region := range queryCh {
				queryStart := time.Now()
				found, err := searcher.SearchPoints(ctx, region, items)
				elapsed := time.Since(queryStart)
				if err != nil {
					failed.Add(1)
					continue
				}
				totalResults.Add(int64(len(found)))

				mu.Lock()
				if elapsed < minDuration {
					minDuration = elapsed
				}
				if elapsed > maxDuration {
					maxDuration = elapsed
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if maxDuration == 0 {
		minDuration = 0
	}
	return benchResult{
		Queries:      len(regions),
		Failed:       failed.Load(),
		Duration:     time.Since(start),
		MinDuration:  minDuration,
		MaxDuration:  maxDuration,
		TotalResults: totalResults.Load(),
	}
}
