package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/1F47E/ecoleta-points/pkg/config"
	"github.com/1F47E/ecoleta-points/pkg/dataset"
	"github.com/1F47E/ecoleta-points/pkg/geo"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/1F47E/ecoleta-points/pkg/models"
	"github.com/1F47E/ecoleta-points/pkg/rtree"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Print the collection points around a coordinate",
	Long: `Runs the same point search as the map for the region around --lat/--lon,
or the k nearest points with --nearest (dataset and index sources only).`,
	RunE: runQuery,
}

var (
	queryLat     float64
	queryLon     float64
	queryDelta   float64
	queryItems   []int
	queryNearest int
	queryLimit   int
	queryJSON    bool
)

func init() {
	queryCmd.Flags().StringVarP(&pointsSource, "source", "s", "", "Point source: dataset, index, postgis")
	queryCmd.Flags().Float64Var(&queryLat, "lat", 0, "Center latitude (default: location.latitude)")
	queryCmd.Flags().Float64Var(&queryLon, "lon", 0, "Center longitude (default: location.longitude)")
	queryCmd.Flags().Float64Var(&queryDelta, "delta", 0, "Region span in degrees (default: map.delta)")
	queryCmd.Flags().IntSliceVarP(&queryItems, "items", "i", nil, "Category ids to filter by")
	queryCmd.Flags().IntVarP(&queryNearest, "nearest", "k", 0, "Return the k nearest points instead")
	queryCmd.Flags().IntVar(&queryLimit, "limit", 100, "Maximum number of results to display")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "Output results as JSON")
}

// queryResult is a point plus its distance from the query center
type queryResult struct {
	models.CollectionPoint
	DistanceKm float64 `json:"distance_km"`
}

func runQuery(cmd *cobra.Command, args []string) error {
	if err := requirePositive("limit", queryLimit); err != nil {
		return err
	}
	if cmd.Flags().Changed("nearest") {
		if err := requirePositive("nearest", queryNearest); err != nil {
			return err
		}
	}

	closer, err := logging.Setup(cfg.Log.Level, "")
	if err != nil {
		return err
	}
	defer closer.Close()

	if cmd.Flags().Changed("source") {
		cfg.Points.Source = pointsSource
	}
	center := models.Coordinate{Latitude: cfg.Location.Latitude, Longitude: cfg.Location.Longitude}
	if cmd.Flags().Changed("lat") {
		center.Latitude = queryLat
	}
	if cmd.Flags().Changed("lon") {
		center.Longitude = queryLon
	}
	delta := cfg.Map.Delta
	if queryDelta > 0 {
		delta = queryDelta
	}

	var found []models.CollectionPoint
	if queryNearest > 0 {
		found, err = nearest(center, queryNearest)
	} else {
		found, err = search(cmd, geo.RegionAround(center, delta))
	}
	if err != nil {
		return err
	}

	results := make([]queryResult, len(found))
	for i, p := range found {
		results[i] = queryResult{CollectionPoint: p, DistanceKm: geo.Distance(center, p.Location)}
	}
	if len(results) > queryLimit {
		log.Info().Int("total", len(results)).Msgf("Showing first %d results (use --limit to see more)", queryLimit)
		results = results[:queryLimit]
	}

	if queryJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(results); err != nil {
			return fmt.Errorf("failed to encode results: %w", err)
		}
		return nil
	}

	categories := loadCategoryNames()
	printResults(os.Stdout, newPalette(os.Stdout), results, categories)
	return nil
}

func search(cmd *cobra.Command, region geo.Region) ([]models.CollectionPoint, error) {
	if cfg.Points.Source == config.SourceNone {
		return nil, errors.New("query needs a point source, set --source")
	}
	searcher, release, err := openSearcher(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	defer release()

	found, err := searcher.SearchPoints(cmd.Context(), region, queryItems)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	log.Info().Int("found", len(found)).Ints("items", queryItems).Msg("Region search done")
	return found, nil
}

func nearest(center models.Coordinate, k int) ([]models.CollectionPoint, error) {
	index, err := loadLocalIndex(cfg)
	if err != nil {
		return nil, fmt.Errorf("--nearest: %w", err)
	}

	var found []models.CollectionPoint
	for _, p := range index.NearestNeighbors(center, k) {
		found = append(found, *p)
	}
	log.Info().Int("found", len(found)).Msg("Nearest search done")
	return found, nil
}

// loadLocalIndex returns the in-memory index behind the dataset or index
// source
func loadLocalIndex(c *config.Config) (*rtree.PointIndex, error) {
	switch c.Points.Source {
	case config.SourceDataset:
		return indexDataset(c.Points.Dataset)
	case config.SourceIndex:
		index := rtree.NewPointIndex()
		if err := index.LoadFromFile(c.Points.IndexFile); err != nil {
			return nil, fmt.Errorf("failed to load index %s: %w", c.Points.IndexFile, err)
		}
		return index, nil
	}
	return nil, fmt.Errorf("needs the dataset or index source, got %q", c.Points.Source)
}

// loadCategoryNames resolves titles from the dataset when it is readable.
// Output falls back to raw ids otherwise.
func loadCategoryNames() []models.Category {
	ds, err := dataset.Load(cfg.Points.Dataset)
	if err != nil {
		log.Debug().Err(err).Msg("No category titles available")
		return nil
	}
	return ds.Categories
}

// palette holds ANSI colours, empty when stdout is not a terminal
type palette struct {
	reset, bold, green, yellow, cyan string
}

func newPalette(f *os.File) palette {
	if !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd()) {
		return palette{}
	}
	return palette{
		reset:  "\033[0m",
		bold:   "\033[1m",
		green:  "\033[32m",
		yellow: "\033[33m",
		cyan:   "\033[36m",
	}
}

func printResults(w io.Writer, c palette, results []queryResult, categories []models.Category) {
	if len(results) == 0 {
		fmt.Fprintln(w, "No collection points found")
		return
	}

	for i, r := range results {
		fmt.Fprintf(w, "%s%d. %s%s %s(%s)%s - %s%.2f km%s\n",
			c.bold, i+1, r.Title, c.reset,
			c.cyan, r.ID, c.reset,
			c.yellow, r.DistanceKm, c.reset)

		if r.Address != "" {
			place := r.Address
			if r.City != "" {
				place += ", " + r.City
			}
			if r.UF != "" {
				place += "/" + r.UF
			}
			fmt.Fprintf(w, "   %s\n", place)
		}

		items := dataset.CategoryTitles(categories, r.ItemIDs)
		if len(items) == 0 {
			items = make([]string, len(r.ItemIDs))
			for j, id := range r.ItemIDs {
				items[j] = fmt.Sprintf("#%d", id)
			}
		}
		if len(items) > 0 {
			fmt.Fprintf(w, "   %s%s%s\n", c.green, strings.Join(items, ", "), c.reset)
		}
	}
}
