package main

import (
	"fmt"
	"time"

	"github.com/1F47E/ecoleta-points/pkg/catalog"
	"github.com/1F47E/ecoleta-points/pkg/location"
	"github.com/1F47E/ecoleta-points/pkg/logging"
	"github.com/1F47E/ecoleta-points/pkg/navigation"
	"github.com/1F47E/ecoleta-points/pkg/points"
	"github.com/1F47E/ecoleta-points/pkg/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var pointsCmd = &cobra.Command{
	Use:   "points",
	Short: "Open the interactive collection points screen",
	Long: `Shows the map around the configured position with the collection points
matching the selected categories. Logs go to log.file since the screen owns
the terminal.`,
	RunE: runPoints,
}

var (
	pointsSource string
	pointsLat    float64
	pointsLon    float64
	pointsDeny   bool
	catalogURL   string
)

func init() {
	addPointsFlags(pointsCmd)
}

func addPointsFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&pointsSource, "source", "s", "", "Point source: none, dataset, index, postgis")
	cmd.Flags().Float64Var(&pointsLat, "lat", 0, "Latitude reported by the location provider")
	cmd.Flags().Float64Var(&pointsLon, "lon", 0, "Longitude reported by the location provider")
	cmd.Flags().BoolVar(&pointsDeny, "deny", false, "Deny the location permission")
	cmd.Flags().StringVar(&catalogURL, "catalog-url", "", "Catalog base URL")
}

// applyPointsFlags lets explicitly set flags override the config
func applyPointsFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	if flags.Changed("source") {
		cfg.Points.Source = pointsSource
	}
	if flags.Changed("lat") {
		cfg.Location.Latitude = pointsLat
	}
	if flags.Changed("lon") {
		cfg.Location.Longitude = pointsLon
	}
	if flags.Changed("deny") && pointsDeny {
		cfg.Location.Permission = "denied"
	}
	if flags.Changed("catalog-url") {
		cfg.Catalog.BaseURL = catalogURL
	}
	return cfg.Validate()
}

func runPoints(cmd *cobra.Command, args []string) error {
	if err := applyPointsFlags(cmd); err != nil {
		return err
	}

	closer, err := logging.Setup(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		return err
	}
	defer closer.Close()

	searcher, release, err := openSearcher(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer release()

	nav := navigation.Messages{}
	screen := points.New(points.Options{
		Location:  location.NewStatic(cfg.Location),
		Catalog:   catalog.NewClient(cfg.Catalog.BaseURL, time.Duration(cfg.Catalog.Timeout)*time.Second),
		Navigator: nav,
		Searcher:  searcher,
		Delta:     cfg.Map.Delta,
	})

	log.Info().
		Str("source", cfg.Points.Source).
		Str("catalog", cfg.Catalog.BaseURL).
		Msg("Starting points screen")

	program := tea.NewProgram(tui.New(screen, nav), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := program.Run(); err != nil {
		screen.Unmount()
		return fmt.Errorf("points screen: %w", err)
	}
	return nil
}
