package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/1F47E/ecoleta-points/pkg/config"
	"github.com/spf13/cobra"
)

var (
	configFile string
	logLevel   string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ecoleta",
	Short: "Find waste collection points near you",
	Long: `Ecoleta shows recycling collection points on a map around your position,
filtered by the kind of waste they accept. Run without a subcommand to open
the interactive points screen.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
	RunE:              runPoints,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default: ./config.yaml or ./configs/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")

	addPointsFlags(rootCmd)

	rootCmd.AddCommand(pointsCmd, indexCmd, queryCmd, catalogCmd, postgisCmd)
}

func loadConfig(cmd *cobra.Command, args []string) error {
	c, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if logLevel != "" {
		c.Log.Level = logLevel
	}
	cfg = c
	return nil
}

// requirePositive rejects a non-positive value of the named flag
func requirePositive(flag string, value int) error {
	if value <= 0 {
		return fmt.Errorf("--%s must be positive, got %d", flag, value)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
