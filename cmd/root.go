package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "resale-cli",
	Short: "HDB resale geocoding, nearest-amenity matching and price estimates",
	Long: `Geocodes HDB resale addresses and amenities, matches every flat to its nearest
amenity by geodesic distance, and estimates resale prices from a pretrained model.

Settings come from .env, config.yaml and RESALE_* variables. Runs, match results
and the geocode cache are kept in a SQLite file (--db).`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		applyGlobalFlags(cmd, c)
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		zap.L().Debug("config loaded",
			zap.String("command", cmd.CommandPath()),
			zap.String("db", cfg.Store.Path),
		)
		return nil
	},
	PersistentPostRun: func(*cobra.Command, []string) {
		_ = zap.L().Sync()
	},
}

// applyGlobalFlags lets --db and --log-level override the loaded config when set.
func applyGlobalFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Root().PersistentFlags()
	if flags.Changed("db") {
		c.Store.Path, _ = flags.GetString("db")
	}
	if flags.Changed("log-level") {
		c.Log.Level, _ = flags.GetString("log-level")
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("db", "", "SQLite store path (overrides store.path)")
	pf.String("log-level", "", "log level: debug, info, warn, error (overrides log.level)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
