package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/fetcher"
	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/nearest"
	"github.com/hdb-resale/resale-cli/internal/sink"
	"github.com/hdb-resale/resale-cli/internal/store"
)

var nearestCmd = &cobra.Command{
	Use:   "nearest",
	Short: "Match every house to its nearest amenity",
	Long: `Reads geocoded houses and amenities, finds the closest amenity to each house by
geodesic (WGS-84) distance and writes "House,Nearest Amenity,Distance (km)".
Progress is checkpointed to the output CSV and the SQLite store.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		flags := cmd.Flags()
		if v, _ := flags.GetInt("concurrency"); v > 0 {
			cfg.Match.Concurrency = v
		}
		if v, _ := flags.GetInt("checkpoint-every"); v > 0 {
			cfg.Match.CheckpointEvery = v
		}
		if v, _ := flags.GetBool("skip-invalid"); v {
			cfg.Match.SkipInvalid = true
		}
		if err := cfg.Validate("nearest"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		housesPath, _ := flags.GetString("houses")
		amenitiesPath, _ := flags.GetString("amenities")
		out, _ := flags.GetString("out")
		geojsonPath, _ := flags.GetString("geojson")
		if err := requireFlag("houses", housesPath); err != nil {
			return err
		}
		if err := requireFlag("amenities", amenitiesPath); err != nil {
			return err
		}

		houses, err := fetcher.ReadLocated(ctx, housesPath, fetcher.DefaultLocatedColumns, true)
		if err != nil {
			return err
		}
		amenities, err := readAmenities(ctx, cmd, amenitiesPath)
		if err != nil {
			return err
		}

		return runNearest(ctx, housesPath, houses, amenities, out, geojsonPath)
	},
}

func readAmenities(ctx context.Context, cmd *cobra.Command, path string) ([]model.LocatedEntity, error) {
	if strings.EqualFold(filepath.Ext(path), ".shp") {
		field, _ := cmd.Flags().GetString("name-field")
		return fetcher.ReadShapefilePoints(path, field)
	}
	var cols fetcher.LocatedColumns
	cols.ID, _ = cmd.Flags().GetString("amenity-id")
	cols.Lat, _ = cmd.Flags().GetString("amenity-lat")
	cols.Lon, _ = cmd.Flags().GetString("amenity-lon")
	return fetcher.ReadLocated(ctx, path, cols, false)
}

func runNearest(ctx context.Context, input string, houses, amenities []model.LocatedEntity, out, geojsonPath string) error {
	if out == "" {
		out = "nearest_amenity.csv"
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx, model.RunKindNearest, input, len(houses))
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("matching started",
		zap.Int("houses", len(houses)),
		zap.Int("amenities", len(amenities)),
		zap.String("out", out),
	)

	cp := sink.NewCheckpointer(context.WithoutCancel(ctx), sink.Chain(
		sink.FileWriter(out),
		storeWriter(st, run.ID),
	))

	opts := []nearest.Option{
		nearest.WithConcurrency(cfg.Match.Concurrency),
		nearest.WithCheckpoint(cfg.Match.CheckpointEvery, func(_ context.Context, p nearest.Progress) error {
			if err := cp.Err(); err != nil {
				return err
			}
			log.Info("matching progress", zap.Int("done", p.Done), zap.Int("total", p.Total))
			return cp.Submit(snapshot(p.Done, p.Total, p.Final, p.Results))
		}),
	}
	if cfg.Match.SkipInvalid {
		opts = append(opts, nearest.WithSkipInvalid())
	}

	set, runErr := nearest.FindNearest(ctx, houses, amenities, opts...)
	if runErr == nil {
		runErr = cp.Submit(snapshot(len(houses), len(houses), true, set))
	}

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if err := cp.Close(closeCtx); err != nil && runErr == nil {
		runErr = err
	}

	if runErr == nil && geojsonPath != "" {
		runErr = sink.WriteGeoJSON(geojsonPath, set.Results(), houses, amenities)
	}

	finishRun(st, run.ID, runErr)
	if runErr != nil {
		return eris.Wrap(runErr, "nearest command")
	}
	log.Info("matching complete", zap.Int("results", set.Len()), zap.String("out", out))
	return nil
}

func snapshot(done, total int, final bool, set *model.ResultSet) sink.Snapshot {
	return sink.Snapshot{Done: done, Total: total, Final: final, Results: set.Results()}
}

// storeWriter mirrors each checkpoint into the run's match_results rows.
func storeWriter(st store.Store, runID string) sink.WriteFunc {
	return func(ctx context.Context, s sink.Snapshot) error {
		if err := st.SaveMatches(ctx, runID, s.Results); err != nil {
			return err
		}
		return st.UpdateRunProgress(ctx, runID, s.Done)
	}
}

func init() {
	f := nearestCmd.Flags()
	f.String("houses", "", "geocoded houses (.csv or .xlsx with address, LATITUDE, LONGITUDE)")
	f.String("amenities", "", "amenities (.csv, .xlsx or point .shp)")
	f.String("out", "nearest_amenity.csv", "results CSV")
	f.String("geojson", "", "also write house-to-amenity lines as GeoJSON")
	f.Int("concurrency", 0, "matcher workers (default from config)")
	f.Int("checkpoint-every", 0, "houses between checkpoints (default from config)")
	f.Bool("skip-invalid", false, "skip houses with missing coordinates instead of failing")
	f.String("amenity-id", "", "amenity name column (default address)")
	f.String("amenity-lat", "", "amenity latitude column (default LATITUDE)")
	f.String("amenity-lon", "", "amenity longitude column (default LONGITUDE)")
	f.String("name-field", "STN_NAM_DEPOT", "shapefile attribute naming each amenity")
	rootCmd.AddCommand(nearestCmd)
}
