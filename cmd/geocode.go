package main

import (
	"context"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/address"
	"github.com/hdb-resale/resale-cli/internal/fetcher"
	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/sink"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Geocode the distinct addresses of a resale transaction file",
	Long:  "Builds \"<block> <street>\" addresses from a resale CSV/XLSX, expands street acronyms, geocodes each distinct address once and writes a workbook of coordinates. Addresses no provider resolves go to <out>_misses.csv instead.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in, _ := cmd.Flags().GetString("csv")
		out, _ := cmd.Flags().GetString("out")
		if err := requireFlag("csv", in); err != nil {
			return err
		}

		records, err := fetcher.ReadResale(ctx, in)
		if err != nil {
			return err
		}

		acronyms := cfg.Geocode.Acronyms
		if len(acronyms) == 0 {
			acronyms = nil
		}
		norm, err := address.NewNormalizer(acronyms)
		if err != nil {
			return err
		}

		return runGeocode(ctx, in, resaleAddresses(norm, records), out)
	},
}

var geocodeAmenitiesCmd = &cobra.Command{
	Use:   "geocode-amenities",
	Short: "Geocode one column of an amenity table (schools, malls, ...)",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		in, _ := cmd.Flags().GetString("csv")
		column, _ := cmd.Flags().GetString("column")
		out, _ := cmd.Flags().GetString("out")
		if err := requireFlag("csv", in); err != nil {
			return err
		}

		values, err := fetcher.ReadColumn(ctx, in, column)
		if err != nil {
			return err
		}
		return runGeocode(ctx, in, dedupe(values), out)
	},
}

// resaleAddresses returns the distinct full addresses in first-seen order.
func resaleAddresses(norm *address.Normalizer, records []model.ResaleRecord) []string {
	addrs := make([]string, 0, len(records))
	for _, r := range records {
		addrs = append(addrs, norm.FullAddress(r.Block, r.StreetName))
	}
	return dedupe(addrs)
}

func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

// runGeocode geocodes queries in chunks of geocode.save_every, rewriting the
// output file after every chunk so an interrupted run keeps its progress.
func runGeocode(ctx context.Context, input string, queries []string, out string) error {
	if out == "" {
		out = strings.TrimSuffix(input, filepath.Ext(input)) + "_geocoded.xlsx"
	}
	missesPath := missesFile(out)
	saveEvery := cfg.Geocode.SaveEvery
	if saveEvery <= 0 {
		saveEvery = len(queries)
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	run, err := st.CreateRun(ctx, model.RunKindGeocode, input, len(queries))
	if err != nil {
		return err
	}
	log := zap.L().With(zap.String("run_id", run.ID))
	log.Info("geocoding started", zap.String("input", input), zap.Int("addresses", len(queries)))

	geocoder := initGeocoder(cfg.Geocode, st)

	var (
		rows   []model.GeocodedAddress
		misses []string
		runErr error
	)
	for start := 0; start < len(queries) && runErr == nil; start += saveEvery {
		end := min(start+saveEvery, len(queries))

		results, err := geocoder.BatchGeocode(ctx, queries[start:end])
		if err != nil {
			runErr = err
			break
		}
		for _, g := range toGeocoded(results) {
			if g.Valid() {
				rows = append(rows, g)
			} else {
				misses = append(misses, g.Address)
			}
		}

		if err := writeGeocoded(out, rows); err != nil {
			runErr = err
			break
		}
		if len(misses) > 0 {
			if err := sink.WriteMissesCSV(missesPath, misses); err != nil {
				runErr = err
				break
			}
		}
		if err := st.UpdateRunProgress(ctx, run.ID, end); err != nil {
			log.Warn("could not record progress", zap.Error(err))
		}
		log.Info("geocoding progress",
			zap.Int("done", end),
			zap.Int("total", len(queries)),
			zap.Int("matched", len(rows)),
			zap.Int("missed", len(misses)),
		)
	}
	if runErr == nil && len(queries) == 0 {
		runErr = writeGeocoded(out, nil)
	}

	finishRun(st, run.ID, runErr)
	if runErr != nil {
		return eris.Wrap(runErr, "geocode command")
	}
	log.Info("geocoding complete",
		zap.String("out", out),
		zap.Int("addresses", len(queries)),
		zap.Int("matched", len(rows)),
		zap.Int("missed", len(misses)),
	)
	if len(misses) > 0 {
		log.Warn("some addresses could not be geocoded", zap.String("misses", missesPath))
	}
	return nil
}

// missesFile names the CSV listing unresolved addresses next to out.
func missesFile(out string) string {
	return strings.TrimSuffix(out, filepath.Ext(out)) + "_misses.csv"
}

func writeGeocoded(path string, rows []model.GeocodedAddress) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return sink.WriteGeocodedCSV(path, rows)
	}
	return sink.WriteGeocodedXLSX(path, rows)
}

func init() {
	geocodeCmd.Flags().String("csv", "", "resale transactions file (.csv or .xlsx)")
	geocodeCmd.Flags().String("out", "", "output file (.xlsx or .csv); default <input>_geocoded.xlsx")

	geocodeAmenitiesCmd.Flags().String("csv", "", "amenity file (.csv or .xlsx)")
	geocodeAmenitiesCmd.Flags().String("column", "address", "column holding the address or name to geocode")
	geocodeAmenitiesCmd.Flags().String("out", "", "output file (.xlsx or .csv); default <input>_geocoded.xlsx")

	rootCmd.AddCommand(geocodeCmd)
	rootCmd.AddCommand(geocodeAmenitiesCmd)
}
