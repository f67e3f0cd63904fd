package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/predict"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate the resale price of a flat",
	Example: `  resale-cli predict --town "ANG MO KIO" --flat-type "3 ROOM" --flat-model "New Generation" \
    --floor-area 67 --storey-range "04 TO 06" --remaining-lease "60 years" \
    --month 2024-01 --distance-to-mrt 1.2`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		f := cmd.Flags()
		if p, _ := f.GetString("model"); p != "" {
			cfg.Predict.ModelPath = p
		}
		if err := cfg.Validate("predict"); err != nil {
			return err
		}

		m, err := predict.Load(cfg.Predict.ModelPath)
		if err != nil {
			return err
		}

		in, err := predictInput(cmd)
		if err != nil {
			return err
		}
		price, err := m.Predict(in)
		if err != nil {
			return err
		}

		fmt.Fprintf(os.Stdout, "Estimated resale price: SGD %.2f\n", price)
		return nil
	},
}

func predictInput(cmd *cobra.Command) (predict.Input, error) {
	f := cmd.Flags()
	var rec model.ResaleRecord
	rec.Town, _ = f.GetString("town")
	rec.FlatType, _ = f.GetString("flat-type")
	rec.FlatModel, _ = f.GetString("flat-model")
	rec.FloorAreaSqm, _ = f.GetFloat64("floor-area")
	rec.StoreyRange, _ = f.GetString("storey-range")
	rec.Month, _ = f.GetString("month")
	rec.RemainingLease, _ = f.GetString("remaining-lease")
	rec.LeaseCommenceDate, _ = f.GetInt("lease-commence")
	distance, _ := f.GetFloat64("distance-to-mrt")

	for name, v := range map[string]string{"town": rec.Town, "flat-type": rec.FlatType, "flat-model": rec.FlatModel} {
		if err := requireFlag(name, v); err != nil {
			return predict.Input{}, err
		}
	}
	return predict.FromResale(rec, distance)
}

func init() {
	f := predictCmd.Flags()
	f.String("model", "", "model file (default from config)")
	f.String("town", "", "town, e.g. ANG MO KIO")
	f.String("flat-type", "", "flat type, e.g. 3 ROOM")
	f.String("flat-model", "", "flat model, e.g. New Generation")
	f.Float64("floor-area", 0, "floor area in square meters")
	f.String("storey-range", "", "storey range, e.g. 04 TO 06")
	f.String("month", "", "transaction month, YYYY-MM")
	f.String("remaining-lease", "", "remaining lease, e.g. \"61 years 04 months\"")
	f.Int("lease-commence", 0, "lease commencement year, used when --remaining-lease is empty")
	f.Float64("distance-to-mrt", 0, "distance to the nearest MRT station in km")
	rootCmd.AddCommand(predictCmd)
}
