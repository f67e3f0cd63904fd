package fetcher

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/hdb-resale/resale-cli/internal/model"
)

var resaleColumns = []string{
	"month", "town", "flat_type", "block", "street_name", "storey_range",
	"floor_area_sqm", "flat_model", "lease_commence_date", "remaining_lease",
	"resale_price",
}

// ReadResale loads the HDB resale transaction dataset. remaining_lease and
// resale_price are optional; every other column is required.
func ReadResale(ctx context.Context, path string) ([]model.ResaleRecord, error) {
	header, rows, err := readTable(ctx, path)
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(resaleColumns))
	for _, name := range resaleColumns {
		i := columnIndex(header, name)
		if i < 0 && name != "remaining_lease" && name != "resale_price" {
			return nil, eris.Errorf("fetcher: %s has no %q column", path, name)
		}
		idx[name] = i
	}

	out := make([]model.ResaleRecord, 0, len(rows))
	for i, row := range rows {
		line := i + 2
		rec := model.ResaleRecord{
			Month:          cell(row, idx["month"]),
			Town:           cell(row, idx["town"]),
			FlatType:       cell(row, idx["flat_type"]),
			Block:          cell(row, idx["block"]),
			StreetName:     cell(row, idx["street_name"]),
			StoreyRange:    cell(row, idx["storey_range"]),
			FlatModel:      cell(row, idx["flat_model"]),
			RemainingLease: cell(row, idx["remaining_lease"]),
		}
		if rec.Block == "" && rec.StreetName == "" {
			continue
		}

		if rec.FloorAreaSqm, err = parseFloat(cell(row, idx["floor_area_sqm"])); err != nil {
			return nil, eris.Wrapf(err, "fetcher: %s line %d: floor_area_sqm", path, line)
		}
		if v := cell(row, idx["lease_commence_date"]); v != "" {
			if rec.LeaseCommenceDate, err = strconv.Atoi(v); err != nil {
				return nil, eris.Wrapf(err, "fetcher: %s line %d: lease_commence_date", path, line)
			}
		}
		if v := cell(row, idx["resale_price"]); v != "" {
			if rec.ResalePrice, err = parseFloat(v); err != nil {
				return nil, eris.Wrapf(err, "fetcher: %s line %d: resale_price", path, line)
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
