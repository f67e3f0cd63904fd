package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resaleHeader = "month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date,remaining_lease,resale_price\n"

func TestReadResale(t *testing.T) {
	path := writeFile(t, "resale.csv", resaleHeader+
		"2017-01,ANG MO KIO,2 ROOM,406,ANG MO KIO AVE 10,10 TO 12,44,Improved,1979,61 years 04 months,232000\n")

	got, err := ReadResale(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)

	rec := got[0]
	assert.Equal(t, "2017-01", rec.Month)
	assert.Equal(t, "ANG MO KIO AVE 10", rec.StreetName)
	assert.Equal(t, "10 TO 12", rec.StoreyRange)
	assert.InDelta(t, 44.0, rec.FloorAreaSqm, 1e-9)
	assert.Equal(t, 1979, rec.LeaseCommenceDate)
	assert.Equal(t, "61 years 04 months", rec.RemainingLease)
	assert.InDelta(t, 232000.0, rec.ResalePrice, 1e-9)
}

func TestReadResale_OptionalColumns(t *testing.T) {
	path := writeFile(t, "resale.csv",
		"month,town,flat_type,block,street_name,storey_range,floor_area_sqm,flat_model,lease_commence_date\n"+
			"2017-01,BEDOK,3 ROOM,1,BEDOK RD,01 TO 03,67,New Generation,1980\n")

	got, err := ReadResale(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Empty(t, got[0].RemainingLease)
	assert.Zero(t, got[0].ResalePrice)
}

func TestReadResale_MissingRequired(t *testing.T) {
	path := writeFile(t, "resale.csv", "month,town\n2017-01,BEDOK\n")

	_, err := ReadResale(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flat_type")
}

func TestReadResale_BadNumber(t *testing.T) {
	path := writeFile(t, "resale.csv", resaleHeader+
		"2017-01,BEDOK,3 ROOM,1,BEDOK RD,01 TO 03,big,New Generation,1980,,\n")

	_, err := ReadResale(context.Background(), path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "floor_area_sqm")
}
