package predict

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// LeaseYears is the length of an HDB lease.
const LeaseYears = 99

// Input is one flat described by the model's features.
type Input struct {
	Town                 string  `json:"town" yaml:"town"`
	FlatType             string  `json:"flat_type" yaml:"flat_type"`
	FlatModel            string  `json:"flat_model" yaml:"flat_model"`
	FloorAreaSqm         float64 `json:"floor_area_sqm" yaml:"floor_area_sqm"`
	RemainingLeaseMonths float64 `json:"remaining_lease_months" yaml:"remaining_lease_months"`
	AverageStorey        float64 `json:"average_storey" yaml:"average_storey"`
	Year                 float64 `json:"year" yaml:"year"`
	MonthNum             float64 `json:"month_num" yaml:"month_num"`
	DistanceToMRT        float64 `json:"distance_to_mrt" yaml:"distance_to_mrt"`
}

func (in Input) categorical(column string) (string, bool) {
	switch column {
	case "town":
		return in.Town, true
	case "flat_type":
		return in.FlatType, true
	case "flat_model":
		return in.FlatModel, true
	}
	return "", false
}

func (in Input) numeric(column string) (float64, bool) {
	switch column {
	case "floor_area_sqm":
		return in.FloorAreaSqm, true
	case "remaining_lease_months":
		return in.RemainingLeaseMonths, true
	case "average_storey":
		return in.AverageStorey, true
	case "year":
		return in.Year, true
	case "month_num":
		return in.MonthNum, true
	case "distance_to_mrt":
		return in.DistanceToMRT, true
	}
	return 0, false
}

// FromResale derives model features from a transaction row and the distance
// to its nearest MRT station. When remaining_lease is blank it is computed
// from lease_commence_date and the transaction month.
func FromResale(rec model.ResaleRecord, distanceKM float64) (Input, error) {
	year, month, err := ParseMonth(rec.Month)
	if err != nil {
		return Input{}, err
	}
	storey, err := ParseStoreyRange(rec.StoreyRange)
	if err != nil {
		return Input{}, err
	}

	var lease int
	if strings.TrimSpace(rec.RemainingLease) != "" {
		if lease, err = ParseRemainingLease(rec.RemainingLease); err != nil {
			return Input{}, err
		}
	} else {
		if rec.LeaseCommenceDate == 0 {
			return Input{}, eris.New("predict: neither remaining_lease nor lease_commence_date is set")
		}
		elapsed := (year-rec.LeaseCommenceDate)*12 + (month - 1)
		lease = LeaseYears*12 - elapsed
	}

	return Input{
		Town:                 strings.ToUpper(strings.TrimSpace(rec.Town)),
		FlatType:             strings.ToUpper(strings.TrimSpace(rec.FlatType)),
		FlatModel:            strings.TrimSpace(rec.FlatModel),
		FloorAreaSqm:         rec.FloorAreaSqm,
		RemainingLeaseMonths: float64(lease),
		AverageStorey:        storey,
		Year:                 float64(year),
		MonthNum:             float64(month),
		DistanceToMRT:        distanceKM,
	}, nil
}

var storeyRangeRe = regexp.MustCompile(`^\s*(\d+)\s+TO\s+(\d+)\s*$`)

// ParseStoreyRange turns "04 TO 06" into its midpoint, 5.
func ParseStoreyRange(s string) (float64, error) {
	m := storeyRangeRe.FindStringSubmatch(strings.ToUpper(s))
	if m == nil {
		return 0, eris.Errorf("predict: bad storey range %q", s)
	}
	lo, _ := strconv.Atoi(m[1])
	hi, _ := strconv.Atoi(m[2])
	if hi < lo {
		return 0, eris.Errorf("predict: bad storey range %q", s)
	}
	return float64(lo+hi) / 2, nil
}

var remainingLeaseRe = regexp.MustCompile(`^\s*(\d+)\s+years?(?:\s+(\d+)\s+months?)?\s*$`)

// ParseRemainingLease turns "61 years 04 months" into 736. A bare year
// count such as "70" is also accepted.
func ParseRemainingLease(s string) (int, error) {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n * 12, nil
	}
	m := remainingLeaseRe.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return 0, eris.Errorf("predict: bad remaining lease %q", s)
	}
	years, _ := strconv.Atoi(m[1])
	months := 0
	if m[2] != "" {
		months, _ = strconv.Atoi(m[2])
	}
	if months >= 12 {
		return 0, eris.Errorf("predict: bad remaining lease %q", s)
	}
	return years*12 + months, nil
}

// ParseMonth splits "2017-01" into year and month.
func ParseMonth(s string) (year, month int, err error) {
	parts := strings.Split(strings.TrimSpace(s), "-")
	if len(parts) != 2 {
		return 0, 0, eris.Errorf("predict: bad month %q", s)
	}
	if year, err = strconv.Atoi(parts[0]); err != nil {
		return 0, 0, eris.Wrapf(err, "predict: bad month %q", s)
	}
	if month, err = strconv.Atoi(parts[1]); err != nil || month < 1 || month > 12 {
		return 0, 0, eris.Errorf("predict: bad month %q", s)
	}
	return year, month, nil
}
