package sink

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// WriteGeocodedXLSX writes geocoded addresses to a single-sheet workbook.
func WriteGeocodedXLSX(path string, rows []model.GeocodedAddress) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("geocoded")
	if err != nil {
		return eris.Wrap(err, "sink: add sheet")
	}

	addRow(sheet, GeocodedHeader)
	for _, g := range rows {
		r := sheet.AddRow()
		r.AddCell().SetString(g.Address)
		if g.Valid() {
			r.AddCell().SetFloat(g.Latitude)
			r.AddCell().SetFloat(g.Longitude)
		} else {
			r.AddCell()
			r.AddCell()
		}
		r.AddCell().SetString(g.Source)
	}

	return writeAtomic(path, func(tmp *os.File) error {
		return f.Write(tmp)
	})
}

func addRow(sheet *xlsx.Sheet, values []string) {
	r := sheet.AddRow()
	for _, v := range values {
		r.AddCell().SetString(v)
	}
}
