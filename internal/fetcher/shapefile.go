package fetcher

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/hdb-resale/resale-cli/internal/model"
)

// ReadShapefilePoints loads point features (e.g. MRT exits) from a WGS-84
// shapefile, naming each by the nameField attribute. Non-point shapes are skipped.
func ReadShapefilePoints(path, nameField string) ([]model.LocatedEntity, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer reader.Close() //nolint:errcheck

	nameIdx := fieldIndex(reader, nameField)
	if nameIdx < 0 {
		return nil, eris.Errorf("shapefile: %s has no field %q", path, nameField)
	}

	var out []model.LocatedEntity
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		pt, ok := shape.(*shp.Point)
		if !ok {
			skipped++
			continue
		}
		name := strings.TrimSpace(strings.TrimRight(reader.Attribute(nameIdx), "\x00"))
		if name == "" {
			skipped++
			continue
		}
		out = append(out, model.NewLocatedEntity(name, pt.Y, pt.X))
	}

	if skipped > 0 {
		zap.L().Warn("shapefile: skipped features",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return out, nil
}

func fieldIndex(reader *shp.Reader, name string) int {
	for i, f := range reader.Fields() {
		if strings.EqualFold(strings.TrimRight(f.String(), "\x00"), name) {
			return i
		}
	}
	return -1
}
