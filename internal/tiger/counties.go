package tiger

import (
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/zonal"
)

// ReadCounties reads county polygons and their identifying attributes from
// a shapefile. Records without polygon geometry are skipped.
func ReadCounties(shpPath string) ([]zonal.Feature, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "tiger: open shapefile %s", shpPath)
	}
	defer reader.Close() //nolint:errcheck

	fieldIdx := make(map[string]int)
	for i, f := range reader.Fields() {
		fieldIdx[strings.ToUpper(strings.TrimRight(f.String(), "\x00"))] = i
	}
	for _, attr := range []string{AttrStateFP, AttrCountyFP} {
		if _, ok := fieldIdx[attr]; !ok {
			return nil, eris.Errorf("tiger: shapefile %s has no %s field", shpPath, attr)
		}
	}

	var features []zonal.Feature
	skipped := 0
	for reader.Next() {
		_, shape := reader.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			skipped++
			continue
		}
		mp := ToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		props := make(map[string]string, len(CountyAttributes))
		for _, attr := range CountyAttributes {
			idx, ok := fieldIdx[attr]
			if !ok {
				continue
			}
			props[attr] = strings.TrimSpace(strings.TrimRight(reader.Attribute(idx), "\x00"))
		}
		features = append(features, zonal.Feature{Properties: props, Geometry: mp})
	}
	if err := reader.Err(); err != nil {
		return nil, eris.Wrapf(err, "tiger: read shapefile %s", shpPath)
	}

	if skipped > 0 {
		zap.L().Debug("tiger: skipped county records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	return features, nil
}
