package sprawl

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/sprawl-cli/internal/raster"
	"github.com/sells-group/sprawl-cli/internal/zonal"
)

// LocalOptions parameterize the in-process pipeline.
type LocalOptions struct {
	Year       int
	RasterDir  string
	RasterName string // fmt pattern taking the year, e.g. nlcd_%d.asc
	Geographic bool   // raster and counties use lon/lat degrees
	Scale      float64
	TileScale  float64 // bounds concurrent county reductions
	SimplifyM  float64
}

// RasterPath returns the land cover grid path for the configured year.
func (o LocalOptions) RasterPath() string {
	name := o.RasterName
	if strings.Contains(name, "%") {
		name = fmt.Sprintf(name, o.Year)
	}
	return filepath.Join(o.RasterDir, name)
}

// LoadYearRaster reads the land cover grid for the configured year.
func LoadYearRaster(opts LocalOptions) (*raster.Grid, error) {
	g, err := raster.ReadASCIIGridFile(opts.RasterPath(), opts.Geographic)
	if err != nil {
		return nil, eris.Wrapf(err, "sprawl: land cover for %d", opts.Year)
	}
	return g, nil
}

// PrepareCounties simplifies county polygons to maxErrorM metres.
func PrepareCounties(counties []zonal.Feature, maxErrorM float64, geographic bool) []zonal.Feature {
	if maxErrorM <= 0 {
		return counties
	}
	out := make([]zonal.Feature, len(counties))
	for i, f := range counties {
		out[i] = zonal.Feature{
			Properties: f.Properties,
			Geometry:   zonal.Simplify(f.Geometry, maxErrorM, geographic),
		}
	}
	return out
}

// DevelopedMask reclassifies a land cover grid to 1 for developed codes and
// 0 elsewhere. Nodata cells stay masked.
func DevelopedMask(landcover *raster.Grid) (*raster.Grid, error) {
	from := make([]float64, len(DevelopedCodes))
	to := make([]float64, len(DevelopedCodes))
	for i, c := range DevelopedCodes {
		from[i], to[i] = float64(c), 1
	}
	mask, err := raster.Remap(landcover, from, to, 0)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: developed mask")
	}
	return mask, nil
}

// AreaBands builds the developed_area and total_area composite from a mask.
func AreaBands(mask *raster.Grid) (*raster.Composite, error) {
	area := raster.PixelArea(mask)
	developed, err := raster.Multiply(mask, area)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: developed area")
	}
	comp, err := raster.NewComposite(
		raster.Band{Name: BandDevelopedArea, Grid: developed},
		raster.Band{Name: BandTotalArea, Grid: area},
	)
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: area composite")
	}
	return comp, nil
}

// ReduceCounties sums both area bands over every county.
func ReduceCounties(ctx context.Context, comp *raster.Composite, counties []zonal.Feature, tileScale float64) ([]RegionStats, error) {
	results, err := zonal.ReduceRegions(ctx, comp, counties, zonal.Options{Workers: int(tileScale)})
	if err != nil {
		return nil, eris.Wrap(err, "sprawl: reduce counties")
	}
	out := make([]RegionStats, len(results))
	for i, r := range results {
		out[i] = RegionStats{
			Properties:       r.Properties,
			DevelopedAreaSum: r.Sums[SumBandName(BandDevelopedArea)],
			TotalAreaSum:     r.Sums[SumBandName(BandTotalArea)],
		}
	}
	return out, nil
}

// RunLocal executes the five pipeline stages in-process and returns the
// county statistics table.
func RunLocal(ctx context.Context, opts LocalOptions, counties []zonal.Feature) ([]CountyStat, error) {
	log := zap.L().With(
		zap.String("component", "sprawl.local"),
		zap.Int("year", opts.Year),
	)
	start := time.Now()

	landcover, err := LoadYearRaster(opts)
	if err != nil {
		return nil, err
	}
	log.Debug("land cover loaded",
		zap.String("path", opts.RasterPath()),
		zap.Int("cols", landcover.Cols),
		zap.Int("rows", landcover.Rows),
		zap.Float64("cell_size", landcover.CellSize),
		zap.Float64("scale", opts.Scale),
	)

	prepared := PrepareCounties(counties, opts.SimplifyM, opts.Geographic)

	mask, err := DevelopedMask(landcover)
	if err != nil {
		return nil, err
	}
	comp, err := AreaBands(mask)
	if err != nil {
		return nil, err
	}
	regions, err := ReduceCounties(ctx, comp, prepared, opts.TileScale)
	if err != nil {
		return nil, err
	}
	stats := DeriveFractionFields(opts.Year, regions)

	log.Info("local pipeline complete",
		zap.Int("counties", len(stats)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return stats, nil
}
