package zonal

import (
	"context"
	"math"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/sprawl-cli/internal/raster"
)

// SumSuffix is appended to band names in reduction output.
const SumSuffix = "_sum"

// Options control ReduceRegions.
type Options struct {
	// Workers bounds the number of features reduced at once.
	Workers int
}

// Result is one reduced feature: its original properties plus one
// "<band>_sum" value per composite band.
type Result struct {
	Properties map[string]string
	Sums       map[string]float64
	Pixels     int
}

// ReduceRegions sums every band of comp over each feature. A cell belongs to
// a feature when its centre lies inside the polygon; masked cells are
// skipped per band. Results keep the order of features.
func ReduceRegions(ctx context.Context, comp *raster.Composite, features []Feature, opts Options) ([]Result, error) {
	if comp == nil || len(comp.Bands) == 0 {
		return nil, eris.New("zonal: empty composite")
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	log := zap.L().With(
		zap.String("component", "zonal.reduce"),
		zap.Int("features", len(features)),
		zap.Int("workers", workers),
	)
	log.Debug("reducing regions")

	results := make([]Result, len(features))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range features {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = reduceFeature(comp, features[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "zonal: reduce regions")
	}

	log.Debug("regions reduced")
	return results, nil
}

func reduceFeature(comp *raster.Composite, f Feature) Result {
	res := Result{
		Properties: copyProps(f.Properties),
		Sums:       make(map[string]float64, len(comp.Bands)),
	}
	for _, b := range comp.Bands {
		res.Sums[b.Name+SumSuffix] = 0
	}

	minX, minY, maxX, maxY, ok := f.Bounds()
	if !ok {
		return res
	}
	grid := comp.Geometry()
	c0, r0, c1, r1 := window(grid, minX, minY, maxX, maxY)

	for row := r0; row <= r1; row++ {
		for col := c0; col <= c1; col++ {
			x, y := grid.CellCenter(col, row)
			if !f.Contains(x, y) {
				continue
			}
			res.Pixels++
			for _, b := range comp.Bands {
				v := b.Grid.At(col, row)
				if b.Grid.IsNoData(v) {
					continue
				}
				res.Sums[b.Name+SumSuffix] += v
			}
		}
	}
	return res
}

// window clips a bounding box to the cell range of g.
func window(g *raster.Grid, minX, minY, maxX, maxY float64) (c0, r0, c1, r1 int) {
	c0 = clamp(int(math.Floor((minX-g.OriginX)/g.CellSize)), 0, g.Cols-1)
	c1 = clamp(int(math.Floor((maxX-g.OriginX)/g.CellSize)), 0, g.Cols-1)
	r0 = clamp(int(math.Floor((g.OriginY-maxY)/g.CellSize)), 0, g.Rows-1)
	r1 = clamp(int(math.Floor((g.OriginY-minY)/g.CellSize)), 0, g.Rows-1)
	return c0, r0, c1, r1
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func copyProps(in map[string]string) map[string]string {
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
