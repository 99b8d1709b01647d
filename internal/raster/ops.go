package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// EarthRadiusM is the authalic radius used for geographic pixel areas.
const EarthRadiusM = 6371007.181

// Remap reclassifies values: each value found in from becomes the matching
// entry of to, anything else becomes def. Nodata cells stay nodata.
func Remap(g *Grid, from, to []float64, def float64) (*Grid, error) {
	if len(from) != len(to) {
		return nil, eris.Errorf("raster: remap from/to length mismatch (%d vs %d)", len(from), len(to))
	}
	lookup := make(map[float64]float64, len(from))
	for i, v := range from {
		lookup[v] = to[i]
	}

	out := Like(g)
	for i, v := range g.Values {
		if g.IsNoData(v) {
			out.Values[i] = v
			continue
		}
		if mapped, ok := lookup[v]; ok {
			out.Values[i] = mapped
		} else {
			out.Values[i] = def
		}
	}
	return out, nil
}

// Multiply returns a*b cell by cell. A nodata cell in either input is
// nodata in the result.
func Multiply(a, b *Grid) (*Grid, error) {
	if !a.SameGeometry(b) {
		return nil, eris.New("raster: multiply grids with different geometry")
	}
	out := Like(a)
	if !out.HasNoData && b.HasNoData {
		out.NoData, out.HasNoData = b.NoData, true
	}
	for i := range a.Values {
		av, bv := a.Values[i], b.Values[i]
		if a.IsNoData(av) || b.IsNoData(bv) {
			out.Values[i] = math.NaN()
			continue
		}
		out.Values[i] = av * bv
	}
	return out, nil
}

// PixelArea returns a grid of per-cell area in square metres, aligned with
// like and masked where like is nodata. Projected grids are assumed to use
// metre units; geographic cells use the spherical zone area.
func PixelArea(like *Grid) *Grid {
	out := Like(like)
	for row := 0; row < like.Rows; row++ {
		area := like.CellSize * like.CellSize
		if like.Geographic {
			top := like.OriginY - float64(row)*like.CellSize
			area = sphericalCellArea(top, top-like.CellSize, like.CellSize)
		}
		for col := 0; col < like.Cols; col++ {
			i := row*like.Cols + col
			if like.IsNoData(like.Values[i]) {
				out.Values[i] = math.NaN()
				continue
			}
			out.Values[i] = area
		}
	}
	return out
}

// sphericalCellArea is R² · Δλ · |sin φ1 − sin φ2| for a cell spanning
// latitudes lat1..lat2 and widthDeg degrees of longitude.
func sphericalCellArea(lat1, lat2, widthDeg float64) float64 {
	rad := math.Pi / 180
	return EarthRadiusM * EarthRadiusM * widthDeg * rad *
		math.Abs(math.Sin(lat1*rad)-math.Sin(lat2*rad))
}

// Band is a named grid.
type Band struct {
	Name string
	Grid *Grid
}

// Composite is a stack of aligned bands.
type Composite struct {
	Bands []Band
}

// NewComposite stacks bands that share geometry.
func NewComposite(bands ...Band) (*Composite, error) {
	if len(bands) == 0 {
		return nil, eris.New("raster: composite needs at least one band")
	}
	seen := make(map[string]bool, len(bands))
	for _, b := range bands {
		if b.Grid == nil {
			return nil, eris.Errorf("raster: band %q has no grid", b.Name)
		}
		if seen[b.Name] {
			return nil, eris.Errorf("raster: duplicate band %q", b.Name)
		}
		seen[b.Name] = true
		if !b.Grid.SameGeometry(bands[0].Grid) {
			return nil, eris.Errorf("raster: band %q is not aligned with %q", b.Name, bands[0].Name)
		}
	}
	return &Composite{Bands: bands}, nil
}

// Geometry returns the shared grid geometry (the first band).
func (c *Composite) Geometry() *Grid {
	return c.Bands[0].Grid
}
