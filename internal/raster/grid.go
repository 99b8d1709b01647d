// Package raster holds in-memory single-band grids and the per-cell
// operations the local pipeline needs: reclassification, multiplication
// and per-pixel area.
package raster

import (
	"math"

	"github.com/rotisserie/eris"
)

// Grid is a north-up single-band raster. Values are stored row-major with
// row 0 at the top (OriginY is the top edge).
type Grid struct {
	Cols       int
	Rows       int
	OriginX    float64
	OriginY    float64
	CellSize   float64
	NoData     float64
	HasNoData  bool
	Geographic bool // coordinates are lon/lat degrees
	Values     []float64
}

// New allocates a zero-filled grid.
func New(cols, rows int, originX, originY, cellSize float64) *Grid {
	return &Grid{
		Cols:     cols,
		Rows:     rows,
		OriginX:  originX,
		OriginY:  originY,
		CellSize: cellSize,
		Values:   make([]float64, cols*rows),
	}
}

// Like allocates an empty grid with the same geometry as g.
func Like(g *Grid) *Grid {
	out := New(g.Cols, g.Rows, g.OriginX, g.OriginY, g.CellSize)
	out.Geographic = g.Geographic
	out.NoData = g.NoData
	out.HasNoData = g.HasNoData
	return out
}

// At returns the value at col,row.
func (g *Grid) At(col, row int) float64 {
	return g.Values[row*g.Cols+col]
}

// Set stores v at col,row.
func (g *Grid) Set(col, row int, v float64) {
	g.Values[row*g.Cols+col] = v
}

// IsNoData reports whether v is the grid's nodata marker.
func (g *Grid) IsNoData(v float64) bool {
	if math.IsNaN(v) {
		return true
	}
	return g.HasNoData && v == g.NoData
}

// CellCenter returns the coordinates of the centre of a cell.
func (g *Grid) CellCenter(col, row int) (x, y float64) {
	x = g.OriginX + (float64(col)+0.5)*g.CellSize
	y = g.OriginY - (float64(row)+0.5)*g.CellSize
	return x, y
}

// CellOf returns the cell containing x,y.
func (g *Grid) CellOf(x, y float64) (col, row int, ok bool) {
	col = int(math.Floor((x - g.OriginX) / g.CellSize))
	row = int(math.Floor((g.OriginY - y) / g.CellSize))
	if col < 0 || row < 0 || col >= g.Cols || row >= g.Rows {
		return 0, 0, false
	}
	return col, row, true
}

// Bounds returns minX, minY, maxX, maxY of the grid extent.
func (g *Grid) Bounds() (minX, minY, maxX, maxY float64) {
	return g.OriginX, g.OriginY - float64(g.Rows)*g.CellSize,
		g.OriginX + float64(g.Cols)*g.CellSize, g.OriginY
}

// SameGeometry reports whether two grids are aligned cell for cell.
func (g *Grid) SameGeometry(o *Grid) bool {
	return g.Cols == o.Cols && g.Rows == o.Rows &&
		g.OriginX == o.OriginX && g.OriginY == o.OriginY &&
		g.CellSize == o.CellSize && g.Geographic == o.Geographic
}

func (g *Grid) validate() error {
	if g.Cols <= 0 || g.Rows <= 0 {
		return eris.Errorf("raster: invalid dimensions %dx%d", g.Cols, g.Rows)
	}
	if g.CellSize <= 0 {
		return eris.Errorf("raster: invalid cell size %v", g.CellSize)
	}
	if len(g.Values) != g.Cols*g.Rows {
		return eris.Errorf("raster: expected %d values, got %d", g.Cols*g.Rows, len(g.Values))
	}
	return nil
}
