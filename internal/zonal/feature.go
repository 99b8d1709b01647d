// Package zonal reduces raster bands over polygon features: per-feature
// sums of every band, computed concurrently.
package zonal

import (
	"github.com/twpayne/go-geom"
)

// Feature is a polygon with string attributes.
type Feature struct {
	Properties map[string]string
	Geometry   *geom.MultiPolygon
}

// Contains reports whether x,y lies inside the feature. Rings are combined
// with the even-odd rule so shapefile holes need no orientation handling.
// Boundaries are half-open: a point on an edge shared by two adjacent
// features belongs to exactly one of them.
func (f Feature) Contains(x, y float64) bool {
	if f.Geometry == nil {
		return false
	}
	inside := false
	for i := 0; i < f.Geometry.NumPolygons(); i++ {
		poly := f.Geometry.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := poly.LinearRing(j)
			if ringCrossings(ring.FlatCoords(), ring.Stride(), x, y)%2 == 1 {
				inside = !inside
			}
		}
	}
	return inside
}

// ringCrossings counts ring edges crossed by the ray from x,y towards +x.
// An edge spans y when exactly one endpoint lies above it, and a crossing
// at exactly x is not counted, so points on min-side edges are inside and
// points on max-side edges are outside.
func ringCrossings(flat []float64, stride int, x, y float64) int {
	n := len(flat) / stride
	if n < 3 {
		return 0
	}
	crossings := 0
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := flat[i*stride], flat[i*stride+1]
		xj, yj := flat[j*stride], flat[j*stride+1]
		if (yi > y) == (yj > y) {
			continue
		}
		if x < xj+(y-yj)*(xi-xj)/(yi-yj) {
			crossings++
		}
	}
	return crossings
}

// Bounds returns the feature envelope; ok is false for empty geometry.
func (f Feature) Bounds() (minX, minY, maxX, maxY float64, ok bool) {
	if f.Geometry == nil || f.Geometry.NumPolygons() == 0 {
		return 0, 0, 0, 0, false
	}
	b := f.Geometry.Bounds()
	return b.Min(0), b.Min(1), b.Max(0), b.Max(1), true
}

// Polygon builds a single-ring feature geometry from x,y pairs. The ring is
// closed if the last point differs from the first.
func Polygon(coords ...float64) *geom.MultiPolygon {
	n := len(coords)
	if n >= 2 && (coords[0] != coords[n-2] || coords[1] != coords[n-1]) {
		coords = append(append([]float64(nil), coords...), coords[0], coords[1])
	}
	poly := geom.NewPolygonFlat(geom.XY, coords, []int{len(coords)})
	mp := geom.NewMultiPolygon(geom.XY)
	_ = mp.Push(poly)
	return mp
}
