package zonal

import (
	"math"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// MetresPerDegree converts a metre tolerance to degrees at the equator.
const MetresPerDegree = 111320.0

// Simplify reduces ring vertex counts with Douglas-Peucker. maxErrorM is in
// metres; for geographic coordinates it is converted to degrees. Rings that
// would collapse below four points are kept as they are.
func Simplify(mp *geom.MultiPolygon, maxErrorM float64, geographic bool) *geom.MultiPolygon {
	if mp == nil || maxErrorM <= 0 {
		return mp
	}
	tol := maxErrorM
	if geographic {
		tol = maxErrorM / MetresPerDegree
	}

	out := geom.NewMultiPolygon(geom.XY).SetSRID(mp.SRID())
	for i := 0; i < mp.NumPolygons(); i++ {
		src := mp.Polygon(i)
		poly := geom.NewPolygon(geom.XY)
		for j := 0; j < src.NumLinearRings(); j++ {
			ring := src.LinearRing(j)
			flat := simplifyRing(ring.FlatCoords(), ring.Stride(), tol)
			_ = poly.Push(geom.NewLinearRingFlat(geom.XY, flat))
		}
		_ = out.Push(poly)
	}
	return out
}

func simplifyRing(flat []float64, stride int, tol float64) []float64 {
	n := len(flat) / stride
	if n <= 4 {
		return xyOnly(flat, stride)
	}
	keep := make([]bool, n)
	keep[0], keep[n-1] = true, true

	// Closed rings have identical endpoints, so split at the vertex farthest
	// from the start to give the recursion a real baseline.
	far, best := 0, -1.0
	for i := 1; i < n-1; i++ {
		dx, dy := flat[i*stride]-flat[0], flat[i*stride+1]-flat[1]
		if d := math.Hypot(dx, dy); d > best {
			far, best = i, d
		}
	}
	keep[far] = true
	douglasPeucker(flat, stride, 0, far, tol, keep)
	douglasPeucker(flat, stride, far, n-1, tol, keep)

	out := make([]float64, 0, n*2)
	kept := 0
	for i := 0; i < n; i++ {
		if keep[i] {
			out = append(out, flat[i*stride], flat[i*stride+1])
			kept++
		}
	}
	if kept < 4 {
		return xyOnly(flat, stride)
	}
	return out
}

func douglasPeucker(flat []float64, stride, first, last int, tol float64, keep []bool) {
	if last-first < 2 {
		return
	}
	a, b := coord(flat, stride, first), coord(flat, stride, last)
	idx, maxDist := -1, tol
	for i := first + 1; i < last; i++ {
		if d := xy.DistanceFromPointToLine(coord(flat, stride, i), a, b); d > maxDist {
			idx, maxDist = i, d
		}
	}
	if idx < 0 {
		return
	}
	keep[idx] = true
	douglasPeucker(flat, stride, first, idx, tol, keep)
	douglasPeucker(flat, stride, idx, last, tol, keep)
}

func coord(flat []float64, stride, i int) geom.Coord {
	return geom.Coord{flat[i*stride], flat[i*stride+1]}
}

func xyOnly(flat []float64, stride int) []float64 {
	if stride == 2 {
		return append([]float64(nil), flat...)
	}
	out := make([]float64, 0, len(flat)/stride*2)
	for i := 0; i+1 < len(flat); i += stride {
		out = append(out, flat[i], flat[i+1])
	}
	return out
}
