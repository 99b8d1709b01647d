package raster

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ReadASCIIGridFile opens and parses an ESRI ASCII grid.
func ReadASCIIGridFile(path string, geographic bool) (*Grid, error) {
	f, err := os.Open(path) // #nosec G304 -- path comes from operator config
	if err != nil {
		return nil, eris.Wrapf(err, "raster: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	g, err := ReadASCIIGrid(f)
	if err != nil {
		return nil, eris.Wrapf(err, "raster: parse %s", path)
	}
	g.Geographic = geographic
	return g, nil
}

// ReadASCIIGrid parses an ESRI ASCII grid. Both corner and centre
// registration are accepted; the grid origin is always the top-left corner.
func ReadASCIIGrid(r io.Reader) (*Grid, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	sc.Split(bufio.ScanWords)

	header := make(map[string]float64, 6)
	var pending string
	for sc.Scan() {
		tok := sc.Text()
		key := strings.ToLower(tok)
		if !isHeaderKey(key) {
			pending = tok
			break
		}
		if !sc.Scan() {
			return nil, eris.Errorf("raster: header %s has no value", key)
		}
		v, err := strconv.ParseFloat(sc.Text(), 64)
		if err != nil {
			return nil, eris.Wrapf(err, "raster: header %s", key)
		}
		header[key] = v
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan header")
	}

	for _, k := range []string{"ncols", "nrows", "cellsize"} {
		if _, ok := header[k]; !ok {
			return nil, eris.Errorf("raster: missing header %s", k)
		}
	}

	cols, rows, cell := int(header["ncols"]), int(header["nrows"]), header["cellsize"]
	g := New(cols, rows, 0, 0, cell)

	switch {
	case has(header, "xllcorner"):
		g.OriginX = header["xllcorner"]
	case has(header, "xllcenter"):
		g.OriginX = header["xllcenter"] - cell/2
	default:
		return nil, eris.New("raster: missing header xllcorner")
	}
	switch {
	case has(header, "yllcorner"):
		g.OriginY = header["yllcorner"] + float64(rows)*cell
	case has(header, "yllcenter"):
		g.OriginY = header["yllcenter"] - cell/2 + float64(rows)*cell
	default:
		return nil, eris.New("raster: missing header yllcorner")
	}
	if nd, ok := header["nodata_value"]; ok {
		g.NoData, g.HasNoData = nd, true
	}

	n := 0
	parse := func(tok string) error {
		if n >= len(g.Values) {
			return eris.Errorf("raster: more than %d values", len(g.Values))
		}
		v, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return eris.Wrapf(err, "raster: value %d", n)
		}
		g.Values[n] = v
		n++
		return nil
	}
	if pending != "" {
		if err := parse(pending); err != nil {
			return nil, err
		}
	}
	for sc.Scan() {
		if err := parse(sc.Text()); err != nil {
			return nil, err
		}
	}
	if err := sc.Err(); err != nil {
		return nil, eris.Wrap(err, "raster: scan values")
	}
	if n != len(g.Values) {
		return nil, eris.Errorf("raster: expected %d values, got %d", len(g.Values), n)
	}
	if err := g.validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// WriteASCIIGrid writes g in ESRI ASCII grid format with corner registration.
func WriteASCIIGrid(w io.Writer, g *Grid) error {
	if err := g.validate(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	_, minY, _, _ := g.Bounds()
	fmt.Fprintf(bw, "ncols %d\nnrows %d\n", g.Cols, g.Rows)
	fmt.Fprintf(bw, "xllcorner %s\nyllcorner %s\n", fmtFloat(g.OriginX), fmtFloat(minY))
	fmt.Fprintf(bw, "cellsize %s\n", fmtFloat(g.CellSize))
	if g.HasNoData {
		fmt.Fprintf(bw, "NODATA_value %s\n", fmtFloat(g.NoData))
	}
	for row := 0; row < g.Rows; row++ {
		for col := 0; col < g.Cols; col++ {
			if col > 0 {
				bw.WriteByte(' ') //nolint:errcheck
			}
			bw.WriteString(fmtFloat(g.At(col, row))) //nolint:errcheck
		}
		bw.WriteByte('\n') //nolint:errcheck
	}
	return eris.Wrap(bw.Flush(), "raster: write grid")
}

func isHeaderKey(k string) bool {
	switch k {
	case "ncols", "nrows", "xllcorner", "yllcorner", "xllcenter", "yllcenter", "cellsize", "nodata_value":
		return true
	}
	return false
}

func has(m map[string]float64, k string) bool {
	_, ok := m[k]
	return ok
}

func fmtFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
