package sprawl

import (
	"fmt"
	"strconv"

	"github.com/rotisserie/eris"
)

// DefaultCountyTable is the Earth Engine table of TIGER county boundaries.
const DefaultCountyTable = "TIGER/2018/Counties"

// Catalog resolves per-year land cover dataset identifiers.
type Catalog struct {
	Landcover   map[int]string
	CountyTable string
}

// DefaultCatalog returns the NLCD releases known to the pipeline.
func DefaultCatalog() Catalog {
	return Catalog{
		Landcover: map[int]string{
			2019: "USGS/NLCD_RELEASES/2019_REL/NLCD",
			2021: "USGS/NLCD_RELEASES/2021_REL/NLCD",
		},
		CountyTable: DefaultCountyTable,
	}
}

// WithOverrides returns a copy of the catalog with year-keyed collection ids
// (as read from config) and the county table replaced where set.
func (c Catalog) WithOverrides(landcover map[string]string, countyTable string) (Catalog, error) {
	out := Catalog{Landcover: make(map[int]string, len(c.Landcover)+len(landcover)), CountyTable: c.CountyTable}
	for y, id := range c.Landcover {
		out.Landcover[y] = id
	}
	for ys, id := range landcover {
		y, err := strconv.Atoi(ys)
		if err != nil {
			return Catalog{}, eris.Wrapf(err, "sprawl: invalid catalog year %q", ys)
		}
		out.Landcover[y] = id
	}
	if countyTable != "" {
		out.CountyTable = countyTable
	}
	return out, nil
}

// LandcoverID returns the image collection id for year. Years without a
// catalog entry resolve to the NLCD release naming scheme; whether that
// release exists is left to the platform.
func (c Catalog) LandcoverID(year int) string {
	if id, ok := c.Landcover[year]; ok {
		return id
	}
	return fmt.Sprintf("USGS/NLCD_RELEASES/%d_REL/NLCD", year)
}

// ExportDescription returns the export task description for year.
func ExportDescription(prefix string, year int) string {
	return prefix + strconv.Itoa(year)
}
