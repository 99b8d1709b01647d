// Package sprawl computes county-level developed-land statistics from NLCD
// land cover, either as an Earth Engine export job or in-process.
package sprawl

import (
	"strconv"
	"strings"
)

// Output column names, in export order.
const (
	ColStateFP           = "STATEFP"
	ColCountyFP          = "COUNTYFP"
	ColFIPS              = "fips"
	ColYear              = "year"
	ColName              = "NAME"
	ColDevelopedAreaM2   = "developed_area_m2"
	ColTotalAreaM2       = "total_area_m2"
	ColDevelopedFraction = "developed_fraction"
)

// Columns is the exact output schema of a county statistics table.
var Columns = []string{
	ColStateFP,
	ColCountyFP,
	ColFIPS,
	ColYear,
	ColName,
	ColDevelopedAreaM2,
	ColTotalAreaM2,
	ColDevelopedFraction,
}

// CountyStat is one row of the exported table.
type CountyStat struct {
	StateFP           string  `json:"STATEFP" csv:"STATEFP" parquet:"name=STATEFP, type=BYTE_ARRAY, convertedtype=UTF8"`
	CountyFP          string  `json:"COUNTYFP" csv:"COUNTYFP" parquet:"name=COUNTYFP, type=BYTE_ARRAY, convertedtype=UTF8"`
	FIPS              string  `json:"fips" csv:"fips" parquet:"name=fips, type=BYTE_ARRAY, convertedtype=UTF8"`
	Year              int32   `json:"year" csv:"year" parquet:"name=year, type=INT32"`
	Name              string  `json:"NAME" csv:"NAME" parquet:"name=NAME, type=BYTE_ARRAY, convertedtype=UTF8"`
	DevelopedAreaM2   float64 `json:"developed_area_m2" csv:"developed_area_m2" parquet:"name=developed_area_m2, type=DOUBLE"`
	TotalAreaM2       float64 `json:"total_area_m2" csv:"total_area_m2" parquet:"name=total_area_m2, type=DOUBLE"`
	DevelopedFraction float64 `json:"developed_fraction" csv:"developed_fraction" parquet:"name=developed_fraction, type=DOUBLE"`
}

// Fields returns the record as ordered column/value pairs matching Columns.
func (c CountyStat) Fields() []Field {
	return []Field{
		{ColStateFP, c.StateFP},
		{ColCountyFP, c.CountyFP},
		{ColFIPS, c.FIPS},
		{ColYear, c.Year},
		{ColName, c.Name},
		{ColDevelopedAreaM2, c.DevelopedAreaM2},
		{ColTotalAreaM2, c.TotalAreaM2},
		{ColDevelopedFraction, c.DevelopedFraction},
	}
}

// Values returns the record's values in Columns order.
func (c CountyStat) Values() []any {
	fields := c.Fields()
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = f.Value
	}
	return out
}

// Field is a single named output value.
type Field struct {
	Name  string
	Value any
}

// PadStart left-pads s with '0' to width characters. Longer strings are
// returned unchanged.
func PadStart(s string, width int) string {
	s = strings.TrimSpace(s)
	if len(s) >= width {
		return s
	}
	return strings.Repeat("0", width-len(s)) + s
}

// NormalizeFIPS zero-pads state (2) and county (3) codes and returns them
// along with the concatenated 5-character county FIPS.
func NormalizeFIPS(stateFP, countyFP string) (state, county, fips string) {
	state = PadStart(stateFP, 2)
	county = PadStart(countyFP, 3)
	return state, county, state + county
}

// DevelopedFraction returns developed/total. A zero or negative total yields 0.
func DevelopedFraction(developed, total float64) float64 {
	if total <= 0 {
		return 0
	}
	f := developed / total
	switch {
	case f < 0:
		return 0
	case f > 1:
		return 1
	}
	return f
}

// RegionStats is the zonal reduction output for one county polygon.
type RegionStats struct {
	Properties       map[string]string
	DevelopedAreaSum float64
	TotalAreaSum     float64
}

// DeriveFractionFields normalizes identifiers, computes the developed
// fraction and projects every region onto the output schema.
func DeriveFractionFields(year int, regions []RegionStats) []CountyStat {
	out := make([]CountyStat, 0, len(regions))
	for _, r := range regions {
		state, county, fips := NormalizeFIPS(r.Properties[ColStateFP], r.Properties[ColCountyFP])
		out = append(out, CountyStat{
			StateFP:           state,
			CountyFP:          county,
			FIPS:              fips,
			Year:              int32(year),
			Name:              r.Properties[ColName],
			DevelopedAreaM2:   r.DevelopedAreaSum,
			TotalAreaM2:       r.TotalAreaSum,
			DevelopedFraction: DevelopedFraction(r.DevelopedAreaSum, r.TotalAreaSum),
		})
	}
	return out
}

// ParseYear parses a year column value such as "2021" or "2021.0".
func ParseYear(s string) (int, error) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '.'); i >= 0 {
		s = s[:i]
	}
	return strconv.Atoi(s)
}
