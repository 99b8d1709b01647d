// Package tiger downloads Census TIGER/Line county boundaries, reads them
// into polygon features and loads them into Postgres.
package tiger

import "fmt"

// BaseURL is the Census TIGER/Line download root.
const BaseURL = "https://www2.census.gov/geo/tiger"

// Attribute names read from the county shapefile.
const (
	AttrStateFP  = "STATEFP"
	AttrCountyFP = "COUNTYFP"
	AttrGeoID    = "GEOID"
	AttrName     = "NAME"
)

// CountyAttributes are copied into feature properties.
var CountyAttributes = []string{AttrStateFP, AttrCountyFP, AttrGeoID, AttrName}

// CountyURL returns the national county shapefile URL for a vintage.
func CountyURL(year int) string {
	return fmt.Sprintf("%s/TIGER%d/COUNTY/tl_%d_us_county.zip", BaseURL, year, year)
}
