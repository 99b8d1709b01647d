package sprawl

// NLCD land cover codes for the four developed intensity classes.
const (
	CodeDevelopedOpen   = 21
	CodeDevelopedLow    = 22
	CodeDevelopedMedium = 23
	CodeDevelopedHigh   = 24
)

// Band names used throughout the pipeline.
const (
	BandLandcover     = "landcover"
	BandDevelopedArea = "developed_area"
	BandTotalArea     = "total_area"
)

// DevelopedCodes is the closed set of land cover codes counted as developed.
var DevelopedCodes = []int{CodeDevelopedOpen, CodeDevelopedLow, CodeDevelopedMedium, CodeDevelopedHigh}

// SumBandName is the property name a summed band is written to by the
// zonal reducer, e.g. developed_area -> developed_area_sum.
func SumBandName(band string) string {
	return band + "_sum"
}
