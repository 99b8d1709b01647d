package sprawl

import (
	"fmt"
	"strconv"

	ee "github.com/sells-group/sprawl-cli/pkg/earthengine"
)

// Argument names for mapped functions, following the client library's
// _MAPPING_VAR_<depth>_<index> convention.
const (
	simplifyVar = "_MAPPING_VAR_0_0"
	deriveVar   = "_MAPPING_VAR_1_0"
)

// SelectYearRaster picks the land cover band of the NLCD snapshot for year.
// The year is not validated; an absent snapshot fails on the platform.
func SelectYearRaster(cat Catalog, year int) *ee.Expr {
	collection := ee.Call("ImageCollection.load", ee.Args{
		"id": ee.Constant(cat.LandcoverID(year)),
	})
	filtered := ee.Call("Collection.filter", ee.Args{
		"collection": collection,
		"filter": ee.Call("Filter.equals", ee.Args{
			"leftField":  ee.Constant("system:index"),
			"rightValue": ee.Constant(strconv.Itoa(year)),
		}),
	})
	first := ee.Call("Collection.first", ee.Args{"collection": filtered})
	return ee.Call("Image.select", ee.Args{
		"input":         first,
		"bandSelectors": ee.Constant([]string{BandLandcover}),
	})
}

// SelectCounties loads the county boundary table, simplifying each polygon
// to maxErrorM metres. A non-positive maxErrorM leaves geometry untouched.
func SelectCounties(table string, maxErrorM float64) *ee.Expr {
	counties := ee.Call("Collection.loadTable", ee.Args{"tableId": ee.Constant(table)})
	if maxErrorM <= 0 {
		return counties
	}
	simplify := ee.Call("Feature.simplify", ee.Args{
		"feature": ee.Arg(simplifyVar),
		"maxError": ee.Call("ErrorMargin", ee.Args{
			"value": ee.Constant(maxErrorM),
		}),
	})
	return ee.Call("Collection.map", ee.Args{
		"collection":    counties,
		"baseAlgorithm": ee.Func([]string{simplifyVar}, simplify),
	})
}

// BuildDevelopedMask reclassifies land cover: developed codes become 1,
// everything else 0.
func BuildDevelopedMask(raster *ee.Expr) *ee.Expr {
	ones := make([]int, len(DevelopedCodes))
	for i := range ones {
		ones[i] = 1
	}
	return ee.Call("Image.remap", ee.Args{
		"image":        raster,
		"from":         ee.Constant(DevelopedCodes),
		"to":           ee.Constant(ones),
		"defaultValue": ee.Constant(0),
	})
}

// ComputeAreaBands multiplies the mask by per-pixel area and appends the
// unmasked pixel area, yielding developed_area and total_area bands.
func ComputeAreaBands(mask *ee.Expr) *ee.Expr {
	pixelArea := ee.Call("Image.pixelArea", nil)
	developed := ee.Call("Image.rename", ee.Args{
		"input": ee.Call("Image.multiply", ee.Args{
			"image1": mask,
			"image2": pixelArea,
		}),
		"names": ee.Constant([]string{BandDevelopedArea}),
	})
	total := ee.Call("Image.rename", ee.Args{
		"input": pixelArea,
		"names": ee.Constant([]string{BandTotalArea}),
	})
	return ee.Call("Image.addBands", ee.Args{
		"dstImg": developed,
		"srcImg": total,
	})
}

// ReduceParams are passed through to reduceRegions unchanged.
type ReduceParams struct {
	Scale     float64
	TileScale float64
	CRS       *ee.Expr // nil uses the image's default projection
}

// ReduceByCounty sums both area bands within every county polygon.
func ReduceByCounty(composite, counties *ee.Expr, p ReduceParams) *ee.Expr {
	reducer := ee.Call("Reducer.repeat", ee.Args{
		"reducer": ee.Call("Reducer.sum", nil),
		"count":   ee.Constant(2),
	})
	args := ee.Args{
		"image":      composite,
		"collection": counties,
		"reducer":    reducer,
		"crs":        p.CRS,
	}
	if p.Scale > 0 {
		args["scale"] = ee.Constant(p.Scale)
	}
	if p.TileScale > 0 {
		args["tileScale"] = ee.Constant(p.TileScale)
	}
	return ee.Call("Image.reduceRegions", args)
}

// Projection returns the projection of an image, used as the reduction CRS.
func Projection(image *ee.Expr) *ee.Expr {
	return ee.Call("Image.projection", ee.Args{"image": image})
}

// DeriveFractionGraph maps each reduced county to the output schema:
// zero-padded identifiers, fips, year, areas and developed fraction.
func DeriveFractionGraph(stats *ee.Expr, year int) *ee.Expr {
	feature := ee.Arg(deriveVar)
	get := func(prop string) *ee.Expr {
		return ee.Call("Element.get", ee.Args{
			"object":   feature,
			"property": ee.Constant(prop),
		})
	}
	pad := func(prop string, width int) *ee.Expr {
		return ee.Call("Number.format", ee.Args{
			"number":  ee.Call("Number.parse", ee.Args{"input": get(prop)}),
			"pattern": ee.Constant(fmt.Sprintf("%%0%dd", width)),
		})
	}

	dev := get(SumBandName(BandDevelopedArea))
	tot := get(SumBandName(BandTotalArea))
	state := pad(ColStateFP, 2)
	county := pad(ColCountyFP, 3)

	updated := ee.Call("Element.setMulti", ee.Args{
		"object": feature,
		"properties": ee.Dict(map[string]*ee.Expr{
			ColStateFP:           state,
			ColCountyFP:          county,
			ColFIPS:              ee.Call("String.cat", ee.Args{"string1": state, "string2": county}),
			ColYear:              ee.Constant(year),
			ColDevelopedAreaM2:   dev,
			ColTotalAreaM2:       tot,
			ColDevelopedFraction: ee.Call("Number.divide", ee.Args{"left": dev, "right": tot}),
		}),
	})
	projected := ee.Call("Feature.select", ee.Args{
		"input":             updated,
		"propertySelectors": ee.Constant(Columns),
	})
	return ee.Call("Collection.map", ee.Args{
		"collection":    stats,
		"baseAlgorithm": ee.Func([]string{deriveVar}, projected),
	})
}

// GraphOptions parameterize the full remote computation graph.
type GraphOptions struct {
	Year      int
	Catalog   Catalog
	Scale     float64
	TileScale float64
	SimplifyM float64
}

// BuildGraph assembles the five pipeline stages into a single graph whose
// result is the final county statistics collection.
func BuildGraph(opts GraphOptions) *ee.Expr {
	raster := SelectYearRaster(opts.Catalog, opts.Year)
	counties := SelectCounties(opts.Catalog.CountyTable, opts.SimplifyM)
	mask := BuildDevelopedMask(raster)
	composite := ComputeAreaBands(mask)
	stats := ReduceByCounty(composite, counties, ReduceParams{
		Scale:     opts.Scale,
		TileScale: opts.TileScale,
		CRS:       Projection(raster),
	})
	return DeriveFractionGraph(stats, opts.Year)
}

// CountGraph wraps a collection in Collection.size.
func CountGraph(collection *ee.Expr) *ee.Expr {
	return ee.Call("Collection.size", ee.Args{"collection": collection})
}

// FirstGraph wraps a collection in Collection.first.
func FirstGraph(collection *ee.Expr) *ee.Expr {
	return ee.Call("Collection.first", ee.Args{"collection": collection})
}
