package sprawl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/sprawl-cli/internal/raster"
	"github.com/sells-group/sprawl-cli/internal/zonal"
)

// writeFixture writes a 4x2 planar grid with 10 m cells:
//
//	21 22 11 41
//	23 24 95 nodata
func writeFixture(t *testing.T, dir string, year int) {
	t.Helper()
	g := raster.New(4, 2, 0, 20, 10)
	g.HasNoData = true
	g.NoData = -9999
	copy(g.Values, []float64{21, 22, 11, 41, 23, 24, 95, -9999})

	f, err := os.Create(filepath.Join(dir, fmt.Sprintf("nlcd_%d.asc", year)))
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	require.NoError(t, raster.WriteASCIIGrid(f, g))
}

func fixtureCounties() []zonal.Feature {
	return []zonal.Feature{
		{
			Properties: map[string]string{ColStateFP: "6", ColCountyFP: "37", ColName: "West"},
			Geometry:   zonal.Polygon(0, 0, 20, 0, 20, 20, 0, 20),
		},
		{
			Properties: map[string]string{ColStateFP: "06", ColCountyFP: "59", ColName: "East"},
			Geometry:   zonal.Polygon(20, 0, 40, 0, 40, 20, 20, 20),
		},
	}
}

func TestLocalOptions_RasterPath(t *testing.T) {
	opts := LocalOptions{Year: 2021, RasterDir: "data", RasterName: "nlcd_%d.asc"}
	assert.Equal(t, filepath.Join("data", "nlcd_2021.asc"), opts.RasterPath())

	opts.RasterName = "landcover.asc"
	assert.Equal(t, filepath.Join("data", "landcover.asc"), opts.RasterPath())
}

func TestDevelopedMask(t *testing.T) {
	g := raster.New(6, 1, 0, 1, 1)
	copy(g.Values, []float64{11, 21, 22, 23, 24, 95})

	mask, err := DevelopedMask(g)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 1, 1, 1, 1, 0}, mask.Values)
}

func TestDevelopedMask_OnlyDevelopedCodes(t *testing.T) {
	other := []float64{0, 11, 12, 20, 25, 31, 41, 52, 71, 82, 90, 95, 250}
	g := raster.New(len(other)+len(DevelopedCodes)+1, 1, 0, 1, 1)
	g.HasNoData = true
	g.NoData = -9999
	for i, c := range DevelopedCodes {
		g.Values[i] = float64(c)
	}
	copy(g.Values[len(DevelopedCodes):], other)
	g.Values[len(g.Values)-1] = -9999

	mask, err := DevelopedMask(g)
	require.NoError(t, err)
	for i := range DevelopedCodes {
		assert.Equal(t, 1.0, mask.Values[i], "code %v", g.Values[i])
	}
	for i := len(DevelopedCodes); i < len(g.Values)-1; i++ {
		assert.Equal(t, 0.0, mask.Values[i], "code %v", g.Values[i])
	}
	assert.True(t, mask.IsNoData(mask.Values[len(mask.Values)-1]))
}

func TestRunLocal(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, 2021)

	stats, err := RunLocal(context.Background(), LocalOptions{
		Year:       2021,
		RasterDir:  dir,
		RasterName: "nlcd_%d.asc",
		Scale:      30,
		TileScale:  2,
	}, fixtureCounties())
	require.NoError(t, err)
	require.Len(t, stats, 2)

	west := stats[0]
	assert.Equal(t, "06", west.StateFP)
	assert.Equal(t, "037", west.CountyFP)
	assert.Equal(t, "06037", west.FIPS)
	assert.Equal(t, int32(2021), west.Year)
	assert.Equal(t, "West", west.Name)
	assert.InDelta(t, 400, west.DevelopedAreaM2, 1e-9)
	assert.InDelta(t, 400, west.TotalAreaM2, 1e-9)
	assert.InDelta(t, 1.0, west.DevelopedFraction, 1e-12)

	east := stats[1]
	assert.Equal(t, "06059", east.FIPS)
	assert.InDelta(t, 0, east.DevelopedAreaM2, 1e-9)
	assert.InDelta(t, 300, east.TotalAreaM2, 1e-9)
	assert.Equal(t, 0.0, east.DevelopedFraction)

	for _, s := range stats {
		assert.GreaterOrEqual(t, s.DevelopedFraction, 0.0)
		assert.LessOrEqual(t, s.DevelopedFraction, 1.0)
		assert.LessOrEqual(t, s.DevelopedAreaM2, s.TotalAreaM2)
	}
}

func TestRunLocal_MissingRaster(t *testing.T) {
	_, err := RunLocal(context.Background(), LocalOptions{
		Year:       2001,
		RasterDir:  t.TempDir(),
		RasterName: "nlcd_%d.asc",
		TileScale:  1,
	}, fixtureCounties())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "land cover for 2001")
}

func TestPrepareCounties(t *testing.T) {
	counties := fixtureCounties()
	assert.Equal(t, counties, PrepareCounties(counties, 0, false))

	prepared := PrepareCounties(counties, 1, false)
	require.Len(t, prepared, 2)
	assert.Equal(t, counties[0].Properties, prepared[0].Properties)
	assert.True(t, prepared[0].Contains(5, 5))
}
