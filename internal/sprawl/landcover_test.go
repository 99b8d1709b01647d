package sprawl

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSumBandName(t *testing.T) {
	assert.Equal(t, "developed_area_sum", SumBandName(BandDevelopedArea))
	assert.Equal(t, "total_area_sum", SumBandName(BandTotalArea))
}
