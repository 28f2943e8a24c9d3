package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCabinCategory(t *testing.T) {
	cases := []struct {
		codtype string
		want    CabinCategory
	}{
		{"Inside Stateroom", CategoryInside},
		{"INTERIOR", CategoryInside},
		{"Ocean View", CategoryOceanview},
		{"outside cabin", CategoryOceanview},
		{"Balcony", CategoryBalcony},
		{"Veranda Suite", CategoryBalcony}, // verand matched before suite
		{"Grand Suite", CategorySuite},
		{"Studio", CategoryOther},
		{"", CategoryOther},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeCabinCategory(tc.codtype), "codtype=%q", tc.codtype)
	}
}

func TestCategoryForCabinCode(t *testing.T) {
	assert.Equal(t, CategoryInside, CategoryForCabinCode("IB"))
	assert.Equal(t, CategoryOceanview, CategoryForCabinCode("ov2"))
	assert.Equal(t, CategoryBalcony, CategoryForCabinCode("BA"))
	assert.Equal(t, CategorySuite, CategoryForCabinCode(" SJ"))
	assert.Equal(t, CategoryOther, CategoryForCabinCode("XY"))
	assert.Equal(t, CategoryOther, CategoryForCabinCode(""))
}

func TestIsSeaDay(t *testing.T) {
	assert.True(t, IsSeaDay("At Sea"))
	assert.True(t, IsSeaDay("AT SEA"))
	assert.True(t, IsSeaDay("  at sea "))
	assert.False(t, IsSeaDay("Seattle"))
	assert.False(t, IsSeaDay(""))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(45.5, -122.6))
	assert.True(t, ValidCoordinates(-90, 180))
	assert.False(t, ValidCoordinates(90.1, 0))
	assert.False(t, ValidCoordinates(0, -180.5))
}

func TestFilterCabinLocations(t *testing.T) {
	in := []CabinLocation{
		{CabinID: "1001", X1: 0, Y1: 0, X2: 100, Y2: 100},
		{CabinID: "1002", X1: 100, Y1: 0, X2: 100, Y2: 50},   // x1 == x2
		{CabinID: "1003", X1: -1, Y1: 0, X2: 100, Y2: 50},    // negative
		{CabinID: "1004", X1: 0, Y1: 0, X2: 10001, Y2: 50},   // over grid
		{CabinID: "1005", X1: 9000, Y1: 9000, X2: 10000, Y2: 10000},
	}

	kept := FilterCabinLocations(in)
	assert.Len(t, kept, 2)
	assert.Equal(t, "1001", kept[0].CabinID)
	assert.Equal(t, "1005", kept[1].CabinID)
}
