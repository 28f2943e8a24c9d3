package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Royal Caribbean", "royal-caribbean"},
		{"St. John's / Antigua", "st-john-s-antigua"},
		{"  Harmony   of the Seas  ", "harmony-of-the-seas"},
		{"MSC--Divina", "msc-divina"},
		{"", ""},
		{"!!!", ""},
		{"Ál Pórt", "l-p-rt"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, Slugify(tc.in), "Slugify(%q)", tc.in)
	}
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(123456), ToMinorUnits(1234.56))
	assert.Equal(t, int64(100), ToMinorUnits(0.995))
	assert.Equal(t, int64(0), ToMinorUnits(0))

	v := 10.005
	assert.Equal(t, int64(1001), *ToMinorUnitsPtr(&v))
	assert.Nil(t, ToMinorUnitsPtr(nil))
}
