package catalog

// CabinLocation is a cabin bounding box on a deck plan image.
// Coordinates are in a 0..10000 virtual grid.
type CabinLocation struct {
	CabinID string  `json:"cabinId"`
	X1      float64 `json:"x1"`
	Y1      float64 `json:"y1"`
	X2      float64 `json:"x2"`
	Y2      float64 `json:"y2"`
}

// Valid reports whether the bounding box is well-formed:
// 0 <= x1 < x2 <= 10000 and the same for the y axis.
func (c CabinLocation) Valid() bool {
	return c.X1 >= 0 && c.X1 < c.X2 && c.X2 <= 10000 &&
		c.Y1 >= 0 && c.Y1 < c.Y2 && c.Y2 <= 10000
}

// FilterCabinLocations drops malformed bounding boxes, keeping input order.
func FilterCabinLocations(locations []CabinLocation) []CabinLocation {
	kept := make([]CabinLocation, 0, len(locations))
	for _, loc := range locations {
		if loc.Valid() {
			kept = append(kept, loc)
		}
	}
	return kept
}
