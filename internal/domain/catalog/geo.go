package catalog

// ValidCoordinates reports whether a latitude/longitude pair is inside
// the WGS84 envelope. Out-of-range vendor coordinates are dropped rather
// than persisted.
func ValidCoordinates(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}
