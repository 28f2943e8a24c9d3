package catalog

import "strings"

// SeaDayPortName is the canonical display name written for sea-day stops
const SeaDayPortName = "At Sea"

// IsSeaDay reports whether an itinerary port name denotes a day at sea
func IsSeaDay(portName string) bool {
	return strings.EqualFold(strings.TrimSpace(portName), "at sea")
}
