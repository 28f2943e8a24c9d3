package catalog

import "strings"

// CabinCategory is the normalized cabin classification used across the catalog
type CabinCategory string

const (
	CategoryInside    CabinCategory = "inside"
	CategoryOceanview CabinCategory = "oceanview"
	CategoryBalcony   CabinCategory = "balcony"
	CategorySuite     CabinCategory = "suite"
	CategoryOther     CabinCategory = "other"
)

// NormalizeCabinCategory maps the vendor's free-text cabin type (codtype)
// onto a CabinCategory using case-insensitive substring matching.
func NormalizeCabinCategory(codtype string) CabinCategory {
	t := strings.ToLower(codtype)
	switch {
	case strings.Contains(t, "inside"), strings.Contains(t, "interior"):
		return CategoryInside
	case strings.Contains(t, "ocean"), strings.Contains(t, "outside"):
		return CategoryOceanview
	case strings.Contains(t, "balcon"), strings.Contains(t, "verand"):
		return CategoryBalcony
	case strings.Contains(t, "suite"):
		return CategorySuite
	default:
		return CategoryOther
	}
}

// CategoryForCabinCode infers a category from the first characters of a
// vendor cabin code when no cabin type is on record. Vendors prefix codes
// with the broad category letter (IB, OV, BA, SJ, ...).
func CategoryForCabinCode(code string) CabinCategory {
	prefix := strings.ToUpper(strings.TrimSpace(code))
	if prefix == "" {
		return CategoryOther
	}
	switch prefix[0] {
	case 'I':
		return CategoryInside
	case 'O':
		return CategoryOceanview
	case 'B':
		return CategoryBalcony
	case 'S':
		return CategorySuite
	default:
		return CategoryOther
	}
}
