package enums

import "fmt"

// GarmentCategory is the internal garment placement class. The external
// provider vocabulary is derived from this via a configured mapping.
type GarmentCategory string

const (
	GarmentCategoryTop      GarmentCategory = "top"
	GarmentCategoryBottom   GarmentCategory = "bottom"
	GarmentCategoryFullBody GarmentCategory = "full-body"
)

var validGarmentCategories = []GarmentCategory{
	GarmentCategoryTop,
	GarmentCategoryBottom,
	GarmentCategoryFullBody,
}

// String implements fmt.Stringer.
func (g GarmentCategory) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GarmentCategory.
func (g GarmentCategory) IsValid() bool {
	for _, candidate := range validGarmentCategories {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGarmentCategory converts raw input into a GarmentCategory.
func ParseGarmentCategory(value string) (GarmentCategory, error) {
	for _, candidate := range validGarmentCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid garment category %q", value)
}
