package enums

import "fmt"

// PerformanceMode selects the provider's speed/quality trade-off.
type PerformanceMode string

const (
	PerformanceModePerformance PerformanceMode = "performance"
	PerformanceModeBalanced    PerformanceMode = "balanced"
	PerformanceModeQuality     PerformanceMode = "quality"
)

var validPerformanceModes = []PerformanceMode{
	PerformanceModePerformance,
	PerformanceModeBalanced,
	PerformanceModeQuality,
}

// String implements fmt.Stringer.
func (p PerformanceMode) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PerformanceMode.
func (p PerformanceMode) IsValid() bool {
	for _, candidate := range validPerformanceModes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePerformanceMode converts raw input into a PerformanceMode.
func ParsePerformanceMode(value string) (PerformanceMode, error) {
	for _, candidate := range validPerformanceModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid performance mode %q", value)
}
