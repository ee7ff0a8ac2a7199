package enums

import "fmt"

// GenerationStatus tracks the lifecycle of a try-on generation run.
type GenerationStatus string

const (
	GenerationStatusPending    GenerationStatus = "pending"
	GenerationStatusProcessing GenerationStatus = "processing"
	GenerationStatusCompleted  GenerationStatus = "completed"
	GenerationStatusFailed     GenerationStatus = "failed"
)

var validGenerationStatuses = []GenerationStatus{
	GenerationStatusPending,
	GenerationStatusProcessing,
	GenerationStatusCompleted,
	GenerationStatusFailed,
}

// String implements fmt.Stringer.
func (g GenerationStatus) String() string {
	return string(g)
}

// IsValid reports whether the value is a known GenerationStatus.
func (g GenerationStatus) IsValid() bool {
	for _, candidate := range validGenerationStatuses {
		if candidate == g {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status permits no further transitions.
func (g GenerationStatus) IsTerminal() bool {
	return g == GenerationStatusCompleted || g == GenerationStatusFailed
}

// ParseGenerationStatus converts raw input into a GenerationStatus.
func ParseGenerationStatus(value string) (GenerationStatus, error) {
	for _, candidate := range validGenerationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid generation status %q", value)
}
