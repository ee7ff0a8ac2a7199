package enums

import "fmt"

// UploadKind distinguishes the two input images of a try-on run.
type UploadKind string

const (
	UploadKindModel   UploadKind = "model"
	UploadKindGarment UploadKind = "garment"
)

var validUploadKinds = []UploadKind{
	UploadKindModel,
	UploadKindGarment,
}

// String implements fmt.Stringer.
func (u UploadKind) String() string {
	return string(u)
}

// IsValid reports whether the value is a known UploadKind.
func (u UploadKind) IsValid() bool {
	for _, candidate := range validUploadKinds {
		if candidate == u {
			return true
		}
	}
	return false
}

// ParseUploadKind converts raw input into an UploadKind.
func ParseUploadKind(value string) (UploadKind, error) {
	for _, candidate := range validUploadKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid upload kind %q", value)
}

// ModelPrepState tracks readiness of an uploaded model image. The model
// photo goes through a short preparation step before it can anchor a run.
type ModelPrepState string

const (
	ModelPrepStateIdle      ModelPrepState = "idle"
	ModelPrepStatePreparing ModelPrepState = "preparing"
	ModelPrepStateReady     ModelPrepState = "ready"
)

var validModelPrepStates = []ModelPrepState{
	ModelPrepStateIdle,
	ModelPrepStatePreparing,
	ModelPrepStateReady,
}

// String implements fmt.Stringer.
func (m ModelPrepState) String() string {
	return string(m)
}

// IsValid reports whether the value is a known ModelPrepState.
func (m ModelPrepState) IsValid() bool {
	for _, candidate := range validModelPrepStates {
		if candidate == m {
			return true
		}
	}
	return false
}
