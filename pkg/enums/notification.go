package enums

import "fmt"

// NotificationKind classifies in-app notifications.
type NotificationKind string

const (
	NotificationKindGenerationCompleted NotificationKind = "generation_completed"
	NotificationKindGenerationFailed    NotificationKind = "generation_failed"
	NotificationKindCreditsLow          NotificationKind = "credits_low"
)

var validNotificationKinds = []NotificationKind{
	NotificationKindGenerationCompleted,
	NotificationKindGenerationFailed,
	NotificationKindCreditsLow,
}

// String implements fmt.Stringer.
func (n NotificationKind) String() string {
	return string(n)
}

// IsValid reports whether the value is a known NotificationKind.
func (n NotificationKind) IsValid() bool {
	for _, candidate := range validNotificationKinds {
		if candidate == n {
			return true
		}
	}
	return false
}

// ParseNotificationKind converts raw input into a NotificationKind.
func ParseNotificationKind(value string) (NotificationKind, error) {
	for _, candidate := range validNotificationKinds {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid notification kind %q", value)
}
