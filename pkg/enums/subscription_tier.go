package enums

import "fmt"

// SubscriptionTier gates monthly credit grants and concurrency limits.
type SubscriptionTier string

const (
	SubscriptionTierFree       SubscriptionTier = "free"
	SubscriptionTierPro        SubscriptionTier = "pro"
	SubscriptionTierEnterprise SubscriptionTier = "enterprise"
)

var validSubscriptionTiers = []SubscriptionTier{
	SubscriptionTierFree,
	SubscriptionTierPro,
	SubscriptionTierEnterprise,
}

// String implements fmt.Stringer.
func (s SubscriptionTier) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SubscriptionTier.
func (s SubscriptionTier) IsValid() bool {
	for _, candidate := range validSubscriptionTiers {
		if candidate == s {
			return true
		}
	}
	return false
}

// MonthlyCredits returns the credit grant applied at the start of each
// billing cycle for the tier.
func (s SubscriptionTier) MonthlyCredits() int {
	switch s {
	case SubscriptionTierPro:
		return 200
	case SubscriptionTierEnterprise:
		return 2000
	default:
		return 10
	}
}

// ParseSubscriptionTier converts raw input into a SubscriptionTier.
func ParseSubscriptionTier(value string) (SubscriptionTier, error) {
	for _, candidate := range validSubscriptionTiers {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription tier %q", value)
}
