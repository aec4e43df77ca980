package enums

import (
	"fmt"
	"strings"
)

// SignboardStatus captures where a signboard currently is in its lifecycle.
type SignboardStatus string

const (
	SignboardStatusInStock           SignboardStatus = "in_stock"
	SignboardStatusInUse             SignboardStatus = "in_use"
	SignboardStatusUnderRepair       SignboardStatus = "under_repair"
	SignboardStatusScheduledDisposal SignboardStatus = "scheduled_disposal"
)

var validSignboardStatuses = []SignboardStatus{
	SignboardStatusInStock,
	SignboardStatusInUse,
	SignboardStatusUnderRepair,
	SignboardStatusScheduledDisposal,
}

// String implements fmt.Stringer.
func (s SignboardStatus) String() string {
	return string(s)
}

// IsValid reports whether the value matches a known SignboardStatus.
func (s SignboardStatus) IsValid() bool {
	for _, candidate := range validSignboardStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSignboardStatus converts raw input into a SignboardStatus.
func ParseSignboardStatus(value string) (SignboardStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validSignboardStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid signboard status %q", value)
}
