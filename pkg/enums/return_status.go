package enums

import "fmt"

// ReturnStatus is the admin decision state on a logged return.
type ReturnStatus string

const (
	ReturnStatusPending  ReturnStatus = "Pending"
	ReturnStatusApproved ReturnStatus = "Approved"
	ReturnStatusDeclined ReturnStatus = "Declined"
)

var validReturnStatuses = []ReturnStatus{
	ReturnStatusPending,
	ReturnStatusApproved,
	ReturnStatusDeclined,
}

// String implements fmt.Stringer.
func (r ReturnStatus) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ReturnStatus.
func (r ReturnStatus) IsValid() bool {
	for _, candidate := range validReturnStatuses {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseReturnStatus converts raw input into a ReturnStatus.
func ParseReturnStatus(value string) (ReturnStatus, error) {
	for _, candidate := range validReturnStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid return status %q", value)
}
