package enums

import "fmt"

// PaymentStatus tracks a pending settlement (seller payout or buyer refund)
// awaiting admin review. Approved and Declined are terminal.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusApproved PaymentStatus = "Approved"
	PaymentStatusDeclined PaymentStatus = "Declined"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPending,
	PaymentStatusApproved,
	PaymentStatusDeclined,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	for _, candidate := range validPaymentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
