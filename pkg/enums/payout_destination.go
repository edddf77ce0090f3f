package enums

import "fmt"

// PayoutDestination is where an approved payment is settled to.
type PayoutDestination string

const (
	PayoutDestinationWallet  PayoutDestination = "Wallet"
	PayoutDestinationAccount PayoutDestination = "Account"
)

var validPayoutDestinations = []PayoutDestination{
	PayoutDestinationWallet,
	PayoutDestinationAccount,
}

// String implements fmt.Stringer.
func (p PayoutDestination) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PayoutDestination.
func (p PayoutDestination) IsValid() bool {
	for _, candidate := range validPayoutDestinations {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePayoutDestination converts raw input into a PayoutDestination.
func ParsePayoutDestination(value string) (PayoutDestination, error) {
	for _, candidate := range validPayoutDestinations {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout destination %q", value)
}
