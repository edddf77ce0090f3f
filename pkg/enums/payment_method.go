package enums

import "fmt"

// PaymentMethod describes how a buyer settles an order at creation time.
// Flutterwave and PayFast are external gateways; Wallet debits the buyer's
// platform wallet.
type PaymentMethod string

const (
	PaymentMethodWallet      PaymentMethod = "Wallet"
	PaymentMethodFlutterwave PaymentMethod = "Flutterwave"
	PaymentMethodPayFast     PaymentMethod = "PayFast"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodWallet,
	PaymentMethodFlutterwave,
	PaymentMethodPayFast,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsGateway reports whether the method settles through an external gateway.
func (p PaymentMethod) IsGateway() bool {
	return p == PaymentMethodFlutterwave || p == PaymentMethodPayFast
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
