package enums

import "fmt"

// DeliveryStatus is the wire-level tracking vocabulary shared by order items
// and returns. The literal strings are consumed by existing clients and must
// not change.
type DeliveryStatus string

const (
	DeliveryStatusProcessing       DeliveryStatus = "Processing"
	DeliveryStatusDispatched       DeliveryStatus = "Dispatched"
	DeliveryStatusInTransit        DeliveryStatus = "In Transit"
	DeliveryStatusDelivered        DeliveryStatus = "Delivered"
	DeliveryStatusReceived         DeliveryStatus = "Received"
	DeliveryStatusReturnLogged     DeliveryStatus = "Return Logged"
	DeliveryStatusReturnApproved   DeliveryStatus = "Return Approved"
	DeliveryStatusReturnDeclined   DeliveryStatus = "Return Declined"
	DeliveryStatusReturnDispatched DeliveryStatus = "Return Dispatched"
	DeliveryStatusReturnDelivered  DeliveryStatus = "Return Delivered"
	DeliveryStatusReturnReceived   DeliveryStatus = "Return Received"
	DeliveryStatusRefunded         DeliveryStatus = "Refunded"
	DeliveryStatusSellerPayout     DeliveryStatus = "Payment to Seller Initiated"
)

var validDeliveryStatuses = []DeliveryStatus{
	DeliveryStatusProcessing,
	DeliveryStatusDispatched,
	DeliveryStatusInTransit,
	DeliveryStatusDelivered,
	DeliveryStatusReceived,
	DeliveryStatusReturnLogged,
	DeliveryStatusReturnApproved,
	DeliveryStatusReturnDeclined,
	DeliveryStatusReturnDispatched,
	DeliveryStatusReturnDelivered,
	DeliveryStatusReturnReceived,
	DeliveryStatusRefunded,
	DeliveryStatusSellerPayout,
}

// String implements fmt.Stringer.
func (d DeliveryStatus) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DeliveryStatus.
func (d DeliveryStatus) IsValid() bool {
	for _, candidate := range validDeliveryStatuses {
		if candidate == d {
			return true
		}
	}
	return false
}

// IsReturnBranch reports whether the status belongs to the return leg of the
// timeline, from Return Logged through Refunded.
func (d DeliveryStatus) IsReturnBranch() bool {
	switch d {
	case DeliveryStatusReturnLogged, DeliveryStatusReturnApproved, DeliveryStatusReturnDeclined,
		DeliveryStatusReturnDispatched, DeliveryStatusReturnDelivered, DeliveryStatusReturnReceived,
		DeliveryStatusRefunded:
		return true
	}
	return false
}

// ParseDeliveryStatus converts raw input into a DeliveryStatus.
func ParseDeliveryStatus(value string) (DeliveryStatus, error) {
	for _, candidate := range validDeliveryStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid delivery status %q", value)
}
