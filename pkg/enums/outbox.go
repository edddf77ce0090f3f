package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregateOrderItem    OutboxAggregateType = "order_item"
	AggregateReturn       OutboxAggregateType = "return"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateWallet       OutboxAggregateType = "wallet"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregateOrderItem,
	AggregateReturn,
	AggregatePayment,
	AggregateWallet,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated           OutboxEventType = "order_created"
	EventOrderTrackingAdvanced  OutboxEventType = "order_tracking_advanced"
	EventOrderEscalationNudge   OutboxEventType = "order_escalation_nudge"
	EventReturnLogged           OutboxEventType = "return_logged"
	EventReturnDecided          OutboxEventType = "return_decided"
	EventReturnTrackingAdvanced OutboxEventType = "return_tracking_advanced"
	EventPayoutRequested        OutboxEventType = "payout_requested"
	EventRefundRequested        OutboxEventType = "refund_requested"
	EventPaymentApproved        OutboxEventType = "payment_approved"
	EventPaymentDeclined        OutboxEventType = "payment_declined"
	EventWalletCredited         OutboxEventType = "wallet_credited"
	EventWalletDebited          OutboxEventType = "wallet_debited"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderTrackingAdvanced,
	EventOrderEscalationNudge,
	EventReturnLogged,
	EventReturnDecided,
	EventReturnTrackingAdvanced,
	EventPayoutRequested,
	EventRefundRequested,
	EventPaymentApproved,
	EventPaymentDeclined,
	EventWalletCredited,
	EventWalletDebited,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
