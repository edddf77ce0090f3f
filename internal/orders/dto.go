package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Actor identifies who is performing an operation.
type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

type CreateItemInput struct {
	ProductID      uuid.UUID
	SizeLabel      string
	Color          *string
	Quantity       int
	DeliveryOption *string
}

type CreateInput struct {
	BuyerID        uuid.UUID
	PaymentMethod  enums.PaymentMethod
	Currency       enums.Currency
	TotalAmount    decimal.Decimal
	TransactionRef string
	Items          []CreateItemInput
}

type AdvanceTrackingInput struct {
	OrderID        uuid.UUID
	OrderItemID    uuid.UUID
	Actor          Actor
	NewStatus      enums.DeliveryStatus
	TrackingNumber *string
}

type TrackingEventOutput struct {
	Status     enums.DeliveryStatus `json:"status"`
	OccurredAt time.Time            `json:"occurredAt"`
}

type ItemTimelineOutput struct {
	OrderItemID     uuid.UUID             `json:"orderItemId"`
	CurrentStatus   enums.DeliveryStatus  `json:"currentStatus"`
	CurrentStatusAt time.Time             `json:"currentStatusAt"`
	TrackingNumber  *string               `json:"trackingNumber,omitempty"`
	History         []TrackingEventOutput `json:"history"`
}

type ListParams struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}
