package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// OrderCreatedEvent is emitted once per order, in the same transaction that
// commits the order and its stock reservations.
type OrderCreatedEvent struct {
	OrderID       uuid.UUID           `json:"orderId"`
	BuyerID       uuid.UUID           `json:"buyerId"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	TotalAmount   decimal.Decimal     `json:"totalAmount"`
	Currency      enums.Currency      `json:"currency"`
	ItemCount     int                 `json:"itemCount"`
	SellerIDs     []uuid.UUID         `json:"sellerIds"`
	CreatedAt     time.Time           `json:"createdAt"`
}

// TrackingAdvancedEvent covers both order item and return timelines.
type TrackingAdvancedEvent struct {
	OrderID        uuid.UUID            `json:"orderId"`
	OrderItemID    uuid.UUID            `json:"orderItemId"`
	ReturnID       *uuid.UUID           `json:"returnId,omitempty"`
	PreviousStatus enums.DeliveryStatus `json:"previousStatus"`
	NewStatus      enums.DeliveryStatus `json:"newStatus"`
	SetByRole      enums.ActorRole      `json:"setByRole"`
	NotifyUserID   uuid.UUID            `json:"notifyUserId"`
	NotifyRole     enums.ActorRole      `json:"notifyRole"`
	OccurredAt     time.Time            `json:"occurredAt"`
}

// EscalationNudgeEvent fires when an item overstays its status deadline.
type EscalationNudgeEvent struct {
	OrderID       uuid.UUID            `json:"orderId"`
	OrderItemID   uuid.UUID            `json:"orderItemId"`
	CurrentStatus enums.DeliveryStatus `json:"currentStatus"`
	StatusSince   time.Time            `json:"statusSince"`
	Deadline      time.Time            `json:"deadline"`
	NotifyUserID  uuid.UUID            `json:"notifyUserId"`
	NotifyRole    enums.ActorRole      `json:"notifyRole"`
}

type ReturnLoggedEvent struct {
	ReturnID    uuid.UUID `json:"returnId"`
	OrderID     uuid.UUID `json:"orderId"`
	OrderItemID uuid.UUID `json:"orderItemId"`
	BuyerID     uuid.UUID `json:"buyerId"`
	SellerID    uuid.UUID `json:"sellerId"`
	Reason      string    `json:"reason"`
	LoggedAt    time.Time `json:"loggedAt"`
}

type ReturnDecidedEvent struct {
	ReturnID    uuid.UUID          `json:"returnId"`
	OrderID     uuid.UUID          `json:"orderId"`
	OrderItemID uuid.UUID          `json:"orderItemId"`
	BuyerID     uuid.UUID          `json:"buyerId"`
	SellerID    uuid.UUID          `json:"sellerId"`
	Decision    enums.ReturnStatus `json:"decision"`
	AdminReason *string            `json:"adminReason,omitempty"`
	DecidedAt   time.Time          `json:"decidedAt"`
}

// PaymentRequestedEvent covers both seller payout and buyer refund requests.
type PaymentRequestedEvent struct {
	PaymentID   uuid.UUID               `json:"paymentId"`
	OrderID     uuid.UUID               `json:"orderId"`
	OrderItemID uuid.UUID               `json:"orderItemId"`
	PayeeID     uuid.UUID               `json:"payeeId"`
	Amount      decimal.Decimal         `json:"amount"`
	Currency    enums.Currency          `json:"currency"`
	Destination enums.PayoutDestination `json:"destination"`
	RequestedAt time.Time               `json:"requestedAt"`
}

type PaymentDecidedEvent struct {
	PaymentID   uuid.UUID           `json:"paymentId"`
	OrderID     uuid.UUID           `json:"orderId"`
	OrderItemID uuid.UUID           `json:"orderItemId"`
	PayeeID     uuid.UUID           `json:"payeeId"`
	Amount      decimal.Decimal     `json:"amount"`
	Currency    enums.Currency      `json:"currency"`
	Status      enums.PaymentStatus `json:"status"`
	DecidedAt   time.Time           `json:"decidedAt"`
}

type WalletMovementEvent struct {
	WalletID      uuid.UUID             `json:"walletId"`
	UserID        uuid.UUID             `json:"userId"`
	TransactionID uuid.UUID             `json:"transactionId"`
	Type          enums.TransactionType `json:"type"`
	Amount        decimal.Decimal       `json:"amount"`
	Currency      enums.Currency        `json:"currency"`
	OccurredAt    time.Time             `json:"occurredAt"`
}
