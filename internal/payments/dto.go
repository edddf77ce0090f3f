package payments

import (
	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

type RequestPayoutInput struct {
	OrderItemID uuid.UUID
	Actor       Actor
	Destination enums.PayoutDestination
}

type RequestRefundInput struct {
	ReturnID uuid.UUID
	Actor    Actor
}

type DecideInput struct {
	PaymentID   uuid.UUID
	Actor       Actor
	AdminReason *string
}

type ListParams struct {
	UserID *uuid.UUID
	Status *enums.PaymentStatus
	Limit  int
	Offset int
}
