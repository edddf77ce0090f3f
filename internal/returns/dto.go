package returns

import (
	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

type Actor struct {
	UserID uuid.UUID
	Role   enums.ActorRole
}

type CreateInput struct {
	OrderItemID    uuid.UUID
	BuyerID        uuid.UUID
	Reason         string
	Refund         bool
	Region         string
	DeliveryOption string
}

type DecideInput struct {
	ReturnID    uuid.UUID
	Actor       Actor
	Approve     bool
	AdminReason *string
}

type AdvanceTrackingInput struct {
	ReturnID       uuid.UUID
	Actor          Actor
	NewStatus      enums.DeliveryStatus
	TrackingNumber *string
}

type ListParams struct {
	BuyerID  *uuid.UUID
	SellerID *uuid.UUID
	Status   *enums.ReturnStatus
	Limit    int
	Offset   int
}
