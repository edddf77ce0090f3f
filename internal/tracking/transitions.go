package tracking

import (
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
)

// Rule describes one status in the delivery graph: which statuses may follow
// it, which actors may set it, and how long an item may dwell in it before the
// escalation sweep nudges someone. SLADays of zero means no escalation.
type Rule struct {
	Next       []enums.DeliveryStatus
	SetBy      []enums.ActorRole
	SLADays    int
	NotifyRole enums.ActorRole
}

// The graph is data, not branching: the state machine and the escalation
// scheduler both read it.
var rules = map[enums.DeliveryStatus]Rule{
	enums.DeliveryStatusProcessing: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusDispatched},
		SetBy:      []enums.ActorRole{enums.ActorRoleSystem},
		SLADays:    3,
		NotifyRole: enums.ActorRoleSeller,
	},
	enums.DeliveryStatusDispatched: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusInTransit},
		SetBy:      []enums.ActorRole{enums.ActorRoleSeller, enums.ActorRoleAdmin},
		SLADays:    7,
		NotifyRole: enums.ActorRoleSeller,
	},
	enums.DeliveryStatusInTransit: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusDelivered},
		SetBy:      []enums.ActorRole{enums.ActorRoleSeller, enums.ActorRoleAdmin},
		SLADays:    14,
		NotifyRole: enums.ActorRoleSeller,
	},
	enums.DeliveryStatusDelivered: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusReceived, enums.DeliveryStatusReturnLogged},
		SetBy:      []enums.ActorRole{enums.ActorRoleSeller, enums.ActorRoleSystem, enums.ActorRoleAdmin},
		SLADays:    7,
		NotifyRole: enums.ActorRoleBuyer,
	},
	enums.DeliveryStatusReceived: {
		Next:  []enums.DeliveryStatus{enums.DeliveryStatusSellerPayout},
		SetBy: []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleAdmin},
	},
	enums.DeliveryStatusReturnLogged: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusReturnApproved, enums.DeliveryStatusReturnDeclined},
		SetBy:      []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleSystem},
		SLADays:    2,
		NotifyRole: enums.ActorRoleSeller,
	},
	enums.DeliveryStatusReturnApproved: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusReturnDispatched},
		SetBy:      []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleSystem},
		SLADays:    5,
		NotifyRole: enums.ActorRoleBuyer,
	},
	enums.DeliveryStatusReturnDeclined: {
		Next:  []enums.DeliveryStatus{enums.DeliveryStatusSellerPayout},
		SetBy: []enums.ActorRole{enums.ActorRoleAdmin, enums.ActorRoleSystem},
	},
	enums.DeliveryStatusReturnDispatched: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusReturnDelivered},
		SetBy:      []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleAdmin},
		SLADays:    14,
		NotifyRole: enums.ActorRoleBuyer,
	},
	enums.DeliveryStatusReturnDelivered: {
		Next:       []enums.DeliveryStatus{enums.DeliveryStatusReturnReceived},
		SetBy:      []enums.ActorRole{enums.ActorRoleBuyer, enums.ActorRoleAdmin},
		SLADays:    3,
		NotifyRole: enums.ActorRoleSeller,
	},
	// Return Received is settable by the seller only: they are the party
	// confirming the goods came back.
	enums.DeliveryStatusReturnReceived: {
		Next:  []enums.DeliveryStatus{enums.DeliveryStatusRefunded},
		SetBy: []enums.ActorRole{enums.ActorRoleSeller},
	},
	enums.DeliveryStatusRefunded: {
		SetBy: []enums.ActorRole{enums.ActorRoleSystem, enums.ActorRoleAdmin},
	},
	enums.DeliveryStatusSellerPayout: {
		SetBy: []enums.ActorRole{enums.ActorRoleSystem},
	},
}

// RuleFor returns the rule for the given status.
func RuleFor(status enums.DeliveryStatus) (Rule, bool) {
	rule, ok := rules[status]
	return rule, ok
}

// EscalatableStatuses lists every status with a positive SLA, in stable order.
func EscalatableStatuses() []enums.DeliveryStatus {
	ordered := []enums.DeliveryStatus{
		enums.DeliveryStatusProcessing,
		enums.DeliveryStatusDispatched,
		enums.DeliveryStatusInTransit,
		enums.DeliveryStatusDelivered,
		enums.DeliveryStatusReturnLogged,
		enums.DeliveryStatusReturnApproved,
		enums.DeliveryStatusReturnDispatched,
		enums.DeliveryStatusReturnDelivered,
	}
	statuses := make([]enums.DeliveryStatus, 0, len(ordered))
	for _, status := range ordered {
		if rules[status].SLADays > 0 {
			statuses = append(statuses, status)
		}
	}
	return statuses
}

func (r Rule) allowsNext(status enums.DeliveryStatus) bool {
	for _, candidate := range r.Next {
		if candidate == status {
			return true
		}
	}
	return false
}

func (r Rule) settableBy(actor enums.ActorRole) bool {
	for _, candidate := range r.SetBy {
		if candidate == actor {
			return true
		}
	}
	return false
}
