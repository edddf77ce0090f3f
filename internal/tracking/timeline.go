package tracking

import (
	"time"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

// Entry is one {status, timestamp} pair an item or return occupied.
type Entry struct {
	Status     enums.DeliveryStatus
	OccurredAt time.Time
}

// Timeline is the reusable tracking state shared by order items and returns.
// History is append-only and ordered; Current is conceptually its last entry,
// kept separate so callers can persist it denormalized.
type Timeline struct {
	Current Entry
	History []Entry
}

// Seed starts a timeline at the given status.
func Seed(status enums.DeliveryStatus, now time.Time) Timeline {
	return Timeline{Current: Entry{Status: status, OccurredAt: now.UTC()}}
}

// Contains reports whether the status already appears in the timeline,
// including the current entry.
func (t Timeline) Contains(status enums.DeliveryStatus) bool {
	if t.Current.Status == status {
		return true
	}
	for _, entry := range t.History {
		if entry.Status == status {
			return true
		}
	}
	return false
}

// Advance validates and applies one transition: the new status must be a
// configured successor of the current one, must not have been visited before,
// and must be settable by the acting role. On success the previous current
// entry moves into history and the new status becomes current.
func (t Timeline) Advance(status enums.DeliveryStatus, actor enums.ActorRole, now time.Time) (Timeline, error) {
	if !status.IsValid() {
		return t, pkgerrors.New(pkgerrors.CodeValidation, "unknown delivery status").
			WithDetails(map[string]any{"status": string(status)})
	}
	if t.Contains(status) {
		return t, pkgerrors.New(pkgerrors.CodeInvalidTransition, "status already recorded for this item").
			WithDetails(map[string]any{"status": string(status)})
	}

	current, ok := RuleFor(t.Current.Status)
	if !ok || !current.allowsNext(status) {
		return t, pkgerrors.New(pkgerrors.CodeInvalidTransition, "transition not allowed from current status").
			WithDetails(map[string]any{
				"from": string(t.Current.Status),
				"to":   string(status),
			})
	}

	target, _ := RuleFor(status)
	if !target.settableBy(actor) {
		return t, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor may not set this status").
			WithDetails(map[string]any{
				"status": string(status),
				"actor":  string(actor),
			})
	}

	next := Timeline{
		Current: Entry{Status: status, OccurredAt: now.UTC()},
		History: make([]Entry, 0, len(t.History)+1),
	}
	next.History = append(next.History, t.History...)
	next.History = append(next.History, t.Current)
	return next, nil
}
