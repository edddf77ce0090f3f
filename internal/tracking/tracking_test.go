package tracking

import (
	"testing"
	"time"

	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
)

func TestAdvanceHappyPath(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	timeline := Seed(enums.DeliveryStatusProcessing, now)

	steps := []struct {
		status enums.DeliveryStatus
		actor  enums.ActorRole
	}{
		{enums.DeliveryStatusDispatched, enums.ActorRoleSeller},
		{enums.DeliveryStatusInTransit, enums.ActorRoleSeller},
		{enums.DeliveryStatusDelivered, enums.ActorRoleSeller},
		{enums.DeliveryStatusReceived, enums.ActorRoleBuyer},
	}

	for i, step := range steps {
		next, err := timeline.Advance(step.status, step.actor, now.Add(time.Duration(i+1)*time.Hour))
		if err != nil {
			t.Fatalf("advance to %s: %v", step.status, err)
		}
		timeline = next
	}

	if timeline.Current.Status != enums.DeliveryStatusReceived {
		t.Fatalf("unexpected current status %s", timeline.Current.Status)
	}
	if len(timeline.History) != 4 {
		t.Fatalf("expected 4 history entries, got %d", len(timeline.History))
	}
	if timeline.History[0].Status != enums.DeliveryStatusProcessing {
		t.Fatalf("history order broken: %+v", timeline.History)
	}
}

func TestAdvanceRejectsRepeats(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	timeline := Seed(enums.DeliveryStatusProcessing, now)
	timeline, err := timeline.Advance(enums.DeliveryStatusDispatched, enums.ActorRoleSeller, now)
	if err != nil {
		t.Fatalf("advance: %v", err)
	}

	if _, err := timeline.Advance(enums.DeliveryStatusDispatched, enums.ActorRoleSeller, now); err == nil {
		t.Fatal("expected repeat to fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdvanceRejectsSkips(t *testing.T) {
	t.Parallel()

	timeline := Seed(enums.DeliveryStatusProcessing, time.Now())
	if _, err := timeline.Advance(enums.DeliveryStatusDelivered, enums.ActorRoleSeller, time.Now()); err == nil {
		t.Fatal("expected skip to fail")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeInvalidTransition {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAdvanceActorRestriction(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	timeline := Seed(enums.DeliveryStatusReturnDelivered, now)

	if _, err := timeline.Advance(enums.DeliveryStatusReturnReceived, enums.ActorRoleBuyer, now); err == nil {
		t.Fatal("expected buyer to be rejected for Return Received")
	} else if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeUnauthorized {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := timeline.Advance(enums.DeliveryStatusReturnReceived, enums.ActorRoleSeller, now); err != nil {
		t.Fatalf("seller should set Return Received: %v", err)
	}
}

func TestMonotonicAgainstTable(t *testing.T) {
	t.Parallel()

	// Walk the full return branch and check every visited status stays unique
	// and every hop exists in the adjacency table.
	now := time.Now().UTC()
	timeline := Seed(enums.DeliveryStatusProcessing, now)
	path := []struct {
		status enums.DeliveryStatus
		actor  enums.ActorRole
	}{
		{enums.DeliveryStatusDispatched, enums.ActorRoleSeller},
		{enums.DeliveryStatusInTransit, enums.ActorRoleSeller},
		{enums.DeliveryStatusDelivered, enums.ActorRoleSeller},
		{enums.DeliveryStatusReturnLogged, enums.ActorRoleBuyer},
		{enums.DeliveryStatusReturnApproved, enums.ActorRoleAdmin},
		{enums.DeliveryStatusReturnDispatched, enums.ActorRoleBuyer},
		{enums.DeliveryStatusReturnDelivered, enums.ActorRoleBuyer},
		{enums.DeliveryStatusReturnReceived, enums.ActorRoleSeller},
		{enums.DeliveryStatusRefunded, enums.ActorRoleSystem},
	}

	for _, step := range path {
		next, err := timeline.Advance(step.status, step.actor, now)
		if err != nil {
			t.Fatalf("advance to %s: %v", step.status, err)
		}
		timeline = next
	}

	seen := map[enums.DeliveryStatus]bool{}
	all := append(append([]Entry{}, timeline.History...), timeline.Current)
	for i, entry := range all {
		if seen[entry.Status] {
			t.Fatalf("duplicate status %s in timeline", entry.Status)
		}
		seen[entry.Status] = true
		if i == 0 {
			continue
		}
		rule, ok := RuleFor(all[i-1].Status)
		if !ok || !rule.allowsNext(entry.Status) {
			t.Fatalf("hop %s -> %s missing from table", all[i-1].Status, entry.Status)
		}
	}
}

func TestEscalatableStatusesHaveNotifyRoles(t *testing.T) {
	t.Parallel()

	statuses := EscalatableStatuses()
	if len(statuses) == 0 {
		t.Fatal("expected at least one escalatable status")
	}
	for _, status := range statuses {
		rule, ok := RuleFor(status)
		if !ok {
			t.Fatalf("no rule for %s", status)
		}
		if rule.SLADays <= 0 {
			t.Fatalf("%s listed without positive SLA", status)
		}
		if rule.NotifyRole != enums.ActorRoleBuyer && rule.NotifyRole != enums.ActorRoleSeller {
			t.Fatalf("%s notifies %s, want buyer or seller", status, rule.NotifyRole)
		}
	}
}
