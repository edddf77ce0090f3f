package returns

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/tracking"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
)

// ReturnWindow is how long after delivery a buyer may still log a return.
const ReturnWindow = 72 * time.Hour

// Service manages the return leg of an order item's timeline. Every mutation
// touches the return row and its order item in the same transaction so the
// two never disagree.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Return, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Return, error)
	List(ctx context.Context, params ListParams) ([]models.Return, error)
	Decide(ctx context.Context, input DecideInput) (*models.Return, error)
	AdvanceTracking(ctx context.Context, input AdvanceTrackingInput) (*models.Return, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx      txRunner
	repo    Repository
	orders  orders.Repository
	emitter outboxEmitter
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(tx txRunner, repo Repository, orderRepo orders.Repository, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("return repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:      tx,
		repo:    repo,
		orders:  orderRepo,
		emitter: emitter,
		logg:    logg,
		now:     time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Return, error) {
	if input.BuyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if input.Reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return reason required")
	}

	now := s.now().UTC()
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		item, err := orderRepo.FindOrderItem(ctx, input.OrderItemID)
		if err != nil {
			return err
		}
		if item.BuyerID != input.BuyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not the buyer of this order item")
		}
		if item.CurrentStatus != enums.DeliveryStatusDelivered {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "only delivered items can be returned").
				WithDetails(map[string]any{"currentStatus": string(item.CurrentStatus)})
		}
		if now.Sub(item.CurrentStatusAt) > ReturnWindow {
			return pkgerrors.New(pkgerrors.CodeReturnWindowExpired, "return window has closed").
				WithDetails(map[string]any{
					"deliveredAt": item.CurrentStatusAt,
					"windowEnds":  item.CurrentStatusAt.Add(ReturnWindow),
				})
		}
		existing, err := repo.FindActiveByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a return is already open for this item").
				WithDetails(map[string]any{"returnId": existing.ID.String()})
		}

		if err := s.advanceItem(ctx, orderRepo, item, enums.DeliveryStatusReturnLogged, enums.ActorRoleBuyer, now); err != nil {
			return err
		}

		deliveryOption := input.DeliveryOption
		if deliveryOption == "" {
			deliveryOption = item.DeliveryOption
		}
		ret = &models.Return{
			ID:              uuid.New(),
			OrderID:         item.OrderID,
			OrderItemID:     item.ID,
			ProductID:       item.ProductID,
			BuyerID:         item.BuyerID,
			SellerID:        item.SellerID,
			Reason:          input.Reason,
			Refund:          input.Refund,
			Region:          input.Region,
			Status:          enums.ReturnStatusPending,
			DeliveryOption:  deliveryOption,
			CurrentStatus:   enums.DeliveryStatusReturnLogged,
			CurrentStatusAt: now,
		}
		if err := repo.Create(ctx, ret); err != nil {
			return err
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnLogged,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.ActorRoleBuyer)},
			Data: payloads.ReturnLoggedEvent{
				ReturnID:    ret.ID,
				OrderID:     ret.OrderID,
				OrderItemID: ret.OrderItemID,
				BuyerID:     ret.BuyerID,
				SellerID:    ret.SellerID,
				Reason:      ret.Reason,
				LoggedAt:    now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_id":     ret.ID.String(),
		"order_item_id": ret.OrderItemID.String(),
	}), "return logged")
	return ret, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.Return, error) {
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins decide returns")
	}
	if !input.Approve && (input.AdminReason == nil || *input.AdminReason == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "declining a return requires a reason")
	}

	now := s.now().UTC()
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		var err error
		ret, err = repo.FindByID(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return already decided").
				WithDetails(map[string]any{"status": string(ret.Status)})
		}

		decision := enums.ReturnStatusDeclined
		newStatus := enums.DeliveryStatusReturnDeclined
		if input.Approve {
			decision = enums.ReturnStatusApproved
			newStatus = enums.DeliveryStatusReturnApproved
		}

		if err := s.advanceReturn(ctx, repo, ret, newStatus, input.Actor.Role, now, nil); err != nil {
			return err
		}
		if err := repo.UpdateDecision(ctx, ret.ID, decision, newStatus, now, input.AdminReason); err != nil {
			return err
		}

		item, err := orderRepo.FindOrderItem(ctx, ret.OrderItemID)
		if err != nil {
			return err
		}
		if err := s.advanceItem(ctx, orderRepo, item, newStatus, input.Actor.Role, now); err != nil {
			return err
		}

		ret.Status = decision
		ret.CurrentStatus = newStatus
		ret.CurrentStatusAt = now
		ret.AdminReason = input.AdminReason

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnDecided,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.ReturnDecidedEvent{
				ReturnID:    ret.ID,
				OrderID:     ret.OrderID,
				OrderItemID: ret.OrderItemID,
				BuyerID:     ret.BuyerID,
				SellerID:    ret.SellerID,
				Decision:    decision,
				AdminReason: input.AdminReason,
				DecidedAt:   now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_id": ret.ID.String(),
		"status":    ret.Status,
	}), "return decided")
	return ret, nil
}

func (s *service) AdvanceTracking(ctx context.Context, input AdvanceTrackingInput) (*models.Return, error) {
	switch input.NewStatus {
	case enums.DeliveryStatusReturnDispatched, enums.DeliveryStatusReturnDelivered, enums.DeliveryStatusReturnReceived:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status is not set through return tracking").
			WithDetails(map[string]any{"status": string(input.NewStatus)})
	}

	now := s.now().UTC()
	var ret *models.Return
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		var err error
		ret, err = repo.FindByID(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		if err := authorizeReturnWrite(ret, input.Actor); err != nil {
			return err
		}
		if ret.Status != enums.ReturnStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "return tracking requires an approved return").
				WithDetails(map[string]any{"status": string(ret.Status)})
		}

		if err := s.advanceReturn(ctx, repo, ret, input.NewStatus, input.Actor.Role, now, input.TrackingNumber); err != nil {
			return err
		}

		item, err := orderRepo.FindOrderItem(ctx, ret.OrderItemID)
		if err != nil {
			return err
		}
		if err := s.advanceItem(ctx, orderRepo, item, input.NewStatus, input.Actor.Role, now); err != nil {
			return err
		}

		ret.CurrentStatus = input.NewStatus
		ret.CurrentStatusAt = now
		if input.TrackingNumber != nil {
			ret.TrackingNumber = input.TrackingNumber
		}

		notifyUserID, notifyRole := ret.BuyerID, enums.ActorRoleBuyer
		if rule, ok := tracking.RuleFor(input.NewStatus); ok && rule.NotifyRole == enums.ActorRoleSeller {
			notifyUserID, notifyRole = ret.SellerID, enums.ActorRoleSeller
		}
		returnID := ret.ID
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventReturnTrackingAdvanced,
			AggregateType: enums.AggregateReturn,
			AggregateID:   ret.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.TrackingAdvancedEvent{
				OrderID:      ret.OrderID,
				OrderItemID:  ret.OrderItemID,
				ReturnID:     &returnID,
				NewStatus:    input.NewStatus,
				SetByRole:    input.Actor.Role,
				NotifyUserID: notifyUserID,
				NotifyRole:   notifyRole,
				OccurredAt:   now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"return_id": ret.ID.String(),
		"status":    ret.CurrentStatus,
	}), "return tracking advanced")
	return ret, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Return, error) {
	ret, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeReturnRead(ret, actor); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Return, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	return s.repo.List(ctx, params)
}

// advanceReturn validates the step against the return's own timeline, records
// the previous state and moves the row forward.
func (s *service) advanceReturn(ctx context.Context, repo Repository, ret *models.Return, status enums.DeliveryStatus, actor enums.ActorRole, now time.Time, trackingNumber *string) error {
	entries, err := repo.ListTrackingEntries(ctx, ret.ID)
	if err != nil {
		return err
	}
	timeline := tracking.Timeline{
		Current: tracking.Entry{Status: ret.CurrentStatus, OccurredAt: ret.CurrentStatusAt},
	}
	for _, entry := range entries {
		timeline.History = append(timeline.History, tracking.Entry{Status: entry.Status, OccurredAt: entry.OccurredAt})
	}
	if _, err := timeline.Advance(status, actor, now); err != nil {
		return err
	}

	if err := repo.AppendTrackingEntry(ctx, &models.TrackingEntry{
		ID:         uuid.New(),
		ReturnID:   &ret.ID,
		Status:     ret.CurrentStatus,
		OccurredAt: ret.CurrentStatusAt,
	}); err != nil {
		return err
	}
	return repo.UpdateTracking(ctx, ret.ID, status, now, trackingNumber)
}

// advanceItem mirrors a return-branch step onto the owning order item.
func (s *service) advanceItem(ctx context.Context, orderRepo orders.Repository, item *models.OrderItem, status enums.DeliveryStatus, actor enums.ActorRole, now time.Time) error {
	entries, err := orderRepo.ListTrackingEntries(ctx, item.ID)
	if err != nil {
		return err
	}
	timeline := tracking.Timeline{
		Current: tracking.Entry{Status: item.CurrentStatus, OccurredAt: item.CurrentStatusAt},
	}
	for _, entry := range entries {
		timeline.History = append(timeline.History, tracking.Entry{Status: entry.Status, OccurredAt: entry.OccurredAt})
	}
	if _, err := timeline.Advance(status, actor, now); err != nil {
		return err
	}

	if err := orderRepo.AppendTrackingEntry(ctx, &models.TrackingEntry{
		ID:          uuid.New(),
		OrderItemID: &item.ID,
		Status:      item.CurrentStatus,
		OccurredAt:  item.CurrentStatusAt,
	}); err != nil {
		return err
	}
	if err := orderRepo.UpdateItemTracking(ctx, item.ID, status, now, nil); err != nil {
		return err
	}
	item.CurrentStatus = status
	item.CurrentStatusAt = now
	return nil
}

func authorizeReturnRead(ret *models.Return, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleBuyer:
		if ret.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		if ret.SellerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this return")
}

func authorizeReturnWrite(ret *models.Return, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleBuyer:
		if ret.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		if ret.SellerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this return")
}
