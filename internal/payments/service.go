package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/inventory"
	"github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/internal/returns"
	"github.com/kasuwahq/kasuwa-backend/internal/tracking"
	"github.com/kasuwahq/kasuwa-backend/internal/wallet"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
)

// Service turns finished fulfillment into money movements. Requests create a
// Pending payment and move no funds; an admin approval moves them exactly
// once.
type Service interface {
	RequestSellerPayout(ctx context.Context, input RequestPayoutInput) (*models.Payment, error)
	RequestBuyerRefund(ctx context.Context, input RequestRefundInput) (*models.Payment, error)
	Approve(ctx context.Context, input DecideInput) (*models.Payment, error)
	Decline(ctx context.Context, input DecideInput) (*models.Payment, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Payment, error)
	List(ctx context.Context, params ListParams) ([]models.Payment, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx        txRunner
	repo      Repository
	orders    orders.Repository
	returns   returns.Repository
	walletSvc wallet.Service
	emitter   outboxEmitter
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(
	tx txRunner,
	repo Repository,
	orderRepo orders.Repository,
	returnRepo returns.Repository,
	walletSvc wallet.Service,
	emitter outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("payment repository required")
	}
	if orderRepo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if returnRepo == nil {
		return nil, fmt.Errorf("return repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		orders:    orderRepo,
		returns:   returnRepo,
		walletSvc: walletSvc,
		emitter:   emitter,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) RequestSellerPayout(ctx context.Context, input RequestPayoutInput) (*models.Payment, error) {
	destination := input.Destination
	if destination == "" {
		destination = enums.PayoutDestinationWallet
	}

	now := s.now().UTC()
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		orderRepo := s.orders.WithTx(tx)

		item, err := orderRepo.FindOrderItem(ctx, input.OrderItemID)
		if err != nil {
			return err
		}
		if input.Actor.Role != enums.ActorRoleAdmin && item.SellerID != input.Actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "not the seller of this order item")
		}
		if item.CurrentStatus != enums.DeliveryStatusReceived && item.CurrentStatus != enums.DeliveryStatusReturnDeclined {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "item is not ready for payout").
				WithDetails(map[string]any{"currentStatus": string(item.CurrentStatus)})
		}
		open, err := repo.FindOpenByItem(ctx, item.ID)
		if err != nil {
			return err
		}
		if open != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a payment already exists for this item").
				WithDetails(map[string]any{"paymentId": open.ID.String()})
		}

		if err := s.advanceItem(ctx, orderRepo, item, enums.DeliveryStatusSellerPayout, now); err != nil {
			return err
		}

		order, err := orderRepo.FindOrder(ctx, item.OrderID)
		if err != nil {
			return err
		}
		payment = &models.Payment{
			ID:          uuid.New(),
			UserID:      item.SellerID,
			OrderID:     item.OrderID,
			OrderItemID: item.ID,
			Amount:      item.Price,
			Currency:    order.Currency,
			Status:      enums.PaymentStatusPending,
			Reason:      "seller payout",
			Destination: destination,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return err
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutRequested,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.PaymentRequestedEvent{
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				OrderItemID: payment.OrderItemID,
				PayeeID:     payment.UserID,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Destination: payment.Destination,
				RequestedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id":    payment.ID.String(),
		"order_item_id": payment.OrderItemID.String(),
	}), "seller payout requested")
	return payment, nil
}

func (s *service) RequestBuyerRefund(ctx context.Context, input RequestRefundInput) (*models.Payment, error) {
	now := s.now().UTC()
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		returnRepo := s.returns.WithTx(tx)

		ret, err := returnRepo.FindByID(ctx, input.ReturnID)
		if err != nil {
			return err
		}
		switch input.Actor.Role {
		case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		case enums.ActorRoleBuyer:
			if ret.BuyerID != input.Actor.UserID {
				return pkgerrors.New(pkgerrors.CodeForbidden, "not the buyer of this return")
			}
		default:
			return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to request a refund")
		}
		if ret.CurrentStatus != enums.DeliveryStatusReturnReceived {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "refunds require the seller to have received the return").
				WithDetails(map[string]any{"currentStatus": string(ret.CurrentStatus)})
		}
		open, err := repo.FindOpenByItem(ctx, ret.OrderItemID)
		if err != nil {
			return err
		}
		if open != nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "a payment already exists for this item").
				WithDetails(map[string]any{"paymentId": open.ID.String()})
		}

		orderRepo := s.orders.WithTx(tx)
		item, err := orderRepo.FindOrderItem(ctx, ret.OrderItemID)
		if err != nil {
			return err
		}
		order, err := orderRepo.FindOrder(ctx, ret.OrderID)
		if err != nil {
			return err
		}

		returnID := ret.ID
		payment = &models.Payment{
			ID:          uuid.New(),
			UserID:      ret.BuyerID,
			OrderID:     ret.OrderID,
			OrderItemID: ret.OrderItemID,
			ReturnID:    &returnID,
			Amount:      item.Price,
			Currency:    order.Currency,
			Status:      enums.PaymentStatusPending,
			Reason:      "buyer refund",
			Destination: enums.PayoutDestinationWallet,
		}
		if err := repo.Create(ctx, payment); err != nil {
			return err
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventRefundRequested,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.PaymentRequestedEvent{
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				OrderItemID: payment.OrderItemID,
				PayeeID:     payment.UserID,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Destination: payment.Destination,
				RequestedAt: now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"payment_id": payment.ID.String(),
		"return_id":  input.ReturnID.String(),
	}), "buyer refund requested")
	return payment, nil
}

// Approve moves the funds. Approving an already approved payment is a no-op,
// so a retried admin request cannot double-pay.
func (s *service) Approve(ctx context.Context, input DecideInput) (*models.Payment, error) {
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins approve payments")
	}

	now := s.now().UTC()
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		payment, err = repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status == enums.PaymentStatusApproved {
			return nil
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided").
				WithDetails(map[string]any{"status": string(payment.Status)})
		}

		if payment.Destination == enums.PayoutDestinationWallet {
			paymentID := payment.ID
			ref := "payment:" + paymentID.String()
			txn, err := s.walletSvc.Credit(ctx, tx, wallet.CreditInput{
				UserID:                payment.UserID,
				Amount:                payment.Amount,
				Currency:              payment.Currency,
				Description:           payment.Reason,
				PaymentTransactionRef: &ref,
				OrderID:               &payment.OrderID,
				PaymentID:             &paymentID,
			})
			if err != nil {
				return err
			}
			if err := s.emitter.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventWalletCredited,
				AggregateType: enums.AggregateWallet,
				AggregateID:   txn.WalletID,
				Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
				Data: payloads.WalletMovementEvent{
					WalletID:      txn.WalletID,
					UserID:        txn.UserID,
					TransactionID: txn.ID,
					Type:          txn.Type,
					Amount:        txn.Amount,
					Currency:      txn.Currency,
					OccurredAt:    now,
				},
				Version:    1,
				OccurredAt: now,
			}); err != nil {
				return err
			}
		}

		if err := repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusApproved, input.AdminReason, &now); err != nil {
			return err
		}
		payment.Status = enums.PaymentStatusApproved
		payment.ApprovedAt = &now

		if payment.ReturnID != nil {
			if err := s.markRefunded(ctx, tx, *payment.ReturnID, now); err != nil {
				return err
			}
		}

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentApproved,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.PaymentDecidedEvent{
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				OrderItemID: payment.OrderItemID,
				PayeeID:     payment.UserID,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Status:      enums.PaymentStatusApproved,
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
		"payment_id": payment.ID.String(),
		"payee_id":   payment.UserID.String(),
	}), "payment approved")
	return payment, nil
}

func (s *service) Decline(ctx context.Context, input DecideInput) (*models.Payment, error) {
	if input.Actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins decline payments")
	}
	if input.AdminReason == nil || *input.AdminReason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "declining a payment requires a reason")
	}

	now := s.now().UTC()
	var payment *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var err error
		payment, err = repo.FindByID(ctx, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already decided").
				WithDetails(map[string]any{"status": string(payment.Status)})
		}

		if err := repo.UpdateStatus(ctx, payment.ID, enums.PaymentStatusDeclined, input.AdminReason, nil); err != nil {
			return err
		}
		payment.Status = enums.PaymentStatusDeclined
		payment.AdminReason = input.AdminReason

		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentDeclined,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.PaymentDecidedEvent{
				PaymentID:   payment.ID,
				OrderID:     payment.OrderID,
				OrderItemID: payment.OrderItemID,
				PayeeID:     payment.UserID,
				Amount:      payment.Amount,
				Currency:    payment.Currency,
				Status:      enums.PaymentStatusDeclined,
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
		"payment_id": payment.ID.String(),
	}), "payment declined")
	return payment, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.Role != enums.ActorRoleAdmin && actor.Role != enums.ActorRoleSystem && payment.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not the payee of this payment")
	}
	return payment, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Payment, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	return s.repo.List(ctx, params)
}

// markRefunded closes out the return and its order item after a refund is
// approved.
func (s *service) markRefunded(ctx context.Context, tx *gorm.DB, returnID uuid.UUID, now time.Time) error {
	returnRepo := s.returns.WithTx(tx)
	orderRepo := s.orders.WithTx(tx)

	ret, err := returnRepo.FindByID(ctx, returnID)
	if err != nil {
		return err
	}
	if err := returnRepo.AppendTrackingEntry(ctx, &models.TrackingEntry{
		ID:         uuid.New(),
		ReturnID:   &ret.ID,
		Status:     ret.CurrentStatus,
		OccurredAt: ret.CurrentStatusAt,
	}); err != nil {
		return err
	}
	if err := returnRepo.UpdateTracking(ctx, ret.ID, enums.DeliveryStatusRefunded, now, nil); err != nil {
		return err
	}

	item, err := orderRepo.FindOrderItem(ctx, ret.OrderItemID)
	if err != nil {
		return err
	}
	if err := s.advanceItem(ctx, orderRepo, item, enums.DeliveryStatusRefunded, now); err != nil {
		return err
	}
	// The unit is back with the seller once the refund clears.
	return inventory.Release(ctx, tx, item.ProductID, item.SelectedSize, item.Qty)
}

// advanceItem moves the order item with system authority, validating against
// the shared transition table.
func (s *service) advanceItem(ctx context.Context, orderRepo orders.Repository, item *models.OrderItem, status enums.DeliveryStatus, now time.Time) error {
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
	if _, err := timeline.Advance(status, enums.ActorRoleSystem, now); err != nil {
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
	return orderRepo.UpdateItemTracking(ctx, item.ID, status, now, nil)
}
