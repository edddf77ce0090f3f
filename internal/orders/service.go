package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/kasuwahq/kasuwa-backend/internal/inventory"
	"github.com/kasuwahq/kasuwa-backend/internal/products"
	"github.com/kasuwahq/kasuwa-backend/internal/tracking"
	"github.com/kasuwahq/kasuwa-backend/internal/wallet"
	dbpkg "github.com/kasuwahq/kasuwa-backend/pkg/db"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/gateway"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox"
	"github.com/kasuwahq/kasuwa-backend/pkg/outbox/payloads"
)

// Service is the order engine. Create runs reservation, settlement and
// persistence as one transaction: a failure at any stage leaves no trace.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error)
	List(ctx context.Context, params ListParams) ([]models.Order, error)
	ItemTimeline(ctx context.Context, itemID uuid.UUID, actor Actor) (*ItemTimelineOutput, error)
	AdvanceTracking(ctx context.Context, input AdvanceTrackingInput) (*models.OrderItem, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type verifierRegistry interface {
	For(method enums.PaymentMethod) (gateway.Verifier, error)
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type service struct {
	tx        txRunner
	repo      Repository
	products  products.Repository
	walletSvc wallet.Service
	wallets   wallet.Repository
	verifiers verifierRegistry
	emitter   outboxEmitter
	logg      *logger.Logger
	now       func() time.Time
}

func NewService(
	tx txRunner,
	repo Repository,
	productRepo products.Repository,
	walletSvc wallet.Service,
	walletRepo wallet.Repository,
	verifiers verifierRegistry,
	emitter outboxEmitter,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("order repository required")
	}
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if walletRepo == nil {
		return nil, fmt.Errorf("wallet repository required")
	}
	if verifiers == nil {
		return nil, fmt.Errorf("verifier registry required")
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
		products:  productRepo,
		walletSvc: walletSvc,
		wallets:   walletRepo,
		verifiers: verifiers,
		emitter:   emitter,
		logg:      logg,
		now:       time.Now,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if err := s.validateCreate(input); err != nil {
		return nil, err
	}

	currency := input.Currency
	if currency == "" {
		currency = enums.CurrencyNGN
	}
	now := s.now().UTC()
	orderID := uuid.New()

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id":       orderID.String(),
		"buyer_id":       input.BuyerID.String(),
		"payment_method": input.PaymentMethod,
		"item_count":     len(input.Items),
	})

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		wallets := s.wallets.WithTx(tx)

		if input.PaymentMethod.IsGateway() {
			if err := s.checkDuplicateRef(ctx, repo, wallets, input.TransactionRef); err != nil {
				return err
			}
		}

		items, sales, reservations, totalPrice, err := s.buildItems(ctx, tx, orderID, input, now)
		if err != nil {
			return err
		}

		if err := inventory.Reserve(ctx, tx, reservations); err != nil {
			return err
		}

		if err := s.settle(logCtx, tx, orderID, input, totalPrice); err != nil {
			return err
		}

		order = &models.Order{
			ID:            orderID,
			BuyerID:       input.BuyerID,
			TotalAmount:   input.TotalAmount,
			Currency:      currency,
			PaymentMethod: input.PaymentMethod,
			Items:         items,
		}
		if input.PaymentMethod.IsGateway() {
			ref := input.TransactionRef
			order.TransactionRef = &ref
		}
		if err := repo.CreateOrder(ctx, order); err != nil {
			if dbpkg.IsUniqueViolation(err, "transaction_ref") {
				return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction reference already used")
			}
			return err
		}
		if err := repo.CreateProductSales(ctx, sales); err != nil {
			return err
		}

		sellerIDs := make([]uuid.UUID, 0, len(items))
		for _, item := range items {
			sellerIDs = append(sellerIDs, item.SellerID)
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   orderID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.ActorRoleBuyer)},
			Data: payloads.OrderCreatedEvent{
				OrderID:       orderID,
				BuyerID:       input.BuyerID,
				PaymentMethod: input.PaymentMethod,
				TotalAmount:   input.TotalAmount,
				Currency:      currency,
				ItemCount:     len(items),
				SellerIDs:     sellerIDs,
				CreatedAt:     now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		s.logg.Error(logCtx, "order creation failed", err)
		return nil, err
	}

	s.logg.Info(logCtx, "order created")
	return order, nil
}

func (s *service) validateCreate(input CreateInput) error {
	if input.BuyerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order needs at least one item")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeUnsupportedPayment, "unknown payment method").
			WithDetails(map[string]any{"paymentMethod": string(input.PaymentMethod)})
	}
	if !input.TotalAmount.IsPositive() {
		return pkgerrors.New(pkgerrors.CodeInvalidAmount, "total amount must be positive")
	}
	if input.PaymentMethod.IsGateway() && input.TransactionRef == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "transaction reference required for gateway payments")
	}
	for _, item := range input.Items {
		if item.Quantity <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "item quantity must be positive")
		}
		if item.SizeLabel == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "item size required")
		}
	}
	return nil
}

func (s *service) checkDuplicateRef(ctx context.Context, repo Repository, wallets wallet.Repository, ref string) error {
	used, err := repo.HasOrderWithTransactionRef(ctx, ref)
	if err != nil {
		return err
	}
	if !used {
		used, err = wallets.HasTransactionRef(ctx, ref)
		if err != nil {
			return err
		}
	}
	if used {
		return pkgerrors.New(pkgerrors.CodeDuplicateTransaction, "transaction reference already used").
			WithDetails(map[string]any{"transactionRef": ref})
	}
	return nil
}

func (s *service) buildItems(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input CreateInput, now time.Time) ([]models.OrderItem, []models.ProductSale, []inventory.ReservationRequest, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		ids = append(ids, item.ProductID)
	}
	catalog, err := s.products.WithTx(tx).FindByIDs(ctx, ids)
	if err != nil {
		return nil, nil, nil, decimal.Zero, err
	}
	byID := make(map[uuid.UUID]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	items := make([]models.OrderItem, 0, len(input.Items))
	sales := make([]models.ProductSale, 0, len(input.Items))
	reservations := make([]inventory.ReservationRequest, 0, len(input.Items))
	totalPrice := decimal.Zero

	for _, in := range input.Items {
		product, ok := byID[in.ProductID]
		if !ok {
			return nil, nil, nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"productId": in.ProductID.String()})
		}

		linePrice := product.SellingPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		totalPrice = totalPrice.Add(linePrice)

		deliveryOption := "standard"
		if in.DeliveryOption != nil && *in.DeliveryOption != "" {
			deliveryOption = *in.DeliveryOption
		}
		items = append(items, models.OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			ProductID:       product.ID,
			SellerID:        product.SellerID,
			BuyerID:         input.BuyerID,
			Name:            product.Title,
			SelectedSize:    in.SizeLabel,
			SelectedColor:   in.Color,
			Price:           linePrice,
			Qty:             in.Quantity,
			DeliveryOption:  deliveryOption,
			CurrentStatus:   enums.DeliveryStatusProcessing,
			CurrentStatusAt: now,
		})
		sales = append(sales, models.ProductSale{
			ID:        uuid.New(),
			ProductID: product.ID,
			SellerID:  product.SellerID,
			BuyerID:   input.BuyerID,
			OrderID:   orderID,
			Qty:       in.Quantity,
		})
		reservations = append(reservations, inventory.ReservationRequest{
			ProductID: product.ID,
			SizeLabel: in.SizeLabel,
			Qty:       in.Quantity,
		})
	}
	return items, sales, reservations, totalPrice, nil
}

// settle verifies or captures payment for the order. Gateway verification is
// an external call made inside the transaction on purpose: if it fails, the
// reservations above roll back with it.
func (s *service) settle(ctx context.Context, tx *gorm.DB, orderID uuid.UUID, input CreateInput, totalPrice decimal.Decimal) error {
	switch {
	case input.PaymentMethod.IsGateway():
		verifier, err := s.verifiers.For(input.PaymentMethod)
		if err != nil {
			return err
		}
		verification, err := verifier.Verify(ctx, input.TransactionRef)
		if err != nil {
			return err
		}
		if !verification.Verified {
			return pkgerrors.New(pkgerrors.CodePaymentVerification, "payment could not be verified").
				WithDetails(map[string]any{"transactionRef": input.TransactionRef})
		}
		if !verification.Amount.Equal(input.TotalAmount) && totalPrice.GreaterThan(verification.Amount) {
			return pkgerrors.New(pkgerrors.CodeAmountMismatch, "verified amount does not cover order total").
				WithDetails(map[string]any{
					"verifiedAmount": verification.Amount.String(),
					"claimedAmount":  input.TotalAmount.String(),
					"orderTotal":     totalPrice.String(),
				})
		}
		return nil

	case input.PaymentMethod == enums.PaymentMethodWallet:
		if totalPrice.GreaterThan(input.TotalAmount) {
			return pkgerrors.New(pkgerrors.CodeInvalidAmount, "total amount below order total").
				WithDetails(map[string]any{
					"claimedAmount": input.TotalAmount.String(),
					"orderTotal":    totalPrice.String(),
				})
		}
		txn, err := s.walletSvc.Debit(ctx, tx, wallet.DebitInput{
			UserID:      input.BuyerID,
			Amount:      input.TotalAmount,
			Currency:    input.Currency,
			Description: "order payment",
			OrderID:     &orderID,
		})
		if err != nil {
			return err
		}
		occurred := txn.CreatedAt
		if occurred.IsZero() {
			occurred = s.now().UTC()
		}
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWalletDebited,
			AggregateType: enums.AggregateWallet,
			AggregateID:   txn.WalletID,
			Actor:         &outbox.ActorRef{UserID: input.BuyerID, Role: string(enums.ActorRoleBuyer)},
			Data: payloads.WalletMovementEvent{
				WalletID:      txn.WalletID,
				UserID:        txn.UserID,
				TransactionID: txn.ID,
				Type:          txn.Type,
				Amount:        txn.Amount,
				Currency:      txn.Currency,
				OccurredAt:    occurred,
			},
			Version:    1,
			OccurredAt: occurred,
		})

	default:
		return pkgerrors.New(pkgerrors.CodeUnsupportedPayment, "unsupported payment method").
			WithDetails(map[string]any{"paymentMethod": string(input.PaymentMethod)})
	}
}

func (s *service) Get(ctx context.Context, orderID uuid.UUID, actor Actor) (*models.Order, error) {
	order, err := s.repo.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := authorizeOrderRead(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) List(ctx context.Context, params ListParams) ([]models.Order, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 50
	}
	return s.repo.ListOrders(ctx, params)
}

func (s *service) ItemTimeline(ctx context.Context, itemID uuid.UUID, actor Actor) (*ItemTimelineOutput, error) {
	item, err := s.repo.FindOrderItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if err := authorizeItemAccess(item, actor); err != nil {
		return nil, err
	}
	entries, err := s.repo.ListTrackingEntries(ctx, itemID)
	if err != nil {
		return nil, err
	}

	out := &ItemTimelineOutput{
		OrderItemID:     item.ID,
		CurrentStatus:   item.CurrentStatus,
		CurrentStatusAt: item.CurrentStatusAt,
		TrackingNumber:  item.TrackingNumber,
		History:         make([]TrackingEventOutput, 0, len(entries)),
	}
	for _, entry := range entries {
		out.History = append(out.History, TrackingEventOutput{
			Status:     entry.Status,
			OccurredAt: entry.OccurredAt,
		})
	}
	return out, nil
}

// AdvanceTracking moves an order item one step along the delivery timeline.
// Return branch statuses are owned by the returns service and rejected here.
func (s *service) AdvanceTracking(ctx context.Context, input AdvanceTrackingInput) (*models.OrderItem, error) {
	if input.NewStatus.IsReturnBranch() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "return statuses are set through the return, not the order item")
	}

	now := s.now().UTC()
	var updated *models.OrderItem
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindOrderItem(ctx, input.OrderItemID)
		if err != nil {
			return err
		}
		if item.OrderID != input.OrderID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order item not found")
		}
		if err := authorizeItemWrite(item, input.Actor); err != nil {
			return err
		}

		entries, err := repo.ListTrackingEntries(ctx, item.ID)
		if err != nil {
			return err
		}
		timeline := timelineFor(item, entries)
		advanced, err := timeline.Advance(input.NewStatus, input.Actor.Role, now)
		if err != nil {
			return err
		}

		previous := item.CurrentStatus
		if err := repo.AppendTrackingEntry(ctx, &models.TrackingEntry{
			ID:          uuid.New(),
			OrderItemID: &item.ID,
			Status:      previous,
			OccurredAt:  item.CurrentStatusAt,
		}); err != nil {
			return err
		}
		if err := repo.UpdateItemTracking(ctx, item.ID, advanced.Current.Status, advanced.Current.OccurredAt, input.TrackingNumber); err != nil {
			return err
		}

		item.CurrentStatus = advanced.Current.Status
		item.CurrentStatusAt = advanced.Current.OccurredAt
		if input.TrackingNumber != nil {
			item.TrackingNumber = input.TrackingNumber
		}
		updated = item

		notifyUserID, notifyRole := counterparty(item, advanced.Current.Status)
		return s.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderTrackingAdvanced,
			AggregateType: enums.AggregateOrderItem,
			AggregateID:   item.ID,
			Actor:         &outbox.ActorRef{UserID: input.Actor.UserID, Role: string(input.Actor.Role)},
			Data: payloads.TrackingAdvancedEvent{
				OrderID:        item.OrderID,
				OrderItemID:    item.ID,
				PreviousStatus: previous,
				NewStatus:      advanced.Current.Status,
				SetByRole:      input.Actor.Role,
				NotifyUserID:   notifyUserID,
				NotifyRole:     notifyRole,
				OccurredAt:     now,
			},
			Version:    1,
			OccurredAt: now,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logg.Info(s.logg.WithFields(ctx, map[string]any{
		"order_item_id": updated.ID.String(),
		"status":        updated.CurrentStatus,
	}), "order item tracking advanced")
	return updated, nil
}

func timelineFor(item *models.OrderItem, entries []models.TrackingEntry) tracking.Timeline {
	timeline := tracking.Timeline{
		Current: tracking.Entry{Status: item.CurrentStatus, OccurredAt: item.CurrentStatusAt},
	}
	for _, entry := range entries {
		timeline.History = append(timeline.History, tracking.Entry{
			Status:     entry.Status,
			OccurredAt: entry.OccurredAt,
		})
	}
	return timeline
}

// counterparty picks who to notify about a status the actor just set.
func counterparty(item *models.OrderItem, status enums.DeliveryStatus) (uuid.UUID, enums.ActorRole) {
	rule, ok := tracking.RuleFor(status)
	if ok && rule.NotifyRole == enums.ActorRoleSeller {
		return item.SellerID, enums.ActorRoleSeller
	}
	return item.BuyerID, enums.ActorRoleBuyer
}

func authorizeOrderRead(order *models.Order, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleBuyer:
		if order.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		for _, item := range order.Items {
			if item.SellerID == actor.UserID {
				return nil
			}
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order")
}

func authorizeItemAccess(item *models.OrderItem, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin, enums.ActorRoleSystem:
		return nil
	case enums.ActorRoleBuyer:
		if item.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		if item.SellerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not a party to this order item")
}

// authorizeItemWrite additionally pins the acting user to the exact party the
// role claims, so a seller cannot move another seller's item.
func authorizeItemWrite(item *models.OrderItem, actor Actor) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleBuyer:
		if item.BuyerID == actor.UserID {
			return nil
		}
	case enums.ActorRoleSeller:
		if item.SellerID == actor.UserID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "not allowed to update this order item")
}
