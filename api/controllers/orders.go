package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/api/validators"
	internalorders "github.com/kasuwahq/kasuwa-backend/internal/orders"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/pagination"
)

type createOrderItemRequest struct {
	ProductID      string  `json:"productId" validate:"required,uuid"`
	SizeLabel      string  `json:"sizeLabel" validate:"required"`
	Color          *string `json:"color,omitempty"`
	Quantity       int     `json:"quantity" validate:"required,min=1"`
	DeliveryOption *string `json:"deliveryOption,omitempty"`
}

type createOrderRequest struct {
	PaymentMethod  string                   `json:"paymentMethod" validate:"required"`
	Currency       string                   `json:"currency" validate:"required"`
	TotalAmount    string                   `json:"totalAmount" validate:"required"`
	TransactionRef string                   `json:"transactionRef" validate:"required"`
	Items          []createOrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// CreateOrder places an order for the authenticated buyer after verifying the
// referenced payment.
func CreateOrder(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		buyerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createOrderRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(body.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnsupportedPayment, err, "unsupported payment method"))
			return
		}
		currency, err := enums.ParseCurrency(body.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}
		total, err := decimal.NewFromString(body.TotalAmount)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeInvalidAmount, err, "invalid total amount"))
			return
		}

		input := internalorders.CreateInput{
			BuyerID:        buyerID,
			PaymentMethod:  method,
			Currency:       currency,
			TotalAmount:    total,
			TransactionRef: validators.SanitizeString(body.TransactionRef, 128),
		}
		for _, item := range body.Items {
			productID, err := uuid.Parse(item.ProductID)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid product id"))
				return
			}
			input.Items = append(input.Items, internalorders.CreateItemInput{
				ProductID:      productID,
				SizeLabel:      item.SizeLabel,
				Color:          item.Color,
				Quantity:       item.Quantity,
				DeliveryOption: item.DeliveryOption,
			})
		}

		order, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// ListOrders returns the caller's orders. Buyers see orders they placed,
// sellers see orders containing their items, admins may filter either side.
func ListOrders(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<20)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params := internalorders.ListParams{Limit: limit, Offset: offset}
		switch role {
		case enums.ActorRoleBuyer:
			params.BuyerID = &userID
		case enums.ActorRoleSeller:
			params.SellerID = &userID
		case enums.ActorRoleAdmin:
			if raw := strings.TrimSpace(r.URL.Query().Get("buyerId")); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid buyer id"))
					return
				}
				params.BuyerID = &id
			}
			if raw := strings.TrimSpace(r.URL.Query().Get("sellerId")); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid seller id"))
					return
				}
				params.SellerID = &id
			}
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "unsupported actor role"))
			return
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// OrderDetail returns a single order once the caller's visibility is checked.
func OrderDetail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), orderID, internalorders.Actor{UserID: userID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderItemTimeline returns the tracking history for one order item.
func OrderItemTimeline(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := parseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		timeline, err := svc.ItemTimeline(r.Context(), itemID, internalorders.Actor{UserID: userID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, timeline)
	}
}

type advanceTrackingRequest struct {
	NewStatus      string  `json:"newStatus" validate:"required"`
	TrackingNumber *string `json:"trackingNumber,omitempty"`
}

// AdvanceItemTracking moves an order item one step along its delivery timeline.
func AdvanceItemTracking(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orderID, err := parseURLUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := parseURLUUID(r, "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body advanceTrackingRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseDeliveryStatus(body.NewStatus)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid delivery status"))
			return
		}

		item, err := svc.AdvanceTracking(r.Context(), internalorders.AdvanceTrackingInput{
			OrderID:        orderID,
			OrderItemID:    itemID,
			Actor:          internalorders.Actor{UserID: userID, Role: role},
			NewStatus:      status,
			TrackingNumber: body.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

func parseURLUUID(r *http.Request, param string) (uuid.UUID, error) {
	raw := strings.TrimSpace(chi.URLParam(r, param))
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, param+" is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid "+param)
	}
	return id, nil
}
