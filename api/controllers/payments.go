package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/api/validators"
	internalpayments "github.com/kasuwahq/kasuwa-backend/internal/payments"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/pagination"
)

type requestPayoutRequest struct {
	OrderItemID string `json:"orderItemId" validate:"required,uuid"`
	Destination string `json:"destination" validate:"required"`
}

// RequestPayout opens a payout request for a seller's settled order item.
func RequestPayout(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestPayoutRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuid.Parse(body.OrderItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order item id"))
			return
		}
		destination, err := enums.ParsePayoutDestination(body.Destination)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout destination"))
			return
		}

		payment, err := svc.RequestSellerPayout(r.Context(), internalpayments.RequestPayoutInput{
			OrderItemID: itemID,
			Actor:       internalpayments.Actor{UserID: userID, Role: role},
			Destination: destination,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

type requestRefundRequest struct {
	ReturnID string `json:"returnId" validate:"required,uuid"`
}

// RequestRefund opens a refund request for a buyer's completed return.
func RequestRefund(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body requestRefundRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := uuid.Parse(body.ReturnID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return id"))
			return
		}

		payment, err := svc.RequestBuyerRefund(r.Context(), internalpayments.RequestRefundInput{
			ReturnID: returnID,
			Actor:    internalpayments.Actor{UserID: userID, Role: role},
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payment)
	}
}

type decidePaymentRequest struct {
	AdminReason *string `json:"adminReason,omitempty"`
}

// ApprovePayment settles a pending payment and moves funds.
func ApprovePayment(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return decidePayment(svc, logg, true)
}

// DeclinePayment rejects a pending payment.
func DeclinePayment(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return decidePayment(svc, logg, false)
}

func decidePayment(svc internalpayments.Service, logg *logger.Logger, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := parseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decidePaymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalpayments.DecideInput{
			PaymentID:   paymentID,
			Actor:       internalpayments.Actor{UserID: userID, Role: role},
			AdminReason: body.AdminReason,
		}

		var payment any
		if approve {
			payment, err = svc.Approve(r.Context(), input)
		} else {
			payment, err = svc.Decline(r.Context(), input)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// PaymentDetail returns a single payment with visibility enforced.
func PaymentDetail(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := parseURLUUID(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payment, err := svc.Get(r.Context(), paymentID, internalpayments.Actor{UserID: userID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payment)
	}
}

// ListPayments pages payments. Non-admin callers only see their own.
func ListPayments(svc internalpayments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
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

		params := internalpayments.ListParams{Limit: limit, Offset: offset}
		if role == enums.ActorRoleAdmin {
			if raw := strings.TrimSpace(r.URL.Query().Get("userId")); raw != "" {
				id, err := uuid.Parse(raw)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id"))
					return
				}
				params.UserID = &id
			}
		} else {
			params.UserID = &userID
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment status"))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
