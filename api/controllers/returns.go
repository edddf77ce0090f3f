package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/api/validators"
	internalreturns "github.com/kasuwahq/kasuwa-backend/internal/returns"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/pagination"
)

type createReturnRequest struct {
	OrderItemID    string `json:"orderItemId" validate:"required,uuid"`
	Reason         string `json:"reason" validate:"required,min=3"`
	Refund         bool   `json:"refund"`
	Region         string `json:"region"`
	DeliveryOption string `json:"deliveryOption"`
}

// CreateReturn logs a return for one of the buyer's delivered items.
func CreateReturn(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		buyerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		itemID, err := uuid.Parse(body.OrderItemID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order item id"))
			return
		}

		ret, err := svc.Create(r.Context(), internalreturns.CreateInput{
			OrderItemID:    itemID,
			BuyerID:        buyerID,
			Reason:         validators.SanitizeString(body.Reason, 1024),
			Refund:         body.Refund,
			Region:         validators.SanitizeString(body.Region, 128),
			DeliveryOption: validators.SanitizeString(body.DeliveryOption, 128),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, ret)
	}
}

// ReturnDetail returns a single return request with visibility enforced.
func ReturnDetail(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := parseURLUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Get(r.Context(), returnID, internalreturns.Actor{UserID: userID, Role: role})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// ListReturns pages return requests scoped by actor role.
func ListReturns(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
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

		params := internalreturns.ListParams{Limit: limit, Offset: offset}
		switch role {
		case enums.ActorRoleBuyer:
			params.BuyerID = &userID
		case enums.ActorRoleSeller:
			params.SellerID = &userID
		case enums.ActorRoleAdmin:
		default:
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "unsupported actor role"))
			return
		}

		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseReturnStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid return status"))
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

type decideReturnRequest struct {
	Approve     bool    `json:"approve"`
	AdminReason *string `json:"adminReason,omitempty"`
}

// DecideReturn approves or declines a pending return.
func DecideReturn(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := parseURLUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body decideReturnRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ret, err := svc.Decide(r.Context(), internalreturns.DecideInput{
			ReturnID:    returnID,
			Actor:       internalreturns.Actor{UserID: userID, Role: role},
			Approve:     body.Approve,
			AdminReason: body.AdminReason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}

// AdvanceReturnTracking moves a return shipment along the reverse timeline.
func AdvanceReturnTracking(svc internalreturns.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}

		userID, role, err := requestActor(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		returnID, err := parseURLUUID(r, "returnId")
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

		ret, err := svc.AdvanceTracking(r.Context(), internalreturns.AdvanceTrackingInput{
			ReturnID:       returnID,
			Actor:          internalreturns.Actor{UserID: userID, Role: role},
			NewStatus:      status,
			TrackingNumber: body.TrackingNumber,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, ret)
	}
}
