package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kasuwahq/kasuwa-backend/api/responses"
	"github.com/kasuwahq/kasuwa-backend/api/validators"
	internalproducts "github.com/kasuwahq/kasuwa-backend/internal/products"
	"github.com/kasuwahq/kasuwa-backend/pkg/db/models"
	"github.com/kasuwahq/kasuwa-backend/pkg/enums"
	pkgerrors "github.com/kasuwahq/kasuwa-backend/pkg/errors"
	"github.com/kasuwahq/kasuwa-backend/pkg/logger"
	"github.com/kasuwahq/kasuwa-backend/pkg/pagination"
)

type createProductSizeRequest struct {
	Label    string `json:"label" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=0"`
}

type createProductRequest struct {
	Title        string                     `json:"title" validate:"required,min=2"`
	Description  *string                    `json:"description,omitempty"`
	SellingPrice string                     `json:"sellingPrice" validate:"required"`
	Currency     string                     `json:"currency" validate:"required"`
	Sizes        []createProductSizeRequest `json:"sizes" validate:"required,min=1,dive"`
}

// CreateProduct publishes a catalog listing for the authenticated seller.
func CreateProduct(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		sellerID, err := requestUserID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body createProductRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		price, err := decimal.NewFromString(body.SellingPrice)
		if err != nil || price.IsNegative() {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidAmount, "selling price must be a non-negative decimal"))
			return
		}
		currency, err := enums.ParseCurrency(body.Currency)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency"))
			return
		}

		product := &models.Product{
			ID:           uuid.New(),
			SellerID:     sellerID,
			Title:        validators.SanitizeString(body.Title, 256),
			Description:  body.Description,
			SellingPrice: price,
			Currency:     currency,
		}
		for _, size := range body.Sizes {
			product.Sizes = append(product.Sizes, models.ProductSize{
				ID:        uuid.New(),
				ProductID: product.ID,
				Label:     validators.SanitizeString(size.Label, 64),
				Quantity:  size.Quantity,
			})
		}

		if err := repo.Create(r.Context(), product); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, product)
	}
}

// ProductDetail returns a catalog listing with its per-size stock.
func ProductDetail(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		productID, err := parseURLUUID(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := repo.FindByID(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}

// ListSellerProducts returns the authenticated seller's catalog.
func ListSellerProducts(repo internalproducts.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products repository unavailable"))
			return
		}

		sellerID, err := requestUserID(r)
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

		list, err := repo.ListBySeller(r.Context(), sellerID, limit, offset)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}
