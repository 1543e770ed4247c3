package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/api/responses"
	"github.com/lumashop/storefront-backend/internal/catalog"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/logger"
)

// ListOffers returns offers currently inside their validity window.
func ListOffers(repo catalog.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog unavailable"))
			return
		}

		offers, err := repo.ListActiveOffers(r.Context(), time.Now())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list offers"))
			return
		}

		out := make([]offerResponse, 0, len(offers))
		for _, offer := range offers {
			out = append(out, offerResponse{
				OfferID:            offer.ID,
				Label:              offer.Label,
				DiscountType:       offer.DiscountType.String(),
				DiscountPercentage: offer.DiscountPercentage,
				DiscountAmount:     offer.DiscountAmount,
				ProductScope:       offer.ProductScope,
				Combinable:         offer.Combinable,
				ValidFrom:          offer.ValidFrom,
				ValidUntil:         offer.ValidUntil,
			})
		}
		responses.WriteSuccess(w, out)
	}
}

type offerResponse struct {
	OfferID            uuid.UUID        `json:"offer_id"`
	Label              string           `json:"label"`
	DiscountType       string           `json:"discount_type"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
	ProductScope       *uuid.UUID       `json:"product_scope,omitempty"`
	Combinable         bool             `json:"combinable"`
	ValidFrom          time.Time        `json:"valid_from"`
	ValidUntil         time.Time        `json:"valid_until"`
}
