package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/enums"
)

// OfferApplication is the frozen result of evaluating an offer or promo code
// against a cart. It is snapshotted onto the order at checkout and never
// recomputed, even if the source definition changes later.
type OfferApplication struct {
	SourceID       string               `json:"source_id"`
	SourceKind     enums.DiscountSource `json:"source_kind"`
	DiscountAmount decimal.Decimal      `json:"discount_amount"`
	Description    string               `json:"description"`
}

// NewOfferApplication builds a snapshot for a catalog offer.
func NewOfferApplication(offerID uuid.UUID, amount decimal.Decimal, description string) OfferApplication {
	return OfferApplication{
		SourceID:       offerID.String(),
		SourceKind:     enums.DiscountSourceOffer,
		DiscountAmount: amount,
		Description:    description,
	}
}

// NewPromoApplication builds a snapshot for a user-entered promo code.
func NewPromoApplication(code string, amount decimal.Decimal, description string) OfferApplication {
	return OfferApplication{
		SourceID:       code,
		SourceKind:     enums.DiscountSourcePromoCode,
		DiscountAmount: amount,
		Description:    description,
	}
}
