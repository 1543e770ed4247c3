package discount

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/types"
)

// Rejection reasons surfaced in error details. Validation is fail-fast: only
// the first failing rule is ever reported.
const (
	ReasonInactive           = "inactive"
	ReasonOutsideWindow      = "outside_validity_window"
	ReasonScopeMismatch      = "scope_mismatch"
	ReasonMinOrderAmount     = "minimum_order_amount_not_met"
	ReasonUsageLimitReached  = "usage_limit_reached"
	ReasonQuantityOutOfRange = "quantity_out_of_range"
)

var hundred = decimal.NewFromInt(100)

// Engine computes discount applications. It is stateless and pure: evaluating
// the same inputs twice yields identical applications, and usage counters are
// untouched (committing usage is the catalog repository's job).
type Engine struct{}

// NewEngine returns a discount engine.
func NewEngine() Engine {
	return Engine{}
}

// EvaluateOffer checks a catalog offer against the cart and returns the frozen
// application on success.
func (Engine) EvaluateOffer(cart Cart, offer models.Offer, now time.Time) (types.OfferApplication, error) {
	if !offer.IsActive {
		return types.OfferApplication{}, rejection("offer is not active", ReasonInactive)
	}
	if now.Before(offer.ValidFrom) || now.After(offer.ValidUntil) {
		return types.OfferApplication{}, rejection("offer is outside its validity window", ReasonOutsideWindow)
	}
	if offer.ProductScope != nil {
		for _, item := range cart.Items {
			if item.ProductID != *offer.ProductScope {
				return types.OfferApplication{}, rejection("offer does not apply to all items in the cart", ReasonScopeMismatch)
			}
		}
	}
	if offer.DiscountType == enums.DiscountTypeBulk {
		qty := scopedQuantity(cart, offer.ProductScope)
		if offer.MinQuantity != nil && qty < *offer.MinQuantity {
			return types.OfferApplication{}, rejection("quantity below the offer's bulk minimum", ReasonQuantityOutOfRange)
		}
		if offer.MaxQuantity != nil && qty > *offer.MaxQuantity {
			return types.OfferApplication{}, rejection("quantity above the offer's bulk maximum", ReasonQuantityOutOfRange)
		}
	}

	amount := offerAmount(cart, offer)
	amount = clampDiscount(amount, cart)
	return types.NewOfferApplication(offer.ID, amount, offer.Label), nil
}

// EvaluatePromoCode checks a promo code against the cart and returns the
// frozen application on success. UsedCount is read, never written.
func (Engine) EvaluatePromoCode(cart Cart, promo models.PromoCode, now time.Time) (types.OfferApplication, error) {
	if !promo.IsActive {
		return types.OfferApplication{}, rejection("promo code is not active", ReasonInactive)
	}
	if now.Before(promo.ValidFrom) || now.After(promo.ValidUntil) {
		return types.OfferApplication{}, rejection("promo code is outside its validity window", ReasonOutsideWindow)
	}
	if len(promo.CategoryScope) > 0 && !anyCategoryMatches(cart, promo.CategoryScope) {
		return types.OfferApplication{}, rejection("promo code does not apply to any item in the cart", ReasonScopeMismatch)
	}
	if cart.Subtotal().LessThan(promo.MinOrderAmount) {
		return types.OfferApplication{}, rejection("minimum order amount not met", ReasonMinOrderAmount)
	}
	if promo.UsageLimit != nil && promo.UsedCount >= *promo.UsageLimit {
		return types.OfferApplication{}, rejection("promo code usage limit reached", ReasonUsageLimitReached)
	}

	amount := promoAmount(cart, promo)
	amount = clampDiscount(amount, cart)
	return types.NewPromoApplication(promo.Code, amount, promo.Description), nil
}

func rejection(message, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, message).
		WithDetails(map[string]any{"reason": reason})
}

func offerAmount(cart Cart, offer models.Offer) decimal.Decimal {
	switch offer.DiscountType {
	case enums.DiscountTypePercentage:
		return percentageOf(scopedSubtotal(cart, offer.ProductScope), offer.DiscountPercentage)
	case enums.DiscountTypeFixedAmount:
		return fixedAgainst(scopedSubtotal(cart, offer.ProductScope), offer.DiscountAmount)
	case enums.DiscountTypeFreeShipping:
		return cart.ShippingFee
	case enums.DiscountTypeBogo:
		// One unit free per qualifying pair. Percentage/amount fields are
		// ignored for this type even when present.
		return bogoAmount(cart, offer.ProductScope)
	case enums.DiscountTypeBulk:
		if offer.DiscountPercentage != nil {
			return percentageOf(scopedSubtotal(cart, offer.ProductScope), offer.DiscountPercentage)
		}
		return fixedAgainst(scopedSubtotal(cart, offer.ProductScope), offer.DiscountAmount)
	default:
		// Custom offers with no declared shape are marketing labels with zero
		// monetary effect; the application is still accepted.
		if offer.DiscountPercentage != nil {
			return percentageOf(scopedSubtotal(cart, offer.ProductScope), offer.DiscountPercentage)
		}
		if offer.DiscountAmount != nil {
			return fixedAgainst(scopedSubtotal(cart, offer.ProductScope), offer.DiscountAmount)
		}
		return decimal.Zero
	}
}

func promoAmount(cart Cart, promo models.PromoCode) decimal.Decimal {
	base := categorySubtotal(cart, promo.CategoryScope)
	switch promo.DiscountType {
	case enums.PromoDiscountPercentage:
		raw := percentageOf(base, promo.DiscountPercentage)
		if promo.MaxDiscountAmount != nil && raw.GreaterThan(*promo.MaxDiscountAmount) {
			return *promo.MaxDiscountAmount
		}
		return raw
	case enums.PromoDiscountFixed:
		return fixedAgainst(base, promo.DiscountAmount)
	case enums.PromoDiscountFreeShipping:
		return cart.ShippingFee
	default:
		return decimal.Zero
	}
}

func percentageOf(base decimal.Decimal, percentage *decimal.Decimal) decimal.Decimal {
	if percentage == nil {
		return decimal.Zero
	}
	return base.Mul(*percentage).Div(hundred).Round(2)
}

func fixedAgainst(base decimal.Decimal, amount *decimal.Decimal) decimal.Decimal {
	if amount == nil {
		return decimal.Zero
	}
	if amount.GreaterThan(base) {
		return base
	}
	return *amount
}

func bogoAmount(cart Cart, scope *uuid.UUID) decimal.Decimal {
	// Units aggregate across lines: two qty-1 lines of the same product still
	// form a pair. Lines priced differently never pair with each other.
	type bogoKey struct {
		product uuid.UUID
		price   string
	}
	units := make(map[bogoKey]int)
	prices := make(map[bogoKey]decimal.Decimal)
	for _, item := range cart.Items {
		if scope != nil && item.ProductID != *scope {
			continue
		}
		key := bogoKey{product: item.ProductID, price: item.UnitPrice.String()}
		units[key] += item.Qty
		prices[key] = item.UnitPrice
	}

	total := decimal.Zero
	for key, qty := range units {
		pairs := decimal.NewFromInt(int64(qty / 2))
		total = total.Add(pairs.Mul(prices[key]))
	}
	return total.Round(2)
}

func scopedSubtotal(cart Cart, scope *uuid.UUID) decimal.Decimal {
	if scope == nil {
		return cart.Subtotal()
	}
	total := decimal.Zero
	for _, item := range cart.Items {
		if item.ProductID == *scope {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

func scopedQuantity(cart Cart, scope *uuid.UUID) int {
	qty := 0
	for _, item := range cart.Items {
		if scope == nil || item.ProductID == *scope {
			qty += item.Qty
		}
	}
	return qty
}

func categorySubtotal(cart Cart, categories []string) decimal.Decimal {
	if len(categories) == 0 {
		return cart.Subtotal()
	}
	total := decimal.Zero
	for _, item := range cart.Items {
		if categoryIn(item.Category, categories) {
			total = total.Add(item.LineTotal())
		}
	}
	return total
}

func anyCategoryMatches(cart Cart, categories []string) bool {
	for _, item := range cart.Items {
		if categoryIn(item.Category, categories) {
			return true
		}
	}
	return false
}

func categoryIn(category string, categories []string) bool {
	for _, candidate := range categories {
		if candidate == category {
			return true
		}
	}
	return false
}

// clampDiscount keeps the discount within [0, subtotal + shipping] and rounds
// to currency precision, half up.
func clampDiscount(amount decimal.Decimal, cart Cart) decimal.Decimal {
	ceiling := cart.Subtotal().Add(cart.ShippingFee)
	if amount.LessThan(decimal.Zero) {
		return decimal.Zero
	}
	if amount.GreaterThan(ceiling) {
		amount = ceiling
	}
	return amount.Round(2)
}
