package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/internal/catalog"
	"github.com/lumashop/storefront-backend/internal/discount"
	"github.com/lumashop/storefront-backend/internal/orders"
	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/outbox"
	"github.com/lumashop/storefront-backend/pkg/outbox/payloads"
	"github.com/lumashop/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// LineItemInput is one cart line as submitted at checkout.
type LineItemInput struct {
	ProductID uuid.UUID
	Name      string
	Category  string
	UnitPrice decimal.Decimal
	Qty       int
}

// Input is a normalized checkout request.
type Input struct {
	Items         []LineItemInput
	ShippingFee   decimal.Decimal
	OfferID       *uuid.UUID
	PromoCode     *string
	PaymentMethod enums.PaymentMethod
}

// Quote is a priced cart before any order exists. Quoting never touches
// usage counters.
type Quote struct {
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingFee    decimal.Decimal
	TotalAmount    decimal.Decimal
	AppliedOffer   *types.OfferApplication
	AppliedPromo   *types.OfferApplication
}

// Service turns carts into orders.
type Service interface {
	Quote(ctx context.Context, input Input) (*Quote, error)
	Execute(ctx context.Context, input Input) (*models.Order, error)
}

type service struct {
	catalog catalog.Repository
	orders  orders.Repository
	engine  discount.Engine
	tx      txRunner
	outbox  outboxPublisher
	now     func() time.Time
}

// NewService builds the checkout coordinator with the required dependencies.
func NewService(catalogRepo catalog.Repository, ordersRepo orders.Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if catalogRepo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		catalog: catalogRepo,
		orders:  ordersRepo,
		engine:  discount.NewEngine(),
		tx:      tx,
		outbox:  outboxSvc,
		now:     time.Now,
	}, nil
}

// Quote prices the cart without creating anything.
func (s *service) Quote(ctx context.Context, input Input) (*Quote, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	quote, _, err := s.price(ctx, s.catalog, input, s.now())
	if err != nil {
		return nil, err
	}
	return quote, nil
}

// Execute prices the cart and creates the order in (pending, pending). Order
// row, line items, initial history entry, promo usage commit and the
// order_created event all share one transaction.
func (s *service) Execute(ctx context.Context, input Input) (*models.Order, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	now := s.now()
	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		catalogRepo := s.catalog.WithTx(tx)
		ordersRepo := s.orders.WithTx(tx)

		quote, promo, err := s.price(ctx, catalogRepo, input, now)
		if err != nil {
			return err
		}

		number, err := ordersRepo.NextOrderNumber(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate order number")
		}

		order := &models.Order{
			OrderNumber:     number,
			Subtotal:        quote.Subtotal,
			DiscountAmount:  quote.DiscountAmount,
			ShippingFee:     quote.ShippingFee,
			TotalAmount:     quote.TotalAmount,
			AppliedOffer:    quote.AppliedOffer,
			AppliedPromo:    quote.AppliedPromo,
			OrderStatus:     enums.OrderStatusPending,
			PaymentStatus:   enums.PaymentStatusPending,
			PaymentMethod:   input.PaymentMethod,
			StatusChangedAt: now,
			Version:         1,
		}
		if _, err := ordersRepo.CreateOrder(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		items := make([]models.OrderLineItem, 0, len(input.Items))
		for _, item := range input.Items {
			items = append(items, models.OrderLineItem{
				OrderID:   order.ID,
				ProductID: item.ProductID,
				Name:      item.Name,
				Category:  item.Category,
				UnitPrice: item.UnitPrice,
				Qty:       item.Qty,
			})
		}
		if err := ordersRepo.CreateOrderLineItems(ctx, items); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}

		initial := &models.OrderStatusTransition{
			OrderID:           order.ID,
			FromOrderStatus:   enums.OrderStatusPending,
			ToOrderStatus:     enums.OrderStatusPending,
			FromPaymentStatus: enums.PaymentStatusPending,
			ToPaymentStatus:   enums.PaymentStatusPending,
			Cause:             enums.CauseCheckout,
		}
		if err := ordersRepo.AppendTransition(ctx, initial); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}

		// Usage is committed only once the order exists; the conditional
		// UPDATE makes the limit check atomic with the increment.
		if promo != nil && quote.AppliedPromo != nil {
			if err := catalogRepo.CommitPromoUsage(ctx, promo.ID); err != nil {
				return err
			}
		}

		var promoCode *string
		if quote.AppliedPromo != nil {
			promoCode = &quote.AppliedPromo.SourceID
		}
		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Version:       1,
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				Subtotal:       order.Subtotal,
				DiscountAmount: order.DiscountAmount,
				TotalAmount:    order.TotalAmount,
				PaymentMethod:  order.PaymentMethod,
				PromoCode:      promoCode,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order created")
		}

		order.Items = items
		created = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// price evaluates the discount candidates against the cart. Candidates are
// mutually exclusive unless both declare themselves combinable.
func (s *service) price(ctx context.Context, catalogRepo catalog.Repository, input Input, now time.Time) (*Quote, *models.PromoCode, error) {
	cart := buildCart(input)
	quote := &Quote{
		Subtotal:       cart.Subtotal(),
		DiscountAmount: decimal.Zero,
		ShippingFee:    cart.ShippingFee,
	}

	var offer *models.Offer
	var promo *models.PromoCode
	if input.OfferID != nil {
		found, err := catalogRepo.FindOffer(ctx, *input.OfferID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		offer = found
	}
	if input.PromoCode != nil {
		found, err := catalogRepo.FindPromoCode(ctx, *input.PromoCode)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "promo code not found")
			}
			return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load promo code")
		}
		promo = found
	}

	if offer != nil && promo != nil && !(offer.Combinable && promo.Combinable) {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "offer and promo code cannot be combined").
			WithDetails(map[string]any{"reason": "not_combinable"})
	}

	if offer != nil {
		application, err := s.engine.EvaluateOffer(cart, *offer, now)
		if err != nil {
			return nil, nil, err
		}
		quote.AppliedOffer = &application
		quote.DiscountAmount = quote.DiscountAmount.Add(application.DiscountAmount)
	}
	if promo != nil {
		application, err := s.engine.EvaluatePromoCode(cart, *promo, now)
		if err != nil {
			return nil, nil, err
		}
		quote.AppliedPromo = &application
		quote.DiscountAmount = quote.DiscountAmount.Add(application.DiscountAmount)
	}

	ceiling := quote.Subtotal.Add(quote.ShippingFee)
	if quote.DiscountAmount.GreaterThan(ceiling) {
		quote.DiscountAmount = ceiling
	}
	quote.DiscountAmount = quote.DiscountAmount.Round(2)
	quote.TotalAmount = quote.Subtotal.Add(quote.ShippingFee).Sub(quote.DiscountAmount).Round(2)
	return quote, promo, nil
}

func buildCart(input Input) discount.Cart {
	items := make([]discount.CartItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, discount.CartItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		})
	}
	return discount.Cart{Items: items, ShippingFee: input.ShippingFee}
}

func validateInput(input Input) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item product id required")
		}
		if item.Qty <= 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item quantity must be positive")
		}
		if item.UnitPrice.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "line item price cannot be negative")
		}
	}
	if input.ShippingFee.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping fee cannot be negative")
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	return nil
}
