package orders

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
)

func setupOrdersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  order_number INTEGER NOT NULL,
  subtotal TEXT NOT NULL,
  discount_amount TEXT NOT NULL DEFAULT '0',
  shipping_fee TEXT NOT NULL DEFAULT '0',
  total_amount TEXT NOT NULL,
  applied_offer TEXT,
  applied_promo TEXT,
  order_status TEXT NOT NULL DEFAULT 'pending',
  payment_status TEXT NOT NULL DEFAULT 'pending',
  payment_method TEXT NOT NULL,
  status_changed_at DATETIME NOT NULL,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	orderLineItems := `
CREATE TABLE IF NOT EXISTS order_line_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  product_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  unit_price TEXT NOT NULL,
  qty INTEGER NOT NULL,
  created_at DATETIME
);`
	orderStatusTransitions := `
CREATE TABLE IF NOT EXISTS order_status_transitions (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  from_order_status TEXT NOT NULL,
  to_order_status TEXT NOT NULL,
  from_payment_status TEXT NOT NULL,
  to_payment_status TEXT NOT NULL,
  cause TEXT NOT NULL,
  created_at DATETIME
);`

	for _, stmt := range []string{orders, orderLineItems, orderStatusTransitions} {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func seedOrder(t *testing.T, repo Repository, orderStatus enums.OrderStatus, paymentStatus enums.PaymentStatus, changedAt time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		ID:              uuid.New(),
		OrderNumber:     1001,
		Subtotal:        decimal.RequireFromString("30.00"),
		DiscountAmount:  decimal.RequireFromString("5.00"),
		ShippingFee:     decimal.RequireFromString("4.50"),
		TotalAmount:     decimal.RequireFromString("29.50"),
		OrderStatus:     orderStatus,
		PaymentStatus:   paymentStatus,
		PaymentMethod:   enums.PaymentMethodCard,
		StatusChangedAt: changedAt,
	}
	created, err := repo.CreateOrder(context.Background(), order)
	require.NoError(t, err)
	return created
}

func TestRepositoryCreateAndFindOrder(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	changedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	order := seedOrder(t, repo, enums.OrderStatusPending, enums.PaymentStatusPending, changedAt)

	items := []models.OrderLineItem{
		{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ProductID: uuid.New(),
			Name:      "Ceramic Mug",
			Category:  "kitchen",
			UnitPrice: decimal.RequireFromString("10.00"),
			Qty:       3,
		},
	}
	require.NoError(t, repo.CreateOrderLineItems(ctx, items))

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	assert.Equal(t, enums.OrderStatusPending, found.OrderStatus)
	assert.True(t, found.TotalAmount.Equal(decimal.RequireFromString("29.50")))
	require.Len(t, found.Items, 1)
	assert.Equal(t, "Ceramic Mug", found.Items[0].Name)
	assert.Equal(t, 3, found.Items[0].Qty)
}

func TestRepositoryFindOrderWithHistory(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	changedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	order := seedOrder(t, repo, enums.OrderStatusConfirmed, enums.PaymentStatusCompleted, changedAt)

	first := &models.OrderStatusTransition{
		ID:                uuid.New(),
		OrderID:           order.ID,
		FromOrderStatus:   enums.OrderStatusPending,
		ToOrderStatus:     enums.OrderStatusConfirmed,
		FromPaymentStatus: enums.PaymentStatusPending,
		ToPaymentStatus:   enums.PaymentStatusCompleted,
		Cause:             enums.CauseExternalPaymentEvent,
		CreatedAt:         changedAt,
	}
	second := &models.OrderStatusTransition{
		ID:                uuid.New(),
		OrderID:           order.ID,
		FromOrderStatus:   enums.OrderStatusConfirmed,
		ToOrderStatus:     enums.OrderStatusProcessing,
		FromPaymentStatus: enums.PaymentStatusCompleted,
		ToPaymentStatus:   enums.PaymentStatusCompleted,
		Cause:             enums.CauseScheduledSweep,
		CreatedAt:         changedAt.Add(time.Hour),
	}
	require.NoError(t, repo.AppendTransition(ctx, first))
	require.NoError(t, repo.AppendTransition(ctx, second))

	found, err := repo.FindOrderWithHistory(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Transitions, 2)
	assert.Equal(t, enums.OrderStatusConfirmed, found.Transitions[0].ToOrderStatus)
	assert.Equal(t, enums.OrderStatusProcessing, found.Transitions[1].ToOrderStatus)
	assert.Equal(t, enums.CauseScheduledSweep, found.Transitions[1].Cause)
}

func TestRepositoryUpdateStatusesOptimisticLock(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	changedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	order := seedOrder(t, repo, enums.OrderStatusPending, enums.PaymentStatusPending, changedAt)

	updated := *order
	updated.OrderStatus = enums.OrderStatusConfirmed
	updated.PaymentStatus = enums.PaymentStatusCompleted
	updated.StatusChangedAt = changedAt.Add(time.Hour)
	require.NoError(t, repo.UpdateStatuses(ctx, updated, 1))

	found, err := repo.FindOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusConfirmed, found.OrderStatus)
	assert.Equal(t, int64(2), found.Version)

	// The same expected version again means a concurrent writer already won.
	err = repo.UpdateStatuses(ctx, updated, 1)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))
}

func TestRepositoryFindAdvanceEligible(t *testing.T) {
	db := setupOrdersTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	now := time.Date(2026, 4, 2, 12, 0, 0, 0, time.UTC)
	cutoff := now.Add(-24 * time.Hour)

	stale := seedOrder(t, repo, enums.OrderStatusConfirmed, enums.PaymentStatusCompleted, cutoff.Add(-2*time.Hour))
	older := seedOrder(t, repo, enums.OrderStatusProcessing, enums.PaymentStatusCompleted, cutoff.Add(-6*time.Hour))
	seedOrder(t, repo, enums.OrderStatusConfirmed, enums.PaymentStatusCompleted, cutoff.Add(time.Hour))
	seedOrder(t, repo, enums.OrderStatusConfirmed, enums.PaymentStatusPending, cutoff.Add(-2*time.Hour))
	seedOrder(t, repo, enums.OrderStatusDelivered, enums.PaymentStatusCompleted, cutoff.Add(-2*time.Hour))

	eligible, err := repo.FindAdvanceEligible(ctx, cutoff, 10)
	require.NoError(t, err)
	require.Len(t, eligible, 2)
	assert.Equal(t, older.ID, eligible[0].ID)
	assert.Equal(t, stale.ID, eligible[1].ID)

	limited, err := repo.FindAdvanceEligible(ctx, cutoff, 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, older.ID, limited[0].ID)
}
