package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/db/models"
)

// Repository defines persistence operations for the orders aggregate.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error
	AppendTransition(ctx context.Context, transition *models.OrderStatusTransition) error
	FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindOrderWithHistory(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatuses(ctx context.Context, order models.Order, expectedVersion int64) error
	FindAdvanceEligible(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error)
	NextOrderNumber(ctx context.Context) (int64, error)
}
