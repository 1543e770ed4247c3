package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/enums"
)

// Offer is a catalog-scoped promotional rule. Definitions are read-only to the
// order core; their lifecycle is plain CRUD in the admin surface.
type Offer struct {
	ID                 uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Label              string             `gorm:"column:label;not null"`
	DiscountType       enums.DiscountType `gorm:"column:discount_type;type:discount_type;not null"`
	DiscountPercentage *decimal.Decimal   `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountAmount     *decimal.Decimal   `gorm:"column:discount_amount;type:numeric(12,2)"`
	MinQuantity        *int               `gorm:"column:min_quantity"`
	MaxQuantity        *int               `gorm:"column:max_quantity"`
	// ProductScope nil means the offer applies to the whole catalog.
	ProductScope *uuid.UUID `gorm:"column:product_scope;type:uuid"`
	Combinable   bool       `gorm:"column:combinable;not null;default:false"`
	ValidFrom    time.Time  `gorm:"column:valid_from;not null"`
	ValidUntil   time.Time  `gorm:"column:valid_until;not null"`
	IsActive     bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
