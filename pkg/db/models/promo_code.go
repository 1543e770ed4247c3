package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/enums"
)

// PromoCode is a user-entered discount code with usage accounting.
// UsedCount is only ever advanced by the conditional UPDATE in the catalog
// repository, inside the same transaction that creates the order.
type PromoCode struct {
	ID                 uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Code               string                  `gorm:"column:code;not null;uniqueIndex:ux_promo_codes_code"`
	Description        string                  `gorm:"column:description;not null"`
	DiscountType       enums.PromoDiscountType `gorm:"column:discount_type;type:promo_discount_type;not null"`
	DiscountPercentage *decimal.Decimal        `gorm:"column:discount_percentage;type:numeric(5,2)"`
	DiscountAmount     *decimal.Decimal        `gorm:"column:discount_amount;type:numeric(12,2)"`
	MinOrderAmount     decimal.Decimal         `gorm:"column:min_order_amount;type:numeric(12,2);not null;default:0"`
	MaxDiscountAmount  *decimal.Decimal        `gorm:"column:max_discount_amount;type:numeric(12,2)"`
	UsageLimit         *int                    `gorm:"column:usage_limit"`
	UsedCount          int                     `gorm:"column:used_count;not null;default:0"`
	// CategoryScope empty means every category qualifies.
	CategoryScope pq.StringArray `gorm:"column:category_scope;type:text[]"`
	Combinable    bool           `gorm:"column:combinable;not null;default:false"`
	ValidFrom     time.Time      `gorm:"column:valid_from;not null"`
	ValidUntil    time.Time      `gorm:"column:valid_until;not null"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
