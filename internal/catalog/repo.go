package catalog

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
)

// Repository is the queryable view over offer and promo-code definitions.
// Definitions are immutable from this side except for the promo usage counter.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindPromoCode(ctx context.Context, code string) (*models.PromoCode, error)
	ListActiveOffers(ctx context.Context, now time.Time) ([]models.Offer, error)
	CommitPromoUsage(ctx context.Context, promoID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a catalog repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindPromoCode(ctx context.Context, code string) (*models.PromoCode, error) {
	var promo models.PromoCode
	err := r.db.WithContext(ctx).
		Where("code = ?", code).
		First(&promo).Error
	if err != nil {
		return nil, err
	}
	return &promo, nil
}

func (r *repository) ListActiveOffers(ctx context.Context, now time.Time) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("is_active = TRUE").
		Where("valid_from <= ? AND valid_until >= ?", now, now).
		Order("created_at ASC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}

// CommitPromoUsage increments used_count with the limit check folded into the
// UPDATE itself, so two concurrent checkouts can never both take the last
// slot. Zero rows affected means the limit was reached (or the code vanished).
func (r *repository) CommitPromoUsage(ctx context.Context, promoID uuid.UUID) error {
	res := r.db.WithContext(ctx).Model(&models.PromoCode{}).
		Where("id = ?", promoID).
		Where("usage_limit IS NULL OR used_count < usage_limit").
		Update("used_count", gorm.Expr("used_count + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "promo code usage limit reached").
			WithDetails(map[string]any{"reason": "usage_limit_reached"})
	}
	return nil
}
