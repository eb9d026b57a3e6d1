package repository

import (
	"context"

	"paymob-relay/internal/models"

	"gorm.io/gorm"
)

type CheckoutRepository struct {
	db *gorm.DB
}

func NewCheckoutRepository(db *gorm.DB) *CheckoutRepository {
	return &CheckoutRepository{db: db}
}

func (r *CheckoutRepository) Record(ctx context.Context, e *models.CheckoutEvent) error {
	return r.db.WithContext(ctx).Create(e).Error
}
