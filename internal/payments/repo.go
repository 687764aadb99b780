package payments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
)

// CustomerRepository persists user-to-processor customer mappings.
type CustomerRepository interface {
	Find(ctx context.Context, userID uuid.UUID) (*models.StripeCustomer, error)
	Create(ctx context.Context, record *models.StripeCustomer) error
	Delete(ctx context.Context, userID uuid.UUID) error
}

type customerRepo struct {
	db *gorm.DB
}

// NewCustomerRepository builds the GORM-backed customer mapping repository.
func NewCustomerRepository(db *gorm.DB) (CustomerRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &customerRepo{db: db}, nil
}

// Find returns the mapping for the user, or nil when none exists.
func (r *customerRepo) Find(ctx context.Context, userID uuid.UUID) (*models.StripeCustomer, error) {
	var record models.StripeCustomer
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding stripe customer: %w", err)
	}
	return &record, nil
}

func (r *customerRepo) Create(ctx context.Context, record *models.StripeCustomer) error {
	if record == nil {
		return fmt.Errorf("record is required")
	}
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("creating stripe customer: %w", err)
	}
	return nil
}

func (r *customerRepo) Delete(ctx context.Context, userID uuid.UUID) error {
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&models.StripeCustomer{}).Error
	if err != nil {
		return fmt.Errorf("deleting stripe customer: %w", err)
	}
	return nil
}
