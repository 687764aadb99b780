package shipping

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jordanvales/threadswap-backend/pkg/db/models"
)

// ShipmentRepository stores purchased labels keyed by the provider's
// shipment id.
type ShipmentRepository interface {
	Save(ctx context.Context, shipment *models.Shipment) error
	Find(ctx context.Context, shipmentID string) (*models.Shipment, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error)
}

type shipmentRepo struct {
	db *gorm.DB
}

func NewShipmentRepository(db *gorm.DB) (ShipmentRepository, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &shipmentRepo{db: db}, nil
}

// Save upserts by primary key, so re-purchasing the same shipment refreshes
// the stored row instead of duplicating it.
func (r *shipmentRepo) Save(ctx context.Context, shipment *models.Shipment) error {
	if shipment == nil || shipment.ShipmentID == "" {
		return fmt.Errorf("shipment with id is required")
	}
	if err := r.db.WithContext(ctx).Save(shipment).Error; err != nil {
		return fmt.Errorf("saving shipment: %w", err)
	}
	return nil
}

func (r *shipmentRepo) Find(ctx context.Context, shipmentID string) (*models.Shipment, error) {
	var shipment models.Shipment
	err := r.db.WithContext(ctx).
		Where("shipment_id = ?", shipmentID).
		First(&shipment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("finding shipment: %w", err)
	}
	return &shipment, nil
}

func (r *shipmentRepo) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.Shipment, error) {
	var shipments []models.Shipment
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&shipments).Error
	if err != nil {
		return nil, fmt.Errorf("listing shipments: %w", err)
	}
	return shipments, nil
}
