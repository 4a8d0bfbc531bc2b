package payments

import (
	"context"

	"gorm.io/gorm"

	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
)

// Repository handles payment persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Payment, error)
	List(ctx context.Context) ([]models.Payment, error)
	ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Payment, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Payment{}, id).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) List(ctx context.Context) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).Order("paid_at DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *repository) ListBySubscriber(ctx context.Context, subscriberID uint) ([]models.Payment, error) {
	var list []models.Payment
	if err := r.db.WithContext(ctx).
		Where("subscriber_id = ?", subscriberID).
		Order("paid_at DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}
