package subscribers

import (
	"context"

	"gorm.io/gorm"

	"github.com/cuzonet/cuzonet-backend/pkg/db/models"
	"github.com/cuzonet/cuzonet-backend/pkg/enums"
)

// Repository handles subscriber persistence.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, subscriber *models.Subscriber) error
	Update(ctx context.Context, subscriber *models.Subscriber) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*models.Subscriber, error)
	FindByAddress(ctx context.Context, address string) (*models.Subscriber, error)
	List(ctx context.Context, query ListQuery) ([]models.Subscriber, error)
}

// ListQuery configures subscriber list queries.
type ListQuery struct {
	State  *enums.SubscriberState
	Search string
	Limit  int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a subscriber repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, subscriber *models.Subscriber) error {
	return r.db.WithContext(ctx).Create(subscriber).Error
}

func (r *repository) Update(ctx context.Context, subscriber *models.Subscriber) error {
	return r.db.WithContext(ctx).Save(subscriber).Error
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.Subscriber{}, id).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).First(&subscriber, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *repository) FindByAddress(ctx context.Context, address string) (*models.Subscriber, error) {
	var subscriber models.Subscriber
	if err := r.db.WithContext(ctx).
		Where("ip_address = ?", address).
		First(&subscriber).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &subscriber, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Subscriber, error) {
	q := r.db.WithContext(ctx).Model(&models.Subscriber{})
	if query.State != nil {
		q = q.Where("state = ?", *query.State)
	}
	if query.Search != "" {
		like := "%" + query.Search + "%"
		q = q.Where("name LIKE ? OR ip_address LIKE ?", like, like)
	}

	if query.Limit > 0 {
		q = q.Limit(query.Limit)
	}

	var subs []models.Subscriber
	if err := q.Order("created_at DESC").Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
