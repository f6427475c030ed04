package repository

import (
	"context"
	"errors"

	"github.com/shinyyama/marketplace-backend/internal/db"
	"github.com/shinyyama/marketplace-backend/internal/model"
	"gorm.io/gorm"
)

type ProductFilter struct {
	Category string
}

type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id uint64) (*model.Product, error)
	List(ctx context.Context, filter ProductFilter) ([]model.Product, error)
	ListImageRefs(ctx context.Context) ([]string, error)
}

type productRepository struct {
	pool *db.Pool
}

var ErrDBNotReady = errors.New("database not initialized")

func NewProductRepository(pool *db.Pool) ProductRepository {
	return &productRepository{pool: pool}
}

func (r *productRepository) Create(ctx context.Context, p *model.Product) error {
	if r.pool == nil {
		return ErrDBNotReady
	}
	return r.pool.Do(ctx, func(tx *gorm.DB) error {
		return tx.Create(p).Error
	})
}

func (r *productRepository) FindByID(ctx context.Context, id uint64) (*model.Product, error) {
	if r.pool == nil {
		return nil, ErrDBNotReady
	}
	var p model.Product
	err := r.pool.Do(ctx, func(tx *gorm.DB) error {
		return tx.First(&p, id).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns products in insertion order.
func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]model.Product, error) {
	if r.pool == nil {
		return nil, ErrDBNotReady
	}
	products := make([]model.Product, 0)
	err := r.pool.Do(ctx, func(tx *gorm.DB) error {
		q := tx.Model(&model.Product{})
		if filter.Category != "" {
			q = q.Where("category = ?", filter.Category)
		}
		return q.Order("id ASC").Find(&products).Error
	})
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (r *productRepository) ListImageRefs(ctx context.Context) ([]string, error) {
	if r.pool == nil {
		return nil, ErrDBNotReady
	}
	var refs []string
	err := r.pool.Do(ctx, func(tx *gorm.DB) error {
		return tx.Model(&model.Product{}).
			Where("image_url IS NOT NULL AND image_url <> ''").
			Distinct().
			Pluck("image_url", &refs).Error
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}
