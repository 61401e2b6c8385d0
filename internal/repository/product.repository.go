package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/pkg/pg"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when no product matches the lookup.
var ErrProductNotFound = errors.New("product not found")

type ProductRepository struct {
	*pg.DB
}

func NewProductRepository(db *pg.DB) *ProductRepository {
	return &ProductRepository{
		db,
	}
}

func (r *ProductRepository) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	entity := toProductEntity(product)
	if err := r.Write(ctx).WithContext(ctx).Create(entity).Error; err != nil {
		return nil, err
	}
	return toProductModel(entity), nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	var entity ProductEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("id = ?", id).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return toProductModel(&entity), nil
}

func (r *ProductRepository) Update(ctx context.Context, id int64, fields map[string]interface{}) (*model.Product, error) {
	if len(fields) == 0 {
		return r.FindByID(ctx, id)
	}
	fields["updated_at"] = time.Now()

	res := r.Write(ctx).WithContext(ctx).
		Model(&ProductEntity{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrProductNotFound
	}

	var entity ProductEntity
	if err := r.Write(ctx).WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		return nil, err
	}
	return toProductModel(&entity), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id int64) error {
	res := r.Write(ctx).WithContext(ctx).
		Where("id = ?", id).
		Delete(&ProductEntity{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *ProductRepository) List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	f.Normalize()

	q := r.Read(ctx).WithContext(ctx).Model(&ProductEntity{})

	if f.Search != nil && *f.Search != "" {
		q = q.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(*f.Search)+"%")
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*ProductEntity
	if err := q.Order("id ASC").Limit(f.Limit).Offset(f.Offset()).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toProductModels(entities), total, nil
}
