package services

import (
	"context"
	"errors"
	"strconv"

	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
)

var ErrProductNotFound = errors.New("product not found")

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) (*model.Product, error)
	FindByID(ctx context.Context, id int64) (*model.Product, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error)
}

type ProductService struct {
	repo     ProductRepository
	notifier Notifier
}

func NewProductService(repo ProductRepository, notifier Notifier) *ProductService {
	return &ProductService{
		repo:     repo,
		notifier: notifier,
	}
}

func (s *ProductService) Create(ctx context.Context, p model.ProductCreateRequest) (*model.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	product, err := s.repo.Create(ctx, &model.Product{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Image:       p.Image,
		Stock:       p.Stock,
	})
	if err != nil {
		return nil, err
	}

	s.emit(notify.EventProductCreated, product)

	return product, nil
}

func (s *ProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return product, nil
}

func (s *ProductService) Update(ctx context.Context, id int64, p model.ProductUpdateRequest) (*model.Product, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	if p.Name != nil {
		fields["name"] = *p.Name
	}
	if p.Description != nil {
		fields["description"] = *p.Description
	}
	if p.Price != nil {
		fields["price"] = *p.Price
	}
	if p.Image != nil {
		fields["image"] = *p.Image
	}
	if p.Stock != nil {
		fields["stock"] = *p.Stock
	}

	product, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	s.emit(notify.EventProductUpdated, product)

	return product, nil
}

func (s *ProductService) Delete(ctx context.Context, id int64) error {
	err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return err
	}

	if s.notifier != nil {
		s.notifier.Emit(notify.Event{
			Type:    notify.EventProductDeleted,
			Subject: strconv.FormatInt(id, 10),
		})
	}

	return nil
}

func (s *ProductService) List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	return s.repo.List(ctx, f)
}

// emit publishes a catalog change after the write has committed.
func (s *ProductService) emit(eventType string, product *model.Product) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(notify.Event{
		Type:    eventType,
		Subject: strconv.FormatInt(product.ID, 10),
		Data: map[string]string{
			"name":  product.Name,
			"price": product.Price.StringFixed(2),
		},
	})
}
