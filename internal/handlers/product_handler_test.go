package handlers

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/services"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductService struct {
	mock.Mock
}

func (m *MockProductService) Create(ctx context.Context, p model.ProductCreateRequest) (*model.Product, error) {
	args := m.Called(ctx, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Get(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Update(ctx context.Context, id int64, p model.ProductUpdateRequest) (*model.Product, error) {
	args := m.Called(ctx, id, p)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductService) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductService) List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Product), args.Get(1).(int64), args.Error(2)
}

func TestProductHandler_CreateProduct(t *testing.T) {
	t.Run("created", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("Create", mock.Anything, mock.MatchedBy(func(p model.ProductCreateRequest) bool {
			return p.Name == "Kettle" && p.Price.Equal(decimal.RequireFromString("35.00"))
		})).Return(&model.Product{ID: 1, Name: "Kettle"}, nil)

		ctx := setupTestContext("POST", "/api/v1/products", []byte(`{"name":"Kettle","price":"35.00","stock":3}`))
		handler.CreateProduct(ctx)

		assert.Equal(t, xhttp.StatusCreated, ctx.Response.StatusCode())
	})

	t.Run("validation failure maps to 400", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("Create", mock.Anything, mock.Anything).Return(nil, assert.AnError)

		ctx := setupTestContext("POST", "/api/v1/products", []byte(`{"name":""}`))
		handler.CreateProduct(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestProductHandler_GetProduct(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("Get", mock.Anything, int64(1)).Return(&model.Product{ID: 1, Name: "Kettle"}, nil)

		ctx := setupTestContext("GET", "/api/v1/products/1", nil)
		ctx.SetUserValue("id", "1")
		handler.GetProduct(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
	})

	t.Run("missing maps to 404", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("Get", mock.Anything, int64(9)).Return(nil, services.ErrProductNotFound)

		ctx := setupTestContext("GET", "/api/v1/products/9", nil)
		ctx.SetUserValue("id", "9")
		handler.GetProduct(ctx)

		assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
	})

	t.Run("non-numeric id", func(t *testing.T) {
		handler := NewProductHandler(new(MockProductService))

		ctx := setupTestContext("GET", "/api/v1/products/abc", nil)
		ctx.SetUserValue("id", "abc")
		handler.GetProduct(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestProductHandler_ListProducts(t *testing.T) {
	t.Run("search and price filters", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.ProductFilter) bool {
			return f.Search != nil && *f.Search == "kettle" &&
				f.MinPrice != nil && f.MinPrice.Equal(decimal.RequireFromString("10")) &&
				f.MaxPrice != nil && f.MaxPrice.Equal(decimal.RequireFromString("50"))
		})).Return([]*model.Product{}, int64(0), nil)

		ctx := setupTestContext("GET", "/api/v1/products?search=kettle&min_price=10&max_price=50", nil)
		handler.ListProducts(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		svc.AssertExpectations(t)
	})

	t.Run("envelope echoes normalized pagination", func(t *testing.T) {
		svc := new(MockProductService)
		handler := NewProductHandler(svc)

		svc.On("List", mock.Anything, mock.MatchedBy(func(f model.ProductFilter) bool {
			return f.Page == 2 && f.Limit == 5
		})).Return([]*model.Product{}, int64(12), nil)

		ctx := setupTestContext("GET", "/api/v1/products?page=2&limit=5", nil)
		handler.ListProducts(ctx)

		assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())
		env := decodeEnvelope(t, ctx)
		var data struct {
			Total int64 `json:"total"`
			Page  int   `json:"page"`
			Limit int   `json:"limit"`
		}
		require.NoError(t, json.Unmarshal(env["data"], &data))
		assert.Equal(t, int64(12), data.Total)
		assert.Equal(t, 2, data.Page)
		assert.Equal(t, 5, data.Limit)
	})

	t.Run("bad price filter", func(t *testing.T) {
		handler := NewProductHandler(new(MockProductService))

		ctx := setupTestContext("GET", "/api/v1/products?min_price=abc", nil)
		handler.ListProducts(ctx)

		assert.Equal(t, xhttp.StatusBadRequest, ctx.Response.StatusCode())
	})
}

func TestProductHandler_DeleteProduct(t *testing.T) {
	svc := new(MockProductService)
	handler := NewProductHandler(svc)

	svc.On("Delete", mock.Anything, int64(1)).Return(nil)
	svc.On("Delete", mock.Anything, int64(9)).Return(services.ErrProductNotFound)

	ctx := setupTestContext("DELETE", "/api/v1/products/1", nil)
	ctx.SetUserValue("id", "1")
	handler.DeleteProduct(ctx)
	assert.Equal(t, xhttp.StatusOK, ctx.Response.StatusCode())

	ctx = setupTestContext("DELETE", "/api/v1/products/9", nil)
	ctx.SetUserValue("id", "9")
	handler.DeleteProduct(ctx)
	assert.Equal(t, xhttp.StatusNotFound, ctx.Response.StatusCode())
}
