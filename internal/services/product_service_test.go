package services

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockProductRepo struct {
	mock.Mock
}

func (m *MockProductRepo) Create(ctx context.Context, product *model.Product) (*model.Product, error) {
	args := m.Called(ctx, product)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepo) FindByID(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepo) Update(ctx context.Context, id int64, fields map[string]interface{}) (*model.Product, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepo) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockProductRepo) List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error) {
	args := m.Called(ctx, f)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]*model.Product), args.Get(1).(int64), args.Error(2)
}

func TestProductService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("valid product", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := NewProductService(repo, nil)

		repo.On("Create", ctx, mock.MatchedBy(func(p *model.Product) bool {
			return p.Name == "Kettle" && p.Stock == 3
		})).Return(&model.Product{ID: 1, Name: "Kettle", Stock: 3}, nil)

		product, err := svc.Create(ctx, model.ProductCreateRequest{
			Name:  "Kettle",
			Price: decimal.RequireFromString("35.00"),
			Stock: 3,
		})
		require.NoError(t, err)
		assert.Equal(t, int64(1), product.ID)
	})

	t.Run("broadcasts product.created", func(t *testing.T) {
		repo := new(MockProductRepo)
		notifier := new(MockNotifier)
		svc := NewProductService(repo, notifier)

		repo.On("Create", ctx, mock.Anything).
			Return(&model.Product{ID: 4, Name: "Kettle", Price: decimal.RequireFromString("35.00")}, nil)
		notifier.On("Emit", mock.MatchedBy(func(e notify.Event) bool {
			return e.Type == notify.EventProductCreated && e.Subject == "4" &&
				e.Data["name"] == "Kettle" && e.Data["price"] == "35.00"
		})).Return()

		_, err := svc.Create(ctx, model.ProductCreateRequest{
			Name:  "Kettle",
			Price: decimal.RequireFromString("35.00"),
			Stock: 3,
		})
		require.NoError(t, err)
		notifier.AssertExpectations(t)
	})

	t.Run("negative price is rejected", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := NewProductService(repo, nil)

		_, err := svc.Create(ctx, model.ProductCreateRequest{
			Name:  "Kettle",
			Price: decimal.RequireFromString("-1"),
		})
		require.Error(t, err)
		repo.AssertNotCalled(t, "Create")
	})
}

func TestProductService_Update(t *testing.T) {
	ctx := context.Background()

	t.Run("only set fields are forwarded", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := NewProductService(repo, nil)

		stock := 9
		repo.On("Update", ctx, int64(1), mock.MatchedBy(func(fields map[string]interface{}) bool {
			_, hasName := fields["name"]
			return len(fields) == 1 && !hasName && fields["stock"] == 9
		})).Return(&model.Product{ID: 1, Stock: 9}, nil)

		product, err := svc.Update(ctx, 1, model.ProductUpdateRequest{Stock: &stock})
		require.NoError(t, err)
		assert.Equal(t, 9, product.Stock)
	})

	t.Run("unknown product", func(t *testing.T) {
		repo := new(MockProductRepo)
		svc := NewProductService(repo, nil)

		stock := 9
		repo.On("Update", ctx, int64(99), mock.Anything).Return(nil, repository.ErrProductNotFound)

		_, err := svc.Update(ctx, 99, model.ProductUpdateRequest{Stock: &stock})
		require.ErrorIs(t, err, ErrProductNotFound)
	})
}

func TestProductService_GetAndDelete(t *testing.T) {
	ctx := context.Background()

	repo := new(MockProductRepo)
	svc := NewProductService(repo, nil)

	repo.On("FindByID", ctx, int64(1)).Return(&model.Product{ID: 1}, nil)
	repo.On("FindByID", ctx, int64(2)).Return(nil, repository.ErrProductNotFound)
	repo.On("Delete", ctx, int64(1)).Return(nil)
	repo.On("Delete", ctx, int64(2)).Return(repository.ErrProductNotFound)

	product, err := svc.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), product.ID)

	_, err = svc.Get(ctx, 2)
	require.ErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, svc.Delete(ctx, 1))
	require.ErrorIs(t, svc.Delete(ctx, 2), ErrProductNotFound)
}

func TestProductService_DeleteBroadcasts(t *testing.T) {
	ctx := context.Background()

	repo := new(MockProductRepo)
	notifier := new(MockNotifier)
	svc := NewProductService(repo, notifier)

	repo.On("Delete", ctx, int64(3)).Return(nil)
	notifier.On("Emit", mock.MatchedBy(func(e notify.Event) bool {
		return e.Type == notify.EventProductDeleted && e.Subject == "3"
	})).Return()

	require.NoError(t, svc.Delete(ctx, 3))
	notifier.AssertExpectations(t)
}
