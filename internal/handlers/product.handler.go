package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/services"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
)

type ProductService interface {
	Create(ctx context.Context, p model.ProductCreateRequest) (*model.Product, error)
	Get(ctx context.Context, id int64) (*model.Product, error)
	Update(ctx context.Context, id int64, p model.ProductUpdateRequest) (*model.Product, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f model.ProductFilter) ([]*model.Product, int64, error)
}

type ProductHandler struct {
	svc ProductService
}

// RegisterProductReadRoutes registers the public catalog endpoints.
func RegisterProductReadRoutes(e *router.Group, h *ProductHandler, mws ...xhttp.MiddlewareFunc) {
	e.GET("/products", wrap(h.ListProducts, mws...))
	e.GET("/products/search", wrap(h.SearchProducts, mws...))
	e.GET("/products/{id}", wrap(h.GetProduct, mws...))
}

// RegisterProductAdminRoutes registers the mutating endpoints; the caller
// wraps them in the admin middleware.
func RegisterProductAdminRoutes(e *router.Group, h *ProductHandler, mws ...xhttp.MiddlewareFunc) {
	e.POST("/products", wrap(h.CreateProduct, mws...))
	e.PUT("/products/{id}", wrap(h.UpdateProduct, mws...))
	e.DELETE("/products/{id}", wrap(h.DeleteProduct, mws...))
}

func NewProductHandler(productService ProductService) *ProductHandler {
	return &ProductHandler{
		svc: productService,
	}
}

type productListResponse struct {
	Items []*model.Product `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *ProductHandler) CreateProduct(ctx *xhttp.RequestCtx) {
	var req model.ProductCreateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	product, err := h.svc.Create(ctx, req)
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusCreated, "product created", product)
}

func (h *ProductHandler) GetProduct(ctx *xhttp.RequestCtx) {
	id, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.svc.Get(ctx, id)
	if err != nil {
		writeProductError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "product", product)
}

func (h *ProductHandler) UpdateProduct(ctx *xhttp.RequestCtx) {
	id, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid product id")
		return
	}

	var req model.ProductUpdateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	product, err := h.svc.Update(ctx, id, req)
	if err != nil {
		writeProductError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "product updated", product)
}

func (h *ProductHandler) DeleteProduct(ctx *xhttp.RequestCtx) {
	id, err := paramInt64(ctx, "id")
	if err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid product id")
		return
	}

	if err := h.svc.Delete(ctx, id); err != nil {
		writeProductError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "product deleted", nil)
}

func (h *ProductHandler) ListProducts(ctx *xhttp.RequestCtx) {
	var f model.ProductFilter

	if v := query(ctx, "search"); v != "" {
		f.Search = &v
	}
	if v := query(ctx, "min_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MinPrice = &d
		} else {
			writeError(ctx, xhttp.StatusBadRequest, "invalid min_price")
			return
		}
	}
	if v := query(ctx, "max_price"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			f.MaxPrice = &d
		} else {
			writeError(ctx, xhttp.StatusBadRequest, "invalid max_price")
			return
		}
	}
	f.Page = queryInt(ctx, "page")
	f.Limit = queryInt(ctx, "limit")
	f.Normalize()

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "products", productListResponse{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	})
}

// SearchProducts is a convenience alias for name search; richer filtering
// lives on ListProducts.
func (h *ProductHandler) SearchProducts(ctx *xhttp.RequestCtx) {
	q := query(ctx, "q")
	if q == "" {
		writeError(ctx, xhttp.StatusBadRequest, "q is required")
		return
	}

	f := model.ProductFilter{Search: &q}
	f.Page = queryInt(ctx, "page")
	f.Limit = queryInt(ctx, "limit")
	f.Normalize()

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "products", productListResponse{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	})
}

func writeProductError(ctx *xhttp.RequestCtx, err error) {
	if errors.Is(err, services.ErrProductNotFound) {
		writeError(ctx, xhttp.StatusNotFound, err.Error())
		return
	}
	writeError(ctx, xhttp.StatusBadRequest, err.Error())
}
