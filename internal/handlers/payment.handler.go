package handlers

import (
	"context"
	"errors"

	"github.com/fasthttp/router"
	gateway "github.com/storelab/commerce-gateway/internal/gateways"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/services"
	xhttp "github.com/storelab/commerce-gateway/pkg/http"
)

type PaymentService interface {
	Initiate(ctx context.Context, p model.InitiateRequest) (*gateway.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*services.VerifyResult, error)
	HandleWebhook(ctx context.Context, signature string, body []byte) error
	Get(ctx context.Context, reference string) (*model.Transaction, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type PaymentHandler struct {
	svc PaymentService
}

func RegisterPaymentRoutes(e *router.Group, h *PaymentHandler, mws ...xhttp.MiddlewareFunc) {
	e.POST("/payments/pay", wrap(h.InitiatePayment, mws...))
	e.GET("/payments/verify/{reference}", wrap(h.VerifyPayment, mws...))
	e.GET("/payments/transaction/{reference}", wrap(h.GetTransaction, mws...))
	e.GET("/payments/transactions", wrap(h.ListTransactions, mws...))
}

// RegisterWebhookRoutes is separate because the webhook endpoint is
// authenticated by signature, not by bearer token.
func RegisterWebhookRoutes(e *router.Group, h *PaymentHandler) {
	e.POST("/payments/webhook", h.Webhook)
}

func NewPaymentHandler(paymentService PaymentService) *PaymentHandler {
	return &PaymentHandler{
		svc: paymentService,
	}
}

type verifyResponse struct {
	Status      string             `json:"status"`
	Transaction *model.Transaction `json:"transaction,omitempty"`
}

type transactionListResponse struct {
	Items []*model.Transaction `json:"items"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

/* --------------------------------- Routes ----------------------------------- */

func (h *PaymentHandler) InitiatePayment(ctx *xhttp.RequestCtx) {
	var req model.InitiateRequest
	if err := readJSON(ctx, &req); err != nil {
		writeError(ctx, xhttp.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	resp, err := h.svc.Initiate(ctx, req)
	if err != nil {
		writePaymentError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "payment initiated", resp)
}

func (h *PaymentHandler) VerifyPayment(ctx *xhttp.RequestCtx) {
	reference := param(ctx, "reference")
	if reference == "" {
		writeError(ctx, xhttp.StatusBadRequest, "reference is required")
		return
	}

	result, err := h.svc.Verify(ctx, reference)
	if err != nil {
		writePaymentError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "verification complete", verifyResponse{
		Status:      string(result.Status),
		Transaction: result.Transaction,
	})
}

func (h *PaymentHandler) GetTransaction(ctx *xhttp.RequestCtx) {
	reference := param(ctx, "reference")
	if reference == "" {
		writeError(ctx, xhttp.StatusBadRequest, "reference is required")
		return
	}

	txn, err := h.svc.Get(ctx, reference)
	if err != nil {
		writePaymentError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "transaction found", txn)
}

func (h *PaymentHandler) ListTransactions(ctx *xhttp.RequestCtx) {
	var f model.TransactionFilter

	if v := query(ctx, "status"); v != "" {
		status := model.TransactionStatus(v)
		switch status {
		case model.TransactionStatusPending, model.TransactionStatusSuccess, model.TransactionStatusFailed:
			f.Status = &status
		default:
			writeError(ctx, xhttp.StatusBadRequest, "unknown status filter: "+v)
			return
		}
	}
	if v := query(ctx, "email"); v != "" {
		f.Email = &v
	}
	f.Page = queryInt(ctx, "page")
	f.Limit = queryInt(ctx, "limit")
	// Normalize here too so the envelope echoes the effective pagination.
	f.Normalize()

	items, total, err := h.svc.List(ctx, f)
	if err != nil {
		writePaymentError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "transactions", transactionListResponse{
		Items: items,
		Total: total,
		Page:  f.Page,
		Limit: f.Limit,
	})
}

func (h *PaymentHandler) Webhook(ctx *xhttp.RequestCtx) {
	signature := string(ctx.Request.Header.Peek("X-Paystack-Signature"))

	err := h.svc.HandleWebhook(ctx, signature, ctx.PostBody())
	if err != nil {
		if errors.Is(err, services.ErrSignatureInvalid) {
			writeError(ctx, xhttp.StatusUnauthorized, err.Error())
			return
		}
		writePaymentError(ctx, err)
		return
	}

	writeJSON(ctx, xhttp.StatusOK, "webhook processed", nil)
}

// writePaymentError maps service and gateway errors onto HTTP statuses.
func writePaymentError(ctx *xhttp.RequestCtx, err error) {
	switch {
	case errors.Is(err, services.ErrTransactionNotFound),
		errors.Is(err, gateway.ErrReferenceNotFound):
		writeError(ctx, xhttp.StatusNotFound, err.Error())
	case errors.Is(err, services.ErrReconciliationConflict):
		writeError(ctx, xhttp.StatusConflict, err.Error())
	case errors.Is(err, gateway.ErrGatewayUnavailable):
		writeError(ctx, xhttp.StatusBadGateway, err.Error())
	case errors.Is(err, gateway.ErrGatewayRejected):
		writeError(ctx, xhttp.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, model.ErrValidation):
		writeError(ctx, xhttp.StatusBadRequest, err.Error())
	default:
		// Anything unexplained is an internal failure. On the webhook path
		// a 5xx is what makes the provider redeliver the event.
		writeError(ctx, xhttp.StatusInternalServerError, err.Error())
	}
}
