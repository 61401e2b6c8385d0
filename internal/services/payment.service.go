package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	gateway "github.com/storelab/commerce-gateway/internal/gateways"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/internal/notify"
	"github.com/storelab/commerce-gateway/internal/repository"
	"github.com/storelab/commerce-gateway/pkg/logger"
	"github.com/storelab/commerce-gateway/pkg/prom"
)

var (
	ErrTransactionNotFound = errors.New("transaction not found")

	// ErrSignatureInvalid means the webhook body does not match its
	// signature header and must not be trusted.
	ErrSignatureInvalid = errors.New("webhook signature invalid")

	// ErrReconciliationConflict wraps store-level refusals: a terminal status
	// flip or an amount that disagrees with the persisted transaction.
	ErrReconciliationConflict = errors.New("reconciliation conflict")
)

const webhookDedupTTL = 24 * time.Hour

type PaymentTransactionRepository interface {
	FindByReference(ctx context.Context, reference string) (*model.Transaction, error)
	UpsertFromVerification(ctx context.Context, p repository.UpsertParams) (*repository.UpsertResult, error)
	List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error)
}

type PaymentGateway interface {
	Initialize(ctx context.Context, req *gateway.InitializeRequest) (*gateway.InitializeResponse, error)
	Verify(ctx context.Context, reference string) (*gateway.VerifyData, error)
}

// Deduper marks webhook deliveries as seen. Satisfied by the Redis adapter.
type Deduper interface {
	SetNX(key string, value []byte, ttl time.Duration) (bool, error)
}

// Notifier receives post-persistence payment events. Satisfied by the
// notify.Broadcaster.
type Notifier interface {
	Emit(event notify.Event)
}

type PaymentService struct {
	repo          PaymentTransactionRepository
	gateway       PaymentGateway
	dedup         Deduper
	notifier      Notifier
	webhookSecret []byte
	currency      string
}

func NewPaymentService(repo PaymentTransactionRepository, gw PaymentGateway, dedup Deduper, notifier Notifier, webhookSecret, currency string) *PaymentService {
	return &PaymentService{
		repo:          repo,
		gateway:       gw,
		dedup:         dedup,
		notifier:      notifier,
		webhookSecret: []byte(webhookSecret),
		currency:      currency,
	}
}

// Initiate opens a checkout session at the gateway. Nothing is persisted
// here; the transaction record is born when the first verified signal for
// the reference arrives.
func (s *PaymentService) Initiate(ctx context.Context, p model.InitiateRequest) (*gateway.InitializeResponse, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	resp, err := s.gateway.Initialize(ctx, &gateway.InitializeRequest{
		Email:    p.Email,
		Amount:   model.MajorToMinor(p.Amount),
		Currency: s.currency,
	})
	if err != nil {
		return nil, err
	}

	prom.IncPaymentInitiated()
	logger.Info("Payment initiated", "reference", resp.Reference, "email", p.Email)

	return resp, nil
}

// VerifyResult is the outcome of a synchronous verification. Transaction is
// nil when the gateway reports a non-success state, which is returned to the
// caller without being persisted.
type VerifyResult struct {
	Status      model.TransactionStatus
	Transaction *model.Transaction
}

// Verify asks the gateway for the authoritative state of a reference and
// persists it when the payment has succeeded. Re-verifying an already
// persisted reference is a no-op thanks to the idempotent upsert.
func (s *PaymentService) Verify(ctx context.Context, reference string) (*VerifyResult, error) {
	start := time.Now()
	data, err := s.gateway.Verify(ctx, reference)
	prom.ObserveVerifyDuration(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	status, err := model.MapGatewayStatus(data.Status)
	if err != nil {
		return nil, err
	}

	if status != model.TransactionStatusSuccess {
		logger.Info("Verification returned non-success state", "reference", reference, "status", status)
		return &VerifyResult{Status: status}, nil
	}

	txn, err := s.persist(ctx, repository.UpsertParams{
		Reference: data.Reference,
		Email:     data.Customer.Email,
		Amount:    model.MinorToMajor(data.Amount),
		Status:    status,
	})
	if err != nil {
		return nil, err
	}

	return &VerifyResult{Status: status, Transaction: txn}, nil
}

// HandleWebhook reconciles an asynchronous gateway notification. The body is
// trusted only after its signature checks out. Events other than
// charge.success are acknowledged and ignored; duplicate deliveries are
// short-circuited by a Redis marker before touching the store.
func (s *PaymentService) HandleWebhook(ctx context.Context, signature string, body []byte) error {
	if !s.verifySignature(signature, body) {
		prom.IncWebhookEvent("unknown", "rejected")
		return ErrSignatureInvalid
	}

	var event model.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		prom.IncWebhookEvent("unknown", "rejected")
		return fmt.Errorf("%w: malformed webhook body: %v", model.ErrValidation, err)
	}

	if event.Event != model.EventChargeSuccess {
		prom.IncWebhookEvent(event.Event, "ignored")
		logger.Info("Webhook event ignored", "event", event.Event, "reference", event.Data.Reference)
		return nil
	}

	status, err := model.MapGatewayStatus(event.Data.Status)
	if err != nil {
		prom.IncWebhookEvent(event.Event, "rejected")
		return err
	}

	dedupKey := fmt.Sprintf("webhook:%s:%s", event.Data.Reference, status)
	fresh, err := s.dedup.SetNX(dedupKey, []byte("1"), webhookDedupTTL)
	if err != nil {
		// Redis being down must not drop the event; the upsert is
		// idempotent anyway.
		logger.Warn("Webhook dedup check failed, proceeding", "error", err, "reference", event.Data.Reference)
	} else if !fresh {
		prom.IncWebhookEvent(event.Event, "duplicate")
		logger.Info("Duplicate webhook delivery ignored", "reference", event.Data.Reference, "status", status)
		return nil
	}

	_, err = s.persist(ctx, repository.UpsertParams{
		Reference: event.Data.Reference,
		Email:     event.Data.Customer.Email,
		Amount:    model.MinorToMajor(event.Data.Amount),
		Status:    status,
	})
	if err != nil {
		prom.IncWebhookEvent(event.Event, "error")
		return err
	}

	prom.IncWebhookEvent(event.Event, "processed")
	return nil
}

// Get returns the persisted transaction for a reference.
func (s *PaymentService) Get(ctx context.Context, reference string) (*model.Transaction, error) {
	txn, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return txn, nil
}

// List returns persisted transactions matching the filter.
func (s *PaymentService) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	return s.repo.List(ctx, f)
}

func (s *PaymentService) persist(ctx context.Context, p repository.UpsertParams) (*model.Transaction, error) {
	res, err := s.repo.UpsertFromVerification(ctx, p)
	if err != nil {
		if errors.Is(err, repository.ErrAmountMismatch) || errors.Is(err, repository.ErrStatusConflict) {
			prom.IncReconciliationConflict()
			logger.Warn("Reconciliation conflict", "error", err, "reference", p.Reference)
			return nil, fmt.Errorf("%w: %v", ErrReconciliationConflict, err)
		}
		return nil, err
	}

	if res.Created || res.Updated {
		s.emit(res.Transaction)
	}

	return res.Transaction, nil
}

func (s *PaymentService) emit(txn *model.Transaction) {
	if s.notifier == nil {
		return
	}

	eventType := notify.EventPaymentConfirmed
	if txn.Status == model.TransactionStatusFailed {
		eventType = notify.EventPaymentFailed
	}

	s.notifier.Emit(notify.Event{
		Type:    eventType,
		Subject: txn.Reference,
		Data: map[string]string{
			"email":  txn.Email,
			"amount": txn.Amount.StringFixed(2),
			"status": string(txn.Status),
		},
	})
}

func (s *PaymentService) verifySignature(signature string, body []byte) bool {
	if len(s.webhookSecret) == 0 || signature == "" {
		return false
	}
	mac := hmac.New(sha512.New, s.webhookSecret)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
