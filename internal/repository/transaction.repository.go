package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
	"github.com/storelab/commerce-gateway/pkg/pg"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrNotFound is returned when no transaction exists for a reference.
	ErrNotFound = errors.New("transaction not found")

	// ErrAmountMismatch is returned when an event reports a different amount
	// for an already persisted reference. Amounts are immutable; the caller
	// must treat this as a reconciliation conflict, never an overwrite.
	ErrAmountMismatch = errors.New("amount differs from persisted transaction")

	// ErrStatusConflict is returned when an event would move a transaction
	// from one terminal status to a different one.
	ErrStatusConflict = errors.New("conflicting terminal status for transaction")

	ErrConcurrentUpdate = errors.New("concurrent update detected")
)

type TransactionRepository struct {
	*pg.DB
}

func NewTransactionRepository(db *pg.DB) *TransactionRepository {
	return &TransactionRepository{
		db,
	}
}

func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*model.Transaction, error) {
	var entity TransactionEntity
	err := r.Read(ctx).WithContext(ctx).
		Where("reference = ?", reference).
		First(&entity).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return toTransactionModel(&entity), nil
}

// UpsertParams is the verified payment signal applied to the store, arriving
// from either the synchronous verify path or the webhook path.
type UpsertParams struct {
	Reference string
	Email     string
	Amount    decimal.Decimal
	Status    model.TransactionStatus
}

// UpsertResult reports what the upsert did, so callers can distinguish a
// fresh record from an idempotent replay.
type UpsertResult struct {
	Transaction *model.Transaction
	Created     bool
	Updated     bool
}

// UpsertFromVerification creates the transaction if the reference is unseen,
// otherwise applies the forward-only status transition rule. The insert uses
// ON CONFLICT DO NOTHING so two callers racing on the same reference cannot
// create duplicates; the loser of the insert race falls through to the update
// path. Updates are optimistic: the status predicate in the WHERE clause
// detects concurrent transitions and the attempt is retried.
func (r *TransactionRepository) UpsertFromVerification(ctx context.Context, p UpsertParams) (*UpsertResult, error) {
	entity := &TransactionEntity{
		Reference: p.Reference,
		Email:     p.Email,
		Amount:    p.Amount,
		Status:    string(p.Status),
	}

	res := r.Write(ctx).WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "reference"}},
			DoNothing: true,
		}).
		Create(entity)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return &UpsertResult{Transaction: toTransactionModel(entity), Created: true}, nil
	}

	// The reference already exists: apply the transition rule against the
	// current row. Bounded retries absorb racing transitions.
	const maxRetries = 3
	const baseDelay = 2 * time.Millisecond

	for attempt := 0; attempt <= maxRetries; attempt++ {
		result, err := r.applyTransition(ctx, p)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrConcurrentUpdate) {
			return nil, err
		}
		if attempt < maxRetries {
			delay := baseDelay * time.Duration(1<<attempt)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, fmt.Errorf("%w: reference=%s", ErrConcurrentUpdate, p.Reference)
}

func (r *TransactionRepository) applyTransition(ctx context.Context, p UpsertParams) (*UpsertResult, error) {
	var existing TransactionEntity
	err := r.Write(ctx).WithContext(ctx).
		Where("reference = ?", p.Reference).
		First(&existing).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Row vanished between insert and read; treat as transient.
			return nil, ErrConcurrentUpdate
		}
		return nil, err
	}

	if !existing.Amount.Equal(p.Amount) {
		return nil, fmt.Errorf("%w: reference=%s stored=%s reported=%s",
			ErrAmountMismatch, p.Reference, existing.Amount.String(), p.Amount.String())
	}

	current := model.TransactionStatus(existing.Status)
	if current == p.Status {
		return &UpsertResult{Transaction: toTransactionModel(&existing)}, nil
	}
	if current.IsTerminal() {
		if p.Status.IsTerminal() {
			return nil, fmt.Errorf("%w: reference=%s stored=%s reported=%s",
				ErrStatusConflict, p.Reference, current, p.Status)
		}
		// A late pending signal never rewinds a terminal status.
		return &UpsertResult{Transaction: toTransactionModel(&existing)}, nil
	}

	res := r.Write(ctx).WithContext(ctx).
		Model(&TransactionEntity{}).
		Where("reference = ? AND status = ?", p.Reference, existing.Status).
		Updates(map[string]interface{}{
			"status":     string(p.Status),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrConcurrentUpdate
	}

	existing.Status = string(p.Status)
	return &UpsertResult{Transaction: toTransactionModel(&existing), Updated: true}, nil
}

func (r *TransactionRepository) List(ctx context.Context, f model.TransactionFilter) ([]*model.Transaction, int64, error) {
	f.Normalize()

	q := r.Read(ctx).WithContext(ctx).Model(&TransactionEntity{})

	if f.Status != nil {
		q = q.Where("status = ?", string(*f.Status))
	}
	if f.Email != nil && *f.Email != "" {
		q = q.Where("email = ?", *f.Email)
	}

	// Count before pagination
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []*TransactionEntity
	if err := q.Order("id ASC").Limit(f.Limit).Offset(f.Offset()).Find(&entities).Error; err != nil {
		return nil, 0, err
	}

	return toTransactionModels(entities), total, nil
}
