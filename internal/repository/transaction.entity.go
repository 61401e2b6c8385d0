package repository

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
)

type TransactionEntity struct {
	ID        int64           `db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Reference string          `db:"reference"  gorm:"column:reference;not null;uniqueIndex"`
	Email     string          `db:"email"      gorm:"column:email;not null;index"`
	Amount    decimal.Decimal `db:"amount"     gorm:"column:amount;type:decimal(20,2);not null"`
	Status    string          `db:"status"     gorm:"column:status;not null;index"`
	CreatedAt time.Time       `db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (TransactionEntity) TableName() string {
	return "transactions"
}

func toTransactionEntity(m *model.Transaction) *TransactionEntity {
	if m == nil {
		return nil
	}
	return &TransactionEntity{
		ID:        m.ID,
		Reference: m.Reference,
		Email:     m.Email,
		Amount:    m.Amount,
		Status:    string(m.Status),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func toTransactionModel(e *TransactionEntity) *model.Transaction {
	if e == nil {
		return nil
	}
	return &model.Transaction{
		ID:        e.ID,
		Reference: e.Reference,
		Email:     e.Email,
		Amount:    e.Amount,
		Status:    model.TransactionStatus(e.Status),
		CreatedAt: e.CreatedAt,
		UpdatedAt: e.UpdatedAt,
	}
}

func toTransactionModels(entities []*TransactionEntity) []*model.Transaction {
	if entities == nil {
		return nil
	}
	models := make([]*model.Transaction, len(entities))
	for i, e := range entities {
		models[i] = toTransactionModel(e)
	}
	return models
}
