package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ErrValidation marks errors caused by the caller's input. Handlers map it to
// a 4xx; anything not wearing it is treated as an internal failure.
var ErrValidation = errors.New("validation failed")

// TransactionStatus is the lifecycle state of a payment transaction.
type TransactionStatus string

const (
	TransactionStatusPending TransactionStatus = "pending"
	TransactionStatusSuccess TransactionStatus = "success"
	TransactionStatusFailed  TransactionStatus = "failed"
)

// IsTerminal reports whether no further transition is expected for the status.
func (s TransactionStatus) IsTerminal() bool {
	return s == TransactionStatusSuccess || s == TransactionStatusFailed
}

// MapGatewayStatus maps a raw provider status string onto the closed
// TransactionStatus enum. Unknown raw statuses are rejected rather than
// persisted.
func MapGatewayStatus(raw string) (TransactionStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "success":
		return TransactionStatusSuccess, nil
	case "failed", "abandoned", "reversed":
		return TransactionStatusFailed, nil
	case "pending", "ongoing", "processing", "queued", "send_otp":
		return TransactionStatusPending, nil
	default:
		return "", fmt.Errorf("%w: unknown gateway status %q", ErrValidation, raw)
	}
}

// Transaction is one payment attempt, keyed by the provider-issued reference.
// Amount is in the store's base currency (major units); providers report minor
// units which are normalized before this struct is built.
type Transaction struct {
	ID        int64             `json:"id"         db:"id"         gorm:"primaryKey;autoIncrement;column:id"`
	Reference string            `json:"reference"  db:"reference"  gorm:"column:reference;not null;uniqueIndex"`
	Email     string            `json:"email"      db:"email"      gorm:"column:email;not null;index"`
	Amount    decimal.Decimal   `json:"amount"     db:"amount"     gorm:"column:amount;type:decimal(20,2);not null"`
	Status    TransactionStatus `json:"status"     db:"status"     gorm:"column:status;not null;index"`
	CreatedAt time.Time         `json:"created_at" db:"created_at" gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at" gorm:"column:updated_at;autoUpdateTime"`
}

func (Transaction) TableName() string { return "transactions" }

// MinorToMajor converts a gateway-reported minor-unit amount (e.g. kobo,
// cents) to major units. 500000 minor -> 5000.00 major.
func MinorToMajor(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(decimal.NewFromInt(100))
}

// MajorToMinor converts a major-unit amount to the provider's minor-unit
// convention. The gateway API only accepts whole minor units.
func MajorToMinor(major decimal.Decimal) int64 {
	return major.Mul(decimal.NewFromInt(100)).IntPart()
}

// InitiateRequest is the input for starting a payment at the gateway.
type InitiateRequest struct {
	Email  string          `json:"email"`
	Amount decimal.Decimal `json:"amount"`
}

func (p InitiateRequest) Validate() error {
	if p.Email == "" {
		return fmt.Errorf("%w: email is required", ErrValidation)
	}
	if !emailRe.MatchString(p.Email) {
		return fmt.Errorf("%w: email is malformed", ErrValidation)
	}
	if !p.Amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive", ErrValidation)
	}
	return nil
}

// TransactionFilter controls List queries. Filters are ANDed equality
// predicates; Page is 1-indexed.
type TransactionFilter struct {
	Status *TransactionStatus
	Email  *string
	Page   int
	Limit  int
}

// Normalize clamps pagination to sane bounds: page >= 1, 1 <= limit <= 100,
// default limit 10.
func (f *TransactionFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
}

func (f TransactionFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
