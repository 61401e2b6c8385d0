package model

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64           `json:"id"          db:"id"          gorm:"primaryKey;autoIncrement;column:id"`
	Name        string          `json:"name"        db:"name"        gorm:"column:name;not null;index"`
	Description string          `json:"description" db:"description" gorm:"column:description"`
	Price       decimal.Decimal `json:"price"       db:"price"       gorm:"column:price;type:decimal(20,2);not null"`
	Image       string          `json:"image"       db:"image"       gorm:"column:image"`
	Stock       int             `json:"stock"       db:"stock"       gorm:"column:stock;not null;default:0"`
	CreatedAt   time.Time       `json:"created_at"  db:"created_at"  gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `json:"updated_at"  db:"updated_at"  gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

type ProductCreateRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image"`
	Stock       int             `json:"stock"`
}

func (p ProductCreateRequest) Validate() error {
	if p.Name == "" {
		return errors.New("name is required")
	}
	if p.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	if p.Stock < 0 {
		return errors.New("stock cannot be negative")
	}
	return nil
}

// ProductUpdateRequest carries partial updates; nil fields are untouched.
type ProductUpdateRequest struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Image       *string          `json:"image"`
	Stock       *int             `json:"stock"`
}

func (p ProductUpdateRequest) Validate() error {
	if p.Name != nil && *p.Name == "" {
		return errors.New("name cannot be empty")
	}
	if p.Price != nil && p.Price.IsNegative() {
		return errors.New("price cannot be negative")
	}
	if p.Stock != nil && *p.Stock < 0 {
		return errors.New("stock cannot be negative")
	}
	return nil
}

// ProductFilter controls catalog listing. Search matches the product name
// case-insensitively; price bounds are inclusive.
type ProductFilter struct {
	Search   *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	Page     int
	Limit    int
}

func (f *ProductFilter) Normalize() {
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

func (f ProductFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
