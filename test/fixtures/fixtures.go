package fixtures

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/storelab/commerce-gateway/internal/model"
)

var (
	TestUserAda = model.User{
		ID:    1,
		Name:  "Ada",
		Email: "ada@example.com",
		Role:  model.RoleUser,
	}

	TestUserAdmin = model.User{
		ID:    2,
		Name:  "Root",
		Email: "admin@example.com",
		Role:  model.RoleAdmin,
	}
)

func NewTestTransaction(reference, email, amount string, status model.TransactionStatus) *model.Transaction {
	return &model.Transaction{
		Reference: reference,
		Email:     email,
		Amount:    decimal.RequireFromString(amount),
		Status:    status,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func NewTestProduct(name, price string, stock int) *model.Product {
	return &model.Product{
		Name:        name,
		Description: "Fixture product",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
	}
}

func InitiateRequestValid() model.InitiateRequest {
	return model.InitiateRequest{
		Email:  "buyer@example.com",
		Amount: decimal.RequireFromString("100.00"),
	}
}

func InitiateRequestBadEmail() model.InitiateRequest {
	return model.InitiateRequest{
		Email:  "not-an-email",
		Amount: decimal.RequireFromString("100.00"),
	}
}

func InitiateRequestZeroAmount() model.InitiateRequest {
	return model.InitiateRequest{
		Email:  "buyer@example.com",
		Amount: decimal.Zero,
	}
}

func TransactionFilterByStatus(status model.TransactionStatus) model.TransactionFilter {
	return model.TransactionFilter{
		Status: &status,
		Page:   1,
		Limit:  50,
	}
}

func TransactionFilterByEmail(email string) model.TransactionFilter {
	return model.TransactionFilter{
		Email: &email,
		Page:  1,
		Limit: 50,
	}
}

// UniqueReference builds a reference that will not collide across fixtures
// within a test run.
func UniqueReference(prefix string) string {
	return fmt.Sprintf("%s_%d", prefix, time.Now().UnixNano())
}

var (
	ValidEmails = []string{
		"a@example.com",
		"buyer+tag@example.co.uk",
		"x.y.z@test.io",
	}

	InvalidEmails = []string{
		"",
		"plain",
		"@nouser.com",
		"trailing@",
	}
)
