package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Business is the payee for recurring plans. A business without a linked
// Stripe account is a valid state; its plans are skipped at billing time.
type Business struct {
	ID              snowflake.ID `gorm:"primaryKey"`
	Name            string       `gorm:"type:text;not null"`
	StripeAccountID *string      `gorm:"type:text"`
	CreatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Business) TableName() string { return "businesses" }

// Product is the purchasable recurring plan. Price is held in major
// currency units and converted to minor units at charge time.
type Product struct {
	ID         snowflake.ID    `gorm:"primaryKey"`
	BusinessID snowflake.ID    `gorm:"not null;index"`
	Name       string          `gorm:"type:text;not null"`
	Price      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	Currency   string          `gorm:"type:text;not null;default:'gbp'"`
	CreatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt  time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (Product) TableName() string { return "products" }
