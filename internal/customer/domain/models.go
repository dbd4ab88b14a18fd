package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ProviderCustomer maps an internal user to their Stripe customer record.
// Absence of a mapping means the user has never stored a payment method.
type ProviderCustomer struct {
	ID               snowflake.ID `gorm:"primaryKey"`
	UserID           snowflake.ID `gorm:"not null;uniqueIndex:ux_provider_customers_user"`
	StripeCustomerID string       `gorm:"type:text;not null"`
	CreatedAt        time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

// TableName sets the database table name.
func (ProviderCustomer) TableName() string { return "provider_customers" }
