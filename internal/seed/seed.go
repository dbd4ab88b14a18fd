package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	catalogdomain "github.com/garethtyler2/monthlyclub-sub003/internal/catalog/domain"
	customerdomain "github.com/garethtyler2/monthlyclub-sub003/internal/customer/domain"
	subscriptiondomain "github.com/garethtyler2/monthlyclub-sub003/internal/subscription/domain"
)

const (
	demoBusinessName    = "Demo Cleaning Co"
	demoStripeAccountID = "acct_demo"
	demoProductName     = "Weekly Clean"
	demoCustomerID      = "cus_demo"
)

// EnsureDemoData seeds one business with a connected account, a product
// priced in GBP, a customer mapping and two scheduled payments. Safe to
// run on every startup.
func EnsureDemoData(db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		business, err := ensureBusiness(ctx, tx, node)
		if err != nil {
			return err
		}
		product, err := ensureProduct(ctx, tx, node, business.ID)
		if err != nil {
			return err
		}
		userID, err := ensureCustomerMapping(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureSchedules(ctx, tx, node, product.ID, userID)
	})
}

func ensureBusiness(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (catalogdomain.Business, error) {
	var business catalogdomain.Business
	err := tx.WithContext(ctx).Where("name = ?", demoBusinessName).First(&business).Error
	if err == nil {
		return business, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return business, err
	}

	accountID := demoStripeAccountID
	business = catalogdomain.Business{
		ID:              node.Generate(),
		Name:            demoBusinessName,
		StripeAccountID: &accountID,
	}
	return business, tx.WithContext(ctx).Create(&business).Error
}

func ensureProduct(ctx context.Context, tx *gorm.DB, node *snowflake.Node, businessID snowflake.ID) (catalogdomain.Product, error) {
	var product catalogdomain.Product
	err := tx.WithContext(ctx).
		Where("business_id = ? AND name = ?", businessID, demoProductName).
		First(&product).Error
	if err == nil {
		return product, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return product, err
	}

	product = catalogdomain.Product{
		ID:         node.Generate(),
		BusinessID: businessID,
		Name:       demoProductName,
		Price:      decimal.RequireFromString("25.00"),
		Currency:   "gbp",
	}
	return product, tx.WithContext(ctx).Create(&product).Error
}

func ensureCustomerMapping(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (snowflake.ID, error) {
	var mapping customerdomain.ProviderCustomer
	err := tx.WithContext(ctx).Where("stripe_customer_id = ?", demoCustomerID).First(&mapping).Error
	if err == nil {
		return mapping.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	mapping = customerdomain.ProviderCustomer{
		ID:               node.Generate(),
		UserID:           node.Generate(),
		StripeCustomerID: demoCustomerID,
	}
	return mapping.UserID, tx.WithContext(ctx).Create(&mapping).Error
}

func ensureSchedules(ctx context.Context, tx *gorm.DB, node *snowflake.Node, productID, userID snowflake.ID) error {
	var count int64
	err := tx.WithContext(ctx).
		Model(&subscriptiondomain.ScheduledPayment{}).
		Where("product_id = ? AND user_id = ?", productID, userID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	for _, day := range []int{1, 15} {
		schedule := subscriptiondomain.ScheduledPayment{
			ID:             node.Generate(),
			SubscriptionID: node.Generate(),
			ProductID:      productID,
			UserID:         userID,
			ScheduledDay:   day,
			Status:         subscriptiondomain.ScheduledPaymentStatusActive,
		}
		if err := tx.WithContext(ctx).Create(&schedule).Error; err != nil {
			return err
		}
	}
	return nil
}
