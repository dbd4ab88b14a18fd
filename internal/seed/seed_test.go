package seed

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	catalogdomain "github.com/garethtyler2/monthlyclub-sub003/internal/catalog/domain"
	customerdomain "github.com/garethtyler2/monthlyclub-sub003/internal/customer/domain"
	subscriptiondomain "github.com/garethtyler2/monthlyclub-sub003/internal/subscription/domain"
)

func setupSeedTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&catalogdomain.Business{},
		&catalogdomain.Product{},
		&customerdomain.ProviderCustomer{},
		&subscriptiondomain.ScheduledPayment{},
	)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func TestEnsureDemoDataIsIdempotent(t *testing.T) {
	db := setupSeedTestDB(t)
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := EnsureDemoData(db, node); err != nil {
			t.Fatalf("seed run %d: %v", i+1, err)
		}
	}

	var businesses, products, mappings, schedules int64
	if err := db.Model(&catalogdomain.Business{}).Count(&businesses).Error; err != nil {
		t.Fatalf("count businesses: %v", err)
	}
	if err := db.Model(&catalogdomain.Product{}).Count(&products).Error; err != nil {
		t.Fatalf("count products: %v", err)
	}
	if err := db.Model(&customerdomain.ProviderCustomer{}).Count(&mappings).Error; err != nil {
		t.Fatalf("count mappings: %v", err)
	}
	if err := db.Model(&subscriptiondomain.ScheduledPayment{}).Count(&schedules).Error; err != nil {
		t.Fatalf("count schedules: %v", err)
	}

	if businesses != 1 || products != 1 || mappings != 1 || schedules != 2 {
		t.Fatalf("unexpected counts: businesses=%d products=%d mappings=%d schedules=%d",
			businesses, products, mappings, schedules)
	}

	var business catalogdomain.Business
	if err := db.First(&business).Error; err != nil {
		t.Fatalf("load business: %v", err)
	}
	if business.StripeAccountID == nil || *business.StripeAccountID == "" {
		t.Fatalf("demo business must carry a connected account id")
	}
}
