package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	paymentdomain "github.com/garethtyler2/monthlyclub-sub003/internal/payment/domain"
)

type gormRepository struct{}

// Provide builds the gorm-backed payment repository.
func Provide() paymentdomain.Repository {
	return &gormRepository{}
}

func (r *gormRepository) InsertPayment(ctx context.Context, db *gorm.DB, payment *paymentdomain.Payment) error {
	if payment == nil {
		return errors.New("missing_payment")
	}
	return db.WithContext(ctx).Create(payment).Error
}

func (r *gormRepository) SettlePayment(ctx context.Context, db *gorm.DB, providerPaymentID string, status paymentdomain.PaymentStatus, now time.Time) (bool, error) {
	result := db.WithContext(ctx).Exec(
		`UPDATE payments
		 SET status = ?, updated_at = ?
		 WHERE provider_payment_id = ? AND status = ?`,
		status,
		now,
		providerPaymentID,
		paymentdomain.PaymentStatusPending,
	)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) InsertEvent(ctx context.Context, db *gorm.DB, event *paymentdomain.PaymentEvent) (bool, error) {
	if event == nil {
		return false, errors.New("missing_event")
	}
	result := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider"}, {Name: "provider_event_id"}},
		DoNothing: true,
	}).Create(event)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gormRepository) FindEvent(ctx context.Context, db *gorm.DB, provider string, providerEventID string) (*paymentdomain.PaymentEvent, error) {
	var event paymentdomain.PaymentEvent
	err := db.WithContext(ctx).
		Where("provider = ? AND provider_event_id = ?", provider, providerEventID).
		First(&event).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *gormRepository) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, processedAt time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE payment_events
		 SET processed_at = ?
		 WHERE id = ? AND processed_at IS NULL`,
		processedAt,
		id,
	).Error
}
