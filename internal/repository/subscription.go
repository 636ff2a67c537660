package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

type SubscriptionRecord struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	PlanID    string `gorm:"size:36;index;not null"`
	PaymentID string `gorm:"size:64;uniqueIndex;not null"`
	SteamID   string `gorm:"size:32"`
	DiscordID string `gorm:"size:32;index;not null"`
	State     string `gorm:"size:16;index;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func subscriptionToRecord(s *model.Subscription) *SubscriptionRecord {
	return &SubscriptionRecord{
		ID:        s.ID.String(),
		PlanID:    s.PlanID.String(),
		PaymentID: s.Payment.ID,
		SteamID:   s.User.SteamID,
		DiscordID: s.User.DiscordID,
		State:     string(s.State),
	}
}

func subscriptionFromRecord(rec *SubscriptionRecord) (*model.Subscription, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription id %q: %w", rec.ID, err)
	}
	planID, err := uuid.Parse(rec.PlanID)
	if err != nil {
		return nil, fmt.Errorf("parse plan id %q: %w", rec.PlanID, err)
	}
	return &model.Subscription{
		ID:      id,
		PlanID:  planID,
		Payment: model.SubscriptionPayment{ID: rec.PaymentID},
		User: model.User{
			SteamID:   rec.SteamID,
			DiscordID: rec.DiscordID,
		},
		State: model.SubscriptionState(rec.State),
	}, nil
}

type subscriptionRepoImpl struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepoImpl{
		db: db,
	}
}

func (r *subscriptionRepoImpl) Save(ctx context.Context, sub *model.Subscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(subscriptionToRecord(sub)).Error
}

func (r *subscriptionRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	var rec SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id.String()).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscriptionFromRecord(&rec)
}

func (r *subscriptionRepoImpl) FindByPaymentID(ctx context.Context, paymentID string) (*model.Subscription, error) {
	var rec SubscriptionRecord
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return subscriptionFromRecord(&rec)
}
