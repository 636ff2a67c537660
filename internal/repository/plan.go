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

type SubscriptionPlanRecord struct {
	ID        string `gorm:"primaryKey;size:36;not null"`
	PackageID int    `gorm:"uniqueIndex;not null"`
	ProductID string `gorm:"size:64;not null"`
	PlanID    string `gorm:"size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func planToRecord(p *model.SubscriptionPlan) *SubscriptionPlanRecord {
	return &SubscriptionPlanRecord{
		ID:        p.ID.String(),
		PackageID: p.PackageID,
		ProductID: p.Payment.ProductID,
		PlanID:    p.Payment.PlanID,
	}
}

func planFromRecord(rec *SubscriptionPlanRecord) (*model.SubscriptionPlan, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("parse plan id %q: %w", rec.ID, err)
	}
	return &model.SubscriptionPlan{
		ID:        id,
		PackageID: rec.PackageID,
		Payment: model.PlanPayment{
			ProductID: rec.ProductID,
			PlanID:    rec.PlanID,
		},
	}, nil
}

type planRepoImpl struct {
	db *gorm.DB
}

func NewPlanRepository(db *gorm.DB) PlanRepository {
	return &planRepoImpl{
		db: db,
	}
}

func (r *planRepoImpl) Save(ctx context.Context, plan *model.SubscriptionPlan) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(planToRecord(plan)).Error
}

func (r *planRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	var rec SubscriptionPlanRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id.String()).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlanNotFound
		}
		return nil, err
	}
	return planFromRecord(&rec)
}

func (r *planRepoImpl) FindByPackageID(ctx context.Context, packageID int) (*model.SubscriptionPlan, error) {
	var rec SubscriptionPlanRecord
	err := r.db.WithContext(ctx).
		Where("package_id = ?", packageID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPlanNotFound
		}
		return nil, err
	}
	return planFromRecord(&rec)
}
