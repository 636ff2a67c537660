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

// OrderRecord is the stored shape of a model.Order. The referenced package
// is stored by id only and rehydrated through the catalogue on read.
type OrderRecord struct {
	ID            string `gorm:"primaryKey;size:36;not null"`
	Created       time.Time
	SteamID       string `gorm:"size:32;index"`
	DiscordID     string `gorm:"size:32;index;not null"`
	PackageID     int    `gorm:"not null"`
	CustomMessage string `gorm:"size:256"`
	RedeemedAt    *time.Time
	Status        string `gorm:"size:16;index;not null"`
	PaymentID     string `gorm:"size:64;index"`
	// Unique so two webhook deliveries for the same capture can never both
	// insert an order; empty ids are stored as NULL to stay out of the index.
	TransactionID *string `gorm:"size:64;uniqueIndex"`
	Provider      string  `gorm:"size:32"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func orderToRecord(o *model.Order) *OrderRecord {
	rec := &OrderRecord{
		ID:            o.ID.String(),
		Created:       o.Created,
		SteamID:       o.Reference.SteamID,
		DiscordID:     o.Reference.DiscordID,
		PackageID:     o.Reference.Package.ID,
		CustomMessage: o.CustomMessage,
		RedeemedAt:    o.RedeemedAt,
		Status:        string(o.Status),
	}
	if o.Payment != nil {
		rec.PaymentID = o.Payment.ID
		rec.Provider = o.Payment.Provider
		if o.Payment.TransactionID != "" {
			tx := o.Payment.TransactionID
			rec.TransactionID = &tx
		}
	}
	return rec
}

// orderFromRecord reconstructs the entity; no stored blob is trusted to be
// an entity on its own.
func orderFromRecord(rec *OrderRecord, resolve PackageResolver) (*model.Order, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("parse order id %q: %w", rec.ID, err)
	}
	pkg, err := resolve(rec.PackageID)
	if err != nil {
		if !errors.Is(err, model.ErrPackageNotFound) {
			return nil, err
		}
		// Keep history readable after a package is retired from the
		// catalogue.
		pkg = model.TombstonePackage(rec.PackageID)
	}
	order := &model.Order{
		ID:            id,
		Created:       rec.Created,
		Reference:     model.NewReference(rec.SteamID, rec.DiscordID, pkg),
		CustomMessage: rec.CustomMessage,
		RedeemedAt:    rec.RedeemedAt,
		Status:        model.OrderStatus(rec.Status),
	}
	if rec.PaymentID != "" {
		payment := &model.OrderPayment{
			ID:       rec.PaymentID,
			Provider: rec.Provider,
		}
		if rec.TransactionID != nil {
			payment.TransactionID = *rec.TransactionID
		}
		order.Payment = payment
	}
	return order, nil
}

type orderRepoImpl struct {
	db      *gorm.DB
	resolve PackageResolver
}

func NewOrderRepository(db *gorm.DB, resolve PackageResolver) OrderRepository {
	return &orderRepoImpl{
		db:      db,
		resolve: resolve,
	}
}

func (r *orderRepoImpl) Save(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(orderToRecord(order)).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error) {
	var rec OrderRecord
	err := r.db.WithContext(ctx).
		Where("id = ?", id.String()).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrOrderNotFound
		}
		return nil, err
	}
	return orderFromRecord(&rec, r.resolve)
}

func (r *orderRepoImpl) FindByPaymentID(ctx context.Context, paymentID string) ([]*model.Order, error) {
	var recs []*OrderRecord
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("created DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}

	orders := make([]*model.Order, len(recs))
	for i, rec := range recs {
		if orders[i], err = orderFromRecord(rec, r.resolve); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepoImpl) FindByTransactionID(ctx context.Context, transactionID string) (*model.Order, error) {
	var rec OrderRecord
	err := r.db.WithContext(ctx).
		Where("transaction_id = ?", transactionID).
		First(&rec).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrOrderNotFound
		}
		return nil, err
	}
	return orderFromRecord(&rec, r.resolve)
}
