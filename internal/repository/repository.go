package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

// PackageResolver rehydrates the package referenced by a stored record.
// Backed by the catalogue loaded at startup.
type PackageResolver func(id int) (*model.Package, error)

type OrderRepository interface {
	Save(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Order, error)
	// FindByPaymentID returns the order history for a payment id (one entry
	// per billing cycle for subscriptions), newest first.
	FindByPaymentID(ctx context.Context, paymentID string) ([]*model.Order, error)
	// FindByTransactionID is the idempotency probe for webhook redelivery.
	FindByTransactionID(ctx context.Context, transactionID string) (*model.Order, error)
}

type SubscriptionRepository interface {
	Save(ctx context.Context, sub *model.Subscription) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	FindByPaymentID(ctx context.Context, paymentID string) (*model.Subscription, error)
}

type PlanRepository interface {
	Save(ctx context.Context, plan *model.SubscriptionPlan) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SubscriptionPlan, error)
	FindByPackageID(ctx context.Context, packageID int) (*model.SubscriptionPlan, error)
}

type WebhookEventRepository interface {
	Exists(ctx context.Context, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, eventID, eventType string) error
}
