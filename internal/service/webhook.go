package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gabegon8910/server-donation-tool/internal/payment"
	"github.com/gabegon8910/server-donation-tool/internal/repository"
)

// Webhooks turns provider event deliveries into domain operations. Event ids
// are recorded after successful processing; providers redeliver until
// acknowledged, so everything downstream must stay idempotent anyway.
type Webhooks struct {
	gateway       payment.Gateway
	processed     repository.WebhookEventRepository
	donations     *Donations
	subscriptions *Subscriptions
	log           *slog.Logger
}

func NewWebhooks(
	gateway payment.Gateway,
	processed repository.WebhookEventRepository,
	donations *Donations,
	subscriptions *Subscriptions,
	log *slog.Logger,
) *Webhooks {
	return &Webhooks{
		gateway:       gateway,
		processed:     processed,
		donations:     donations,
		subscriptions: subscriptions,
		log:           log,
	}
}

func (w *Webhooks) Handle(ctx context.Context, eventID string) error {
	seen, err := w.processed.Exists(ctx, eventID)
	if err != nil {
		return fmt.Errorf("check processed events: %w", err)
	}
	if seen {
		w.log.Debug("webhook event already processed", slog.String("eventId", eventID))
		return nil
	}

	event, err := w.gateway.WebhookEvent(ctx, eventID)
	if err != nil {
		return err
	}

	var eventType string
	switch ev := event.(type) {
	case nil:
		// Not an event the donation core consumes.
		return nil
	case payment.SaleCompleted:
		eventType = "SaleCompleted"
		if ev.Recurring {
			_, err = w.subscriptions.RedeemSubscriptionPayment(ctx, ev.PaymentID, ev.TransactionID)
		} else {
			_, err = w.donations.RedeemSale(ctx, ev.PaymentID, ev.TransactionID)
		}
	case payment.SubscriptionCancelled:
		eventType = "SubscriptionCancelled"
		err = w.subscriptions.HandleProviderCancellation(ctx, ev.PaymentID)
	default:
		return fmt.Errorf("unhandled webhook event %T", event)
	}
	if err != nil {
		return err
	}

	return w.processed.MarkProcessed(ctx, eventID, eventType)
}
