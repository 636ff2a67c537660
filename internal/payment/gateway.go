// Package payment defines the provider-agnostic gateway contract the
// donation core talks to. Concrete adapters live in the subpackages
// (paypal, braintree, memory); the core never sees provider wire formats.
package payment

import (
	"context"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

// CreatedPaymentOrder is the provider's answer to a checkout request: the
// provider-side payment id and the link the user follows to approve it.
type CreatedPaymentOrder struct {
	ID          string
	ApprovalURL string
	Provider    string
}

// CapturedPayment reports a completed capture.
type CapturedPayment struct {
	OrderID       string
	TransactionID string
}

// CreatedSubscription is the provider's answer to a billing-agreement
// request.
type CreatedSubscription struct {
	ID          string
	ApprovalURL string
}

// WebhookEvent is the normalized event union recovered from a provider
// callback. Exactly one variant is returned per provider event id; nil
// means the event is of no interest to the donation core.
type WebhookEvent interface {
	isWebhookEvent()
}

// SaleCompleted signals a confirmed payment, either a one-off capture or
// one subscription billing cycle.
type SaleCompleted struct {
	// PaymentID correlates to an order payment id or a subscription
	// billing agreement id depending on Recurring.
	PaymentID     string
	TransactionID string
	Recurring     bool
	// Reference carries back the correlation token we attached at
	// checkout, when the provider echoes it.
	Reference string
}

// SubscriptionCancelled signals a provider-side cancellation (user cancelled
// from their provider account, or payment failures exhausted retries).
type SubscriptionCancelled struct {
	PaymentID string
}

func (SaleCompleted) isWebhookEvent()         {}
func (SubscriptionCancelled) isWebhookEvent() {}

// Gateway is the capability set the donation core consumes from an external
// payment provider.
type Gateway interface {
	// CreatePaymentOrder starts a one-off checkout for a package.
	CreatePaymentOrder(ctx context.Context, pkg *model.Package, ref model.Reference) (*CreatedPaymentOrder, error)

	// CapturePayment captures an approved payment order.
	CapturePayment(ctx context.Context, orderID string) (*CapturedPayment, error)

	// Subscribe creates a provider-side billing agreement for (plan, user)
	// and returns its id plus the approval link.
	Subscribe(ctx context.Context, plan *model.SubscriptionPlan, user model.User) (*CreatedSubscription, error)

	// CancelSubscription cancels the external billing agreement. An
	// already-cancelled agreement is not an error.
	CancelSubscription(ctx context.Context, sub *model.Subscription) error

	// WebhookEvent resolves a provider event id into a normalized event,
	// or nil if the event carries nothing the core cares about.
	WebhookEvent(ctx context.Context, eventID string) (WebhookEvent, error)

	// PersistSubscriptionPlan upserts the provider-side product and plan
	// for a package. When existing is non-nil its provider plan is updated
	// in place and the returned SubscriptionPlan keeps the same logical id;
	// changing a package's price must never move subscribers onto a new
	// provider plan id.
	PersistSubscriptionPlan(ctx context.Context, pkg *model.Package, existing *model.SubscriptionPlan) (*model.SubscriptionPlan, error)
}
