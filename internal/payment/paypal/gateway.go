// Package paypal implements the payment gateway against the PayPal REST
// API: one-off checkout orders, recurring billing plans and webhook event
// verification.
package paypal

import (
	"context"
	"fmt"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
)

const ProviderName = "paypal"

type Gateway struct {
	client  *client
	baseURL string
}

func NewGateway(cfg *config.Paypal, baseURL string) *Gateway {
	return &Gateway{
		client:  newClient(cfg),
		baseURL: baseURL,
	}
}

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %w", model.ErrGateway, err)
}

// productID derives the provider-side product id deterministically from the
// package id, so reconciliation can find it again without stored state.
func productID(pkg *model.Package) string {
	return fmt.Sprintf("DONATE-%d", pkg.ID)
}

func (g *Gateway) CreatePaymentOrder(ctx context.Context, pkg *model.Package, ref model.Reference) (*payment.CreatedPaymentOrder, error) {
	result, err := g.client.createCheckoutOrder(ctx,
		pkg.Price.Currency,
		pkg.Price.Amount.StringFixed(2),
		ref.String(),
		g.baseURL+"/api/donations/success",
		g.baseURL,
	)
	if err != nil {
		return nil, gatewayErr(err)
	}

	return &payment.CreatedPaymentOrder{
		ID:          result.ID,
		ApprovalURL: extractLink(result.Links, "approve"),
		Provider:    ProviderName,
	}, nil
}

func (g *Gateway) CapturePayment(ctx context.Context, orderID string) (*payment.CapturedPayment, error) {
	result, err := g.client.captureOrder(ctx, orderID)
	if err != nil {
		return nil, gatewayErr(err)
	}

	captured := &payment.CapturedPayment{OrderID: result.ID}
	for _, unit := range result.PurchaseUnits {
		for _, capture := range unit.Payments.Captures {
			captured.TransactionID = capture.ID
		}
	}
	return captured, nil
}

func (g *Gateway) Subscribe(ctx context.Context, plan *model.SubscriptionPlan, user model.User) (*payment.CreatedSubscription, error) {
	customID := user.DiscordID
	if user.SteamID != "" {
		customID = user.SteamID
	}
	result, err := g.client.createSubscription(ctx,
		plan.Payment.PlanID,
		customID,
		g.baseURL+"/api/subscriptions/success",
		g.baseURL,
	)
	if err != nil {
		return nil, gatewayErr(err)
	}

	return &payment.CreatedSubscription{
		ID:          result.ID,
		ApprovalURL: extractLink(result.Links, "approve"),
	}, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, sub *model.Subscription) error {
	if err := g.client.cancelSubscription(ctx, sub.Payment.ID, "Cancelled by user"); err != nil {
		return gatewayErr(err)
	}
	return nil
}

func (g *Gateway) WebhookEvent(ctx context.Context, eventID string) (payment.WebhookEvent, error) {
	event, err := g.client.getWebhookEvent(ctx, eventID)
	if err != nil {
		return nil, gatewayErr(err)
	}

	switch event.EventType {
	case "PAYMENT.CAPTURE.COMPLETED":
		return payment.SaleCompleted{
			PaymentID:     event.Resource.RelatedOrderID(),
			TransactionID: event.Resource.ID,
			Reference:     event.Resource.CustomID,
		}, nil
	case "PAYMENT.SALE.COMPLETED":
		// Recurring billing cycle; the sale carries the agreement id.
		return payment.SaleCompleted{
			PaymentID:     event.Resource.BillingAgreement,
			TransactionID: event.Resource.ID,
			Recurring:     true,
			Reference:     event.Resource.CustomID,
		}, nil
	case "BILLING.SUBSCRIPTION.CANCELLED":
		return payment.SubscriptionCancelled{
			PaymentID: event.Resource.ID,
		}, nil
	}

	return nil, nil
}

func (g *Gateway) PersistSubscriptionPlan(ctx context.Context, pkg *model.Package, existing *model.SubscriptionPlan) (*model.SubscriptionPlan, error) {
	pid := productID(pkg)

	if _, err := g.client.getProduct(ctx, pid); err != nil {
		if _, err := g.client.createProduct(ctx, pid, pkg.Name, pkg.Description); err != nil {
			return nil, gatewayErr(err)
		}
	} else if err := g.client.updateProduct(ctx, pid, pkg.Name, pkg.Description); err != nil {
		return nil, gatewayErr(err)
	}

	currency := pkg.Price.Currency
	value := pkg.Price.Amount.StringFixed(2)

	if existing != nil && existing.Payment.PlanID != "" {
		// Reprice in place; the provider plan id must survive so current
		// subscribers keep their agreement.
		if err := g.client.updatePlanPricing(ctx, existing.Payment.PlanID, currency, value); err != nil {
			return nil, gatewayErr(err)
		}
		return existing.WithPayment(model.PlanPayment{
			ProductID: pid,
			PlanID:    existing.Payment.PlanID,
		}), nil
	}

	created, err := g.client.createPlan(ctx, pid, pkg.Name, currency, value)
	if err != nil {
		return nil, gatewayErr(err)
	}
	return model.NewSubscriptionPlan(pkg, model.PlanPayment{
		ProductID: pid,
		PlanID:    created.ID,
	}), nil
}
