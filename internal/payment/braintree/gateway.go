// Package braintree adapts Braintree's vaulted-card flow to the payment
// gateway contract. Unlike PayPal there is no approval redirect: charges
// against a vaulted payment token settle immediately, so created orders and
// subscriptions come back already confirmed.
package braintree

import (
	"context"
	"fmt"

	"github.com/braintree-go/braintree-go"
	"github.com/shopspring/decimal"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
)

const ProviderName = "braintree"

// TokenResolver looks up the vaulted payment token for a community member.
type TokenResolver func(ctx context.Context, discordID string) (string, error)

type Gateway struct {
	bt     *braintree.Braintree
	tokens TokenResolver
}

// NewGateway builds the adapter. A nil tokens resolver falls back to the
// Braintree vault: members are vaulted as customers under their discord id
// and the default payment method is charged.
func NewGateway(cfg *config.Braintree, tokens TokenResolver) *Gateway {
	env := braintree.Sandbox
	if cfg.Environment == "production" {
		env = braintree.Production
	}

	g := &Gateway{
		bt: braintree.New(
			env,
			cfg.MerchantID,
			cfg.PublicKey,
			cfg.PrivateKey,
		),
	}
	if tokens == nil {
		tokens = g.vaultToken
	}
	g.tokens = tokens
	return g
}

func (g *Gateway) vaultToken(ctx context.Context, discordID string) (string, error) {
	customer, err := g.bt.Customer().Find(ctx, discordID)
	if err != nil {
		return "", err
	}
	if customer.DefaultPaymentMethod() == nil {
		return "", fmt.Errorf("customer %s has no vaulted payment method", discordID)
	}
	return customer.DefaultPaymentMethod().GetToken(), nil
}

func gatewayErr(err error) error {
	return fmt.Errorf("%w: %w", model.ErrGateway, err)
}

// btAmount converts a decimal price to Braintree's (unscaled, scale) form:
// "9.99" becomes NewDecimal(999, 2).
func btAmount(amount decimal.Decimal) *braintree.Decimal {
	cents := amount.Mul(decimal.NewFromInt(100)).IntPart()
	return braintree.NewDecimal(cents, 2)
}

func (g *Gateway) CreatePaymentOrder(ctx context.Context, pkg *model.Package, ref model.Reference) (*payment.CreatedPaymentOrder, error) {
	token, err := g.tokens(ctx, ref.DiscordID)
	if err != nil {
		return nil, gatewayErr(fmt.Errorf("no vaulted payment method: %w", err))
	}

	tx, err := g.bt.Transaction().Create(ctx, &braintree.TransactionRequest{
		Type:               "sale",
		Amount:             btAmount(pkg.Price.Amount),
		PaymentMethodToken: token,
		OrderId:            ref.String(),
		Options: &braintree.TransactionOptions{
			SubmitForSettlement: true,
		},
	})
	if err != nil {
		return nil, gatewayErr(err)
	}
	if tx.Status == braintree.TransactionStatusProcessorDeclined {
		return nil, gatewayErr(fmt.Errorf("transaction declined by processor: %s", tx.ProcessorResponseText))
	}

	return &payment.CreatedPaymentOrder{
		ID:       tx.Id,
		Provider: ProviderName,
	}, nil
}

func (g *Gateway) CapturePayment(ctx context.Context, orderID string) (*payment.CapturedPayment, error) {
	tx, err := g.bt.Transaction().Find(ctx, orderID)
	if err != nil {
		return nil, gatewayErr(err)
	}

	return &payment.CapturedPayment{
		OrderID:       orderID,
		TransactionID: tx.Id,
	}, nil
}

func (g *Gateway) Subscribe(ctx context.Context, plan *model.SubscriptionPlan, user model.User) (*payment.CreatedSubscription, error) {
	token, err := g.tokens(ctx, user.DiscordID)
	if err != nil {
		return nil, gatewayErr(fmt.Errorf("no vaulted payment method: %w", err))
	}

	sub, err := g.bt.Subscription().Create(ctx, &braintree.SubscriptionRequest{
		PaymentMethodToken: token,
		PlanId:             plan.Payment.PlanID,
	})
	if err != nil {
		return nil, gatewayErr(err)
	}

	return &payment.CreatedSubscription{ID: sub.Id}, nil
}

func (g *Gateway) CancelSubscription(ctx context.Context, sub *model.Subscription) error {
	if _, err := g.bt.Subscription().Cancel(ctx, sub.Payment.ID); err != nil {
		return gatewayErr(err)
	}
	return nil
}

// WebhookEvent is a no-op: Braintree confirms charges synchronously on
// create, so there is no deferred provider event to resolve.
func (g *Gateway) WebhookEvent(_ context.Context, _ string) (payment.WebhookEvent, error) {
	return nil, nil
}

// PersistSubscriptionPlan cannot create plans: Braintree plans are managed
// in the control panel, not through the API. The plan matching the package
// by naming convention is looked up and its id recorded.
func (g *Gateway) PersistSubscriptionPlan(ctx context.Context, pkg *model.Package, existing *model.SubscriptionPlan) (*model.SubscriptionPlan, error) {
	plans, err := g.bt.Plan().All(ctx)
	if err != nil {
		return nil, gatewayErr(err)
	}

	wanted := fmt.Sprintf("DONATE-%d", pkg.ID)
	for _, plan := range plans {
		if plan.Id != wanted {
			continue
		}
		coords := model.PlanPayment{ProductID: plan.Id, PlanID: plan.Id}
		if existing != nil {
			return existing.WithPayment(coords), nil
		}
		return model.NewSubscriptionPlan(pkg, coords), nil
	}

	return nil, gatewayErr(fmt.Errorf("no braintree plan %q configured", wanted))
}
