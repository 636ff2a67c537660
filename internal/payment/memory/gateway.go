// Package memory is an in-memory gateway used by unit tests and the
// provider-less development mode. Every call succeeds and is recorded so
// tests can assert on ordering and arguments.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
)

const ProviderName = "memory"

type Gateway struct {
	mu sync.Mutex

	orderSeq     int
	agreementSeq int

	// Err, when set, is returned by every mutating call.
	Err error

	CreatedOrders  []string
	Subscribed     []string
	Cancelled      []string
	PersistedPlans []int
	Events         map[string]payment.WebhookEvent
}

func NewGateway() *Gateway {
	return &Gateway{
		Events: make(map[string]payment.WebhookEvent),
	}
}

func (g *Gateway) CreatePaymentOrder(_ context.Context, pkg *model.Package, ref model.Reference) (*payment.CreatedPaymentOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.orderSeq++
	id := fmt.Sprintf("ORD-%d", g.orderSeq)
	g.CreatedOrders = append(g.CreatedOrders, id)
	return &payment.CreatedPaymentOrder{
		ID:          id,
		ApprovalURL: "https://pay.example/approve/" + id,
		Provider:    ProviderName,
	}, nil
}

func (g *Gateway) CapturePayment(_ context.Context, orderID string) (*payment.CapturedPayment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return &payment.CapturedPayment{
		OrderID:       orderID,
		TransactionID: "TX-" + orderID,
	}, nil
}

func (g *Gateway) Subscribe(_ context.Context, plan *model.SubscriptionPlan, _ model.User) (*payment.CreatedSubscription, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.agreementSeq++
	id := fmt.Sprintf("AG-%d", g.agreementSeq)
	g.Subscribed = append(g.Subscribed, plan.Payment.PlanID)
	return &payment.CreatedSubscription{
		ID:          id,
		ApprovalURL: "https://pay.example/approve/" + id,
	}, nil
}

func (g *Gateway) CancelSubscription(_ context.Context, sub *model.Subscription) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return g.Err
	}
	g.Cancelled = append(g.Cancelled, sub.Payment.ID)
	return nil
}

func (g *Gateway) WebhookEvent(_ context.Context, eventID string) (payment.WebhookEvent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	return g.Events[eventID], nil
}

func (g *Gateway) PersistSubscriptionPlan(_ context.Context, pkg *model.Package, existing *model.SubscriptionPlan) (*model.SubscriptionPlan, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}
	g.PersistedPlans = append(g.PersistedPlans, pkg.ID)

	coords := model.PlanPayment{
		ProductID: fmt.Sprintf("DONATE-%d", pkg.ID),
		PlanID:    fmt.Sprintf("PLAN-%d-%d", pkg.ID, len(g.PersistedPlans)),
	}
	if existing != nil && existing.Payment.PlanID != "" {
		// Same logical plan, refreshed coordinates but a stable plan id.
		return existing.WithPayment(model.PlanPayment{
			ProductID: coords.ProductID,
			PlanID:    existing.Payment.PlanID,
		}), nil
	}
	return model.NewSubscriptionPlan(pkg, coords), nil
}
