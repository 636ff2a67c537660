// Package memory provides in-memory repositories backing unit tests and the
// gateway-less development mode. Entities are copied on the way in and out
// so callers never share mutable state with the store.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

type OrderRepository struct {
	mu     sync.RWMutex
	orders map[uuid.UUID]model.Order
}

func NewOrderRepository() *OrderRepository {
	return &OrderRepository{
		orders: make(map[uuid.UUID]model.Order),
	}
}

func copyOrder(o model.Order) *model.Order {
	cp := o
	if o.Payment != nil {
		payment := *o.Payment
		cp.Payment = &payment
	}
	if o.RedeemedAt != nil {
		at := *o.RedeemedAt
		cp.RedeemedAt = &at
	}
	return &cp
}

func (r *OrderRepository) Save(_ context.Context, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[order.ID] = *copyOrder(*order)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	order, ok := r.orders[id]
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return copyOrder(order), nil
}

func (r *OrderRepository) FindByPaymentID(_ context.Context, paymentID string) ([]*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var orders []*model.Order
	for _, order := range r.orders {
		if order.Payment != nil && order.Payment.ID == paymentID {
			orders = append(orders, copyOrder(order))
		}
	}
	return orders, nil
}

func (r *OrderRepository) FindByTransactionID(_ context.Context, transactionID string) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, order := range r.orders {
		if order.Payment != nil && order.Payment.TransactionID == transactionID {
			return copyOrder(order), nil
		}
	}
	return nil, model.ErrOrderNotFound
}

// Count reports the number of stored orders. Test helper.
func (r *OrderRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.orders)
}

type SubscriptionRepository struct {
	mu   sync.RWMutex
	subs map[uuid.UUID]model.Subscription
}

func NewSubscriptionRepository() *SubscriptionRepository {
	return &SubscriptionRepository{
		subs: make(map[uuid.UUID]model.Subscription),
	}
}

func (r *SubscriptionRepository) Save(_ context.Context, sub *model.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.ID] = *sub
	return nil
}

func (r *SubscriptionRepository) FindByID(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.subs[id]
	if !ok {
		return nil, model.ErrSubscriptionNotFound
	}
	cp := sub
	return &cp, nil
}

func (r *SubscriptionRepository) FindByPaymentID(_ context.Context, paymentID string) (*model.Subscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sub := range r.subs {
		if sub.Payment.ID == paymentID {
			cp := sub
			return &cp, nil
		}
	}
	return nil, model.ErrSubscriptionNotFound
}

type PlanRepository struct {
	mu    sync.RWMutex
	plans map[uuid.UUID]model.SubscriptionPlan
}

func NewPlanRepository() *PlanRepository {
	return &PlanRepository{
		plans: make(map[uuid.UUID]model.SubscriptionPlan),
	}
}

func (r *PlanRepository) Save(_ context.Context, plan *model.SubscriptionPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[plan.ID] = *plan
	return nil
}

func (r *PlanRepository) FindByID(_ context.Context, id uuid.UUID) (*model.SubscriptionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, model.ErrPlanNotFound
	}
	cp := plan
	return &cp, nil
}

func (r *PlanRepository) FindByPackageID(_ context.Context, packageID int) (*model.SubscriptionPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, plan := range r.plans {
		if plan.PackageID == packageID {
			cp := plan
			return &cp, nil
		}
	}
	return nil, model.ErrPlanNotFound
}

type WebhookEventRepository struct {
	mu        sync.Mutex
	processed map[string]string
}

func NewWebhookEventRepository() *WebhookEventRepository {
	return &WebhookEventRepository{
		processed: make(map[string]string),
	}
}

func (r *WebhookEventRepository) Exists(_ context.Context, eventID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.processed[eventID]
	return ok, nil
}

func (r *WebhookEventRepository) MarkProcessed(_ context.Context, eventID, eventType string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.processed[eventID] = eventType
	return nil
}
