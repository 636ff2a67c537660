package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
	"github.com/gabegon8910/server-donation-tool/internal/redeem"
	"github.com/gabegon8910/server-donation-tool/internal/repository"
)

// Checkout is the start of a one-off donation: the order and where to send
// the donor to approve the payment.
type Checkout struct {
	Order       *model.Order
	ApprovalURL string
}

// Donations handles the one-off purchase flow: checkout, capture, redeem.
type Donations struct {
	gateway payment.Gateway
	orders  repository.OrderRepository
	engine  *redeem.Engine
	events  EventSink
	log     *slog.Logger
	now     func() time.Time
}

func NewDonations(
	gateway payment.Gateway,
	orders repository.OrderRepository,
	engine *redeem.Engine,
	events EventSink,
	log *slog.Logger,
) *Donations {
	return &Donations{
		gateway: gateway,
		orders:  orders,
		engine:  engine,
		events:  events,
		log:     log,
		now:     time.Now,
	}
}

// InitiateCheckout creates a provider payment order and records the order
// with the payment intent pre-bound.
func (d *Donations) InitiateCheckout(ctx context.Context, pkg *model.Package, user model.User, customMessage string) (*Checkout, error) {
	ref := model.NewReference(user.SteamID, user.DiscordID, pkg)

	created, err := d.gateway.CreatePaymentOrder(ctx, pkg, ref)
	if err != nil {
		return nil, err
	}

	order := model.NewOrder(d.now(), model.OrderPayment{
		ID:       created.ID,
		Provider: created.Provider,
	}, ref, customMessage)
	if err := d.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}

	return &Checkout{
		Order:       order,
		ApprovalURL: created.ApprovalURL,
	}, nil
}

// CreateDeferredOrder records an order before any provider payment exists.
// AttachPayment binds the intent later, once the provider side is known.
func (d *Donations) CreateDeferredOrder(ctx context.Context, pkg *model.Package, user model.User, customMessage string) (*model.Order, error) {
	order := model.NewDeferredOrder(d.now(), model.NewReference(user.SteamID, user.DiscordID, pkg), customMessage)
	if err := d.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

func (d *Donations) AttachPayment(ctx context.Context, orderID uuid.UUID, p model.OrderPayment) (*model.Order, error) {
	order, err := d.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.PaymentIntent(p); err != nil {
		return nil, err
	}
	if err := d.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("persist order: %w", err)
	}
	return order, nil
}

// CapturePayment captures an approved provider order, marks the local order
// paid and redeems it.
func (d *Donations) CapturePayment(ctx context.Context, providerOrderID string) (*model.Order, error) {
	order, err := d.findByPaymentID(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}

	captured, err := d.gateway.CapturePayment(ctx, providerOrderID)
	if err != nil {
		return nil, err
	}

	return d.settle(ctx, order, captured.TransactionID)
}

// RedeemSale completes a one-off order from a provider webhook. Duplicate
// deliveries converge on the already-settled order.
func (d *Donations) RedeemSale(ctx context.Context, paymentID, transactionID string) (*model.Order, error) {
	if existing, err := d.orders.FindByTransactionID(ctx, transactionID); err == nil {
		// Redelivery. Retry redemption alone if a previous attempt died
		// between payment and grant.
		if existing.RedeemedAt == nil {
			if err := d.engine.Redeem(ctx, existing, target(existing)); err != nil {
				return existing, err
			}
		}
		return existing, nil
	} else if !errors.Is(err, model.ErrOrderNotFound) {
		return nil, err
	}

	order, err := d.findByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	return d.settle(ctx, order, transactionID)
}

func (d *Donations) settle(ctx context.Context, order *model.Order, transactionID string) (*model.Order, error) {
	if !order.IsPaid() {
		if err := order.Pay(transactionID); err != nil {
			return nil, err
		}
		if err := d.orders.Save(ctx, order); err != nil {
			return nil, fmt.Errorf("persist paid order: %w", err)
		}
	}

	if err := d.engine.Redeem(ctx, order, target(order)); err != nil {
		return order, err
	}

	d.events.Emit(ctx, EventSuccessfulPayment,
		slog.String("orderId", order.ID.String()),
		slog.String("discordId", order.Reference.DiscordID),
		slog.Int("packageId", order.Reference.Package.ID))

	return order, nil
}

// GetOrder is the ownership-checked lookup backing the order detail view.
// A foreign order reads as not found.
func (d *Donations) GetOrder(ctx context.Context, id uuid.UUID, forUser model.User) (*model.Order, error) {
	order, err := d.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.Reference.DiscordID != forUser.DiscordID {
		return nil, model.ErrOrderNotFound
	}
	return order, nil
}

func (d *Donations) findByPaymentID(ctx context.Context, paymentID string) (*model.Order, error) {
	orders, err := d.orders.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}
	if len(orders) == 0 {
		return nil, model.ErrOrderNotFound
	}
	return orders[0], nil
}

func target(order *model.Order) model.RedeemTarget {
	return model.RedeemTarget{
		SteamID:   order.Reference.SteamID,
		DiscordID: order.Reference.DiscordID,
	}
}
