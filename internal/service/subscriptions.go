package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/gabegon8910/server-donation-tool/internal/config"
	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/payment"
	"github.com/gabegon8910/server-donation-tool/internal/redeem"
	"github.com/gabegon8910/server-donation-tool/internal/repository"
)

// PendingSubscription is the result of Subscribe: the stored PENDING
// subscription and the link the user follows to confirm the agreement.
type PendingSubscription struct {
	Subscription *model.Subscription
	ApprovalURL  string
}

// SubscriptionView aggregates everything a member sees about one of their
// subscriptions.
type SubscriptionView struct {
	Subscription *model.Subscription
	Plan         *model.SubscriptionPlan
	Package      *model.Package
	History      []*model.Order
}

// Subscriptions coordinates plan lookup, gateway agreements, persistence and
// per-cycle redemption. All state transitions for one billing agreement are
// serialized on its payment id.
type Subscriptions struct {
	gateway   payment.Gateway
	provider  string
	catalogue *config.Catalogue
	plans     repository.PlanRepository
	subs      repository.SubscriptionRepository
	orders    repository.OrderRepository
	engine    *redeem.Engine
	events    EventSink
	log       *slog.Logger
	now       func() time.Time
	perAgg    *keyedMutex
}

func NewSubscriptions(
	gateway payment.Gateway,
	provider string,
	catalogue *config.Catalogue,
	plans repository.PlanRepository,
	subs repository.SubscriptionRepository,
	orders repository.OrderRepository,
	engine *redeem.Engine,
	events EventSink,
	log *slog.Logger,
) *Subscriptions {
	return &Subscriptions{
		gateway:   gateway,
		provider:  provider,
		catalogue: catalogue,
		plans:     plans,
		subs:      subs,
		orders:    orders,
		engine:    engine,
		events:    events,
		log:       log,
		now:       time.Now,
		perAgg:    newKeyedMutex(),
	}
}

// ProvisionPlans upserts a provider plan for every subscribable package.
// Called at startup; Subscribe requires the plan to already exist.
func (s *Subscriptions) ProvisionPlans(ctx context.Context) error {
	for _, pkg := range s.catalogue.All() {
		if !pkg.Subscribable {
			continue
		}

		existing, err := s.plans.FindByPackageID(ctx, pkg.ID)
		if err != nil && !errors.Is(err, model.ErrPlanNotFound) {
			return err
		}

		plan, err := s.gateway.PersistSubscriptionPlan(ctx, pkg, existing)
		if err != nil {
			return fmt.Errorf("persist plan for package %d: %w", pkg.ID, err)
		}
		if err := s.plans.Save(ctx, plan); err != nil {
			return fmt.Errorf("save plan for package %d: %w", pkg.ID, err)
		}

		s.log.Info("subscription plan provisioned",
			slog.Int("packageId", pkg.ID),
			slog.String("planId", plan.Payment.PlanID))
	}
	return nil
}

// Subscribe creates a provider billing agreement for the package's plan and
// stores the subscription as PENDING, keyed by the agreement id.
func (s *Subscriptions) Subscribe(ctx context.Context, pkg *model.Package, user model.User) (*PendingSubscription, error) {
	plan, err := s.plans.FindByPackageID(ctx, pkg.ID)
	if err != nil {
		return nil, err
	}

	created, err := s.gateway.Subscribe(ctx, plan, user)
	if err != nil {
		return nil, err
	}

	sub := model.AgreeBilling(plan, user, created.ID)
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist subscription: %w", err)
	}

	return &PendingSubscription{
		Subscription: sub,
		ApprovalURL:  created.ApprovalURL,
	}, nil
}

// RedeemSubscriptionPayment processes one confirmed billing cycle: activates
// the subscription, records a PAID order for the cycle and redeems it.
//
// The transaction id doubles as the per-cycle idempotency key: a redelivered
// webhook finds the existing order and at most retries its redemption, it
// never grants twice or creates a second order.
func (s *Subscriptions) RedeemSubscriptionPayment(ctx context.Context, paymentID, transactionID string) (*model.Order, error) {
	unlock := s.perAgg.lock(paymentID)
	defer unlock()

	sub, err := s.subs.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.catalogue.Resolve(plan.PackageID)
	if err != nil {
		return nil, err
	}

	if existing, err := s.orders.FindByTransactionID(ctx, transactionID); err == nil {
		if existing.RedeemedAt == nil {
			if err := s.engine.Redeem(ctx, existing, target(existing)); err != nil {
				return existing, err
			}
		}
		return existing, nil
	} else if !errors.Is(err, model.ErrOrderNotFound) {
		return nil, err
	}

	sub.Activate()
	if err := s.subs.Save(ctx, sub); err != nil {
		return nil, fmt.Errorf("persist subscription: %w", err)
	}

	ref := model.NewReference(sub.User.SteamID, sub.User.DiscordID, pkg)
	order := model.NewOrder(s.now(), model.OrderPayment{
		ID:       paymentID,
		Provider: s.provider,
	}, ref, "")
	if err := order.Pay(transactionID); err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, fmt.Errorf("persist cycle order: %w", err)
	}

	// From here on the order exists as PAID; a redemption failure is a
	// recoverable inconsistency fixed by redelivery, not a rollback.
	if err := s.engine.Redeem(ctx, order, target(order)); err != nil {
		return order, err
	}

	s.events.Emit(ctx, EventSuccessfulSubscriptionExecution,
		slog.String("subscriptionId", sub.ID.String()),
		slog.String("orderId", order.ID.String()),
		slog.String("discordId", sub.User.DiscordID))

	return order, nil
}

// ViewSubscription returns the subscription with its plan and full order
// history. A subscription belonging to someone else reads as not found.
func (s *Subscriptions) ViewSubscription(ctx context.Context, id uuid.UUID, forUser model.User) (*SubscriptionView, error) {
	sub, err := s.findOwned(ctx, id, forUser)
	if err != nil {
		return nil, err
	}

	plan, err := s.plans.FindByID(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	pkg, err := s.catalogue.Resolve(plan.PackageID)
	if err != nil {
		return nil, err
	}

	history, err := s.orders.FindByPaymentID(ctx, sub.Payment.ID)
	if err != nil {
		return nil, err
	}

	return &SubscriptionView{
		Subscription: sub,
		Plan:         plan,
		Package:      pkg,
		History:      history,
	}, nil
}

// Cancel cancels the external agreement first, then marks the subscription
// CANCELLED. Order matters: a crash in between leaves an internally-live
// subscription that is safe, while the reverse would keep billing the user.
func (s *Subscriptions) Cancel(ctx context.Context, id uuid.UUID, forUser model.User) error {
	sub, err := s.findOwned(ctx, id, forUser)
	if err != nil {
		return err
	}

	unlock := s.perAgg.lock(sub.Payment.ID)
	defer unlock()

	// The pre-lock read only located the agreement; re-read under the lock
	// so a transition that landed in between is not overwritten.
	sub, err = s.findOwned(ctx, id, forUser)
	if err != nil {
		return err
	}

	if err := s.gateway.CancelSubscription(ctx, sub); err != nil {
		return err
	}

	sub.Cancel()
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}

	s.events.Emit(ctx, EventSubscriptionCancelled,
		slog.String("subscriptionId", sub.ID.String()),
		slog.String("discordId", sub.User.DiscordID))

	return nil
}

// Abort abandons a not-yet-confirmed agreement. Only legal while PENDING.
// The provider-side agreement was never approved and expires on its own, so
// no gateway call is made.
func (s *Subscriptions) Abort(ctx context.Context, id uuid.UUID, forUser model.User) error {
	sub, err := s.findOwned(ctx, id, forUser)
	if err != nil {
		return err
	}

	unlock := s.perAgg.lock(sub.Payment.ID)
	defer unlock()

	// Re-read under the lock: a billing confirmation may have activated the
	// agreement since the ownership read, and closing an active agreement
	// without a gateway cancel would keep it billing externally.
	sub, err = s.findOwned(ctx, id, forUser)
	if err != nil {
		return err
	}

	if sub.State != model.SubscriptionPending {
		return model.ErrSubscriptionNotPending
	}

	sub.Cancel()
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}

	s.events.Emit(ctx, EventSubscriptionAborted,
		slog.String("subscriptionId", sub.ID.String()),
		slog.String("discordId", sub.User.DiscordID))
	return nil
}

// HandleProviderCancellation closes a subscription cancelled on the provider
// side (webhook driven, no ownership check).
func (s *Subscriptions) HandleProviderCancellation(ctx context.Context, paymentID string) error {
	unlock := s.perAgg.lock(paymentID)
	defer unlock()

	sub, err := s.subs.FindByPaymentID(ctx, paymentID)
	if err != nil {
		return err
	}

	sub.Cancel()
	if err := s.subs.Save(ctx, sub); err != nil {
		return fmt.Errorf("persist subscription: %w", err)
	}

	s.events.Emit(ctx, EventSubscriptionCancelled,
		slog.String("subscriptionId", sub.ID.String()),
		slog.String("discordId", sub.User.DiscordID))
	return nil
}

func (s *Subscriptions) findOwned(ctx context.Context, id uuid.UUID, forUser model.User) (*model.Subscription, error) {
	sub, err := s.subs.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	// Ownership mismatch reads as not-found so existence never leaks.
	if sub.User.DiscordID != forUser.DiscordID {
		return nil, model.ErrSubscriptionNotFound
	}
	return sub, nil
}
