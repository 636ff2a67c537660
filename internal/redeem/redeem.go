// Package redeem grants a paid order's perks to a community member. The
// engine guarantees convergence: redeeming the same order twice ends in the
// same state as redeeming it once.
package redeem

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/repository"
)

// PriorityQueueClient is the game-server priority queue backend.
type PriorityQueueClient interface {
	// PriorityExpiry returns the current priority entry expiry for the
	// player, or nil if none exists.
	PriorityExpiry(ctx context.Context, serverID, steamID string) (*time.Time, error)

	// GrantPriority creates or replaces the player's priority entry with
	// the given expiry.
	GrantPriority(ctx context.Context, serverID, steamID string, expiresAt time.Time, comment string) error
}

// DiscordClient assigns guild roles.
type DiscordClient interface {
	// AddRole is set-semantics: adding a role the member already has is
	// not an error.
	AddRole(ctx context.Context, discordID, roleID string) error
}

type Engine struct {
	pq      PriorityQueueClient
	discord DiscordClient
	orders  repository.OrderRepository
	log     *slog.Logger
	now     func() time.Time
}

func NewEngine(pq PriorityQueueClient, discord DiscordClient, orders repository.OrderRepository, log *slog.Logger) *Engine {
	return &Engine{
		pq:      pq,
		discord: discord,
		orders:  orders,
		log:     log,
		now:     time.Now,
	}
}

// Redeem applies every perk of the order's package to the target and stamps
// the order redeemed. An already-redeemed order is a no-op, which makes
// retrying a half-failed redemption safe.
func (e *Engine) Redeem(ctx context.Context, order *model.Order, target model.RedeemTarget) error {
	if order.RedeemedAt != nil {
		return nil
	}

	// A tombstoned package has no perk definitions left; granting nothing
	// and stamping the order would silently swallow the entitlement.
	if order.Reference.Package.Removed {
		return fmt.Errorf("package %d was removed from the catalogue", order.Reference.Package.ID)
	}

	for _, perk := range order.Reference.Package.Perks {
		if err := e.apply(ctx, order, perk, target); err != nil {
			return fmt.Errorf("apply perk %s: %w", perk.Type, err)
		}
	}

	order.MarkRedeemed(e.now())
	if err := e.orders.Save(ctx, order); err != nil {
		return fmt.Errorf("persist redeemed order: %w", err)
	}

	e.log.Info("order redeemed",
		slog.String("orderId", order.ID.String()),
		slog.String("discordId", target.DiscordID))
	return nil
}

func (e *Engine) apply(ctx context.Context, order *model.Order, perk model.Perk, target model.RedeemTarget) error {
	switch perk.Type {
	case model.PerkPriorityQueue:
		return e.grantPriority(ctx, order, perk, target)
	case model.PerkDiscordRole:
		return e.discord.AddRole(ctx, target.DiscordID, perk.RoleID)
	case model.PerkFreetext:
		// Informational only, nothing to grant.
		return nil
	default:
		return fmt.Errorf("unknown perk type %q", perk.Type)
	}
}

// grantPriority extends rather than stacks: a still-valid entry becomes the
// base for the new expiry, so a reprocessed grant never multiplies time.
func (e *Engine) grantPriority(ctx context.Context, order *model.Order, perk model.Perk, target model.RedeemTarget) error {
	if target.SteamID == "" {
		return fmt.Errorf("priority queue perk needs a steam id")
	}

	base := e.now()
	expiry, err := e.pq.PriorityExpiry(ctx, perk.CFToolsServerID, target.SteamID)
	if err != nil {
		return fmt.Errorf("read priority expiry: %w", err)
	}
	if expiry != nil && expiry.After(base) {
		base = *expiry
	}

	comment := fmt.Sprintf("Donation %s", order.ID)
	return e.pq.GrantPriority(ctx, perk.CFToolsServerID, target.SteamID,
		base.AddDate(0, 0, perk.Days), comment)
}
