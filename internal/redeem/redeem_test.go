package redeem_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/model"
	"github.com/gabegon8910/server-donation-tool/internal/redeem"
	"github.com/gabegon8910/server-donation-tool/internal/repository/memory"
)

type fakePriorityQueue struct {
	mu      sync.Mutex
	expiry  map[string]time.Time // key: serverID/steamID
	grants  int
	failErr error
}

func newFakePriorityQueue() *fakePriorityQueue {
	return &fakePriorityQueue{expiry: make(map[string]time.Time)}
}

func (f *fakePriorityQueue) PriorityExpiry(_ context.Context, serverID, steamID string) (*time.Time, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if at, ok := f.expiry[serverID+"/"+steamID]; ok {
		return &at, nil
	}
	return nil, nil
}

func (f *fakePriorityQueue) GrantPriority(_ context.Context, serverID, steamID string, expiresAt time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failErr != nil {
		return f.failErr
	}
	f.grants++
	f.expiry[serverID+"/"+steamID] = expiresAt
	return nil
}

type fakeDiscord struct {
	mu    sync.Mutex
	roles map[string][]string
}

func newFakeDiscord() *fakeDiscord {
	return &fakeDiscord{roles: make(map[string][]string)}
}

func (f *fakeDiscord) AddRole(_ context.Context, discordID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.roles[discordID] {
		if r == roleID {
			return nil
		}
	}
	f.roles[discordID] = append(f.roles[discordID], roleID)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fullPackage() *model.Package {
	return &model.Package{
		ID:   2,
		Name: "VIP",
		Perks: []model.Perk{
			{Type: model.PerkPriorityQueue, CFToolsServerID: "srv-1", Days: 30},
			{Type: model.PerkDiscordRole, RoleID: "role-vip"},
			{Type: model.PerkFreetext, Text: "Thank you for supporting the server!"},
		},
	}
}

func paidOrder(t *testing.T, pkg *model.Package) *model.Order {
	t.Helper()
	order := model.NewOrder(time.Now(),
		model.OrderPayment{ID: "ORD-1", Provider: "paypal"},
		model.NewReference("7650000001", "discord-1", pkg), "")
	require.NoError(t, order.Pay("TX-1"))
	return order
}

func TestEngine_Redeem(t *testing.T) {
	t.Parallel()

	tgt := model.RedeemTarget{SteamID: "7650000001", DiscordID: "discord-1"}

	t.Run("grants every perk and stamps the order", func(t *testing.T) {
		t.Parallel()
		pq := newFakePriorityQueue()
		discord := newFakeDiscord()
		orders := memory.NewOrderRepository()
		engine := redeem.NewEngine(pq, discord, orders, discardLogger())
		order := paidOrder(t, fullPackage())

		require.NoError(t, engine.Redeem(context.Background(), order, tgt))

		assert.Equal(t, 1, pq.grants)
		assert.Equal(t, []string{"role-vip"}, discord.roles["discord-1"])
		require.NotNil(t, order.RedeemedAt)

		stored, err := orders.FindByID(context.Background(), order.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.RedeemedAt)
	})

	t.Run("second redeem of the same order is a no-op", func(t *testing.T) {
		t.Parallel()
		pq := newFakePriorityQueue()
		discord := newFakeDiscord()
		engine := redeem.NewEngine(pq, discord, memory.NewOrderRepository(), discardLogger())
		order := paidOrder(t, fullPackage())

		require.NoError(t, engine.Redeem(context.Background(), order, tgt))
		redeemedAt := *order.RedeemedAt
		require.NoError(t, engine.Redeem(context.Background(), order, tgt))

		assert.Equal(t, 1, pq.grants, "perks must not be granted twice")
		assert.Equal(t, redeemedAt, *order.RedeemedAt)
	})

	t.Run("priority extends a live entry instead of stacking from now", func(t *testing.T) {
		t.Parallel()
		pq := newFakePriorityQueue()
		existing := time.Now().Add(10 * 24 * time.Hour).Truncate(time.Second)
		pq.expiry["srv-1/7650000001"] = existing
		engine := redeem.NewEngine(pq, newFakeDiscord(), memory.NewOrderRepository(), discardLogger())
		order := paidOrder(t, fullPackage())

		require.NoError(t, engine.Redeem(context.Background(), order, tgt))

		got := pq.expiry["srv-1/7650000001"]
		assert.Equal(t, existing.AddDate(0, 0, 30), got)
	})

	t.Run("expired entry grants from now", func(t *testing.T) {
		t.Parallel()
		pq := newFakePriorityQueue()
		pq.expiry["srv-1/7650000001"] = time.Now().Add(-time.Hour)
		engine := redeem.NewEngine(pq, newFakeDiscord(), memory.NewOrderRepository(), discardLogger())
		order := paidOrder(t, fullPackage())

		require.NoError(t, engine.Redeem(context.Background(), order, tgt))

		got := pq.expiry["srv-1/7650000001"]
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 30), got, time.Minute)
	})

	t.Run("backend failure leaves the order unredeemed", func(t *testing.T) {
		t.Parallel()
		pq := newFakePriorityQueue()
		pq.failErr = errors.New("cftools down")
		engine := redeem.NewEngine(pq, newFakeDiscord(), memory.NewOrderRepository(), discardLogger())
		order := paidOrder(t, fullPackage())

		err := engine.Redeem(context.Background(), order, tgt)

		require.Error(t, err)
		assert.Nil(t, order.RedeemedAt)
	})

	t.Run("tombstoned package is refused, order stays unredeemed", func(t *testing.T) {
		t.Parallel()
		engine := redeem.NewEngine(newFakePriorityQueue(), newFakeDiscord(), memory.NewOrderRepository(), discardLogger())
		order := model.NewOrder(time.Now(),
			model.OrderPayment{ID: "ORD-3"},
			model.NewReference("7650000001", "discord-1", model.TombstonePackage(9)), "")
		require.NoError(t, order.Pay("TX-3"))

		err := engine.Redeem(context.Background(), order, tgt)

		require.Error(t, err)
		assert.Nil(t, order.RedeemedAt)
	})

	t.Run("priority perk without steam id fails", func(t *testing.T) {
		t.Parallel()
		engine := redeem.NewEngine(newFakePriorityQueue(), newFakeDiscord(), memory.NewOrderRepository(), discardLogger())
		order := model.NewOrder(time.Now(),
			model.OrderPayment{ID: "ORD-2"},
			model.NewReference("", "discord-1", fullPackage()), "")
		require.NoError(t, order.Pay("TX-2"))

		err := engine.Redeem(context.Background(), order, model.RedeemTarget{DiscordID: "discord-1"})
		require.Error(t, err)
	})
}
