package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

func testPlan(t *testing.T) *model.SubscriptionPlan {
	t.Helper()
	return model.NewSubscriptionPlan(testPackage(), model.PlanPayment{
		ProductID: "DONATE-4",
		PlanID:    "P-1",
	})
}

func TestSubscriptionPlan_WithPayment(t *testing.T) {
	t.Parallel()

	plan := testPlan(t)
	updated := plan.WithPayment(model.PlanPayment{ProductID: "DONATE-4", PlanID: "P-2"})

	assert.Equal(t, plan.ID, updated.ID, "logical identity must survive repricing")
	assert.Equal(t, plan.PackageID, updated.PackageID)
	assert.Equal(t, "P-2", updated.Payment.PlanID)
}

func TestSubscription_Lifecycle(t *testing.T) {
	t.Parallel()

	user := model.User{SteamID: "7650000001", DiscordID: "discord-1"}

	t.Run("starts pending and owns the agreement id", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")

		assert.Equal(t, model.SubscriptionPending, sub.State)
		assert.Equal(t, "AG-1", sub.Payment.ID)
		assert.True(t, sub.IsActive())
	})

	t.Run("active after billing confirmation", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")

		sub.Activate()

		assert.Equal(t, model.SubscriptionActive, sub.State)
		assert.True(t, sub.IsActive())
	})

	t.Run("cancelled is terminal and not active", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")

		sub.Cancel()

		assert.Equal(t, model.SubscriptionCancelled, sub.State)
		assert.False(t, sub.IsActive())
	})
}

func TestSubscription_AbortLink(t *testing.T) {
	t.Parallel()

	user := model.User{DiscordID: "discord-1"}

	t.Run("available while pending", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")

		link, err := sub.AbortLink()

		require.NoError(t, err)
		assert.Contains(t, link, sub.ID.String())
	})

	t.Run("rejected when active", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")
		sub.Activate()

		_, err := sub.AbortLink()
		assert.ErrorIs(t, err, model.ErrSubscriptionNotPending)
	})

	t.Run("rejected when cancelled", func(t *testing.T) {
		t.Parallel()
		sub := model.AgreeBilling(testPlan(t), user, "AG-1")
		sub.Cancel()

		_, err := sub.AbortLink()
		assert.ErrorIs(t, err, model.ErrSubscriptionNotPending)
	})
}
