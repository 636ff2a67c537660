package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

func testPackage() *model.Package {
	return &model.Package{
		ID:   4,
		Name: "Supporter",
		Perks: []model.Perk{
			{Type: model.PerkPriorityQueue, CFToolsServerID: "srv-1", Days: 30},
		},
	}
}

func TestOrder_Pay(t *testing.T) {
	t.Parallel()

	t.Run("stamps transaction id and flips to PAID", func(t *testing.T) {
		t.Parallel()
		order := model.NewOrder(time.Now(),
			model.OrderPayment{ID: "ORD-1", Provider: "paypal"},
			model.NewReference("7650000001", "discord-1", testPackage()), "")

		require.NoError(t, order.Pay("TX-1"))

		assert.Equal(t, model.OrderPaid, order.Status)
		assert.Equal(t, "TX-1", order.Payment.TransactionID)
		assert.True(t, order.IsPaid())
	})

	t.Run("fails without a payment intent", func(t *testing.T) {
		t.Parallel()
		order := model.NewDeferredOrder(time.Now(),
			model.NewReference("", "discord-1", testPackage()), "")

		err := order.Pay("TX-1")

		assert.ErrorIs(t, err, model.ErrOrderNoPaymentIntent)
		assert.Equal(t, model.OrderCreated, order.Status)
	})

	t.Run("pay never sets redeemedAt", func(t *testing.T) {
		t.Parallel()
		order := model.NewOrder(time.Now(),
			model.OrderPayment{ID: "ORD-1"},
			model.NewReference("", "discord-1", testPackage()), "")

		require.NoError(t, order.Pay("TX-1"))
		assert.Nil(t, order.RedeemedAt)
	})
}

func TestOrder_PaymentIntent(t *testing.T) {
	t.Parallel()

	t.Run("binds payment on a deferred order", func(t *testing.T) {
		t.Parallel()
		order := model.NewDeferredOrder(time.Now(),
			model.NewReference("", "discord-1", testPackage()), "thanks!")

		require.NoError(t, order.PaymentIntent(model.OrderPayment{ID: "ORD-9", Provider: "paypal"}))
		require.NoError(t, order.Pay("TX-9"))

		assert.Equal(t, "ORD-9", order.Payment.ID)
		assert.Equal(t, "TX-9", order.Payment.TransactionID)
	})

	t.Run("fails when payment already bound", func(t *testing.T) {
		t.Parallel()
		order := model.NewOrder(time.Now(),
			model.OrderPayment{ID: "ORD-1"},
			model.NewReference("", "discord-1", testPackage()), "")

		err := order.PaymentIntent(model.OrderPayment{ID: "ORD-2"})

		assert.ErrorIs(t, err, model.ErrOrderPaymentAlreadyBound)
		assert.Equal(t, "ORD-1", order.Payment.ID)
	})
}

func TestOrder_MarkRedeemed(t *testing.T) {
	t.Parallel()

	order := model.NewOrder(time.Now(),
		model.OrderPayment{ID: "ORD-1"},
		model.NewReference("", "discord-1", testPackage()), "")

	first := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	order.MarkRedeemed(first)
	order.MarkRedeemed(first.Add(time.Hour))

	require.NotNil(t, order.RedeemedAt)
	assert.Equal(t, first, *order.RedeemedAt)
}
