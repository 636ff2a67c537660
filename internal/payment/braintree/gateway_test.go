package braintree

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/config"
)

func TestNewGateway_TokenResolver(t *testing.T) {
	t.Parallel()

	t.Run("uses the given resolver", func(t *testing.T) {
		t.Parallel()
		custom := func(context.Context, string) (string, error) { return "tok-1", nil }
		g := NewGateway(&config.Braintree{}, custom)

		tok, err := g.tokens(context.Background(), "discord-1")
		require.NoError(t, err)
		assert.Equal(t, "tok-1", tok)
	})

	t.Run("defaults to the vault resolver", func(t *testing.T) {
		t.Parallel()
		g := NewGateway(&config.Braintree{}, nil)
		assert.NotNil(t, g.tokens)
	})
}

func TestBtAmount(t *testing.T) {
	t.Parallel()

	cases := []struct {
		amount   string
		unscaled int64
	}{
		{"9.99", 999},
		{"5.00", 500},
		{"0.50", 50},
		{"100", 10000},
	}
	for _, tc := range cases {
		got := btAmount(decimal.RequireFromString(tc.amount))
		assert.Equal(t, tc.unscaled, got.Unscaled, "amount %s", tc.amount)
		assert.Equal(t, 2, got.Scale, "amount %s", tc.amount)
	}
}
