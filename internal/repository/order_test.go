package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gabegon8910/server-donation-tool/internal/model"
)

func TestOrderRecordRoundTrip(t *testing.T) {
	t.Parallel()

	pkg := &model.Package{ID: 9, Name: "Supporter"}
	resolve := func(id int) (*model.Package, error) {
		if id == pkg.ID {
			return pkg, nil
		}
		return nil, model.ErrPackageNotFound
	}

	order := model.NewOrder(time.Now().Truncate(time.Second),
		model.OrderPayment{ID: "ORD-1", Provider: "paypal"},
		model.NewReference("7650000001", "discord-1", pkg), "thanks")
	require.NoError(t, order.Pay("TX-1"))

	got, err := orderFromRecord(orderToRecord(order), resolve)
	require.NoError(t, err)

	assert.Equal(t, order.ID, got.ID)
	assert.Equal(t, order.Status, got.Status)
	assert.Equal(t, order.Reference, got.Reference)
	assert.Equal(t, "TX-1", got.Payment.TransactionID)
}

func TestOrderFromRecord_RetiredPackage(t *testing.T) {
	t.Parallel()

	gone := func(int) (*model.Package, error) { return nil, model.ErrPackageNotFound }

	order := model.NewOrder(time.Now(),
		model.OrderPayment{ID: "ORD-1", Provider: "paypal"},
		model.NewReference("7650000001", "discord-1", &model.Package{ID: 9, Name: "Supporter"}), "")
	require.NoError(t, order.Pay("TX-1"))

	got, err := orderFromRecord(orderToRecord(order), gone)
	require.NoError(t, err, "history must stay readable after a package is removed")

	require.True(t, got.Reference.Package.Removed)
	assert.Equal(t, 9, got.Reference.Package.ID)
}
